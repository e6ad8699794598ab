package bridge

import (
	"context"

	"github.com/TonyRHouston/libp2p-relay/pkg/lib"
	"github.com/TonyRHouston/libp2p-relay/pkg/lib/metrics"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Reply is one pushed snapshot, tagged with the request it answers.
type Reply struct {
	RequestID string
	Channel   string
	Payload   []byte
}

// Subscription is the reply stream of one subscribe request.
type Subscription struct {
	ID      string
	Channel string

	mailbox *Mailbox[Reply]
	cancel  context.CancelFunc
	done    chan struct{}
	err     error
}

// C yields replies until the polling loop ends, then is closed.
func (s *Subscription) C() <-chan Reply {
	return s.mailbox.C()
}

// Close ends the polling loop and waits for it to return.
func (s *Subscription) Close() {
	s.cancel()
	<-s.done
}

// Err reports why the loop ended. Valid once C is closed.
func (s *Subscription) Err() error {
	<-s.done
	return s.err
}

// Subscribe answers a request on channel with a stream of snapshots, one per
// interval, until shutdown begins or ctx ends.
func (b *Bridge) Subscribe(ctx context.Context, channel string, consumer string) (*Subscription, error) {
	if channel != ChannelUpdate {
		return nil, errors.Wrapf(ErrUnknownChannel, "%q", channel)
	}
	if !b.state.Live() {
		return nil, ErrShuttingDown
	}

	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		ID:      lib.NewID(),
		Channel: channel,
		mailbox: NewMailbox[Reply](),
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	logger := log.With().
		Str("request_id", sub.ID).
		Str("channel", channel).
		Str("consumer", consumer).
		Logger()
	logger.Debug().Msg("subscribed")
	metrics.ActiveSubscriptions.Inc()

	go func() {
		if b.guard != nil {
			defer b.guard.RecoverFault()
		}
		defer close(sub.done)
		defer sub.mailbox.Close()
		defer metrics.ActiveSubscriptions.Dec()

		err := b.Poll(ctx, func(payload []byte) error {
			if !sub.mailbox.Put(Reply{RequestID: sub.ID, Channel: channel, Payload: payload}) {
				return errors.New("subscription closed")
			}
			return nil
		})
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		sub.err = err
		logger.Debug().Err(err).Msg("subscription ended")
	}()

	return sub, nil
}
