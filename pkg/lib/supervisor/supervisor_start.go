package supervisor

import (
	"context"

	"github.com/TonyRHouston/libp2p-relay/pkg/lib/node"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Start launches the node asynchronously. The returned channel yields the
// result once and is then closed. A failed start is logged and left alone:
// the process keeps running without a node and nothing is retried.
func (s *Supervisor) Start(ctx context.Context) <-chan StartResult {
	out := make(chan StartResult, 1)

	if !s.state.BeginStart() {
		err := ErrAlreadyStarted
		if s.state.ShuttingDown() {
			err = ErrShuttingDown
		}
		out <- StartResult{Err: err}
		close(out)
		return out
	}

	s.mu.Lock()
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	log.Info().Msg("starting relay node")

	go func() {
		if s.guard != nil {
			defer s.guard.RecoverFault()
		}

		// Runs before the guard, so a panicking starter still resolves Start
		// and Wait.
		res := StartResult{Err: ErrStartPanicked}
		defer func() {
			s.mu.Lock()
			s.result = res
			s.mu.Unlock()
			close(done)

			out <- res
			close(out)
		}()

		res = s.run(ctx)
	}()

	return out
}

func (s *Supervisor) run(ctx context.Context) StartResult {
	resolved := false
	// A panicking starter still has to resolve the pending start, otherwise
	// shutdown would wait on it until its deadline.
	defer func() {
		if !resolved {
			s.state.FinishStart(nil)
		}
	}()

	h, err := s.starter(ctx)
	if err == nil && h == nil {
		err = errors.New("starter returned no node")
	}
	if err != nil {
		resolved = true
		s.state.FinishStart(nil)
		log.Error().Err(err).Msg("error starting relay")
		return StartResult{Err: errors.Wrap(err, "start relay")}
	}

	// Read before publishing: once published, shutdown may stop h at any time.
	addrs := node.TrimAddresses(h.Multiaddrs())

	resolved = true
	if !s.state.FinishStart(h) {
		log.Warn().Msg("relay node came up after shutdown; stopping it")
		s.stopOrphan(h)
		return StartResult{Err: errors.New("relay started after shutdown")}
	}

	log.Info().Strs("addresses", addrs).Msg("relay node started")
	return StartResult{Handle: h}
}

func (s *Supervisor) stopOrphan(h node.Handle) {
	ctx, cancel := context.WithTimeout(context.Background(), s.orphanStopTimeout)
	defer cancel()
	if err := h.Stop(ctx); err != nil {
		log.Error().Err(err).Msg("failed to stop late relay node")
	}
}

// Wait blocks until the start attempt resolves or ctx ends.
func (s *Supervisor) Wait(ctx context.Context) (StartResult, error) {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return StartResult{}, errors.New("relay start not attempted")
	}

	select {
	case <-done:
	case <-ctx.Done():
		return StartResult{}, ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result, nil
}
