package bridge

import (
	"context"
	"time"

	"github.com/TonyRHouston/libp2p-relay/pkg/lib"
	"github.com/TonyRHouston/libp2p-relay/pkg/lib/metrics"
	"github.com/rs/zerolog/log"
)

// Poll delivers an encoded snapshot, sleeps for the interval and repeats for
// as long as the process is not shutting down. Liveness is read again before
// every delivery. Poll returns nil once liveness is lost, ctx.Err() when ctx
// ends, or the first delivery error.
func (b *Bridge) Poll(ctx context.Context, deliver func(payload []byte) error) error {
	timer := time.NewTimer(b.interval)
	defer timer.Stop()

	for b.state.Live() {
		if err := deliver(b.encode(b.BuildSnapshot())); err != nil {
			return err
		}
		metrics.SnapshotsDelivered.Inc()

		timer.Reset(b.interval)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}

// encode never fails: a snapshot that cannot be serialized is replaced by an
// error marker so the stream keeps going.
func (b *Bridge) encode(s lib.Snapshot) []byte {
	payload, err := b.marshal(s)
	if err == nil {
		return payload
	}
	log.Warn().Err(err).Msg("failed to serialize snapshot")

	payload, err = b.marshal(lib.ErrorSnapshot("snapshot serialization failed"))
	if err != nil {
		return []byte(`{"error":"snapshot serialization failed"}`)
	}
	return payload
}
