// Package shutdown turns every termination trigger the process can receive
// into one stop-then-exit sequence that runs at most once.
package shutdown

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"sync"
	"time"

	"github.com/TonyRHouston/libp2p-relay/pkg/lib"
	"github.com/TonyRHouston/libp2p-relay/pkg/lib/metrics"
	"github.com/TonyRHouston/libp2p-relay/pkg/lib/node"
	"github.com/TonyRHouston/libp2p-relay/pkg/lib/state"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const DefaultStopTimeout = 5 * time.Second

type Options struct {
	// StopTimeout bounds the wait for a pending start and, separately, the
	// node stop.
	StopTimeout time.Duration
	// Exit terminates the process. Defaults to os.Exit.
	Exit func(code int)
}

type Coordinator struct {
	state       *state.State
	stopTimeout time.Duration
	exit        func(code int)

	done     chan struct{}
	doneOnce sync.Once

	signals chan os.Signal
}

func New(st *state.State, opts Options) *Coordinator {
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = DefaultStopTimeout
	}
	if opts.Exit == nil {
		opts.Exit = os.Exit
	}
	return &Coordinator{
		state:       st,
		stopTimeout: opts.StopTimeout,
		exit:        opts.Exit,
		done:        make(chan struct{}),
	}
}

// Install registers a single dispatcher for every signal in the trigger table.
// The returned function unregisters it.
func (c *Coordinator) Install() func() {
	c.signals = make(chan os.Signal, len(signalTriggers))
	signal.Notify(c.signals, notifySignals()...)

	quit := make(chan struct{})
	go func() {
		defer c.RecoverFault()
		for {
			select {
			case <-quit:
				return
			case sig := <-c.signals:
				kind, ok := triggerForSignal(sig)
				if !ok {
					continue
				}
				if !c.state.ShuttingDown() {
					log.Info().Str("signal", signalName(sig)).Msg("signal received")
				}
				c.OnTriggered(kind, nil)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(c.signals)
			close(quit)
		})
	}
}

// Done is closed once the shutdown sequence has called the exit function.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// OnTriggered is the single entry point for every trigger. The first call
// stops the node and exits; every later call waits for that to finish and
// returns without doing anything else.
func (c *Coordinator) OnTriggered(kind lib.Trigger, hint *int) {
	ok, pending := c.state.BeginShutdown()
	if !ok {
		<-c.done
		return
	}
	defer c.doneOnce.Do(func() { close(c.done) })

	code := ResolveExitCode(kind, hint)
	metrics.Triggers.WithLabelValues(kind.String()).Inc()

	ev := log.Info()
	if policies[kind].fault {
		ev = log.Error()
	}
	ev.Stringer("trigger", kind).Int("exit_code", code).Msg("shutting down")

	if pending != nil {
		c.waitPending(pending)
	}

	if h := c.state.TakeHandle(); h != nil {
		ctx, cancel := context.WithTimeout(context.Background(), c.stopTimeout)
		defer cancel()

		start := time.Now()
		if err := stopNode(ctx, h); err != nil {
			log.Error().Err(err).Msg("failed to stop relay node")
		} else {
			log.Info().Msg("relay node stopped")
		}
		metrics.StopDuration.Observe(time.Since(start).Seconds())
	}

	c.exit(code)
}

// waitPending gives an in-flight start up to one stop timeout to resolve. The
// stop that follows gets its own deadline.
func (c *Coordinator) waitPending(pending <-chan struct{}) {
	timer := time.NewTimer(c.stopTimeout)
	defer timer.Stop()

	select {
	case <-pending:
	case <-timer.C:
		log.Warn().Dur("timeout", c.stopTimeout).Msg("relay start still pending at shutdown")
	}
}

// stopNode keeps a panicking Stop from skipping the exit call.
func stopNode(ctx context.Context, h node.Handle) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("stop panicked: %v", r)
		}
	}()
	return h.Stop(ctx)
}

// Exit is the normal exit notification.
func (c *Coordinator) Exit(code int) {
	c.OnTriggered(lib.TriggerExit, lib.ExitCode(code))
}

// BeforeExit is raised when the process has no more work to do.
func (c *Coordinator) BeforeExit(code int) {
	c.OnTriggered(lib.TriggerBeforeExit, lib.ExitCode(code))
}

// Reject routes an error nobody handled into the shutdown path.
func (c *Coordinator) Reject(err error) {
	if !c.state.ShuttingDown() {
		log.Error().Err(err).Msg("unhandled rejection")
	}
	c.OnTriggered(lib.TriggerRejection, nil)
}

// RecoverFault must be deferred directly. A recovered panic is logged with
// its stack and shuts the process down with exit code 1.
func (c *Coordinator) RecoverFault() {
	r := recover()
	if r == nil {
		return
	}
	c.Fault(r, debug.Stack())
}

// Fault routes a panic that was recovered elsewhere into the shutdown path.
func (c *Coordinator) Fault(r any, stack []byte) {
	if !c.state.ShuttingDown() {
		log.Error().
			Str("panic", fmt.Sprint(r)).
			Bytes("stack", stack).
			Msg("uncaught fault")
	}
	c.OnTriggered(lib.TriggerFault, nil)
}
