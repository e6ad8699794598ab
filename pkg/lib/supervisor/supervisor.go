package supervisor

import (
	"sync"
	"time"

	"github.com/TonyRHouston/libp2p-relay/pkg/lib/node"
	"github.com/TonyRHouston/libp2p-relay/pkg/lib/state"
	"github.com/pkg/errors"
)

var (
	ErrAlreadyStarted = errors.New("relay start already attempted")
	ErrShuttingDown   = errors.New("shutdown in progress")
	ErrStartPanicked  = errors.New("relay start panicked")
)

// FaultGuard receives panics raised inside the start goroutine.
// RecoverFault is deferred directly, so it can call recover itself.
type FaultGuard interface {
	RecoverFault()
}

// Supervisor owns the single relay node of the process.
type Supervisor struct {
	state   *state.State
	starter node.Starter
	guard   FaultGuard
	// orphanStopTimeout bounds stopping a node that came up after shutdown
	// already collected.
	orphanStopTimeout time.Duration

	mu     sync.Mutex
	done   chan struct{}
	result StartResult
}

// StartResult is the outcome of the start attempt. Exactly one of Handle and
// Err is set.
type StartResult struct {
	Handle node.Handle
	Err    error
}

// New creates a Supervisor. guard may be nil.
func New(st *state.State, starter node.Starter, guard FaultGuard) *Supervisor {
	return &Supervisor{
		state:             st,
		starter:           starter,
		guard:             guard,
		orphanStopTimeout: 5 * time.Second,
	}
}
