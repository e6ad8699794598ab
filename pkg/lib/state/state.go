// Package state holds the process-wide relay state shared by the supervisor,
// the shutdown coordinator and the status bridge.
//
// The handle is either absent (never started, start failed, or already taken
// for stopping) or present and valid. The shutdown flag flips false to true
// exactly once. Every read and write goes through one mutex.
package state

import (
	"sync"

	"github.com/TonyRHouston/libp2p-relay/pkg/lib/metrics"
	"github.com/TonyRHouston/libp2p-relay/pkg/lib/node"
)

type State struct {
	mu       sync.Mutex
	handle   node.Handle
	shutdown bool
	// collected is set once the coordinator has taken the handle out. A start
	// that resolves after that point owns its handle and must stop it itself.
	collected bool
	// starting is non-nil while a start attempt is in flight and is closed
	// when the attempt resolves.
	starting chan struct{}
	started  bool
}

func New() *State {
	return &State{}
}

// BeginStart records that a start attempt is in flight. It returns false when
// a start was already attempted or shutdown has been requested.
func (s *State) BeginStart() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started || s.shutdown {
		return false
	}
	s.started = true
	s.starting = make(chan struct{})
	return true
}

// FinishStart resolves the in-flight start. A nil h records a failed start.
// It returns false when the coordinator has already collected and the caller
// is responsible for stopping h.
func (s *State) FinishStart(h node.Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.starting != nil {
		close(s.starting)
		s.starting = nil
	}
	if h == nil {
		return true
	}
	if s.collected {
		return false
	}
	s.handle = h
	metrics.NodeUp.Set(1)
	return true
}

// Handle returns the published handle, or nil when it is absent or shutdown
// is in progress.
func (s *State) Handle() node.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.shutdown {
		return nil
	}
	return s.handle
}

// View calls fn with the published handle while holding the state lock, so
// the handle cannot be taken for stopping in the middle of a read. fn must
// not call back into State. View reports false without calling fn when there
// is no handle or shutdown is in progress.
func (s *State) View(fn func(h node.Handle)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.shutdown || s.handle == nil {
		return false
	}
	fn(s.handle)
	return true
}

// Live reports whether status deliveries should continue.
func (s *State) Live() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.shutdown
}

// ShuttingDown reports whether shutdown has been requested.
func (s *State) ShuttingDown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdown
}

// BeginShutdown sets the shutdown flag if it was not set. Only the first
// caller gets ok == true. pending is non-nil when a start attempt is still in
// flight; it is closed once the attempt resolves.
func (s *State) BeginShutdown() (ok bool, pending <-chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.shutdown {
		return false, nil
	}
	s.shutdown = true
	if s.starting != nil {
		pending = s.starting
	}
	return true, pending
}

// TakeHandle removes and returns the handle. Later starts are reported as
// orphans by FinishStart.
func (s *State) TakeHandle() node.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := s.handle
	s.handle = nil
	s.collected = true
	metrics.NodeUp.Set(0)
	return h
}
