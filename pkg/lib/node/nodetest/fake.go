// Package nodetest provides an in-memory node.Handle for tests.
package nodetest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/TonyRHouston/libp2p-relay/pkg/lib/node"
	"github.com/libp2p/go-libp2p/core/protocol"
	ma "github.com/multiformats/go-multiaddr"
)

// ID is a peer identifier that prints as itself.
type ID string

func (id ID) String() string { return string(id) }

// Handle records how it was used. Queries after Stop are counted so tests can
// assert a stopped handle is never touched again.
type Handle struct {
	mu        sync.Mutex
	addrs     []ma.Multiaddr
	peers     []string
	protocols []protocol.ID
	remotes   []string

	// StopErr is returned from Stop.
	StopErr error
	// Block, when set, holds Stop until it is closed or ctx expires.
	Block chan struct{}
	// PeersPanic, when non-nil, is raised by Peers.
	PeersPanic any

	stops            atomic.Int32
	completedStops   atomic.Int32
	queriesAfterStop atomic.Int32
}

// NewHandle builds a fake handle. Addresses must be valid multiaddrs.
func NewHandle(addrs []string, peers []string, protocols []string, remotes []string) *Handle {
	h := &Handle{peers: peers, remotes: remotes}
	for _, a := range addrs {
		h.addrs = append(h.addrs, ma.StringCast(a))
	}
	for _, p := range protocols {
		h.protocols = append(h.protocols, protocol.ID(p))
	}
	return h
}

func (h *Handle) Stop(ctx context.Context) error {
	h.stops.Add(1)
	if h.Block != nil {
		select {
		case <-h.Block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if h.StopErr == nil {
		h.completedStops.Add(1)
	}
	return h.StopErr
}

// StopCalls reports how many times Stop ran.
func (h *Handle) StopCalls() int { return int(h.stops.Load()) }

// CompletedStops reports stops that returned without error.
func (h *Handle) CompletedStops() int { return int(h.completedStops.Load()) }

// QueriesAfterStop reports queries issued against a stopped handle.
func (h *Handle) QueriesAfterStop() int { return int(h.queriesAfterStop.Load()) }

func (h *Handle) touch() {
	if h.stops.Load() > 0 {
		h.queriesAfterStop.Add(1)
	}
}

func (h *Handle) Multiaddrs() []ma.Multiaddr {
	h.touch()
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]ma.Multiaddr(nil), h.addrs...)
}

func (h *Handle) Peers() []fmt.Stringer {
	h.touch()
	if h.PeersPanic != nil {
		panic(h.PeersPanic)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]fmt.Stringer, 0, len(h.peers))
	for _, p := range h.peers {
		out = append(out, ID(p))
	}
	return out
}

func (h *Handle) Protocols() []protocol.ID {
	h.touch()
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]protocol.ID(nil), h.protocols...)
}

func (h *Handle) Connections() []node.Conn {
	h.touch()
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]node.Conn, 0, len(h.remotes))
	for _, r := range h.remotes {
		out = append(out, conn{remote: ID(r)})
	}
	return out
}

// SetPeers replaces the connected peer set.
func (h *Handle) SetPeers(peers ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.peers = append([]string(nil), peers...)
}

type conn struct {
	remote ID
}

func (c conn) RemotePeerID() fmt.Stringer { return c.remote }

// Starter returns a node.Starter that yields h, or err when h is nil.
func Starter(h *Handle, err error) node.Starter {
	return func(ctx context.Context) (node.Handle, error) {
		if h == nil {
			return nil, err
		}
		return h, nil
	}
}

// GatedStarter returns a starter that waits for release before yielding h.
func GatedStarter(h *Handle, release <-chan struct{}) node.Starter {
	return func(ctx context.Context) (node.Handle, error) {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return h, nil
	}
}
