package bridge

import (
	"github.com/TonyRHouston/libp2p-relay/pkg/lib"
	"github.com/TonyRHouston/libp2p-relay/pkg/lib/node"
)

// BuildSnapshot reads the current node without changing any state. With no
// node it returns the "not initialized" marker.
func (b *Bridge) BuildSnapshot() lib.Snapshot {
	var snap lib.Snapshot
	if !b.state.View(func(h node.Handle) { snap = readStatus(h) }) {
		return lib.ErrorSnapshot(lib.NotInitialized)
	}
	return snap
}

func readStatus(h node.Handle) lib.Snapshot {
	peers := h.Peers()
	peerIDs := make([]string, 0, len(peers))
	for _, p := range peers {
		peerIDs = append(peerIDs, p.String())
	}

	protos := h.Protocols()
	protocols := make([]string, 0, len(protos))
	for _, p := range protos {
		protocols = append(protocols, string(p))
	}

	conns := h.Connections()
	connections := make([]lib.ConnectionInfo, 0, len(conns))
	for _, c := range conns {
		connections = append(connections, lib.ConnectionInfo{Peer: c.RemotePeerID().String()})
	}

	return lib.StatusSnapshot(lib.NodeStatus{
		Addresses:   node.TrimAddresses(h.Multiaddrs()),
		Peers:       peerIDs,
		Protocols:   protocols,
		Connections: connections,
	})
}
