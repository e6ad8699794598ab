package node

import (
	"context"
	"fmt"

	"github.com/libp2p/go-libp2p/core/protocol"
	ma "github.com/multiformats/go-multiaddr"
)

// Handle is the capability set of a running network node. After Stop has been
// called the handle is invalid and must not be queried or stopped again.
type Handle interface {
	Stop(ctx context.Context) error
	Multiaddrs() []ma.Multiaddr
	Peers() []fmt.Stringer
	Protocols() []protocol.ID
	Connections() []Conn
}

// Conn is an active connection reduced to the identity of its remote end.
type Conn interface {
	RemotePeerID() fmt.Stringer
}

// Starter brings a node up. It may block until the node is listening.
type Starter func(ctx context.Context) (Handle, error)
