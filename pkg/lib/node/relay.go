package node

import (
	"context"
	"crypto/rand"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/libp2p/go-libp2p"
	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/protocol"
	ma "github.com/multiformats/go-multiaddr"
	"github.com/pkg/errors"
)

// DefaultListenAddrs are used when no listen address is configured.
var DefaultListenAddrs = []string{
	"/ip4/0.0.0.0/tcp/4001",
	"/ip4/0.0.0.0/udp/4001/quic-v1",
}

// RelayConfig describes how the relay host is brought up.
type RelayConfig struct {
	ListenAddrs []string
	// IdentityKeyFile holds a marshalled libp2p private key. An ephemeral
	// ed25519 identity is generated when empty.
	IdentityKeyFile string
}

// RelayStarter returns a Starter that runs a circuit-v2 relay host.
func RelayStarter(cfg RelayConfig) Starter {
	return func(ctx context.Context) (Handle, error) {
		return StartRelay(ctx, cfg)
	}
}

// StartRelay creates a libp2p host that offers the circuit relay service on
// the configured listen addresses.
func StartRelay(ctx context.Context, cfg RelayConfig) (Handle, error) {
	listen := cfg.ListenAddrs
	if len(listen) == 0 {
		listen = DefaultListenAddrs
	}

	priv, err := loadIdentity(cfg.IdentityKeyFile)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h, err := libp2p.New(
		libp2p.Identity(priv),
		libp2p.ListenAddrStrings(listen...),
		libp2p.EnableRelayService(),
		libp2p.ForceReachabilityPublic(),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create libp2p host")
	}

	// The caller gave up while the host was being built.
	if err := ctx.Err(); err != nil {
		_ = h.Close()
		return nil, err
	}

	return &relayNode{host: h}, nil
}

func loadIdentity(path string) (crypto.PrivKey, error) {
	if strings.TrimSpace(path) == "" {
		priv, _, err := crypto.GenerateEd25519Key(rand.Reader)
		if err != nil {
			return nil, errors.Wrap(err, "generate identity")
		}
		return priv, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read identity key %s", path)
	}
	priv, err := crypto.UnmarshalPrivateKey(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "parse identity key %s", path)
	}
	return priv, nil
}

type relayNode struct {
	host host.Host

	closeOnce sync.Once
	closeErr  error
}

func (n *relayNode) Stop(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		n.closeOnce.Do(func() {
			n.closeErr = n.host.Close()
		})
		close(done)
	}()

	select {
	case <-done:
		return n.closeErr
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "close libp2p host")
	}
}

func (n *relayNode) Multiaddrs() []ma.Multiaddr {
	return n.host.Addrs()
}

func (n *relayNode) Peers() []fmt.Stringer {
	ids := n.host.Network().Peers()
	out := make([]fmt.Stringer, 0, len(ids))
	for _, id := range ids {
		out = append(out, id)
	}
	return out
}

func (n *relayNode) Protocols() []protocol.ID {
	return n.host.Mux().Protocols()
}

func (n *relayNode) Connections() []Conn {
	conns := n.host.Network().Conns()
	out := make([]Conn, 0, len(conns))
	for _, c := range conns {
		out = append(out, relayConn{c})
	}
	return out
}

type relayConn struct {
	network.Conn
}

func (c relayConn) RemotePeerID() fmt.Stringer {
	return c.RemotePeer()
}
