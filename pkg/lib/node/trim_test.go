package node

import (
	"testing"

	ma "github.com/multiformats/go-multiaddr"
	"github.com/stretchr/testify/assert"
)

func TestTrimAddresses(t *testing.T) {
	const id = "QmNnooDu7bfjPFoTZYxMNLWUQJyrVwtbZg5gBMjTezGAJN"

	addrs := []ma.Multiaddr{
		ma.StringCast("/ip4/1.2.3.4/tcp/4001"),
		ma.StringCast("/ip4/1.2.3.4/tcp/4001/p2p/" + id),
		nil,
		ma.StringCast("/ip4/1.2.3.4/udp/4001/quic-v1"),
		ma.StringCast("/p2p/" + id),
		ma.StringCast("/ip6/::1/tcp/4001"),
	}

	got := TrimAddresses(addrs)
	assert.Equal(t, []string{
		"/ip4/1.2.3.4/tcp/4001",
		"/ip4/1.2.3.4/udp/4001/quic-v1",
		"/ip6/::1/tcp/4001",
	}, got)
}

func TestTrimAddresses_Empty(t *testing.T) {
	got := TrimAddresses(nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
