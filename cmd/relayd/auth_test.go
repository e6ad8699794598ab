package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"net"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

func tlsPeerContext(uris ...*url.URL) context.Context {
	cert := &x509.Certificate{URIs: uris}
	return peer.NewContext(context.Background(), &peer.Peer{
		Addr: &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 50000},
		AuthInfo: credentials.TLSInfo{
			State: tls.ConnectionState{PeerCertificates: []*x509.Certificate{cert}},
		},
	})
}

func TestConsumerIdentity_FromContext(t *testing.T) {
	ctx := withConsumer(context.Background(), "TEST")

	got, err := consumerIdentity(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, "TEST", got)
}

func TestConsumerIdentity_Spiffe(t *testing.T) {
	ctx := tlsPeerContext(
		&url.URL{Scheme: "https", Host: "example.com"},
		&url.URL{Scheme: "spiffe", Host: "desktop"},
	)

	got, err := consumerIdentity(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, "desktop", got)
}

func TestConsumerIdentity_MissingSpiffe(t *testing.T) {
	ctx := tlsPeerContext(&url.URL{Scheme: "https", Host: "example.com"})

	_, err := consumerIdentity(ctx, true)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	got, err := consumerIdentity(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:50000", got)
}

func TestConsumerIdentity_NoPeer(t *testing.T) {
	got, err := consumerIdentity(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, "unknown", got)
}
