package main

import (
	"crypto/tls"
	"crypto/x509"
	"os"
	"strings"

	"github.com/TonyRHouston/libp2p-relay/pkg/lib/config"
	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

func dial() (*grpc.ClientConn, error) {
	addr := strings.TrimSpace(os.Getenv(config.EnvAddress))
	if addr == "" {
		addr = config.DefaultAddress
	}

	creds, err := transportCredentials(os.Getenv)
	if err != nil {
		return nil, err
	}
	return grpc.NewClient(addr, grpc.WithTransportCredentials(creds))
}

// transportCredentials uses mTLS when RELAYCTL_TLS_KEY, RELAYCTL_TLS_CERT and
// RELAYCTL_CA_TLS_CERT are all set and plaintext when none is.
func transportCredentials(getenv func(string) string) (credentials.TransportCredentials, error) {
	keyPEM := strings.TrimSpace(getenv("RELAYCTL_TLS_KEY"))
	certPEM := strings.TrimSpace(getenv("RELAYCTL_TLS_CERT"))
	caPEM := strings.TrimSpace(getenv("RELAYCTL_CA_TLS_CERT"))
	if keyPEM == "" && certPEM == "" && caPEM == "" {
		return insecure.NewCredentials(), nil
	}
	if keyPEM == "" || certPEM == "" || caPEM == "" {
		return nil, errors.New("incomplete TLS environment; require RELAYCTL_TLS_KEY, RELAYCTL_TLS_CERT, RELAYCTL_CA_TLS_CERT")
	}

	cert, err := tls.X509KeyPair([]byte(certPEM), []byte(keyPEM))
	if err != nil {
		return nil, errors.Wrap(err, "parse TLS cert/key from env")
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM([]byte(caPEM)) {
		return nil, errors.New("failed to parse CA cert from env")
	}

	return credentials.NewTLS(&tls.Config{
		Certificates: []tls.Certificate{cert},
		RootCAs:      pool,
		MinVersion:   tls.VersionTLS13,
	}), nil
}
