package main

import (
	"crypto/tls"
	"crypto/x509"
	"net"
	"strings"
	"time"

	protov1 "github.com/TonyRHouston/libp2p-relay/api/v1"
	"github.com/TonyRHouston/libp2p-relay/pkg/lib/bridge"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
)

// PEM material for mTLS. All three must be set together.
const (
	envTLSKey    = "RELAYD_TLS_KEY"
	envTLSCert   = "RELAYD_TLS_CERT"
	envCATLSCert = "RELAYD_CA_TLS_CERT"
)

var errIncompleteTLS = errors.New("incomplete TLS environment; set all of " + envTLSKey + ", " + envTLSCert + ", " + envCATLSCert + " or none")

// GRPCServer serves the status bridge and the standard health service on one
// listener.
type GRPCServer struct {
	lis    net.Listener
	s      *grpc.Server
	health *health.Server
}

// NewGRPCServer prepares a server on lis. Handler panics are reported to sink.
// getenv supplies the TLS material; without it the server runs in plaintext.
func NewGRPCServer(lis net.Listener, b *bridge.Bridge, sink faultSink, getenv func(string) string) (*GRPCServer, error) {
	tlsConfig, err := tlsFromEnv(getenv)
	if err != nil {
		return nil, err
	}
	if tlsConfig == nil && !isLoopback(lis.Addr()) {
		return nil, errors.Errorf("plaintext status channel must bind to loopback, got %s", lis.Addr())
	}
	opts := serverOptions(tlsConfig, sink)

	s := grpc.NewServer(opts...)
	protov1.RegisterStatusBridgeServer(s, NewStatusBridgeServer(b))

	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	hs.SetServingStatus(protov1.StatusBridge_ServiceName, healthpb.HealthCheckResponse_SERVING)

	return &GRPCServer{lis: lis, s: s, health: hs}, nil
}

func serverOptions(tlsConfig *tls.Config, sink faultSink) []grpc.ServerOption {
	opts := []grpc.ServerOption{
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    30 * time.Second,
			Timeout: 20 * time.Second,
		}),
	}

	if tlsConfig != nil {
		opts = append(opts, grpc.Creds(credentials.NewTLS(tlsConfig)))
		log.Info().Msg("mTLS enabled for status bridge")
	}
	return append(opts, grpc.ChainStreamInterceptor(
		recoverStreamInterceptor(sink),
		consumerStreamInterceptor(tlsConfig != nil),
	))
}

// isLoopback treats non-TCP listeners (in-memory, unix) as local.
func isLoopback(addr net.Addr) bool {
	tcp, ok := addr.(*net.TCPAddr)
	if !ok {
		return true
	}
	return tcp.IP.IsLoopback()
}

// tlsFromEnv returns nil when no TLS material is configured.
func tlsFromEnv(getenv func(string) string) (*tls.Config, error) {
	keyPEM := strings.TrimSpace(getenv(envTLSKey))
	certPEM := strings.TrimSpace(getenv(envTLSCert))
	caPEM := strings.TrimSpace(getenv(envCATLSCert))
	if keyPEM == "" && certPEM == "" && caPEM == "" {
		return nil, nil
	}
	if keyPEM == "" || certPEM == "" || caPEM == "" {
		return nil, errIncompleteTLS
	}

	cert, err := tls.X509KeyPair([]byte(certPEM), []byte(keyPEM))
	if err != nil {
		return nil, errors.Wrap(err, "load server key pair")
	}
	caPool := x509.NewCertPool()
	if !caPool.AppendCertsFromPEM([]byte(caPEM)) {
		return nil, errors.New("failed to append CA certificate to pool")
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		ClientCAs:    caPool,
		ClientAuth:   tls.RequireAndVerifyClientCert,
		MinVersion:   tls.VersionTLS13,
	}, nil
}

func listen(addr string) (net.Listener, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "listen on %s", addr)
	}
	return lis, nil
}

// Serve blocks until the server stops.
func (g *GRPCServer) Serve() error {
	return g.s.Serve(g.lis)
}

func (g *GRPCServer) Addr() net.Addr { return g.lis.Addr() }

// Stop marks the service not serving and closes every open stream.
func (g *GRPCServer) Stop() {
	g.health.Shutdown()
	g.s.Stop()
}
