package main

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

type consumerContextKey struct{}

func consumerFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(consumerContextKey{}).(string); ok {
		return v, true
	}
	return "", false
}

func withConsumer(ctx context.Context, consumer string) context.Context {
	return context.WithValue(ctx, consumerContextKey{}, consumer)
}

// spiffeTrustDomain returns the trust domain of the first SPIFFE URI SAN of
// the client certificate, e.g. spiffe://desktop -> "desktop".
func spiffeTrustDomain(ctx context.Context) (string, bool) {
	p, ok := peer.FromContext(ctx)
	if !ok || p == nil {
		return "", false
	}
	ti, ok := p.AuthInfo.(credentials.TLSInfo)
	if !ok {
		return "", false
	}
	certs := ti.State.PeerCertificates
	if len(certs) == 0 || certs[0] == nil {
		return "", false
	}
	for _, uri := range certs[0].URIs {
		if uri != nil && uri.Scheme == "spiffe" {
			return uri.Host, true
		}
	}
	return "", false
}

// consumerIdentity names the caller for logs. With mTLS the SPIFFE trust
// domain is mandatory; without it the remote address is used.
func consumerIdentity(ctx context.Context, requireSpiffe bool) (string, error) {
	if v, ok := consumerFromContext(ctx); ok {
		return v, nil
	}
	if id, ok := spiffeTrustDomain(ctx); ok {
		return id, nil
	}
	if requireSpiffe {
		return "", status.Error(codes.Unauthenticated, "client must have SPIFFE ID")
	}
	if p, ok := peer.FromContext(ctx); ok && p != nil && p.Addr != nil {
		return p.Addr.String(), nil
	}
	return "unknown", nil
}

type streamWithCtx struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *streamWithCtx) Context() context.Context { return s.ctx }

func consumerStreamInterceptor(requireSpiffe bool) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		consumer, err := consumerIdentity(ss.Context(), requireSpiffe)
		if err != nil {
			return err
		}
		return handler(srv, &streamWithCtx{ServerStream: ss, ctx: withConsumer(ss.Context(), consumer)})
	}
}
