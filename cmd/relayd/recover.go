package main

import (
	"runtime/debug"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// faultSink takes a panic recovered on a goroutine it does not own.
type faultSink interface {
	Fault(r any, stack []byte)
}

// recoverStreamInterceptor turns a handler panic into codes.Internal and
// reports it to sink. The report runs on its own goroutine: the shutdown it
// starts stops the server, which waits for this handler to return.
func recoverStreamInterceptor(sink faultSink) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) (err error) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			stack := debug.Stack()
			if sink != nil {
				go sink.Fault(r, stack)
			}
			err = status.Errorf(codes.Internal, "%s failed", info.FullMethod)
		}()
		return handler(srv, ss)
	}
}
