package main

import (
	"context"
	"encoding/json"
	"net"
	"sync"
	"testing"
	"time"

	protov1 "github.com/TonyRHouston/libp2p-relay/api/v1"
	"github.com/TonyRHouston/libp2p-relay/pkg/lib"
	"github.com/TonyRHouston/libp2p-relay/pkg/lib/bridge"
	"github.com/TonyRHouston/libp2p-relay/pkg/lib/config"
	"github.com/TonyRHouston/libp2p-relay/pkg/lib/metrics"
	"github.com/TonyRHouston/libp2p-relay/pkg/lib/node/nodetest"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const bufSize = 1024 * 1024

type exitRecorder struct {
	mu    sync.Mutex
	codes []int
}

func (r *exitRecorder) exit(code int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes = append(r.codes, code)
}

func (r *exitRecorder) calls() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.codes...)
}

type harness struct {
	app     *App
	rec     *exitRecorder
	conn    *grpc.ClientConn
	cancel  context.CancelFunc
	runDone chan struct{}
}

func startApp(t *testing.T, node *nodetest.Handle, startErr error) *harness {
	t.Helper()

	lis := bufconn.Listen(bufSize)
	rec := &exitRecorder{}

	cfg := config.Default()
	cfg.PollInterval = 20 * time.Millisecond
	cfg.StopTimeout = time.Second

	app, err := NewApp(cfg, appDeps{
		starter:  nodetest.Starter(node, startErr),
		exit:     rec.exit,
		listener: lis,
		getenv:   func(string) string { return "" },
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	h := &harness{app: app, rec: rec, cancel: cancel, runDone: make(chan struct{})}
	go func() {
		defer close(h.runDone)
		app.Run(ctx)
	}()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	h.conn = conn

	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		<-h.runDone
	})
	return h
}

func (h *harness) waitRun(t *testing.T) {
	t.Helper()
	select {
	case <-h.runDone:
	case <-time.After(5 * time.Second):
		t.Fatal("app did not finish shutting down")
	}
}

// recvStatus reads replies until one carries a node status.
func recvStatus(t *testing.T, stream grpc.ServerStreamingClient[wrapperspb.StringValue]) lib.NodeStatus {
	t.Helper()
	for i := 0; i < 100; i++ {
		msg, err := stream.Recv()
		require.NoError(t, err)

		var snap lib.Snapshot
		require.NoError(t, json.Unmarshal([]byte(msg.GetValue()), &snap))
		if st, ok := snap.Status(); ok {
			return st
		}
	}
	t.Fatal("no status snapshot received")
	return lib.NodeStatus{}
}

func TestApp_StreamsStatusAndShutsDownOnce(t *testing.T) {
	node := nodetest.NewHandle(
		[]string{"/ip4/127.0.0.1/tcp/4001"},
		[]string{"QmPeer"},
		[]string{"/libp2p/circuit/relay/0.2.0/hop"},
		[]string{"QmPeer"},
	)
	h := startApp(t, node, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := protov1.NewStatusBridgeClient(h.conn)
	stream, err := client.Update(ctx, &emptypb.Empty{})
	require.NoError(t, err)

	header, err := stream.Header()
	require.NoError(t, err)
	assert.NotEmpty(t, header.Get(protov1.HeaderRequestID))
	assert.Equal(t, []string{bridge.ChannelUpdate}, header.Get(protov1.HeaderChannel))

	st := recvStatus(t, stream)
	assert.Equal(t, []string{"/ip4/127.0.0.1/tcp/4001"}, st.Addresses)
	assert.Equal(t, []string{"QmPeer"}, st.Peers)
	assert.Equal(t, []lib.ConnectionInfo{{Peer: "QmPeer"}}, st.Connections)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.app.Coordinator().OnTriggered(lib.TriggerTerminate, nil)
		}()
	}
	wg.Wait()
	h.waitRun(t)

	assert.Equal(t, []int{0}, h.rec.calls())
	assert.Equal(t, 1, node.StopCalls())

	// The stream ends once the process has shut down.
	for {
		if _, err := stream.Recv(); err != nil {
			break
		}
	}
	assert.Zero(t, node.QueriesAfterStop())
}

func TestApp_StartFailureKeepsServing(t *testing.T) {
	h := startApp(t, nil, errors.New("port in use"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := protov1.NewStatusBridgeClient(h.conn).Update(ctx, &emptypb.Empty{})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		msg, err := stream.Recv()
		require.NoError(t, err)
		assert.JSONEq(t, `{"error":"Node is not initialized"}`, msg.GetValue())
	}
	assert.Empty(t, h.rec.calls())
}

func TestApp_UnknownChannel(t *testing.T) {
	h := startApp(t, nodetest.NewHandle(nil, nil, nil, nil), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ctx = metadata.AppendToOutgoingContext(ctx, protov1.HeaderChannel, "ipc-other")

	stream, err := protov1.NewStatusBridgeClient(h.conn).Update(ctx, &emptypb.Empty{})
	require.NoError(t, err)

	_, err = stream.Recv()
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestApp_Health(t *testing.T) {
	h := startApp(t, nodetest.NewHandle(nil, nil, nil, nil), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := healthpb.NewHealthClient(h.conn).Check(ctx, &healthpb.HealthCheckRequest{
		Service: protov1.StatusBridge_ServiceName,
	})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestApp_RejectExitsWithOne(t *testing.T) {
	node := nodetest.NewHandle(nil, nil, nil, nil)
	h := startApp(t, node, nil)

	require.Eventually(t, func() bool { return h.app.state.Handle() != nil }, 5*time.Second, 10*time.Millisecond)

	h.app.Coordinator().Reject(errors.New("background task failed"))
	h.waitRun(t)

	assert.Equal(t, []int{1}, h.rec.calls())
	assert.Equal(t, 1, node.StopCalls())
}

func TestApp_ContextCancelIsNormalExit(t *testing.T) {
	node := nodetest.NewHandle(nil, nil, nil, nil)
	h := startApp(t, node, nil)

	require.Eventually(t, func() bool { return h.app.state.Handle() != nil }, 5*time.Second, 10*time.Millisecond)
	exits := testutil.ToFloat64(metrics.Triggers.WithLabelValues(lib.TriggerExit.String()))

	h.cancel()
	h.waitRun(t)

	assert.Equal(t, []int{0}, h.rec.calls())
	assert.Equal(t, 1, node.StopCalls())
	assert.Equal(t, exits+1, testutil.ToFloat64(metrics.Triggers.WithLabelValues(lib.TriggerExit.String())))
}

func TestApp_PanicWhileStreamingExitsWithOne(t *testing.T) {
	node := nodetest.NewHandle(nil, nil, nil, nil)
	node.PeersPanic = "peer store corrupted"
	h := startApp(t, node, nil)

	require.Eventually(t, func() bool { return h.app.state.Handle() != nil }, 5*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stream, err := protov1.NewStatusBridgeClient(h.conn).Update(ctx, &emptypb.Empty{})
	require.NoError(t, err)

	h.waitRun(t)
	assert.Equal(t, []int{1}, h.rec.calls())
	assert.Equal(t, 1, node.StopCalls())

	for {
		if _, err := stream.Recv(); err != nil {
			break
		}
	}
}
