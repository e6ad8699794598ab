package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/TonyRHouston/libp2p-relay/pkg/lib/bridge"
	"github.com/TonyRHouston/libp2p-relay/pkg/lib/config"
	"github.com/TonyRHouston/libp2p-relay/pkg/lib/metrics"
	"github.com/TonyRHouston/libp2p-relay/pkg/lib/node"
	"github.com/TonyRHouston/libp2p-relay/pkg/lib/shutdown"
	"github.com/TonyRHouston/libp2p-relay/pkg/lib/state"
	"github.com/TonyRHouston/libp2p-relay/pkg/lib/supervisor"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// appDeps replaces the process-level collaborators in tests.
type appDeps struct {
	starter  node.Starter
	exit     func(int)
	listener net.Listener
	getenv   func(string) string
}

// App owns one relay process: the node, its shutdown path and the status
// bridge served over gRPC.
type App struct {
	cfg        config.Config
	state      *state.State
	coord      *shutdown.Coordinator
	supervisor *supervisor.Supervisor
	bridge     *bridge.Bridge
	grpc       *GRPCServer
	metrics    *http.Server

	closeOnce sync.Once
}

func NewApp(cfg config.Config, deps appDeps) (*App, error) {
	if deps.starter == nil {
		deps.starter = node.RelayStarter(cfg.Relay())
	}
	if deps.exit == nil {
		deps.exit = os.Exit
	}
	if deps.getenv == nil {
		deps.getenv = os.Getenv
	}

	a := &App{cfg: cfg, state: state.New()}
	a.coord = shutdown.New(a.state, shutdown.Options{
		StopTimeout: cfg.StopTimeout,
		Exit: func(code int) {
			a.closeServers()
			deps.exit(code)
		},
	})
	a.supervisor = supervisor.New(a.state, deps.starter, a.coord)
	a.bridge = bridge.New(a.state, bridge.Options{Interval: cfg.PollInterval, Guard: a.coord})

	lis := deps.listener
	if lis == nil {
		var err error
		if lis, err = listen(cfg.Address); err != nil {
			return nil, err
		}
	}
	srv, err := NewGRPCServer(lis, a.bridge, a.coord, deps.getenv)
	if err != nil {
		_ = lis.Close()
		return nil, err
	}
	a.grpc = srv

	if cfg.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		a.metrics = &http.Server{
			Addr:              cfg.MetricsAddress,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}
	return a, nil
}

// Run starts the node and serves the bridge until the shutdown sequence has
// finished. Cancelling ctx is a normal exit with code 0.
func (a *App) Run(ctx context.Context) {
	defer a.coord.RecoverFault()

	uninstall := a.coord.Install()
	defer uninstall()

	a.supervisor.Start(ctx)

	go func() {
		defer a.coord.RecoverFault()
		select {
		case <-ctx.Done():
			a.coord.Exit(0)
		case <-a.coord.Done():
		}
	}()

	if a.metrics != nil {
		go func() {
			defer a.coord.RecoverFault()
			log.Info().Str("address", a.metrics.Addr).Msg("metrics listening")
			if err := a.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.coord.Reject(errors.Wrap(err, "serve metrics"))
			}
		}()
	}

	go func() {
		defer a.coord.RecoverFault()
		log.Info().Str("address", a.grpc.Addr().String()).Msg("status bridge listening")
		err := a.grpc.Serve()
		if a.state.ShuttingDown() {
			return
		}
		if err != nil {
			a.coord.Reject(errors.Wrap(err, "serve status bridge"))
			return
		}
		a.coord.BeforeExit(0)
	}()

	<-a.coord.Done()
}

// Coordinator is the shutdown entry point for non-signal triggers.
func (a *App) Coordinator() *shutdown.Coordinator {
	return a.coord
}

func (a *App) closeServers() {
	a.closeOnce.Do(func() {
		a.grpc.Stop()
		if a.metrics != nil {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = a.metrics.Shutdown(ctx)
		}
	})
}
