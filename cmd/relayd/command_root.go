package main

import (
	"io"
	"strings"
	"time"

	"github.com/TonyRHouston/libp2p-relay/pkg/lib/config"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type rootFlags struct {
	configPath     string
	address        string
	metricsAddress string
	logLevel       string
	debug          bool
	pretty         bool
}

func NewRootCmd() *cobra.Command {
	var f rootFlags

	root := &cobra.Command{
		Use:           "relayd",
		Short:         "libp2p relay node with a local status channel",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(f.configPath)
			if err != nil {
				return err
			}
			applyFlags(cmd, f, &cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := setupLogging(cmd.ErrOrStderr(), cfg.LogLevel, f.pretty); err != nil {
				return err
			}

			app, err := NewApp(cfg, appDeps{})
			if err != nil {
				return err
			}
			app.Run(cmd.Context())
			return nil
		},
	}

	flags := root.Flags()
	flags.StringVarP(&f.configPath, "config", "c", "", "path to a YAML config file")
	flags.StringVar(&f.address, "address", config.DefaultAddress, "address of the status channel")
	flags.StringVar(&f.metricsAddress, "metrics-address", "", "address of the Prometheus endpoint (disabled when empty)")
	flags.StringVar(&f.logLevel, "log-level", config.DefaultLogLevel, "log level (trace, debug, info, warn, error)")
	flags.BoolVar(&f.debug, "debug", false, "shorthand for --log-level=debug")
	flags.BoolVar(&f.pretty, "pretty", false, "human readable console logs")

	return root
}

// applyFlags lets explicitly set flags win over the file and environment.
func applyFlags(cmd *cobra.Command, f rootFlags, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("address") {
		cfg.Address = f.address
	}
	if flags.Changed("metrics-address") {
		cfg.MetricsAddress = f.metricsAddress
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if f.debug {
		cfg.LogLevel = zerolog.LevelDebugValue
	}
}

func setupLogging(w io.Writer, level string, pretty bool) error {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return errors.Wrapf(err, "parse log level %q", level)
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	log.Logger = zerolog.New(w).With().Timestamp().Str("service", "relayd").Logger()
	return nil
}
