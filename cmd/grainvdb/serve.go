package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hupe1980/grainvdb"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// serveConfig configures the HTTP server. Engine settings are shared with
// bench; n is the number of random vectors preloaded at startup.
type serveConfig struct {
	engineConfig `yaml:",inline"`

	Addr           string  `yaml:"addr"`
	ConsistencyMin float32 `yaml:"consistency_min"`
}

func defaultServeConfig() serveConfig {
	return serveConfig{
		engineConfig:   defaultEngineConfig(),
		Addr:           ":8000",
		ConsistencyMin: 0.5,
	}
}

func newServeCmd(root *rootOptions) *cobra.Command {
	var (
		configPath string
		cfg        = defaultServeConfig()
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve resolve and health endpoints over HTTP",
		Long: `Open a GrainVDB context, preload it with random vectors and serve

  POST /search  {"vector": [...], "k": 5}
  GET  /health

Flags override values from --config.

Examples:
  grainvdb serve
  grainvdb serve --addr 127.0.0.1:9000 --n 0 --dim 384
  grainvdb serve --config serve.yaml --kernel s3://artifacts/fold.gvk`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadConfig(cmd, configPath, &cfg); err != nil {
				return err
			}
			if err := cfg.validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ln, err := net.Listen("tcp", cfg.Addr)
			if err != nil {
				return err
			}
			return runServe(ctx, cfg, ln, root.logger(), cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVar(&configPath, "config", "", "YAML configuration file")
	cfg.bindFlags(f)
	f.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	f.Float32Var(&cfg.ConsistencyMin, "consistency-min", cfg.ConsistencyMin, "audit score at which results are labelled HIGH")

	return cmd
}

// preload opens a Context and ingests cfg.N random vectors.
func preload(ctx context.Context, cfg serveConfig, logger *grainvdb.Logger) (*grainvdb.Context, error) {
	c, err := cfg.open(ctx, logger)
	if err != nil {
		return nil, err
	}
	if cfg.N > 0 {
		rng := rand.New(rand.NewSource(cfg.Seed))
		if err := c.Ingest(ctx, gaussianData(rng, cfg.N, cfg.Dim), cfg.N); err != nil {
			_ = c.Close()
			return nil, err
		}
	}
	return c, nil
}

// runServe serves on ln until ctx is done, then shuts down gracefully.
func runServe(ctx context.Context, cfg serveConfig, ln net.Listener, logger *grainvdb.Logger, w io.Writer) error {
	c, err := preload(ctx, cfg, logger)
	if err != nil {
		_ = ln.Close()
		return err
	}
	defer c.Close()

	srv := &http.Server{
		Handler:           newServer(c, cfg.ConsistencyMin, logger).routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	fmt.Fprintf(w, "serving %d vectors x %d dims on %s (device %s)\n", c.Len(), c.Rank(), ln.Addr(), c.Device())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}
