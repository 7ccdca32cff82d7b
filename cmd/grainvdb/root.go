package main

import (
	"log/slog"
	"strings"

	"github.com/hupe1980/grainvdb"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "grainvdb",
		Short:         "GrainVDB kernel tooling and benchmarks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error); empty disables logging")

	cmd.AddCommand(newKernelCmd(), newBenchCmd(opts), newServeCmd(opts))
	return cmd
}

func (o *rootOptions) logger() *grainvdb.Logger {
	var level slog.Level
	switch strings.ToLower(o.logLevel) {
	case "":
		return grainvdb.NoopLogger()
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return grainvdb.NewTextLogger(level)
}
