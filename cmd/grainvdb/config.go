package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"

	"github.com/hupe1980/grainvdb"
	"github.com/hupe1980/grainvdb/blobstore"
	"github.com/hupe1980/grainvdb/internal/kernel"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// engineConfig holds the settings shared by every command that opens a
// Context.
type engineConfig struct {
	N              int     `yaml:"n"`
	Dim            int     `yaml:"dim"`
	Kernel         string  `yaml:"kernel"`
	Backend        string  `yaml:"backend"`
	Workers        int     `yaml:"workers"`
	Seed           int64   `yaml:"seed"`
	AuditVariant   string  `yaml:"audit_variant"`
	AuditThreshold float32 `yaml:"audit_threshold"`
}

func defaultEngineConfig() engineConfig {
	return engineConfig{
		N:              100_000,
		Dim:            128,
		Backend:        "auto",
		Seed:           1,
		AuditVariant:   "density",
		AuditThreshold: grainvdb.DefaultAuditThreshold,
	}
}

func (c *engineConfig) bindFlags(f *pflag.FlagSet) {
	f.IntVar(&c.N, "n", c.N, "number of vectors")
	f.IntVar(&c.Dim, "dim", c.Dim, "vector dimensionality")
	f.StringVar(&c.Kernel, "kernel", c.Kernel, "kernel artifact location; empty uses a built-in artifact")
	f.StringVar(&c.Backend, "backend", c.Backend, "compute backend")
	f.IntVar(&c.Workers, "workers", c.Workers, "device workers per context; 0 means GOMAXPROCS")
	f.Int64Var(&c.Seed, "seed", c.Seed, "random seed")
	f.StringVar(&c.AuditVariant, "audit-variant", c.AuditVariant, "audit aggregate: density, mean or connectivity")
	f.Float32Var(&c.AuditThreshold, "audit-threshold", c.AuditThreshold, "pair similarity above which rows count as connected")
}

func (c engineConfig) validate() error {
	switch {
	case c.N < 0:
		return fmt.Errorf("n must not be negative, got %d", c.N)
	case c.Dim <= 0:
		return fmt.Errorf("dim must be positive, got %d", c.Dim)
	}
	return nil
}

// options translates the configuration into Open options. Vectors are
// always normalized so scores are cosine similarities.
func (c engineConfig) options(logger *grainvdb.Logger) ([]grainvdb.Option, error) {
	backend, err := grainvdb.ParseBackend(c.Backend)
	if err != nil {
		return nil, err
	}
	variant, err := grainvdb.ParseAuditVariant(c.AuditVariant)
	if err != nil {
		return nil, err
	}

	return []grainvdb.Option{
		grainvdb.WithLogger(logger),
		grainvdb.WithBackend(backend),
		grainvdb.WithWorkers(c.Workers),
		grainvdb.WithNormalize(true),
		grainvdb.WithAuditVariant(variant),
		grainvdb.WithAuditThreshold(c.AuditThreshold),
	}, nil
}

// artifact resolves the kernel location. An empty location yields an
// in-memory artifact.
func (c engineConfig) artifact(ctx context.Context) (blobstore.BlobStore, string, error) {
	if c.Kernel == "" {
		data, err := kernel.Encode(kernel.New(0), kernel.CompressionNone)
		if err != nil {
			return nil, "", err
		}
		store := blobstore.NewMemoryStore()
		if err := store.Put(ctx, "builtin.gvk", data); err != nil {
			return nil, "", err
		}
		return store, "builtin.gvk", nil
	}

	loc, err := parseLocation(c.Kernel)
	if err != nil {
		return nil, "", err
	}
	store, err := openStore(ctx, loc)
	if err != nil {
		return nil, "", err
	}
	return store, loc.name, nil
}

// open creates a Context reading the kernel through the configured store.
func (c engineConfig) open(ctx context.Context, logger *grainvdb.Logger) (*grainvdb.Context, error) {
	opts, err := c.options(logger)
	if err != nil {
		return nil, err
	}
	store, name, err := c.artifact(ctx)
	if err != nil {
		return nil, err
	}
	return grainvdb.Open(ctx, c.Dim, name, append(opts, grainvdb.WithArtifactStore(store))...)
}

// loadConfig overlays the YAML file at path onto dst, then re-applies the
// flags set on the command line so that they win over the file.
func loadConfig(cmd *cobra.Command, path string, dst any) error {
	if path == "" {
		return nil
	}

	changed := map[string]string{}
	cmd.Flags().Visit(func(f *pflag.Flag) {
		changed[f.Name] = f.Value.String()
	})

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	for name, value := range changed {
		if err := cmd.Flags().Set(name, value); err != nil {
			return err
		}
	}
	return nil
}

// gaussianData returns n*dim standard normal values.
func gaussianData(rng *rand.Rand, n, dim int) []float32 {
	data := make([]float32, n*dim)
	for i := range data {
		data[i] = float32(rng.NormFloat64())
	}
	return data
}
