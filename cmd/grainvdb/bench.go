package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"sort"
	"time"

	"github.com/hupe1980/grainvdb"
	"github.com/spf13/cobra"
	"github.com/viterin/vek/vek32"
	"golang.org/x/sync/errgroup"
)

// benchConfig is the bench configuration. It can be loaded from YAML and
// overridden by flags.
type benchConfig struct {
	engineConfig `yaml:",inline"`

	K        int `yaml:"k"`
	Loops    int `yaml:"loops"`
	Sessions int `yaml:"sessions"`
}

func defaultBenchConfig() benchConfig {
	return benchConfig{
		engineConfig: defaultEngineConfig(),
		K:            10,
		Loops:        10,
		Sessions:     1,
	}
}

func (c benchConfig) validate() error {
	if err := c.engineConfig.validate(); err != nil {
		return err
	}
	switch {
	case c.N == 0:
		return fmt.Errorf("n must be positive, got %d", c.N)
	case c.K <= 0:
		return fmt.Errorf("k must be positive, got %d", c.K)
	case c.Loops <= 0:
		return fmt.Errorf("loops must be positive, got %d", c.Loops)
	case c.Sessions <= 0:
		return fmt.Errorf("sessions must be positive, got %d", c.Sessions)
	}
	return nil
}

func newBenchCmd(root *rootOptions) *cobra.Command {
	var (
		configPath string
		cfg        = defaultBenchConfig()
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark resolve against a CPU full-sort baseline",
		Long: `Generate random vectors, rank them with a CPU full sort, then ingest them
into a GrainVDB context and time repeated resolves.

Flags override values from --config.

Examples:
  grainvdb bench
  grainvdb bench --n 1000000 --dim 128 --k 10
  grainvdb bench --config bench.yaml --sessions 4 --audit-variant connectivity`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadConfig(cmd, configPath, &cfg); err != nil {
				return err
			}
			if err := cfg.validate(); err != nil {
				return err
			}
			return runBench(cmd.Context(), cfg, root.logger(), cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVar(&configPath, "config", "", "YAML configuration file")
	cfg.bindFlags(f)
	f.IntVar(&cfg.K, "k", cfg.K, "results per query")
	f.IntVar(&cfg.Loops, "loops", cfg.Loops, "timed queries per session")
	f.IntVar(&cfg.Sessions, "sessions", cfg.Sessions, "independent contexts run concurrently")

	return cmd
}

type sessionReport struct {
	CPU          time.Duration
	Ingest       time.Duration
	Wall         time.Duration
	Dispatch     time.Duration
	Top1Match    bool
	EngineTop1   grainvdb.Hit
	BaselineTop1 float32
	Audit        float32
	Device       grainvdb.DeviceInfo
}

func runBench(ctx context.Context, cfg benchConfig, logger *grainvdb.Logger, w io.Writer) error {
	opts, err := cfg.options(logger)
	if err != nil {
		return err
	}
	store, name, err := cfg.artifact(ctx)
	if err != nil {
		return err
	}
	opts = append(opts, grainvdb.WithArtifactStore(store))

	fmt.Fprintf(w, "GrainVDB benchmark: %d vectors x %d dims, k=%d, %d session(s)\n", cfg.N, cfg.Dim, cfg.K, cfg.Sessions)

	reports := make([]sessionReport, cfg.Sessions)
	g, gctx := errgroup.WithContext(ctx)
	for i := range reports {
		g.Go(func() error {
			r, err := runSession(gctx, cfg, cfg.Seed+int64(i), name, opts)
			if err != nil {
				return fmt.Errorf("session %d: %w", i, err)
			}
			reports[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, r := range reports {
		printReport(w, i, cfg, r)
	}
	return nil
}

func runSession(ctx context.Context, cfg benchConfig, seed int64, name string, opts []grainvdb.Option) (sessionReport, error) {
	var r sessionReport

	rng := rand.New(rand.NewSource(seed))
	data := gaussianData(rng, cfg.N, cfg.Dim)
	probe := gaussianData(rng, 1, cfg.Dim)

	start := time.Now()
	baseline := baselineTopK(data, probe, cfg.Dim, cfg.K)
	r.CPU = time.Since(start)
	r.BaselineTop1 = baseline[0].Score

	c, err := grainvdb.Open(ctx, cfg.Dim, name, opts...)
	if err != nil {
		return r, err
	}
	defer c.Close()
	r.Device = c.Device()

	start = time.Now()
	if err := c.Ingest(ctx, data, cfg.N); err != nil {
		return r, err
	}
	r.Ingest = time.Since(start)

	// warm-up
	if _, err := c.Resolve(ctx, probe, cfg.K); err != nil {
		return r, err
	}

	var res *grainvdb.Result
	for i := 0; i < cfg.Loops; i++ {
		start = time.Now()
		res, err = c.Resolve(ctx, probe, cfg.K)
		if err != nil {
			return r, err
		}
		r.Wall += time.Since(start)
		r.Dispatch += res.Latency
	}
	r.Wall /= time.Duration(cfg.Loops)
	r.Dispatch /= time.Duration(cfg.Loops)

	r.EngineTop1 = res.Hits[0]
	r.Top1Match = res.Hits[0].Index == baseline[0].Index

	r.Audit, err = c.Audit(ctx, res.Indices())
	if err != nil {
		return r, err
	}
	return r, nil
}

// baselineTopK normalizes rows and probe in float32, scores every row and
// fully sorts the scores.
func baselineTopK(data, probe []float32, dim, k int) []grainvdb.Hit {
	n := len(data) / dim

	q := normalized(probe)
	hits := make([]grainvdb.Hit, n)
	for i := 0; i < n; i++ {
		row := normalized(data[i*dim : (i+1)*dim])
		hits[i] = grainvdb.Hit{Index: uint64(i), Score: vek32.Dot(row, q)}
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	return hits[:min(k, n)]
}

func normalized(v []float32) []float32 {
	norm := vek32.Norm(v)
	return vek32.DivNumber(v, norm+1e-9)
}

func printReport(w io.Writer, session int, cfg benchConfig, r sessionReport) {
	ms := func(d time.Duration) float64 { return float64(d.Microseconds()) / 1e3 }

	fmt.Fprintf(w, "\n[session %d] device %s\n", session, r.Device)
	fmt.Fprintf(w, "  cpu full sort:    %8.2f ms\n", ms(r.CPU))
	fmt.Fprintf(w, "  ingest:           %8.2f ms\n", ms(r.Ingest))
	fmt.Fprintf(w, "  resolve wall:     %8.2f ms (mean of %d)\n", ms(r.Wall), cfg.Loops)
	fmt.Fprintf(w, "  resolve dispatch: %8.2f ms\n", ms(r.Dispatch))
	if r.Wall > 0 {
		fmt.Fprintf(w, "  throughput:       %8.1f queries/s\n", float64(time.Second)/float64(r.Wall))
		fmt.Fprintf(w, "  speedup:          %8.1fx vs cpu\n", float64(r.CPU)/float64(r.Wall))
	}
	if r.Top1Match {
		fmt.Fprintf(w, "  top-1:            match (index %d, score %.4f)\n", r.EngineTop1.Index, r.EngineTop1.Score)
	} else {
		fmt.Fprintf(w, "  top-1:            MISMATCH (engine %d %.4f, cpu %.4f)\n", r.EngineTop1.Index, r.EngineTop1.Score, r.BaselineTop1)
	}
	fmt.Fprintf(w, "  %-18s%8.4f\n", "audit ("+cfg.AuditVariant+"):", r.Audit)
}
