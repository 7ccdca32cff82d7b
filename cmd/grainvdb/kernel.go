package main

import (
	"fmt"

	gojson "github.com/goccy/go-json"
	"github.com/hupe1980/grainvdb/blobstore"
	"github.com/hupe1980/grainvdb/internal/kernel"
	"github.com/spf13/cobra"
)

func newKernelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kernel",
		Short: "Build and inspect fold-kernel artifacts",
	}
	cmd.AddCommand(newKernelBuildCmd(), newKernelInspectCmd())
	return cmd
}

func newKernelBuildCmd() *cobra.Command {
	var (
		output      string
		compression string
		workgroup   int
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Write a kernel artifact",
		Long: `Write a fold-kernel artifact for the current ABI.

The output may be a local path, s3://bucket/key or minio://host:port/bucket/key.

Examples:
  grainvdb kernel build -o fold-v1.gvk
  grainvdb kernel build -o fold-v1.gvk --compress zstd --workgroup 4096
  grainvdb kernel build -o s3://artifacts/kernels/fold-v1.gvk`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := kernel.ParseCompression(compression)
			if err != nil {
				return err
			}
			if workgroup < 0 {
				return fmt.Errorf("workgroup must not be negative, got %d", workgroup)
			}

			data, err := kernel.Encode(kernel.New(workgroup), c)
			if err != nil {
				return err
			}

			loc, err := parseLocation(output)
			if err != nil {
				return err
			}
			store, err := openStore(cmd.Context(), loc)
			if err != nil {
				return err
			}
			if err := store.Put(cmd.Context(), loc.name, data); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes, %s)\n", output, len(data), c)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "artifact location")
	cmd.Flags().StringVar(&compression, "compress", "none", "framing: none, zstd or lz4")
	cmd.Flags().IntVar(&workgroup, "workgroup", kernel.DefaultWorkgroupSize, "rows per workgroup")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func newKernelInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect PATH",
		Short: "Print a kernel artifact's manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := parseLocation(args[0])
			if err != nil {
				return err
			}
			store, err := openStore(cmd.Context(), loc)
			if err != nil {
				return err
			}

			data, err := blobstore.ReadAll(cmd.Context(), store, loc.name, nil)
			if err != nil {
				return err
			}

			a, c, err := kernel.Decode(data)
			if err != nil {
				return err
			}

			out, err := gojson.MarshalIndent(a, "", "  ")
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "compression: %s\n", c)
			if verr := a.Validate(); verr != nil {
				fmt.Fprintf(w, "compatible: no (%v)\n", verr)
			} else {
				fmt.Fprintln(w, "compatible: yes")
			}
			fmt.Fprintln(w, string(out))
			return nil
		},
	}
}
