package main

import (
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"gridtruth/domain/core"
	domainTruth "gridtruth/domain/truth"
	"gridtruth/internal"
	"gridtruth/internal/canonical"
	"gridtruth/internal/config"
	"gridtruth/internal/errors"
	"gridtruth/internal/pipeline"
)

// options shared by every subcommand
type rootOptions struct {
	configPath  string
	envFile     string
	generatedAt string

	pipeline *pipeline.Pipeline
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "gridtruth",
		Short:         "Deterministic energy analytics: truth snapshot, verifier, claims policy, scenario lab",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup()
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (yaml, json or toml); defaults plus GRIDTRUTH_* env when empty")
	rootCmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "Dotenv file loaded before the config")
	rootCmd.PersistentFlags().StringVar(&opts.generatedAt, "generated-at", "", "RFC3339 generation time overriding the bundle's generatedAt")

	rootCmd.AddCommand(
		newTruthCmd(opts),
		newVerifyCmd(opts),
		newLabCmd(opts),
		newRunCmd(opts),
	)
	return rootCmd
}

func (o *rootOptions) setup() error {
	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(errors.ConfigInvalid(err.Error()), "load %s", o.envFile)
		}
	}
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	internal.SetDefaultLevel(cfg.LogLevel())
	p, err := pipeline.New(cfg)
	if err != nil {
		return err
	}
	o.pipeline = p
	return nil
}

// loadBundles reads every file (or stdin for "-") and applies --generated-at.
func (o *rootOptions) loadBundles(stdin io.Reader, paths []string) ([]pipeline.Bundle, error) {
	var override core.Timestamp
	if o.generatedAt != "" {
		ts, err := core.ParseTimestamp(o.generatedAt)
		if err != nil {
			return nil, errors.Wrap(err, "--generated-at")
		}
		override = ts
	}

	var out []pipeline.Bundle
	for _, path := range paths {
		var data []byte
		var err error
		if path == "-" {
			data, err = io.ReadAll(stdin)
		} else {
			data, err = os.ReadFile(path)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "read %s", path)
		}
		bundles, err := pipeline.DecodeBundles(data)
		if err != nil {
			return nil, errors.Wrapf(err, "decode %s", path)
		}
		out = append(out, bundles...)
	}
	if !override.IsZero() {
		for i := range out {
			out[i].GeneratedAt = override
		}
	}
	return out, nil
}

func (o *rootOptions) single(cmd *cobra.Command, path string) (pipeline.Bundle, error) {
	bundles, err := o.loadBundles(cmd.InOrStdin(), []string{path})
	if err != nil {
		return pipeline.Bundle{}, err
	}
	if len(bundles) != 1 {
		return pipeline.Bundle{}, errors.InvalidInput(fmt.Sprintf("%s holds %d bundles; this command takes exactly one", path, len(bundles)))
	}
	return bundles[0], nil
}

func writeCanonical(w io.Writer, v any) error {
	b, err := canonical.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "encode output")
	}
	_, err = fmt.Fprintf(w, "%s\n", b)
	return err
}

func newTruthCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "truth [bundle.json|-]",
		Short: "Build the truth snapshot of one bundle",
		Long: `Build the truth snapshot (baseline, residual map, changepoints, anomaly ledger,
confidence tier) of one bundle and print it as canonical JSON.

Example: gridtruth truth site.json --generated-at 2024-03-01T12:00:00Z`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := opts.single(cmd, args[0])
			if err != nil {
				return err
			}
			snap, err := opts.pipeline.Truth(b)
			if err != nil {
				return err
			}
			return writeCanonical(cmd.OutOrStdout(), snap)
		},
	}
}

func newVerifyCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify [bundle.json|-]",
		Short: "Run the verifier check battery over one bundle's analysis and pack",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := opts.single(cmd, args[0])
			if err != nil {
				return err
			}
			var snap *domainTruth.Snapshot
			if b.Series != nil {
				if snap, err = opts.pipeline.Truth(b); err != nil {
					return err
				}
			}
			res, _, err := opts.pipeline.Verify(b, snap)
			if err != nil {
				return err
			}
			return writeCanonical(cmd.OutOrStdout(), res)
		},
	}
}

func newLabCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lab [bundle.json|-]",
		Short: "Run the scenario lab for one bundle",
		Long: `Run the full chain for one bundle and print only the scenario lab result:
scenarios, Pareto frontier, blocked summary and warnings.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := opts.single(cmd, args[0])
			if err != nil {
				return err
			}
			r, err := opts.pipeline.Run(cmd.Context(), b)
			if err != nil {
				return err
			}
			return writeCanonical(cmd.OutOrStdout(), r.Lab)
		},
	}
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run [bundle.json|-]...",
		Short: "Run the full chain over one or more bundles",
		Long: `Run truth, verifier, claims policy and scenario lab over every bundle. Files may
hold one bundle or an array of bundles; independent bundles run concurrently and
reports are printed in input order as a canonical JSON array.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bundles, err := opts.loadBundles(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			reports, err := opts.pipeline.RunBatch(cmd.Context(), bundles)
			if err != nil {
				return err
			}
			return writeCanonical(cmd.OutOrStdout(), reports)
		},
	}
}
