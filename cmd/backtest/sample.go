package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"quant-backtest-lab/internal/feed"
)

func newSampleCmd(a *app) *cobra.Command {
	opts := feed.DefaultSampleOptions()
	var out string

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Write a deterministic synthetic prediction CSV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rows := feed.GenerateSample(opts)

			if dir := filepath.Dir(out); dir != "." {
				if err := ensureDir(dir); err != nil {
					return err
				}
			}
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create %s: %w", out, err)
			}
			if err := feed.WritePredictions(f, rows); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}

			a.logger.Info().
				Str("path", out).
				Int("assets", opts.NumAssets).
				Int("days", opts.Days).
				Uint64("seed", opts.Seed).
				Int("rows", len(rows)).
				Msg("sample written")
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&out, "out", "data/predictions.csv", "Output CSV path")
	fl.IntVar(&opts.NumAssets, "assets", opts.NumAssets, "Number of assets")
	fl.IntVar(&opts.Days, "days", opts.Days, "Number of business days")
	fl.Uint64Var(&opts.Seed, "seed", opts.Seed, "Random seed")
	return cmd
}
