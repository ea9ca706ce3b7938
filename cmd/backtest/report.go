package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"quant-backtest-lab/internal/config"
)

func newReportCmd(a *app) *cobra.Command {
	var (
		out     string
		batchID string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Regenerate the comparison report from stored runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.Storage.Backend == config.BackendMemory {
				return fmt.Errorf("report reads stored runs; set storage.backend to %s", config.BackendDatabase)
			}
			if cmd.Flags().Changed("out") {
				a.cfg.Output.Dir = out
			}
			if err := ensureDir(a.cfg.Output.Dir); err != nil {
				return err
			}

			ctx := cmd.Context()
			s, err := a.openStores(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			return a.writeReport(ctx, s, a.cfg.Output.Dir, batchID)
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "Output directory (defaults to output.dir)")
	cmd.Flags().StringVar(&batchID, "batch", "", "Restrict to one sweep batch")
	return cmd
}
