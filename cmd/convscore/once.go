package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func onceCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Run a single validation cycle and print its report as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			p, err := a.buildPipeline()
			if err != nil {
				return err
			}

			rep, cycleErr := p.orchestrator.RunCycle(ctx)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(rep); err != nil {
				return fmt.Errorf("print report: %w", err)
			}
			if cycleErr != nil {
				a.logger.Error("Cycle failed", zap.Error(cycleErr))
				return errCycleFailed
			}
			return nil
		},
	}
}
