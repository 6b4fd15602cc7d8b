package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	domconv "github.com/kailas-cloud/convscore/internal/domain/conversation"
)

func enqueueCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "enqueue <file.json>...",
		Short: "Load conversations from JSON files into the storage queue",
		Long: `Each file holds one conversation object or an array of them:
  {"guid": "...", "participants": [{"id": 0, "name": "..."}], "lines": [[0, "text"], ...]}`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			var total int
			for _, path := range args {
				data, err := os.ReadFile(filepath.Clean(path))
				if err != nil {
					return fmt.Errorf("read %s: %w", path, err)
				}
				convs, err := domconv.DecodeMany(data)
				if err != nil {
					return fmt.Errorf("parse %s: %w", path, err)
				}
				for _, c := range convs {
					if err := a.conversations.Enqueue(ctx, c); err != nil {
						return err //nolint:wrapcheck // repository errors carry the guid
					}
				}
				total += len(convs)
				a.logger.Info("Enqueued conversations", zap.String("file", path), zap.Int("count", len(convs)))
			}

			queued, err := a.conversations.QueueLen(ctx)
			if err != nil {
				return err //nolint:wrapcheck // wrapped by repository
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enqueued %d conversations, %d waiting\n", total, queued)
			return nil
		},
	}
}
