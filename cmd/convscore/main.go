package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/convscore/internal/version"
)

// errCycleFailed makes "once" exit non-zero after the report has been printed.
var errCycleFailed = errors.New("cycle failed")

type rootOptions struct {
	env        string
	configPath string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errCycleFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "convscore",
		Short:         "Conversation scoring validator",
		Long:          "convscore splits conversations into windows, fans them out to workers and rewards the answers closest to the reference tags.",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate("{{.Version}}\n")
	root.PersistentFlags().StringVar(&opts.env, "env", "", "environment name; selects config/<env>.yaml (default $ENV or local)")
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "explicit config file path")

	root.AddCommand(
		runCommand(opts),
		onceCommand(opts),
		enqueueCommand(opts),
		versionCommand(),
	)
	return root
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
