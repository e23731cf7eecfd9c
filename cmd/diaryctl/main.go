package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata" // IANA zones for dispatch on hosts without zoneinfo

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "diaryctl",
		Short:        "Operate the diary API",
		Long:         "Issue development tokens, run dispatch passes, apply migrations and manage personal access tokens.",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newTokenCmd(),
		newDispatchCmd(),
		newMigrateCmd(),
		newPATCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
