package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// rootCmd builds the polysynergy-node-runner CLI. "serve" runs the full
// HTTP API (the default when no subcommand is given, for drop-in
// compatibility with running the binary directly); "worker" runs only the
// background workers (outbox relay, cleanup, retention sweep) for
// deployments that split the API and worker processes; "migrate" applies
// pending database migrations and exits.
func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "polysynergy-node-runner",
		Short: "DuraGraph-based workflow execution server",
		RunE:  runServe,
	}

	root.AddCommand(serveCmd())
	root.AddCommand(workerCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(versionCmd())

	return root
}

// getEnvOr returns the named environment variable, or fallback if unset.
func getEnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
