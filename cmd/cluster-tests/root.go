package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cluster-tests",
	Short: "Integration scenarios for a hello-flask Kubernetes deployment",
	Long: `cluster-tests verifies a deployed hello-flask application from the
outside: workload readiness, configuration wiring, and reachability
through NodePort and Ingress exposure.

Scenarios carry capability tags (manual, slow, ingress, nodeport,
educational) and are chosen with a tag expression, e.g.:

  cluster-tests run -m "not manual"
  cluster-tests run -m "ingress or nodeport"`,
	// SilenceUsage prevents printing usage on errors we handle ourselves
	// (failed scenarios, unreachable clusters).
	SilenceUsage: true,
}

// Execute runs the root command. Called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newListCmd())
}
