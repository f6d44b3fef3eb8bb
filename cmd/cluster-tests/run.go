package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hello-flask/cluster-tests/internal/config"
	"github.com/hello-flask/cluster-tests/internal/reporting"
	"github.com/hello-flask/cluster-tests/internal/scenarios"
	"github.com/hello-flask/cluster-tests/pkg/cluster"
	"github.com/hello-flask/cluster-tests/pkg/diagnostics"
	"github.com/hello-flask/cluster-tests/pkg/envprofile"
	"github.com/hello-flask/cluster-tests/pkg/scenario"
	"github.com/hello-flask/cluster-tests/pkg/selector"
)

func newRunCmd() *cobra.Command {
	var (
		kubeconfig string
		configPath string
		selectExpr string
		namespace  string
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the scenarios chosen by the tag expression",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if namespace != "" {
				cfg.Namespace = namespace
			}

			expr, err := selector.Parse(selectExpr)
			if err != nil {
				return fmt.Errorf("parsing selection %q: %w", selectExpr, err)
			}

			client, err := cluster.New(kubeconfig, cfg.Namespace)
			if err != nil {
				return err
			}

			profile := envprofile.Detect()
			fmt.Fprintf(cmd.OutOrStdout(), "environment: %s\n", profile)

			harness := scenario.NewHarness(client, cfg, profile)
			harness.Warnf = func(format string, args ...interface{}) {
				fmt.Fprintf(cmd.ErrOrStderr(), "warn: "+format+"\n", args...)
			}

			console := reporting.NewConsole(cmd.OutOrStdout())
			console.Verbose = verbose
			runner := scenario.NewRunner(harness, diagnostics.NewClusterCollector(client), console)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			results := runner.Run(ctx, scenarios.All(), expr)
			if !reporting.Summary(cmd.OutOrStdout(), results) {
				return fmt.Errorf("scenario run failed")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&kubeconfig, "kubeconfig", "", "path to the kubeconfig (default ~/.kube/config)")
	cmd.Flags().StringVar(&configPath, "config", "", "suite configuration file (YAML)")
	cmd.Flags().StringVarP(&selectExpr, "select", "m", "not manual", "tag expression choosing which scenarios run")
	cmd.Flags().StringVar(&namespace, "namespace", "", "override the configured namespace")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "attach diagnostics of failing scenarios to the output")
	return cmd
}
