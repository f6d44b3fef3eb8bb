package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hello-flask/cluster-tests/internal/scenarios"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the built-in scenarios and their tags",
		Run: func(cmd *cobra.Command, args []string) {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tTAGS\tDESCRIPTION")
			for _, s := range scenarios.All() {
				tags := s.Tags.String()
				if tags == "" {
					tags = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", s.Name, tags, s.Description)
			}
			w.Flush()
		},
	}
}
