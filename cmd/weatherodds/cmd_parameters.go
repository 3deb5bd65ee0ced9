package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/weatherodds/weatherodds/internal/climate"
)

func newParametersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parameters",
		Short: "List supported parameters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "KEY\tTITLE\tUNIT\tPROVIDER CODE")
			for _, p := range climate.Parameters() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Key, p.Title, p.Unit, p.ProviderCode)
			}
			return w.Flush()
		},
	}
}
