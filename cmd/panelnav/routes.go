package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/panelnav/panelnav/pkg/dashboard"
	"github.com/panelnav/panelnav/pkg/router"
	"github.com/panelnav/panelnav/pkg/routepath"
	"github.com/panelnav/panelnav/pkg/serverroute"
)

func routesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "List the route tables in evaluation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PATTERN\tVIEW\tREQUIRES\tNAV")
			for _, t := range []*router.Table{dashboard.Routes, serverroute.Routes} {
				for _, r := range t.Routes() {
					pattern := routepath.Join(t.Base(), r.Pattern)
					if !r.Exact && r.Pattern != "*" {
						pattern += " (prefix)"
					}
					label := r.Label
					if label == "" {
						label = "-"
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", pattern, r.View, r.Require, label)
				}
			}
			return w.Flush()
		},
	}
}
