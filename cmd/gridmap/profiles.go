package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-gridmap/pkg/ingest"
)

func newProfilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List the built-in schema profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range ingest.Names() {
				p, err := ingest.Lookup(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-10s distributor=%-8s sites.id=%s shared-units=%t\n",
					p.Name, p.Distributor, p.Sites["id"], p.SharedUnits)
			}
			return nil
		},
	}
}
