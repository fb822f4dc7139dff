package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pkg.jsn.cam/synthgen/pkg/generators/registry"
)

var kindsCmd = &cobra.Command{
	Use:   "kinds",
	Short: "List the generator kinds",
	Args:  cobra.NoArgs,
	// Listing needs no store.
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		r := registry.New(nil)
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%-10s %s\n", "KIND", "DESCRIPTION")
		fmt.Fprintln(out, "─────────────────────────────────────────────────────────────")
		for _, k := range r.List() {
			desc, err := r.Description(k)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%-10s %s\n", k, desc)
		}
		return nil
	},
}
