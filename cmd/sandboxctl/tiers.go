package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/codeopen/sandboxd/pkg/policy"
)

var tiersCmd = &cobra.Command{
	Use:   "tiers",
	Short: "Show the available resource tiers and flavors",
	Args:  cobra.NoArgs,
	RunE:  runTiers,
}

func init() {
	rootCmd.AddCommand(tiersCmd)
}

func runTiers(cmd *cobra.Command, args []string) error {
	if flagJSON {
		out := map[string]any{"tiers": map[string]policy.Allocation{}, "flavors": policy.Flavors()}
		tiers := out["tiers"].(map[string]policy.Allocation)
		for _, id := range policy.Tiers() {
			tiers[id] = policy.ResolveTier(id)
		}
		return printJSON(out)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIER\tCPUS\tMEMORY\tPIDS")
	for _, id := range policy.Tiers() {
		a := policy.ResolveTier(id)
		def := ""
		if id == policy.DefaultTierID {
			def = " (default)"
		}
		fmt.Fprintf(w, "%s%s\t%s\t%s\t%d\n", id, def, a.CPUs, a.Memory, a.PidsLimit)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("flavors:")
	for _, id := range policy.Flavors() {
		if id == policy.DefaultFlavorID {
			fmt.Printf("  %s (default)\n", id)
			continue
		}
		fmt.Printf("  %s\n", id)
	}
	return nil
}
