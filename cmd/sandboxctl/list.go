package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var listStatus string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List a user's sandboxes",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVar(&listStatus, "status", "", "filter by status (created, starting, running, stopping, stopped, error)")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	if flagUser == "" {
		return fmt.Errorf("--user (or SANDBOXD_USER) is required")
	}

	sandboxes, err := newClient().listSandboxes(cmd.Context(), flagUser, listStatus)
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(sandboxes)
	}
	if len(sandboxes) == 0 {
		fmt.Println("no sandboxes")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSLUG\tSTATUS\tFLAVOR\tTIER\tCREATED")
	for _, sb := range sandboxes {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			sb.ID, sb.Slug, sb.Status, sb.FlavorID, sb.ResourceTierID,
			sb.CreatedAt.Local().Format(time.DateTime))
	}
	return w.Flush()
}
