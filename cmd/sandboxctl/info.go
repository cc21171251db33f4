package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/docker/go-units"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info ID",
	Short: "Show a sandbox's record, live state, and usage",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	info, err := newClient().getInfo(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(info)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "id:\t%s\n", info.ID)
	fmt.Fprintf(w, "slug:\t%s\n", info.Slug)
	fmt.Fprintf(w, "name:\t%s\n", info.Name)
	if info.Description != "" {
		fmt.Fprintf(w, "description:\t%s\n", info.Description)
	}
	fmt.Fprintf(w, "owner:\t%s\n", info.UserID)
	fmt.Fprintf(w, "status:\t%s (live: %s)\n", info.Status, info.LiveStatus)
	if info.EngineState != "" {
		fmt.Fprintf(w, "engine state:\t%s\n", info.EngineState)
	}
	if info.ErrorMessage != "" {
		fmt.Fprintf(w, "error:\t%s\n", info.ErrorMessage)
	}
	fmt.Fprintf(w, "flavor:\t%s\n", info.FlavorID)
	fmt.Fprintf(w, "tier:\t%s\n", info.ResourceTierID)
	if len(info.AddonIDs) > 0 {
		fmt.Fprintf(w, "addons:\t%v\n", info.AddonIDs)
	}
	if info.ContainerName != "" {
		fmt.Fprintf(w, "container:\t%s\n", info.ContainerName)
	}
	if info.Repo != nil {
		fmt.Fprintf(w, "repo:\t%s (%s)\n", info.Repo.Name, info.Repo.CloneURL)
	}
	if info.EditorURL != "" {
		fmt.Fprintf(w, "editor:\t%s\n", info.EditorURL)
	}
	if info.OpencodeURL != "" {
		fmt.Fprintf(w, "opencode:\t%s\n", info.OpencodeURL)
	}
	if info.PreviewURL != "" {
		fmt.Fprintf(w, "preview:\t%s\n", info.PreviewURL)
	}
	if info.Stats != nil {
		fmt.Fprintf(w, "cpu:\t%.1f%%\n", info.Stats.CPUPercent)
		fmt.Fprintf(w, "memory:\t%s / %s (%.1f%%)\n",
			units.BytesSize(float64(info.Stats.MemoryUsage)),
			units.BytesSize(float64(info.Stats.MemoryLimit)),
			info.Stats.MemoryPercent)
		fmt.Fprintf(w, "network:\trx %s, tx %s\n",
			units.BytesSize(float64(info.Stats.NetworkRx)),
			units.BytesSize(float64(info.Stats.NetworkTx)))
	}
	return w.Flush()
}
