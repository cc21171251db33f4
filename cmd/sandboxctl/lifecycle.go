package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codeopen/sandboxd/pkg/api"
)

var stopTimeoutSeconds int

var startCmd = &cobra.Command{
	Use:   "start ID",
	Short: "Start a sandbox",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLifecycle(cmd, args[0], "start", nil)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop ID",
	Short: "Stop a sandbox",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLifecycle(cmd, args[0], "stop", stopBody())
	},
}

var restartCmd = &cobra.Command{
	Use:   "restart ID",
	Short: "Restart a sandbox",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLifecycle(cmd, args[0], "restart", stopBody())
	},
}

var pauseCmd = &cobra.Command{
	Use:   "pause ID",
	Short: "Pause a sandbox's container",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLifecycle(cmd, args[0], "pause", nil)
	},
}

var unpauseCmd = &cobra.Command{
	Use:   "unpause ID",
	Short: "Unpause a sandbox's container",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLifecycle(cmd, args[0], "unpause", nil)
	},
}

var touchCmd = &cobra.Command{
	Use:   "touch ID",
	Short: "Record activity on a sandbox (resets idle tracking)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return newClient().do(cmd.Context(), "POST", "/v1/sandboxes/"+args[0]+"/touch", nil, nil)
	},
}

var deleteVolumes bool

var deleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a sandbox",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newClient().deleteSandbox(cmd.Context(), args[0], deleteVolumes); err != nil {
			return err
		}
		if !flagJSON {
			fmt.Printf("deleted %s\n", args[0])
		}
		return nil
	},
}

func init() {
	stopCmd.Flags().IntVar(&stopTimeoutSeconds, "timeout", 0, "graceful stop timeout in seconds (0 = server default)")
	restartCmd.Flags().IntVar(&stopTimeoutSeconds, "timeout", 0, "graceful stop timeout in seconds (0 = server default)")
	deleteCmd.Flags().BoolVar(&deleteVolumes, "volumes", false, "also remove container volumes and the workspace repository")
	rootCmd.AddCommand(startCmd, stopCmd, restartCmd, pauseCmd, unpauseCmd, touchCmd, deleteCmd)
}

func stopBody() any {
	if stopTimeoutSeconds == 0 {
		return nil
	}
	return &api.StopSandboxRequest{TimeoutSeconds: stopTimeoutSeconds}
}

func runLifecycle(cmd *cobra.Command, id, verb string, body any) error {
	sb, err := newClient().lifecycleAction(cmd.Context(), id, verb, body)
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(sb)
	}
	fmt.Printf("%s %s status=%s\n", verb, sb.Slug, sb.Status)
	return nil
}
