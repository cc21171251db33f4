package main

import (
	"fmt"
	"os"

	shellquote "github.com/kballard/go-shellquote"
	"github.com/spf13/cobra"
)

var execCmd = &cobra.Command{
	Use:   "exec ID -- COMMAND [ARGS...]",
	Short: "Run a command inside a sandbox",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runExec,
}

func init() {
	rootCmd.AddCommand(execCmd)
}

func runExec(cmd *cobra.Command, args []string) error {
	// Re-quote the argv so the server-side split reproduces it exactly.
	command := shellquote.Join(args[1:]...)

	result, err := newClient().exec(cmd.Context(), args[0], command)
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(result)
	}
	fmt.Fprint(os.Stdout, result.Stdout)
	fmt.Fprint(os.Stderr, result.Stderr)
	if result.ExitCode != 0 {
		return fmt.Errorf("command exited with code %d", result.ExitCode)
	}
	return nil
}
