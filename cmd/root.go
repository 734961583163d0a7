// Package cmd wires mdflow's outer CLI surface: the create/setup/logs
// subcommands, and the default agent-execution path that runs whenever
// the first argument doesn't match one of them.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mdflow/mdflow/internal/orchestrator"
)

// exitCode is set by whichever RunE actually executed, since cobra's own
// Execute() only reports a generic success/failure and mdflow needs to
// preserve exit codes like 127 (driver absent) and the driver's own.
var exitCode int

var rootCmd = &cobra.Command{
	Use:                "mdflow [agent.md] [args...]",
	Short:              "Run markdown files as AI agent scripts",
	Long:               longDescription,
	DisableFlagParsing: true,
	SilenceUsage:       true,
	SilenceErrors:      true,
	Args:               cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}
		home, _ := os.UserHomeDir()
		cwd, err := os.Getwd()
		if err != nil {
			exitCode = 1
			return err
		}
		exitCode = orchestrator.Run(context.Background(), orchestrator.Invocation{
			Args:     args,
			ToolName: "mdflow",
			Cwd:      cwd,
			Home:     home,
			Stdin:    os.Stdin,
			Stdout:   os.Stdout,
			Stderr:   os.Stderr,
		})
		return nil
	},
}

const longDescription = "mdflow executes markdown files as AI agent scripts: front matter " +
	"compiles to CLI arguments, @-imports and !`…` command directives expand the body, and the " +
	"result is handed to a downstream driver (claude, codex, gemini, copilot, droid, opencode)."

// Execute runs the root command and returns the process exit code.
func Execute() int {
	exitCode = 0
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if exitCode == 0 {
			exitCode = 1
		}
	}
	return exitCode
}

func init() {
	rootCmd.AddCommand(createCmd, setupCmd, logsCmd)
}
