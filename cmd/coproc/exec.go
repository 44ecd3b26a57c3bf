package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nixpare/coprocess"
)

var execCmd = &cobra.Command{
	Use:   "exec [flags] -- <command> [args...]",
	Short: "Run one command and exit with its status",
	Long: `Run a command with the standard streams of coproc and wait for it.
coproc exits with the exit code of the command, or 128 plus the signal
number if the command was terminated by a signal.

Example:
  coproc exec -- sh -c 'exit 3'
  coproc exec --dir /tmp -e KEY=value -- env`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExec,
}

var (
	execDir string
	execEnv []string
)

func init() {
	rootCmd.AddCommand(execCmd)

	execCmd.Flags().StringVar(&execDir, "dir", "", "Working directory of the command")
	execCmd.Flags().StringArrayVarP(&execEnv, "env", "e", nil, "Set an environment variable (KEY=value), can be repeated")
}

func runExec(cmd *cobra.Command, args []string) error {
	c := coprocess.NewCommand(args[0], args[1:]...)
	if execDir != "" {
		c.Dir(execDir)
	}
	for _, kv := range execEnv {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return fmt.Errorf("invalid environment variable %q, expected KEY=value", kv)
		}
		c.Env(k, v)
	}

	child, err := c.Spawn()
	if err != nil {
		return err
	}

	// the child shares our terminal and receives CTRL+C by itself:
	// coproc only has to outlive it
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	defer signal.Stop(sigs)

	status, err := child.Wait()
	if err != nil {
		return err
	}
	return exitWith(status)
}

func exitWith(status coprocess.ExitStatus) error {
	if status.Success() {
		return nil
	}
	if sig, ok := status.Signaled(); ok {
		return &exitCodeError{code: 128 + int(sig)}
	}
	return &exitCodeError{code: status.ExitCode}
}
