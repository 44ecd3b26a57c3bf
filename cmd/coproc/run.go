package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nixpare/coprocess/internal/jobs"
)

var runCmd = &cobra.Command{
	Use:   "run -f <jobs.yaml>",
	Short: "Run every job of a job file concurrently",
	Long: `Run all the jobs described in a YAML job file at the same time and
print one line per job once all of them have finished. Captured output
is printed below the line of its job.

coproc exits with 1 if any job failed to start, exited unsuccessfully
or timed out.

Example job file:
  jobs:
    - name: build
      command: "go build ./..."
      timeout: 5m
    - name: greet
      command: "sh -c 'echo hello $WHO'"
      env: {WHO: world}
      capture: true`,
	Args: cobra.NoArgs,
	RunE: runJobs,
}

var (
	runFile  string
	runGrace time.Duration
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFile, "file", "f", "jobs.yaml", "Job file path")
	runCmd.Flags().DurationVar(&runGrace, "grace", jobs.DefaultGrace, "Time given to a stopped job to handle the interrupt before it is killed")
}

func runJobs(cmd *cobra.Command, args []string) error {
	f, err := jobs.Load(runFile)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := &jobs.Runner{Grace: runGrace}
	results := runner.Run(ctx, f.Jobs)

	failed := printResults(cmd.OutOrStdout(), results)
	if failed > 0 {
		return &exitCodeError{code: 1}
	}
	return nil
}

func printResults(w io.Writer, results []jobs.Result) (failed int) {
	for _, res := range results {
		state := "ok"
		switch {
		case res.Err != nil:
			state = "error: " + res.Err.Error()
		case res.TimedOut:
			state = "timed out (" + res.Status.String() + ")"
		case !res.Status.Success():
			state = "failed (" + res.Status.String() + ")"
		}
		if res.Failed() {
			failed++
		}

		fmt.Fprintf(w, "%-20s %-8s %s\n", res.Name, res.Duration.Round(time.Millisecond), state)
		writeIndented(w, "stdout", res.Stdout)
		writeIndented(w, "stderr", res.Stderr)
	}
	return failed
}

func writeIndented(w io.Writer, label string, b []byte) {
	text := strings.TrimRight(string(b), "\n")
	if text == "" {
		return
	}
	for _, line := range strings.Split(text, "\n") {
		fmt.Fprintf(w, "  %s | %s\n", label, line)
	}
}
