// Package cli wires the cicmesh command: argument handling, logging, and the
// run pipeline from input file to mesh output.
package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// Exit codes.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

// UsageError reports a malformed command line.
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string { return e.Msg }

// ExitCode maps a run error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var usage *UsageError
	if errors.As(err, &usage) {
		return ExitUsage
	}
	return ExitError
}

// Options holds flags for the root command.
type Options struct {
	ConfigPath string
	OutputDir  string
}

// NewRootCommand creates the root command for the cicmesh CLI.
func NewRootCommand() *cobra.Command {
	opts := &Options{}

	cmd := &cobra.Command{
		Use:   "cicmesh <input_filename> <num_threads>",
		Short: "Cloud-in-cell scatter of point snapshots onto a uniform grid",
		Long: "Reads a binary file of point snapshots, scatters each snapshot onto the grid\n" +
			"with bilinear area weighting using num_threads workers, and writes the final mesh.",
		Args: validateArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Argument errors print usage; failures past this point do not.
			cmd.SilenceUsage = true

			workers, _ := parseWorkers(args[1])
			return Run(RunParams{
				InputPath: args[0],
				Workers:   workers,
				Options:   *opts,
				Stdout:    cmd.OutOrStdout(),
				Stderr:    cmd.ErrOrStderr(),
			})
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "path to config YAML (empty = use defaults)")
	cmd.Flags().StringVar(&opts.OutputDir, "output-dir", "", "directory for output files (overrides output.dir)")

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &UsageError{Msg: err.Error()}
	})

	return cmd
}

func validateArgs(_ *cobra.Command, args []string) error {
	if len(args) != 2 {
		return &UsageError{Msg: fmt.Sprintf("expected <input_filename> <num_threads>, got %d argument(s)", len(args))}
	}
	if _, err := parseWorkers(args[1]); err != nil {
		return err
	}
	return nil
}

func parseWorkers(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, &UsageError{Msg: fmt.Sprintf("num_threads must be a positive integer, got %q", s)}
	}
	return n, nil
}
