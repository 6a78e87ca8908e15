package main

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/phsym/console-slog"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Config    string
	Verbose   bool
	LogFormat string // "text" | "json"
}

var validLogFormats = []string{"text", "json"}

func newRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "cec-compliance",
		Short: "HDMI CEC compliance tests for remote devices",
		Long: `cec-compliance checks that the devices on an HDMI CEC bus implement the
CEC protocol correctly. It drives the bus through a CEC bridge and reports a
verdict for every test that applies to each remote device.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(validLogFormats, opts.LogFormat) {
				return WrapExitError(ExitCommandError, "invalid log format",
					fmt.Errorf("%q: must be one of %v", opts.LogFormat, validLogFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.Config, "config", "c", "", "TOML run configuration file")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "text", "log format (text|json)")

	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newListCommand(opts))
	cmd.AddCommand(newBridgeCommand(opts))

	return cmd
}

// newLogger builds the operational logger. Logs go to w, which is kept
// apart from the report stream.
func newLogger(w io.Writer, format string, verbose bool) *slog.Logger {
	level := &slog.LevelVar{}
	level.Set(slog.LevelWarn)
	if verbose {
		level.Set(slog.LevelDebug)
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	} else {
		handler = console.NewHandler(w, &console.HandlerOptions{Level: level})
	}
	return slog.New(handler)
}
