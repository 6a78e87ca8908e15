package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cec-protocol/cec-go/cmd/cec-log/commands"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "cec-log",
		Short:         "CEC bus capture analyzer",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newViewCommand(),
		newExportCommand(),
		newFilterCommand(),
		newStatsCommand(),
	)
	return root
}

func newViewCommand() *cobra.Command {
	var sel commands.Selection
	cmd := &cobra.Command{
		Use:   "view [flags] <file.clog>",
		Short: "View capture in human-readable format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return commands.RunView(args[0], sel, cmd.OutOrStdout())
		},
	}
	addSelectionFlags(cmd, &sel)
	return cmd
}

// addSelectionFlags registers the event selection flags shared by view
// and filter.
func addSelectionFlags(cmd *cobra.Command, sel *commands.Selection) {
	f := cmd.Flags()
	f.StringVar(&sel.RunID, "run-id", "", "filter by run ID")
	f.StringVar(&sel.Test, "test", "", "filter by test name")
	f.StringVar(&sel.Opcode, "opcode", "", "filter frames by opcode number or name (e.g. 0x90)")
	f.StringVar(&sel.Target, "target", "", "filter by remote logical address (0-15 or name, e.g. tv)")
	f.StringVar(&sel.TimeStart, "time-start", "", "filter by start time (RFC3339)")
	f.StringVar(&sel.TimeEnd, "time-end", "", "filter by end time (RFC3339)")
	f.StringVar(&sel.Layer, "layer", "", "filter by layer (bus, engine)")
	f.StringVar(&sel.Direction, "direction", "", "filter by direction (in, out)")
	f.StringVar(&sel.Category, "category", "", "filter by category (frame, verdict, state, error)")
}

func newExportCommand() *cobra.Command {
	var format, output string
	cmd := &cobra.Command{
		Use:   "export [flags] <file.clog>",
		Short: "Export capture to JSON or CSV format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return commands.RunExport(args[0], format, output)
		},
	}
	cmd.Flags().StringVar(&format, "format", "jsonl", "output format (jsonl, csv)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	return cmd
}

func newFilterCommand() *cobra.Command {
	var (
		sel    commands.Selection
		output string
	)
	cmd := &cobra.Command{
		Use:   "filter [flags] <file.clog>",
		Short: "Filter capture and write to new file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := commands.RunFilter(args[0], output, sel)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%d events written to %s\n", n, output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (required)")
	addSelectionFlags(cmd, &sel)
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func newStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <file.clog>",
		Short: "Show statistics about the capture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return commands.RunStats(args[0], cmd.OutOrStdout())
		},
	}
}
