package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cec-protocol/cec-go/internal/testharness/cases"
	"github.com/cec-protocol/cec-go/internal/testharness/engine"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Tags     []string
	Format   string
	ShowTags bool
}

type listedArea struct {
	Area  string       `json:"area"`
	Tags  []string     `json:"tags"`
	Tests []listedTest `json:"tests"`
}

type listedTest struct {
	Name string `json:"name"`
	Key  string `json:"key"`
}

func newListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List test areas and tests",
		Long: `List the test catalogue in run order. The key printed after each test is
the name accepted by --expect and expectation files.

Example:
  cec-compliance list
  cec-compliance list --tags deck-control --format json
  cec-compliance list --show-tags`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Tags, "tags", nil, "only list areas selected by these tags")
	cmd.Flags().StringVar(&opts.Format, "format", "text", "output format (text|json)")
	cmd.Flags().BoolVar(&opts.ShowTags, "show-tags", false, "list the tag names instead")

	return cmd
}

func runList(w io.Writer, opts *ListOptions) error {
	if opts.Format != "text" && opts.Format != "json" {
		return WrapExitError(ExitCommandError, "invalid format", fmt.Errorf("%q: must be text or json", opts.Format))
	}

	if opts.ShowTags {
		names := append([]string{"all"}, engine.TagNames()...)
		if opts.Format == "json" {
			return writeJSON(w, names)
		}
		for _, n := range names {
			fmt.Fprintln(w, n)
		}
		return nil
	}

	filter := engine.TagAll
	if len(opts.Tags) > 0 {
		t, err := engine.ParseTags(opts.Tags)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid tags", err)
		}
		filter = t
	}

	reg, err := cases.NewRegistry()
	if err != nil {
		return WrapExitError(ExitFailure, "failed to build the test catalogue", err)
	}

	var areas []listedArea
	for _, a := range reg.Areas() {
		if !a.Tags.Selects(filter) {
			continue
		}
		la := listedArea{Area: a.Name, Tags: strings.Split(a.Tags.String(), "|")}
		for _, c := range a.Cases {
			la.Tests = append(la.Tests, listedTest{Name: c.Name, Key: engine.SafeName(c.Name)})
		}
		areas = append(areas, la)
	}

	if opts.Format == "json" {
		return writeJSON(w, areas)
	}
	for _, a := range areas {
		fmt.Fprintf(w, "%s [%s]\n", a.Area, strings.Join(a.Tags, ", "))
		for _, t := range a.Tests {
			fmt.Fprintf(w, "    %s (%s)\n", t.Name, t.Key)
		}
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
