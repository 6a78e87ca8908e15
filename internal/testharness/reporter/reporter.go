// Package reporter provides test result formatting and output.
package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/cec-protocol/cec-go/internal/testharness/engine"
	"github.com/cec-protocol/cec-go/pkg/cec"
)

// Reporter formats and outputs test results.
type Reporter interface {
	// ReportRun reports results for a whole run.
	ReportRun(result *engine.RunResult)

	// ReportTarget reports results for a single remote device.
	ReportTarget(result *engine.TargetResult)
}

// TextReporter outputs human-readable text reports.
type TextReporter struct {
	writer  io.Writer
	local   cec.LogicalAddress
	verbose bool

	mu       sync.Mutex
	streamed bool
	areaOpen bool
}

// NewTextReporter creates a new text reporter for a run driven from local.
func NewTextReporter(w io.Writer, local cec.LogicalAddress, verbose bool) *TextReporter {
	return &TextReporter{
		writer:  w,
		local:   local,
		verbose: verbose,
	}
}

// Attach installs engine hooks so results are printed while the run is in
// progress. ReportRun then only prints the summary.
func (r *TextReporter) Attach(cfg *engine.EngineConfig) {
	r.streamed = true
	cfg.OnTargetState = r.targetState
	cfg.OnAreaStart = r.areaStart
	cfg.OnCaseComplete = r.caseComplete
}

func (r *TextReporter) targetState(target cec.LogicalAddress, from, to engine.TargetState, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch to {
	case engine.TargetEnsuringPowered:
		r.header(target)
	case engine.TargetSkippedStandby, engine.TargetAbortedCritical, engine.TargetDone:
		r.closeArea()
		r.footer(to, reason)
	}
}

func (r *TextReporter) areaStart(_ cec.LogicalAddress, area string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.openArea(area)
}

func (r *TextReporter) caseComplete(cr *engine.CaseResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writeCase(cr)
}

func (r *TextReporter) header(target cec.LogicalAddress) {
	fmt.Fprintf(r.writer, "testing CEC local LA %d (%s) to remote LA %d (%s):\n",
		r.local, r.local, target, target)
}

func (r *TextReporter) footer(state engine.TargetState, reason string) {
	switch state {
	case engine.TargetSkippedStandby:
		fmt.Fprintf(r.writer, "\tSkipped: %s\n\n", reason)
	case engine.TargetAbortedCritical:
		fmt.Fprintf(r.writer, "\tAborted after critical failure in %s\n\n", reason)
	}
}

func (r *TextReporter) openArea(area string) {
	r.closeArea()
	fmt.Fprintf(r.writer, "\t%s:\n", area)
	r.areaOpen = true
}

func (r *TextReporter) closeArea() {
	if r.areaOpen {
		fmt.Fprintln(r.writer)
		r.areaOpen = false
	}
}

func (r *TextReporter) writeCase(cr *engine.CaseResult) {
	for _, n := range cr.Notes {
		if n.Level == engine.NoteInfo && !r.verbose {
			continue
		}
		fmt.Fprintf(r.writer, "\t\t%s: %s\n", n.Level, n.Text)
	}
	if !cr.Reported {
		return
	}
	if cr.ExpectationFailed {
		fmt.Fprintf(r.writer, "\t    %s: %s (%s)\n", cr.Name, engine.Fail, cr.Message)
		return
	}
	if r.verbose {
		fmt.Fprintf(r.writer, "\t    %s: %s (%s)\n", cr.Name, cr.Verdict, cr.Duration.Round(time.Millisecond))
		return
	}
	fmt.Fprintf(r.writer, "\t    %s: %s\n", cr.Name, cr.Verdict)
}

// ReportTarget reports one target's results in text format.
func (r *TextReporter) ReportTarget(result *engine.TargetResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.header(result.Target)
	area := ""
	for _, cr := range result.Cases {
		if cr.Area != area || !r.areaOpen {
			r.openArea(cr.Area)
			area = cr.Area
		}
		r.writeCase(cr)
	}
	r.closeArea()
	r.footer(result.State, result.Reason)
}

// ReportRun reports run results in text format.
func (r *TextReporter) ReportRun(result *engine.RunResult) {
	if !r.streamed {
		for _, tr := range result.Targets {
			r.ReportTarget(tr)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.writer, "Total for run %s: %d, Succeeded: %d, Failed: %d, Warnings: %d\n",
		result.RunID,
		result.PassCount+result.FailCount,
		result.PassCount,
		result.FailCount,
		result.WarnCount)
	if r.verbose {
		fmt.Fprintf(r.writer, "Duration: %s\n", result.Duration.Round(time.Millisecond))
	}
}

// JSONReporter outputs JSON-formatted reports.
type JSONReporter struct {
	writer io.Writer
	pretty bool
}

// NewJSONReporter creates a new JSON reporter.
func NewJSONReporter(w io.Writer, pretty bool) *JSONReporter {
	return &JSONReporter{
		writer: w,
		pretty: pretty,
	}
}

// JSONRunResult is the JSON representation of run results.
type JSONRunResult struct {
	RunID    string             `json:"run_id"`
	Duration string             `json:"duration"`
	Total    int                `json:"total"`
	Passed   int                `json:"passed"`
	Failed   int                `json:"failed"`
	Skipped  int                `json:"skipped"`
	Warnings int                `json:"warnings"`
	Targets  []JSONTargetResult `json:"targets"`
}

// JSONTargetResult is the JSON representation of one target's results.
type JSONTargetResult struct {
	Address  uint8            `json:"address"`
	Name     string           `json:"name"`
	State    string           `json:"state"`
	Reason   string           `json:"reason,omitempty"`
	Duration string           `json:"duration"`
	Cases    []JSONCaseResult `json:"cases"`
}

// JSONCaseResult is the JSON representation of a case result.
type JSONCaseResult struct {
	Area              string     `json:"area"`
	Name              string     `json:"name"`
	Verdict           string     `json:"verdict"`
	Raw               string     `json:"raw,omitempty"`
	Expected          string     `json:"expected,omitempty"`
	ExpectationFailed bool       `json:"expectation_failed,omitempty"`
	Message           string     `json:"message,omitempty"`
	Warnings          int        `json:"warnings,omitempty"`
	Duration          string     `json:"duration"`
	Notes             []JSONNote `json:"notes,omitempty"`
}

// JSONNote is the JSON representation of a case diagnostic.
type JSONNote struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

// ReportRun reports run results in JSON format.
func (r *JSONReporter) ReportRun(result *engine.RunResult) {
	jr := JSONRunResult{
		RunID:    result.RunID,
		Duration: result.Duration.Round(time.Millisecond).String(),
		Total:    result.PassCount + result.FailCount,
		Passed:   result.PassCount,
		Failed:   result.FailCount,
		Skipped:  result.SkipCount,
		Warnings: result.WarnCount,
		Targets:  make([]JSONTargetResult, 0, len(result.Targets)),
	}
	for _, tr := range result.Targets {
		jr.Targets = append(jr.Targets, targetToJSON(tr))
	}
	r.writeJSON(jr)
}

// ReportTarget reports a single target in JSON format.
func (r *JSONReporter) ReportTarget(result *engine.TargetResult) {
	r.writeJSON(targetToJSON(result))
}

func targetToJSON(result *engine.TargetResult) JSONTargetResult {
	jt := JSONTargetResult{
		Address:  uint8(result.Target),
		Name:     result.Target.String(),
		State:    result.State.String(),
		Reason:   result.Reason,
		Duration: result.Duration.Round(time.Millisecond).String(),
		Cases:    make([]JSONCaseResult, 0, len(result.Cases)),
	}
	for _, cr := range result.Cases {
		if !cr.Reported {
			continue
		}
		jc := JSONCaseResult{
			Area:              cr.Area,
			Name:              cr.Name,
			Verdict:           cr.Verdict.Name(),
			ExpectationFailed: cr.ExpectationFailed,
			Message:           cr.Message,
			Warnings:          cr.Warnings,
			Duration:          cr.Duration.Round(time.Millisecond).String(),
		}
		if cr.Raw != cr.Verdict {
			jc.Raw = cr.Raw.Name()
		}
		if cr.Expected != nil {
			jc.Expected = cr.Expected.Verdict.Name()
		}
		for _, n := range cr.Notes {
			jc.Notes = append(jc.Notes, JSONNote{Level: n.Level.String(), Text: n.Text})
		}
		jt.Cases = append(jt.Cases, jc)
	}
	return jt
}

func (r *JSONReporter) writeJSON(v any) {
	var data []byte
	var err error

	if r.pretty {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		fmt.Fprintf(r.writer, `{"error": "failed to marshal: %s"}`, err)
		return
	}

	fmt.Fprintln(r.writer, string(data))
}

// JUnitReporter outputs JUnit XML format for CI integration. Each target
// becomes a testsuite; each area is used as the test classname.
type JUnitReporter struct {
	writer io.Writer
}

// NewJUnitReporter creates a new JUnit reporter.
func NewJUnitReporter(w io.Writer) *JUnitReporter {
	return &JUnitReporter{writer: w}
}

// ReportRun reports run results in JUnit XML format.
func (r *JUnitReporter) ReportRun(result *engine.RunResult) {
	var b strings.Builder

	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	b.WriteString("\n")
	fmt.Fprintf(&b, `<testsuites name="%s" tests="%d" failures="%d" skipped="%d" time="%.3f">`,
		escapeXML(result.RunID),
		result.PassCount+result.FailCount+result.SkipCount,
		result.FailCount,
		result.SkipCount,
		result.Duration.Seconds())
	b.WriteString("\n")
	for _, tr := range result.Targets {
		writeSuite(&b, tr)
	}
	b.WriteString("</testsuites>\n")

	fmt.Fprint(r.writer, b.String())
}

// ReportTarget reports a single target in JUnit format (wraps in a
// minimal run).
func (r *JUnitReporter) ReportTarget(result *engine.TargetResult) {
	run := &engine.RunResult{Targets: []*engine.TargetResult{result}, Duration: result.Duration}
	for _, c := range result.Cases {
		switch {
		case !c.Reported:
			run.SkipCount++
		case c.Failed():
			run.FailCount++
		default:
			run.PassCount++
		}
	}
	r.ReportRun(run)
}

func writeSuite(b *strings.Builder, tr *engine.TargetResult) {
	var failures, skipped int
	for _, cr := range tr.Cases {
		switch {
		case !cr.Reported:
			skipped++
		case cr.Failed():
			failures++
		}
	}
	name := fmt.Sprintf("LA %d (%s)", tr.Target, tr.Target)
	fmt.Fprintf(b, `  <testsuite name="%s" tests="%d" failures="%d" skipped="%d" time="%.3f">`,
		escapeXML(name), len(tr.Cases), failures, skipped, tr.Duration.Seconds())
	b.WriteString("\n")
	if tr.Reason != "" {
		fmt.Fprintf(b, "    <system-out>%s: %s</system-out>\n", tr.State, escapeXML(tr.Reason))
	}

	for _, cr := range tr.Cases {
		fmt.Fprintf(b, `    <testcase name="%s" classname="%s" time="%.3f">`,
			escapeXML(cr.Name),
			escapeXML(cr.Area),
			cr.Duration.Seconds())
		b.WriteString("\n")

		switch {
		case !cr.Reported:
			fmt.Fprintf(b, `      <skipped message="%s"/>`, engine.NotApplicable)
			b.WriteString("\n")
		case cr.Failed():
			msg := cr.Verdict.String()
			if cr.ExpectationFailed {
				msg = cr.Message
			}
			fmt.Fprintf(b, `      <failure message="%s">`, escapeXML(msg))
			b.WriteString("\n")

			b.WriteString("        <![CDATA[")
			for _, n := range cr.Notes {
				if n.Level != engine.NoteInfo {
					fmt.Fprintf(b, "%s: %s\n", n.Level, n.Text)
				}
			}
			b.WriteString("]]>\n")
			b.WriteString("      </failure>\n")
		}

		b.WriteString("    </testcase>\n")
	}
	b.WriteString("  </testsuite>\n")
}

func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	s = strings.ReplaceAll(s, "'", "&apos;")
	return s
}
