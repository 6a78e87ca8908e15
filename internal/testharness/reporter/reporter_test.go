package reporter_test

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cec-protocol/cec-go/internal/testharness/engine"
	"github.com/cec-protocol/cec-go/internal/testharness/mock"
	"github.com/cec-protocol/cec-go/internal/testharness/reporter"
	"github.com/cec-protocol/cec-go/pkg/cec"
)

// sampleRun is a finished run: one TV that completed with a failure and a
// playback device that stopped at polling.
func sampleRun() *engine.RunResult {
	ms := time.Millisecond
	return &engine.RunResult{
		RunID:     "run-1",
		PassCount: 2,
		FailCount: 2,
		SkipCount: 1,
		WarnCount: 1,
		Duration:  1500 * ms,
		Targets: []*engine.TargetResult{
			{
				Target:   cec.AddrTV,
				State:    engine.TargetDone,
				Duration: 1200 * ms,
				Cases: []*engine.CaseResult{
					{Area: "Core", Name: "Polling Message", Raw: engine.OK, Verdict: engine.OK, Reported: true, Duration: 12 * ms},
					{
						Area: "Core", Name: "Give OSD Name", Raw: engine.Fail, Verdict: engine.Fail, Reported: true,
						Expected:          &engine.Expectation{Verdict: engine.OK},
						ExpectationFailed: true,
						Message:           "Expected 'OK', got 'FAIL'",
						Notes:             []engine.Note{{Level: engine.NoteFailure, Text: "OSD name is empty"}},
						Duration:          30 * ms,
					},
					{Area: "OSD Display", Name: "Set OSD String", Raw: engine.NotApplicable, Verdict: engine.NotApplicable},
					{
						Area: "OSD Display", Name: "Set OSD Name", Raw: engine.OKNotSupported, Verdict: engine.OKNotSupported, Reported: true,
						Warnings: 1,
						Notes: []engine.Note{
							{Level: engine.NoteWarning, Text: "Set OSD Name is not supported"},
							{Level: engine.NoteInfo, Text: "sent <Set OSD Name>"},
						},
						Duration: 25 * ms,
					},
				},
			},
			{
				Target:   cec.AddrPlayback2,
				State:    engine.TargetAbortedCritical,
				Reason:   "Core: Polling Message",
				Duration: 300 * ms,
				Cases: []*engine.CaseResult{
					{
						Area: "Core", Name: "Polling Message", Raw: engine.FailCritical, Verdict: engine.FailCritical, Reported: true,
						Notes:    []engine.Note{{Level: engine.NoteFailure, Text: "Polling of Playback Device 2 was not acked"}},
						Duration: 10 * ms,
					},
				},
			},
		},
	}
}

func TestTextReporterGolden(t *testing.T) {
	var buf bytes.Buffer
	r := reporter.NewTextReporter(&buf, cec.AddrPlayback1, false)
	r.ReportRun(sampleRun())

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "text_report", buf.Bytes())
}

func TestTextReporterVerbose(t *testing.T) {
	var buf bytes.Buffer
	r := reporter.NewTextReporter(&buf, cec.AddrPlayback1, true)
	r.ReportRun(sampleRun())

	out := buf.String()
	assert.Contains(t, out, "\t\tinfo: sent <Set OSD Name>\n")
	assert.Contains(t, out, "\t    Polling Message: OK (12ms)\n")
	assert.Contains(t, out, "Duration: 1.5s\n")
}

func TestTextReporterStreaming(t *testing.T) {
	bus := mock.NewController(cec.AddrPlayback1, 0x1000)
	require.NoError(t, bus.AddDevice(mock.NewTV(cec.AddrTV, 0)))
	t.Cleanup(func() { _ = bus.Close() })

	reg, err := engine.NewRegistry(
		engine.Area{Name: "Core", Tags: engine.TagCore, Cases: []engine.Case{
			{Name: "first", Mask: cec.MaskAll, Body: func(context.Context, *engine.Env) engine.Verdict { return engine.OK }},
			{Name: "hidden", Mask: cec.MaskAll, Body: func(context.Context, *engine.Env) engine.Verdict { return engine.NotApplicable }},
		}},
		engine.Area{Name: "Tuner", Tags: engine.TagTunerControl, Cases: []engine.Case{
			{Name: "last", Mask: cec.MaskAll, Body: func(_ context.Context, env *engine.Env) engine.Verdict {
				env.Warnf("tuner is slow")
				return engine.OK
			}},
		}},
	)
	require.NoError(t, err)

	cfg := engine.DefaultConfig()
	cfg.Timeouts.Reply = 20 * time.Millisecond
	var buf bytes.Buffer
	r := reporter.NewTextReporter(&buf, cfg.Local, false)
	r.Attach(cfg)

	e := engine.NewWithConfig(cfg, bus, reg)
	res := e.Run(context.Background(), []cec.LogicalAddress{cec.AddrTV})

	want := "testing CEC local LA 4 (Playback Device 1) to remote LA 0 (TV):\n" +
		"\tCore:\n" +
		"\t    first: OK\n" +
		"\n" +
		"\tTuner:\n" +
		"\t\twarn: tuner is slow\n" +
		"\t    last: OK\n" +
		"\n"
	assert.Equal(t, want, buf.String())

	r.ReportRun(res)
	assert.True(t, strings.HasPrefix(buf.String(), want), "streamed output is not repeated")
	assert.Contains(t, buf.String(), "Succeeded: 2, Failed: 0, Warnings: 1\n")
}

func TestJSONReporter(t *testing.T) {
	var buf bytes.Buffer
	reporter.NewJSONReporter(&buf, true).ReportRun(sampleRun())

	var jr reporter.JSONRunResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &jr))
	assert.Equal(t, "run-1", jr.RunID)
	assert.Equal(t, "1.5s", jr.Duration)
	assert.Equal(t, 4, jr.Total)
	assert.Equal(t, 1, jr.Skipped)
	require.Len(t, jr.Targets, 2)

	tv := jr.Targets[0]
	assert.Equal(t, uint8(0), tv.Address)
	assert.Equal(t, "TV", tv.Name)
	assert.Equal(t, "DONE", tv.State)
	require.Len(t, tv.Cases, 3, "suppressed cases are left out")

	osd := tv.Cases[1]
	assert.Equal(t, "FAIL", osd.Verdict)
	assert.Empty(t, osd.Raw)
	assert.Equal(t, "OK", osd.Expected)
	assert.True(t, osd.ExpectationFailed)
	assert.Equal(t, []reporter.JSONNote{{Level: "fail", Text: "OSD name is empty"}}, osd.Notes)

	pb := jr.Targets[1]
	assert.Equal(t, "ABORTED_CRITICAL", pb.State)
	assert.Equal(t, "Core: Polling Message", pb.Reason)
	assert.Equal(t, "FAIL_CRITICAL", pb.Cases[0].Verdict)
}

func TestJSONReporterExpectedFailure(t *testing.T) {
	var buf bytes.Buffer
	reporter.NewJSONReporter(&buf, false).ReportTarget(&engine.TargetResult{
		Target: cec.AddrRecord1,
		State:  engine.TargetDone,
		Cases: []*engine.CaseResult{{
			Area: "Core", Name: "Give OSD Name", Raw: engine.Fail, Verdict: engine.OKExpectedFail, Reported: true,
			Expected: &engine.Expectation{Verdict: engine.Fail},
		}},
	})
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"), "compact output is one line")

	var jt reporter.JSONTargetResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &jt))
	require.Len(t, jt.Cases, 1)
	assert.Equal(t, "OK_EXPECTED_FAIL", jt.Cases[0].Verdict)
	assert.Equal(t, "FAIL", jt.Cases[0].Raw)
}

type junitSuites struct {
	Tests    int `xml:"tests,attr"`
	Failures int `xml:"failures,attr"`
	Skipped  int `xml:"skipped,attr"`
	Suites   []struct {
		Name      string `xml:"name,attr"`
		Failures  int    `xml:"failures,attr"`
		SystemOut string `xml:"system-out"`
		Cases     []struct {
			Name      string `xml:"name,attr"`
			Classname string `xml:"classname,attr"`
			Failure   *struct {
				Message string `xml:"message,attr"`
				Body    string `xml:",chardata"`
			} `xml:"failure"`
			Skipped *struct{} `xml:"skipped"`
		} `xml:"testcase"`
	} `xml:"testsuite"`
}

func TestJUnitReporter(t *testing.T) {
	var buf bytes.Buffer
	reporter.NewJUnitReporter(&buf).ReportRun(sampleRun())

	var doc junitSuites
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, 5, doc.Tests)
	assert.Equal(t, 2, doc.Failures)
	assert.Equal(t, 1, doc.Skipped)
	require.Len(t, doc.Suites, 2)

	tv := doc.Suites[0]
	assert.Equal(t, "LA 0 (TV)", tv.Name)
	assert.Equal(t, 1, tv.Failures)
	require.Len(t, tv.Cases, 4)
	assert.Equal(t, "Core", tv.Cases[0].Classname)
	assert.Nil(t, tv.Cases[0].Failure)
	require.NotNil(t, tv.Cases[1].Failure)
	assert.Equal(t, "Expected 'OK', got 'FAIL'", tv.Cases[1].Failure.Message)
	assert.Contains(t, tv.Cases[1].Failure.Body, "fail: OSD name is empty")
	assert.NotNil(t, tv.Cases[2].Skipped)
	assert.Nil(t, tv.Cases[3].Failure)

	pb := doc.Suites[1]
	assert.Equal(t, "ABORTED_CRITICAL: Core: Polling Message", pb.SystemOut)
	require.NotNil(t, pb.Cases[0].Failure)
	assert.Equal(t, "FAIL CRITICAL", pb.Cases[0].Failure.Message)
}
