package reporter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"padscan/internal/core/model"
)

func init() {
	pterm.DisableStyling()
}

func fullScan() []model.Event {
	return []model.Event{
		model.ScanStarted{Target: "https://pad.example.org/p/x", ProbeID: "ab12cd34"},
		model.InstanceLocated{Location: model.InstanceLocation{BaseURL: "https://pad.example.org/", MountPrefix: "p/"}},
		model.RevisionFound{Revision: "a1b2c3d"},
		model.RevisionResolved{Info: model.RevisionInfo{Revision: "a1b2c3d", Version: "1.8.7", CommitDate: time.Date(2021, 1, 2, 3, 4, 5, 0, time.UTC)}},
		model.APIVersionFound{APIVersion: "1.2.14", Known: true, Range: model.VersionRange{Min: "1.8.0", Max: "1.8.7"}},
		model.AssetFingerprinted{Path: "static/js/pad.js", Hash: "d41d8cd98f00b204e9800998ecf8427e", Known: true, Range: model.VersionRange{Min: "1.8.5", Max: "1.8.7"}},
		model.AssetFingerprinted{Path: "static/js/ace.js"},
		model.PadStarted{ProtocolMajor: 2, Transport: model.TransportPolling},
		model.PadAccessible{Session: model.HandshakeSession{SessionID: "sid1", ProtocolMajor: 2}, Version: "1.8.7"},
		model.PluginsFound{Plugins: model.PluginManifest{"ep_markdown": "0.1.0", "ep_align": "0.3.1"}},
		model.HealthReported{Status: "pass", ReleaseID: "1.8.7"},
		model.VersionResolved{Verdict: model.VersionVerdict{Min: "1.8.7", Max: "1.8.7"}},
		model.StatsReported{Stats: model.ServerStats{WritesFailed: 2, StartTime: time.Unix(1600000000, 0)}},
		model.AdminChecked{Result: model.AdminResult{Strategy: "status", User: "admin", Password: "admin", Accessible: true}},
		model.AdminChecked{Result: model.AdminResult{Strategy: "status", User: "user", Password: "changeme1"}},
		model.ProbeFailed{Probe: model.ProbeStats, Err: errors.New("boom")},
		model.ScanFinished{Target: "https://pad.example.org/p/x"},
	}
}

func replay(sink model.Sink, events []model.Event) {
	for _, e := range events {
		sink.Emit(e)
	}
}

func TestReportSink(t *testing.T) {
	s := NewReportSink()
	replay(s, fullScan())
	r := s.Report()

	assert.Equal(t, "https://pad.example.org/p/x", r.Target)
	assert.Equal(t, "ab12cd34", r.ProbeID)
	require.NotNil(t, r.Location)
	assert.Equal(t, "p/", r.Location.MountPrefix)
	assert.Equal(t, "1.2.14", r.APIVersion)
	require.NotNil(t, r.Revision)
	assert.Equal(t, "1.8.7", r.Revision.Version)

	require.Len(t, r.Assets, 2)
	require.NotNil(t, r.Assets[0].Range)
	assert.Nil(t, r.Assets[1].Range)

	assert.True(t, r.Pad.Accessible)
	assert.Equal(t, 2, r.Pad.ProtocolMajor)
	assert.Equal(t, "polling", r.Pad.Transport)
	assert.Len(t, r.Plugins, 2)
	assert.Equal(t, "pass", r.Health)

	require.NotNil(t, r.Verdict)
	assert.True(t, r.Verdict.IsExact())
	require.NotNil(t, r.Stats)
	assert.EqualValues(t, 2, r.Stats.WritesFailed)
	assert.Len(t, r.Admin, 2)
	assert.Equal(t, []string{"stats: boom"}, r.Errors)
	assert.Empty(t, r.Fatal)
	assert.False(t, r.FinishedAt.Before(r.StartedAt))
}

func TestReportSink_Fatal(t *testing.T) {
	s := NewReportSink()
	replay(s, []model.Event{
		model.ScanStarted{Target: "https://nope.example.org"},
		model.ProbeFailed{Probe: model.ProbeLocate, Err: model.ErrInstanceNotFound},
		model.ScanFinished{Target: "https://nope.example.org", Err: model.ErrInstanceNotFound},
	})
	r := s.Report()
	assert.Nil(t, r.Verdict)
	assert.Equal(t, model.ErrInstanceNotFound.Error(), r.Fatal)
	assert.Contains(t, r.Rows()[0][9], "no etherpad instance found")
}

func TestReportSink_ReportIsCopy(t *testing.T) {
	s := NewReportSink()
	s.Emit(model.AdminChecked{Result: model.AdminResult{User: "admin"}})
	r := s.Report()
	r.Admin[0].User = "changed"
	assert.Equal(t, "admin", s.Report().Admin[0].User)
}

func TestBufferedSink(t *testing.T) {
	b := NewBufferedSink()
	events := fullScan()
	replay(b, events)
	assert.Equal(t, len(events), b.Len())

	var got []model.Event
	b.Flush(model.SinkFunc(func(e model.Event) { got = append(got, e) }))
	assert.Equal(t, events, got)
	assert.Zero(t, b.Len())
}

func TestMultiSink(t *testing.T) {
	var n1, n2 int
	m := MultiSink{
		model.SinkFunc(func(model.Event) { n1++ }),
		nil,
		model.SinkFunc(func(model.Event) { n2++ }),
	}
	replay(m, fullScan()[:3])
	assert.Equal(t, 3, n1)
	assert.Equal(t, 3, n2)
}

func TestConsoleSink_FullScan(t *testing.T) {
	var buf bytes.Buffer
	replay(NewConsoleSink(&buf), fullScan())
	out := buf.String()

	for _, want := range []string{
		"Revision in server header: a1b2c3d",
		"commit date: 2021-01-02T03:04:05Z",
		"api version: 1.2.14",
		"Starting scan of a pad...",
		"Pads are publicly accessible",
		"Package version: 1.8.7",
		"Plugins:",
		"ep_align@0.3.1",
		"ep_markdown@0.1.0",
		"Server is healthy",
		"You have an old version of etherpad! Please update to 2.0.0 or newer!",
		"Version is 1.8.7",
		"Server running since: 2020-09-13T12:26:40Z",
		"Database writes failed: 2",
		"Starting scan of admin area...",
		"Admin area is accessible with admin / admin",
		"Admin area is not accessible with user / changeme1",
		"boom",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "Database reads failed")
	assert.Equal(t, 1, strings.Count(out, "Starting scan of admin area..."))
	assert.Less(t, strings.Index(out, "ep_align"), strings.Index(out, "ep_markdown"))
}

func TestConsoleSink_Verdicts(t *testing.T) {
	tests := []struct {
		verdict model.VersionVerdict
		want    string
		old     bool
	}{
		{model.VersionVerdict{}, "Could not determine version", false},
		{model.VersionVerdict{Min: "1.9.0"}, "Version greater than 1.9.0", false},
		{model.VersionVerdict{Max: "1.8.18"}, "Version less than 1.8.18", true},
		{model.VersionVerdict{Min: "2.0.0", Max: "2.0.0"}, "Version is 2.0.0", false},
		{model.VersionVerdict{Min: "1.8.5", Max: "1.8.7"}, "Version between 1.8.5 and 1.8.7", true},
		{model.VersionVerdict{Min: "2.2.7", Max: "2.1.0"}, "inconsistent: 2.2.7 > 2.1.0", false},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		NewConsoleSink(&buf).Emit(model.VersionResolved{Verdict: tt.verdict})
		out := buf.String()
		assert.Contains(t, out, tt.want, tt.verdict)
		assert.Equal(t, tt.old, strings.Contains(out, "old version"), tt.verdict)
	}
}

func TestConsoleSink_NoPluginsAndUnhealthy(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf)
	sink.Emit(model.PluginsFound{Plugins: model.PluginManifest{}})
	sink.Emit(model.HealthReported{Status: "warn", ReleaseID: "2.0.0"})
	out := buf.String()
	assert.Contains(t, out, "No plugins found")
	assert.Contains(t, out, "Health: status=warn releaseId=2.0.0")
	assert.NotContains(t, out, "Server is healthy")
}

func TestConsoleSink_Undetermined(t *testing.T) {
	var buf bytes.Buffer
	NewConsoleSink(&buf).Emit(model.ScanFinished{Err: model.ErrUndeterminedVersion})
	assert.Contains(t, buf.String(), "Could not determine version")
}

func sampleResults() []*model.TaskResult {
	s := NewReportSink()
	replay(s, fullScan())
	return []*model.TaskResult{
		{TaskID: "t1", Target: "https://pad.example.org/p/x", Status: model.TaskStatusCompleted, Report: s.Report()},
		{TaskID: "t2", Target: "https://down.example.org", Status: model.TaskStatusFailed, Error: "dial tcp: refused"},
	}
}

func TestConsoleReporter_PrintResults(t *testing.T) {
	var buf bytes.Buffer
	NewConsoleReporter().WithWriter(&buf).PrintResults(sampleResults())
	out := buf.String()
	assert.Contains(t, out, "Target")
	assert.Contains(t, out, "https://pad.example.org/")
	assert.Contains(t, out, "admin:admin")
	assert.Contains(t, out, "v2/polling")

	buf.Reset()
	NewConsoleReporter().WithWriter(&buf).PrintResults(nil)
	assert.Contains(t, buf.String(), "No results found.")
}

func TestCsvReporter_Streaming(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stream.csv")
	r := NewCsvReporter(path)
	for _, res := range sampleResults() {
		require.NoError(t, r.Report(context.Background(), res))
	}
	require.NoError(t, r.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\xEF\xBB\xBF")))
	lines := strings.Split(strings.TrimSpace(string(data[3:])), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "Target,Base URL,Version"))
	assert.Contains(t, lines[1], "1.8.7")
}

// 没有任何报告时不创建文件
func TestCsvReporter_NoReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	r := NewCsvReporter(path)
	require.NoError(t, r.Report(context.Background(), sampleResults()[1]))
	require.NoError(t, r.Close())
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestSaveJsonResult(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, SaveJsonResult(path, sampleResults()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got []model.TaskResult
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got, 2)
	require.NotNil(t, got[0].Report)
	assert.Equal(t, "1.8.7", got[0].Report.Verdict.Min)
	assert.Equal(t, "0.3.1", got[0].Report.Plugins["ep_align"])
	assert.Equal(t, "dial tcp: refused", got[1].Error)
}

func TestMultiReporter(t *testing.T) {
	dir := t.TempDir()
	csvR := NewCsvReporter(filepath.Join(dir, "a.csv"))
	var buf bytes.Buffer
	m := NewMultiReporter(NewConsoleReporter().WithWriter(&buf), csvR)
	require.NoError(t, m.Report(context.Background(), sampleResults()[0]))
	require.NoError(t, csvR.Close())
	assert.Contains(t, buf.String(), "pad.example.org")
	_, err := os.Stat(filepath.Join(dir, "a.csv"))
	assert.NoError(t, err)
}
