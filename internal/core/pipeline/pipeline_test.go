package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"padscan/internal/core/factory"
	"padscan/internal/core/model"
	"padscan/internal/core/reporter"
	"padscan/internal/core/scanner/probe"
	"padscan/internal/core/scanner/socketio"
	"padscan/internal/pkg/client"
	"padscan/internal/pkg/fingerprint"
	"padscan/internal/testutil/fakepad"
)

type recorder struct {
	mu     sync.Mutex
	events []model.Event
}

func (r *recorder) Emit(e model.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) kinds() []model.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]model.EventKind, 0, len(r.events))
	for _, e := range r.events {
		kinds = append(kinds, e.Kind())
	}
	return kinds
}

func (r *recorder) find(kind model.EventKind) []model.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Event
	for _, e := range r.events {
		if e.Kind() == kind {
			out = append(out, e)
		}
	}
	return out
}

func indexOf(kinds []model.EventKind, kind model.EventKind) int {
	for i, k := range kinds {
		if k == kind {
			return i
		}
	}
	return -1
}

func newClient() (*client.Client, error) {
	return client.New(client.Options{Timeout: 2 * time.Second})
}

func testSettings() factory.ProbeSettings {
	return factory.ProbeSettings{
		Handshake: socketio.Config{
			Wait:         time.Second,
			PollInterval: 20 * time.Millisecond,
			Transport:    socketio.TransportPolling,
			Token:        "t.test",
		},
		AdminEnabled: true,
		Credentials: []probe.Credential{
			{User: "admin", Password: "admin"},
			{User: "admin", Password: "changeme1"},
			{User: "user", Password: "changeme1"},
		},
	}
}

func newOrchestrator(t *testing.T, tables TablesSource, settings factory.ProbeSettings) *Orchestrator {
	t.Helper()
	c, err := newClient()
	require.NoError(t, err)
	return NewOrchestrator(c, tables, settings)
}

func fullInstance() *fakepad.Server {
	return fakepad.New(fakepad.Options{
		Mount:         "/etherpad",
		PadPrefix:     "p/",
		APIVersion:    "1.2.15",
		Major:         2,
		Version:       "1.8.7",
		Plugins:       map[string]string{"ep_markdown": "0.1.0"},
		PollHold:      50 * time.Millisecond,
		Health:        `{"status":"pass","releaseId":"1.8.7"}`,
		Stats:         `{"httpStartTime":1700000000000,"ueberdb_writesFailed":0,"ueberdb_readsFailed":0}`,
		AdminUser:     "admin",
		AdminPassword: "admin",
	})
}

func TestOrchestrator_FullScan(t *testing.T) {
	srv := fullInstance()
	defer srv.Close()

	events := &recorder{}
	verdict, err := newOrchestrator(t, nil, testSettings()).Run(context.Background(), srv.URL+"/etherpad/some/sub/page", events)
	require.NoError(t, err)
	assert.Equal(t, model.VersionVerdict{Min: "1.8.7", Max: "1.8.7"}, verdict)

	kinds := events.kinds()
	require.NotEmpty(t, kinds)
	assert.Equal(t, model.EventScanStarted, kinds[0])
	assert.Equal(t, model.EventScanFinished, kinds[len(kinds)-1])
	assert.Equal(t, -1, indexOf(kinds, model.EventProbeFailed), "events: %v", kinds)

	// 版本结论在全部版本类探测之后、信息类探测之前
	resolved := indexOf(kinds, model.EventVersionResolved)
	require.NotEqual(t, -1, resolved)
	for _, before := range []model.EventKind{model.EventInstanceLocated, model.EventAPIVersionFound, model.EventPadAccessible, model.EventHealthReported} {
		i := indexOf(kinds, before)
		require.NotEqual(t, -1, i, before)
		assert.Less(t, i, resolved, before)
	}
	assert.Greater(t, indexOf(kinds, model.EventStatsReported), resolved)
	assert.Greater(t, indexOf(kinds, model.EventAdminChecked), resolved)

	located := events.find(model.EventInstanceLocated)[0].(model.InstanceLocated)
	assert.Equal(t, srv.BaseURL(), located.Location.BaseURL)
	assert.Equal(t, "p/", located.Location.MountPrefix)

	started := events.find(model.EventPadStarted)[0].(model.PadStarted)
	assert.Equal(t, 2, started.ProtocolMajor)

	plugins := events.find(model.EventPluginsFound)[0].(model.PluginsFound)
	assert.Equal(t, model.PluginManifest{"ep_markdown": "0.1.0"}, plugins.Plugins)

	admin := events.find(model.EventAdminChecked)
	require.Len(t, admin, 3)
	assert.True(t, admin[0].(model.AdminChecked).Result.Accessible)
	assert.False(t, admin[1].(model.AdminChecked).Result.Accessible)

	assert.Nil(t, events.find(model.EventScanFinished)[0].(model.ScanFinished).Err)
}

// 任何层级都找不到实例时，不执行其余探测
func TestOrchestrator_NotFound(t *testing.T) {
	srv := fakepad.New(fakepad.Options{Mount: "/etherpad", PadPrefix: "p/"})
	defer srv.Close()

	events := &recorder{}
	verdict, err := newOrchestrator(t, nil, testSettings()).Run(context.Background(), srv.URL+"/other/path", events)
	assert.True(t, errors.Is(err, model.ErrInstanceNotFound), "got %v", err)
	assert.True(t, verdict.IsUndetermined())
	assert.Equal(t, []model.EventKind{model.EventScanStarted, model.EventScanFinished}, events.kinds())

	finished := events.find(model.EventScanFinished)[0].(model.ScanFinished)
	assert.True(t, errors.Is(finished.Err, model.ErrInstanceNotFound))
}

// 拒绝匿名访问时仍继续 health、stats、admin
func TestOrchestrator_DenyContinues(t *testing.T) {
	srv := fakepad.New(fakepad.Options{
		PadPrefix:     "p/",
		APIVersion:    "1.3.0",
		Major:         4,
		Deny:          true,
		PollHold:      50 * time.Millisecond,
		Health:        `{"status":"pass","releaseId":"2.2.7"}`,
		Stats:         `{"httpStartTime":1700000000000}`,
		AdminUser:     "root",
		AdminPassword: "s3cret",
	})
	defer srv.Close()

	settings := testSettings()
	settings.SocketIOMajor = 4

	events := &recorder{}
	verdict, err := newOrchestrator(t, nil, settings).Run(context.Background(), srv.URL+"/some/page", events)
	require.NoError(t, err)
	assert.Equal(t, model.VersionVerdict{Min: "2.2.7", Max: "2.2.7"}, verdict)

	failed := events.find(model.EventProbeFailed)
	require.Len(t, failed, 1)
	pf := failed[0].(model.ProbeFailed)
	assert.Equal(t, model.ProbePad, pf.Probe)
	assert.True(t, errors.Is(pf.Err, model.ErrInstanceNotPublic))

	assert.Empty(t, events.find(model.EventPadAccessible))
	assert.Len(t, events.find(model.EventHealthReported), 1)
	assert.Len(t, events.find(model.EventStatsReported), 1)
	for _, e := range events.find(model.EventAdminChecked) {
		assert.False(t, e.(model.AdminChecked).Result.Accessible)
	}
}

// 没有任何版本证据时终止，信息类探测不执行
func TestOrchestrator_Undetermined(t *testing.T) {
	srv := fakepad.New(fakepad.Options{
		PadPrefix:  "p/",
		Major:      4,
		CustomOnly: true,
		PollHold:   50 * time.Millisecond,
		Stats:      `{"httpStartTime":1700000000000}`,
	})
	defer srv.Close()

	settings := testSettings()
	settings.SocketIOMajor = 4
	settings.Handshake.Wait = 300 * time.Millisecond

	events := &recorder{}
	empty := fingerprint.NewDatabase(&fingerprint.Tables{})
	_, err := newOrchestrator(t, empty, settings).Run(context.Background(), srv.URL+"/some/page", events)
	assert.True(t, errors.Is(err, model.ErrUndeterminedVersion), "got %v", err)

	kinds := events.kinds()
	assert.Equal(t, -1, indexOf(kinds, model.EventVersionResolved))
	assert.Equal(t, -1, indexOf(kinds, model.EventStatsReported))
	assert.NotEqual(t, -1, indexOf(kinds, model.EventPadTimedOut))
}

// 区间互相矛盾时照实返回
func TestOrchestrator_InconsistentVerdict(t *testing.T) {
	srv := fakepad.New(fakepad.Options{PadPrefix: "p/", APIVersion: "1.3.0", Major: 2, PollHold: 50 * time.Millisecond})
	defer srv.Close()

	settings := testSettings()
	settings.Handshake.Wait = 200 * time.Millisecond
	settings.AdminEnabled = false

	// 1.3.0 -> [1.9.0, 1.9.5]，attributes.js 缺失 -> [, 1.8.18]
	verdict, err := newOrchestrator(t, nil, settings).Run(context.Background(), srv.URL+"/some/page", nil)
	require.NoError(t, err)
	assert.True(t, verdict.IsInconsistent(), "verdict %v", verdict)
	assert.Equal(t, model.VersionVerdict{Min: "1.9.0", Max: "1.8.18"}, verdict)
}

func TestOrchestrator_TablesSnapshot(t *testing.T) {
	srv := fakepad.New(fakepad.Options{PadPrefix: "p/", APIVersion: "9.9.9", Major: 4, PollHold: 50 * time.Millisecond})
	defer srv.Close()

	settings := testSettings()
	settings.Handshake.Wait = 200 * time.Millisecond
	settings.AdminEnabled = false

	db := fingerprint.NewDatabase(&fingerprint.Tables{
		APIVersions: map[string]model.VersionRange{"9.9.9": {Min: "3.0.0", Max: "3.0.1"}},
	})
	verdict, err := newOrchestrator(t, db, settings).Run(context.Background(), srv.URL+"/some/page", nil)
	require.NoError(t, err)
	assert.Equal(t, model.VersionVerdict{Min: "3.0.0", Max: "3.0.1"}, verdict)
}

func TestBatchRunner(t *testing.T) {
	pterm.DisableStyling()

	a := fullInstance()
	defer a.Close()
	b := fakepad.New(fakepad.Options{
		PadPrefix:  "p/",
		APIVersion: "1.2.15",
		Major:      2,
		Version:    "1.8.9",
		PollHold:   50 * time.Millisecond,
	})
	defer b.Close()
	missing := fakepad.New(fakepad.Options{Mount: "/etherpad", PadPrefix: "p/"})
	defer missing.Close()

	var out bytes.Buffer
	runner := NewBatchRunner(BatchOptions{Concurrency: 3, TargetTimeout: 10 * time.Second}, newClient, nil, testSettings()).
		WithSink(func(string) model.Sink { return reporter.NewConsoleSink(&out) })

	targets := GenerateTargets(a.URL+"/etherpad/team", b.URL+","+missing.URL+"/nothing-here")
	results := runner.Run(context.Background(), targets)

	require.Len(t, results, 3)
	assert.Equal(t, model.TaskStatusCompleted, results[0].Status)
	assert.Equal(t, model.TaskStatusCompleted, results[1].Status)
	assert.Equal(t, model.TaskStatusFailed, results[2].Status)
	assert.Contains(t, results[2].Error, "no etherpad instance found")

	require.NotNil(t, results[0].Report)
	require.NotNil(t, results[0].Report.Verdict)
	assert.Equal(t, "1.8.7", results[0].Report.Verdict.Min)
	require.NotNil(t, results[1].Report.Verdict)
	assert.Equal(t, "1.8.9", results[1].Report.Verdict.Min)
	assert.Equal(t, "no etherpad instance found at "+missing.URL+"/nothing-here", results[2].Report.Fatal)

	// 并发时每个目标的输出整段出现
	text := out.String()
	assert.Equal(t, 3, strings.Count(text, "Scanning "))
	assert.Contains(t, text, "Version is 1.8.7")
	assert.Contains(t, text, "Version is 1.8.9")
	for _, section := range strings.Split(text, "Scanning ")[1:] {
		if strings.Contains(section, "1.8.7") {
			assert.NotContains(t, section, "1.8.9")
		}
	}
}

type resultRecorder struct {
	mu      sync.Mutex
	targets []string
}

func (r *resultRecorder) Report(_ context.Context, res *model.TaskResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.targets = append(r.targets, res.Target)
	return nil
}

// 每个目标结束即上报，CSV 逐行写出
func TestBatchRunner_Reporters(t *testing.T) {
	a := fullInstance()
	defer a.Close()
	missing := fakepad.New(fakepad.Options{Mount: "/etherpad", PadPrefix: "p/"})
	defer missing.Close()

	rec := &resultRecorder{}
	path := filepath.Join(t.TempDir(), "out.csv")
	csvR := reporter.NewCsvReporter(path)

	// 并发 1，后一个目标需等待名额
	runner := NewBatchRunner(BatchOptions{Concurrency: 1, TargetTimeout: 10 * time.Second}, newClient, nil, testSettings()).
		WithReporter(rec, csvR)
	results := runner.Run(context.Background(), GenerateTargets(a.URL+"/etherpad/team", missing.URL+"/nothing-here"))
	require.NoError(t, csvR.Close())

	require.Len(t, results, 2)
	assert.ElementsMatch(t, []string{results[0].Target, results[1].Target}, rec.targets)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data[3:])), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "Target,Base URL,Version"))
	assert.Contains(t, string(data), "1.8.7")
}

func TestBatchRunner_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	targets := make(chan string, 1)
	targets <- "http://127.0.0.1:1/"
	close(targets)

	results := NewBatchRunner(BatchOptions{Concurrency: 1}, newClient, nil, testSettings()).Run(ctx, targets)
	require.Len(t, results, 1)
	assert.NotEqual(t, model.TaskStatusCompleted, results[0].Status)
}

func TestBatchRunner_ClientError(t *testing.T) {
	targets := make(chan string, 1)
	targets <- "http://127.0.0.1:1/"
	close(targets)

	failing := func() (*client.Client, error) { return nil, errors.New("bad proxy") }
	results := NewBatchRunner(BatchOptions{}, failing, nil, testSettings()).Run(context.Background(), targets)
	require.Len(t, results, 1)
	assert.Equal(t, model.TaskStatusFailed, results[0].Status)
	assert.Equal(t, "bad proxy", results[0].Error)
	assert.Nil(t, results[0].Report)
}

func TestGenerateTargets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets.txt")
	require.NoError(t, os.WriteFile(path, []byte(`# pads
https://pad.example.org/p/a?x=1
pad.example.org

ftp://files.example.org
https://pad.example.org/p/a/
`), 0o644))

	var got []string
	for target := range GenerateTargets(path, "https://b.example.org/etherpad/,pad.example.org") {
		got = append(got, target)
	}
	assert.Equal(t, []string{
		"https://pad.example.org/p/a",
		"http://pad.example.org",
		"https://b.example.org/etherpad",
	}, got)
}
