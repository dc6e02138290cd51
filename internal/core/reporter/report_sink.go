package reporter

import (
	"fmt"
	"sync"
	"time"

	"padscan/internal/core/model"
)

// ReportSink 把事件流汇总为 ScanReport
type ReportSink struct {
	mu     sync.Mutex
	report model.ScanReport
}

func NewReportSink() *ReportSink {
	return &ReportSink{}
}

func (s *ReportSink) Emit(e model.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := &s.report
	switch ev := e.(type) {
	case model.ScanStarted:
		r.Target = ev.Target
		r.ProbeID = ev.ProbeID
		r.StartedAt = time.Now()
	case model.InstanceLocated:
		loc := ev.Location
		r.Location = &loc
	case model.APIVersionFound:
		r.APIVersion = ev.APIVersion
	case model.RevisionFound:
		r.Revision = &model.RevisionInfo{Revision: ev.Revision}
	case model.RevisionResolved:
		info := ev.Info
		r.Revision = &info
	case model.AssetFingerprinted:
		asset := model.AssetHash{Path: ev.Path, Hash: ev.Hash}
		if ev.Known {
			rg := ev.Range
			asset.Range = &rg
		}
		r.Assets = append(r.Assets, asset)
	case model.PadStarted:
		r.Pad.ProtocolMajor = ev.ProtocolMajor
		r.Pad.Transport = ev.Transport.String()
	case model.PadAccessible:
		r.Pad.Accessible = true
		r.Pad.SessionID = ev.Session.SessionID
		r.Pad.Transport = ev.Session.Transport.String()
		r.Pad.Version = ev.Version
	case model.PadTimedOut:
		r.Pad.SessionID = ev.Session.SessionID
		r.Pad.Transport = ev.Session.Transport.String()
	case model.PluginsFound:
		r.Plugins = ev.Plugins
	case model.HealthReported:
		r.Health = ev.Status
		r.ReleaseID = ev.ReleaseID
	case model.VersionResolved:
		v := ev.Verdict
		r.Verdict = &v
	case model.StatsReported:
		stats := ev.Stats
		r.Stats = &stats
	case model.AdminChecked:
		r.Admin = append(r.Admin, ev.Result)
	case model.ProbeFailed:
		r.Errors = append(r.Errors, fmt.Sprintf("%s: %v", ev.Probe, ev.Err))
	case model.ScanFinished:
		r.FinishedAt = time.Now()
		if ev.Err != nil {
			r.Fatal = ev.Err.Error()
		}
	}
}

// Report 当前汇总结果的副本
func (s *ReportSink) Report() *model.ScanReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.report
	r.Assets = append([]model.AssetHash(nil), s.report.Assets...)
	r.Admin = append([]model.AdminResult(nil), s.report.Admin...)
	r.Errors = append([]string(nil), s.report.Errors...)
	return &r
}
