/**
 * 扫描事件
 * @description: 流水线按时间顺序推送给 Sink 的观测结果，控制台、报告收集等都从事件流派生
 */

package model

import "time"

// ProbeName 探测阶段名称
type ProbeName string

const (
	ProbeLocate   ProbeName = "locate"
	ProbeAPI      ProbeName = "api"
	ProbeRevision ProbeName = "revision"
	ProbeAssets   ProbeName = "assets"
	ProbePad      ProbeName = "pad"
	ProbeHealth   ProbeName = "health"
	ProbeStats    ProbeName = "stats"
	ProbeAdmin    ProbeName = "admin"
)

// EventKind 事件类型
type EventKind string

const (
	EventScanStarted        EventKind = "scan_started"
	EventInstanceLocated    EventKind = "instance_located"
	EventAPIVersionFound    EventKind = "api_version_found"
	EventRevisionFound      EventKind = "revision_found"
	EventRevisionResolved   EventKind = "revision_resolved"
	EventAssetFingerprinted EventKind = "asset_fingerprinted"
	EventPadStarted         EventKind = "pad_started"
	EventPadAccessible      EventKind = "pad_accessible"
	EventPadTimedOut        EventKind = "pad_timed_out"
	EventPluginsFound       EventKind = "plugins_found"
	EventHealthReported     EventKind = "health_reported"
	EventVersionResolved    EventKind = "version_resolved"
	EventStatsReported      EventKind = "stats_reported"
	EventAdminChecked       EventKind = "admin_checked"
	EventProbeFailed        EventKind = "probe_failed"
	EventScanFinished       EventKind = "scan_finished"
)

// Event 扫描过程中的一条观测
type Event interface {
	Kind() EventKind
}

// Sink 事件消费者
type Sink interface {
	Emit(Event)
}

// SinkFunc 函数适配 Sink
type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) { f(e) }

// Discard 丢弃所有事件
var Discard Sink = SinkFunc(func(Event) {})

// RevisionInfo git revision 解析结果，Version 为空表示该提交没有对应的发布 tag
type RevisionInfo struct {
	Revision   string    `json:"revision"`
	Commit     string    `json:"commit,omitempty"`
	CommitDate time.Time `json:"commit_date,omitempty"`
	Version    string    `json:"version,omitempty"`
}

// ServerStats /stats 的关键字段，Raw 保留完整响应
type ServerStats struct {
	StartTime    time.Time      `json:"start_time,omitempty"`
	WritesFailed int64          `json:"writes_failed"`
	ReadsFailed  int64          `json:"reads_failed"`
	Raw          map[string]any `json:"raw,omitempty"`
}

// AdminResult 一组默认凭据的检测结果
type AdminResult struct {
	Strategy   string `json:"strategy"`
	User       string `json:"user"`
	Password   string `json:"password"`
	Accessible bool   `json:"accessible"`
}

type ScanStarted struct {
	Target  string
	ProbeID string
}

type InstanceLocated struct {
	Location InstanceLocation
}

type APIVersionFound struct {
	APIVersion string
	Range      VersionRange
	Known      bool // APIVersion 是否在版本表中
}

type RevisionFound struct {
	Revision string
}

type RevisionResolved struct {
	Info RevisionInfo
}

type AssetFingerprinted struct {
	Path  string
	Hash  string // 获取失败时为空
	Range VersionRange
	Known bool
}

type PadStarted struct {
	ProtocolMajor int
	Transport     Transport
}

type PadAccessible struct {
	Session HandshakeSession
	Version string
}

type PadTimedOut struct {
	Session HandshakeSession
}

type PluginsFound struct {
	Plugins PluginManifest
}

type HealthReported struct {
	Status    string
	ReleaseID string
}

type VersionResolved struct {
	Verdict VersionVerdict
}

type StatsReported struct {
	Stats ServerStats
}

type AdminChecked struct {
	Result AdminResult
}

type ProbeFailed struct {
	Probe ProbeName
	Err   error
}

type ScanFinished struct {
	Target string
	Err    error
}

func (ScanStarted) Kind() EventKind        { return EventScanStarted }
func (InstanceLocated) Kind() EventKind    { return EventInstanceLocated }
func (APIVersionFound) Kind() EventKind    { return EventAPIVersionFound }
func (RevisionFound) Kind() EventKind      { return EventRevisionFound }
func (RevisionResolved) Kind() EventKind   { return EventRevisionResolved }
func (AssetFingerprinted) Kind() EventKind { return EventAssetFingerprinted }
func (PadStarted) Kind() EventKind         { return EventPadStarted }
func (PadAccessible) Kind() EventKind      { return EventPadAccessible }
func (PadTimedOut) Kind() EventKind        { return EventPadTimedOut }
func (PluginsFound) Kind() EventKind       { return EventPluginsFound }
func (HealthReported) Kind() EventKind     { return EventHealthReported }
func (VersionResolved) Kind() EventKind    { return EventVersionResolved }
func (StatsReported) Kind() EventKind      { return EventStatsReported }
func (AdminChecked) Kind() EventKind       { return EventAdminChecked }
func (ProbeFailed) Kind() EventKind        { return EventProbeFailed }
func (ScanFinished) Kind() EventKind       { return EventScanFinished }
