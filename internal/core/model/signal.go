/**
 * 版本信号模型
 * @description: 各探测器上报的版本证据，由 reconciler 统一合并
 */

package model

import "padscan/internal/pkg/version"

// SignalKind 信号类型
type SignalKind int

const (
	SignalAbsent SignalKind = iota // 无结论
	SignalExact                    // 精确版本
	SignalRange                    // 版本区间
)

func (k SignalKind) String() string {
	switch k {
	case SignalExact:
		return "exact"
	case SignalRange:
		return "range"
	default:
		return "absent"
	}
}

// SignalSource 信号来源，决定合并时的优先级
type SignalSource string

const (
	SourceHandshake SignalSource = "handshake" // socket.io 握手返回的包版本
	SourceHealth    SignalSource = "health"    // /health 的 releaseId
	SourceRevision  SignalSource = "revision"  // Server 头里的 git revision
	SourceAPI       SignalSource = "api"       // /api 的 currentVersion 查表
	SourceAsset     SignalSource = "asset"     // 静态文件摘要查表
)

// VersionRange 版本区间，Min/Max 为空表示该侧无界
type VersionRange struct {
	Min string `json:"min,omitempty" yaml:"min,omitempty"`
	Max string `json:"max,omitempty" yaml:"max,omitempty"`
}

// Valid 两端都存在时要求 Min <= Max
func (r VersionRange) Valid() bool {
	if r.Min == "" || r.Max == "" {
		return true
	}
	return version.LessOrEqual(r.Min, r.Max)
}

// Unbounded 两端都为空
func (r VersionRange) Unbounded() bool {
	return r.Min == "" && r.Max == ""
}

func (r VersionRange) String() string {
	lo, hi := r.Min, r.Max
	if lo == "" {
		lo = "*"
	}
	if hi == "" {
		hi = "*"
	}
	return "[" + lo + ", " + hi + "]"
}

// VersionSignal 单条版本证据
type VersionSignal struct {
	Kind    SignalKind
	Version string       // SignalExact
	Range   VersionRange // SignalRange
}

// Exact 精确版本信号，空字符串视为 Absent
func Exact(v string) VersionSignal {
	if v == "" {
		return Absent()
	}
	return VersionSignal{Kind: SignalExact, Version: v}
}

// Range 区间信号
func Range(min, max string) VersionSignal {
	return VersionSignal{Kind: SignalRange, Range: VersionRange{Min: min, Max: max}}
}

// RangeOf 由已有区间构造信号
func RangeOf(r VersionRange) VersionSignal {
	return VersionSignal{Kind: SignalRange, Range: r}
}

// Absent 无结论
func Absent() VersionSignal {
	return VersionSignal{Kind: SignalAbsent}
}

// SignalRecorder 接收探测器上报的信号
type SignalRecorder interface {
	Add(source SignalSource, signal VersionSignal)
}
