package model

import (
	"fmt"

	"padscan/internal/pkg/version"
)

// VersionVerdict 最终版本结论
// Min == Max 表示精确版本；任一侧为空表示无界；两侧都为空表示无法判定
// Min > Max 说明证据互相矛盾，保留原值如实报告
type VersionVerdict struct {
	Min string `json:"min,omitempty"`
	Max string `json:"max,omitempty"`
}

func (v VersionVerdict) IsUndetermined() bool {
	return v.Min == "" && v.Max == ""
}

func (v VersionVerdict) IsExact() bool {
	return v.Min != "" && v.Max != "" && version.Compare(v.Min, v.Max) == 0
}

func (v VersionVerdict) IsInconsistent() bool {
	return v.Min != "" && v.Max != "" && version.Compare(v.Min, v.Max) > 0
}

// Contains 判断 ver 是否落在结论区间内
func (v VersionVerdict) Contains(ver string) bool {
	if v.IsUndetermined() || v.IsInconsistent() {
		return false
	}
	if v.Min != "" && version.Compare(ver, v.Min) < 0 {
		return false
	}
	if v.Max != "" && version.Compare(ver, v.Max) > 0 {
		return false
	}
	return true
}

// Outdated 上界低于 threshold，说明实例一定早于该版本
func (v VersionVerdict) Outdated(threshold string) bool {
	return v.Max != "" && version.Compare(v.Max, threshold) < 0
}

func (v VersionVerdict) String() string {
	switch {
	case v.IsUndetermined():
		return "undetermined"
	case v.IsExact():
		return v.Min
	case v.Max == "":
		return fmt.Sprintf(">= %s", v.Min)
	case v.Min == "":
		return fmt.Sprintf("<= %s", v.Max)
	default:
		return fmt.Sprintf("%s - %s", v.Min, v.Max)
	}
}
