package model

import (
	"fmt"
	"strings"
	"time"
)

// AssetHash 单个静态文件的指纹
type AssetHash struct {
	Path  string        `json:"path"`
	Hash  string        `json:"hash,omitempty"`
	Range *VersionRange `json:"range,omitempty"` // nil 表示摘要不在表中
}

// PadReport 握手结果
type PadReport struct {
	ProtocolMajor int    `json:"protocol_major,omitempty"`
	Transport     string `json:"transport,omitempty"`
	SessionID     string `json:"session_id,omitempty"`
	Accessible    bool   `json:"accessible"`
	Version       string `json:"version,omitempty"`
}

// ScanReport 单个目标的完整扫描报告，由事件流汇总而来
type ScanReport struct {
	Target     string            `json:"target"`
	ProbeID    string            `json:"probe_id,omitempty"`
	Location   *InstanceLocation `json:"location,omitempty"`
	APIVersion string            `json:"api_version,omitempty"`
	Revision   *RevisionInfo     `json:"revision,omitempty"`
	Assets     []AssetHash       `json:"assets,omitempty"`
	Pad        PadReport         `json:"pad"`
	Plugins    PluginManifest    `json:"plugins,omitempty"`
	Health     string            `json:"health,omitempty"`
	ReleaseID  string            `json:"release_id,omitempty"`
	Verdict    *VersionVerdict   `json:"verdict,omitempty"`
	Stats      *ServerStats      `json:"stats,omitempty"`
	Admin      []AdminResult     `json:"admin,omitempty"`
	Errors     []string          `json:"errors,omitempty"`
	Fatal      string            `json:"fatal,omitempty"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
}

// Headers 实现 TabularData 接口
// Target | Base URL | Version | API | Revision | Pad | Plugins | Health | Admin | Errors
func (r ScanReport) Headers() []string {
	return []string{"Target", "Base URL", "Version", "API", "Revision", "Pad", "Plugins", "Health", "Admin", "Errors"}
}

// Rows 实现 TabularData 接口
func (r ScanReport) Rows() [][]string {
	base := ""
	if r.Location != nil {
		base = r.Location.BaseURL
	}

	verdict := "N/A"
	if r.Verdict != nil {
		verdict = r.Verdict.String()
		if r.Verdict.IsInconsistent() {
			verdict += " (inconsistent)"
		}
	}

	revision := ""
	if r.Revision != nil {
		revision = r.Revision.Revision
	}

	pad := "N/A"
	if r.Pad.ProtocolMajor > 0 {
		pad = fmt.Sprintf("v%d/%s", r.Pad.ProtocolMajor, r.Pad.Transport)
		if !r.Pad.Accessible {
			pad += " (no client vars)"
		}
	}

	var admins []string
	for _, a := range r.Admin {
		if a.Accessible {
			admins = append(admins, a.User+":"+a.Password)
		}
	}

	errs := r.Errors
	if r.Fatal != "" {
		errs = append([]string{r.Fatal}, errs...)
	}

	return [][]string{{
		r.Target,
		base,
		verdict,
		r.APIVersion,
		revision,
		pad,
		fmt.Sprintf("%d", len(r.Plugins)),
		r.Health,
		strings.Join(admins, ","),
		strings.Join(errs, "; "),
	}}
}
