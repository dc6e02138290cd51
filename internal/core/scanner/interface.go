/**
 * 探测器接口
 * @description: 流水线中每个探测阶段都实现 Probe，共享同一个 Target
 */

package scanner

import (
	"context"
	"sync"

	"padscan/internal/core/model"
	"padscan/internal/pkg/fingerprint"
)

// Versions 版本信号累加器，由 reconciler 实现
type Versions interface {
	model.SignalRecorder
	Finalize() model.VersionVerdict
}

// Target 单次扫描内各探测器共享的状态
type Target struct {
	ProbeID  string
	Location model.InstanceLocation
	Versions Versions
	Sink     model.Sink
	Tables   *fingerprint.Tables // 扫描开始时的指纹快照，热加载不影响进行中的扫描

	mu         sync.RWMutex
	apiVersion string
}

// SetAPIVersion 记录 /api 返回的 currentVersion，握手阶段据此选择协议
func (t *Target) SetAPIVersion(v string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.apiVersion = v
}

func (t *Target) APIVersion() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.apiVersion
}

// Emit 推送事件
func (t *Target) Emit(e model.Event) {
	if t.Sink != nil {
		t.Sink.Emit(e)
	}
}

// Probe 探测阶段
// 返回的错误只影响该阶段，ErrInstanceNotPublic 等可识别错误由流水线转为事件
type Probe interface {
	Name() model.ProbeName
	Run(ctx context.Context, target *Target) error
}
