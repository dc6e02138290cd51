/**
 * 版本合并
 * @description: 按来源优先级合并各探测器的版本信号
 *   handshake 精确版本 > health releaseId > revision 精确版本 > 区间交集
 */

package reconciler

import (
	"sync"

	"padscan/internal/core/model"
	"padscan/internal/pkg/version"
)

// Reconciler 单次扫描内的信号累加器
type Reconciler struct {
	mu        sync.Mutex
	handshake string
	health    string
	revision  string
	ranges    []model.VersionRange
}

func New() *Reconciler {
	return &Reconciler{}
}

// Add 记录一条信号，Absent 直接忽略
// 分级来源的区间信号与查表来源的信号一样参与区间交集
func (r *Reconciler) Add(source model.SignalSource, signal model.VersionSignal) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch signal.Kind {
	case model.SignalExact:
		switch source {
		case model.SourceHandshake:
			r.handshake = signal.Version
		case model.SourceHealth:
			r.health = signal.Version
		case model.SourceRevision:
			r.revision = signal.Version
		default:
			r.ranges = append(r.ranges, model.VersionRange{Min: signal.Version, Max: signal.Version})
		}
	case model.SignalRange:
		r.ranges = append(r.ranges, signal.Range)
	}
}

// Finalize 计算当前结论，可重复调用
func (r *Reconciler) Finalize() model.VersionVerdict {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, exact := range []string{r.handshake, r.health, r.revision} {
		if exact != "" {
			return model.VersionVerdict{Min: exact, Max: exact}
		}
	}
	return Intersect(r.ranges...)
}

// Intersect 区间交集：下界取最大的下界，上界取最小的上界，空值不参与
// 结果可能 Min > Max，调用方据此判断证据矛盾
func Intersect(ranges ...model.VersionRange) model.VersionVerdict {
	var v model.VersionVerdict
	for _, rg := range ranges {
		if rg.Min != "" && (v.Min == "" || version.Compare(rg.Min, v.Min) > 0) {
			v.Min = rg.Min
		}
		if rg.Max != "" && (v.Max == "" || version.Compare(rg.Max, v.Max) < 0) {
			v.Max = rg.Max
		}
	}
	return v
}
