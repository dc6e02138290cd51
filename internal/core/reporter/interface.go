/**
 * 结果上报接口定义
 * @description: 扫描过程以事件流推送给 Sink，结束后的 TaskResult 交给 Reporter 输出
 *   控制台、报告收集、文件导出互不依赖
 */

package reporter

import (
	"context"
	"errors"

	"padscan/internal/core/model"
)

// TabularData 是一个可以被渲染为表格的数据接口
// 任何想要在控制台漂亮打印的 Result 都应该实现此接口
type TabularData interface {
	Headers() []string
	Rows() [][]string
}

// Reporter 定义结果上报的行为
type Reporter interface {
	// Report 上报/输出任务结果
	Report(ctx context.Context, result *model.TaskResult) error
}

// MultiReporter 支持同时向多个目标上报 (e.g., Console + File)
type MultiReporter struct {
	reporters []Reporter
}

func NewMultiReporter(reporters ...Reporter) *MultiReporter {
	return &MultiReporter{
		reporters: reporters,
	}
}

func (m *MultiReporter) Report(ctx context.Context, result *model.TaskResult) error {
	var errs []error
	for _, r := range m.reporters {
		if err := r.Report(ctx, result); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// MultiSink 事件同时推送给多个 Sink
type MultiSink []model.Sink

func (m MultiSink) Emit(e model.Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(e)
		}
	}
}
