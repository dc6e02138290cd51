package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"padscan/internal/core/factory"
	"padscan/internal/core/lib/network/qos"
	"padscan/internal/core/model"
	"padscan/internal/core/reporter"
	"padscan/internal/pkg/client"
	"padscan/internal/pkg/logger"
)

// ClientFactory 为每个目标创建独立的 HTTP 客户端（独立 cookie jar）
type ClientFactory func() (*client.Client, error)

// SinkFactory 每个目标的实时输出，返回 nil 表示不输出
type SinkFactory func(target string) model.Sink

// BatchOptions 批量扫描参数
type BatchOptions struct {
	Concurrency   int           // 同时扫描的目标数上限
	TargetTimeout time.Duration // 单个目标的总时长，0 表示不限
}

// BatchRunner 批量扫描运行器
// 目标之间并发，目标内部仍是串行流水线
type BatchRunner struct {
	opts      BatchOptions
	newClient ClientFactory
	newSink   SinkFactory
	tables    TablesSource
	settings  factory.ProbeSettings
	limiter   *qos.AdaptiveLimiter
	reporter  reporter.Reporter

	// 并发时整段输出，避免交错
	outputMu sync.Mutex
	reportMu sync.Mutex
}

func NewBatchRunner(opts BatchOptions, newClient ClientFactory, tables TablesSource, settings factory.ProbeSettings) *BatchRunner {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &BatchRunner{
		opts:      opts,
		newClient: newClient,
		tables:    tables,
		settings:  settings,
		// 超时时收缩，恢复后不超过用户指定的并发
		limiter: qos.NewAdaptiveLimiter(opts.Concurrency, 1, opts.Concurrency),
	}
}

// WithSink 设置实时输出
func (r *BatchRunner) WithSink(f SinkFactory) *BatchRunner {
	r.newSink = f
	return r
}

// WithReporter 每个目标结束时立即上报结果，按完成顺序
func (r *BatchRunner) WithReporter(reporters ...reporter.Reporter) *BatchRunner {
	if len(reporters) > 0 {
		r.reporter = reporter.NewMultiReporter(reporters...)
	}
	return r
}

// Run 扫描所有目标，结果顺序与输入顺序一致
func (r *BatchRunner) Run(ctx context.Context, targets <-chan string) []*model.TaskResult {
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []*model.TaskResult
	)

	for target := range targets {
		mu.Lock()
		idx := len(results)
		results = append(results, nil)
		mu.Unlock()

		task := model.NewTask(target, r.opts.TargetTimeout)
		if err := r.acquire(ctx, target); err != nil {
			res := &model.TaskResult{
				TaskID:    task.ID,
				Target:    target,
				Status:    model.TaskStatusCancelled,
				Error:     err.Error(),
				StartTime: time.Now(),
				EndTime:   time.Now(),
			}
			mu.Lock()
			results[idx] = res
			mu.Unlock()
			r.report(ctx, res)
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer r.limiter.Release()

			res := r.execute(ctx, task)
			mu.Lock()
			results[idx] = res
			mu.Unlock()
			r.report(ctx, res)
		}()
	}

	wg.Wait()
	return results
}

// acquire 名额已满时记录等待，再阻塞获取
func (r *BatchRunner) acquire(ctx context.Context, target string) error {
	if r.limiter.TryAcquire() {
		return nil
	}
	logger.WithFields(logrus.Fields{
		"target":   target,
		"limit":    r.limiter.CurrentLimit(),
		"inflight": r.limiter.InFlight(),
	}).Debug("waiting for scan slot")
	return r.limiter.Acquire(ctx)
}

// report 上报失败只记录日志，不影响其余目标
func (r *BatchRunner) report(ctx context.Context, res *model.TaskResult) {
	if r.reporter == nil {
		return
	}
	r.reportMu.Lock()
	defer r.reportMu.Unlock()
	if err := r.reporter.Report(context.WithoutCancel(ctx), res); err != nil {
		logger.WithField("target", res.Target).Warnf("report result failed: %v", err)
	}
}

// execute 执行单个目标
func (r *BatchRunner) execute(ctx context.Context, task *model.Task) *model.TaskResult {
	res := &model.TaskResult{
		TaskID:    task.ID,
		Target:    task.Target,
		Status:    model.TaskStatusRunning,
		StartTime: time.Now(),
	}
	logger.LogScanOperation(task.ID, task.Target, string(model.TaskStatusRunning), 0, nil)

	if task.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, task.Timeout)
		defer cancel()
	}

	c, err := r.newClient()
	if err != nil {
		return r.finish(res, err, nil)
	}

	var live model.Sink
	if r.newSink != nil {
		live = r.newSink(task.Target)
	}

	report := reporter.NewReportSink()
	sinks := reporter.MultiSink{report}
	var buffer *reporter.BufferedSink
	if live != nil {
		if r.opts.Concurrency > 1 {
			buffer = reporter.NewBufferedSink()
			sinks = append(sinks, buffer)
		} else {
			sinks = append(sinks, live)
		}
	}

	_, err = NewOrchestrator(c, r.tables, r.settings).Run(ctx, task.Target, sinks)

	if buffer != nil {
		r.outputMu.Lock()
		buffer.Flush(live)
		r.outputMu.Unlock()
	}

	if errors.Is(err, context.DeadlineExceeded) {
		r.limiter.OnFailure()
		logger.WithField("target", task.Target).Warnf("target timed out, concurrency limit now %d", r.limiter.CurrentLimit())
	} else {
		r.limiter.OnSuccess()
	}
	return r.finish(res, err, report.Report())
}

func (r *BatchRunner) finish(res *model.TaskResult, err error, report *model.ScanReport) *model.TaskResult {
	res.EndTime = time.Now()
	res.Report = report
	res.Status = model.TaskStatusCompleted
	if err != nil {
		res.Status = model.TaskStatusFailed
		res.Error = err.Error()
	}

	extra := map[string]interface{}{}
	if report != nil && report.Verdict != nil {
		extra["verdict"] = report.Verdict.String()
	}
	logger.LogScanOperation(res.TaskID, res.Target, string(res.Status), res.EndTime.Sub(res.StartTime), extra)
	return res
}
