/**
 * 单目标扫描流水线
 * @description: locate -> api -> assets -> pad -> health -> 版本结论 -> stats -> admin
 *   只有找不到实例与无法判定版本会中止扫描，其余失败在探测器边界转为 ProbeFailed 事件
 */

package pipeline

import (
	"context"
	"fmt"
	"time"

	"padscan/internal/core/factory"
	"padscan/internal/core/model"
	"padscan/internal/core/reconciler"
	"padscan/internal/core/scanner"
	"padscan/internal/core/scanner/locator"
	"padscan/internal/pkg/client"
	"padscan/internal/pkg/fingerprint"
	"padscan/internal/pkg/logger"
	"padscan/internal/pkg/utils"
)

// TablesSource 指纹表来源，支持热加载的 Database 实现了它
type TablesSource interface {
	Snapshot() *fingerprint.Tables
}

// Orchestrator 串行执行一个目标的全部探测
// 不在并发扫描之间共享：每个目标一个实例
type Orchestrator struct {
	locator       *locator.Resolver
	tables        TablesSource
	versionProbes []scanner.Probe
	infoProbes    []scanner.Probe
}

func NewOrchestrator(c *client.Client, tables TablesSource, settings factory.ProbeSettings) *Orchestrator {
	return &Orchestrator{
		locator:       locator.New(c),
		tables:        tables,
		versionProbes: factory.NewVersionProbes(c, settings),
		infoProbes:    factory.NewInfoProbes(c, settings),
	}
}

// Run 扫描 rawURL，事件按发生顺序推送给 sink
// 返回 ErrInstanceNotFound 或 ErrUndeterminedVersion 时 verdict 无意义
func (o *Orchestrator) Run(ctx context.Context, rawURL string, sink model.Sink) (verdict model.VersionVerdict, err error) {
	if sink == nil {
		sink = model.Discard
	}

	probeID, err := utils.GenerateProbeID()
	if err != nil {
		return verdict, fmt.Errorf("generate probe id: %w", err)
	}

	sink.Emit(model.ScanStarted{Target: rawURL, ProbeID: probeID})
	defer func() {
		sink.Emit(model.ScanFinished{Target: rawURL, Err: err})
	}()

	// 1. 定位实例，失败即终止
	loc, err := o.locator.Resolve(ctx, rawURL, probeID)
	if err != nil {
		logger.LogProbeResult(string(model.ProbeLocate), rawURL, err, nil)
		return verdict, err
	}
	sink.Emit(model.InstanceLocated{Location: loc})
	logger.WithFields(map[string]interface{}{
		"target":       rawURL,
		"base_url":     loc.BaseURL,
		"mount_prefix": loc.MountPrefix,
	}).Debug("instance located")

	target := &scanner.Target{
		ProbeID:  probeID,
		Location: loc,
		Versions: reconciler.New(),
		Sink:     sink,
		Tables:   o.snapshot(),
	}

	// 2. 版本类探测，顺序执行，同一时刻只有一个请求打到目标上
	for _, p := range o.versionProbes {
		o.runProbe(ctx, rawURL, p, target)
	}

	// 3. 合并版本证据
	verdict = target.Versions.Finalize()
	if verdict.IsUndetermined() {
		return verdict, model.ErrUndeterminedVersion
	}
	sink.Emit(model.VersionResolved{Verdict: verdict})

	// 4. 信息类探测
	for _, p := range o.infoProbes {
		o.runProbe(ctx, rawURL, p, target)
	}
	return verdict, nil
}

func (o *Orchestrator) snapshot() *fingerprint.Tables {
	if o.tables == nil {
		return fingerprint.Default()
	}
	return o.tables.Snapshot()
}

// runProbe 探测器错误只记录，不向上传递
func (o *Orchestrator) runProbe(ctx context.Context, rawURL string, p scanner.Probe, target *scanner.Target) {
	start := time.Now()
	err := p.Run(ctx, target)
	logger.LogProbeResult(string(p.Name()), rawURL, err, map[string]interface{}{
		"duration": time.Since(start).Milliseconds(),
	})
	if err != nil {
		target.Emit(model.ProbeFailed{Probe: p.Name(), Err: err})
	}
}
