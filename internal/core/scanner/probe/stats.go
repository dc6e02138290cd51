package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tidwall/gjson"

	"padscan/internal/core/model"
	"padscan/internal/core/scanner"
	"padscan/internal/pkg/client"
)

// StatsProbe /stats 的运行时间与数据库失败计数，不产生版本信号
type StatsProbe struct {
	http *client.Client
}

func NewStatsProbe(c *client.Client) *StatsProbe {
	return &StatsProbe{http: c}
}

func (p *StatsProbe) Name() model.ProbeName { return model.ProbeStats }

func (p *StatsProbe) Run(ctx context.Context, t *scanner.Target) error {
	resp, err := p.http.Get(ctx, t.Location.URL("stats"))
	if err != nil {
		return fmt.Errorf("request stats: %w", err)
	}
	if !resp.OK() {
		return fmt.Errorf("stats returned status %d", resp.StatusCode)
	}

	var raw map[string]any
	if err := json.Unmarshal(resp.Body, &raw); err != nil {
		return fmt.Errorf("decode stats: %w", err)
	}

	stats := model.ServerStats{
		WritesFailed: counter(gjson.GetBytes(resp.Body, "ueberdb_writesFailed")),
		ReadsFailed:  counter(gjson.GetBytes(resp.Body, "ueberdb_readsFailed")),
		Raw:          raw,
	}
	// httpStartTime 为毫秒时间戳
	if start := gjson.GetBytes(resp.Body, "httpStartTime").Int(); start > 0 {
		stats.StartTime = time.UnixMilli(start)
	}
	t.Emit(model.StatsReported{Stats: stats})
	return nil
}

// counter 计数可能是数字，也可能是 {"count": n}
func counter(v gjson.Result) int64 {
	if v.IsObject() {
		return v.Get("count").Int()
	}
	return v.Int()
}
