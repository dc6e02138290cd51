package probe

import (
	"context"

	"padscan/internal/core/model"
	"padscan/internal/core/scanner"
	"padscan/internal/core/scanner/socketio"
	"padscan/internal/pkg/client"
	"padscan/internal/pkg/logger"
)

// PadProbe 以匿名客户端身份打开 pad，读取实时会话中的版本与插件
type PadProbe struct {
	http       *client.Client
	handshake  *socketio.Client
	transport  string
	forceMajor int // 0 表示按已有证据选择
}

func NewPadProbe(c *client.Client, cfg socketio.Config, forceMajor int) *PadProbe {
	return &PadProbe{
		http:       c,
		handshake:  socketio.New(c, cfg),
		transport:  cfg.Transport,
		forceMajor: forceMajor,
	}
}

func (p *PadProbe) Name() model.ProbeName { return model.ProbePad }

func (p *PadProbe) Run(ctx context.Context, t *scanner.Target) error {
	// pad 页面下发会话 cookie，失败不影响后续握手
	padURL := t.Location.PadURL(t.ProbeID)
	if _, err := p.http.Get(ctx, padURL); err != nil {
		logger.WithField("url", padURL).Debugf("pad page request failed: %v", err)
	}

	major := p.forceMajor
	if major == 0 {
		major = socketio.SelectMajor(t.APIVersion(), t.Versions.Finalize().Min)
	}
	started := model.TransportPolling
	if p.transport == socketio.TransportWebsocket || p.transport == socketio.TransportAuto {
		started = model.TransportPersistent
	}
	t.Emit(model.PadStarted{ProtocolMajor: major, Transport: started})

	res, err := p.handshake.Handshake(ctx, t.Location, t.ProbeID, major)
	if err != nil {
		return err
	}
	if res.TimedOut {
		t.Emit(model.PadTimedOut{Session: res.Session})
		return nil
	}

	t.Emit(model.PadAccessible{Session: res.Session, Version: res.Version})
	t.Emit(model.PluginsFound{Plugins: res.Plugins})
	t.Versions.Add(model.SourceHandshake, model.Exact(res.Version))
	return nil
}
