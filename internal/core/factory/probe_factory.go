package factory

import (
	"fmt"

	"padscan/internal/config"
	"padscan/internal/core/scanner"
	"padscan/internal/core/scanner/probe"
	"padscan/internal/core/scanner/socketio"
	"padscan/internal/pkg/client"
)

// ProbeSettings 探测器参数，与具体目标无关
type ProbeSettings struct {
	Handshake      socketio.Config
	SocketIOMajor  int // 0 表示按 api 版本自动选择
	AdminEnabled   bool
	AdminStrategy  probe.AdminStrategy
	Credentials    []probe.Credential
	LookupRevision probe.RevisionLookupFunc // 为空时只报告 revision，不解析版本
}

// SettingsFromConfig 从配置构造探测器参数
func SettingsFromConfig(cfg *config.Config, lookup probe.RevisionLookupFunc) (ProbeSettings, error) {
	strategy, err := probe.StrategyByName(cfg.Admin.Strategy)
	if err != nil {
		return ProbeSettings{}, fmt.Errorf("admin strategy: %w", err)
	}

	creds := make([]probe.Credential, 0, len(cfg.Admin.Credentials))
	for _, c := range cfg.Admin.Credentials {
		creds = append(creds, probe.Credential{User: c.User, Password: c.Password})
	}

	return ProbeSettings{
		Handshake: socketio.Config{
			Wait:         cfg.Handshake.Wait,
			PollInterval: cfg.Handshake.PollInterval,
			Transport:    cfg.Handshake.Transport,
			Token:        cfg.Handshake.Token,
		},
		SocketIOMajor:  cfg.Scan.SocketIOMajor,
		AdminEnabled:   cfg.Admin.Enabled,
		AdminStrategy:  strategy,
		Credentials:    creds,
		LookupRevision: lookup,
	}, nil
}

// NewVersionProbes 产生版本证据的探测器，顺序即执行顺序
// pad 握手依赖 api 阶段记录的版本与前面累积的下界，必须排在 api 与 assets 之后
// 这是一个工厂方法，确保所有消费者（Orchestrator, hashes 命令）获得一致的能力集
func NewVersionProbes(c *client.Client, s ProbeSettings) []scanner.Probe {
	return []scanner.Probe{
		probe.NewAPIProbe(c, s.LookupRevision),
		probe.NewAssetProbe(c),
		probe.NewPadProbe(c, s.Handshake, s.SocketIOMajor),
		probe.NewHealthProbe(c),
	}
}

// NewInfoProbes 版本结论之后执行的信息类探测器
func NewInfoProbes(c *client.Client, s ProbeSettings) []scanner.Probe {
	probes := []scanner.Probe{probe.NewStatsProbe(c)}
	if s.AdminEnabled && len(s.Credentials) > 0 {
		probes = append(probes, probe.NewAdminProbe(c, s.AdminStrategy, s.Credentials))
	}
	return probes
}
