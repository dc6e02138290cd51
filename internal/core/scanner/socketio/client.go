/**
 * socket.io 握手客户端
 * @description: 以匿名客户端身份连接 pad，发送 CLIENT_READY，等待 clientVars
 *   从 clientVars 的插件清单中读取 ep_etherpad-lite 的版本
 */

package socketio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tidwall/gjson"

	"padscan/internal/core/model"
	"padscan/internal/pkg/client"
	"padscan/internal/pkg/logger"
)

const (
	TransportPolling   = "polling"
	TransportWebsocket = "websocket"
	TransportAuto      = "auto" // 先 websocket，建连失败回退轮询
)

const (
	corePlugin        = "ep_etherpad-lite"
	corePluginVersion = "data.plugins.plugins.ep_etherpad-lite.package.version"
	pluginsPath       = "data.plugins.plugins"
)

// Config 握手参数
type Config struct {
	Wait         time.Duration // 等待 namespace 确认与 clientVars 的时限
	PollInterval time.Duration // 轮询间隔
	Transport    string
	Token        string // CLIENT_READY 携带的作者令牌
}

// Result 握手结果；TimedOut 时 Version 为空
type Result struct {
	Session  model.HandshakeSession
	Version  string
	Plugins  model.PluginManifest
	TimedOut bool
}

// clientReady pad 客户端就绪消息
type clientReady struct {
	Component       string  `json:"component"`
	Type            string  `json:"type"`
	PadID           string  `json:"padId"`
	SessionID       *string `json:"sessionID"`
	Token           string  `json:"token"`
	Password        *string `json:"password"`
	ProtocolVersion int     `json:"protocolVersion"`
}

// Client 握手客户端，复用目标的 HTTP 客户端与 cookie
type Client struct {
	http *client.Client
	cfg  Config
}

func New(c *client.Client, cfg Config) *Client {
	if cfg.Wait <= 0 {
		cfg.Wait = 2 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 100 * time.Millisecond
	}
	if cfg.Transport == "" {
		cfg.Transport = TransportPolling
	}
	return &Client{http: c, cfg: cfg}
}

// Handshake 对 padID 执行一次完整握手
// 超时不是错误，返回 TimedOut 结果；实例拒绝匿名访问时返回 model.ErrInstanceNotPublic
func (c *Client) Handshake(ctx context.Context, loc model.InstanceLocation, padID string, major int) (*Result, error) {
	dialect, err := DialectFor(major)
	if err != nil {
		return nil, err
	}
	endpoint := loc.URL("socket.io/")

	switch c.cfg.Transport {
	case TransportWebsocket:
		return c.run(ctx, newWebsocketTransport(c.http, endpoint, dialect), dialect, padID)
	case TransportAuto:
		res, err := c.run(ctx, newWebsocketTransport(c.http, endpoint, dialect), dialect, padID)
		var he *model.HandshakeError
		if errors.As(err, &he) && he.Stage == "open" {
			logger.WithField("endpoint", endpoint).Debugf("websocket open failed, falling back to polling: %v", he.Err)
			return c.run(ctx, newPollingTransport(c.http, endpoint, dialect), dialect, padID)
		}
		return res, err
	case TransportPolling:
		return c.run(ctx, newPollingTransport(c.http, endpoint, dialect), dialect, padID)
	default:
		return nil, fmt.Errorf("unknown transport %q", c.cfg.Transport)
	}
}

func (c *Client) run(ctx context.Context, t transport, d Dialect, padID string) (*Result, error) {
	openCtx, cancel := context.WithTimeout(ctx, c.cfg.Wait)
	info, pending, err := t.Open(openCtx)
	cancel()
	defer t.Close()
	if err != nil {
		return nil, &model.HandshakeError{Stage: "open", Err: err}
	}

	session := model.HandshakeSession{
		SessionID:     info.SID,
		ProtocolMajor: d.Major,
		Transport:     t.Kind(),
	}
	logger.WithFields(map[string]interface{}{
		"sid":       info.SID,
		"major":     d.Major,
		"eio":       d.EIO,
		"transport": t.Kind().String(),
	}).Debug("engine.io session opened")

	if err := c.send(ctx, t, connectPacket); err != nil {
		return nil, &model.HandshakeError{Stage: "connect", Err: err}
	}
	pending, err = c.awaitConnect(ctx, t, pending)
	if err != nil {
		return nil, &model.HandshakeError{Stage: "connect", Err: err}
	}

	ready, err := encodeEvent("message", clientReady{
		Component:       "pad",
		Type:            "CLIENT_READY",
		PadID:           padID,
		Token:           c.cfg.Token,
		ProtocolVersion: 2,
	})
	if err != nil {
		return nil, &model.HandshakeError{Stage: "ready", Err: err}
	}
	if err := c.send(ctx, t, ready); err != nil {
		return nil, &model.HandshakeError{Stage: "ready", Err: err}
	}

	return c.awaitClientVars(ctx, t, session, pending)
}

func (c *Client) send(ctx context.Context, t transport, packets ...string) error {
	sctx, cancel := context.WithTimeout(ctx, c.cfg.Wait)
	defer cancel()
	return t.Send(sctx, packets...)
}

// awaitConnect 等待默认 namespace 的确认包，返回尚未处理的包
func (c *Client) awaitConnect(ctx context.Context, t transport, pending []string) ([]string, error) {
	deadline := time.Now().Add(c.cfg.Wait)
	for {
		var rest []string
		acked := false
		for i, p := range pending {
			if acked {
				rest = append(rest, pending[i:]...)
				break
			}
			switch {
			case p == "":
			case p[0] == packetPing:
				if err := c.send(ctx, t, string(packetPong)+p[1:]); err != nil {
					return nil, err
				}
			case p[0] == packetClose:
				return nil, errors.New("server closed the session")
			default:
				sp, ok := parseSocketPacket(p)
				if ok && sp.Namespace == "/" && sp.Type == socketConnect {
					acked = true
					continue
				}
				if ok && sp.Type == socketError {
					return nil, fmt.Errorf("namespace connect refused: %s", truncate(sp.Data, 64))
				}
				rest = append(rest, p)
			}
		}
		if acked {
			return rest, nil
		}

		packets, err := c.receiveUntil(ctx, t, deadline)
		if err != nil {
			if isTimeout(err) && ctx.Err() == nil {
				return nil, errors.New("no namespace acknowledgement")
			}
			return nil, err
		}
		pending = append(rest, packets...)
	}
}

// awaitClientVars 等待 clientVars，超过 Wait 返回 TimedOut
func (c *Client) awaitClientVars(ctx context.Context, t transport, session model.HandshakeSession, pending []string) (*Result, error) {
	deadline := time.Now().Add(c.cfg.Wait)
	for {
		for _, p := range pending {
			res, err := c.handle(ctx, t, session, p)
			if err != nil {
				return nil, err
			}
			if res != nil {
				return res, nil
			}
		}

		if !time.Now().Before(deadline) {
			break
		}
		packets, err := c.receiveUntil(ctx, t, deadline)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if isTimeout(err) {
				break
			}
			return nil, &model.HandshakeError{Stage: "await", Err: err}
		}
		pending = packets
	}

	logger.WithField("sid", session.SessionID).Debug("no client vars before deadline")
	return &Result{Session: session, TimedOut: true}, nil
}

// receiveUntil 轮询传输在两次请求之间等待 PollInterval
func (c *Client) receiveUntil(ctx context.Context, t transport, deadline time.Time) ([]string, error) {
	if t.Kind() == model.TransportPolling {
		wait := c.cfg.PollInterval
		if remaining := time.Until(deadline); remaining < wait {
			wait = remaining
		}
		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}
	}
	if !time.Now().Before(deadline) {
		return nil, context.DeadlineExceeded
	}
	rctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()
	return t.Receive(rctx)
}

// handle 处理单个包；返回非空 Result 表示拿到了版本
func (c *Client) handle(ctx context.Context, t transport, session model.HandshakeSession, p string) (*Result, error) {
	if p == "" {
		return nil, nil
	}
	switch p[0] {
	case packetPing:
		if err := c.send(ctx, t, string(packetPong)+p[1:]); err != nil {
			return nil, &model.HandshakeError{Stage: "await", Err: err}
		}
		return nil, nil
	case packetClose:
		return nil, &model.HandshakeError{Stage: "await", Err: errors.New("server closed the session")}
	case packetMessage:
	default:
		return nil, nil
	}

	sp, ok := parseSocketPacket(p)
	if !ok || sp.Namespace != "/" {
		return nil, nil
	}
	switch sp.Type {
	case socketDisconnect:
		return nil, &model.HandshakeError{Stage: "await", Err: errors.New("namespace disconnected by server")}
	case socketError:
		return nil, &model.HandshakeError{Stage: "await", Err: fmt.Errorf("server error: %s", truncate(sp.Data, 64))}
	}

	name, payload, ok := parseEvent(p)
	if !ok || name != "message" || !payload.IsObject() {
		return nil, nil
	}
	return evaluateMessage(session, payload)
}

// evaluateMessage 判断一条 pad 消息
func evaluateMessage(session model.HandshakeSession, payload gjson.Result) (*Result, error) {
	if payload.Get("accessStatus").String() == "deny" {
		return nil, model.ErrInstanceNotPublic
	}
	if payload.Get("data.type").String() == "CUSTOM" {
		return nil, nil
	}
	if reason := payload.Get("disconnect"); reason.Exists() {
		return nil, &model.HandshakeError{Stage: "await", Err: fmt.Errorf("server requested disconnect: %s", reason.String())}
	}

	v := payload.Get(corePluginVersion)
	if v.String() == "" {
		return nil, nil
	}

	plugins := model.PluginManifest{}
	payload.Get(pluginsPath).ForEach(func(key, value gjson.Result) bool {
		if key.String() != corePlugin {
			plugins[key.String()] = value.Get("package.version").String()
		}
		return true
	})
	return &Result{Session: session, Version: v.String(), Plugins: plugins}, nil
}
