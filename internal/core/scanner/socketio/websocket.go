package socketio

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/net/websocket"

	"padscan/internal/core/model"
	"padscan/internal/pkg/client"
	"padscan/internal/pkg/utils"
)

// websocketTransport 直接以 websocket 建立会话，每帧一个包，不带长度前缀
type websocketTransport struct {
	http     *client.Client
	endpoint string
	dialect  Dialect
	conn     *websocket.Conn
}

func newWebsocketTransport(c *client.Client, endpoint string, d Dialect) *websocketTransport {
	return &websocketTransport{http: c, endpoint: endpoint, dialect: d}
}

func (t *websocketTransport) Kind() model.Transport { return model.TransportPersistent }

func (t *websocketTransport) Open(ctx context.Context) (openInfo, []string, error) {
	httpURL, err := url.Parse(t.endpoint)
	if err != nil {
		return openInfo{}, nil, err
	}

	wsURL := *httpURL
	switch httpURL.Scheme {
	case "https":
		wsURL.Scheme = "wss"
	default:
		wsURL.Scheme = "ws"
	}
	q := url.Values{}
	q.Set("EIO", strconv.Itoa(t.dialect.EIO))
	q.Set("transport", "websocket")
	q.Set("t", utils.AntiCacheToken())
	wsURL.RawQuery = q.Encode()

	origin := httpURL.Scheme + "://" + httpURL.Host
	cfg, err := websocket.NewConfig(wsURL.String(), origin)
	if err != nil {
		return openInfo{}, nil, err
	}
	cfg.Header.Set("User-Agent", t.http.UserAgent())
	if cookie := t.http.CookieHeader(httpURL); cookie != "" {
		cfg.Header.Set("Cookie", cookie)
	}

	raw, err := t.http.Dialer().DialContext(ctx, "tcp", hostPort(httpURL))
	if err != nil {
		return openInfo{}, nil, fmt.Errorf("dial %s: %w", httpURL.Host, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = raw.SetDeadline(deadline)
	}

	conn := raw
	if wsURL.Scheme == "wss" {
		tlsCfg := t.http.TLSConfig().Clone()
		tlsCfg.ServerName = httpURL.Hostname()
		tlsConn := tls.Client(raw, tlsCfg)
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			raw.Close()
			return openInfo{}, nil, fmt.Errorf("tls handshake: %w", err)
		}
		conn = tlsConn
	}

	ws, err := websocket.NewClient(cfg, conn)
	if err != nil {
		conn.Close()
		return openInfo{}, nil, fmt.Errorf("websocket upgrade: %w", err)
	}
	_ = conn.SetDeadline(time.Time{})
	t.conn = ws

	packets, err := t.Receive(ctx)
	if err != nil {
		return openInfo{}, nil, err
	}
	info, err := parseOpen(packets[0])
	if err != nil {
		return openInfo{}, nil, err
	}
	return info, nil, nil
}

func (t *websocketTransport) Send(ctx context.Context, packets ...string) error {
	if t.conn == nil {
		return fmt.Errorf("websocket not open")
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = t.conn.SetWriteDeadline(deadline)
	}
	for _, p := range packets {
		if err := websocket.Message.Send(t.conn, p); err != nil {
			return err
		}
	}
	return nil
}

func (t *websocketTransport) Receive(ctx context.Context) ([]string, error) {
	if t.conn == nil {
		return nil, fmt.Errorf("websocket not open")
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Time{}
	}
	_ = t.conn.SetReadDeadline(deadline)

	var msg string
	if err := websocket.Message.Receive(t.conn, &msg); err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("websocket receive: %w", context.DeadlineExceeded)
		}
		return nil, err
	}
	return []string{msg}, nil
}

func (t *websocketTransport) Close() error {
	if t.conn == nil {
		return nil
	}
	_ = t.conn.SetWriteDeadline(time.Now().Add(time.Second))
	_ = websocket.Message.Send(t.conn, closePacket)
	return t.conn.Close()
}

func hostPort(u *url.URL) string {
	if u.Port() != "" {
		return u.Host
	}
	if u.Scheme == "https" {
		return net.JoinHostPort(u.Hostname(), "443")
	}
	return net.JoinHostPort(u.Hostname(), "80")
}
