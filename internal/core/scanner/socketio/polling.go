package socketio

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"padscan/internal/core/model"
	"padscan/internal/pkg/client"
	"padscan/internal/pkg/utils"
)

const pollingContentType = "text/plain;charset=UTF-8"

// pollingTransport HTTP 长轮询
type pollingTransport struct {
	http     *client.Client
	endpoint string // .../socket.io/
	dialect  Dialect
	sid      string
}

func newPollingTransport(c *client.Client, endpoint string, d Dialect) *pollingTransport {
	return &pollingTransport{http: c, endpoint: endpoint, dialect: d}
}

func (t *pollingTransport) Kind() model.Transport { return model.TransportPolling }

// url 每次请求携带新的防缓存令牌
func (t *pollingTransport) url() string {
	q := url.Values{}
	q.Set("EIO", strconv.Itoa(t.dialect.EIO))
	q.Set("transport", "polling")
	q.Set("t", utils.AntiCacheToken())
	q.Set("b64", "1")
	if t.sid != "" {
		q.Set("sid", t.sid)
	}
	return t.endpoint + "?" + q.Encode()
}

func (t *pollingTransport) Open(ctx context.Context) (openInfo, []string, error) {
	packets, err := t.get(ctx)
	if err != nil {
		return openInfo{}, nil, err
	}
	if len(packets) == 0 {
		return openInfo{}, nil, fmt.Errorf("empty open response")
	}
	info, err := parseOpen(packets[0])
	if err != nil {
		return openInfo{}, nil, err
	}
	t.sid = info.SID
	return info, packets[1:], nil
}

func (t *pollingTransport) Send(ctx context.Context, packets ...string) error {
	body := t.dialect.EncodePayload(packets...)
	resp, err := t.http.Post(ctx, t.url(), pollingContentType, []byte(body))
	if err != nil {
		return err
	}
	if !resp.OK() {
		return fmt.Errorf("polling send: unexpected status %d: %s", resp.StatusCode, truncate(string(resp.Body), 64))
	}
	return nil
}

func (t *pollingTransport) Receive(ctx context.Context) ([]string, error) {
	return t.get(ctx)
}

func (t *pollingTransport) get(ctx context.Context) ([]string, error) {
	resp, err := t.http.Get(ctx, t.url())
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, fmt.Errorf("polling receive: unexpected status %d: %s", resp.StatusCode, truncate(string(resp.Body), 64))
	}
	return t.dialect.DecodePayload(string(resp.Body))
}

// Close 尽力发送 close 包
func (t *pollingTransport) Close() error {
	if t.sid == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return t.Send(ctx, closePacket)
}
