package dialer

import (
	"context"
	"net"
	"time"
)

// Dialer 网络连接器，HTTP 客户端与 websocket 共用
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// DefaultDialer 直连
type DefaultDialer struct {
	Timeout time.Duration
}

func NewDefaultDialer(timeout time.Duration) *DefaultDialer {
	return &DefaultDialer{Timeout: timeout}
}

func (d *DefaultDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	nd := &net.Dialer{Timeout: d.Timeout}
	return nd.DialContext(ctx, network, address)
}

// New 按代理地址选择拨号器，proxyAddr 为空时直连
func New(proxyAddr string, timeout time.Duration) (Dialer, error) {
	if proxyAddr == "" {
		return NewDefaultDialer(timeout), nil
	}
	return NewProxyDialer(proxyAddr, timeout)
}
