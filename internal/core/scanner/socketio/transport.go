package socketio

import (
	"context"
	"errors"
	"net"

	"padscan/internal/core/model"
)

// transport engine.io 传输层
type transport interface {
	// Open 建立会话，返回 open 包信息以及同一响应中附带的其余包
	Open(ctx context.Context) (openInfo, []string, error)
	Send(ctx context.Context, packets ...string) error
	// Receive 阻塞直到收到至少一个包或 ctx 到期
	Receive(ctx context.Context) ([]string, error)
	Close() error
	Kind() model.Transport
}

// isTimeout ctx 到期或底层读超时
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
