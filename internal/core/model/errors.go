package model

import (
	"errors"
	"fmt"
)

var (
	// ErrInstanceNotFound 目标路径及其所有父路径都不像实例
	ErrInstanceNotFound = errors.New("no etherpad instance found")
	// ErrInstanceNotPublic 实例要求认证，拒绝匿名访问 pad
	ErrInstanceNotPublic = errors.New("pads are not publicly accessible")
	// ErrUndeterminedVersion 没有任何探测器给出版本证据
	ErrUndeterminedVersion = errors.New("version could not be determined")
)

// HandshakeError socket.io 握手在某个阶段失败
type HandshakeError struct {
	Stage string // open, connect, ready, await
	Err   error
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("handshake failed at %s: %v", e.Stage, e.Err)
}

func (e *HandshakeError) Unwrap() error { return e.Err }

// HealthResponseError /health 无法使用
type HealthResponseError struct {
	Reason string
}

func (e *HealthResponseError) Error() string {
	return "Health check was not successful: " + e.Reason
}

// ProbeError 单个探测器失败，不影响其余探测
type ProbeError struct {
	Probe ProbeName
	Err   error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("%s probe: %v", e.Probe, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }
