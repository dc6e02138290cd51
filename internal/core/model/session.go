package model

import "sort"

// Transport 握手使用的传输方式
type Transport int

const (
	TransportPolling    Transport = iota // HTTP 长轮询
	TransportPersistent                  // websocket
)

func (t Transport) String() string {
	if t == TransportPersistent {
		return "websocket"
	}
	return "polling"
}

// HandshakeSession 一次 socket.io 握手的会话信息
type HandshakeSession struct {
	SessionID     string    `json:"session_id"`
	ProtocolMajor int       `json:"protocol_major"`
	Transport     Transport `json:"-"`
}

// PluginManifest 插件名 -> 插件版本，不含 ep_etherpad-lite 本身
type PluginManifest map[string]string

// Names 按名称排序
func (m PluginManifest) Names() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
