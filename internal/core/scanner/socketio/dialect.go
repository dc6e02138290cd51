/**
 * socket.io 协议方言
 * @description: Etherpad 各代版本使用的 socket.io / engine.io 组合
 *   1.x -> EIO=2, 2.x/3.x -> EIO=3, 4.x -> EIO=4
 */

package socketio

import (
	"fmt"

	"padscan/internal/pkg/version"
)

const (
	// legacyAPIVersion 及以下的 API 版本对应 socket.io 1.x
	legacyAPIVersion = "1.2.13"
	// modernRelease 起 Etherpad 使用 socket.io 4.x
	modernRelease = "2.0.0"
)

// Dialect 一个 socket.io 主版本的传输细节
type Dialect struct {
	Major          int  // socket.io 主版本
	EIO            int  // engine.io 协议版本
	LengthPrefixed bool // 轮询负载使用 "<len>:<packet>" 拼接，否则以 0x1e 分隔
}

// DialectFor 主版本 3 与 2 的线上格式相同
func DialectFor(major int) (Dialect, error) {
	switch major {
	case 1:
		return Dialect{Major: 1, EIO: 2, LengthPrefixed: true}, nil
	case 2, 3:
		return Dialect{Major: major, EIO: 3, LengthPrefixed: true}, nil
	case 4:
		return Dialect{Major: 4, EIO: 4}, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported socket.io major version %d", major)
	}
}

// SelectMajor 按 API 版本与当前版本下界选择主版本
// apiVersion 为空视为足够新；lowerBound 为空视为很旧
func SelectMajor(apiVersion, lowerBound string) int {
	if apiVersion == "" {
		apiVersion = "999"
	}
	if version.LessOrEqual(apiVersion, legacyAPIVersion) {
		return 1
	}
	if lowerBound == "" {
		lowerBound = "0.1"
	}
	if version.AtLeast(lowerBound, modernRelease) {
		return 4
	}
	return 2
}
