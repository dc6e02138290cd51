/*
 * @description: 随机标识生成
 * @func: 探测 pad 标识、防缓存令牌
 */

package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

var uuidSimpleRegex = regexp.MustCompile(`^[0-9a-f]{32}$`)

// GenerateUUID 生成UUID v4（基于随机数）
func GenerateUUID() (string, error) {
	uuid := make([]byte, 16)
	if _, err := rand.Read(uuid); err != nil {
		return "", fmt.Errorf("生成随机数失败: %v", err)
	}

	// 版本号 0100 与 RFC4122 变体
	uuid[6] = (uuid[6] & 0x0f) | 0x40
	uuid[8] = (uuid[8] & 0x3f) | 0x80

	return fmt.Sprintf("%08x-%04x-%04x-%04x-%012x",
		uuid[0:4], uuid[4:6], uuid[6:8], uuid[8:10], uuid[10:16]), nil
}

// GenerateSimpleUUID 生成不含连字符的32位十六进制UUID
func GenerateSimpleUUID() (string, error) {
	uuid, err := GenerateUUID()
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(uuid, "-", ""), nil
}

// GenerateProbeID 生成用于探测的 pad 名称
// 每次扫描唯一，探测只读取页面，不会在目标实例上写入内容
func GenerateProbeID() (string, error) {
	return GenerateSimpleUUID()
}

// IsProbeID 校验是否为 GenerateProbeID 的输出格式
func IsProbeID(id string) bool {
	return uuidSimpleRegex.MatchString(id)
}

const tokenAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz-_"

// AntiCacheToken 生成轮询请求的 t 参数，避免中间代理缓存
func AntiCacheToken() string {
	var sb strings.Builder
	max := big.NewInt(int64(len(tokenAlphabet)))
	for i := 0; i < 7; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			sb.WriteByte('0')
			continue
		}
		sb.WriteByte(tokenAlphabet[n.Int64()])
	}
	return sb.String()
}
