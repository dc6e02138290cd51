package socketio

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/tidwall/gjson"
)

// engine.io 包类型
const (
	packetOpen    = '0'
	packetClose   = '1'
	packetPing    = '2'
	packetPong    = '3'
	packetMessage = '4'
	packetNoop    = '6'
)

// socket.io 包类型，紧跟在 engine.io message 之后
const (
	socketConnect    = '0'
	socketDisconnect = '1'
	socketEvent      = '2'
	socketError      = '4'
)

const recordSeparator = "\x1e"

// 常用的整包
const (
	connectPacket = "40"
	closePacket   = "1"
)

// EncodePayload 拼接一次轮询请求体
// 长度前缀按 UTF-16 码元计数，与服务端 JS 字符串长度一致
func (d Dialect) EncodePayload(packets ...string) string {
	if !d.LengthPrefixed {
		return strings.Join(packets, recordSeparator)
	}
	var sb strings.Builder
	for _, p := range packets {
		sb.WriteString(strconv.Itoa(utf16Len(p)))
		sb.WriteByte(':')
		sb.WriteString(p)
	}
	return sb.String()
}

// DecodePayload 拆分一次轮询响应体
func (d Dialect) DecodePayload(body string) ([]string, error) {
	if !d.LengthPrefixed {
		var packets []string
		for _, p := range strings.Split(body, recordSeparator) {
			if p != "" {
				packets = append(packets, p)
			}
		}
		return packets, nil
	}

	var packets []string
	rest := body
	for len(rest) > 0 {
		colon := strings.IndexByte(rest, ':')
		if colon <= 0 {
			return nil, fmt.Errorf("malformed payload: missing length prefix near %q", truncate(rest, 16))
		}
		n, err := strconv.Atoi(rest[:colon])
		if err != nil || n < 0 {
			return nil, fmt.Errorf("malformed payload: invalid length %q", rest[:colon])
		}
		data := rest[colon+1:]
		end, ok := packetEnd(data, n)
		if !ok {
			return nil, fmt.Errorf("malformed payload: declared length %d exceeds data", n)
		}
		packets = append(packets, data[:end])
		rest = data[end:]
	}
	return packets, nil
}

// packetEnd 计算声明长度为 n 的包在 data 中的字节结束位置
// 依次按 UTF-16 码元、字符、字节解释长度，取第一个能落在包边界上的结果
func packetEnd(data string, n int) (int, bool) {
	candidates := []int{utf16Offset(data, n), runeOffset(data, n), byteOffset(data, n)}

	first := -1
	for _, c := range candidates {
		if c < 0 {
			continue
		}
		if first < 0 {
			first = c
		}
		if atBoundary(data[c:]) {
			return c, true
		}
	}
	if first < 0 {
		return 0, false
	}
	return first, true
}

// atBoundary 剩余部分为空或以 "<digits>:" 开头
func atBoundary(rest string) bool {
	if rest == "" {
		return true
	}
	i := 0
	for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
		i++
	}
	return i > 0 && i < len(rest) && rest[i] == ':'
}

func utf16Offset(s string, n int) int {
	units := 0
	for i, r := range s {
		if units == n {
			return i
		}
		if w := len(utf16.Encode([]rune{r})); w > 0 {
			units += w
		} else {
			units++
		}
		if units > n {
			return -1
		}
	}
	if units == n {
		return len(s)
	}
	return -1
}

func runeOffset(s string, n int) int {
	count := 0
	for i := range s {
		if count == n {
			return i
		}
		count++
	}
	if count == n {
		return len(s)
	}
	return -1
}

func byteOffset(s string, n int) int {
	if n <= len(s) {
		return n
	}
	return -1
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		if w := len(utf16.Encode([]rune{r})); w > 0 {
			n += w
		} else {
			n++
		}
	}
	return n
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// openInfo engine.io open 包
type openInfo struct {
	SID          string   `json:"sid"`
	Upgrades     []string `json:"upgrades"`
	PingInterval int      `json:"pingInterval"`
	PingTimeout  int      `json:"pingTimeout"`
}

func parseOpen(packet string) (openInfo, error) {
	var info openInfo
	if packet == "" || packet[0] != packetOpen {
		return info, fmt.Errorf("expected open packet, got %q", truncate(packet, 32))
	}
	if err := json.Unmarshal([]byte(packet[1:]), &info); err != nil {
		return info, fmt.Errorf("decode open packet: %w", err)
	}
	if info.SID == "" {
		return info, fmt.Errorf("open packet without sid")
	}
	return info, nil
}

// encodeEvent 默认命名空间下的事件包 42["name",payload]
func encodeEvent(name string, payload interface{}) (string, error) {
	data, err := json.Marshal([]interface{}{name, payload})
	if err != nil {
		return "", fmt.Errorf("encode event %s: %w", name, err)
	}
	return string(packetMessage) + string(socketEvent) + string(data), nil
}

// socketPacket 解析后的 socket.io 包
type socketPacket struct {
	Type      byte
	Namespace string // 默认命名空间为 "/"
	Data      string
}

// parseSocketPacket 解析 engine.io message 中的 socket.io 包
func parseSocketPacket(packet string) (socketPacket, bool) {
	if len(packet) < 2 || packet[0] != packetMessage {
		return socketPacket{}, false
	}
	sp := socketPacket{Type: packet[1], Namespace: "/"}
	rest := packet[2:]

	if strings.HasPrefix(rest, "/") {
		comma := strings.IndexByte(rest, ',')
		if comma < 0 {
			sp.Namespace = rest
			return sp, true
		}
		sp.Namespace = rest[:comma]
		rest = rest[comma+1:]
	}

	// 跳过 ack id
	i := 0
	for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
		i++
	}
	sp.Data = rest[i:]
	return sp, true
}

// parseEvent 默认命名空间的事件，返回事件名与第一个参数
func parseEvent(packet string) (string, gjson.Result, bool) {
	sp, ok := parseSocketPacket(packet)
	if !ok || sp.Type != socketEvent || sp.Namespace != "/" {
		return "", gjson.Result{}, false
	}
	if !gjson.Valid(sp.Data) {
		return "", gjson.Result{}, false
	}
	args := gjson.Parse(sp.Data)
	if !args.IsArray() {
		return "", gjson.Result{}, false
	}
	name := args.Get("0")
	if name.Type != gjson.String {
		return "", gjson.Result{}, false
	}
	return name.String(), args.Get("1"), true
}
