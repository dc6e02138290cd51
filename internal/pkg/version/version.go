// ### 发布流程
// 1. **更新版本号**：修改 `internal/pkg/version/version.go`
// 2. **更新指纹数据**：`padscan revisions update` 与 `internal/pkg/fingerprint/tables.yaml`
// 3. **推送代码和 Tag**：推送到远程仓库

package version

import (
	"strings"

	goversion "github.com/hashicorp/go-version"
)

var (
	Version   = "1.0.0" // 版本号 -- 发布时候更新版本号
	BuildTime string
	GitCommit string
	GoVersion string
)

func GetVersion() string {
	return Version
}

// GetUserAgent 扫描请求使用的 User-Agent
func GetUserAgent() string {
	return "padscan/" + Version
}

// Compare 按语义化版本比较 a 与 b
// a < b 返回 -1，a == b 返回 0，a > b 返回 1
// "1.8" 与 "1.8.0" 视为相等；任一方无法解析时退化为字符串比较
func Compare(a, b string) int {
	va, errA := goversion.NewVersion(a)
	vb, errB := goversion.NewVersion(b)
	if errA != nil || errB != nil {
		return strings.Compare(a, b)
	}
	return va.Compare(vb)
}

// LessOrEqual a <= b
func LessOrEqual(a, b string) bool {
	return Compare(a, b) <= 0
}

// AtLeast a >= b
func AtLeast(a, b string) bool {
	return Compare(a, b) >= 0
}

// Normalize 去掉 tag 名常见的 "v" 前缀
func Normalize(tag string) string {
	tag = strings.TrimSpace(tag)
	if len(tag) > 1 && (tag[0] == 'v' || tag[0] == 'V') && tag[1] >= '0' && tag[1] <= '9' {
		return tag[1:]
	}
	return tag
}
