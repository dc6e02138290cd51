package pipeline

import (
	"fmt"

	"padscan/internal/core/scanner/locator"
	"padscan/internal/pkg/logger"
	"padscan/internal/pkg/utils"
)

// GenerateTargets 目标生成器
// 每个输入可以是 URL、逗号分隔的 URL 列表或按行列出 URL 的文件
// 输出规范化后的 URL，保序去重，无法解析的输入记录 warn 后跳过
func GenerateTargets(inputs ...string) <-chan string {
	out := make(chan string, 100) // 带缓冲的 Channel

	go func() {
		defer close(out)

		seen := make(map[string]struct{})
		for _, input := range inputs {
			for _, item := range utils.LoadList(input) {
				u, err := locator.Normalize(item)
				if err != nil {
					logger.Warn(fmt.Sprintf("Skipping invalid target: %s (%v)", item, err))
					continue
				}
				target := u.String()
				if _, ok := seen[target]; ok {
					continue
				}
				seen[target] = struct{}{}
				out <- target
			}
		}
	}()

	return out
}
