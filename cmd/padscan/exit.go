package main

import (
	"fmt"

	"padscan/internal/core/model"
)

// 退出码
const (
	exitFatal        = 1 // 找不到实例、无法判定版本或其他错误
	exitInconsistent = 2 // 版本证据互相矛盾
	exitMismatch     = 3 // 版本结论不包含 --expect
)

// exitError 结果已经输出，只需以指定状态退出
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// scanExitCode 多个目标取最严重的情况
func scanExitCode(results []*model.TaskResult, expect string) int {
	code := 0
	for _, res := range results {
		if res.Status != model.TaskStatusCompleted || res.Report == nil || res.Report.Verdict == nil {
			return exitFatal
		}
		verdict := *res.Report.Verdict
		switch {
		case verdict.IsInconsistent():
			code = exitInconsistent
		case expect != "" && !verdict.Contains(expect) && code == 0:
			code = exitMismatch
		}
	}
	return code
}
