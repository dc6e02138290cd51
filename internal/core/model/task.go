/**
 * 批量扫描任务模型
 * @description: BatchRunner 为每个目标生成一个 Task，结束后产出 TaskResult
 */

package model

import (
	"time"

	"padscan/internal/pkg/utils"
)

// TaskStatus 定义任务状态
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// Task 单个目标的扫描任务
type Task struct {
	ID        string        `json:"id"`
	Target    string        `json:"target"`
	Timeout   time.Duration `json:"timeout"`
	CreatedAt time.Time     `json:"created_at"`
}

// NewTask 创建任务
func NewTask(target string, timeout time.Duration) *Task {
	id, _ := utils.GenerateUUID()
	return &Task{
		ID:        id,
		Target:    target,
		Timeout:   timeout,
		CreatedAt: time.Now(),
	}
}

// TaskResult 任务执行结果
type TaskResult struct {
	TaskID    string      `json:"task_id"`
	Target    string      `json:"target"`
	Status    TaskStatus  `json:"status"`
	Report    *ScanReport `json:"report,omitempty"`
	Error     string      `json:"error,omitempty"`
	StartTime time.Time   `json:"start_time"`
	EndTime   time.Time   `json:"end_time"`
}
