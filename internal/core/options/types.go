package options

import (
	"padscan/internal/config"
)

// TaskOption 定义所有指令参数结构体必须实现的接口
type TaskOption interface {
	// Validate 验证参数合法性
	Validate() error

	// ApplyTo 命令行参数覆盖配置文件与环境变量中的同名配置，只覆盖显式给出的值
	ApplyTo(cfg *config.Config)
}
