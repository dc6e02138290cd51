package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// EnvLoader .env 文件加载器
// 已存在的环境变量不会被覆盖
type EnvLoader struct {
	envFiles []string
}

// NewEnvLoader 未指定文件时读取当前目录的 .env
func NewEnvLoader(envFiles ...string) *EnvLoader {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	return &EnvLoader{envFiles: envFiles}
}

// Load 依次加载，缺失的文件跳过
func (e *EnvLoader) Load() error {
	for _, envFile := range e.envFiles {
		if err := e.loadEnvFile(envFile); err != nil {
			return err
		}
	}
	return nil
}

func (e *EnvLoader) loadEnvFile(envFile string) error {
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(envFile); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", envFile, err)
	}
	return nil
}

// LoadEnvFiles 便捷函数
func LoadEnvFiles(envFiles ...string) error {
	return NewEnvLoader(envFiles...).Load()
}
