package reporter

import (
	"encoding/json"
	"fmt"
	"os"

	"padscan/internal/core/model"
)

// SaveJsonResult 保存全部任务结果为缩进 JSON 数组
func SaveJsonResult(path string, results []*model.TaskResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create json file: %v", err)
	}
	defer f.Close()

	if results == nil {
		results = []*model.TaskResult{}
	}

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(results); err != nil {
		return fmt.Errorf("failed to encode json: %v", err)
	}
	return nil
}
