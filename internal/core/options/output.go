package options

import (
	"fmt"
	"os"
	"path/filepath"
)

// OutputOptions 定义结果输出的通用参数
type OutputOptions struct {
	OutputJson string // -oj, --output-json
	OutputCsv  string // -oc, --output-csv
}

// Validate 输出目录必须已存在
func (o *OutputOptions) Validate() error {
	for _, path := range []string{o.OutputJson, o.OutputCsv} {
		if path == "" {
			continue
		}
		dir := filepath.Dir(path)
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("output directory %s: %w", dir, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("output directory %s is not a directory", dir)
		}
	}
	return nil
}
