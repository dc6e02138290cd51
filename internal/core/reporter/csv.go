package reporter

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"sync"

	"padscan/internal/core/model"
)

// CsvReporter 逐条追加写入 CSV，首条结果写入时确定表头
type CsvReporter struct {
	FilePath string
	mu       sync.Mutex
	file     *os.File
	writer   *csv.Writer
}

func NewCsvReporter(filePath string) *CsvReporter {
	return &CsvReporter{
		FilePath: filePath,
	}
}

func (r *CsvReporter) Report(ctx context.Context, result *model.TaskResult) error {
	if result == nil || result.Report == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.writer == nil {
		f, err := os.Create(r.FilePath)
		if err != nil {
			return fmt.Errorf("failed to create csv file: %v", err)
		}
		// 写入 UTF-8 BOM，防止 Excel 打开乱码
		if _, err := f.WriteString("\xEF\xBB\xBF"); err != nil {
			f.Close()
			return err
		}
		r.file = f
		r.writer = csv.NewWriter(f)
		if err := r.writer.Write(result.Report.Headers()); err != nil {
			return fmt.Errorf("failed to write headers: %v", err)
		}
	}

	if err := r.writer.WriteAll(result.Report.Rows()); err != nil {
		return fmt.Errorf("failed to write rows: %v", err)
	}
	return nil
}

// Close 刷新并关闭文件
func (r *CsvReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return nil
	}
	r.writer.Flush()
	err := r.writer.Error()
	if cerr := r.file.Close(); err == nil {
		err = cerr
	}
	r.file, r.writer = nil, nil
	return err
}
