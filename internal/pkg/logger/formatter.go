// 结构化日志辅助
package logger

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// FormatTimestamp 统一的毫秒精度时间格式
func FormatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05.000")
}

// LogType 日志类型
type LogType string

const (
	// ScanLog 单个目标的扫描生命周期
	ScanLog LogType = "scan"
	// ProbeLog 单个探测器的执行结果
	ProbeLog LogType = "probe"
	// SystemLog 配置加载、数据热更新等
	SystemLog LogType = "system"
	// AccessLog 测试桩服务的访问记录
	AccessLog LogType = "access"
)

// LogScanOperation 记录扫描状态变化
// status: running, completed, failed
func LogScanOperation(taskID, target, status string, duration time.Duration, extraFields map[string]interface{}) {
	if LoggerInstance == nil {
		return
	}

	fields := logrus.Fields{
		"type":     ScanLog,
		"task_id":  taskID,
		"target":   target,
		"status":   status,
		"duration": duration.Milliseconds(),
	}
	for k, v := range extraFields {
		fields[k] = v
	}

	entry := LoggerInstance.logger.WithFields(fields)
	switch status {
	case "completed":
		entry.Info(fmt.Sprintf("Scan completed: %s", target))
	case "failed":
		entry.Error(fmt.Sprintf("Scan failed: %s", target))
	case "running":
		entry.Debug(fmt.Sprintf("Scan running: %s", target))
	default:
		entry.Info(fmt.Sprintf("Scan %s: %s", status, target))
	}
}

// LogProbeResult 记录探测器结果，err 非空时记为 warn
func LogProbeResult(probe, target string, err error, extraFields map[string]interface{}) {
	if LoggerInstance == nil {
		return
	}

	fields := logrus.Fields{
		"type":   ProbeLog,
		"probe":  probe,
		"target": target,
	}
	for k, v := range extraFields {
		fields[k] = v
	}

	entry := LoggerInstance.logger.WithFields(fields)
	if err != nil {
		entry.WithError(err).Warn(fmt.Sprintf("Probe %s failed on %s", probe, target))
		return
	}
	entry.Debug(fmt.Sprintf("Probe %s finished on %s", probe, target))
}

// LogSystemEvent 记录系统事件
func LogSystemEvent(component, event, message string, level logrus.Level, extraFields map[string]interface{}) {
	if LoggerInstance == nil {
		return
	}

	fields := logrus.Fields{
		"type":      SystemLog,
		"component": component,
		"event":     event,
	}
	for k, v := range extraFields {
		fields[k] = v
	}
	LoggerInstance.logger.WithFields(fields).Log(level, fmt.Sprintf("System event: %s - %s: %s", component, event, message))
}

// GinAccessLogger gin 访问日志中间件
func GinAccessLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if LoggerInstance == nil {
			return
		}
		LoggerInstance.logger.WithFields(logrus.Fields{
			"type":          AccessLog,
			"method":        c.Request.Method,
			"path":          c.Request.URL.Path,
			"query":         c.Request.URL.RawQuery,
			"status_code":   c.Writer.Status(),
			"response_time": time.Since(start).Milliseconds(),
		}).Debug("HTTP request")
	}
}
