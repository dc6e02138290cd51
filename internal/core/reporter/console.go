package reporter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pterm/pterm" // 引入 pterm 库用于控制台输出

	"padscan/internal/core/model"
)

// modernRelease 低于该版本给出升级提示
const modernRelease = "2.0.0"

// ConsoleReporter 扫描结束后的汇总表
type ConsoleReporter struct {
	w io.Writer
}

func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{w: os.Stdout}
}

// WithWriter 测试或重定向输出时使用
func (r *ConsoleReporter) WithWriter(w io.Writer) *ConsoleReporter {
	r.w = w
	return r
}

func (r *ConsoleReporter) Report(ctx context.Context, result *model.TaskResult) error {
	// 如果结果为空，不输出
	if result == nil || result.Report == nil {
		return nil
	}
	return r.printTable(result.Report)
}

// PrintResults 这是一个 helper 方法，用于直接打印结果列表 (适配 CLI 的逻辑)
func (r *ConsoleReporter) PrintResults(results []*model.TaskResult) {
	if len(results) == 0 {
		pterm.Fprintln(r.w, pterm.Warning.Sprint("No results found."))
		return
	}

	var headers []string
	var allRows [][]string
	for _, res := range results {
		if res.Report == nil {
			continue
		}
		if len(headers) == 0 {
			headers = res.Report.Headers()
		}
		allRows = append(allRows, res.Report.Rows()...)
	}
	if err := r.printTableFromData(headers, allRows); err != nil {
		pterm.Fprintln(r.w, pterm.Error.Sprint(err))
	}
}

func (r *ConsoleReporter) printTable(data TabularData) error {
	return r.printTableFromData(data.Headers(), data.Rows())
}

func (r *ConsoleReporter) printTableFromData(headers []string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}

	// 使用 pterm 渲染表格
	tableData := pterm.TableData{headers}
	tableData = append(tableData, rows...)

	out, err := pterm.DefaultTable.
		WithHasHeader(true).
		WithBoxed(false). // 简洁风格
		WithData(tableData).
		Srender()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	pterm.Fprintln(r.w, out)
	return nil
}

// ConsoleSink 实时打印单个目标的扫描过程
// 每个目标使用独立实例
type ConsoleSink struct {
	w          io.Writer
	adminTitle bool
}

func NewConsoleSink(w io.Writer) *ConsoleSink {
	if w == nil {
		w = os.Stdout
	}
	return &ConsoleSink{w: w}
}

// sprinter pterm 各类 printer 的共同子集
type sprinter interface {
	Sprint(a ...any) string
}

func (c *ConsoleSink) println(printer sprinter, msg string) {
	if s := printer.Sprint(msg); s != "" {
		pterm.Fprintln(c.w, s)
	}
}

func (c *ConsoleSink) Emit(e model.Event) {
	switch ev := e.(type) {
	case model.ScanStarted:
		c.adminTitle = false
		c.println(&pterm.DefaultSection, "Scanning "+ev.Target)
		c.println(&pterm.Debug, "probe id: "+ev.ProbeID)
	case model.InstanceLocated:
		c.println(&pterm.Info, fmt.Sprintf("Instance found at %s (pad prefix %q)", ev.Location.BaseURL, ev.Location.MountPrefix))
	case model.RevisionFound:
		c.println(&pterm.Info, "Revision in server header: "+ev.Revision)
	case model.RevisionResolved:
		if !ev.Info.CommitDate.IsZero() {
			c.println(&pterm.Info, "commit date: "+ev.Info.CommitDate.Format(time.RFC3339))
		}
		if ev.Info.Version != "" {
			c.println(&pterm.Info, "Revision belongs to version "+ev.Info.Version)
		}
	case model.APIVersionFound:
		msg := "api version: " + ev.APIVersion
		if !ev.Known {
			msg += " (unknown)"
		}
		c.println(&pterm.Info, msg)
	case model.AssetFingerprinted:
		c.println(&pterm.Debug, fmt.Sprintf("%s %s %s", ev.Path, orDash(ev.Hash), rangeText(ev.Range, ev.Known)))
	case model.PadStarted:
		c.println(&pterm.DefaultSection, "Starting scan of a pad...")
		c.println(&pterm.Debug, fmt.Sprintf("socket.io v%d over %s", ev.ProtocolMajor, ev.Transport))
	case model.PadAccessible:
		c.println(&pterm.Success, "Pads are publicly accessible")
		c.println(&pterm.Info, "Package version: "+ev.Version)
	case model.PadTimedOut:
		c.println(&pterm.Warning, "No client vars received from pad")
	case model.PluginsFound:
		c.printPlugins(ev.Plugins)
	case model.HealthReported:
		if ev.Status == "pass" {
			c.println(&pterm.Success, "Server is healthy")
		} else {
			c.println(&pterm.Error, fmt.Sprintf("Health: status=%s releaseId=%s", ev.Status, ev.ReleaseID))
		}
	case model.VersionResolved:
		c.printVerdict(ev.Verdict)
	case model.StatsReported:
		c.printStats(ev.Stats)
	case model.AdminChecked:
		if !c.adminTitle {
			c.adminTitle = true
			c.println(&pterm.DefaultSection, "Starting scan of admin area...")
		}
		who := ev.Result.User + " / " + ev.Result.Password
		if ev.Result.Accessible {
			c.println(&pterm.Error, "Admin area is accessible with "+who)
		} else {
			c.println(&pterm.Success, "Admin area is not accessible with "+who)
		}
	case model.ProbeFailed:
		c.println(&pterm.Error, ev.Err.Error())
	case model.ScanFinished:
		if ev.Err != nil {
			if errors.Is(ev.Err, model.ErrUndeterminedVersion) {
				c.println(&pterm.Info, "Could not determine version")
			}
			c.println(&pterm.Error, ev.Err.Error())
		}
	}
}

func (c *ConsoleSink) printPlugins(plugins model.PluginManifest) {
	if len(plugins) == 0 {
		c.println(&pterm.Info, "No plugins found")
		return
	}
	items := make([]pterm.BulletListItem, 0, len(plugins))
	for _, name := range plugins.Names() {
		items = append(items, pterm.BulletListItem{Level: 0, Text: name + "@" + plugins[name]})
	}
	list, err := pterm.DefaultBulletList.WithItems(items).Srender()
	if err != nil {
		return
	}
	pterm.Fprintln(c.w, "Plugins:")
	pterm.Fprint(c.w, list)
}

// printVerdict 与区间两端是否有界对应的四种说法
func (c *ConsoleSink) printVerdict(v model.VersionVerdict) {
	switch {
	case v.IsUndetermined():
		c.println(&pterm.Info, "Could not determine version")
		return
	case v.Max == "":
		c.println(&pterm.Info, "Version greater than "+v.Min)
		return
	}

	if v.Outdated(modernRelease) {
		c.println(&pterm.Error, "You have an old version of etherpad! Please update to "+modernRelease+" or newer!")
	}
	switch {
	case v.Min == "":
		c.println(&pterm.Info, "Version less than "+v.Max)
	case v.IsInconsistent():
		c.println(&pterm.Error, fmt.Sprintf("Version signals are inconsistent: %s > %s", v.Min, v.Max))
	case v.IsExact():
		c.println(&pterm.Info, "Version is "+v.Max)
	default:
		c.println(&pterm.Info, "Version between "+v.Min+" and "+v.Max)
	}
}

func (c *ConsoleSink) printStats(s model.ServerStats) {
	if !s.StartTime.IsZero() {
		c.println(&pterm.Info, "Server running since: "+s.StartTime.UTC().Format(time.RFC3339))
	}
	if s.WritesFailed > 0 {
		c.println(&pterm.Error, fmt.Sprintf("Database writes failed: %d", s.WritesFailed))
	}
	if s.ReadsFailed > 0 {
		c.println(&pterm.Error, fmt.Sprintf("Database reads failed: %d", s.ReadsFailed))
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func rangeText(rg model.VersionRange, known bool) string {
	if !known {
		return "unknown"
	}
	return rg.String()
}
