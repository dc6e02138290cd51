package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"padscan/internal/core/factory"
	"padscan/internal/core/model"
	"padscan/internal/core/options"
	"padscan/internal/core/pipeline"
	"padscan/internal/core/reporter"
	"padscan/internal/pkg/client"
)

// NewScanCmd 创建 scan 命令
func NewScanCmd() *cobra.Command {
	opts := options.NewScanOptions()

	cmd := &cobra.Command{
		Use:   "scan [url...]",
		Short: "扫描 Etherpad 实例",
		Long: `定位实例根路径后依次探测 api、静态文件、pad 握手、health，得出版本结论，
再读取 stats 并检查管理后台默认凭据。

退出码: 0 正常; 1 找不到实例或无法判定版本; 2 版本证据矛盾; 3 版本与 --expect 不符`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Targets = args
			opts.InsecureSet = cmd.Flags().Changed("insecure")
			if err := opts.Validate(); err != nil {
				return err
			}
			return runScan(cmd, opts)
		},
	}

	// 绑定 Flags
	flags := cmd.Flags()
	flags.StringVarP(&opts.TargetFile, "file", "f", "", "目标列表文件，每行一个 URL")
	flags.StringVar(&opts.Expect, "expect", "", "期望的版本，结论不包含该版本时以非零状态退出")
	flags.StringVar(&opts.Transport, "transport", "", "握手传输方式 (polling, websocket, auto)")
	flags.IntVar(&opts.SocketIOMajor, "socketio-major", 0, "强制 socket.io 主版本 (1-4)，默认按 api 版本选择")
	flags.IntVarP(&opts.Concurrency, "concurrency", "c", 0, "同时扫描的目标数")
	flags.DurationVar(&opts.Timeout, "timeout", 0, "单个请求超时")
	flags.DurationVar(&opts.Wait, "wait", 0, "等待 pad 下发 CLIENT_VARS 的时长")
	flags.BoolVar(&opts.NoAdmin, "no-admin", false, "跳过管理后台默认凭据检查")
	flags.StringVar(&opts.AdminStrategy, "admin-strategy", "", "管理后台判定方式 (status, redirect-post)")
	flags.StringArrayVar(&opts.Credentials, "cred", nil, "管理后台凭据 user:pass，可重复")
	flags.BoolVar(&opts.Insecure, "insecure", true, "跳过 TLS 证书校验")
	flags.StringVar(&opts.Proxy.Proxy, "proxy", "", "SOCKS5 代理 (socks5://host:port)")
	flags.StringVar(&opts.Output.OutputJson, "output-json", "", "保存 JSON 结果")
	flags.StringVar(&opts.Output.OutputCsv, "output-csv", "", "保存 CSV 结果")

	// 注册别名 (Hidden flags) 方便用户使用简短命令
	flags.StringVar(&opts.Output.OutputJson, "oj", "", "output-json 简写")
	flags.Lookup("oj").Hidden = true
	flags.StringVar(&opts.Output.OutputCsv, "oc", "", "output-csv 简写")
	flags.Lookup("oc").Hidden = true

	return cmd
}

func runScan(cmd *cobra.Command, opts *options.ScanOptions) error {
	cfg := loadedConfig()
	opts.ApplyTo(cfg)

	db, watcher, err := factory.NewFingerprintDatabase(cfg.Fingerprint)
	if err != nil {
		return err
	}
	if watcher != nil {
		defer watcher.Stop()
	}

	resolver, closeStore, err := factory.NewRevisionResolver(cfg.Revision)
	if err != nil {
		return err
	}
	defer closeStore()

	settings, err := factory.SettingsFromConfig(cfg, resolver.Resolve)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	newClient := func() (*client.Client, error) { return factory.NewClient(cfg.HTTP) }
	runner := pipeline.NewBatchRunner(pipeline.BatchOptions{
		Concurrency:   cfg.Scan.Concurrency,
		TargetTimeout: cfg.Scan.TargetTimeout,
	}, newClient, db, settings).WithSink(func(string) model.Sink {
		return reporter.NewConsoleSink(out)
	})

	// CSV 随目标完成逐行写入，中途中断也保留已完成的结果
	var csvReporter *reporter.CsvReporter
	if opts.Output.OutputCsv != "" {
		csvReporter = reporter.NewCsvReporter(opts.Output.OutputCsv)
		runner.WithReporter(csvReporter)
	}

	stopWatch := watchLogConfig()
	defer stopWatch()

	results := runner.Run(context.Background(), pipeline.GenerateTargets(opts.Inputs()...))
	if csvReporter != nil {
		if err := csvReporter.Close(); err != nil {
			return err
		}
	}
	if len(results) == 0 {
		return fmt.Errorf("no valid targets")
	}

	// 多个目标时输出汇总表
	if len(results) > 1 {
		pterm.Fprintln(out, pterm.DefaultSection.Sprint("Summary"))
		reporter.NewConsoleReporter().WithWriter(out).PrintResults(results)
	}

	if err := saveResults(cmd, opts.Output, results); err != nil {
		return err
	}

	code := scanExitCode(results, opts.Expect)
	if code == exitMismatch {
		pterm.Fprintln(out, pterm.Error.Sprint("Version mismatch: expected "+opts.Expect))
	}
	if code != 0 {
		return &exitError{code: code}
	}
	return nil
}

func saveResults(cmd *cobra.Command, output options.OutputOptions, results []*model.TaskResult) error {
	out := cmd.OutOrStdout()
	if output.OutputJson != "" {
		if err := reporter.SaveJsonResult(output.OutputJson, results); err != nil {
			return err
		}
		fmt.Fprintf(out, "[+] Results saved to %s\n", output.OutputJson)
	}
	if output.OutputCsv != "" {
		if _, err := os.Stat(output.OutputCsv); err != nil {
			return fmt.Errorf("no tabular data found to export: %w", err)
		}
		fmt.Fprintf(out, "[+] Results saved to %s\n", output.OutputCsv)
	}
	return nil
}
