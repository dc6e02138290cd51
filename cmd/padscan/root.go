/*
 * @description: Cobra Root Command 定义
 */

package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"padscan/internal/config"
	"padscan/internal/pkg/logger"
)

const envPrefix = "PADSCAN"

var (
	cfgFile    string
	configPath string // 实际读取的配置文件，未找到时为空
	appConfig  *config.Config
	configErr  error
	levelFlag  string // 显式给出的 --log-level
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "padscan",
	Short: "Etherpad 实例版本与暴露面扫描",
	Long: `padscan 通过外部可见的信号推断 Etherpad 实例的版本，
并检查 pad 是否公开、插件清单、管理后台默认凭据等。

示例:
  padscan scan https://pad.example.org
  padscan scan -f targets.txt -c 4 --oj result.json
  padscan scan https://pad.example.org/etherpad --expect 2.2.7
  padscan hashes check https://pad.example.org/ 1.8.7
  padscan revisions update --store redis
`,
	SilenceUsage:  true,
	SilenceErrors: true,
	// PersistentPreRunE: 全局初始化逻辑，确保所有子命令都能使用配置与日志
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configErr != nil {
			return configErr
		}
		initCLILogger(cmd)
		return nil
	},
}

func Execute() {
	// 全局 Panic Recovery
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "\n[FATAL] padscan crashed unexpectedly: %v\n", r)
			os.Exit(1)
		}
	}()

	if err := rootCmd.Execute(); err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// 全局 Flag
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "配置文件路径 (默认: ./configs/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "日志级别 (debug, info, warn, error)")

	// 注册子命令
	rootCmd.AddCommand(NewScanCmd())
	rootCmd.AddCommand(NewHashesCmd())
	rootCmd.AddCommand(NewRevisionsCmd())
	rootCmd.AddCommand(versionCmd)
}

// initConfig 读取 .env、配置文件和环境变量
func initConfig() {
	if err := config.LoadEnvFiles(".env"); err != nil {
		configErr = err
		return
	}

	loader := config.NewConfigLoader(cfgFile, envPrefix)
	// 绑定 Viper
	if err := loader.Viper().BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level")); err != nil {
		configErr = err
		return
	}
	appConfig, configErr = loader.LoadConfig()
	configPath = loader.GetConfigPath()
}

// initCLILogger 初始化 CLI 模式下的日志
// 扫描结果由 reporter 直接输出，日志默认只输出 Fatal，受 --log-level 控制
func initCLILogger(cmd *cobra.Command) {
	// 检查 log-level 标志是否被显式设置
	flag := cmd.Flags().Lookup("log-level")
	if flag != nil && flag.Changed {
		levelFlag = flag.Value.String()
	}
	cfgLevel := ""
	if appConfig != nil {
		cfgLevel = appConfig.Log.Level
	}
	level := cliLogLevel(cfgLevel)

	// 配置 pterm
	switch level {
	case "debug":
		pterm.EnableDebugMessages()
	case "info":
		pterm.DisableDebugMessages()
	case "warn", "error", "fatal":
		pterm.DisableDebugMessages()
		pterm.Info = *pterm.Info.WithWriter(io.Discard)
	}

	logConfig := config.LogConfig{Format: "text", Output: "stderr"}
	if appConfig != nil {
		logConfig = appConfig.Log
	}
	logConfig.Level = level

	// 初始化日志
	if _, err := logger.ApplyConfig(&logConfig); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
	}
}

// cliLogLevel --log-level 优先，其次配置文件，默认只输出 Fatal
func cliLogLevel(cfgLevel string) string {
	switch {
	case levelFlag != "":
		return levelFlag
	case cfgLevel != "":
		return cfgLevel
	default:
		return "fatal"
	}
}

// watchLogConfig 扫描期间监听配置文件，日志配置改动立即生效
func watchLogConfig() (stop func()) {
	if configPath == "" {
		return func() {}
	}
	w, err := config.NewFileWatcher(configPath, reloadLogConfig)
	if err != nil {
		logger.Warnf("watch config %s: %v", configPath, err)
		return func() {}
	}
	w.OnError(func(err error) {
		logger.Warnf("reload log config: %v", err)
	})
	if err := w.Start(); err != nil {
		logger.Warnf("watch config %s: %v", configPath, err)
		return func() {}
	}
	return func() { _ = w.Stop() }
}

func reloadLogConfig(path string) error {
	cfg, err := config.LoadConfigFromFile(path)
	if err != nil {
		return err
	}
	logConfig := cfg.Log
	logConfig.Level = cliLogLevel(logConfig.Level)
	_, err = logger.ApplyConfig(&logConfig)
	return err
}

// loadedConfig 返回一份可修改的配置副本，命令行参数覆盖在副本上
func loadedConfig() *config.Config {
	cfg := *appConfig
	cfg.Admin.Credentials = append([]config.CredentialConfig(nil), appConfig.Admin.Credentials...)
	return &cfg
}
