package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"padscan/internal/pkg/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	Long:  "显示 padscan 的版本信息，包括版本号、构建时间、Git 提交和 Go 版本。",
	Run: func(cmd *cobra.Command, args []string) {
		goVersion := version.GoVersion
		if goVersion == "" {
			goVersion = runtime.Version()
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "padscan %s\n", version.GetVersion())
		fmt.Fprintf(out, "Build Time: %s\n", version.BuildTime)
		fmt.Fprintf(out, "Git Commit: %s\n", version.GitCommit)
		fmt.Fprintf(out, "Go Version: %s\n", goVersion)
	},
}
