package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"padscan/internal/core/factory"
	"padscan/internal/core/options"
	"padscan/internal/pkg/revision"
)

// NewRevisionsCmd 创建 revisions 父命令
func NewRevisionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revisions",
		Short: "维护 git revision -> 版本 映射表",
	}
	cmd.AddCommand(newRevisionsUpdateCmd())
	return cmd
}

func newRevisionsUpdateCmd() *cobra.Command {
	opts := &options.RevisionOptions{}
	cmd := &cobra.Command{
		Use:   "update",
		Short: "从 GitHub tag 列表重建映射表",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.Validate(); err != nil {
				return err
			}
			cfg := loadedConfig()
			opts.ApplyTo(cfg)

			store, closeStore, err := factory.NewRevisionStore(cfg.Revision)
			if err != nil {
				return err
			}
			defer closeStore()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			n, err := revision.Update(ctx, factory.NewGitHubClient(cfg.Revision.GitHub), store)
			if err != nil {
				return fmt.Errorf("failed to fetch tags: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %d revisions\n", n)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.Store, "store", "", "存储 (file, redis)")
	flags.StringVar(&opts.FilePath, "file", "", "file 存储的路径")
	flags.StringVar(&opts.Token, "token", "", "GitHub token，也可通过 PADSCAN_REVISION_GITHUB_TOKEN 设置")
	return cmd
}
