package main

import (
	"context"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"padscan/internal/core/factory"
	"padscan/internal/core/model"
	"padscan/internal/core/options"
	"padscan/internal/core/reconciler"
	"padscan/internal/core/scanner/locator"
	"padscan/internal/core/scanner/probe"
	"padscan/internal/pkg/fingerprint"
)

// NewHashesCmd 创建 hashes 父命令，用于维护静态文件指纹表
func NewHashesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hashes",
		Short: "静态文件指纹",
		Long:  `计算实例静态文件的摘要，或校验指纹表对已知版本实例的判定。url 为实例根路径。`,
	}
	cmd.AddCommand(newHashesGenerateCmd())
	cmd.AddCommand(newHashesCheckCmd())
	return cmd
}

func newHashesGenerateCmd() *cobra.Command {
	opts := &options.HashOptions{}
	cmd := &cobra.Command{
		Use:   "generate <url>",
		Short: "输出各静态文件的摘要与匹配到的版本区间",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Target = args[0]
			if err := opts.Validate(); err != nil {
				return err
			}
			assets, _, err := fingerprintAssets(cmd.Context(), opts)
			if err != nil && len(assets) == 0 {
				return err
			}

			data := pterm.TableData{{"File", "Hash", "Version"}}
			for _, a := range assets {
				rg := "unknown"
				if a.Range != nil {
					rg = a.Range.String()
				}
				data = append(data, []string{a.Path, a.Hash, rg})
			}
			table, err := pterm.DefaultTable.WithHasHeader(true).WithData(data).Srender()
			if err != nil {
				return err
			}
			pterm.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Proxy.Proxy, "proxy", "", "SOCKS5 代理 (socks5://host:port)")
	return cmd
}

func newHashesCheckCmd() *cobra.Command {
	opts := &options.HashOptions{}
	cmd := &cobra.Command{
		Use:   "check <url> <version>",
		Short: "校验指纹表对该实例的判定是否包含给定版本",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Target, opts.Version = args[0], args[1]
			if err := opts.Validate(); err != nil {
				return err
			}
			_, verdict, err := fingerprintAssets(cmd.Context(), opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Calculated version range: %s\n", verdict)
			if !verdict.Contains(opts.Version) {
				fmt.Fprintln(out, "Version mismatch")
				return &exitError{code: exitMismatch}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Proxy.Proxy, "proxy", "", "SOCKS5 代理 (socks5://host:port)")
	return cmd
}

// fingerprintAssets 直接以 url 为实例根路径计算全部静态文件摘要
func fingerprintAssets(ctx context.Context, opts *options.HashOptions) ([]model.AssetHash, model.VersionVerdict, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := loadedConfig()
	opts.ApplyTo(cfg)

	u, err := locator.Normalize(opts.Target)
	if err != nil {
		return nil, model.VersionVerdict{}, err
	}
	base := u.String() + "/"

	// 单次命令无需热加载
	fc := cfg.Fingerprint
	fc.Watch = false
	db, _, err := factory.NewFingerprintDatabase(fc)
	if err != nil {
		return nil, model.VersionVerdict{}, err
	}
	c, err := factory.NewClient(cfg.HTTP)
	if err != nil {
		return nil, model.VersionVerdict{}, err
	}

	return hashAssets(ctx, probe.NewAssetProbe(c), db.Snapshot(), base)
}

func hashAssets(ctx context.Context, p *probe.AssetProbe, tables *fingerprint.Tables, base string) ([]model.AssetHash, model.VersionVerdict, error) {
	var (
		assets []model.AssetHash
		ranges []model.VersionRange
	)
	for _, path := range tables.AssetPaths() {
		hash := p.Fingerprint(ctx, base+path)
		asset := model.AssetHash{Path: path, Hash: hash}
		if rg, ok := tables.LookupAsset(path, hash); ok {
			asset.Range = &rg
			ranges = append(ranges, rg)
		}
		assets = append(assets, asset)
	}
	if len(ranges) == 0 {
		return assets, model.VersionVerdict{}, fmt.Errorf("no version ranges found")
	}
	return assets, reconciler.Intersect(ranges...), nil
}
