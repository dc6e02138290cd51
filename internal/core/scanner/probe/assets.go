package probe

import (
	"context"

	"padscan/internal/core/model"
	"padscan/internal/core/reconciler"
	"padscan/internal/core/scanner"
	"padscan/internal/pkg/client"
	"padscan/internal/pkg/fingerprint"
	"padscan/internal/pkg/logger"
)

// AssetProbe 静态文件摘要探测，按表中顺序逐个请求
type AssetProbe struct {
	http *client.Client
}

func NewAssetProbe(c *client.Client) *AssetProbe {
	return &AssetProbe{http: c}
}

func (p *AssetProbe) Name() model.ProbeName { return model.ProbeAssets }

// Run 所有命中的区间先求交集，再作为一条区间信号上报
func (p *AssetProbe) Run(ctx context.Context, t *scanner.Target) error {
	var matched []model.VersionRange
	for _, path := range t.Tables.AssetPaths() {
		if err := ctx.Err(); err != nil {
			return err
		}
		hash := p.Fingerprint(ctx, t.Location.URL(path))
		rg, known := t.Tables.LookupAsset(path, hash)
		t.Emit(model.AssetFingerprinted{Path: path, Hash: hash, Range: rg, Known: known})
		if known {
			matched = append(matched, rg)
		}
	}

	if len(matched) > 0 {
		v := reconciler.Intersect(matched...)
		t.Versions.Add(model.SourceAsset, model.Range(v.Min, v.Max))
	}
	return nil
}

// Fingerprint 获取失败或非 2xx 时返回空摘要，表中用空键表示文件不存在
func (p *AssetProbe) Fingerprint(ctx context.Context, assetURL string) string {
	resp, err := p.http.Get(ctx, assetURL, client.WithHeader("Accept-Encoding", "gzip"))
	if err != nil {
		logger.WithField("url", assetURL).Debugf("asset request failed: %v", err)
		return ""
	}
	if !resp.OK() {
		return ""
	}
	return fingerprint.Digest(resp.Body)
}
