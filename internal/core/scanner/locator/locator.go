/**
 * 实例定位
 * @description: 从用户给出的任意 URL 向上逐级查找 Etherpad 实例根路径
 */

package locator

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"padscan/internal/core/model"
	"padscan/internal/pkg/client"
	"padscan/internal/pkg/logger"
)

// EditorMarker pad 页面中一定存在的元素
const EditorMarker = `"editorcontainer"`

// Resolver 实例路径解析
type Resolver struct {
	http   *client.Client
	marker string
}

func New(c *client.Client) *Resolver {
	return &Resolver{http: c, marker: EditorMarker}
}

// Normalize 去掉 query 与 fragment，缺省协议补 http，去掉末尾斜杠
func Normalize(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty target")
	}
	if !hasScheme(raw) {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid target %q: %w", raw, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid target %q: missing host", raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid target %q: unsupported scheme %s", raw, u.Scheme)
	}

	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""
	u.RawPath = ""
	u.Path = strings.TrimRight(u.Path, "/")
	return u, nil
}

// hasScheme "://" 只有出现在第一个 / ? # 之前才算 scheme，查询串里的 URL 不算
func hasScheme(raw string) bool {
	i := strings.Index(raw, "://")
	if i <= 0 {
		return false
	}
	end := strings.IndexAny(raw, "/?#")
	return end < 0 || end > i
}

// Resolve 在 path 及其每一级父路径上依次尝试 "<path>/p/<probeID>" 与 "<path>/<probeID>"
// 到达根路径仍未命中时，用 /api 识别不提供 pad 页面的旧实例
// 最多尝试 路径段数+1 轮
func (r *Resolver) Resolve(ctx context.Context, rawURL, probeID string) (model.InstanceLocation, error) {
	u, err := Normalize(rawURL)
	if err != nil {
		return model.InstanceLocation{}, err
	}

	path := u.Path
	for {
		if err := ctx.Err(); err != nil {
			return model.InstanceLocation{}, err
		}

		base := *u
		base.Path = path
		baseURL := base.String()

		if r.isEditor(ctx, baseURL+"/p/"+probeID) {
			return model.InstanceLocation{BaseURL: baseURL + "/", MountPrefix: "p/"}, nil
		}
		if r.isEditor(ctx, baseURL+"/"+probeID) {
			return model.InstanceLocation{BaseURL: baseURL + "/"}, nil
		}

		if path == "" {
			if r.hasAPI(ctx, baseURL+"/api") {
				return model.InstanceLocation{BaseURL: baseURL + "/"}, nil
			}
			return model.InstanceLocation{}, fmt.Errorf("%w at %s", model.ErrInstanceNotFound, u.String())
		}
		path = path[:strings.LastIndex(path, "/")]
	}
}

func (r *Resolver) isEditor(ctx context.Context, candidate string) bool {
	resp, err := r.http.Get(ctx, candidate)
	if err != nil {
		logger.WithField("url", candidate).Debugf("locate request failed: %v", err)
		return false
	}
	return resp.StatusCode == 200 && strings.Contains(string(resp.Body), r.marker)
}

func (r *Resolver) hasAPI(ctx context.Context, apiURL string) bool {
	resp, err := r.http.Get(ctx, apiURL)
	if err != nil || !resp.OK() || !gjson.ValidBytes(resp.Body) {
		return false
	}
	return gjson.GetBytes(resp.Body, "currentVersion").Exists()
}
