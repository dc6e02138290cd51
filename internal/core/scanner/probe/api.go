/**
 * API 探测
 * @description: /api 的 currentVersion 查表得到版本区间
 *   同一响应的 Server 头若带 git revision，解析为精确版本
 */

package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/dlclark/regexp2"
	"github.com/tidwall/gjson"

	"padscan/internal/core/model"
	"padscan/internal/core/scanner"
	"padscan/internal/pkg/client"
	"padscan/internal/pkg/logger"
)

// RevisionLookupFunc 把 Server 头中的 revision 解析为发布版本
type RevisionLookupFunc func(ctx context.Context, rev string) (model.RevisionInfo, bool)

// serverRevisionPattern 如 "Etherpad 1a2b3c4 (https://etherpad.org)"
var serverRevisionPattern = func() *regexp2.Regexp {
	re := regexp2.MustCompile(`Etherpad(-Lite)?\s([0-9a-z]+)`, regexp2.None)
	re.MatchTimeout = 100 * time.Millisecond
	return re
}()

// APIProbe /api 探测
type APIProbe struct {
	http           *client.Client
	lookupRevision RevisionLookupFunc
}

// NewAPIProbe lookup 为空时不解析 revision
func NewAPIProbe(c *client.Client, lookup RevisionLookupFunc) *APIProbe {
	return &APIProbe{http: c, lookupRevision: lookup}
}

func (p *APIProbe) Name() model.ProbeName { return model.ProbeAPI }

func (p *APIProbe) Run(ctx context.Context, t *scanner.Target) error {
	resp, err := p.http.Get(ctx, t.Location.URL("api"))
	if err != nil {
		return fmt.Errorf("request api: %w", err)
	}

	// 旧版本的 /api 可能 404，但 Server 头仍然有效
	if rev := ServerRevision(resp.Header.Get("Server")); rev != "" {
		p.resolveRevision(ctx, t, rev)
	}

	if !resp.OK() {
		return fmt.Errorf("api returned status %d", resp.StatusCode)
	}
	if !gjson.ValidBytes(resp.Body) {
		return fmt.Errorf("api returned malformed json")
	}
	current := gjson.GetBytes(resp.Body, "currentVersion")
	if !current.Exists() || current.String() == "" {
		return fmt.Errorf("api response has no currentVersion")
	}

	apiVersion := current.String()
	t.SetAPIVersion(apiVersion)
	rg, known := t.Tables.LookupAPI(apiVersion)
	t.Emit(model.APIVersionFound{APIVersion: apiVersion, Range: rg, Known: known})
	if known {
		t.Versions.Add(model.SourceAPI, model.RangeOf(rg))
	}
	return nil
}

func (p *APIProbe) resolveRevision(ctx context.Context, t *scanner.Target, rev string) {
	t.Emit(model.RevisionFound{Revision: rev})
	if p.lookupRevision == nil {
		return
	}
	info, ok := p.lookupRevision(ctx, rev)
	if !ok {
		logger.WithField("revision", rev).Debug("revision not resolved")
		return
	}
	t.Emit(model.RevisionResolved{Info: info})
	t.Versions.Add(model.SourceRevision, model.Exact(info.Version))
}

// ServerRevision 从 Server 头中提取 revision，没有时返回空
func ServerRevision(header string) string {
	if header == "" {
		return ""
	}
	m, err := serverRevisionPattern.FindStringMatch(header)
	if err != nil || m == nil {
		return ""
	}
	return m.GroupByNumber(2).String()
}
