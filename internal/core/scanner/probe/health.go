package probe

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"

	"padscan/internal/core/model"
	"padscan/internal/core/scanner"
	"padscan/internal/pkg/client"
)

// HealthProbe /health 的 releaseId
type HealthProbe struct {
	http *client.Client
}

func NewHealthProbe(c *client.Client) *HealthProbe {
	return &HealthProbe{http: c}
}

func (p *HealthProbe) Name() model.ProbeName { return model.ProbeHealth }

func (p *HealthProbe) Run(ctx context.Context, t *scanner.Target) error {
	resp, err := p.http.Get(ctx, t.Location.URL("health"))
	if err != nil {
		return &model.HealthResponseError{Reason: err.Error()}
	}
	if !resp.OK() {
		return &model.HealthResponseError{Reason: fmt.Sprintf("status %d", resp.StatusCode)}
	}
	if !gjson.ValidBytes(resp.Body) {
		return &model.HealthResponseError{Reason: "malformed json"}
	}
	body := gjson.ParseBytes(resp.Body)
	if !body.IsObject() {
		return &model.HealthResponseError{Reason: "unexpected body"}
	}
	release := body.Get("releaseId")
	if release.Type != gjson.String || release.String() == "" {
		return &model.HealthResponseError{Reason: "missing releaseId"}
	}

	t.Emit(model.HealthReported{Status: body.Get("status").String(), ReleaseID: release.String()})
	t.Versions.Add(model.SourceHealth, model.Exact(release.String()))
	return nil
}
