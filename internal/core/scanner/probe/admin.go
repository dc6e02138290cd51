/**
 * 管理后台默认凭据检测
 * @description: 不同代的 Etherpad 判定方式不同，由配置选择策略
 *   status: admin-auth/ 返回 200 即可登录，否则再看 admin/
 *   redirect-post: admin/ 重定向到登录表单，提交凭据后未被拒绝即可登录
 */

package probe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"padscan/internal/core/model"
	"padscan/internal/core/scanner"
	"padscan/internal/pkg/client"
)

const (
	StrategyStatus       = "status"
	StrategyRedirectPost = "redirect-post"
)

// Credential 一组待验证的凭据
type Credential struct {
	User     string
	Password string
}

// AdminStrategy 单组凭据的判定方式
type AdminStrategy interface {
	Name() string
	Check(ctx context.Context, c *client.Client, loc model.InstanceLocation, cred Credential) (bool, error)
}

// StrategyByName 按配置名称取策略
func StrategyByName(name string) (AdminStrategy, error) {
	switch name {
	case "", StrategyStatus:
		return statusStrategy{}, nil
	case StrategyRedirectPost:
		return redirectPostStrategy{}, nil
	default:
		return nil, fmt.Errorf("unknown admin strategy %q", name)
	}
}

type statusStrategy struct{}

func (statusStrategy) Name() string { return StrategyStatus }

func (statusStrategy) Check(ctx context.Context, c *client.Client, loc model.InstanceLocation, cred Credential) (bool, error) {
	auth := client.WithBasicAuth(cred.User, cred.Password)

	resp, err := c.Post(ctx, loc.URL("admin-auth/"), "application/x-www-form-urlencoded", nil, auth)
	if err == nil {
		switch resp.StatusCode {
		case http.StatusOK:
			return true, nil
		case http.StatusUnauthorized:
			return false, nil
		}
	}

	resp, err = c.Get(ctx, loc.URL("admin/"), auth)
	if err != nil {
		return false, err
	}
	return resp.StatusCode == http.StatusOK, nil
}

type redirectPostStrategy struct{}

func (redirectPostStrategy) Name() string { return StrategyRedirectPost }

func (redirectPostStrategy) Check(ctx context.Context, c *client.Client, loc model.InstanceLocation, cred Credential) (bool, error) {
	adminURL := loc.URL("admin/")
	resp, err := c.GetNoRedirect(ctx, adminURL)
	if err != nil {
		return false, err
	}
	if resp.StatusCode == http.StatusOK {
		return true, nil
	}
	if resp.StatusCode < 300 || resp.StatusCode >= 400 {
		return false, nil
	}

	location := resp.Header.Get("Location")
	if location == "" {
		return false, fmt.Errorf("admin redirect without location")
	}
	base, err := url.Parse(adminURL)
	if err != nil {
		return false, err
	}
	target, err := base.Parse(location)
	if err != nil {
		return false, fmt.Errorf("admin redirect location %q: %w", location, err)
	}

	form := url.Values{}
	form.Set("username", cred.User)
	form.Set("password", cred.Password)
	resp, err = c.PostForm(ctx, target.String(), form, client.WithBasicAuth(cred.User, cred.Password))
	if err != nil {
		return false, err
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return false, nil
	}
	return resp.StatusCode >= 200 && resp.StatusCode < 400, nil
}

// AdminProbe 逐组尝试凭据，结果只做信息展示
type AdminProbe struct {
	http        *client.Client
	strategy    AdminStrategy
	credentials []Credential
}

func NewAdminProbe(c *client.Client, strategy AdminStrategy, credentials []Credential) *AdminProbe {
	if strategy == nil {
		strategy = statusStrategy{}
	}
	return &AdminProbe{http: c, strategy: strategy, credentials: credentials}
}

func (p *AdminProbe) Name() model.ProbeName { return model.ProbeAdmin }

func (p *AdminProbe) Run(ctx context.Context, t *scanner.Target) error {
	var errs []error
	for _, cred := range p.credentials {
		if err := ctx.Err(); err != nil {
			return err
		}
		ok, err := p.strategy.Check(ctx, p.http, t.Location, cred)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s/%s: %w", cred.User, cred.Password, err))
		}
		t.Emit(model.AdminChecked{Result: model.AdminResult{
			Strategy:   p.strategy.Name(),
			User:       cred.User,
			Password:   cred.Password,
			Accessible: ok,
		}})
	}
	return errors.Join(errs...)
}
