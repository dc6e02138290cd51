package options

import (
	"fmt"

	goversion "github.com/hashicorp/go-version"

	"padscan/internal/config"
)

// HashOptions 定义 hashes generate / check 的参数
type HashOptions struct {
	Target  string
	Version string // 仅 check 使用
	Proxy   ProxyOptions
}

func (o *HashOptions) Validate() error {
	if o.Target == "" {
		return fmt.Errorf("target is required")
	}
	if o.Version != "" {
		if _, err := goversion.NewVersion(o.Version); err != nil {
			return fmt.Errorf("invalid version %q: %v", o.Version, err)
		}
	}
	return o.Proxy.Validate()
}

func (o *HashOptions) ApplyTo(cfg *config.Config) {
	if o.Proxy.Proxy != "" {
		cfg.HTTP.Proxy = o.Proxy.Proxy
	}
}
