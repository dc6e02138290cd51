package options

import (
	"fmt"
	"net/url"
)

// ProxyOptions 定义代理参数
type ProxyOptions struct {
	Proxy string // socks5://[user:pass@]host:port
}

// Validate 只支持 socks5，与拨号器保持一致
func (o *ProxyOptions) Validate() error {
	if o.Proxy == "" {
		return nil
	}
	u, err := url.Parse(o.Proxy)
	if err != nil {
		return fmt.Errorf("invalid proxy: %v", err)
	}
	if u.Scheme != "socks5" && u.Scheme != "socks5h" {
		return fmt.Errorf("invalid proxy scheme: %s (allowed: socks5, socks5h)", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid proxy: missing host")
	}
	return nil
}
