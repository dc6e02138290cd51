/**
 * 目标 HTTP 客户端
 * @description: 单次扫描共用一个实例，持有 cookie jar、TLS 设置与拨号器
 */
package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/net/publicsuffix"

	"padscan/internal/core/lib/network/dialer"
	"padscan/internal/pkg/version"
)

const defaultMaxBodySize = 8 << 20

// Options 客户端参数
type Options struct {
	Timeout        time.Duration // 单个请求总超时
	ConnectTimeout time.Duration // 建连与 TLS 握手超时
	Insecure       bool          // 跳过证书校验
	UserAgent      string
	Dialer         dialer.Dialer // 为空时直连
	MaxBodySize    int64
}

// Response 已读取完毕的响应
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	URL        *url.URL
}

// OK 2xx
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// RequestOption 请求级别的附加设置
type RequestOption func(*http.Request)

func WithBasicAuth(user, password string) RequestOption {
	return func(req *http.Request) { req.SetBasicAuth(user, password) }
}

func WithHeader(key, value string) RequestOption {
	return func(req *http.Request) { req.Header.Set(key, value) }
}

// Client 目标 HTTP 客户端
type Client struct {
	http       *http.Client
	noRedirect *http.Client
	jar        http.CookieJar
	dialer     dialer.Dialer
	tlsConfig  *tls.Config
	userAgent  string
	maxBody    int64
}

// New 创建客户端
func New(opts Options) (*Client, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Second
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = opts.Timeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = version.GetUserAgent()
	}
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = defaultMaxBodySize
	}
	d := opts.Dialer
	if d == nil {
		d = dialer.NewDefaultDialer(opts.ConnectTimeout)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	tlsConfig := &tls.Config{InsecureSkipVerify: opts.Insecure} //nolint:gosec
	transport := &http.Transport{
		DialContext:         d.DialContext,
		TLSClientConfig:     tlsConfig,
		TLSHandshakeTimeout: opts.ConnectTimeout,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     30 * time.Second,
	}

	return &Client{
		http: &http.Client{
			Transport: transport,
			Jar:       jar,
			Timeout:   opts.Timeout,
		},
		noRedirect: &http.Client{
			Transport: transport,
			Jar:       jar,
			Timeout:   opts.Timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		jar:       jar,
		dialer:    d,
		tlsConfig: tlsConfig,
		userAgent: opts.UserAgent,
		maxBody:   opts.MaxBodySize,
	}, nil
}

// Get 跟随重定向
func (c *Client) Get(ctx context.Context, rawURL string, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodGet, rawURL, nil, true, opts...)
}

// GetNoRedirect 不跟随重定向，3xx 原样返回
func (c *Client) GetNoRedirect(ctx context.Context, rawURL string, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodGet, rawURL, nil, false, opts...)
}

// Post 跟随重定向
func (c *Client) Post(ctx context.Context, rawURL, contentType string, body []byte, opts ...RequestOption) (*Response, error) {
	opts = append([]RequestOption{WithHeader("Content-Type", contentType)}, opts...)
	return c.Do(ctx, http.MethodPost, rawURL, body, true, opts...)
}

// PostForm 提交表单，不跟随重定向
func (c *Client) PostForm(ctx context.Context, rawURL string, form url.Values, opts ...RequestOption) (*Response, error) {
	opts = append([]RequestOption{WithHeader("Content-Type", "application/x-www-form-urlencoded")}, opts...)
	return c.Do(ctx, http.MethodPost, rawURL, []byte(form.Encode()), false, opts...)
}

// Do 执行请求并读取完整响应体
// 与业务相关的状态码判断交给调用方，这里只在传输失败时返回错误
func (c *Client) Do(ctx context.Context, method, rawURL string, body []byte, follow bool, opts ...RequestOption) (*Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	for _, opt := range opts {
		opt(req)
	}

	hc := c.http
	if !follow {
		hc = c.noRedirect
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := c.readBody(resp)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
		URL:        resp.Request.URL,
	}, nil
}

// readBody 手动设置 Accept-Encoding 时 net/http 不会自动解压
func (c *Client) readBody(resp *http.Response) ([]byte, error) {
	var r io.Reader = resp.Body
	if !resp.Uncompressed && strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		r = gz
	}
	return io.ReadAll(io.LimitReader(r, c.maxBody))
}

// Cookies 当前 jar 中对 u 可见的 cookie
func (c *Client) Cookies(u *url.URL) []*http.Cookie {
	return c.jar.Cookies(u)
}

// CookieHeader 拼接为 Cookie 请求头，供 websocket 握手使用
func (c *Client) CookieHeader(u *url.URL) string {
	cookies := c.jar.Cookies(u)
	parts := make([]string, 0, len(cookies))
	for _, ck := range cookies {
		parts = append(parts, ck.Name+"="+ck.Value)
	}
	return strings.Join(parts, "; ")
}

func (c *Client) Dialer() dialer.Dialer { return c.dialer }

func (c *Client) TLSConfig() *tls.Config { return c.tlsConfig }

func (c *Client) UserAgent() string { return c.userAgent }
