/**
 * GitHub 提交查询
 * @description: 把 Server 头中的短 revision 展开为完整提交，并拉取发布 tag
 */
package revision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"padscan/internal/pkg/version"
)

// ErrCommitNotFound 仓库中不存在该 revision
var ErrCommitNotFound = errors.New("commit not found")

// Commit GitHub commit 接口返回的必要字段
type Commit struct {
	SHA     string `json:"sha"`
	HTMLURL string `json:"html_url"`
	Commit  struct {
		Message string `json:"message"`
		Author  struct {
			Name string    `json:"name"`
			Date time.Time `json:"date"`
		} `json:"author"`
		Committer struct {
			Date time.Time `json:"date"`
		} `json:"committer"`
	} `json:"commit"`
}

// Date 提交时间，优先取 committer
func (c *Commit) Date() time.Time {
	if !c.Commit.Committer.Date.IsZero() {
		return c.Commit.Committer.Date
	}
	return c.Commit.Author.Date
}

// Tag 仓库 tag
type Tag struct {
	Name   string `json:"name"`
	Commit struct {
		SHA string `json:"sha"`
	} `json:"commit"`
}

// GitHubOptions 客户端参数
type GitHubOptions struct {
	APIURL  string
	Repo    string // owner/name
	Token   string
	Timeout time.Duration
}

// GitHubClient GitHub REST 客户端
type GitHubClient struct {
	client     *http.Client
	apiURL     string
	repo       string
	token      string
	userAgent  string
	maxRetries int
	retryDelay time.Duration
	maxPages   int
}

// NewGitHubClient 创建客户端
func NewGitHubClient(opts GitHubOptions) *GitHubClient {
	if opts.APIURL == "" {
		opts.APIURL = "https://api.github.com"
	}
	if opts.Repo == "" {
		opts.Repo = "ether/etherpad-lite"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &GitHubClient{
		client:     &http.Client{Timeout: opts.Timeout},
		apiURL:     strings.TrimRight(opts.APIURL, "/"),
		repo:       opts.Repo,
		token:      opts.Token,
		userAgent:  version.GetUserAgent(),
		maxRetries: 2,
		retryDelay: time.Second,
		maxPages:   10,
	}
}

// GetCommit 按任意前缀查询提交
func (c *GitHubClient) GetCommit(ctx context.Context, ref string) (*Commit, error) {
	var commit Commit
	if err := c.getJSON(ctx, fmt.Sprintf("/repos/%s/commits/%s", c.repo, ref), &commit); err != nil {
		return nil, fmt.Errorf("get commit %s: %w", ref, err)
	}
	if commit.SHA == "" {
		return nil, fmt.Errorf("get commit %s: %w", ref, ErrCommitNotFound)
	}
	return &commit, nil
}

// GetTags 拉取全部 tag，按页读取直到空页
func (c *GitHubClient) GetTags(ctx context.Context) ([]Tag, error) {
	var all []Tag
	for page := 1; page <= c.maxPages; page++ {
		var tags []Tag
		path := fmt.Sprintf("/repos/%s/tags?per_page=100&page=%d", c.repo, page)
		if err := c.getJSON(ctx, path, &tags); err != nil {
			return nil, fmt.Errorf("get tags page %d: %w", page, err)
		}
		if len(tags) == 0 {
			break
		}
		all = append(all, tags...)
	}
	return all, nil
}

func (c *GitHubClient) getJSON(ctx context.Context, path string, out interface{}) error {
	resp, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// doRequest 执行HTTP请求，5xx 与传输错误重试
func (c *GitHubClient) doRequest(ctx context.Context, method, path string) (*http.Response, error) {
	var (
		resp *http.Response
		err  error
	)
	for i := 0; i <= c.maxRetries; i++ {
		req, reqErr := http.NewRequestWithContext(ctx, method, c.apiURL+path, nil)
		if reqErr != nil {
			return nil, fmt.Errorf("create request: %w", reqErr)
		}
		req.Header.Set("Accept", "application/vnd.github+json")
		req.Header.Set("User-Agent", c.userAgent)
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err = c.client.Do(req)
		if err == nil && resp.StatusCode < 500 {
			break
		}
		if resp != nil && i < c.maxRetries {
			resp.Body.Close()
		}
		if i < c.maxRetries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}
	}
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusUnprocessableEntity {
		resp.Body.Close()
		return nil, ErrCommitNotFound
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("github request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return resp, nil
}
