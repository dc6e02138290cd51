package options

import (
	"fmt"

	"padscan/internal/config"
)

// RevisionOptions 定义 revisions update 的参数
type RevisionOptions struct {
	Store    string // --store: file/redis
	FilePath string // --file
	Token    string // --token GitHub token
}

func (o *RevisionOptions) Validate() error {
	switch o.Store {
	case "", "file", "redis":
	default:
		return fmt.Errorf("invalid store: %s (allowed: file, redis)", o.Store)
	}
	return nil
}

func (o *RevisionOptions) ApplyTo(cfg *config.Config) {
	if o.Store != "" {
		cfg.Revision.Store = o.Store
	}
	if o.FilePath != "" {
		cfg.Revision.FilePath = o.FilePath
	}
	if o.Token != "" {
		cfg.Revision.GitHub.Token = o.Token
	}
}
