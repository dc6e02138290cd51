package factory

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"padscan/internal/config"
	"padscan/internal/pkg/fingerprint"
	"padscan/internal/pkg/logger"
	"padscan/internal/pkg/revision"
)

const redisPingTimeout = 3 * time.Second

// NewFingerprintDatabase 加载指纹表；配置了外部文件且开启 watch 时返回已启动的 watcher
// 调用方负责 Stop
func NewFingerprintDatabase(cfg config.FingerprintConfig) (*fingerprint.Database, *config.FileWatcher, error) {
	tables := fingerprint.Default()
	if cfg.TablesPath != "" {
		loaded, err := fingerprint.LoadFile(cfg.TablesPath)
		if err != nil {
			return nil, nil, fmt.Errorf("load fingerprint tables: %w", err)
		}
		tables = loaded
	}
	db := fingerprint.NewDatabase(tables)

	if cfg.TablesPath == "" || !cfg.Watch {
		return db, nil, nil
	}

	watcher, err := config.NewFileWatcher(cfg.TablesPath, func(path string) error {
		if err := db.ReloadFile(path); err != nil {
			return err
		}
		logger.LogSystemEvent("fingerprint", "reload", path, logrus.InfoLevel, nil)
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("watch fingerprint tables: %w", err)
	}
	watcher.OnError(func(err error) {
		logger.LogSystemEvent("fingerprint", "reload_failed", err.Error(), logrus.WarnLevel, nil)
	})
	if err := watcher.Start(); err != nil {
		return nil, nil, err
	}
	return db, watcher, nil
}

// NewRevisionStore 按配置选择 revision 表的存储；返回的 closer 释放连接
func NewRevisionStore(cfg config.RevisionConfig) (revision.Store, func() error, error) {
	nop := func() error { return nil }

	switch cfg.Store {
	case "", "file":
		return revision.NewFileStore(cfg.FilePath), nop, nil
	case "none":
		return revision.NopStore{}, nop, nil
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("connect redis %s: %w", cfg.Redis.Addr, err)
		}
		return revision.NewRedisStore(rdb, cfg.Redis.Key), rdb.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown revision store %q", cfg.Store)
	}
}

// NewGitHubClient 按配置创建 GitHub 客户端
func NewGitHubClient(cfg config.GitHubConfig) *revision.GitHubClient {
	return revision.NewGitHubClient(revision.GitHubOptions{
		APIURL:  cfg.APIURL,
		Repo:    cfg.Repo,
		Token:   cfg.Token,
		Timeout: cfg.Timeout,
	})
}

// NewRevisionResolver 组装 revision 解析器，offline 时不访问 GitHub
func NewRevisionResolver(cfg config.RevisionConfig) (*revision.Resolver, func() error, error) {
	store, closer, err := NewRevisionStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	if cfg.GitHub.Offline {
		return revision.NewResolver(nil, store), closer, nil
	}
	return revision.NewResolver(NewGitHubClient(cfg.GitHub), store), closer, nil
}
