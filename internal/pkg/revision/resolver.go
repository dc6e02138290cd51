package revision

import (
	"context"
	"errors"

	"padscan/internal/core/model"
	"padscan/internal/pkg/logger"
	"padscan/internal/pkg/version"
)

// CommitSource 提交查询
type CommitSource interface {
	GetCommit(ctx context.Context, ref string) (*Commit, error)
}

// TagSource tag 列表
type TagSource interface {
	GetTags(ctx context.Context) ([]Tag, error)
}

// Resolver 把 revision 解析为发布版本
type Resolver struct {
	commits CommitSource // 为空时离线，直接用 revision 前缀查表
	store   Store
}

func NewResolver(commits CommitSource, store Store) *Resolver {
	if store == nil {
		store = NopStore{}
	}
	return &Resolver{commits: commits, store: store}
}

// Resolve 查询提交并映射到版本
// ok 为 false 表示提交与版本都没有找到；提交存在但不对应发布 tag 时 Version 为空
func (r *Resolver) Resolve(ctx context.Context, rev string) (model.RevisionInfo, bool) {
	info := model.RevisionInfo{Revision: rev}
	sha := rev

	if r.commits != nil {
		commit, err := r.commits.GetCommit(ctx, rev)
		switch {
		case err == nil:
			info.Commit = commit.SHA
			info.CommitDate = commit.Date()
			sha = commit.SHA
		case errors.Is(err, ErrCommitNotFound):
			return info, false
		default:
			// GitHub 不可用时退回本地表
			logger.WithField("revision", rev).Debugf("commit lookup failed: %v", err)
		}
	}

	if len(sha) < ShortHashLen {
		return info, info.Commit != ""
	}
	v, found, err := r.store.Lookup(ctx, ShortHash(sha))
	if err != nil {
		logger.WithField("revision", rev).Warnf("revision store lookup failed: %v", err)
	}
	if found {
		info.Version = v
	}
	return info, info.Commit != "" || found
}

// Update 用仓库 tag 重建 revision 表，返回写入条数
func Update(ctx context.Context, tags TagSource, store Store) (int, error) {
	list, err := tags.GetTags(ctx)
	if err != nil {
		return 0, err
	}

	entries := make(map[string]string, len(list))
	for _, tag := range list {
		if tag.Commit.SHA == "" || tag.Name == "" {
			continue
		}
		entries[ShortHash(tag.Commit.SHA)] = version.Normalize(tag.Name)
	}
	if err := store.Save(ctx, entries); err != nil {
		return 0, err
	}
	return len(entries), nil
}
