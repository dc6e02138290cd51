package revision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/redis/go-redis/v9"
)

// ShortHashLen revision 表的键长度
const ShortHashLen = 7

// ShortHash 截取提交哈希前 7 位
func ShortHash(sha string) string {
	if len(sha) > ShortHashLen {
		return sha[:ShortHashLen]
	}
	return sha
}

// Store 短哈希 -> 发布版本
type Store interface {
	Lookup(ctx context.Context, shortHash string) (string, bool, error)
	Save(ctx context.Context, entries map[string]string) error
}

// FileStore JSON 文件，格式为 {"a1b2c3d": "1.8.6", ...}
type FileStore struct {
	path   string
	mu     sync.RWMutex
	cache  map[string]string
	loaded bool
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Lookup(_ context.Context, shortHash string) (string, bool, error) {
	if err := s.load(); err != nil {
		return "", false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.cache[shortHash]
	return v, ok, nil
}

// Save 整体覆盖文件，写临时文件后改名
func (s *FileStore) Save(_ context.Context, entries map[string]string) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode revisions: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write revisions: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace revisions file: %w", err)
	}

	s.mu.Lock()
	s.cache = make(map[string]string, len(entries))
	for k, v := range entries {
		s.cache[k] = v
	}
	s.loaded = true
	s.mu.Unlock()
	return nil
}

// load 首次查询时读取，文件不存在视为空表
func (s *FileStore) load() error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.cache = map[string]string{}
		s.loaded = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("read revisions: %w", err)
	}

	cache := map[string]string{}
	if err := json.Unmarshal(data, &cache); err != nil {
		return fmt.Errorf("decode revisions %s: %w", s.path, err)
	}
	s.cache = cache
	s.loaded = true
	return nil
}

// RedisStore 多个扫描节点共享的 hash 表
type RedisStore struct {
	client redis.UniversalClient
	key    string
}

func NewRedisStore(client redis.UniversalClient, key string) *RedisStore {
	if key == "" {
		key = "padscan:revisions"
	}
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) Lookup(ctx context.Context, shortHash string) (string, bool, error) {
	v, err := s.client.HGet(ctx, s.key, shortHash).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis hget: %w", err)
	}
	return v, true, nil
}

// Save 覆盖整个 hash
func (s *RedisStore) Save(ctx context.Context, entries map[string]string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key)
	if len(entries) > 0 {
		values := make(map[string]interface{}, len(entries))
		for k, v := range entries {
			values[k] = v
		}
		pipe.HSet(ctx, s.key, values)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis save revisions: %w", err)
	}
	return nil
}

// NopStore 不做 revision 映射
type NopStore struct{}

func (NopStore) Lookup(context.Context, string) (string, bool, error) { return "", false, nil }
func (NopStore) Save(context.Context, map[string]string) error      { return nil }
