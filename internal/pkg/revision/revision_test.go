package revision

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullSHA = "1a2b3c4d5e6f7a8b9c0d1e2f3a4b5c6d7e8f9a0b"

func newGitHubServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/repos/ether/etherpad-lite/commits/1a2b3c4":
			fmt.Fprintf(w, `{"sha":%q,"commit":{"committer":{"date":"2022-05-01T10:00:00Z"}}}`, fullSHA)
		case strings.HasPrefix(r.URL.Path, "/repos/ether/etherpad-lite/commits/"):
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"message":"Not Found"}`))
		case r.URL.Path == "/repos/ether/etherpad-lite/tags":
			if r.URL.Query().Get("page") != "1" {
				w.Write([]byte(`[]`))
				return
			}
			fmt.Fprintf(w, `[{"name":"v1.8.18","commit":{"sha":%q}},{"name":"2.0.0","commit":{"sha":"ffffffffffffffff"}}]`, fullSHA)
		default:
			w.WriteHeader(http.StatusTeapot)
		}
	}))
}

func TestGitHubClient(t *testing.T) {
	srv := newGitHubServer(t)
	defer srv.Close()

	gh := NewGitHubClient(GitHubOptions{APIURL: srv.URL, Timeout: time.Second})
	ctx := context.Background()

	commit, err := gh.GetCommit(ctx, "1a2b3c4")
	require.NoError(t, err)
	assert.Equal(t, fullSHA, commit.SHA)
	assert.Equal(t, 2022, commit.Date().Year())

	_, err = gh.GetCommit(ctx, "deadbee")
	assert.True(t, errors.Is(err, ErrCommitNotFound))

	tags, err := gh.GetTags(ctx)
	require.NoError(t, err)
	assert.Len(t, tags, 2)
}

func TestUpdateAndResolve_FileStore(t *testing.T) {
	srv := newGitHubServer(t)
	defer srv.Close()

	gh := NewGitHubClient(GitHubOptions{APIURL: srv.URL, Timeout: time.Second})
	store := NewFileStore(filepath.Join(t.TempDir(), "data", "revision_lookup.json"))
	ctx := context.Background()

	n, err := Update(ctx, gh, store)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	v, ok, err := store.Lookup(ctx, "1a2b3c4")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1.8.18", v)

	// 新实例从文件读取
	reloaded := NewFileStore(store.path)
	v, ok, err = reloaded.Lookup(ctx, "fffffff")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2.0.0", v)

	resolver := NewResolver(gh, reloaded)
	info, ok := resolver.Resolve(ctx, "1a2b3c4")
	assert.True(t, ok)
	assert.Equal(t, fullSHA, info.Commit)
	assert.Equal(t, "1.8.18", info.Version)

	_, ok = resolver.Resolve(ctx, "deadbee")
	assert.False(t, ok)
}

func TestResolver_Offline(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "missing.json"))

	resolver := NewResolver(nil, store)
	_, ok := resolver.Resolve(ctx, "1a2b3c4")
	assert.False(t, ok)

	require.NoError(t, store.Save(ctx, map[string]string{"1a2b3c4": "1.8.18"}))
	info, ok := resolver.Resolve(ctx, "1a2b3c4")
	assert.True(t, ok)
	assert.Equal(t, "1.8.18", info.Version)
	assert.Empty(t, info.Commit)

	// 太短的 revision 无法查表
	_, ok = resolver.Resolve(ctx, "1a2b")
	assert.False(t, ok)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	store := NewRedisStore(rdb, "")
	ctx := context.Background()

	_, ok, err := store.Lookup(ctx, "1a2b3c4")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Save(ctx, map[string]string{"1a2b3c4": "1.8.18", "fffffff": "2.0.0"}))
	v, ok, err := store.Lookup(ctx, "fffffff")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2.0.0", v)

	// Save 覆盖旧数据
	require.NoError(t, store.Save(ctx, map[string]string{"0000000": "1.0.0"}))
	_, ok, err = store.Lookup(ctx, "fffffff")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, mr.Exists("padscan:revisions"))
}

func TestShortHash(t *testing.T) {
	assert.Equal(t, "1a2b3c4", ShortHash(fullSHA))
	assert.Equal(t, "abc", ShortHash("abc"))
}
