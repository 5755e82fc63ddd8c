package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/randalmurphy/code-index/internal/agent"
	"github.com/randalmurphy/code-index/internal/config"
	"github.com/randalmurphy/code-index/internal/filenameindex"
	"github.com/randalmurphy/code-index/internal/index"
	"github.com/randalmurphy/code-index/internal/query"
	"github.com/randalmurphy/code-index/internal/shard"
)

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.py"), []byte("needle value"), 0o644))

	shardDir := filepath.Join(root, ".code-index", "shards")
	partitionDir := filepath.Join(root, ".code-index", "partitions")

	otherPart, err := index.OpenPartition("other", filepath.Join(partitionDir, "other"))
	require.NoError(t, err)
	t.Cleanup(func() { otherPart.Close() })
	docsPart, err := index.OpenPartition("docs", filepath.Join(partitionDir, "docs"))
	require.NoError(t, err)
	t.Cleanup(func() { docsPart.Close() })

	_, _, err = index.BuildOrUpdate(docsPart, otherPart, index.Sources{
		SourceRoot: root,
		ShardDir:   shardDir,
		BinaryExts: shard.NewBinaryExtensionSet(nil),
	})
	require.NoError(t, err)

	filenameIdx, err := filenameindex.Build(root)
	require.NoError(t, err)

	planner := &query.Planner{Docs: docsPart, Other: otherPart, ShardMap: shard.NewMap(), FilenameIdx: filenameIdx, SourceRoot: root}
	orch := agent.New(root, shardDir)
	orch.Planner = planner
	orch.FilenameIdx = filenameIdx

	store := config.NewStore(&config.Snapshot{Global: config.DefaultConfig(), EndPoint: "http://localhost"})

	return &Server{
		Planner:      planner,
		Orchestrator: orch,
		ConfigStore:  store,
		SourceRoot:   root,
		ShardDir:     shardDir,
		PartitionDir: partitionDir,
		BinaryExts:   shard.NewBinaryExtensionSet(nil),
	}, root
}

func TestHandleSearch_ReturnsRankedHits(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/search?q=needle&index_type=other")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Results []query.Hit `json:"results"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Results, 1)
	require.Equal(t, "a.py", body.Results[0].Path)
}

func TestHandleSearch_PaginatesViaCursor(t *testing.T) {
	srv, root := newTestServer(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.py"), []byte("needle value"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "c.py"), []byte("needle value"), 0o644))
	_, _, err := index.BuildOrUpdate(srv.Planner.Docs, srv.Planner.Other, index.Sources{
		SourceRoot: root,
		ShardDir:   srv.ShardDir,
		BinaryExts: srv.BinaryExts,
	})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/search?q=needle&index_type=other&limit=2&offset=0")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Page query.Page `json:"page"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Page.Hits, 2)
	require.True(t, body.Page.HasMore)
	require.NotEmpty(t, body.Page.Cursor)

	resp2, err := http.Get(ts.URL + "/search?q=needle&index_type=other&limit=2&cursor=" + url.QueryEscape(body.Page.Cursor))
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.Equal(t, http.StatusOK, resp2.StatusCode)

	var body2 struct {
		Page query.Page `json:"page"`
	}
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&body2))
	require.Len(t, body2.Page.Hits, 1)
	require.False(t, body2.Page.HasMore)
}

func TestHandleFile_RejectsPathEscape(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/file?path=../outside.py")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestHandleFile_ReturnsContent(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/file?path=a.py")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "needle value", body["content"])
}

func TestHandleFiles_ListsIndexedPaths(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/files")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Files []string `json:"files"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Contains(t, body.Files, "a.py")
}

func TestHandleConfig_GetAndPostRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	body, err := json.Marshal(map[string]string{"end_point": "http://new"})
	require.NoError(t, err)
	resp, err := http.Post(ts.URL+"/config", "application/json", strings.NewReader(string(body)))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	snap := srv.ConfigStore.Load()
	require.Equal(t, "http://new", snap.EndPoint)
}

func TestHandleHealthz_ReportsOK(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

