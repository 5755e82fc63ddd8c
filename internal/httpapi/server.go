// Package httpapi implements the HTTP Surface (SPEC_FULL.md §6):
// REST+SSE endpoints over the Query Planner and Agent Orchestrator,
// plus config-snapshot management, all on the standard library's
// net/http and ServeMux pattern routing (no router library appears
// anywhere in the retrieval pack's full repos).
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/randalmurphy/code-index/internal/agent"
	"github.com/randalmurphy/code-index/internal/config"
	"github.com/randalmurphy/code-index/internal/filenameindex"
	"github.com/randalmurphy/code-index/internal/ingest"
	"github.com/randalmurphy/code-index/internal/metrics"
	"github.com/randalmurphy/code-index/internal/pattern"
	"github.com/randalmurphy/code-index/internal/query"
	"github.com/randalmurphy/code-index/internal/shard"
)

// Server bundles the dependencies every endpoint needs: the Query
// Planner, the Agent Orchestrator, a mutable config Store, and the
// paths an /update request re-ingests.
type Server struct {
	Planner      *query.Planner
	Orchestrator *agent.Orchestrator
	ConfigStore  *config.Store
	SourceRoot   string
	ShardDir     string
	PartitionDir string
	BinaryExts   *shard.BinaryExtensionSet
	Logger       *slog.Logger
	Metrics      *metrics.Logger // optional; nil disables usage logging

	generation int
}

// Handler builds the routed http.Handler for the surface.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /suggest", s.handleSuggest)
	mux.HandleFunc("GET /search", s.handleSearch)
	mux.HandleFunc("GET /file", s.handleFile)
	mux.HandleFunc("GET /files", s.handleFiles)
	mux.HandleFunc("POST /update", s.handleUpdate)
	mux.HandleFunc("POST /agent", s.handleAgent)
	mux.HandleFunc("GET /agent_stream", s.handleAgentStream)
	mux.HandleFunc("GET /config", s.handleConfigGet)
	mux.HandleFunc("POST /config", s.handleConfigPost)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	return mux
}

func (s *Server) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, map[string]string{"error": kind, "message": message})
}

// handleSuggest implements GET /suggest?q&index_type&limit&multiword&compat.
func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	partial := q.Get("q")
	partition := firstNonEmpty(q.Get("index_type"), "other")
	limit := intParam(q, "limit", 10)
	compat := q.Get("compat") == "1" || q.Get("compat") == "true"

	suggestions := s.Planner.Suggest(r.Context(), partition, partial, limit)
	if compat {
		writeJSON(w, http.StatusOK, map[string]interface{}{"suggestions": suggestions})
		return
	}
	objs := make([]map[string]string, len(suggestions))
	for i, sug := range suggestions {
		objs[i] = map[string]string{"term": sug}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"suggestions": objs})
}

// handleSearch implements GET /search?q&mode&limit&index_type&cursor.
// Pagination is opt-in: a request with no cursor and no offset gets the
// full hit list under "results", matching every pre-pagination caller;
// passing cursor or offset switches to the windowed query.Page shape
// under "page", with query.Paginate's cursor binding the next request
// to this one's (partition, query, mode) triple.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	queryString := q.Get("q")
	if queryString == "" {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "q is required")
		return
	}
	partition := firstNonEmpty(q.Get("index_type"), "other")
	limit := intParam(q, "limit", 20)
	mode := query.ModeOr
	if strings.EqualFold(q.Get("mode"), "and") {
		mode = query.ModeAnd
	}

	queryHash := query.HashQuery(partition, queryString, string(mode))
	offset := intParam(q, "offset", 0)
	cursorParam := q.Get("cursor")
	paginated := cursorParam != "" || q.Has("offset")
	now := time.Now()
	if cursorParam != "" {
		cursor, err := query.DecodeCursor(cursorParam, now)
		if err != nil {
			writeError(w, http.StatusBadRequest, "InvalidCursor", err.Error())
			return
		}
		if cursor.QueryHash != queryHash {
			writeError(w, http.StatusBadRequest, "InvalidCursor", "cursor does not match this query")
			return
		}
		offset = cursor.Offset
	}

	searchLimit := limit
	if paginated {
		searchLimit = offset + limit + 1
	}

	start := time.Now()
	hits, err := s.Planner.Search(r.Context(), partition, queryString, mode, searchLimit, true)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "SearchFailed", err.Error())
		return
	}
	if s.Metrics != nil {
		qt := "content"
		if s.Planner.Classifier != nil {
			qt = string(s.Planner.Classifier.Classify(queryString))
		}
		s.Metrics.LogSearch(queryString, qt, len(hits), time.Since(start).Milliseconds(), false)
	}

	if !paginated {
		writeJSON(w, http.StatusOK, map[string]interface{}{"results": hits})
		return
	}
	page := query.Paginate(hits, offset, limit, queryHash, now)
	writeJSON(w, http.StatusOK, map[string]interface{}{"page": page})
}

// handleFile implements GET /file?path&highlight?.
func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	relPath := r.URL.Query().Get("path")
	if relPath == "" {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "path is required")
		return
	}

	result, err := s.Orchestrator.FileContentRetrieval(relPath)
	if err != nil {
		if os.IsNotExist(err) {
			writeError(w, http.StatusNotFound, "NotFound", err.Error())
			return
		}
		writeError(w, http.StatusForbidden, "AccessDenied", err.Error())
		return
	}

	absPath := filepath.Join(s.SourceRoot, filepath.Clean(relPath))
	lastModified := ""
	if info, statErr := os.Stat(absPath); statErr == nil {
		lastModified = info.ModTime().UTC().Format(time.RFC3339)
	}

	resp := map[string]interface{}{
		"path":          result.Path,
		"content":       result.Content,
		"last_modified": lastModified,
	}
	if highlightTerm := r.URL.Query().Get("highlight"); highlightTerm != "" {
		resp["highlighted_excerpt"] = query.Highlight(result.Content, strings.Fields(strings.ToLower(highlightTerm)))
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleFiles implements GET /files: all indexed "other"-partition paths.
func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	paths, err := s.Planner.Other.Paths(0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "IOError", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"files": paths})
}

// handleUpdate implements POST /update: re-run the ingest pipeline,
// streaming `data: {status, step, progress}` SSE lines.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "IOError", "streaming unsupported")
		return
	}
	setSSEHeaders(w)

	sendEvent(w, flusher, map[string]interface{}{"status": "progress", "step": "starting", "progress": 0})

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	opts := ingest.Options{
		SourceRoot:   s.SourceRoot,
		ShardDir:     s.ShardDir,
		PartitionDir: s.PartitionDir,
		BinaryExts:   s.BinaryExts,
		Progress: func(step string, pct int) {
			sendEvent(w, flusher, map[string]interface{}{"status": "progress", "step": step, "progress": pct})
		},
	}
	if s.Orchestrator != nil && s.Orchestrator.Embedder != nil && s.Orchestrator.Semantic != nil {
		opts.Embedder = s.Orchestrator.Embedder
		opts.Semantic = s.Orchestrator.Semantic
		opts.Repo = filepath.Base(s.SourceRoot)
	}
	result, err := ingest.Run(ctx, opts)
	if err != nil {
		sendEvent(w, flusher, map[string]interface{}{"status": "error", "step": err.Error(), "progress": 100})
		return
	}

	s.generation++
	if s.Planner != nil {
		s.Planner.Generation = s.generation
	}
	if s.Metrics != nil {
		s.Metrics.LogIndexUpdate(filepath.Base(s.SourceRoot), result.FilesParsed, result.DocsUpdate.Upserted+result.OtherUpdate.Upserted)
	}

	sendEvent(w, flusher, map[string]interface{}{
		"status":   "complete",
		"step":     fmt.Sprintf("parsed %d files, %d parse errors", result.FilesParsed, len(result.ParseErrors)),
		"progress": 100,
	})
}

// handleAgent implements POST /agent: run one agent tool call
// synchronously and return its JSON result.
func (s *Server) handleAgent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tool string                 `json:"tool"`
		Args map[string]interface{} `json:"args"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", err.Error())
		return
	}
	result, err := s.runTool(r.Context(), req.Tool, req.Args)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "UpstreamError", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleAgentStream implements GET /agent_stream: the same tool
// dispatch as /agent, reported over SSE for long-running calls.
func (s *Server) handleAgentStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "IOError", "streaming unsupported")
		return
	}
	setSSEHeaders(w)

	q := r.URL.Query()
	tool := q.Get("tool")
	args := map[string]interface{}{}
	for k, v := range q {
		if k != "tool" && len(v) > 0 {
			args[k] = v[0]
		}
	}

	sendEvent(w, flusher, map[string]interface{}{"status": "progress", "step": "running " + tool, "progress": 0})
	result, err := s.runTool(r.Context(), tool, args)
	if err != nil {
		sendEvent(w, flusher, map[string]interface{}{"status": "error", "step": err.Error(), "progress": 100})
		return
	}
	data, _ := json.Marshal(result)
	sendEvent(w, flusher, map[string]interface{}{"status": "complete", "step": string(data), "progress": 100})
}

func (s *Server) runTool(ctx context.Context, tool string, args map[string]interface{}) (interface{}, error) {
	switch tool {
	case "keyword_suggestion":
		partition := stringOr(args, "partition", "other")
		partial := stringOr(args, "partial", "")
		return s.Orchestrator.KeywordSuggestion(ctx, partition, partial, intOr(args, "limit", 10)), nil
	case "file_content_search":
		partition := stringOr(args, "partition", "other")
		return s.Orchestrator.FileContentSearch(ctx, partition, stringOr(args, "query", ""), intOr(args, "limit", 20))
	case "file_content_retrieval":
		return s.Orchestrator.FileContentRetrieval(stringOr(args, "path", ""))
	case "code_structure_analysis":
		return s.Orchestrator.CodeStructureAnalysis(stringOr(args, "path", ""))
	case "project_overview":
		return s.Orchestrator.ProjectOverview(stringOr(args, "filter", ""), intOr(args, "max_depth", 3)), nil
	case "filename_search":
		mode := filenameindex.ModeAnd
		if strings.EqualFold(stringOr(args, "mode", "and"), "or") {
			mode = filenameindex.ModeOr
		}
		return s.Orchestrator.FilenameSearch(stringOr(args, "query", ""), filenameindex.SearchOptions{Mode: mode, Limit: intOr(args, "limit", 20)}), nil
	case "pattern_detection":
		return s.Orchestrator.PatternDetection(stringOr(args, "dir", ""), pattern.DetectorConfig{MinClusterSize: intOr(args, "min_cluster_size", 0)})
	case "navigation_docs":
		return s.Orchestrator.NavigationDocs()
	case "semantic_search":
		return s.Orchestrator.SemanticSearch(ctx, stringOr(args, "query", ""), intOr(args, "limit", 10))
	default:
		return nil, fmt.Errorf("unknown tool %q", tool)
	}
}

// handleConfigGet implements GET /config.
func (s *Server) handleConfigGet(w http.ResponseWriter, r *http.Request) {
	snap := s.ConfigStore.Load()
	writeJSON(w, http.StatusOK, map[string]string{
		"end_point": snap.EndPoint,
		"api_key":   redactKey(snap.APIKey),
		"app_dir":   snap.AppDir,
	})
}

// handleConfigPost implements POST /config, applying only the allowed keys.
func (s *Server) handleConfigPost(w http.ResponseWriter, r *http.Request) {
	var updates map[string]string
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", err.Error())
		return
	}
	next := s.ConfigStore.Update(func(current *config.Snapshot) *config.Snapshot {
		return config.ApplyUpdate(current, updates)
	})
	writeJSON(w, http.StatusOK, map[string]string{
		"end_point": next.EndPoint,
		"api_key":   redactKey(next.APIKey),
		"app_dir":   next.AppDir,
	})
}

// handleHealthz implements GET /healthz.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"generation": s.generation,
		"time":       time.Now().UTC().Format(time.RFC3339),
	})
}

func redactKey(key string) string {
	if key == "" {
		return ""
	}
	return "****"
}

func setSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
}

func sendEvent(w http.ResponseWriter, flusher http.Flusher, payload interface{}) {
	data, _ := json.Marshal(payload)
	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}

func firstNonEmpty(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func intParam(q map[string][]string, key string, def int) int {
	v := ""
	if vs, ok := q[key]; ok && len(vs) > 0 {
		v = vs[0]
	}
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func stringOr(args map[string]interface{}, key, def string) string {
	if v, ok := args[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return def
}

func intOr(args map[string]interface{}, key string, def int) int {
	if v, ok := args[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return int(n)
		case string:
			if parsed, err := strconv.Atoi(n); err == nil {
				return parsed
			}
		}
	}
	return def
}
