package agent

import (
	"context"
	"encoding/json"

	gomcp "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/randalmurphy/code-index/internal/filenameindex"
	"github.com/randalmurphy/code-index/internal/pattern"
)

// NewMCPServer registers the fixed tool set on a mark3labs/mcp-go
// server backed by o, replacing the teacher's hand-rolled JSON-RPC
// scaffolding.
func NewMCPServer(name, version string, o *Orchestrator) *server.MCPServer {
	s := server.NewMCPServer(name, version)

	s.AddTool(gomcp.NewTool("keyword_suggestion",
		gomcp.WithDescription("Suggest query completions from the indexed content lexicon."),
		gomcp.WithString("partition", gomcp.Description("Index partition: docs or other"), gomcp.Required()),
		gomcp.WithString("partial", gomcp.Description("Partial query string to complete"), gomcp.Required()),
	), toolHandler(func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		partition := stringArg(args, "partition", "other")
		partial := stringArg(args, "partial", "")
		limit := intArg(args, "limit", 10)
		return o.KeywordSuggestion(ctx, partition, partial, limit), nil
	}))

	s.AddTool(gomcp.NewTool("file_content_search",
		gomcp.WithDescription("Fused ranked content search with suggestion-oracle retry and filename fallback."),
		gomcp.WithString("partition", gomcp.Description("Index partition: docs or other"), gomcp.Required()),
		gomcp.WithString("query", gomcp.Description("Search query"), gomcp.Required()),
	), toolHandler(func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		partition := stringArg(args, "partition", "other")
		q := stringArg(args, "query", "")
		limit := intArg(args, "limit", 20)
		return o.FileContentSearch(ctx, partition, q, limit)
	}))

	s.AddTool(gomcp.NewTool("file_content_retrieval",
		gomcp.WithDescription("Retrieve a source-root-relative file's content, with office-document shard stitching, secret redaction, and truncation."),
		gomcp.WithString("path", gomcp.Description("Source-root-relative path"), gomcp.Required()),
	), toolHandler(func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		return o.FileContentRetrieval(stringArg(args, "path", ""))
	}))

	s.AddTool(gomcp.NewTool("code_structure_analysis",
		gomcp.WithDescription("Return the parsed symbol summary for one source file."),
		gomcp.WithString("path", gomcp.Description("Source-root-relative path"), gomcp.Required()),
	), toolHandler(func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		return o.CodeStructureAnalysis(stringArg(args, "path", ""))
	}))

	s.AddTool(gomcp.NewTool("project_overview",
		gomcp.WithDescription("Render the folder tree, optionally filtered by extension and depth-limited."),
		gomcp.WithString("filter", gomcp.Description("Extension filter, e.g. .py")),
	), toolHandler(func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		filter := stringArg(args, "filter", "")
		maxDepth := intArg(args, "max_depth", 3)
		return o.ProjectOverview(filter, maxDepth), nil
	}))

	s.AddTool(gomcp.NewTool("filename_search",
		gomcp.WithDescription("Exact and substring filename search."),
		gomcp.WithString("query", gomcp.Description("Filename query tokens"), gomcp.Required()),
	), toolHandler(func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		q := stringArg(args, "query", "")
		limit := intArg(args, "limit", 20)
		mode := filenameindex.ModeAnd
		if stringArg(args, "mode", "and") == "or" {
			mode = filenameindex.ModeOr
		}
		return o.FilenameSearch(q, filenameindex.SearchOptions{Mode: mode, Limit: limit}), nil
	}))

	s.AddTool(gomcp.NewTool("pattern_detection",
		gomcp.WithDescription("Cluster files whose classes share a method signature, surfacing repeated structural patterns."),
		gomcp.WithString("dir", gomcp.Description("Source-root-relative directory to scan, default whole tree")),
	), toolHandler(func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		dir := stringArg(args, "dir", "")
		minCluster := intArg(args, "min_cluster_size", 0)
		return o.PatternDetection(dir, pattern.DetectorConfig{MinClusterSize: minCluster})
	}))

	s.AddTool(gomcp.NewTool("navigation_docs",
		gomcp.WithDescription("Parse AGENTS.md/CLAUDE.md files under the source root into their heading/section structure."),
	), toolHandler(func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		return o.NavigationDocs()
	}))

	s.AddTool(gomcp.NewTool("semantic_search",
		gomcp.WithDescription("Vector-similarity search over the optional Qdrant chunk index; complements file_content_search for conceptual queries."),
		gomcp.WithString("query", gomcp.Description("Natural-language query"), gomcp.Required()),
	), toolHandler(func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		return o.SemanticSearch(ctx, stringArg(args, "query", ""), intArg(args, "limit", 10))
	}))

	return s
}

// toolHandler adapts a (ctx, args) -> (result, error) function into
// mcp-go's CallToolRequest/CallToolResult shape, marshaling results to
// JSON text content.
func toolHandler(fn func(ctx context.Context, args map[string]interface{}) (interface{}, error)) server.ToolHandlerFunc {
	return func(ctx context.Context, request gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
		args := request.GetArguments()
		result, err := fn(ctx, args)
		if err != nil {
			return gomcp.NewToolResultError(err.Error()), nil
		}
		data, marshalErr := json.Marshal(result)
		if marshalErr != nil {
			return gomcp.NewToolResultError(marshalErr.Error()), nil
		}
		return gomcp.NewToolResultText(string(data)), nil
	}
}

func stringArg(args map[string]interface{}, key, def string) string {
	if v, ok := args[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return def
}

func intArg(args map[string]interface{}, key string, def int) int {
	if v, ok := args[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}
