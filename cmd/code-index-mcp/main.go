// cmd/code-index-mcp/main.go
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	gomcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/randalmurphy/code-index/internal/agent"
	"github.com/randalmurphy/code-index/internal/config"
	"github.com/randalmurphy/code-index/internal/wiring"
)

const (
	serverName    = "code-index-mcp"
	serverVersion = "0.1.0"
)

var rootCmd = &cobra.Command{
	Use:   "code-index-mcp",
	Short: "MCP server for code search",
	Long:  `An MCP (Model Context Protocol) server that provides the indexed code/document retrieval tool set.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long:  `Start the MCP server listening on stdin/stdout for JSON-RPC messages.`,
	RunE:  runServe,
}

var (
	logFile    string
	sourceRoot string
)

func init() {
	serveCmd.Flags().StringVar(&logFile, "log-file", "", "Log file path (defaults to ~/.cache/code-index-mcp/server.log)")
	serveCmd.Flags().StringVar(&sourceRoot, "source", ".", "Root of the source tree to serve")
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	// Set up logging to file (NOT stdout - that's for MCP protocol)
	logger, cleanup, err := setupLogging()
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer cleanup()

	logger.Info("starting MCP server", "name", serverName, "version", serverVersion)

	root, err := filepath.Abs(sourceRoot)
	if err != nil {
		return fmt.Errorf("resolve source root: %w", err)
	}

	cfg := config.DefaultConfig()
	shardDir := filepath.Join(root, cfg.Index.ShardDir)
	partitionDir := filepath.Join(root, cfg.Index.PartitionDir)

	built, err := wiring.Build(root, shardDir, partitionDir, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build orchestrator: %w", err)
	}
	defer built.Close()

	srv := agent.NewMCPServer(serverName, serverVersion, built.Orchestrator)

	logger.Info("serving over stdio")
	if err := gomcpserver.ServeStdio(srv); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

func setupLogging() (*slog.Logger, func(), error) {
	path := logFile
	if path == "" {
		// Default to ~/.cache/code-index-mcp/server.log
		cacheDir, err := os.UserCacheDir()
		if err != nil {
			cacheDir = "/tmp"
		}
		logDir := filepath.Join(cacheDir, "code-index-mcp")
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		path = filepath.Join(logDir, "server.log")
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(file, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	cleanup := func() {
		file.Close()
	}

	return logger, cleanup, nil
}
