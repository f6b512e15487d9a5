package main

import (
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"

	mcpadapter "github.com/kirillkom/mrc-intake/internal/adapters/mcp"
	"github.com/kirillkom/mrc-intake/internal/config"
	"github.com/kirillkom/mrc-intake/internal/observability/logging"
)

var version = "dev"

func main() {
	if err := config.LoadDotEnv(); err != nil {
		slog.Error("dotenv_load_failed", "error", err)
		os.Exit(1)
	}
	cfg := config.Load()
	logger := logging.NewJSONLoggerTo(os.Stderr, "mrc-mcp", cfg.LogLevel)
	slog.SetDefault(logger)

	if err := server.ServeStdio(mcpadapter.NewServer(version)); err != nil {
		logger.Error("mcp_server_failed", "error", err)
		os.Exit(1)
	}
}
