package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/tendant/content-guardian/internal/mcp"
	"github.com/tendant/content-guardian/pkg/guardian/config"
)

type Config struct {
	Port    uint16 `env:"MCP_PORT" env-default:"8000"`
	BaseUrl string `env:"BASE_URL" env-default:"http://localhost:8000"`
}

func main() {
	var mode = flag.String("mode", "stdio", "Server mode: 'stdio', 'sse', or 'http'")
	flag.Parse()

	// Load environment variables from .env file
	if err := godotenv.Load(".env"); err != nil {
		// It's okay if .env doesn't exist, we'll use default values
		slog.Info("No .env file found or error loading it, using default values", "err", err)
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		slog.Error("Failed to read configuration", "err", err)
		os.Exit(1)
	}

	guardianCfg, err := config.Load(config.WithEnv())
	if err != nil {
		slog.Error("Failed to load guardian configuration", "err", err)
		os.Exit(1)
	}

	if *mode == "stdio" {
		// stdout carries the protocol
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	}

	svc, err := guardianCfg.BuildService(context.Background())
	if err != nil {
		slog.Error("Failed to create service", "err", err)
		os.Exit(1)
	}

	s := server.NewMCPServer(
		"Content Guardian Mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	handler := mcp.NewHandler(svc)
	handler.RegisterTools(s)

	switch *mode {
	case "sse":
		sseServer := server.NewSSEServer(s, server.WithBaseURL(cfg.BaseUrl))
		slog.Info("Starting SSE server", "base url", cfg.BaseUrl)
		if err := sseServer.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			slog.Error("Failed to start SSE server", "err", err)
			os.Exit(-1)
		}
	case "http":
		httpServer := server.NewStreamableHTTPServer(s)
		slog.Info("HTTP server listening", "port", cfg.Port)
		if err := httpServer.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			slog.Error("Server error", "err", err)
			os.Exit(-1)
		}
	default:
		slog.Info("Starting in stdio mode")
		if err := server.ServeStdio(s); err != nil {
			slog.Error("Failed to start stdio server", "err", err)
			os.Exit(-1)
		}
	}
}
