package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tendant/chi-demo/app"
	"github.com/tendant/chi-demo/middleware"
	"github.com/tendant/content-guardian/pkg/guardian/api"
	"github.com/tendant/content-guardian/pkg/guardian/config"
)

type AuthConfig struct {
	ApiKeySHA256 string `env:"API_KEY_SHA256"`
}

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(".env"); err != nil {
		slog.Info("No .env file found or error loading it, using default values", "err", err)
	}

	cfg, err := config.Load(config.WithEnv())
	if err != nil {
		slog.Error("Failed to load configuration", "err", err)
		os.Exit(1)
	}

	var auth AuthConfig
	if err := cleanenv.ReadEnv(&auth); err != nil {
		slog.Error("Failed to read auth configuration", "err", err)
		os.Exit(1)
	}

	ctx := context.Background()
	svc, err := cfg.BuildService(ctx)
	if err != nil {
		slog.Error("Failed to create service", "err", err)
		os.Exit(1)
	}

	server := app.DefaultApp()

	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)
	server.R.Handle("/metrics", promhttp.Handler())

	handler := api.NewHandler(svc, slog.Default())

	server.R.Route("/api", func(r chi.Router) {
		if auth.ApiKeySHA256 != "" {
			apiKeyMiddleware, err := middleware.ApiKeyMiddleware(middleware.ApiKeyConfig{
				APIKeys: map[string]string{
					"key1": auth.ApiKeySHA256,
				},
			})
			if err != nil {
				slog.Error("Failed initialize API Key middleware", "err", err)
				os.Exit(1)
			}
			r.Use(apiKeyMiddleware)
		}
		r.Mount("/", handler.Routes())
	})

	slog.Info("content-guardian starting", "environment", cfg.Environment)

	server.Run()
}
