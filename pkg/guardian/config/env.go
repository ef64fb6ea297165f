package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// WithEnv applies environment variable overrides.
//
// Environment variable mapping:
//
//	PORT, ENVIRONMENT           - HTTP server settings
//	PERSISTENCE_URL             - memory://, file://./data/contents.json (default), postgres://..., redis://...
//	STORAGE_URL                 - memory:// (default), file:///path/to/data, s3://bucket?region=us-east-1
//	LEDGER_URL                  - memory:// (default), postgres://...
//	LEDGER_ACCOUNTS             - comma separated accounts, first is the default owner
//	IMAGE_ROOT                  - base directory for relative image paths
//	IMAGE_CACHE_SIZE            - number of cached image grids (0 disables the cache)
//	IMAGE_CACHE_TTL             - grid cache lifetime, e.g. "10m"
//	LICENSE_VALIDITY            - license lifetime, e.g. "720h"
//	ENABLE_EVENT_LOGGING        - log registry events
//	S3_*                        - options for s3:// storage
//
// Unset variables keep their current value.
func WithEnv() Option {
	return func(c *ServerConfig) error {
		if err := cleanenv.ReadEnv(c); err != nil {
			return fmt.Errorf("failed to read environment: %w", err)
		}
		return nil
	}
}

// EnvHelp returns a description of the supported environment variables
func EnvHelp() (string, error) {
	var cfg ServerConfig
	return cleanenv.GetDescription(&cfg, nil)
}
