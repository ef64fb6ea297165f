package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:            "8080",
		Environment:     "development",
		PersistenceURL:  "file://./data/contents.json",
		StorageURL:      "memory://",
		LedgerURL:       "memory://",
		ImageCacheSize:  256,
		ImageCacheTTL:   10 * time.Minute,
		LicenseValidity: 30 * 24 * time.Hour,
		S3: S3Config{
			Region: "us-east-1",
		},
	}
}

// ServerConfig represents configuration for the content-guardian service
type ServerConfig struct {
	Port        string `env:"PORT" env-description:"HTTP port"`
	Environment string `env:"ENVIRONMENT" env-description:"development, production or testing"`

	PersistenceURL string `env:"PERSISTENCE_URL" env-description:"registry snapshot location: memory://, file://, postgres:// or redis://"`

	StorageURL string `env:"STORAGE_URL" env-description:"payload storage: memory://, file:// or s3://bucket"`

	LedgerURL      string   `env:"LEDGER_URL" env-description:"ledger: memory:// or postgres://"`
	LedgerAccounts []string `env:"LEDGER_ACCOUNTS" env-separator:"," env-description:"comma separated ledger accounts, first is the default owner"`

	// Image similarity
	ImageRoot      string        `env:"IMAGE_ROOT" env-description:"directory relative image paths are resolved against"`
	ImageCacheSize int           `env:"IMAGE_CACHE_SIZE" env-description:"number of cached image grids, 0 disables the cache"`
	ImageCacheTTL  time.Duration `env:"IMAGE_CACHE_TTL" env-description:"lifetime of cached image grids"`

	LicenseValidity time.Duration `env:"LICENSE_VALIDITY" env-description:"lifetime of issued licenses"`

	EnableEventLogging bool `env:"ENABLE_EVENT_LOGGING" env-description:"log registry events"`

	S3 S3Config
}

// S3Config holds the options for s3:// storage that do not fit in the URL
type S3Config struct {
	Region          string `env:"S3_REGION" env-description:"S3 region"`
	Endpoint        string `env:"S3_ENDPOINT" env-description:"custom endpoint for S3-compatible services"`
	Prefix          string `env:"S3_PREFIX" env-description:"key prefix for stored payloads"`
	AccessKeyID     string `env:"S3_ACCESS_KEY_ID" env-description:"S3 access key"`
	SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY" env-description:"S3 secret key"`
	UsePathStyle    bool   `env:"S3_USE_PATH_STYLE" env-description:"use path-style addressing"`
	SSEAlgorithm    string `env:"S3_SSE_ALGORITHM" env-description:"server-side encryption: AES256 or aws:kms"`
	SSEKMSKeyID     string `env:"S3_SSE_KMS_KEY_ID" env-description:"KMS key for aws:kms encryption"`
	CreateBucket    bool   `env:"S3_CREATE_BUCKET" env-description:"create the bucket when missing"`
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	if _, err := persistenceScheme(c.PersistenceURL); err != nil {
		return err
	}
	if _, err := storageScheme(c.StorageURL); err != nil {
		return err
	}
	if _, err := ledgerScheme(c.LedgerURL); err != nil {
		return err
	}

	if c.ImageCacheSize < 0 {
		return fmt.Errorf("image cache size must not be negative, got %d", c.ImageCacheSize)
	}
	if c.LicenseValidity <= 0 {
		return errors.New("license validity must be positive")
	}
	if c.S3.SSEAlgorithm != "" && c.S3.SSEAlgorithm != "AES256" && c.S3.SSEAlgorithm != "aws:kms" {
		return fmt.Errorf("unsupported S3 SSE algorithm: %s (use 'AES256' or 'aws:kms')", c.S3.SSEAlgorithm)
	}

	return nil
}

const (
	schemeMemory   = "memory"
	schemeFile     = "file"
	schemePostgres = "postgres"
	schemeRedis    = "redis"
	schemeS3       = "s3"
)

func scheme(raw string) string {
	if raw == "" || raw == "memory" {
		return schemeMemory
	}
	idx := strings.Index(raw, "://")
	if idx <= 0 {
		return ""
	}
	s := strings.ToLower(raw[:idx])
	switch s {
	case "postgresql":
		return schemePostgres
	case "rediss":
		return schemeRedis
	}
	return s
}

func persistenceScheme(raw string) (string, error) {
	switch s := scheme(raw); s {
	case schemeMemory, schemePostgres, schemeRedis:
		return s, nil
	case schemeFile:
		if filePath(raw) == "" {
			return "", errors.New("file path cannot be empty in PERSISTENCE_URL")
		}
		return s, nil
	}
	return "", fmt.Errorf("unsupported PERSISTENCE_URL format: %s (use 'memory://', 'file://...', 'postgres://...' or 'redis://...')", raw)
}

func storageScheme(raw string) (string, error) {
	switch s := scheme(raw); s {
	case schemeMemory:
		return s, nil
	case schemeFile:
		if filePath(raw) == "" {
			return "", errors.New("filesystem path cannot be empty in STORAGE_URL")
		}
		return s, nil
	case schemeS3:
		if _, _, err := s3Bucket(raw); err != nil {
			return "", err
		}
		return s, nil
	}
	return "", fmt.Errorf("unsupported STORAGE_URL format: %s (use 'memory://', 'file://...', or 's3://...')", raw)
}

func ledgerScheme(raw string) (string, error) {
	switch s := scheme(raw); s {
	case schemeMemory, schemePostgres:
		return s, nil
	}
	return "", fmt.Errorf("unsupported LEDGER_URL format: %s (use 'memory://' or 'postgres://...')", raw)
}

// filePath strips the file:// prefix, keeping relative paths relative.
func filePath(raw string) string {
	return strings.TrimPrefix(raw, "file://")
}

// s3Bucket extracts the bucket and query parameters from s3://bucket?region=..
func s3Bucket(raw string) (string, url.Values, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", nil, fmt.Errorf("invalid STORAGE_URL: %w", err)
	}
	if u.Host == "" {
		return "", nil, errors.New("S3 bucket name cannot be empty in STORAGE_URL")
	}
	return u.Host, u.Query(), nil
}
