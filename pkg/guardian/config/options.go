package config

import (
	"fmt"
	"time"
)

// WithPort sets the server port
func WithPort(port string) Option {
	return func(c *ServerConfig) error {
		if port == "" {
			return fmt.Errorf("port cannot be empty")
		}
		c.Port = port
		return nil
	}
}

// WithEnvironment sets the environment (development, production, testing)
func WithEnvironment(env string) Option {
	return func(c *ServerConfig) error {
		if env == "" {
			return fmt.Errorf("environment cannot be empty")
		}
		c.Environment = env
		return nil
	}
}

// WithPersistenceURL selects where the registry snapshot is kept
func WithPersistenceURL(raw string) Option {
	return func(c *ServerConfig) error {
		if _, err := persistenceScheme(raw); err != nil {
			return err
		}
		c.PersistenceURL = raw
		return nil
	}
}

// WithStorageURL selects the payload storage backend
func WithStorageURL(raw string) Option {
	return func(c *ServerConfig) error {
		if _, err := storageScheme(raw); err != nil {
			return err
		}
		c.StorageURL = raw
		return nil
	}
}

// WithLedgerURL selects the ledger backend
func WithLedgerURL(raw string) Option {
	return func(c *ServerConfig) error {
		if _, err := ledgerScheme(raw); err != nil {
			return err
		}
		c.LedgerURL = raw
		return nil
	}
}

// WithLedgerAccounts sets the accounts known to the ledger
func WithLedgerAccounts(accounts ...string) Option {
	return func(c *ServerConfig) error {
		c.LedgerAccounts = append([]string(nil), accounts...)
		return nil
	}
}

// WithImageRoot sets the directory relative image paths are resolved against
func WithImageRoot(dir string) Option {
	return func(c *ServerConfig) error {
		c.ImageRoot = dir
		return nil
	}
}

// WithImageCache configures the image grid cache
func WithImageCache(size int, ttl time.Duration) Option {
	return func(c *ServerConfig) error {
		if size < 0 {
			return fmt.Errorf("image cache size must not be negative, got %d", size)
		}
		c.ImageCacheSize = size
		c.ImageCacheTTL = ttl
		return nil
	}
}

// WithLicenseValidity sets how long issued licenses remain valid
func WithLicenseValidity(d time.Duration) Option {
	return func(c *ServerConfig) error {
		if d <= 0 {
			return fmt.Errorf("license validity must be positive")
		}
		c.LicenseValidity = d
		return nil
	}
}

// WithEventLogging toggles the logging event sink
func WithEventLogging(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.EnableEventLogging = enabled
		return nil
	}
}
