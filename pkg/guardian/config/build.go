package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/content-guardian/pkg/guardian"
	"github.com/tendant/content-guardian/pkg/guardian/ledger"
	ledgermem "github.com/tendant/content-guardian/pkg/guardian/ledger/memory"
	ledgerpg "github.com/tendant/content-guardian/pkg/guardian/ledger/postgres"
	repofile "github.com/tendant/content-guardian/pkg/guardian/repo/file"
	repomem "github.com/tendant/content-guardian/pkg/guardian/repo/memory"
	repopg "github.com/tendant/content-guardian/pkg/guardian/repo/postgres"
	reporedis "github.com/tendant/content-guardian/pkg/guardian/repo/redis"
	"github.com/tendant/content-guardian/pkg/guardian/similarity"
	fsstorage "github.com/tendant/content-guardian/pkg/guardian/storage/fs"
	memorystorage "github.com/tendant/content-guardian/pkg/guardian/storage/memory"
	s3storage "github.com/tendant/content-guardian/pkg/guardian/storage/s3"
)

// LedgerReader is implemented by ledgers that can list their entries.
type LedgerReader interface {
	guardian.Ledger
	Entries(ctx context.Context) ([]ledger.Entry, error)
}

// BuildService creates a Service instance from the server configuration
func (c *ServerConfig) BuildService(ctx context.Context) (guardian.Service, error) {
	logger := slog.Default()

	store, err := c.BuildPersistence(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build persistence: %w", err)
	}

	storage, err := c.BuildStorage(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build storage: %w", err)
	}

	l, err := c.BuildLedger(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build ledger: %w", err)
	}

	options := []guardian.Option{
		guardian.WithPersistence(store),
		guardian.WithStorage(storage),
		guardian.WithLedger(l),
		guardian.WithLogger(logger),
		guardian.WithImageScorer(c.BuildImageScorer(logger)),
		guardian.WithLicensePolicy(c.LicenseValidity),
	}

	if c.EnableEventLogging {
		options = append(options, guardian.WithEventSink(guardian.NewLoggingEventSink(logger)))
	}

	return guardian.New(ctx, options...)
}

// BuildImageScorer creates the perceptual scorer for image content
func (c *ServerConfig) BuildImageScorer(logger *slog.Logger) *similarity.ImageScorer {
	return similarity.NewImageScorer(similarity.ImageScorerConfig{
		Loader:    similarity.NewSourceLoader(c.ImageRoot),
		CacheSize: c.ImageCacheSize,
		CacheTTL:  c.ImageCacheTTL,
		Logger:    logger,
	})
}

// BuildPersistence creates the store the registry snapshot is saved to
func (c *ServerConfig) BuildPersistence(ctx context.Context) (guardian.PersistenceStore, error) {
	s, err := persistenceScheme(c.PersistenceURL)
	if err != nil {
		return nil, err
	}

	switch s {
	case schemeMemory:
		return repomem.New(), nil
	case schemeFile:
		return repofile.New(filePath(c.PersistenceURL))
	case schemePostgres:
		pool, err := newPool(ctx, c.PersistenceURL)
		if err != nil {
			return nil, err
		}
		repo := repopg.NewWithPool(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return repo, nil
	case schemeRedis:
		redisURL, key, err := splitRedisKey(c.PersistenceURL)
		if err != nil {
			return nil, err
		}
		repo, err := reporedis.NewFromURL(redisURL, key)
		if err != nil {
			return nil, err
		}
		if err := repo.Ping(ctx); err != nil {
			repo.Close()
			return nil, fmt.Errorf("failed to ping redis: %w", err)
		}
		return repo, nil
	}
	return nil, fmt.Errorf("unsupported persistence scheme: %s", s)
}

// BuildStorage creates the content-addressed payload store
func (c *ServerConfig) BuildStorage(ctx context.Context) (guardian.StorageClient, error) {
	s, err := storageScheme(c.StorageURL)
	if err != nil {
		return nil, err
	}

	switch s {
	case schemeMemory:
		return memorystorage.New(), nil
	case schemeFile:
		return fsstorage.New(fsstorage.Config{BaseDir: filePath(c.StorageURL)})
	case schemeS3:
		bucket, query, err := s3Bucket(c.StorageURL)
		if err != nil {
			return nil, err
		}
		cfg := s3storage.Config{
			Region:                 c.S3.Region,
			Bucket:                 bucket,
			Prefix:                 c.S3.Prefix,
			AccessKeyID:            c.S3.AccessKeyID,
			SecretAccessKey:        c.S3.SecretAccessKey,
			Endpoint:               c.S3.Endpoint,
			UsePathStyle:           c.S3.UsePathStyle,
			EnableSSE:              c.S3.SSEAlgorithm != "",
			SSEAlgorithm:           c.S3.SSEAlgorithm,
			SSEKMSKeyID:            c.S3.SSEKMSKeyID,
			CreateBucketIfNotExist: c.S3.CreateBucket,
		}
		if region := query.Get("region"); region != "" {
			cfg.Region = region
		}
		if endpoint := query.Get("endpoint"); endpoint != "" {
			cfg.Endpoint = endpoint
			cfg.UsePathStyle = true
		}
		return s3storage.New(cfg)
	}
	return nil, fmt.Errorf("unsupported storage scheme: %s", s)
}

// BuildLedger creates the ledger registrations are anchored on
func (c *ServerConfig) BuildLedger(ctx context.Context) (LedgerReader, error) {
	s, err := ledgerScheme(c.LedgerURL)
	if err != nil {
		return nil, err
	}

	switch s {
	case schemeMemory:
		return ledgermem.New(c.LedgerAccounts...), nil
	case schemePostgres:
		pool, err := newPool(ctx, c.LedgerURL)
		if err != nil {
			return nil, err
		}
		l := ledgerpg.NewWithPool(pool, c.LedgerAccounts...)
		if err := l.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return l, nil
	}
	return nil, fmt.Errorf("unsupported ledger scheme: %s", s)
}

func newPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// splitRedisKey removes the non-standard "key" query parameter, which go-redis
// would reject, and returns it separately.
func splitRedisKey(raw string) (string, string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("invalid PERSISTENCE_URL: %w", err)
	}
	if u.Host == "" {
		return "", "", errors.New("redis host cannot be empty in PERSISTENCE_URL")
	}
	q := u.Query()
	key := q.Get("key")
	q.Del("key")
	u.RawQuery = q.Encode()
	return u.String(), key, nil
}
