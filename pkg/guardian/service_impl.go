package guardian

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tendant/content-guardian/pkg/guardian/similarity"
)

// service implements the Service interface
type service struct {
	registry  *Registry
	matcher   *Matcher
	licenses  *LicenseIssuer
	ledger    Ledger
	eventSink EventSink
	logger    *slog.Logger
}

type serviceConfig struct {
	store     PersistenceStore
	storage   StorageClient
	ledger    Ledger
	eventSink EventSink
	logger    *slog.Logger
	images    *similarity.ImageScorer
	validity  time.Duration
	clock     func() time.Time
	scorers   map[ContentType]Scorer
}

// Option represents a functional option for configuring the service
type Option func(*serviceConfig)

// WithPersistence sets the store the registry snapshot is saved to
func WithPersistence(store PersistenceStore) Option {
	return func(c *serviceConfig) {
		c.store = store
	}
}

// WithStorage sets the content-addressed storage client
func WithStorage(storage StorageClient) Option {
	return func(c *serviceConfig) {
		c.storage = storage
	}
}

// WithLedger sets the ledger registrations are anchored on
func WithLedger(ledger Ledger) Option {
	return func(c *serviceConfig) {
		c.ledger = ledger
	}
}

// WithEventSink sets the event sink for the service
func WithEventSink(sink EventSink) Option {
	return func(c *serviceConfig) {
		c.eventSink = sink
	}
}

// WithLogger sets the logger shared by the service components
func WithLogger(logger *slog.Logger) Option {
	return func(c *serviceConfig) {
		c.logger = logger
	}
}

// WithImageScorer sets the perceptual scorer used for image content
func WithImageScorer(images *similarity.ImageScorer) Option {
	return func(c *serviceConfig) {
		c.images = images
	}
}

// WithContentScorer overrides the scorer for one content type
func WithContentScorer(contentType ContentType, scorer Scorer) Option {
	return func(c *serviceConfig) {
		if c.scorers == nil {
			c.scorers = make(map[ContentType]Scorer)
		}
		c.scorers[contentType] = scorer
	}
}

// WithLicensePolicy overrides DefaultLicenseValidity
func WithLicensePolicy(validity time.Duration) Option {
	return func(c *serviceConfig) {
		c.validity = validity
	}
}

// WithTimeSource overrides the clock used for registration and license timestamps
func WithTimeSource(now func() time.Time) Option {
	return func(c *serviceConfig) {
		c.clock = now
	}
}

// New creates a new service instance with the given options. The persisted
// registry snapshot is loaded before New returns.
func New(ctx context.Context, options ...Option) (Service, error) {
	cfg := &serviceConfig{}
	for _, option := range options {
		option(cfg)
	}

	if cfg.store == nil {
		return nil, fmt.Errorf("persistence store is required")
	}
	if cfg.storage == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.ledger == nil {
		return nil, fmt.Errorf("ledger is required")
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.eventSink == nil {
		cfg.eventSink = NewNoopEventSink()
	}
	if cfg.images == nil {
		cfg.images = similarity.NewImageScorer(similarity.ImageScorerConfig{Logger: cfg.logger})
	}

	registry, err := NewRegistry(ctx, cfg.store, cfg.storage, cfg.ledger,
		WithRegistryLogger(cfg.logger), WithClock(cfg.clock))
	if err != nil {
		return nil, err
	}

	matcherOpts := []MatcherOption{
		WithMatcherLogger(cfg.logger),
		WithScorer(ContentTypeImage, ImageScorer{Images: cfg.images}),
	}
	for t, s := range cfg.scorers {
		matcherOpts = append(matcherOpts, WithScorer(t, s))
	}

	return &service{
		registry:  registry,
		matcher:   NewMatcher(registry, matcherOpts...),
		licenses:  NewLicenseIssuer(registry, WithLicenseValidity(cfg.validity), WithLicenseClock(cfg.clock)),
		ledger:    cfg.ledger,
		eventSink: cfg.eventSink,
		logger:    cfg.logger,
	}, nil
}

// Content operations

func (s *service) Register(ctx context.Context, req RegisterRequest) (*ContentRecord, error) {
	record, err := s.registry.Register(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := s.eventSink.ContentRegistered(ctx, record); err != nil {
		s.logger.WarnContext(ctx, "event sink failed", "event", "content_registered", "content_id", record.ID, "error", err)
	}
	return record, nil
}

func (s *service) GetContent(ctx context.Context, id string) (*ContentRecord, error) {
	return s.registry.Get(ctx, id)
}

func (s *service) ListContent(ctx context.Context) ([]*ContentRecord, error) {
	return s.registry.All(ctx)
}

// Similarity

func (s *service) Verify(ctx context.Context, req VerifyRequest) (*MatchResult, error) {
	result, err := s.matcher.Verify(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := s.eventSink.ContentVerified(ctx, req.Type, result); err != nil {
		s.logger.WarnContext(ctx, "event sink failed", "event", "content_verified", "error", err)
	}
	return result, nil
}

// License operations

func (s *service) IssueLicense(ctx context.Context, req IssueLicenseRequest) (*IssuedLicense, error) {
	issued, err := s.licenses.Issue(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := s.eventSink.LicenseIssued(ctx, issued.ContentID, &issued.License); err != nil {
		s.logger.WarnContext(ctx, "event sink failed", "event", "license_issued", "content_id", issued.ContentID, "error", err)
	}
	return issued, nil
}

func (s *service) GetLicense(ctx context.Context, contentID, licenseID string) (*LicenseRecord, error) {
	return s.licenses.Get(ctx, contentID, licenseID)
}

func (s *service) ListLicenses(ctx context.Context, contentID string) ([]LicenseRecord, error) {
	return s.licenses.List(ctx, contentID)
}

func (s *service) ListAccounts(ctx context.Context) ([]string, error) {
	accounts, err := s.ledger.ListAccounts(ctx)
	if err != nil {
		return nil, &DependencyError{Dependency: DependencyLedger, Op: "list_accounts", Err: err}
	}
	return accounts, nil
}
