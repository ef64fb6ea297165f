package guardian

import (
	"context"
	"log/slog"
)

// NoopEventSink is a no-operation implementation of EventSink
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

func (n *NoopEventSink) ContentRegistered(ctx context.Context, record *ContentRecord) error {
	return nil
}

func (n *NoopEventSink) ContentVerified(ctx context.Context, contentType ContentType, result *MatchResult) error {
	return nil
}

func (n *NoopEventSink) LicenseIssued(ctx context.Context, contentID string, license *LicenseRecord) error {
	return nil
}

// LoggingEventSink writes every event to a structured logger.
type LoggingEventSink struct {
	logger *slog.Logger
}

// NewLoggingEventSink creates an event sink that logs to logger (slog.Default when nil)
func NewLoggingEventSink(logger *slog.Logger) EventSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingEventSink{logger: logger}
}

func (s *LoggingEventSink) ContentRegistered(ctx context.Context, record *ContentRecord) error {
	s.logger.InfoContext(ctx, "content registered",
		"content_id", record.ID,
		"type", record.Type,
		"fingerprint", record.Fingerprint,
		"locator", record.StorageLocator,
		"tx", record.LedgerTxID,
		"owner", record.Owner)
	return nil
}

func (s *LoggingEventSink) ContentVerified(ctx context.Context, contentType ContentType, result *MatchResult) error {
	s.logger.InfoContext(ctx, "content verified",
		"type", contentType,
		"matched", result.Matched,
		"match_percentage", result.MatchPercentage,
		"content_id", result.ContentID,
		"candidates", result.Candidates,
		"skipped", result.Skipped)
	return nil
}

func (s *LoggingEventSink) LicenseIssued(ctx context.Context, contentID string, license *LicenseRecord) error {
	s.logger.InfoContext(ctx, "license issued",
		"content_id", contentID,
		"license_id", license.ID,
		"license_type", license.LicenseType,
		"expires_at", license.ExpiresAt)
	return nil
}
