package guardian

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tendant/content-guardian/pkg/guardian/similarity"
)

// TextScorer scores text records lexically.
type TextScorer struct{}

func (TextScorer) Score(ctx context.Context, query string, candidate *ContentRecord) (float64, error) {
	return similarity.TextScore(query, candidate.Body)
}

// ImageScorer scores image records perceptually.
type ImageScorer struct {
	Images *similarity.ImageScorer
}

func (s ImageScorer) Score(ctx context.Context, query string, candidate *ContentRecord) (float64, error) {
	return s.Images.Compare(ctx, query, candidate.Body)
}

// Prepare decodes the query image once for a whole scan.
func (s ImageScorer) Prepare(ctx context.Context, query string) (Scorer, error) {
	grid, err := s.Images.Grid(ctx, query)
	if err != nil {
		return nil, err
	}
	return preparedImage{images: s.Images, query: grid}, nil
}

type preparedImage struct {
	images *similarity.ImageScorer
	query  similarity.Grid
}

func (p preparedImage) Score(ctx context.Context, _ string, candidate *ContentRecord) (float64, error) {
	return p.images.CompareTo(ctx, p.query, candidate.Body)
}

// Matcher scans the registry for the registered record most similar to a query.
type Matcher struct {
	registry *Registry
	scorers  map[ContentType]Scorer
	logger   *slog.Logger
}

// MatcherOption represents a functional option for configuring the matcher
type MatcherOption func(*Matcher)

// WithScorer replaces the scorer used for contentType
func WithScorer(contentType ContentType, scorer Scorer) MatcherOption {
	return func(m *Matcher) {
		m.scorers[contentType] = scorer
	}
}

// WithMatcherLogger sets the logger used for skipped candidates
func WithMatcherLogger(logger *slog.Logger) MatcherOption {
	return func(m *Matcher) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewMatcher creates a matcher over registry with the default text and image scorers.
func NewMatcher(registry *Registry, opts ...MatcherOption) *Matcher {
	m := &Matcher{
		registry: registry,
		scorers: map[ContentType]Scorer{
			ContentTypeText:  TextScorer{},
			ContentTypeImage: ImageScorer{Images: similarity.NewImageScorer(similarity.ImageScorerConfig{})},
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Verify compares req against every registered record of the same type and
// returns the best match. Records that cannot be scored are skipped.
func (m *Matcher) Verify(ctx context.Context, req VerifyRequest) (*MatchResult, error) {
	if err := validateStruct(req); err != nil {
		verificationsTotal.WithLabelValues(typeLabel(req.Type), outcomeInvalid).Inc()
		return nil, err
	}
	scorer, ok := m.scorers[req.Type]
	if !ok {
		return nil, &ValidationError{Field: "type", Reason: fmt.Sprintf("has no scorer for %q", req.Type)}
	}

	start := time.Now()
	defer func() {
		verifyDuration.WithLabelValues(string(req.Type)).Observe(time.Since(start).Seconds())
	}()

	records, err := m.registry.All(ctx)
	if err != nil {
		return nil, err
	}

	result := &MatchResult{}
	var best *ContentRecord
	var bestScore float64
	prepared := false

	for _, rec := range records {
		if rec.Type != req.Type {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !prepared {
			if scorer, err = prepare(ctx, scorer, req.Body); err != nil {
				verificationsTotal.WithLabelValues(string(req.Type), outcomeInvalid).Inc()
				return nil, err
			}
			prepared = true
		}
		result.Candidates++

		score, err := scorer.Score(ctx, req.Body, rec)
		if err != nil {
			result.Skipped++
			scoringFailuresTotal.WithLabelValues(string(req.Type)).Inc()
			m.logger.WarnContext(ctx, "skipping candidate that could not be scored",
				"content_id", rec.ID, "type", rec.Type, "error", err)
			continue
		}
		if best == nil || score > bestScore {
			best = rec
			bestScore = score
		}
	}

	if best == nil {
		result.Message = NoMatchMessage
		verificationsTotal.WithLabelValues(string(req.Type), outcomeNoMatch).Inc()
		return result, nil
	}

	owner := best.Owner
	if owner == "" {
		if owner, err = m.registry.DefaultOwner(ctx); err != nil {
			m.logger.WarnContext(ctx, "failed to resolve owner for matched record",
				"content_id", best.ID, "error", err)
		}
	}

	result.Matched = true
	result.MatchPercentage = bestScore * 100
	result.ContentID = best.ID
	result.Title = best.Title
	result.Owner = owner
	result.RegistrationDate = best.RegisteredAt
	result.ExactMatch = best.Fingerprint == Fingerprint(req.Body)

	verificationsTotal.WithLabelValues(string(req.Type), outcomeMatch).Inc()
	return result, nil
}

// prepare runs the scorer's per-query step, if it has one. A query that
// cannot be prepared is the caller's fault.
func prepare(ctx context.Context, scorer Scorer, query string) (Scorer, error) {
	p, ok := scorer.(QueryPreparer)
	if !ok {
		return scorer, nil
	}
	prepared, err := p.Prepare(ctx, query)
	if err != nil {
		return nil, &ValidationError{Field: "content", Reason: fmt.Sprintf("cannot be read: %v", err)}
	}
	return prepared, nil
}
