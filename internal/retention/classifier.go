// Package retention selects deletion candidates from the catalog. The
// classifier is read-only: it reports, an external executor deletes.
package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/JolanLar/lunager/internal/catalog"
)

// Report lists the deletion candidates for one threshold.
type Report struct {
	Threshold time.Time       `json:"threshold"`
	Movies    []catalog.Title `json:"movies"`
	Series    []catalog.Title `json:"series"`
}

// Total returns the number of candidates across both kinds.
func (r *Report) Total() int {
	return len(r.Movies) + len(r.Series)
}

// Classifier scans the catalog for inactive titles.
type Classifier struct {
	store  *catalog.Store
	logger zerolog.Logger
}

// NewClassifier creates a classifier over the store.
func NewClassifier(store *catalog.Store, logger zerolog.Logger) *Classifier {
	return &Classifier{
		store:  store,
		logger: logger.With().Str("component", "retention").Logger(),
	}
}

// Candidates returns every unprotected title last viewed before the
// threshold. Titles never viewed at all carry a sentinel below any real
// threshold, so they are always candidates unless protected; a title
// acquired but never watched is exactly what this report exists to
// surface.
func (c *Classifier) Candidates(ctx context.Context, threshold time.Time) (*Report, error) {
	report := &Report{Threshold: threshold}

	movies, err := c.store.DeletionCandidates(ctx, catalog.KindMovie, threshold.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to classify movies: %w", err)
	}
	report.Movies = movies

	series, err := c.store.DeletionCandidates(ctx, catalog.KindSeries, threshold.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to classify series: %w", err)
	}
	report.Series = series

	c.logger.Info().
		Time("threshold", threshold).
		Int("movies", len(report.Movies)).
		Int("series", len(report.Series)).
		Msg("Classified deletion candidates")
	return report, nil
}

// CandidatesAfterInactivity is a convenience wrapper using a threshold of
// now minus the given number of days.
func (c *Classifier) CandidatesAfterInactivity(ctx context.Context, days int) (*Report, error) {
	return c.Candidates(ctx, time.Now().AddDate(0, 0, -days))
}
