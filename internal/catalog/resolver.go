package catalog

import (
	"context"

	"github.com/rs/zerolog"
)

// Ref identifies an inbound fact's target title. Exactly the keys the
// source knows are set: discovery and acquisition facts carry an external
// id, activity facts carry a playback key or only a free-text name.
type Ref struct {
	ExternalID  int64
	PlaybackKey string
	Name        string
}

// Resolver maps inbound facts to canonical titles.
type Resolver struct {
	store  *Store
	logger zerolog.Logger
}

// NewResolver creates a resolver over the given store.
func NewResolver(store *Store, logger zerolog.Logger) *Resolver {
	return &Resolver{
		store:  store,
		logger: logger.With().Str("component", "resolver").Logger(),
	}
}

// Resolve finds the canonical title for a ref, or ErrNotFound.
//
// When a strong key is present it is used exclusively: a miss on an
// external id means the title is new, never a fallback to name matching,
// which would risk merging two different titles. Name matching exists only
// for activity facts that know nothing else; a miss there means the fact
// is dropped, it never fabricates a catalog entry. If several titles
// normalize to the same name the first in external-id order wins; that
// imprecision is logged, not hidden.
func (r *Resolver) Resolve(ctx context.Context, kind MediaKind, ref Ref) (*Title, error) {
	if ref.ExternalID != 0 {
		return r.store.GetByExternalID(ctx, kind, ref.ExternalID)
	}

	if ref.PlaybackKey != "" {
		return r.store.GetByPlaybackKey(ctx, kind, ref.PlaybackKey)
	}

	if ref.Name == "" {
		return nil, ErrNotFound
	}

	title, ambiguous, err := r.store.FindByName(ctx, kind, ref.Name)
	if err != nil {
		return nil, err
	}
	if ambiguous {
		r.logger.Warn().
			Str("kind", string(kind)).
			Str("name", ref.Name).
			Int64("matchedExternalId", title.ExternalID).
			Msg("Multiple titles match name, using first")
	}
	return title, nil
}
