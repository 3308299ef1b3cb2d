// Package engine runs the sync passes that reconcile upstream facts into
// the canonical catalog. Passes are sequential and idempotent: every
// mutation is a keyed upsert or a monotonic merge, so any pass can be
// retried or re-ordered without corrupting state.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/JolanLar/lunager/internal/catalog"
	"github.com/JolanLar/lunager/internal/storage"
)

// Stats summarizes one sync pass.
type Stats struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// Engine applies sync passes to the catalog.
type Engine struct {
	store    *catalog.Store
	resolver *catalog.Resolver
	registry *storage.Registry
	logger   zerolog.Logger
}

// New creates an engine over the given store and registry.
func New(store *catalog.Store, registry *storage.Registry, logger zerolog.Logger) *Engine {
	return &Engine{
		store:    store,
		resolver: catalog.NewResolver(store, logger),
		registry: registry,
		logger:   logger.With().Str("component", "engine").Logger(),
	}
}

// SyncDiscovery reconciles the discovery service's title list. Unknown
// external ids create new canonical records; known ones merge the
// playback key and seed last-view from the request date.
func (e *Engine) SyncDiscovery(ctx context.Context, src DiscoverySource) (Stats, error) {
	var stats Stats
	log := e.passLogger("discovery")

	items, err := src.Media(ctx)
	if err != nil {
		return stats, fmt.Errorf("discovery sync: %w", err)
	}

	for _, item := range items {
		update := catalog.Update{
			PlaybackKey: item.PlaybackKey,
			LastView:    item.FirstSeen.Unix(),
		}

		created, updated, err := e.apply(ctx, item.Kind, item.ExternalID, update)
		if err != nil {
			return stats, fmt.Errorf("discovery sync: %w", err)
		}
		stats.Created += created
		stats.Updated += updated
	}

	log.Info().
		Int("items", len(items)).
		Int("created", stats.Created).
		Int("updated", stats.Updated).
		Msg("Discovery sync complete")
	return stats, nil
}

// SyncAcquisition reconciles one acquisition instance: its root folders go
// into the storage registry, its on-disk titles merge name and the
// instance's tier path into the catalog.
func (e *Engine) SyncAcquisition(ctx context.Context, src AcquisitionSource) (Stats, error) {
	var stats Stats
	log := e.passLogger("acquisition").With().
		Str("kind", string(src.Kind())).
		Str("tier", string(src.Tier())).
		Logger()

	folders, err := src.RootFolders(ctx)
	if err != nil {
		return stats, fmt.Errorf("acquisition sync: %w", err)
	}
	for _, f := range folders {
		if _, err := e.registry.RegisterPath(ctx, src.InstanceID(), f.Path, f.FreeSpace); err != nil {
			return stats, fmt.Errorf("acquisition sync: %w", err)
		}
	}

	items, err := src.Library(ctx)
	if err != nil {
		return stats, fmt.Errorf("acquisition sync: %w", err)
	}

	for _, item := range items {
		update := catalog.Update{
			Name:     item.Title,
			Path:     item.RootFolderPath,
			Tier:     src.Tier(),
			LastView: catalog.LastViewNever,
		}

		created, updated, err := e.apply(ctx, src.Kind(), item.ExternalID, update)
		if err != nil {
			return stats, fmt.Errorf("acquisition sync: %w", err)
		}
		stats.Created += created
		stats.Updated += updated
	}

	log.Info().
		Int("rootFolders", len(folders)).
		Int("items", len(items)).
		Int("created", stats.Created).
		Int("updated", stats.Updated).
		Msg("Acquisition sync complete")
	return stats, nil
}

// SyncActivity merges observed playback times from one watch-activity
// service. Entries that resolve to no canonical title are skipped and
// counted; an activity fact never fabricates a catalog entry. Writes
// happen only when the monotonic merge actually raised last-view, so
// re-processing the same history in any order converges to the same
// state.
func (e *Engine) SyncActivity(ctx context.Context, src ActivitySource) (Stats, error) {
	var stats Stats
	log := e.passLogger("activity").With().Str("source", src.Name()).Logger()

	facts, err := src.Activity(ctx)
	if err != nil {
		return stats, fmt.Errorf("activity sync %s: %w", src.Name(), err)
	}

	for _, fact := range facts {
		title, err := e.resolver.Resolve(ctx, fact.Kind, catalog.Ref{
			PlaybackKey: fact.PlaybackKey,
			Name:        fact.Name,
		})
		if errors.Is(err, catalog.ErrNotFound) {
			stats.Skipped++
			log.Debug().
				Str("kind", string(fact.Kind)).
				Str("name", fact.Name).
				Str("playbackKey", fact.PlaybackKey).
				Msg("No catalog match for activity entry")
			continue
		}
		if err != nil {
			return stats, fmt.Errorf("activity sync %s: %w", src.Name(), err)
		}

		update := catalog.NoActivity()
		update.LastView = fact.LastPlayed

		merged, changed := catalog.Merge(*title, update)
		if !changed {
			continue
		}
		if err := e.store.Save(ctx, &merged); err != nil {
			return stats, fmt.Errorf("activity sync %s: %w", src.Name(), err)
		}
		stats.Updated++
	}

	log.Info().
		Int("entries", len(facts)).
		Int("updated", stats.Updated).
		Int("skipped", stats.Skipped).
		Msg("Activity sync complete")
	return stats, nil
}

// apply resolves a keyed fact and either creates the title or merges into
// it. Returns how many records were created and updated (0 or 1 each).
func (e *Engine) apply(ctx context.Context, kind catalog.MediaKind, externalID int64, update catalog.Update) (int, int, error) {
	title, err := e.resolver.Resolve(ctx, kind, catalog.Ref{ExternalID: externalID})
	if errors.Is(err, catalog.ErrNotFound) {
		fresh := catalog.Title{
			Kind:       kind,
			ExternalID: externalID,
			LastView:   catalog.LastViewNever,
		}
		merged, _ := catalog.Merge(fresh, update)
		if err := e.store.Save(ctx, &merged); err != nil {
			return 0, 0, err
		}
		return 1, 0, nil
	}
	if err != nil {
		return 0, 0, err
	}

	merged, changed := catalog.Merge(*title, update)
	if !changed {
		return 0, 0, nil
	}
	if err := e.store.Save(ctx, &merged); err != nil {
		return 0, 0, err
	}
	return 0, 1, nil
}

func (e *Engine) passLogger(pass string) zerolog.Logger {
	return e.logger.With().
		Str("pass", pass).
		Str("run", uuid.NewString()[:8]).
		Logger()
}
