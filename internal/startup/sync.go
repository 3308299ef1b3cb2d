// Package startup wires upstream clients to the engine and runs the full
// sync chain.
package startup

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/JolanLar/lunager/internal/catalog"
	"github.com/JolanLar/lunager/internal/config"
	"github.com/JolanLar/lunager/internal/engine"
	"github.com/JolanLar/lunager/internal/services/arr"
	"github.com/JolanLar/lunager/internal/services/jellyfin"
	"github.com/JolanLar/lunager/internal/services/overseerr"
	"github.com/JolanLar/lunager/internal/services/tautulli"
	"github.com/JolanLar/lunager/internal/storage"
)

// SyncRunner executes the full sync chain: discovery, then each
// acquisition instance, then each activity service. One runner serializes
// all runs so scheduled and manually triggered syncs never interleave
// merges.
type SyncRunner struct {
	cfg      *config.Config
	engine   *engine.Engine
	registry *storage.Registry
	retry    RetryConfig
	logger   zerolog.Logger
	mu       sync.Mutex
}

// NewSyncRunner creates a sync runner.
func NewSyncRunner(cfg *config.Config, eng *engine.Engine, registry *storage.Registry, logger zerolog.Logger) *SyncRunner {
	return &SyncRunner{
		cfg:      cfg,
		engine:   eng,
		registry: registry,
		retry:    DefaultRetryConfig(),
		logger:   logger.With().Str("component", "sync").Logger(),
	}
}

// Run executes every pass in order. A failing pass is logged and the chain
// continues: passes are independent and individually retryable, and state
// already merged by a partially failed pass is valid (merges are
// idempotent and re-applied safely on the next run). The combined error is
// returned for the caller's observability.
func (r *SyncRunner) Run(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error

	ov := overseerr.NewClient(r.cfg.Overseerr, r.logger)
	if !ov.IsConfigured() {
		return fmt.Errorf("sync: %w", overseerr.ErrNotConfigured)
	}

	err := withRetry(ctx, "discovery", r.retry, r.logger, func() error {
		_, err := r.engine.SyncDiscovery(ctx, discoverySource{client: ov})
		return err
	})
	if err != nil {
		r.logger.Error().Err(err).Msg("Discovery pass failed")
		errs = append(errs, err)
	}

	errs = append(errs, r.syncAcquisitions(ctx, ov)...)
	errs = append(errs, r.syncActivity(ctx)...)

	return errors.Join(errs...)
}

func (r *SyncRunner) syncAcquisitions(ctx context.Context, ov *overseerr.Client) []error {
	var errs []error

	for _, instKind := range []storage.InstanceKind{storage.InstanceRadarr, storage.InstanceSonarr} {
		var (
			settings []overseerr.ArrSettings
			err      error
		)
		if instKind == storage.InstanceRadarr {
			settings, err = ov.Radarrs(ctx)
		} else {
			settings, err = ov.Sonarrs(ctx)
		}
		if err != nil {
			r.logger.Error().Err(err).Str("kind", string(instKind)).Msg("Failed to discover acquisition instances")
			errs = append(errs, err)
			continue
		}

		for _, s := range settings {
			inst := storage.Instance{
				Kind:   instKind,
				Name:   s.Name,
				URL:    s.URL,
				APIKey: s.APIKey,
				Tier:   catalog.TierHD,
			}
			if s.Is4K {
				inst.Tier = catalog.Tier4K
			}

			id, err := r.registry.UpsertInstance(ctx, inst)
			if err != nil {
				r.logger.Error().Err(err).Str("url", inst.URL).Msg("Failed to persist acquisition instance")
				errs = append(errs, err)
				continue
			}
			inst.ID = id

			client := arr.NewClient(inst, r.logger)
			err = withRetry(ctx, "acquisition", r.retry, r.logger, func() error {
				_, err := r.engine.SyncAcquisition(ctx, acquisitionSource{client: client})
				return err
			})
			if err != nil {
				r.logger.Error().Err(err).Str("url", inst.URL).Msg("Acquisition pass failed")
				errs = append(errs, err)
			}
		}
	}

	return errs
}

func (r *SyncRunner) syncActivity(ctx context.Context) []error {
	var errs []error

	var sources []engine.ActivitySource
	for _, cfg := range r.cfg.Jellyfin {
		sources = append(sources, jellyfinSource{
			client:         jellyfin.NewClient(cfg, r.logger),
			lookbackMonths: r.cfg.Retention.LookbackMonths,
		})
	}
	for _, cfg := range r.cfg.Tautulli {
		sources = append(sources, tautulliSource{client: tautulli.NewClient(cfg, r.logger)})
	}

	for _, src := range sources {
		err := withRetry(ctx, "activity", r.retry, r.logger, func() error {
			_, err := r.engine.SyncActivity(ctx, src)
			return err
		})
		if err != nil {
			r.logger.Error().Err(err).Str("source", src.Name()).Msg("Activity pass failed")
			errs = append(errs, err)
		}
	}

	return errs
}
