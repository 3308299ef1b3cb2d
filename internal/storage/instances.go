package storage

import (
	"context"
	"fmt"

	"github.com/JolanLar/lunager/internal/catalog"
)

// InstanceKind distinguishes the two acquisition service flavors.
type InstanceKind string

const (
	InstanceRadarr InstanceKind = "radarr"
	InstanceSonarr InstanceKind = "sonarr"
)

// MediaKind returns the catalog domain an instance kind feeds.
func (k InstanceKind) MediaKind() catalog.MediaKind {
	if k == InstanceSonarr {
		return catalog.KindSeries
	}
	return catalog.KindMovie
}

// Instance is one Radarr or Sonarr connection, discovered from the request
// service's settings and refreshed on every sync.
type Instance struct {
	ID     int64               `json:"id"`
	Kind   InstanceKind        `json:"kind"`
	Name   string              `json:"name"`
	URL    string              `json:"url"`
	APIKey string              `json:"-"`
	Tier   catalog.QualityTier `json:"tier"`
}

// UpsertInstance saves an instance keyed by (kind, url, tier) and returns
// its row id. The id keys path bindings, so it must stay stable across
// re-registration.
func (r *Registry) UpsertInstance(ctx context.Context, inst Instance) (int64, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO service_instance (kind, name, url, api_key, quality_tier)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (kind, url, quality_tier) DO UPDATE SET
			name = excluded.name,
			api_key = excluded.api_key,
			updated_at = CURRENT_TIMESTAMP`,
		string(inst.Kind), inst.Name, inst.URL, inst.APIKey, string(inst.Tier))
	if err != nil {
		return 0, fmt.Errorf("failed to save service instance: %w", err)
	}

	var id int64
	err = r.db.QueryRowContext(ctx, `
		SELECT id FROM service_instance
		WHERE kind = ? AND url = ? AND quality_tier = ?`,
		string(inst.Kind), inst.URL, string(inst.Tier)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to look up service instance: %w", err)
	}
	return id, nil
}

// Instances returns all persisted instances of one kind.
func (r *Registry) Instances(ctx context.Context, kind InstanceKind) ([]Instance, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, kind, name, url, api_key, quality_tier
		FROM service_instance
		WHERE kind = ?
		ORDER BY id`,
		string(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to query service instances: %w", err)
	}
	defer rows.Close()

	var instances []Instance
	for rows.Next() {
		var (
			inst     Instance
			instKind string
			tier     string
		)
		if err := rows.Scan(&inst.ID, &instKind, &inst.Name, &inst.URL, &inst.APIKey, &tier); err != nil {
			return nil, fmt.Errorf("failed to scan service instance: %w", err)
		}
		inst.Kind = InstanceKind(instKind)
		inst.Tier = catalog.QualityTier(tier)
		instances = append(instances, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan service instances: %w", err)
	}
	return instances, nil
}
