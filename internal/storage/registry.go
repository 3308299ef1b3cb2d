// Package storage tracks acquisition service instances, the root-folder
// paths they expose, and the storage pools backing those paths.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

var ErrInstanceNotFound = errors.New("service instance not found")

// Pool is a distinct unit of disk capacity. Upstream services expose no
// stable pool identifier, so pools are matched by exact capacity; two
// folders reporting the same capacity are assumed to share a pool.
type Pool struct {
	ID       int64 `json:"id"`
	Capacity int64 `json:"capacity"`
}

// Binding ties one service instance's root-folder path to a pool. Keyed by
// (service, path): re-observing the pair moves the binding to whatever
// pool matches the newly reported capacity.
type Binding struct {
	ServiceID int64  `json:"serviceId"`
	Path      string `json:"path"`
	PoolID    int64  `json:"poolId"`
}

// Registry persists pools and path bindings.
type Registry struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewRegistry creates a storage registry.
func NewRegistry(db *sql.DB, logger zerolog.Logger) *Registry {
	return &Registry{
		db:     db,
		logger: logger.With().Str("component", "storage").Logger(),
	}
}

// RegisterPath records that a service instance exposes path with the given
// free capacity. The pool is resolved by exact capacity match, created if
// no pool has that capacity, and the binding upserted. Acquisition passes
// call this for every root folder on every run.
func (r *Registry) RegisterPath(ctx context.Context, serviceID int64, path string, capacity int64) (*Binding, error) {
	pool, err := r.poolByCapacity(ctx, capacity)
	if errors.Is(err, sql.ErrNoRows) {
		pool, err = r.createPool(ctx, capacity)
	}
	if err != nil {
		return nil, err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO path_binding (service_id, path, pool_id)
		VALUES (?, ?, ?)
		ON CONFLICT (service_id, path) DO UPDATE SET
			pool_id = excluded.pool_id,
			updated_at = CURRENT_TIMESTAMP`,
		serviceID, path, pool.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to save path binding: %w", err)
	}

	r.logger.Debug().
		Int64("serviceId", serviceID).
		Str("path", path).
		Int64("poolId", pool.ID).
		Int64("capacity", capacity).
		Msg("Registered root folder")

	return &Binding{ServiceID: serviceID, Path: path, PoolID: pool.ID}, nil
}

// Pools returns all known storage pools ordered by capacity.
func (r *Registry) Pools(ctx context.Context) ([]Pool, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, capacity FROM storage_pool ORDER BY capacity`)
	if err != nil {
		return nil, fmt.Errorf("failed to query pools: %w", err)
	}
	defer rows.Close()

	var pools []Pool
	for rows.Next() {
		var p Pool
		if err := rows.Scan(&p.ID, &p.Capacity); err != nil {
			return nil, fmt.Errorf("failed to scan pool: %w", err)
		}
		pools = append(pools, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan pools: %w", err)
	}
	return pools, nil
}

// Bindings returns all path bindings ordered by service and path.
func (r *Registry) Bindings(ctx context.Context) ([]Binding, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT service_id, path, pool_id FROM path_binding ORDER BY service_id, path`)
	if err != nil {
		return nil, fmt.Errorf("failed to query path bindings: %w", err)
	}
	defer rows.Close()

	var bindings []Binding
	for rows.Next() {
		var b Binding
		if err := rows.Scan(&b.ServiceID, &b.Path, &b.PoolID); err != nil {
			return nil, fmt.Errorf("failed to scan path binding: %w", err)
		}
		bindings = append(bindings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan path bindings: %w", err)
	}
	return bindings, nil
}

func (r *Registry) poolByCapacity(ctx context.Context, capacity int64) (*Pool, error) {
	var p Pool
	err := r.db.QueryRowContext(ctx,
		`SELECT id, capacity FROM storage_pool WHERE capacity = ?`, capacity).
		Scan(&p.ID, &p.Capacity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to query pool: %w", err)
	}
	return &p, nil
}

func (r *Registry) createPool(ctx context.Context, capacity int64) (*Pool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO storage_pool (capacity) VALUES (?)`, capacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	return &Pool{ID: id, Capacity: capacity}, nil
}
