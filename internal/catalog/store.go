package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

var (
	ErrNotFound    = errors.New("title not found")
	ErrInvalidKind = errors.New("invalid media kind")
)

// Store persists canonical titles in the media table.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewStore creates a title store.
func NewStore(db *sql.DB, logger zerolog.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger.With().Str("component", "catalog").Logger(),
	}
}

const titleColumns = "kind, external_id, name, path_hd, path_4k, playback_key, last_view, protected, added_at, updated_at"

// GetByExternalID retrieves a title by its immutable identity key.
func (s *Store) GetByExternalID(ctx context.Context, kind MediaKind, externalID int64) (*Title, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+titleColumns+`
		FROM media
		WHERE kind = ? AND external_id = ?`,
		string(kind), externalID)
	return scanTitle(row)
}

// GetByPlaybackKey retrieves a title by the opaque key the playback system
// issued for it.
func (s *Store) GetByPlaybackKey(ctx context.Context, kind MediaKind, key string) (*Title, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+titleColumns+`
		FROM media
		WHERE kind = ? AND playback_key = ?
		ORDER BY external_id
		LIMIT 1`,
		string(kind), key)
	return scanTitle(row)
}

// FindByName matches a free-text name against stored titles,
// case-insensitively and ignoring surrounding whitespace. Nothing prevents
// two titles from normalizing to the same name, so the first match in
// external-id order is returned along with a flag for the ambiguity.
func (s *Store) FindByName(ctx context.Context, kind MediaKind, name string) (*Title, bool, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+titleColumns+`
		FROM media
		WHERE kind = ? AND lower(trim(name)) = ?
		ORDER BY external_id
		LIMIT 2`,
		string(kind), NormalizeName(name))
	if err != nil {
		return nil, false, fmt.Errorf("failed to query titles by name: %w", err)
	}
	defer rows.Close()

	var matches []*Title
	for rows.Next() {
		t, err := scanTitleRows(rows)
		if err != nil {
			return nil, false, err
		}
		matches = append(matches, t)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("failed to scan titles by name: %w", err)
	}

	if len(matches) == 0 {
		return nil, false, ErrNotFound
	}
	return matches[0], len(matches) > 1, nil
}

// List returns all titles of one kind in external-id order.
func (s *Store) List(ctx context.Context, kind MediaKind) ([]Title, error) {
	return s.queryTitles(ctx, `
		SELECT `+titleColumns+`
		FROM media
		WHERE kind = ?
		ORDER BY external_id`,
		string(kind))
}

// Save upserts a title keyed by (kind, external id). Creation and update
// go through the same statement so re-running a sync pass is harmless.
func (s *Store) Save(ctx context.Context, t *Title) error {
	if !t.Kind.Valid() {
		return ErrInvalidKind
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO media (kind, external_id, name, path_hd, path_4k, playback_key, last_view, protected)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (kind, external_id) DO UPDATE SET
			name = excluded.name,
			path_hd = excluded.path_hd,
			path_4k = excluded.path_4k,
			playback_key = excluded.playback_key,
			last_view = excluded.last_view,
			updated_at = CURRENT_TIMESTAMP`,
		string(t.Kind), t.ExternalID, t.Name, t.PathHD, t.Path4K, t.PlaybackKey, t.LastView, boolToInt(t.Protected))
	if err != nil {
		return fmt.Errorf("failed to save title: %w", err)
	}
	return nil
}

// SetProtected flips the protection flag. This is the only write path for
// protected: sync passes never touch it, and a protected title is never a
// deletion candidate.
func (s *Store) SetProtected(ctx context.Context, kind MediaKind, externalID int64, protected bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE media
		SET protected = ?, updated_at = CURRENT_TIMESTAMP
		WHERE kind = ? AND external_id = ?`,
		boolToInt(protected), string(kind), externalID)
	if err != nil {
		return fmt.Errorf("failed to update protection: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update protection: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of titles of one kind.
func (s *Store) Count(ctx context.Context, kind MediaKind) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM media WHERE kind = ?`, string(kind)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count titles: %w", err)
	}
	return count, nil
}

// DeletionCandidates returns unprotected titles last viewed before the
// threshold, in external-id order. Read-only: selecting a candidate never
// mutates the row.
func (s *Store) DeletionCandidates(ctx context.Context, kind MediaKind, threshold int64) ([]Title, error) {
	return s.queryTitles(ctx, `
		SELECT `+titleColumns+`
		FROM media
		WHERE kind = ? AND protected = 0 AND last_view < ?
		ORDER BY external_id`,
		string(kind), threshold)
}

func (s *Store) queryTitles(ctx context.Context, query string, args ...any) ([]Title, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query titles: %w", err)
	}
	defer rows.Close()

	var titles []Title
	for rows.Next() {
		t, err := scanTitleRows(rows)
		if err != nil {
			return nil, err
		}
		titles = append(titles, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan titles: %w", err)
	}
	return titles, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTitle(row *sql.Row) (*Title, error) {
	t, err := scanInto(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return t, err
}

func scanTitleRows(rows *sql.Rows) (*Title, error) {
	return scanInto(rows)
}

func scanInto(s scanner) (*Title, error) {
	var (
		t         Title
		kind      string
		protected int64
		addedAt   sql.NullTime
		updatedAt sql.NullTime
	)
	err := s.Scan(&kind, &t.ExternalID, &t.Name, &t.PathHD, &t.Path4K, &t.PlaybackKey, &t.LastView, &protected, &addedAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan title: %w", err)
	}
	t.Kind = MediaKind(kind)
	t.Protected = protected == 1
	if addedAt.Valid {
		t.AddedAt = addedAt.Time
	}
	if updatedAt.Valid {
		t.UpdatedAt = updatedAt.Time
	}
	return &t, nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
