package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/JolanLar/lunager/internal/testutil"
)

func TestResolver_ByExternalID(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	store := NewStore(tdb.Conn, tdb.Logger)
	resolver := NewResolver(store, tdb.Logger)
	ctx := context.Background()

	title := &Title{Kind: KindMovie, ExternalID: 42, Name: "Film", LastView: LastViewNever}
	if err := store.Save(ctx, title); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := resolver.Resolve(ctx, KindMovie, Ref{ExternalID: 42})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got.ExternalID != 42 {
		t.Errorf("Resolve() external id = %d, want 42", got.ExternalID)
	}
}

// A strong key is used exclusively: a miss on the external id must not
// fall back to name matching even when a name is supplied and would hit.
func TestResolver_ExternalIDNoNameFallback(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	store := NewStore(tdb.Conn, tdb.Logger)
	resolver := NewResolver(store, tdb.Logger)
	ctx := context.Background()

	title := &Title{Kind: KindMovie, ExternalID: 42, Name: "Film", LastView: LastViewNever}
	if err := store.Save(ctx, title); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	_, err := resolver.Resolve(ctx, KindMovie, Ref{ExternalID: 99, Name: "Film"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Resolve() error = %v, want ErrNotFound", err)
	}
}

func TestResolver_ByPlaybackKey(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	store := NewStore(tdb.Conn, tdb.Logger)
	resolver := NewResolver(store, tdb.Logger)
	ctx := context.Background()

	title := &Title{Kind: KindSeries, ExternalID: 7, Name: "Show", PlaybackKey: "rk-7", LastView: LastViewNever}
	if err := store.Save(ctx, title); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := resolver.Resolve(ctx, KindSeries, Ref{PlaybackKey: "rk-7"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got.ExternalID != 7 {
		t.Errorf("Resolve() external id = %d, want 7", got.ExternalID)
	}
}

func TestResolver_ByName(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	store := NewStore(tdb.Conn, tdb.Logger)
	resolver := NewResolver(store, tdb.Logger)
	ctx := context.Background()

	title := &Title{Kind: KindMovie, ExternalID: 42, Name: "Film", LastView: LastViewNever}
	if err := store.Save(ctx, title); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := resolver.Resolve(ctx, KindMovie, Ref{Name: "  FILM "})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got.ExternalID != 42 {
		t.Errorf("Resolve() external id = %d, want 42", got.ExternalID)
	}
}

func TestResolver_EmptyRef(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	store := NewStore(tdb.Conn, tdb.Logger)
	resolver := NewResolver(store, tdb.Logger)

	_, err := resolver.Resolve(context.Background(), KindMovie, Ref{})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Resolve() error = %v, want ErrNotFound", err)
	}
}
