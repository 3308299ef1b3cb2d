package engine

import (
	"context"
	"testing"
	"time"

	"github.com/JolanLar/lunager/internal/catalog"
	"github.com/JolanLar/lunager/internal/storage"
	"github.com/JolanLar/lunager/internal/testutil"
)

type fakeDiscovery struct {
	items []DiscoveryItem
}

func (f *fakeDiscovery) Media(ctx context.Context) ([]DiscoveryItem, error) {
	return f.items, nil
}

type fakeAcquisition struct {
	kind       catalog.MediaKind
	tier       catalog.QualityTier
	instanceID int64
	library    []LibraryItem
	folders    []RootFolder
}

func (f *fakeAcquisition) Kind() catalog.MediaKind   { return f.kind }
func (f *fakeAcquisition) Tier() catalog.QualityTier { return f.tier }
func (f *fakeAcquisition) InstanceID() int64         { return f.instanceID }

func (f *fakeAcquisition) Library(ctx context.Context) ([]LibraryItem, error) {
	return f.library, nil
}

func (f *fakeAcquisition) RootFolders(ctx context.Context) ([]RootFolder, error) {
	return f.folders, nil
}

type fakeActivity struct {
	name  string
	facts []ActivityFact
}

func (f *fakeActivity) Name() string { return f.name }

func (f *fakeActivity) Activity(ctx context.Context) ([]ActivityFact, error) {
	return f.facts, nil
}

type engineFixture struct {
	store    *catalog.Store
	registry *storage.Registry
	engine   *Engine
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	tdb := testutil.NewTestDB(t)
	store := catalog.NewStore(tdb.Conn, tdb.Logger)
	registry := storage.NewRegistry(tdb.Conn, tdb.Logger)
	return &engineFixture{
		store:    store,
		registry: registry,
		engine:   New(store, registry, tdb.Logger),
	}
}

func (f *engineFixture) instance(t *testing.T, kind storage.InstanceKind, url string, tier catalog.QualityTier) int64 {
	t.Helper()
	id, err := f.registry.UpsertInstance(context.Background(), storage.Instance{
		Kind: kind,
		Name: string(kind),
		URL:  url,
		Tier: tier,
	})
	if err != nil {
		t.Fatalf("UpsertInstance() error = %v", err)
	}
	return id
}

func TestSyncDiscovery_CreatesAndSeedsLastView(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	requested := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	src := &fakeDiscovery{items: []DiscoveryItem{
		{Kind: catalog.KindMovie, ExternalID: 100, PlaybackKey: "rk-100", FirstSeen: requested},
		{Kind: catalog.KindSeries, ExternalID: 200, PlaybackKey: "rk-200", FirstSeen: requested},
	}}

	stats, err := f.engine.SyncDiscovery(ctx, src)
	if err != nil {
		t.Fatalf("SyncDiscovery() error = %v", err)
	}
	if stats.Created != 2 {
		t.Errorf("Created = %d, want 2", stats.Created)
	}

	title, err := f.store.GetByExternalID(ctx, catalog.KindMovie, 100)
	if err != nil {
		t.Fatalf("GetByExternalID() error = %v", err)
	}
	if title.PlaybackKey != "rk-100" {
		t.Errorf("playback key = %q, want rk-100", title.PlaybackKey)
	}
	// A freshly requested title counts its request date as activity so it
	// is not immediately a deletion candidate.
	if title.LastView != requested.Unix() {
		t.Errorf("last view = %d, want %d", title.LastView, requested.Unix())
	}
}

// Discovery must never regress a real watch time back to the request date.
func TestSyncDiscovery_DoesNotRegressLastView(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	requested := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	watched := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC).Unix()

	title := &catalog.Title{Kind: catalog.KindMovie, ExternalID: 100, Name: "Film", LastView: watched}
	if err := f.store.Save(ctx, title); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	src := &fakeDiscovery{items: []DiscoveryItem{
		{Kind: catalog.KindMovie, ExternalID: 100, PlaybackKey: "rk-100", FirstSeen: requested},
	}}
	if _, err := f.engine.SyncDiscovery(ctx, src); err != nil {
		t.Fatalf("SyncDiscovery() error = %v", err)
	}

	got, err := f.store.GetByExternalID(ctx, catalog.KindMovie, 100)
	if err != nil {
		t.Fatalf("GetByExternalID() error = %v", err)
	}
	if got.LastView != watched {
		t.Errorf("last view = %d, want %d", got.LastView, watched)
	}
	if got.PlaybackKey != "rk-100" {
		t.Errorf("playback key = %q, want rk-100", got.PlaybackKey)
	}
}

// Two acquisition instances at different tiers write disjoint path fields
// on the same canonical record.
func TestSyncAcquisition_TierIsolation(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	hdID := f.instance(t, storage.InstanceRadarr, "http://radarr:7878", catalog.TierHD)
	fourKID := f.instance(t, storage.InstanceRadarr, "http://radarr-4k:7878", catalog.Tier4K)

	hd := &fakeAcquisition{
		kind:       catalog.KindMovie,
		tier:       catalog.TierHD,
		instanceID: hdID,
		library:    []LibraryItem{{ExternalID: 100, Title: "Film", RootFolderPath: "/media/movies"}},
		folders:    []RootFolder{{Path: "/media/movies", FreeSpace: 5_000_000_000}},
	}
	fourK := &fakeAcquisition{
		kind:       catalog.KindMovie,
		tier:       catalog.Tier4K,
		instanceID: fourKID,
		library:    []LibraryItem{{ExternalID: 100, Title: "Film", RootFolderPath: "/media4k/movies"}},
		folders:    []RootFolder{{Path: "/media4k/movies", FreeSpace: 9_000_000_000}},
	}

	if _, err := f.engine.SyncAcquisition(ctx, hd); err != nil {
		t.Fatalf("SyncAcquisition(hd) error = %v", err)
	}
	if _, err := f.engine.SyncAcquisition(ctx, fourK); err != nil {
		t.Fatalf("SyncAcquisition(4k) error = %v", err)
	}

	title, err := f.store.GetByExternalID(ctx, catalog.KindMovie, 100)
	if err != nil {
		t.Fatalf("GetByExternalID() error = %v", err)
	}
	if title.PathHD != "/media/movies" {
		t.Errorf("hd path = %q, want /media/movies", title.PathHD)
	}
	if title.Path4K != "/media4k/movies" {
		t.Errorf("4k path = %q, want /media4k/movies", title.Path4K)
	}
	if title.Viewed() {
		t.Errorf("acquisition fabricated a view: last view = %d", title.LastView)
	}

	pools, err := f.registry.Pools(ctx)
	if err != nil {
		t.Fatalf("Pools() error = %v", err)
	}
	if len(pools) != 2 {
		t.Errorf("Pools() returned %d pools, want 2", len(pools))
	}
}

func TestSyncAcquisition_Idempotent(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	id := f.instance(t, storage.InstanceSonarr, "http://sonarr:8989", catalog.TierHD)
	src := &fakeAcquisition{
		kind:       catalog.KindSeries,
		tier:       catalog.TierHD,
		instanceID: id,
		library:    []LibraryItem{{ExternalID: 200, Title: "Show", RootFolderPath: "/media/tv"}},
		folders:    []RootFolder{{Path: "/media/tv", FreeSpace: 5_000_000_000}},
	}

	first, err := f.engine.SyncAcquisition(ctx, src)
	if err != nil {
		t.Fatalf("SyncAcquisition() error = %v", err)
	}
	if first.Created != 1 {
		t.Errorf("first run Created = %d, want 1", first.Created)
	}

	second, err := f.engine.SyncAcquisition(ctx, src)
	if err != nil {
		t.Fatalf("SyncAcquisition() error = %v", err)
	}
	if second.Created != 0 || second.Updated != 0 {
		t.Errorf("second run stats = %+v, want no writes", second)
	}

	if n, err := f.store.Count(ctx, catalog.KindSeries); err != nil || n != 1 {
		t.Errorf("Count() = %d, %v, want 1, nil", n, err)
	}
}

func TestSyncActivity_MergesByKeyAndName(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	seed := []catalog.Title{
		{Kind: catalog.KindMovie, ExternalID: 100, Name: "Film", PlaybackKey: "rk-100", LastView: catalog.LastViewNever},
		{Kind: catalog.KindSeries, ExternalID: 200, Name: "Show", LastView: catalog.LastViewNever},
	}
	for i := range seed {
		if err := f.store.Save(ctx, &seed[i]); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	watched := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC).Unix()
	src := &fakeActivity{name: "jellyfin", facts: []ActivityFact{
		{Kind: catalog.KindMovie, PlaybackKey: "rk-100", LastPlayed: watched},
		{Kind: catalog.KindSeries, Name: " SHOW ", LastPlayed: watched},
	}}

	stats, err := f.engine.SyncActivity(ctx, src)
	if err != nil {
		t.Fatalf("SyncActivity() error = %v", err)
	}
	if stats.Updated != 2 {
		t.Errorf("Updated = %d, want 2", stats.Updated)
	}

	for _, want := range []struct {
		kind catalog.MediaKind
		id   int64
	}{
		{catalog.KindMovie, 100},
		{catalog.KindSeries, 200},
	} {
		title, err := f.store.GetByExternalID(ctx, want.kind, want.id)
		if err != nil {
			t.Fatalf("GetByExternalID(%s/%d) error = %v", want.kind, want.id, err)
		}
		if title.LastView != watched {
			t.Errorf("%s/%d last view = %d, want %d", want.kind, want.id, title.LastView, watched)
		}
	}
}

// Activity entries that match nothing in the catalog are dropped, never
// turned into records, and the pass keeps going.
func TestSyncActivity_SkipsUnmatched(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	title := &catalog.Title{Kind: catalog.KindMovie, ExternalID: 100, Name: "Film", LastView: catalog.LastViewNever}
	if err := f.store.Save(ctx, title); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	watched := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC).Unix()
	src := &fakeActivity{name: "tautulli", facts: []ActivityFact{
		{Kind: catalog.KindMovie, Name: "Unknown Film", LastPlayed: watched},
		{Kind: catalog.KindMovie, PlaybackKey: "rk-999", LastPlayed: watched},
		{Kind: catalog.KindMovie, Name: "Film", LastPlayed: watched},
	}}

	stats, err := f.engine.SyncActivity(ctx, src)
	if err != nil {
		t.Fatalf("SyncActivity() error = %v", err)
	}
	if stats.Skipped != 2 {
		t.Errorf("Skipped = %d, want 2", stats.Skipped)
	}
	if stats.Updated != 1 {
		t.Errorf("Updated = %d, want 1", stats.Updated)
	}

	if n, err := f.store.Count(ctx, catalog.KindMovie); err != nil || n != 1 {
		t.Errorf("Count() = %d, %v, want 1, nil", n, err)
	}
}

// Replaying the same history is a no-op once the catalog has converged.
func TestSyncActivity_Idempotent(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	title := &catalog.Title{Kind: catalog.KindMovie, ExternalID: 100, Name: "Film", LastView: catalog.LastViewNever}
	if err := f.store.Save(ctx, title); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	src := &fakeActivity{name: "jellyfin", facts: []ActivityFact{
		{Kind: catalog.KindMovie, Name: "Film", LastPlayed: 1000},
		{Kind: catalog.KindMovie, Name: "Film", LastPlayed: 500},
	}}

	first, err := f.engine.SyncActivity(ctx, src)
	if err != nil {
		t.Fatalf("SyncActivity() error = %v", err)
	}
	if first.Updated != 1 {
		t.Errorf("first run Updated = %d, want 1", first.Updated)
	}

	second, err := f.engine.SyncActivity(ctx, src)
	if err != nil {
		t.Fatalf("SyncActivity() error = %v", err)
	}
	if second.Updated != 0 {
		t.Errorf("second run Updated = %d, want 0", second.Updated)
	}

	got, err := f.store.GetByExternalID(ctx, catalog.KindMovie, 100)
	if err != nil {
		t.Fatalf("GetByExternalID() error = %v", err)
	}
	if got.LastView != 1000 {
		t.Errorf("last view = %d, want 1000", got.LastView)
	}
}
