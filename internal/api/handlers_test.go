package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JolanLar/lunager/internal/catalog"
	"github.com/JolanLar/lunager/internal/config"
	"github.com/JolanLar/lunager/internal/retention"
	"github.com/JolanLar/lunager/internal/scheduler"
	"github.com/JolanLar/lunager/internal/storage"
	"github.com/JolanLar/lunager/internal/testutil"
)

type apiFixture struct {
	server *Server
	store  *catalog.Store
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	tdb := testutil.NewTestDB(t)
	store := catalog.NewStore(tdb.Conn, tdb.Logger)
	registry := storage.NewRegistry(tdb.Conn, tdb.Logger)
	classifier := retention.NewClassifier(store, tdb.Logger)

	sched, err := scheduler.New(tdb.Logger)
	if err != nil {
		t.Fatalf("scheduler.New() error = %v", err)
	}
	t.Cleanup(func() { sched.Stop() })

	cfg := &config.Config{
		Retention: config.RetentionConfig{ThresholdDays: 90},
	}
	return &apiFixture{
		server: NewServer(cfg, store, registry, classifier, sched, tdb.Logger),
		store:  store,
	}
}

func (f *apiFixture) request(method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, http.NoBody)
	rec := httptest.NewRecorder()
	f.server.echo.ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.request(http.MethodGet, "/healthz")
	if rec.Code != http.StatusOK {
		t.Errorf("GET /healthz status = %d, want 200", rec.Code)
	}
}

func TestHandleCandidates(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()

	title := &catalog.Title{Kind: catalog.KindMovie, ExternalID: 1, Name: "Old Film", LastView: catalog.LastViewNever}
	if err := f.store.Save(ctx, title); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	rec := f.request(http.MethodGet, "/api/v1/candidates")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/v1/candidates status = %d, want 200", rec.Code)
	}

	var report retention.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Total() != 1 {
		t.Errorf("report total = %d, want 1", report.Total())
	}
}

func TestHandleCandidates_BadDays(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.request(http.MethodGet, "/api/v1/candidates?days=soon")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleProtect(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()

	title := &catalog.Title{Kind: catalog.KindMovie, ExternalID: 1, Name: "Keeper", LastView: catalog.LastViewNever}
	if err := f.store.Save(ctx, title); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	rec := f.request(http.MethodPost, "/api/v1/media/movie/1/protect")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("POST protect status = %d, want 204", rec.Code)
	}
	got, err := f.store.GetByExternalID(ctx, catalog.KindMovie, 1)
	if err != nil {
		t.Fatalf("GetByExternalID() error = %v", err)
	}
	if !got.Protected {
		t.Error("title not protected after POST")
	}

	rec = f.request(http.MethodDelete, "/api/v1/media/movie/1/protect")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("DELETE protect status = %d, want 204", rec.Code)
	}
	got, err = f.store.GetByExternalID(ctx, catalog.KindMovie, 1)
	if err != nil {
		t.Fatalf("GetByExternalID() error = %v", err)
	}
	if got.Protected {
		t.Error("title still protected after DELETE")
	}
}

func TestHandleProtect_Errors(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.request(http.MethodPost, "/api/v1/media/movie/99/protect")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown title status = %d, want 404", rec.Code)
	}

	rec = f.request(http.MethodPost, "/api/v1/media/music/1/protect")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad kind status = %d, want 400", rec.Code)
	}

	rec = f.request(http.MethodPost, "/api/v1/media/movie/abc/protect")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", rec.Code)
	}
}

func TestHandleListMedia(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()

	for i, name := range []string{"First", "Second"} {
		title := &catalog.Title{Kind: catalog.KindSeries, ExternalID: int64(i + 1), Name: name, LastView: catalog.LastViewNever}
		if err := f.store.Save(ctx, title); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	rec := f.request(http.MethodGet, "/api/v1/media/series")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET media status = %d, want 200", rec.Code)
	}
	var titles []catalog.Title
	if err := json.Unmarshal(rec.Body.Bytes(), &titles); err != nil {
		t.Fatalf("decode titles: %v", err)
	}
	if len(titles) != 2 {
		t.Errorf("returned %d titles, want 2", len(titles))
	}
}
