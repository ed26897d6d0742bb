package scraper

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"finn_scrooper/config"
	"finn_scrooper/models"
	"finn_scrooper/storage"
)

type fakeHandler struct {
	id      string
	dataset *models.Dataset
	err     error
	pages   int
}

func (h *fakeHandler) ID() string { return h.id }

func (h *fakeHandler) Scrape(ctx context.Context, hooks Hooks) (*models.Dataset, error) {
	for page := 1; page <= h.pages; page++ {
		if page > 1 && hooks.Continue != nil && !hooks.Continue(page) {
			return nil, ErrStopped
		}
		if hooks.Progress != nil {
			hooks.Progress(page, h.pages, page)
		}
	}
	return h.dataset, h.err
}

// recordingSink keeps a copy of the run as it was when the sink was called.
type recordingSink struct {
	runs []models.ScrapeRun
	rows []int
	err  error
}

func (s *recordingSink) SaveDataset(ctx context.Context, run *models.ScrapeRun, dataset *models.Dataset) error {
	s.runs = append(s.runs, *run)
	s.rows = append(s.rows, dataset.Len())
	return s.err
}

type recordingRecorder struct {
	runs []models.ScrapeRun
	errs []error
}

func (r *recordingRecorder) UpsertScrapeRun(ctx context.Context, run *models.ScrapeRun) error {
	r.runs = append(r.runs, *run)
	r.errs = append(r.errs, ctx.Err())
	return nil
}

func newTestOrchestrator(t *testing.T, siteIDs ...string) (*Orchestrator, *storage.SQLiteStore) {
	t.Helper()

	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "orchestrator.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	cfg := &config.Config{Sites: make(map[string]*config.SiteConfig)}
	for _, id := range siteIDs {
		site := config.DefaultSite()
		site.ID = id
		site.Name = id
		cfg.Sites[id] = site
	}

	o, err := NewOrchestrator(cfg, store, newFixtureFetcher(t, "search_page1.html", "search_page2.html"))
	if err != nil {
		t.Fatalf("NewOrchestrator failed: %v", err)
	}
	return o, store
}

func datasetOf(n int) *models.Dataset {
	ds := models.NewDataset()
	for i := 0; i < n; i++ {
		ds.Append(models.NormalizedListing{})
	}
	return ds
}

func TestOrchestrator_RunSite(t *testing.T) {
	o, store := newTestOrchestrator(t, "finn_homes")
	o.SetHandler("finn_homes", &fakeHandler{id: "finn_homes", dataset: datasetOf(4), pages: 2})

	sink := &recordingSink{}
	o.AddSink("csv", sink)

	run, err := o.RunSite(context.Background(), "finn_homes")
	if err != nil {
		t.Fatalf("RunSite failed: %v", err)
	}
	if run.Status != models.RunStatusCompleted || run.ListingsFound != 4 || run.PagesFetched != 2 {
		t.Errorf("unexpected run: %+v", run)
	}

	if len(sink.runs) != 1 || sink.rows[0] != 4 {
		t.Fatalf("sink got %v rows", sink.rows)
	}

	count, err := store.ListingCount(run.ID)
	if err != nil || count != 4 {
		t.Errorf("sqlite rows = %d (%v), want 4", count, err)
	}

	runs, err := store.GetRecentRuns("finn_homes", 1)
	if err != nil || len(runs) != 1 {
		t.Fatalf("GetRecentRuns: %v", err)
	}
	if runs[0].Status != models.RunStatusCompleted || runs[0].FinishedAt == nil {
		t.Errorf("stored run not finished: %+v", runs[0])
	}

	logs, err := store.GetRunLogs(run.ID)
	if err != nil || len(logs) != 2 {
		t.Errorf("expected start and completion logs, got %d (%v)", len(logs), err)
	}
}

func TestOrchestrator_RunSiteFailure(t *testing.T) {
	o, store := newTestOrchestrator(t, "finn_homes")
	o.SetHandler("finn_homes", &fakeHandler{
		id:  "finn_homes",
		err: &FormatMismatchError{Page: 2, Reason: "payload script not found"},
	})

	sink := &recordingSink{}
	o.AddSink("csv", sink)

	run, err := o.RunSite(context.Background(), "finn_homes")
	if !errors.Is(err, ErrFormatMismatch) {
		t.Fatalf("expected ErrFormatMismatch, got %v", err)
	}
	if run.Status != models.RunStatusFailed || run.ErrorsCount != 1 {
		t.Errorf("unexpected run: %+v", run)
	}
	if len(sink.runs) != 0 {
		t.Error("sink must not receive a dataset from a failed run")
	}
	if count, _ := store.ListingCount(run.ID); count != 0 {
		t.Errorf("expected no stored rows, got %d", count)
	}
}

func TestOrchestrator_PausedStopsBetweenPages(t *testing.T) {
	o, _ := newTestOrchestrator(t, "finn_homes")
	h := &fakeHandler{id: "finn_homes", dataset: datasetOf(1), pages: 3}
	o.SetHandler("finn_homes", h)

	o.Pause()
	if err := o.RunAll(context.Background()); err != nil {
		t.Fatalf("paused RunAll should skip, got %v", err)
	}

	// RunSite still starts while paused but stops before page 2
	run, err := o.RunSite(context.Background(), "finn_homes")
	if !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
	if run.Status != models.RunStatusStopped || run.PagesFetched != 1 {
		t.Errorf("unexpected run: %+v", run)
	}

	o.Resume()
	if _, err := o.RunSite(context.Background(), "finn_homes"); err != nil {
		t.Fatalf("resumed RunSite failed: %v", err)
	}
}

func TestOrchestrator_RunAll(t *testing.T) {
	o, _ := newTestOrchestrator(t, "b_site", "a_site")
	o.SetHandler("a_site", &fakeHandler{id: "a_site", dataset: datasetOf(1), pages: 1})
	o.SetHandler("b_site", &fakeHandler{id: "b_site", err: &TransportError{Page: 1, Err: errors.New("timeout")}})

	sink := &recordingSink{}
	o.AddSink("csv", sink)

	err := o.RunAll(context.Background())
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected joined ErrTransport, got %v", err)
	}
	if len(sink.runs) != 1 || sink.runs[0].SiteID != "a_site" {
		t.Errorf("expected only a_site saved, got %d runs", len(sink.runs))
	}

	if _, err := o.RunSite(context.Background(), "missing"); err == nil {
		t.Error("expected error for unknown site")
	}
}

func TestOrchestrator_SinkError(t *testing.T) {
	o, _ := newTestOrchestrator(t, "finn_homes")
	o.SetHandler("finn_homes", &fakeHandler{id: "finn_homes", dataset: datasetOf(2), pages: 1})
	o.AddSink("postgres", &recordingSink{err: errors.New("connection refused")})

	run, err := o.RunSite(context.Background(), "finn_homes")
	if err == nil {
		t.Fatal("expected sink error")
	}
	if run.Status != models.RunStatusFailed || run.ErrorsCount != 1 {
		t.Errorf("unexpected run: %+v", run)
	}
}

func TestOrchestrator_FixtureHandler(t *testing.T) {
	o, store := newTestOrchestrator(t, "finn_homes")
	o.cfg.Sites["finn_homes"].BaseURL = testBaseURL
	h, err := NewSearchHandler(o.cfg.Sites["finn_homes"], newFixtureFetcher(t, "search_page1.html", "search_page2.html"))
	if err != nil {
		t.Fatalf("NewSearchHandler failed: %v", err)
	}
	o.SetHandler("finn_homes", h)

	run, err := o.RunSite(context.Background(), "finn_homes")
	if err != nil {
		t.Fatalf("RunSite failed: %v", err)
	}
	if run.PagesPlanned != 3 || run.ListingsFound != 4 {
		t.Errorf("unexpected run: %+v", run)
	}

	rows, err := store.GetRunListings(run.ID)
	if err != nil || len(rows) != 4 {
		t.Fatalf("stored rows: %d (%v)", len(rows), err)
	}
	if *rows[0].ID != "1001" || rows[1].Road != nil {
		t.Errorf("unexpected first rows: %v / %v", rows[0].Record(), rows[1].Record())
	}
}

func TestOrchestrator_RunStateSeenBySinksAndRecorders(t *testing.T) {
	tests := []struct {
		name       string
		handler    *fakeHandler
		sinkErr    error
		pause      bool
		wantStatus models.RunStatus
		wantSinks  int
	}{
		{
			name:       "completed",
			handler:    &fakeHandler{id: "finn_homes", dataset: datasetOf(2), pages: 1},
			wantStatus: models.RunStatusCompleted,
			wantSinks:  1,
		},
		{
			name:       "later sink fails",
			handler:    &fakeHandler{id: "finn_homes", dataset: datasetOf(2), pages: 1},
			sinkErr:    errors.New("disk full"),
			wantStatus: models.RunStatusFailed,
			wantSinks:  1,
		},
		{
			name:       "scrape fails",
			handler:    &fakeHandler{id: "finn_homes", err: &TransportError{Page: 1, Err: errors.New("timeout")}},
			wantStatus: models.RunStatusFailed,
		},
		{
			name:       "stopped",
			handler:    &fakeHandler{id: "finn_homes", dataset: datasetOf(1), pages: 3},
			pause:      true,
			wantStatus: models.RunStatusStopped,
		},
	}

	for _, tt := range tests {
		o, _ := newTestOrchestrator(t, "finn_homes")
		o.SetHandler("finn_homes", tt.handler)

		pg := &recordingSink{}
		o.AddSink("postgres", pg)
		o.AddSink("z_last", &recordingSink{err: tt.sinkErr})

		rec := &recordingRecorder{}
		o.AddRunRecorder("postgres", rec)

		if tt.pause {
			o.Pause()
		}

		ctx, cancel := context.WithCancel(context.Background())
		run, _ := o.RunSite(ctx, "finn_homes")
		cancel()

		if run.Status != tt.wantStatus {
			t.Errorf("%s: run status = %s, want %s", tt.name, run.Status, tt.wantStatus)
		}

		if len(pg.runs) != tt.wantSinks {
			t.Fatalf("%s: sink called %d times, want %d", tt.name, len(pg.runs), tt.wantSinks)
		}
		for _, seen := range pg.runs {
			if seen.Status != models.RunStatusRunning || seen.FinishedAt != nil {
				t.Errorf("%s: sink saw status=%s finished=%v, want an unfinished running run",
					tt.name, seen.Status, seen.FinishedAt)
			}
		}

		if len(rec.runs) != 1 {
			t.Fatalf("%s: recorder called %d times, want 1", tt.name, len(rec.runs))
		}
		final := rec.runs[0]
		if final.Status != tt.wantStatus || final.FinishedAt == nil || final.Key != run.Key {
			t.Errorf("%s: recorder saw status=%s finished=%v", tt.name, final.Status, final.FinishedAt)
		}
		if rec.errs[0] != nil {
			t.Errorf("%s: recorder context already done: %v", tt.name, rec.errs[0])
		}
	}
}
