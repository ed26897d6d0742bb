package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"finn_scrooper/config"
	"finn_scrooper/models"
	"finn_scrooper/storage"
	"github.com/google/uuid"
)

// Sink receives the dataset of every successful collection. The run is
// still in the running state while sinks are called.
type Sink interface {
	SaveDataset(ctx context.Context, run *models.ScrapeRun, dataset *models.Dataset) error
}

// RunRecorder is handed every run once it has finished, whatever the outcome.
type RunRecorder interface {
	UpsertScrapeRun(ctx context.Context, run *models.ScrapeRun) error
}

type Orchestrator struct {
	cfg       *config.Config
	store     *storage.SQLiteStore
	handlers  map[string]Handler
	sinks     map[string]Sink
	recorders map[string]RunRecorder

	mu     sync.Mutex
	paused bool
}

func NewOrchestrator(cfg *config.Config, store *storage.SQLiteStore, fetcher Fetcher) (*Orchestrator, error) {
	handlers := make(map[string]Handler)
	for id, siteCfg := range cfg.Sites {
		handler, err := NewHandler(siteCfg, fetcher)
		if err != nil {
			return nil, err
		}
		handlers[id] = handler
	}

	return &Orchestrator{
		cfg:       cfg,
		store:     store,
		handlers:  handlers,
		sinks:     map[string]Sink{"sqlite": store},
		recorders: make(map[string]RunRecorder),
	}, nil
}

// AddSink registers an extra destination for completed datasets.
func (o *Orchestrator) AddSink(name string, sink Sink) {
	o.sinks[name] = sink
}

// AddRunRecorder registers a mirror for final run state.
func (o *Orchestrator) AddRunRecorder(name string, rec RunRecorder) {
	o.recorders[name] = rec
}

// SetHandler replaces the handler for a configured site.
func (o *Orchestrator) SetHandler(siteID string, h Handler) {
	o.handlers[siteID] = h
}

// RunAll runs every site in ID order and returns the errors joined.
func (o *Orchestrator) RunAll(ctx context.Context) error {
	if o.IsPaused() {
		log.Println("Scraper is paused, skipping run")
		return nil
	}

	var errs []error
	for _, siteID := range o.GetSiteIDs() {
		if _, err := o.RunSite(ctx, siteID); err != nil {
			log.Printf("Error running site %s: %v", siteID, err)
			errs = append(errs, fmt.Errorf("%s: %w", siteID, err))
		}
		if ctx.Err() != nil {
			break
		}
	}

	return errors.Join(errs...)
}

// RunSite collects one site and hands the dataset to every sink. A failed
// or stopped collection produces no dataset and nothing is saved.
func (o *Orchestrator) RunSite(ctx context.Context, siteID string) (*models.ScrapeRun, error) {
	siteCfg, ok := o.cfg.Sites[siteID]
	if !ok {
		return nil, fmt.Errorf("unknown site: %s", siteID)
	}

	handler, ok := o.handlers[siteID]
	if !ok {
		return nil, fmt.Errorf("no handler for site: %s", siteID)
	}

	run := &models.ScrapeRun{
		Key:       uuid.New(),
		SiteID:    siteID,
		StartedAt: time.Now(),
		Status:    models.RunStatusRunning,
	}

	runID, err := o.store.CreateRun(run)
	if err != nil {
		return nil, err
	}
	run.ID = runID

	o.log(run.ID, models.LogLevelInfo, fmt.Sprintf("Starting scrape for %s", siteCfg.Name), siteID)

	defer func() {
		now := time.Now()
		run.FinishedAt = &now
		if err := o.store.UpdateRun(run); err != nil {
			log.Printf("Error updating run %d: %v", run.ID, err)
		}
		o.recordRun(ctx, run)
	}()

	hooks := Hooks{
		Progress: func(page, totalPages, rows int) {
			run.PagesPlanned = totalPages
			run.PagesFetched = page
			run.ListingsFound = rows
		},
		Continue: func(nextPage int) bool {
			return !o.IsPaused()
		},
	}

	dataset, err := handler.Scrape(ctx, hooks)
	if err != nil {
		run.ErrorsCount++
		run.ErrorMessage = err.Error()
		if errors.Is(err, ErrStopped) {
			run.Status = models.RunStatusStopped
			o.log(run.ID, models.LevelFor(run.Status), fmt.Sprintf("Stopped after %d pages: %v", run.PagesFetched, err), siteID)
		} else {
			run.Status = models.RunStatusFailed
			o.log(run.ID, models.LevelFor(run.Status), fmt.Sprintf("Scrape error: %v", err), siteID)
		}
		return run, err
	}

	run.ListingsFound = dataset.Len()

	var sinkErrs []error
	for _, name := range sortedKeys(o.sinks) {
		if err := o.sinks[name].SaveDataset(ctx, run, dataset); err != nil {
			run.ErrorsCount++
			o.log(run.ID, models.LogLevelError, fmt.Sprintf("Sink %s: %v", name, err), siteID)
			sinkErrs = append(sinkErrs, fmt.Errorf("sink %s: %w", name, err))
		}
	}
	if len(sinkErrs) > 0 {
		run.Status = models.RunStatusFailed
		err := errors.Join(sinkErrs...)
		run.ErrorMessage = err.Error()
		return run, err
	}

	run.Status = models.RunStatusCompleted
	o.log(run.ID, models.LevelFor(run.Status),
		fmt.Sprintf("Completed: %d listings over %d pages", run.ListingsFound, run.PagesFetched), siteID)

	return run, nil
}

// recordRun runs detached from ctx so cancelled and stopped runs are
// still mirrored.
func (o *Orchestrator) recordRun(ctx context.Context, run *models.ScrapeRun) {
	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	for _, name := range sortedKeys(o.recorders) {
		if err := o.recorders[name].UpsertScrapeRun(recCtx, run); err != nil {
			o.log(run.ID, models.LogLevelError, fmt.Sprintf("Run recorder %s: %v", name, err), run.SiteID)
		}
	}
}

func (o *Orchestrator) Pause() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.paused = true
	log.Println("Scraper paused")
}

func (o *Orchestrator) Resume() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.paused = false
	log.Println("Scraper resumed")
}

func (o *Orchestrator) IsPaused() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.paused
}

func (o *Orchestrator) log(runID int64, level models.LogLevel, message, siteID string) {
	log.Printf("[%s] %s: %s", level, siteID, message)
	if err := o.store.Log(&runID, level, message, siteID); err != nil {
		log.Printf("Error persisting log line: %v", err)
	}
}

func (o *Orchestrator) GetSiteIDs() []string {
	ids := make([]string, 0, len(o.cfg.Sites))
	for id := range o.cfg.Sites {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (o *Orchestrator) MarshalStatus() ([]byte, error) {
	status := map[string]interface{}{
		"paused": o.IsPaused(),
		"sites":  o.GetSiteIDs(),
		"sinks":  sortedKeys(o.sinks),
		"mirror": sortedKeys(o.recorders),
	}
	return json.Marshal(status)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
