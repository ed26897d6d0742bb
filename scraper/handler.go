package scraper

import (
	"context"
	"fmt"

	"finn_scrooper/config"
	"finn_scrooper/models"
	"finn_scrooper/normalize"
	"finn_scrooper/services"
)

// Hooks are per-run callbacks handed down to the Collector.
type Hooks struct {
	Progress ProgressFunc
	Continue ContinueFunc
}

type Handler interface {
	ID() string
	Scrape(ctx context.Context, hooks Hooks) (*models.Dataset, error)
}

func NewHandler(siteCfg *config.SiteConfig, fetcher Fetcher) (Handler, error) {
	switch siteCfg.Handler {
	case "nextdata", "":
		return NewSearchHandler(siteCfg, fetcher)
	default:
		return nil, fmt.Errorf("unknown handler %q for site %s", siteCfg.Handler, siteCfg.ID)
	}
}

// SearchHandler scrapes a paginated search whose pages embed their results
// as a Next.js data payload.
type SearchHandler struct {
	cfg      *config.SiteConfig
	fetcher  Fetcher
	listings *services.ListingService
}

func NewSearchHandler(siteCfg *config.SiteConfig, fetcher Fetcher) (*SearchHandler, error) {
	loc, err := normalize.LoadZone(siteCfg.TimeZone)
	if err != nil {
		return nil, err
	}
	return &SearchHandler{
		cfg:      siteCfg,
		fetcher:  fetcher,
		listings: services.NewListingService(loc),
	}, nil
}

func (h *SearchHandler) ID() string {
	return h.cfg.ID
}

func (h *SearchHandler) Scrape(ctx context.Context, hooks Hooks) (*models.Dataset, error) {
	collector := NewCollector(CollectorOptions{
		BaseURL:        h.cfg.BaseURL,
		ResultsPerPage: h.cfg.ResultsPerPage,
		MaxPages:       h.cfg.MaxPages,
		Progress:       hooks.Progress,
		Continue:       hooks.Continue,
	}, h.fetcher, h.listings)

	return collector.Collect(ctx)
}
