package scraper

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strconv"

	"finn_scrooper/models"
	"finn_scrooper/services"
)

// Fetcher is the HTTP fetch collaborator. It returns the page markup or a
// transport error (network failure, non-2xx status).
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// FetcherFunc adapts a plain function to Fetcher.
type FetcherFunc func(ctx context.Context, url string) (string, error)

func (f FetcherFunc) Fetch(ctx context.Context, url string) (string, error) {
	return f(ctx, url)
}

// ProgressFunc observes each finished page.
type ProgressFunc func(page, totalPages, rows int)

// ContinueFunc is asked before every page after the first; false stops the
// collection.
type ContinueFunc func(nextPage int) bool

type CollectorOptions struct {
	BaseURL        string
	ResultsPerPage int
	MaxPages       int // 0 = no cap
	Progress       ProgressFunc
	Continue       ContinueFunc
}

// Collector walks every result page in ascending order and accumulates the
// mapped listings. It is not safe for concurrent Collect calls.
type Collector struct {
	opts      CollectorOptions
	fetcher   Fetcher
	planner   *Planner
	extractor *Extractor
	listings  *services.ListingService
}

func NewCollector(opts CollectorOptions, fetcher Fetcher, listings *services.ListingService) *Collector {
	return &Collector{
		opts:      opts,
		fetcher:   fetcher,
		planner:   NewPlanner(opts.ResultsPerPage),
		extractor: NewExtractor(),
		listings:  listings,
	}
}

// Collect fetches page 1 to plan, then fetches and extracts pages
// 1..pageCount. Any fatal error aborts the run and no Dataset is returned.
func (c *Collector) Collect(ctx context.Context) (*models.Dataset, error) {
	firstURL, err := PageURL(c.opts.BaseURL, 1)
	if err != nil {
		return nil, err
	}

	markup, err := c.fetcher.Fetch(ctx, firstURL)
	if err != nil {
		return nil, fetchError(ctx, 1, firstURL, err)
	}

	pages, err := c.planner.Plan(markup)
	if err != nil {
		return nil, err
	}
	if c.opts.MaxPages > 0 && pages > c.opts.MaxPages {
		log.Printf("Capping %d planned pages to %d", pages, c.opts.MaxPages)
		pages = c.opts.MaxPages
	}
	log.Printf("Planned %d pages at %d results per page", pages, c.planner.resultsPerPage)

	dataset := models.NewDataset()

	for page := 1; page <= pages; page++ {
		if err := c.proceed(ctx, page); err != nil {
			return nil, err
		}

		pageURL, err := PageURL(c.opts.BaseURL, page)
		if err != nil {
			return nil, err
		}

		markup, err := c.fetcher.Fetch(ctx, pageURL)
		if err != nil {
			return nil, fetchError(ctx, page, pageURL, err)
		}

		raws, err := c.extractor.Extract(markup)
		if err != nil {
			if fm, ok := err.(*FormatMismatchError); ok {
				fm.Page = page
			}
			return nil, err
		}

		dataset.Append(c.listings.MapAll(raws)...)
		log.Printf("Page %d/%d: %d listings (total: %d)", page, pages, len(raws), dataset.Len())

		if c.opts.Progress != nil {
			c.opts.Progress(page, pages, dataset.Len())
		}
	}

	return dataset, nil
}

func (c *Collector) proceed(ctx context.Context, page int) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w before page %d: %w", ErrStopped, page, err)
	}
	if page > 1 && c.opts.Continue != nil && !c.opts.Continue(page) {
		return fmt.Errorf("%w before page %d", ErrStopped, page)
	}
	return nil
}

// fetchError reports a fetch aborted by cancellation as a stop rather than
// a transport failure.
func fetchError(ctx context.Context, page int, pageURL string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w during page %d: %w", ErrStopped, page, ctxErr)
	}
	return &TransportError{Page: page, URL: pageURL, Err: err}
}

// PageURL sets the page query parameter on the search URL.
func PageURL(baseURL string, page int) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("base url %q is not absolute", baseURL)
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
