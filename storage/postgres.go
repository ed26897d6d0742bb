package storage

import (
	"context"
	"fmt"
	"time"

	"finn_scrooper/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore mirrors runs and their listing rows into Postgres. Runs are
// keyed by the run's UUID so rows from several daemons never collide.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 4
	config.MinConns = 1
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	store := &PostgresStore{pool: pool}
	if err := store.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
	CREATE TABLE IF NOT EXISTS scrape_runs (
		id UUID PRIMARY KEY,
		site_id TEXT NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ,
		status TEXT NOT NULL,
		pages_planned INTEGER NOT NULL DEFAULT 0,
		pages_fetched INTEGER NOT NULL DEFAULT 0,
		listings_found INTEGER NOT NULL DEFAULT 0,
		errors_count INTEGER NOT NULL DEFAULT 0,
		error_message TEXT
	);

	CREATE TABLE IF NOT EXISTS listings (
		run_id UUID NOT NULL REFERENCES scrape_runs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		listing_id TEXT,
		road TEXT,
		city TEXT,
		day INTEGER,
		month TEXT,
		year INTEGER,
		price_suggestion DOUBLE PRECISION,
		price_total DOUBLE PRECISION,
		house_size_sq_meters DOUBLE PRECISION,
		plot_size_sq_meters DOUBLE PRECISION,
		organization_name TEXT,
		local_area_name TEXT,
		number_of_bedrooms INTEGER,
		owner_type_description TEXT,
		property_type_description TEXT,
		latitude DOUBLE PRECISION,
		longitude DOUBLE PRECISION,
		PRIMARY KEY (run_id, position)
	);

	CREATE INDEX IF NOT EXISTS idx_listings_listing_id ON listings(listing_id);
	`)
	return err
}

// =============================================================================
// Scrape Runs
// =============================================================================

const upsertRunQuery = `
	INSERT INTO scrape_runs (id, site_id, started_at, finished_at, status, pages_planned,
		pages_fetched, listings_found, errors_count, error_message)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (id) DO UPDATE SET
		finished_at = EXCLUDED.finished_at,
		status = EXCLUDED.status,
		pages_planned = EXCLUDED.pages_planned,
		pages_fetched = EXCLUDED.pages_fetched,
		listings_found = EXCLUDED.listings_found,
		errors_count = EXCLUDED.errors_count,
		error_message = EXCLUDED.error_message`

func runArgs(run *models.ScrapeRun) []any {
	return []any{
		run.Key, run.SiteID, run.StartedAt, run.FinishedAt, string(run.Status), run.PagesPlanned,
		run.PagesFetched, run.ListingsFound, run.ErrorsCount, run.ErrorMessage,
	}
}

func (s *PostgresStore) UpsertScrapeRun(ctx context.Context, run *models.ScrapeRun) error {
	if run.Key == uuid.Nil {
		return fmt.Errorf("run %d has no key", run.ID)
	}
	_, err := s.pool.Exec(ctx, upsertRunQuery, runArgs(run)...)
	return err
}

func (s *PostgresStore) GetScrapeRun(ctx context.Context, key uuid.UUID) (*models.ScrapeRun, error) {
	var r models.ScrapeRun
	var status string
	var errMsg *string
	err := s.pool.QueryRow(ctx, `
		SELECT id, site_id, started_at, finished_at, status, pages_planned, pages_fetched,
			listings_found, errors_count, error_message
		FROM scrape_runs WHERE id = $1`, key).Scan(
		&r.Key, &r.SiteID, &r.StartedAt, &r.FinishedAt, &status, &r.PagesPlanned, &r.PagesFetched,
		&r.ListingsFound, &r.ErrorsCount, &errMsg)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.Status = models.RunStatus(status)
	if errMsg != nil {
		r.ErrorMessage = *errMsg
	}
	return &r, nil
}

// =============================================================================
// Listings
// =============================================================================

var listingColumns = append([]string{"run_id", "position", "listing_id"}, models.Columns()[1:]...)

// SaveDataset writes the run row and copies every listing under it in one
// transaction. Saving the same run again replaces its rows.
func (s *PostgresStore) SaveDataset(ctx context.Context, run *models.ScrapeRun, dataset *models.Dataset) error {
	if run.Key == uuid.Nil {
		return fmt.Errorf("run %d has no key", run.ID)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, upsertRunQuery, runArgs(run)...); err != nil {
		return fmt.Errorf("upsert run: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM listings WHERE run_id = $1`, run.Key); err != nil {
		return fmt.Errorf("clear run listings: %w", err)
	}

	listings := dataset.Rows()
	rows := make([][]any, 0, len(listings))
	for i := range listings {
		rows = append(rows, append([]any{run.Key, i}, listings[i].Values()...))
	}

	n, err := tx.CopyFrom(ctx, pgx.Identifier{"listings"}, listingColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("copy listings: %w", err)
	}
	if int(n) != len(rows) {
		return fmt.Errorf("copied %d of %d listings", n, len(rows))
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) ListingCount(ctx context.Context, key uuid.UUID) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM listings WHERE run_id = $1`, key).Scan(&count)
	return count, err
}
