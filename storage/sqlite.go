package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"finn_scrooper/models"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS scrape_runs (
		id INTEGER PRIMARY KEY,
		run_key TEXT NOT NULL,
		site_id TEXT,
		started_at DATETIME,
		finished_at DATETIME,
		status TEXT,
		pages_planned INTEGER DEFAULT 0,
		pages_fetched INTEGER DEFAULT 0,
		listings_found INTEGER DEFAULT 0,
		errors_count INTEGER DEFAULT 0,
		error_message TEXT
	);

	CREATE TABLE IF NOT EXISTS scrape_logs (
		id INTEGER PRIMARY KEY,
		run_id INTEGER,
		run_key TEXT,
		timestamp DATETIME,
		level TEXT,
		message TEXT,
		site_id TEXT
	);

	CREATE TABLE IF NOT EXISTS listings (
		id INTEGER PRIMARY KEY,
		run_id INTEGER NOT NULL,
		site_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		listing_id TEXT,
		road TEXT,
		city TEXT,
		day INTEGER,
		month TEXT,
		year INTEGER,
		price_suggestion REAL,
		price_total REAL,
		house_size_sq_meters REAL,
		plot_size_sq_meters REAL,
		organization_name TEXT,
		local_area_name TEXT,
		number_of_bedrooms INTEGER,
		owner_type_description TEXT,
		property_type_description TEXT,
		latitude REAL,
		longitude REAL,
		FOREIGN KEY (run_id) REFERENCES scrape_runs(id)
	);

	CREATE INDEX IF NOT EXISTS idx_logs_run ON scrape_logs(run_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON scrape_runs(status, started_at);
	CREATE INDEX IF NOT EXISTS idx_runs_site ON scrape_runs(site_id, started_at);
	CREATE INDEX IF NOT EXISTS idx_listings_run ON listings(run_id, position);
	CREATE INDEX IF NOT EXISTS idx_listings_listing_id ON listings(listing_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// Runs
// =============================================================================

func (s *SQLiteStore) CreateRun(run *models.ScrapeRun) (int64, error) {
	result, err := s.db.Exec(`
		INSERT INTO scrape_runs (run_key, site_id, started_at, status)
		VALUES (?, ?, ?, ?)`,
		run.Key.String(), run.SiteID, run.StartedAt, run.Status)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (s *SQLiteStore) UpdateRun(run *models.ScrapeRun) error {
	_, err := s.db.Exec(`
		UPDATE scrape_runs SET finished_at = ?, status = ?, pages_planned = ?, pages_fetched = ?,
			listings_found = ?, errors_count = ?, error_message = ?
		WHERE id = ?`,
		run.FinishedAt, run.Status, run.PagesPlanned, run.PagesFetched,
		run.ListingsFound, run.ErrorsCount, run.ErrorMessage, run.ID)
	return err
}

func (s *SQLiteStore) GetRecentRuns(siteID string, limit int) ([]models.ScrapeRun, error) {
	rows, err := s.db.Query(`
		SELECT id, run_key, site_id, started_at, finished_at, status, pages_planned, pages_fetched,
			listings_found, errors_count, COALESCE(error_message, '')
		FROM scrape_runs WHERE site_id = ?
		ORDER BY started_at DESC, id DESC LIMIT ?`, siteID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []models.ScrapeRun
	for rows.Next() {
		var r models.ScrapeRun
		var key string
		var finished sql.NullTime
		if err := rows.Scan(&r.ID, &key, &r.SiteID, &r.StartedAt, &finished, &r.Status,
			&r.PagesPlanned, &r.PagesFetched, &r.ListingsFound, &r.ErrorsCount, &r.ErrorMessage); err != nil {
			return nil, err
		}
		if err := r.Key.UnmarshalText([]byte(key)); err != nil {
			return nil, fmt.Errorf("run %d key: %w", r.ID, err)
		}
		if finished.Valid {
			r.FinishedAt = &finished.Time
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// =============================================================================
// Logs
// =============================================================================

func (s *SQLiteStore) Log(runID *int64, level models.LogLevel, message, siteID string) error {
	_, err := s.db.Exec(`
		INSERT INTO scrape_logs (run_id, run_key, timestamp, level, message, site_id)
		VALUES (?, (SELECT run_key FROM scrape_runs WHERE id = ?), ?, ?, ?, ?)`,
		runID, runID, time.Now(), level, message, siteID)
	return err
}

func (s *SQLiteStore) GetRunLogs(runID int64) ([]models.ScrapeLog, error) {
	rows, err := s.db.Query(`
		SELECT id, run_id, run_key, timestamp, level, message, site_id
		FROM scrape_logs WHERE run_id = ? ORDER BY timestamp, id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.ScrapeLog
	for rows.Next() {
		var l models.ScrapeLog
		var key sql.NullString
		if err := rows.Scan(&l.ID, &l.RunID, &key, &l.Timestamp, &l.Level, &l.Message, &l.SiteID); err != nil {
			return nil, err
		}
		if key.Valid {
			parsed, err := uuid.Parse(key.String)
			if err != nil {
				return nil, fmt.Errorf("log %d run key: %w", l.ID, err)
			}
			l.RunKey = &parsed
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// =============================================================================
// Listings
// =============================================================================

// SaveDataset appends every row of the dataset under the run, in dataset
// order, inside one transaction.
func (s *SQLiteStore) SaveDataset(ctx context.Context, run *models.ScrapeRun, dataset *models.Dataset) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO listings (run_id, site_id, position, listing_id, road, city, day, month, year,
			price_suggestion, price_total, house_size_sq_meters, plot_size_sq_meters,
			organization_name, local_area_name, number_of_bedrooms,
			owner_type_description, property_type_description, latitude, longitude)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, row := range dataset.Rows() {
		args := append([]any{run.ID, run.SiteID, i}, row.Values()...)
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) ListingCount(runID int64) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM listings WHERE run_id = ?`, runID).Scan(&count)
	return count, err
}

// GetRunListings reads a run's rows back in their original order.
func (s *SQLiteStore) GetRunListings(runID int64) ([]models.NormalizedListing, error) {
	rows, err := s.db.Query(`
		SELECT listing_id, road, city, day, month, year,
			price_suggestion, price_total, house_size_sq_meters, plot_size_sq_meters,
			organization_name, local_area_name, number_of_bedrooms,
			owner_type_description, property_type_description, latitude, longitude
		FROM listings WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.NormalizedListing
	for rows.Next() {
		var l models.NormalizedListing
		if err := rows.Scan(&l.ID, &l.Road, &l.City, &l.Day, &l.Month, &l.Year,
			&l.PriceSuggestion, &l.PriceTotal, &l.HouseSizeSqMeters, &l.PlotSizeSqMeters,
			&l.OrganizationName, &l.LocalAreaName, &l.NumberOfBedrooms,
			&l.OwnerTypeDescription, &l.PropertyTypeDescription, &l.Latitude, &l.Longitude); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetLastRunTime(siteID string) (time.Time, error) {
	var lastRun time.Time
	err := s.db.QueryRow(`
		SELECT started_at FROM scrape_runs WHERE site_id = ? AND status = ?
		ORDER BY started_at DESC LIMIT 1`,
		siteID, models.RunStatusCompleted).Scan(&lastRun)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	return lastRun, err
}
