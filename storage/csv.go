package storage

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"finn_scrooper/models"
)

// CSVExporter writes each run's dataset to its own file under dir, named
// <site>_<started>.csv. Unavailable fields are written as N/A.
// It is safe for concurrent use.
type CSVExporter struct {
	mu  sync.Mutex
	dir string
}

func NewCSVExporter(dir string) (*CSVExporter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}
	return &CSVExporter{dir: dir}, nil
}

// Path is the file a run's dataset is written to.
func (c *CSVExporter) Path(run *models.ScrapeRun) string {
	name := fmt.Sprintf("%s_%s.csv", run.SiteID, run.StartedAt.UTC().Format("20060102T150405Z"))
	return filepath.Join(c.dir, name)
}

func (c *CSVExporter) SaveDataset(ctx context.Context, run *models.ScrapeRun, dataset *models.Dataset) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	path := c.Path(run)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("csv: create file %q: %w", path, err)
	}

	if err := WriteCSV(f, dataset); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// WriteCSV writes the header row and then every record of the dataset.
func WriteCSV(out io.Writer, dataset *models.Dataset) error {
	w := csv.NewWriter(out)

	if err := w.Write(dataset.Header()); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}
	for _, record := range dataset.Records() {
		if err := w.Write(record); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	w.Flush()
	return w.Error()
}
