package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"bonussim/internal/domain/bonus"
)

// CSVFile appends one row per entry to a local file, writing the header the
// first time the file is empty.
type CSVFile struct {
	path string
	mu   sync.Mutex
}

func NewCSVFile(path string) *CSVFile {
	return &CSVFile{path: path}
}

func (c *CSVFile) Name() string {
	return "csv"
}

func (c *CSVFile) Append(ctx context.Context, entry bonus.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create csv dir: %w", err)
		}
	}
	f, err := os.OpenFile(c.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open csv sink: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat csv sink: %w", err)
	}
	writer := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := writer.Write(bonus.RowHeader); err != nil {
			return err
		}
	}
	if err := writer.Write(entry.Row()); err != nil {
		return err
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return f.Sync()
}
