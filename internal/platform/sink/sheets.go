package sink

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"bonussim/internal/domain/bonus"
)

type SheetsConfig struct {
	SpreadsheetID   string
	Range           string
	CredentialsFile string
	// Endpoint and HTTPClient point the client at an emulator or test server.
	Endpoint   string
	HTTPClient *http.Client
}

// Sheets appends rows to a Google spreadsheet. The header row is written
// once, when the target range is still empty.
type Sheets struct {
	svc           *sheets.Service
	spreadsheetID string
	rng           string

	mu            sync.Mutex
	headerChecked bool
}

func NewSheets(ctx context.Context, cfg SheetsConfig) (*Sheets, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("sheets: spreadsheet id is required")
	}
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return &Sheets{svc: svc, spreadsheetID: cfg.SpreadsheetID, rng: cfg.Range}, nil
}

func (s *Sheets) Name() string {
	return "sheets"
}

func (s *Sheets) Append(ctx context.Context, entry bonus.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := [][]interface{}{}
	if !s.headerChecked {
		empty, err := s.rangeEmpty(ctx)
		if err != nil {
			return err
		}
		if empty {
			rows = append(rows, toCells(bonus.RowHeader))
		}
	}
	rows = append(rows, toCells(entry.Row()))

	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, s.rng, &sheets.ValueRange{Values: rows}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("sheets append: %w", err)
	}
	s.headerChecked = true
	return nil
}

func (s *Sheets) rangeEmpty(ctx context.Context) (bool, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.rng).Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("sheets read: %w", err)
	}
	return len(resp.Values) == 0, nil
}

func toCells(row []string) []interface{} {
	cells := make([]interface{}, len(row))
	for i, v := range row {
		cells[i] = v
	}
	return cells
}
