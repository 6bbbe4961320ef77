package sink

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bonussim/internal/domain/bonus"
)

func testEntry(t *testing.T) bonus.Entry {
	t.Helper()
	record := bonus.DefaultRecord()
	record.AdjustmentFactor = decimal.NewFromInt(1)
	return bonus.Entry{
		ID:         "entry-1",
		RecordedAt: time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC),
		Record:     record,
		Breakdown:  bonus.NewCalculator(bonus.DefaultPolicy()).Calculate(record),
	}
}

func TestCSVFileWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "evaluations.csv")
	sink := NewCSVFile(path)
	entry := testEntry(t)

	require.NoError(t, sink.Append(context.Background(), entry))
	require.NoError(t, sink.Append(context.Background(), entry))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, bonus.RowHeader, rows[0])
	assert.Equal(t, entry.Row(), rows[1])
	assert.Equal(t, "568000", rows[2][10])
}

func TestCSVFileHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewCSVFile(filepath.Join(t.TempDir(), "x.csv")).Append(ctx, testEntry(t))
	assert.ErrorIs(t, err, context.Canceled)
}

type fakeSheets struct {
	mu       sync.Mutex
	existing [][]string
	appended [][]string
	fail     bool
	query    string
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	if f.fail {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"quota exceeded"}}`))
		return
	}
	switch {
	case r.Method == http.MethodGet:
		_ = json.NewEncoder(w).Encode(map[string]any{"range": "Sheet1!A1", "values": f.existing})
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":append"):
		f.query = r.URL.RawQuery
		var body struct {
			Values [][]string `json:"values"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.appended = append(f.appended, body.Values...)
		f.existing = append(f.existing, body.Values...)
		_ = json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": "sheet-1"})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestSheets(t *testing.T, fake *fakeSheets) *Sheets {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	s, err := NewSheets(context.Background(), SheetsConfig{
		SpreadsheetID: "sheet-1",
		Range:         "Sheet1!A1",
		Endpoint:      srv.URL + "/",
		HTTPClient:    srv.Client(),
	})
	require.NoError(t, err)
	return s
}

func TestSheetsAppendWritesHeaderForEmptySheet(t *testing.T) {
	fake := &fakeSheets{}
	s := newTestSheets(t, fake)
	entry := testEntry(t)

	require.NoError(t, s.Append(context.Background(), entry))
	require.NoError(t, s.Append(context.Background(), entry))

	require.Len(t, fake.appended, 3)
	assert.Equal(t, bonus.RowHeader, fake.appended[0])
	assert.Equal(t, entry.Row(), fake.appended[1])
	assert.Contains(t, fake.query, "valueInputOption=RAW")
	assert.Contains(t, fake.query, "insertDataOption=INSERT_ROWS")
}

func TestSheetsAppendSkipsHeaderWhenPresent(t *testing.T) {
	fake := &fakeSheets{existing: [][]string{bonus.RowHeader}}
	s := newTestSheets(t, fake)

	require.NoError(t, s.Append(context.Background(), testEntry(t)))
	require.Len(t, fake.appended, 1)
	assert.Equal(t, "営業 太郎", fake.appended[0][1])
}

func TestSheetsAppendReportsFailure(t *testing.T) {
	s := newTestSheets(t, &fakeSheets{fail: true})
	err := s.Append(context.Background(), testEntry(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestNewSheetsRequiresSpreadsheet(t *testing.T) {
	_, err := NewSheets(context.Background(), SheetsConfig{})
	assert.Error(t, err)
}
