package bonus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) Name() string {
	return "postgres"
}

func (s *Store) Append(ctx context.Context, entry Entry) error {
	recordJSON, err := json.Marshal(entry.Record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	breakdownJSON, err := json.Marshal(entry.Breakdown)
	if err != nil {
		return fmt.Errorf("marshal breakdown: %w", err)
	}
	_, err = s.DB.Exec(ctx, `
    INSERT INTO evaluation_records (id, recorded_at, employee_name, period, monthly_salary, adjustment_factor, final_rate, final_amount, record_json, breakdown_json)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
  `, entry.ID, entry.RecordedAt, entry.Record.EmployeeName, entry.Record.Period,
		entry.Record.MonthlySalary.InexactFloat64(), entry.Breakdown.AdjustmentFactor.InexactFloat64(),
		entry.Breakdown.FinalRate.InexactFloat64(), entry.Breakdown.FinalAmount, recordJSON, breakdownJSON)
	return err
}

func (s *Store) GetEntry(ctx context.Context, id string) (Entry, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT id, recorded_at, record_json, breakdown_json
    FROM evaluation_records
    WHERE id = $1
  `, id)
	entry, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, ErrEntryNotFound
	}
	return entry, err
}

func (s *Store) ListEntries(ctx context.Context, limit, offset int) ([]Entry, int, error) {
	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM evaluation_records").Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.DB.Query(ctx, `
    SELECT id, recorded_at, record_json, breakdown_json
    FROM evaluation_records
    ORDER BY recorded_at DESC
    LIMIT $1 OFFSET $2
  `, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, entry)
	}
	return out, total, rows.Err()
}

func scanEntry(row pgx.Row) (Entry, error) {
	var entry Entry
	var recordJSON, breakdownJSON []byte
	if err := row.Scan(&entry.ID, &entry.RecordedAt, &recordJSON, &breakdownJSON); err != nil {
		return Entry{}, err
	}
	if err := json.Unmarshal(recordJSON, &entry.Record); err != nil {
		return Entry{}, fmt.Errorf("decode record: %w", err)
	}
	if err := json.Unmarshal(breakdownJSON, &entry.Breakdown); err != nil {
		return Entry{}, fmt.Errorf("decode breakdown: %w", err)
	}
	return entry, nil
}
