package bonus

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	columnName       = "name"
	columnPeriod     = "period"
	columnSalary     = "monthly_salary"
	columnMonths     = "base_bonus_months"
	columnAdjustment = "adjustment_factor"
	columnComment    = "comment"

	targetSuffix   = "_target"
	actualSuffix   = "_actual"
	activityPrefix = "activity:"
	posturePrefix  = "posture:"
)

// ReadRecords parses evaluations from CSV. Columns are matched by header:
// name, period, monthly_salary, base_bonus_months, adjustment_factor and
// comment; metrics as "<key>_target"/"<key>_actual" pairs; ratings as
// "activity:<item>" or "posture:<item>" holding a grade or a slider value.
// Errors carry the 1-based data row number.
func ReadRecords(r io.Reader) ([]EvaluationRecord, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	layout, err := parseLayout(header)
	if err != nil {
		return nil, err
	}

	var records []EvaluationRecord
	for line := 1; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		record, err := layout.record(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		records = append(records, record)
	}
	return records, nil
}

type ratingColumn struct {
	item  string
	index int
}

type csvLayout struct {
	columns  map[string]int
	metrics  []string
	activity []ratingColumn
	posture  []ratingColumn
}

func parseLayout(header []string) (csvLayout, error) {
	layout := csvLayout{columns: make(map[string]int, len(header))}
	seenMetric := map[string]bool{}
	for i, raw := range header {
		name := strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff"))
		layout.columns[name] = i
		switch {
		case strings.HasPrefix(name, activityPrefix):
			layout.activity = append(layout.activity, ratingColumn{item: strings.TrimPrefix(name, activityPrefix), index: i})
		case strings.HasPrefix(name, posturePrefix):
			layout.posture = append(layout.posture, ratingColumn{item: strings.TrimPrefix(name, posturePrefix), index: i})
		case strings.HasSuffix(name, targetSuffix):
			key := strings.TrimSuffix(name, targetSuffix)
			if !seenMetric[key] {
				seenMetric[key] = true
				layout.metrics = append(layout.metrics, key)
			}
		}
	}
	for _, required := range []string{columnName, columnSalary, columnMonths, columnAdjustment} {
		if _, ok := layout.columns[required]; !ok {
			return csvLayout{}, fmt.Errorf("%w: missing column %q", ErrInvalidInput, required)
		}
	}
	for _, key := range layout.metrics {
		if _, ok := layout.columns[key+actualSuffix]; !ok {
			return csvLayout{}, fmt.Errorf("%w: column %q has no %q pair", ErrInvalidInput, key+targetSuffix, key+actualSuffix)
		}
	}
	return layout, nil
}

func (l csvLayout) cell(row []string, column string) string {
	i, ok := l.columns[column]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (l csvLayout) record(row []string) (EvaluationRecord, error) {
	record := EvaluationRecord{
		EmployeeName: l.cell(row, columnName),
		Period:       l.cell(row, columnPeriod),
		Comment:      l.cell(row, columnComment),
	}
	var err error
	if record.MonthlySalary, err = ParseDecimal(columnSalary, l.cell(row, columnSalary)); err != nil {
		return EvaluationRecord{}, err
	}
	if record.BaseBonusMonths, err = ParseDecimal(columnMonths, l.cell(row, columnMonths)); err != nil {
		return EvaluationRecord{}, err
	}
	if record.AdjustmentFactor, err = ParseDecimal(columnAdjustment, l.cell(row, columnAdjustment)); err != nil {
		return EvaluationRecord{}, err
	}
	for _, key := range l.metrics {
		metric := PerformanceMetric{Key: key}
		if metric.Target, err = ParseDecimal(key+targetSuffix, l.cell(row, key+targetSuffix)); err != nil {
			return EvaluationRecord{}, err
		}
		if metric.Actual, err = ParseDecimal(key+actualSuffix, l.cell(row, key+actualSuffix)); err != nil {
			return EvaluationRecord{}, err
		}
		record.NumericMetrics = append(record.NumericMetrics, metric)
	}
	if record.BehavioralRatings, err = parseRatings(row, l.activity, ActivityScale); err != nil {
		return EvaluationRecord{}, err
	}
	if record.PostureRatings, err = parseRatings(row, l.posture, PostureScale); err != nil {
		return EvaluationRecord{}, err
	}
	return record, nil
}

func parseRatings(row []string, columns []ratingColumn, scale Scale) ([]BehavioralRating, error) {
	var out []BehavioralRating
	for _, col := range columns {
		if col.index >= len(row) {
			continue
		}
		raw := strings.TrimSpace(row[col.index])
		if raw == "" {
			continue
		}
		rating, err := ParseRating(scale, col.item, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, rating)
	}
	return out, nil
}

// ParseRating accepts a grade ("A", "A: 1.0") or a numeric slider value.
func ParseRating(scale Scale, item, raw string) (BehavioralRating, error) {
	if value, err := decimal.NewFromString(strings.TrimSpace(raw)); err == nil {
		return scale.SliderRating(item, value)
	}
	return scale.Rating(item, raw)
}
