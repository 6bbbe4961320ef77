package bonus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryRowColumnOrder(t *testing.T) {
	record := exampleRecord("0.80")
	record.Comment = "期末調整"
	entry := Entry{
		ID:         "e1",
		RecordedAt: time.Date(2025, 12, 1, 9, 30, 0, 0, time.FixedZone("JST", 9*3600)),
		Record:     record,
		Breakdown:  NewCalculator(DefaultPolicy()).Calculate(record),
	}

	row := entry.Row()
	require.Len(t, row, len(RowHeader))
	assert.Equal(t, []string{
		"2025-12-01T00:30:00Z",
		"営業 太郎",
		"2025H2",
		"300000",
		"54.00%",
		"25.00%",
		"15.00%",
		"94.00%",
		"0.80",
		"94.00%",
		"451200",
		"期末調整",
	}, row)
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "60.00%", FormatPercent(d("0.6")))
	assert.Equal(t, "54.67%", FormatPercent(d("0.54666666666666666")))
	assert.Equal(t, "0.00%", FormatPercent(d("0")))
	assert.Equal(t, "-12.50%", FormatPercent(d("-0.125")))
}

func TestFormatYenGroupsDigits(t *testing.T) {
	assert.Equal(t, "¥564,000", FormatYen(564000))
	assert.Equal(t, "¥0", FormatYen(0))
}

func TestCaption(t *testing.T) {
	b := NewCalculator(DefaultPolicy()).Calculate(exampleRecord("1"))
	assert.Equal(t, "基本ボーナス額 ¥600,000 × 支給率 94.00% × 係数 1.00", Caption(b))
}

func TestEntryCloneDoesNotShareSlices(t *testing.T) {
	entry := Entry{Record: exampleRecord("1"), Breakdown: ScoreBreakdown{Notes: []string{NoteEmptyPosture}}}
	copied := entry.clone()
	copied.Record.NumericMetrics[0].Key = "changed"
	copied.Breakdown.Notes[0] = "changed"

	assert.Equal(t, MetricRevenue, entry.Record.NumericMetrics[0].Key)
	assert.Equal(t, NoteEmptyPosture, entry.Breakdown.Notes[0])
}
