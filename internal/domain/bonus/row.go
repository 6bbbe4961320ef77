package bonus

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// RowHeader labels the columns produced by Entry.Row.
var RowHeader = []string{
	"タイムスタンプ",
	"氏名",
	"評価期間",
	"月給",
	"数値評価",
	"行動評価",
	"姿勢評価",
	"最終支給率(調整前)",
	"調整係数",
	"最終支給率",
	"最終支給額",
	"コメント",
}

// Row serialises the entry for tabular sinks. Every cell is locale-stable
// text: "60.00%" rates, plain-digit currency, RFC 3339 UTC timestamps.
func (e Entry) Row() []string {
	b := e.Breakdown
	return []string{
		e.RecordedAt.UTC().Format(time.RFC3339),
		e.Record.EmployeeName,
		e.Record.Period,
		e.Record.MonthlySalary.String(),
		FormatPercent(b.NumericScore),
		FormatPercent(b.BehavioralScore),
		FormatPercent(b.PostureScore),
		FormatPercent(b.PreAdjustmentRate),
		b.AdjustmentFactor.StringFixed(2),
		FormatPercent(b.FinalRate),
		strconv.FormatInt(b.FinalAmount, 10),
		e.Record.Comment,
	}
}

func FormatPercent(rate decimal.Decimal) string {
	return rate.Mul(hundred).StringFixed(2) + "%"
}

var displayPrinter = message.NewPrinter(language.Japanese)

// FormatYen is for display only; sinks get FinalAmount as plain digits.
func FormatYen(amount int64) string {
	return displayPrinter.Sprintf("¥%d", amount)
}

// Caption restates the payout formula under the result, e.g.
// "基本ボーナス額 ¥600,000 × 支給率 94.00% × 係数 1.00".
func Caption(b ScoreBreakdown) string {
	return fmt.Sprintf("基本ボーナス額 %s × 支給率 %s × 係数 %s",
		FormatYen(b.BaseBonusAmount.Floor().IntPart()),
		FormatPercent(b.FinalRate),
		b.AdjustmentFactor.StringFixed(2),
	)
}

func (e Entry) clone() Entry {
	out := e
	out.Record.NumericMetrics = append([]PerformanceMetric(nil), e.Record.NumericMetrics...)
	out.Record.BehavioralRatings = append([]BehavioralRating(nil), e.Record.BehavioralRatings...)
	out.Record.PostureRatings = append([]BehavioralRating(nil), e.Record.PostureRatings...)
	out.Breakdown.Notes = append([]string(nil), e.Breakdown.Notes...)
	return out
}
