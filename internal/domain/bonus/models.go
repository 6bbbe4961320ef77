package bonus

import (
	"time"

	"github.com/shopspring/decimal"
)

type PerformanceMetric struct {
	Key    string          `json:"key"`
	Label  string          `json:"label,omitempty"`
	Target decimal.Decimal `json:"target"`
	Actual decimal.Decimal `json:"actual"`
}

// Attainment is Actual/Target. A target of zero or below yields zero.
func (m PerformanceMetric) Attainment() decimal.Decimal {
	if !m.Target.IsPositive() {
		return decimal.Zero
	}
	return m.Actual.DivRound(m.Target, divisionPrecision)
}

// BehavioralRating carries the resolved scale value. Grade is empty when the
// value came from a continuous slider.
type BehavioralRating struct {
	Item  string          `json:"item"`
	Grade string          `json:"grade,omitempty"`
	Value decimal.Decimal `json:"value"`
}

type EvaluationRecord struct {
	EmployeeName      string              `json:"employeeName"`
	Period            string              `json:"period"`
	MonthlySalary     decimal.Decimal     `json:"monthlySalary"`
	BaseBonusMonths   decimal.Decimal     `json:"baseBonusMonths"`
	NumericMetrics    []PerformanceMetric `json:"numericMetrics"`
	BehavioralRatings []BehavioralRating  `json:"behavioralRatings"`
	PostureRatings    []BehavioralRating  `json:"postureRatings"`
	AdjustmentFactor  decimal.Decimal     `json:"adjustmentFactor"`
	Comment           string              `json:"comment,omitempty"`
}

type ScoreBreakdown struct {
	NumericScore      decimal.Decimal `json:"numericScore"`
	BehavioralScore   decimal.Decimal `json:"behavioralScore"`
	PostureScore      decimal.Decimal `json:"postureScore"`
	PreAdjustmentRate decimal.Decimal `json:"preAdjustmentRate"`
	AdjustmentFactor  decimal.Decimal `json:"adjustmentFactor"`
	FinalRate         decimal.Decimal `json:"finalRate"`
	AdjustedRate      decimal.Decimal `json:"adjustedRate"`
	BaseBonusAmount   decimal.Decimal `json:"baseBonusAmount"`
	FinalAmount       int64           `json:"finalAmount"`
	Notes             []string        `json:"notes,omitempty"`
}

// Progress is the adjusted rate capped to [0, 1], the fill of a progress bar.
func (b ScoreBreakdown) Progress() float64 {
	p := b.AdjustedRate
	if p.GreaterThan(one) {
		p = one
	}
	if p.IsNegative() {
		p = decimal.Zero
	}
	return p.InexactFloat64()
}

// Entry is a computed evaluation as handed to record sinks.
type Entry struct {
	ID         string           `json:"id"`
	RecordedAt time.Time        `json:"recordedAt"`
	Record     EvaluationRecord `json:"record"`
	Breakdown  ScoreBreakdown   `json:"breakdown"`
}

type SinkWarning struct {
	Sink    string `json:"sink"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

type SaveResult struct {
	Entry     Entry         `json:"entry"`
	Persisted []string      `json:"persisted"`
	Warnings  []SinkWarning `json:"warnings,omitempty"`
}

// DefaultRecord is the evaluation form as it opens: three sales metrics,
// four activity items and four posture items.
func DefaultRecord() EvaluationRecord {
	activity := func(item string) BehavioralRating {
		r, _ := ActivityScale.Rating(item, "A")
		return r
	}
	posture := func(item string) BehavioralRating {
		r, _ := PostureScale.Rating(item, "A")
		return r
	}
	return EvaluationRecord{
		EmployeeName:    "営業 太郎",
		MonthlySalary:   decimal.NewFromInt(300000),
		BaseBonusMonths: decimal.RequireFromString("2.0"),
		NumericMetrics: []PerformanceMetric{
			{Key: MetricRevenue, Label: "売上 (万円)", Target: decimal.NewFromInt(1000), Actual: decimal.NewFromInt(900)},
			{Key: MetricGrossMargin, Label: "粗利 (万円)", Target: decimal.NewFromInt(300), Actual: decimal.NewFromInt(310)},
			{Key: MetricNewContracts, Label: "新規 (件)", Target: decimal.NewFromInt(10), Actual: decimal.NewFromInt(8)},
		},
		BehavioralRatings: []BehavioralRating{
			activity("商談・提案活動"),
			activity("CRM・報告"),
			activity("案件管理"),
			activity("顧客対応"),
		},
		PostureRatings: []BehavioralRating{
			posture("チーム貢献"),
			posture("勤怠・規律"),
			posture("業務改善"),
			posture("会社方針理解"),
		},
		AdjustmentFactor: decimal.NewFromInt(1),
	}
}
