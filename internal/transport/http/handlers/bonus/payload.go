package bonushandler

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"bonussim/internal/domain/bonus"
	"bonussim/internal/transport/http/shared"
)

type metricPayload struct {
	Key    string   `json:"key" validate:"required,max=64"`
	Label  string   `json:"label" validate:"max=100"`
	Target *float64 `json:"target" validate:"required,gte=0"`
	Actual *float64 `json:"actual" validate:"required,gte=0"`
}

// ratingPayload takes either a grade ("A", "A: 1.0") or a slider value.
type ratingPayload struct {
	Item  string   `json:"item" validate:"required,max=100"`
	Grade string   `json:"grade" validate:"required_without=Value"`
	Value *float64 `json:"value" validate:"excluded_with=Grade"`
}

type evaluationPayload struct {
	EmployeeName      string          `json:"employeeName" validate:"max=100"`
	Period            string          `json:"period" validate:"max=40"`
	MonthlySalary     *float64        `json:"monthlySalary" validate:"required,gte=0"`
	BaseBonusMonths   *float64        `json:"baseBonusMonths" validate:"required,gte=0"`
	NumericMetrics    []metricPayload `json:"numericMetrics" validate:"max=20,dive"`
	BehavioralRatings []ratingPayload `json:"behavioralRatings" validate:"max=20,dive"`
	PostureRatings    []ratingPayload `json:"postureRatings" validate:"max=20,dive"`
	AdjustmentFactor  *float64        `json:"adjustmentFactor"`
	Comment           string          `json:"comment" validate:"max=2000"`
}

type adjustmentBounds func() (decimal.Decimal, decimal.Decimal)

// toRecord converts a structurally valid payload. Missing adjustmentFactor
// means the neutral 1.00.
func (p evaluationPayload) toRecord(v *shared.Validator, bounds adjustmentBounds) bonus.EvaluationRecord {
	record := bonus.EvaluationRecord{
		EmployeeName:     p.EmployeeName,
		Period:           p.Period,
		Comment:          p.Comment,
		AdjustmentFactor: decimal.NewFromInt(1),
	}
	record.MonthlySalary = toDecimal(v, "monthlySalary", p.MonthlySalary)
	record.BaseBonusMonths = toDecimal(v, "baseBonusMonths", p.BaseBonusMonths)
	if p.AdjustmentFactor != nil {
		record.AdjustmentFactor = toDecimal(v, "adjustmentFactor", p.AdjustmentFactor)
	}
	if bounds != nil {
		lo, hi := bounds()
		if record.AdjustmentFactor.LessThan(lo) || record.AdjustmentFactor.GreaterThan(hi) {
			v.Add("adjustmentFactor", fmt.Sprintf("must be between %s and %s", lo.StringFixed(2), hi.StringFixed(2)))
		}
	}

	for i, m := range p.NumericMetrics {
		field := fmt.Sprintf("numericMetrics[%d]", i)
		record.NumericMetrics = append(record.NumericMetrics, bonus.PerformanceMetric{
			Key:    m.Key,
			Label:  m.Label,
			Target: toDecimal(v, field+".target", m.Target),
			Actual: toDecimal(v, field+".actual", m.Actual),
		})
	}
	record.BehavioralRatings = toRatings(v, "behavioralRatings", p.BehavioralRatings, bonus.ActivityScale)
	record.PostureRatings = toRatings(v, "postureRatings", p.PostureRatings, bonus.PostureScale)
	return record
}

func toRatings(v *shared.Validator, field string, in []ratingPayload, scale bonus.Scale) []bonus.BehavioralRating {
	out := make([]bonus.BehavioralRating, 0, len(in))
	for i, r := range in {
		if r.Value != nil {
			out = append(out, bonus.BehavioralRating{
				Item:  r.Item,
				Value: toDecimal(v, fmt.Sprintf("%s[%d].value", field, i), r.Value),
			})
			continue
		}
		rating, err := scale.Rating(r.Item, r.Grade)
		if err != nil {
			v.Add(fmt.Sprintf("%s[%d].grade", field, i), "must be one of "+joinCodes(scale))
			continue
		}
		out = append(out, rating)
	}
	return out
}

func toDecimal(v *shared.Validator, field string, value *float64) decimal.Decimal {
	if value == nil {
		return decimal.Zero
	}
	d, err := bonus.DecimalFromFloat(field, *value)
	if err != nil {
		v.Add(field, "must be a finite number")
	}
	return d
}

func joinCodes(scale bonus.Scale) string {
	codes := make([]string, 0, len(scale.Grades))
	for _, g := range scale.Grades {
		codes = append(codes, g.Code)
	}
	return strings.Join(codes, ", ")
}

type displayView struct {
	NumericScore      string  `json:"numericScore"`
	BehavioralScore   string  `json:"behavioralScore"`
	PostureScore      string  `json:"postureScore"`
	PreAdjustmentRate string  `json:"preAdjustmentRate"`
	AdjustmentFactor  string  `json:"adjustmentFactor"`
	FinalRate         string  `json:"finalRate"`
	AdjustedRate      string  `json:"adjustedRate"`
	BaseBonusAmount   string  `json:"baseBonusAmount"`
	FinalAmount       string  `json:"finalAmount"`
	Caption           string  `json:"caption"`
	Progress          float64 `json:"progress"`
}

func newDisplayView(b bonus.ScoreBreakdown) displayView {
	return displayView{
		NumericScore:      bonus.FormatPercent(b.NumericScore),
		BehavioralScore:   bonus.FormatPercent(b.BehavioralScore),
		PostureScore:      bonus.FormatPercent(b.PostureScore),
		PreAdjustmentRate: bonus.FormatPercent(b.PreAdjustmentRate),
		AdjustmentFactor:  b.AdjustmentFactor.StringFixed(2),
		FinalRate:         bonus.FormatPercent(b.FinalRate),
		AdjustedRate:      bonus.FormatPercent(b.AdjustedRate),
		BaseBonusAmount:   bonus.FormatYen(b.BaseBonusAmount.Floor().IntPart()),
		FinalAmount:       bonus.FormatYen(b.FinalAmount),
		Caption:           bonus.Caption(b),
		Progress:          b.Progress(),
	}
}

type calculationView struct {
	Breakdown bonus.ScoreBreakdown `json:"breakdown"`
	Display   displayView          `json:"display"`
}

type savedView struct {
	Entry     bonus.Entry         `json:"entry"`
	Display   displayView         `json:"display"`
	Persisted []string            `json:"persisted"`
	Pending   []string            `json:"pending,omitempty"`
	Warnings  []bonus.SinkWarning `json:"warnings"`
}

type entryList struct {
	Items  []bonus.Entry `json:"items"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

type scaleView struct {
	Name   string        `json:"name"`
	Grades []bonus.Grade `json:"grades"`
	Labels []string      `json:"labels"`
	Min    string        `json:"min"`
	Max    string        `json:"max"`
}

func newScaleView(s bonus.Scale) scaleView {
	return scaleView{Name: s.Name, Grades: s.Grades, Labels: s.Labels(), Min: s.Min.String(), Max: s.Max.String()}
}
