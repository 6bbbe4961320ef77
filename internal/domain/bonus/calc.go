package bonus

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ComputeNumericScore averages metric attainment and applies weight.
// Attainment above 1.0 is not clamped. An empty slice scores zero.
func ComputeNumericScore(metrics []PerformanceMetric, weight decimal.Decimal) decimal.Decimal {
	if len(metrics) == 0 {
		return decimal.Zero
	}
	total := decimal.Zero
	for _, metric := range metrics {
		total = total.Add(metric.Attainment())
	}
	return total.DivRound(decimal.NewFromInt(int64(len(metrics))), divisionPrecision).Mul(weight)
}

// ComputeCategoryScore averages resolved rating values and applies weight.
// An empty slice scores zero.
func ComputeCategoryScore(ratings []BehavioralRating, weight decimal.Decimal) decimal.Decimal {
	if len(ratings) == 0 {
		return decimal.Zero
	}
	total := decimal.Zero
	for _, rating := range ratings {
		total = total.Add(rating.Value)
	}
	return total.DivRound(decimal.NewFromInt(int64(len(ratings))), divisionPrecision).Mul(weight)
}

// ComputeFinalRate sums the weighted scores. Weights that do not add up to
// 1.0 are not corrected.
func ComputeFinalRate(numericScore, behavioralScore, postureScore decimal.Decimal) decimal.Decimal {
	return numericScore.Add(behavioralScore).Add(postureScore)
}

func BaseBonusAmount(monthlySalary, baseBonusMonths decimal.Decimal) decimal.Decimal {
	return monthlySalary.Mul(baseBonusMonths)
}

// ComputeFinalAmount floors base × finalRate × adjustmentFactor to whole
// currency units. Any adjustment factor is accepted; zero pays nothing and a
// negative factor yields a non-positive amount.
func ComputeFinalAmount(monthlySalary, baseBonusMonths, finalRate, adjustmentFactor decimal.Decimal) int64 {
	base := BaseBonusAmount(monthlySalary, baseBonusMonths)
	return roundAmount(base.Mul(finalRate.Mul(adjustmentFactor)), RoundingFloor)
}

func roundAmount(amount decimal.Decimal, mode string) int64 {
	amount = amount.Round(amountScale)
	if mode == RoundingNearest {
		return amount.Round(0).IntPart()
	}
	return amount.Floor().IntPart()
}

type Policy struct {
	NumericWeight    decimal.Decimal `json:"numericWeight"`
	BehavioralWeight decimal.Decimal `json:"behavioralWeight"`
	PostureWeight    decimal.Decimal `json:"postureWeight"`
	Rounding         string          `json:"rounding"`
}

func DefaultPolicy() Policy {
	return Policy{
		NumericWeight:    DefaultNumericWeight,
		BehavioralWeight: DefaultBehavioralWeight,
		PostureWeight:    DefaultPostureWeight,
		Rounding:         RoundingFloor,
	}
}

// NewPolicy builds a policy from configuration values.
func NewPolicy(numeric, behavioral, posture float64, rounding string) (Policy, error) {
	if rounding == "" {
		rounding = RoundingFloor
	}
	if rounding != RoundingFloor && rounding != RoundingNearest {
		return Policy{}, fmt.Errorf("unknown rounding mode %q", rounding)
	}
	weights := []float64{numeric, behavioral, posture}
	for _, w := range weights {
		if _, err := DecimalFromFloat("weight", w); err != nil {
			return Policy{}, err
		}
	}
	return Policy{
		NumericWeight:    decimal.NewFromFloat(numeric),
		BehavioralWeight: decimal.NewFromFloat(behavioral),
		PostureWeight:    decimal.NewFromFloat(posture),
		Rounding:         rounding,
	}, nil
}

// Calculator holds no mutable state and may be shared across goroutines.
type Calculator struct {
	policy Policy
}

func NewCalculator(policy Policy) *Calculator {
	if policy.Rounding == "" {
		policy.Rounding = RoundingFloor
	}
	return &Calculator{policy: policy}
}

func (c *Calculator) Policy() Policy {
	return c.policy
}

func (c *Calculator) Calculate(record EvaluationRecord) ScoreBreakdown {
	numeric := ComputeNumericScore(record.NumericMetrics, c.policy.NumericWeight)
	behavioral := ComputeCategoryScore(record.BehavioralRatings, c.policy.BehavioralWeight)
	posture := ComputeCategoryScore(record.PostureRatings, c.policy.PostureWeight)
	finalRate := ComputeFinalRate(numeric, behavioral, posture)
	base := BaseBonusAmount(record.MonthlySalary, record.BaseBonusMonths)
	adjusted := finalRate.Mul(record.AdjustmentFactor)

	return ScoreBreakdown{
		NumericScore:      numeric,
		BehavioralScore:   behavioral,
		PostureScore:      posture,
		PreAdjustmentRate: finalRate,
		AdjustmentFactor:  record.AdjustmentFactor,
		FinalRate:         finalRate,
		AdjustedRate:      adjusted,
		BaseBonusAmount:   base,
		FinalAmount:       roundAmount(base.Mul(adjusted), c.policy.Rounding),
		Notes:             degenerateNotes(record),
	}
}

// degenerateNotes flags zero-valued outcomes that are policy, not errors.
func degenerateNotes(record EvaluationRecord) []string {
	var notes []string
	if len(record.NumericMetrics) == 0 {
		notes = append(notes, NoteEmptyMetrics)
	}
	for _, metric := range record.NumericMetrics {
		if !metric.Target.IsPositive() {
			notes = append(notes, NoteZeroTarget+":"+metric.Key)
		}
	}
	if len(record.BehavioralRatings) == 0 {
		notes = append(notes, NoteEmptyBehavioral)
	}
	if len(record.PostureRatings) == 0 {
		notes = append(notes, NoteEmptyPosture)
	}
	return notes
}
