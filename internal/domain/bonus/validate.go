package bonus

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Validate rejects negative money, months and metric figures, and rating
// values outside their scale. Zero targets and empty rating lists are legal.
func (r EvaluationRecord) Validate() error {
	v := &ValidationError{}
	if r.MonthlySalary.IsNegative() {
		v.add("monthlySalary", "must not be negative")
	}
	if r.BaseBonusMonths.IsNegative() {
		v.add("baseBonusMonths", "must not be negative")
	}
	for i, metric := range r.NumericMetrics {
		field := fmt.Sprintf("numericMetrics[%d]", i)
		if strings.TrimSpace(metric.Key) == "" {
			v.add(field+".key", "is required")
		}
		if metric.Target.IsNegative() {
			v.add(field+".target", "must not be negative")
		}
		if metric.Actual.IsNegative() {
			v.add(field+".actual", "must not be negative")
		}
	}
	validateRatings(v, "behavioralRatings", r.BehavioralRatings, ActivityScale)
	validateRatings(v, "postureRatings", r.PostureRatings, PostureScale)
	return v.orNil()
}

func validateRatings(v *ValidationError, field string, ratings []BehavioralRating, scale Scale) {
	for i, rating := range ratings {
		if !scale.Contains(rating.Value) {
			v.add(fmt.Sprintf("%s[%d].value", field, i), fmt.Sprintf("must be between %s and %s", scale.Min, scale.Max))
		}
	}
}

// DecimalFromFloat converts a float input, rejecting NaN and infinities.
func DecimalFromFloat(field string, value float64) (decimal.Decimal, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return decimal.Zero, invalidField(field, "must be a finite number")
	}
	return decimal.NewFromFloat(value), nil
}

// ParseDecimal parses textual input such as CSV cells and CLI flags.
func ParseDecimal(field, raw string) (decimal.Decimal, error) {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if raw == "" {
		return decimal.Zero, invalidField(field, "is required")
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, invalidField(field, "must be a finite number")
	}
	return value, nil
}
