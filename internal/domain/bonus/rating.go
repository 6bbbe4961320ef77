package bonus

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type Grade struct {
	Code  string          `json:"code"`
	Value decimal.Decimal `json:"value"`
}

// Scale is an ordinal rating scale. Discrete grades are the canonical input;
// slider values are accepted only inside [Min, Max] and land on the same
// numeric Value as a grade would.
type Scale struct {
	Name   string          `json:"name"`
	Grades []Grade         `json:"grades"`
	Min    decimal.Decimal `json:"min"`
	Max    decimal.Decimal `json:"max"`
}

var (
	ActivityScale = Scale{
		Name: ScaleActivity,
		Grades: []Grade{
			{Code: "S", Value: decimal.RequireFromString("1.2")},
			{Code: "A", Value: decimal.RequireFromString("1.0")},
			{Code: "B", Value: decimal.RequireFromString("0.8")},
			{Code: "C", Value: decimal.RequireFromString("0.5")},
		},
		Min: decimal.RequireFromString("0.5"),
		Max: decimal.RequireFromString("1.2"),
	}
	PostureScale = Scale{
		Name: ScalePosture,
		Grades: []Grade{
			{Code: "A", Value: decimal.RequireFromString("1.0")},
			{Code: "B", Value: decimal.RequireFromString("0.8")},
			{Code: "C", Value: decimal.RequireFromString("0.5")},
		},
		Min: decimal.RequireFromString("0.5"),
		Max: decimal.RequireFromString("1.0"),
	}
)

// Resolve maps a grade to its value. Both "B" and the selectbox label
// "B: 0.8" are accepted.
func (s Scale) Resolve(grade string) (Grade, error) {
	code := strings.TrimSpace(grade)
	if i := strings.Index(code, ":"); i >= 0 {
		code = strings.TrimSpace(code[:i])
	}
	code = strings.ToUpper(code)
	for _, g := range s.Grades {
		if g.Code == code {
			return g, nil
		}
	}
	return Grade{}, fmt.Errorf("%w: unknown %s grade %q", ErrInvalidInput, s.Name, grade)
}

func (s Scale) Rating(item, grade string) (BehavioralRating, error) {
	g, err := s.Resolve(grade)
	if err != nil {
		return BehavioralRating{}, err
	}
	return BehavioralRating{Item: item, Grade: g.Code, Value: g.Value}, nil
}

func (s Scale) SliderRating(item string, value decimal.Decimal) (BehavioralRating, error) {
	if !s.Contains(value) {
		return BehavioralRating{}, fmt.Errorf("%w: %s value %s outside [%s, %s]", ErrInvalidInput, s.Name, value, s.Min, s.Max)
	}
	return BehavioralRating{Item: item, Value: value}, nil
}

func (s Scale) Contains(value decimal.Decimal) bool {
	return !value.LessThan(s.Min) && !value.GreaterThan(s.Max)
}

// Labels returns the selectbox labels, e.g. "S: 1.2".
func (s Scale) Labels() []string {
	out := make([]string, 0, len(s.Grades))
	for _, g := range s.Grades {
		out = append(out, g.Code+": "+g.Value.StringFixed(1))
	}
	return out
}

func ScaleByName(name string) (Scale, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case ScaleActivity:
		return ActivityScale, true
	case ScalePosture:
		return PostureScale, true
	}
	return Scale{}, false
}
