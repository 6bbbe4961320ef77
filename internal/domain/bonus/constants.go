package bonus

import "github.com/shopspring/decimal"

const (
	MetricRevenue      = "revenue"
	MetricGrossMargin  = "gross_margin"
	MetricNewContracts = "new_contracts"

	ScaleActivity = "activity"
	ScalePosture  = "posture"

	RoundingFloor   = "floor"
	RoundingNearest = "nearest"

	NoteZeroTarget      = "zero_target"
	NoteEmptyMetrics    = "empty_metrics"
	NoteEmptyBehavioral = "empty_behavioral"
	NoteEmptyPosture    = "empty_posture"

	JobSinkAppend = "bonus_sink_append"
)

const (
	// divisionPrecision keeps quotient error far below amountScale.
	divisionPrecision = 28
	// amountScale is applied to the unrounded payout before floor or
	// nearest so a repeating quotient (71/75) cannot lose a unit.
	amountScale = 8
)

var (
	DefaultNumericWeight    = decimal.RequireFromString("0.6")
	DefaultBehavioralWeight = decimal.RequireFromString("0.25")
	DefaultPostureWeight    = decimal.RequireFromString("0.15")

	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)
