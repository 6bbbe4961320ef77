package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bonussim/internal/app/server"
	"bonussim/internal/domain/bonus"
	"bonussim/internal/platform/config"
)

type calcOptions struct {
	name       string
	period     string
	salary     string
	months     string
	adjustment string
	comment    string
	metrics    []string
	activity   []string
	posture    []string
	jsonOut    bool
	save       bool
}

func newCalcCmd() *cobra.Command {
	opts := &calcOptions{}
	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Calculate one bonus",
		Long: `Calculate one bonus. Metrics and ratings that are not given fall back to
the evaluation form defaults.

  bonussim calc --salary 300000 --months 2 --metric revenue=1000:900 \
    --activity 商談・提案活動=A --posture チーム貢献=A --adjustment 0.8`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCalc(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), opts)
		},
	}
	defaults := bonus.DefaultRecord()
	f := cmd.Flags()
	f.StringVar(&opts.name, "name", defaults.EmployeeName, "Employee name")
	f.StringVar(&opts.period, "period", "", "Evaluation period label")
	f.StringVar(&opts.salary, "salary", defaults.MonthlySalary.String(), "Monthly salary (JPY)")
	f.StringVar(&opts.months, "months", defaults.BaseBonusMonths.String(), "Base bonus months")
	f.StringVar(&opts.adjustment, "adjustment", "1.00", "Adjustment factor")
	f.StringVar(&opts.comment, "comment", "", "Evaluator comment")
	f.StringArrayVar(&opts.metrics, "metric", nil, "Numeric metric as key=target:actual (repeatable)")
	f.StringArrayVar(&opts.activity, "activity", nil, "Activity rating as item=grade or item=value (repeatable)")
	f.StringArrayVar(&opts.posture, "posture", nil, "Posture rating as item=grade or item=value (repeatable)")
	f.BoolVar(&opts.jsonOut, "json", false, "Print the breakdown as JSON")
	f.BoolVar(&opts.save, "save", false, "Append the result to the configured record sinks")
	return cmd
}

func (o *calcOptions) record() (bonus.EvaluationRecord, error) {
	record := bonus.DefaultRecord()
	record.EmployeeName = o.name
	record.Period = o.period
	record.Comment = o.comment

	var err error
	if record.MonthlySalary, err = bonus.ParseDecimal("salary", o.salary); err != nil {
		return record, err
	}
	if record.BaseBonusMonths, err = bonus.ParseDecimal("months", o.months); err != nil {
		return record, err
	}
	if record.AdjustmentFactor, err = bonus.ParseDecimal("adjustment", o.adjustment); err != nil {
		return record, err
	}
	if len(o.metrics) > 0 {
		record.NumericMetrics = record.NumericMetrics[:0]
		for _, raw := range o.metrics {
			metric, err := parseMetricFlag(raw)
			if err != nil {
				return record, err
			}
			record.NumericMetrics = append(record.NumericMetrics, metric)
		}
	}
	if len(o.activity) > 0 {
		if record.BehavioralRatings, err = parseRatingFlags(bonus.ActivityScale, o.activity); err != nil {
			return record, err
		}
	}
	if len(o.posture) > 0 {
		if record.PostureRatings, err = parseRatingFlags(bonus.PostureScale, o.posture); err != nil {
			return record, err
		}
	}
	return record, nil
}

func runCalc(ctx context.Context, out, errOut io.Writer, opts *calcOptions) error {
	record, err := opts.record()
	if err != nil {
		return err
	}
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	if !opts.save {
		svc, err := scoringService(cfg, log)
		if err != nil {
			return err
		}
		breakdown, err := svc.Calculate(ctx, record)
		if err != nil {
			return err
		}
		return printBreakdown(out, record, breakdown, opts.jsonOut)
	}

	app, err := server.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.Close()
	result, err := app.Service.Save(ctx, record)
	if err != nil {
		return err
	}
	for _, w := range result.Warnings {
		fmt.Fprintf(errOut, "warning: %s\n", w.Message)
	}
	if len(result.Persisted) > 0 {
		fmt.Fprintf(errOut, "saved %s to %s\n", result.Entry.ID, strings.Join(result.Persisted, ", "))
	}
	return printBreakdown(out, record, result.Entry.Breakdown, opts.jsonOut)
}

// scoringService builds a sink-less service from the scoring configuration.
func scoringService(cfg config.Config, log *zap.Logger) (*bonus.Service, error) {
	scoring, err := config.LoadScoring(cfg.ScoringFile)
	if err != nil {
		return nil, err
	}
	policy, err := scoring.Get().Policy()
	if err != nil {
		return nil, err
	}
	return bonus.NewService(bonus.NewCalculator(policy), log), nil
}

func printBreakdown(out io.Writer, record bonus.EvaluationRecord, b bonus.ScoreBreakdown, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"record": record, "breakdown": b})
	}
	lines := [][2]string{
		{"氏名", record.EmployeeName},
		{"数値評価 (60%)", bonus.FormatPercent(b.NumericScore)},
		{"行動評価 (25%)", bonus.FormatPercent(b.BehavioralScore)},
		{"姿勢評価 (15%)", bonus.FormatPercent(b.PostureScore)},
		{"最終支給率(調整前)", bonus.FormatPercent(b.PreAdjustmentRate)},
		{"調整係数", b.AdjustmentFactor.StringFixed(2)},
		{"最終支給額", bonus.FormatYen(b.FinalAmount)},
	}
	for _, line := range lines {
		if _, err := fmt.Fprintf(out, "%s: %s\n", line[0], line[1]); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(out, bonus.Caption(b)); err != nil {
		return err
	}
	if len(b.Notes) > 0 {
		_, err := fmt.Fprintf(out, "notes: %s\n", strings.Join(b.Notes, ", "))
		return err
	}
	return nil
}
