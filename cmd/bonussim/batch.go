package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"bonussim/internal/app/server"
	"bonussim/internal/domain/bonus"
)

type batchOptions struct {
	in          string
	out         string
	concurrency int
	save        bool
	quiet       bool
}

func newBatchCmd() *cobra.Command {
	opts := &batchOptions{}
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Calculate bonuses for every row of a CSV file",
		Long: `Calculate bonuses for every row of a CSV file and write one result row per
evaluation. Input columns: name, period, monthly_salary, base_bonus_months,
adjustment_factor, comment, <metric>_target/<metric>_actual pairs and
activity:<item> / posture:<item> rating columns.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBatch(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.in, "in", "i", "", "Input CSV file")
	f.StringVarP(&opts.out, "out", "o", "-", "Output CSV file (- for stdout)")
	f.IntVar(&opts.concurrency, "concurrency", 4, "Maximum concurrent calculations")
	f.BoolVar(&opts.save, "save", false, "Append every result to the configured record sinks")
	f.BoolVarP(&opts.quiet, "quiet", "q", false, "Hide the progress bar")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}

func runBatch(ctx context.Context, stdout, stderr io.Writer, opts *batchOptions) error {
	if opts.concurrency < 1 {
		return errors.New("--concurrency must be at least 1")
	}
	f, err := os.Open(opts.in)
	if err != nil {
		return err
	}
	defer f.Close()
	records, err := bonus.ReadRecords(f)
	if err != nil {
		return fmt.Errorf("%s: %w", opts.in, err)
	}
	if err := validateAll(records); err != nil {
		return err
	}

	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	var svc *bonus.Service
	if opts.save {
		app, err := server.New(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer app.Close()
		svc = app.Service
	} else {
		if svc, err = scoringService(cfg, log); err != nil {
			return err
		}
	}

	bar := progressbar.NewOptions(len(records),
		progressbar.OptionSetWriter(stderr),
		progressbar.OptionSetDescription("calculating"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetVisibility(!opts.quiet),
	)
	entries, warnings, err := calculateAll(ctx, svc, records, opts.concurrency, opts.save, func() { _ = bar.Add(1) })
	_ = bar.Finish()
	if err != nil {
		return err
	}
	for _, w := range warnings {
		fmt.Fprintf(stderr, "warning: %s\n", w)
	}

	out := stdout
	if opts.out != "" && opts.out != "-" {
		file, err := os.Create(opts.out)
		if err != nil {
			return err
		}
		defer file.Close()
		out = file
	}
	return writeEntries(out, entries)
}

// validateAll rejects the whole file before any row is scored or saved, so a
// rerun after fixing a bad row never appends the good rows twice.
func validateAll(records []bonus.EvaluationRecord) error {
	for i, record := range records {
		if err := record.Validate(); err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}
	}
	return nil
}

// calculateAll scores records concurrently while preserving input order. The
// first invalid record cancels the rest.
func calculateAll(ctx context.Context, svc *bonus.Service, records []bonus.EvaluationRecord, limit int, save bool, tick func()) ([]bonus.Entry, []string, error) {
	entries := make([]bonus.Entry, len(records))
	warnings := make([][]string, len(records))
	now := time.Now().UTC()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, record := range records {
		i, record := i, record // per-iteration copies (go 1.21 loop semantics)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			defer tick()
			if save {
				result, err := svc.Save(ctx, record)
				if err != nil {
					return fmt.Errorf("row %d: %w", i+1, err)
				}
				entries[i] = result.Entry
				for _, w := range result.Warnings {
					warnings[i] = append(warnings[i], fmt.Sprintf("row %d: %s", i+1, w.Message))
				}
				return nil
			}
			breakdown, err := svc.Calculate(ctx, record)
			if err != nil {
				return fmt.Errorf("row %d: %w", i+1, err)
			}
			entries[i] = bonus.Entry{RecordedAt: now, Record: record, Breakdown: breakdown}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	var flat []string
	for _, w := range warnings {
		flat = append(flat, w...)
	}
	return entries, flat, nil
}

func writeEntries(out io.Writer, entries []bonus.Entry) error {
	w := csv.NewWriter(out)
	if err := w.Write(bonus.RowHeader); err != nil {
		return err
	}
	for _, entry := range entries {
		if err := w.Write(entry.Row()); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
