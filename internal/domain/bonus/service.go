package bonus

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultSinkTimeout = 5 * time.Second

// RecordSink persists computed entries. Failures never affect the computed
// breakdown.
type RecordSink interface {
	Name() string
	Append(ctx context.Context, entry Entry) error
}

// Enqueuer runs work off the request path.
type Enqueuer interface {
	Enqueue(jobType, key string, run func(context.Context) (any, error))
}

type Recorder interface {
	CalculationRecorded(notes []string)
	SinkAppended(sink string, err error)
}

type Option func(*Service)

func WithSinks(sinks ...RecordSink) Option {
	return func(s *Service) {
		for _, sink := range sinks {
			if sink != nil {
				s.sinks = append(s.sinks, sink)
			}
		}
	}
}

func WithSinkTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

func WithQueue(queue Enqueuer) Option {
	return func(s *Service) {
		s.queue = queue
	}
}

func WithRecorder(rec Recorder) Option {
	return func(s *Service) {
		if rec != nil {
			s.recorder = rec
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

type Service struct {
	calc     atomic.Pointer[Calculator]
	log      *zap.Logger
	sinks    []RecordSink
	timeout  time.Duration
	queue    Enqueuer
	recorder Recorder
	now      func() time.Time
	newID    func() string
}

func NewService(calc *Calculator, log *zap.Logger, opts ...Option) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{
		log:      log,
		timeout:  defaultSinkTimeout,
		recorder: noopRecorder{},
		now:      time.Now,
		newID:    uuid.NewString,
	}
	s.calc.Store(calc)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Calculator() *Calculator {
	return s.calc.Load()
}

// SetCalculator swaps the scoring policy for subsequent calculations.
func (s *Service) SetCalculator(calc *Calculator) {
	if calc != nil {
		s.calc.Store(calc)
	}
}

func (s *Service) Sinks() []string {
	names := make([]string, 0, len(s.sinks))
	for _, sink := range s.sinks {
		names = append(names, sink.Name())
	}
	return names
}

// Calculate validates and scores a record. It performs no I/O.
func (s *Service) Calculate(ctx context.Context, record EvaluationRecord) (ScoreBreakdown, error) {
	if err := record.Validate(); err != nil {
		return ScoreBreakdown{}, err
	}
	breakdown := s.calc.Load().Calculate(record)
	s.recorder.CalculationRecorded(breakdown.Notes)
	if len(breakdown.Notes) > 0 {
		s.log.Debug("degenerate evaluation inputs",
			zap.String("employee", record.EmployeeName),
			zap.Strings("notes", breakdown.Notes),
		)
	}
	return breakdown, nil
}

// Save computes the breakdown and then appends it to every sink. Only
// invalid input is returned as an error; sink failures come back as warnings.
func (s *Service) Save(ctx context.Context, record EvaluationRecord) (SaveResult, error) {
	entry, err := s.compute(ctx, record)
	if err != nil {
		return SaveResult{}, err
	}
	result := SaveResult{Entry: entry, Persisted: []string{}}
	for _, sink := range s.sinks {
		if err := s.appendTo(ctx, sink, entry); err != nil {
			result.Warnings = append(result.Warnings, SinkWarning{Sink: sink.Name(), Message: err.Error(), Err: err})
			continue
		}
		result.Persisted = append(result.Persisted, sink.Name())
	}
	return result, nil
}

// SaveAsync returns as soon as the breakdown is computed; sink appends run
// on the queue, or on a detached goroutine when no queue is configured.
func (s *Service) SaveAsync(ctx context.Context, record EvaluationRecord) (Entry, error) {
	entry, err := s.compute(ctx, record)
	if err != nil {
		return Entry{}, err
	}
	if len(s.sinks) == 0 {
		return entry, nil
	}
	run := func(ctx context.Context) (any, error) {
		return s.persistAll(ctx, entry)
	}
	if s.queue != nil {
		s.queue.Enqueue(JobSinkAppend, entry.ID, run)
		return entry, nil
	}
	detached := context.WithoutCancel(ctx)
	go func() {
		_, _ = run(detached)
	}()
	return entry, nil
}

func (s *Service) compute(ctx context.Context, record EvaluationRecord) (Entry, error) {
	breakdown, err := s.Calculate(ctx, record)
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		ID:         s.newID(),
		RecordedAt: s.now().UTC(),
		Record:     record,
		Breakdown:  breakdown,
	}, nil
}

func (s *Service) persistAll(ctx context.Context, entry Entry) (map[string]string, error) {
	details := make(map[string]string, len(s.sinks))
	var errs []error
	for _, sink := range s.sinks {
		if err := s.appendTo(ctx, sink, entry); err != nil {
			details[sink.Name()] = "failed"
			errs = append(errs, err)
			continue
		}
		details[sink.Name()] = "ok"
	}
	return details, errors.Join(errs...)
}

func (s *Service) appendTo(ctx context.Context, sink RecordSink, entry Entry) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err := sink.Append(ctx, entry.clone())
	s.recorder.SinkAppended(sink.Name(), err)
	if err != nil {
		s.log.Warn("record sink append failed",
			zap.String("sink", sink.Name()),
			zap.String("entryId", entry.ID),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %s: %w", ErrSinkUnavailable, sink.Name(), err)
	}
	return nil
}

type noopRecorder struct{}

func (noopRecorder) CalculationRecorded([]string) {}

func (noopRecorder) SinkAppended(string, error) {}
