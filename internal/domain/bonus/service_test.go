package bonus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memorySink struct {
	mu      sync.Mutex
	name    string
	err     error
	block   bool
	entries []Entry
	done    chan struct{}
}

func (m *memorySink) Name() string { return m.name }

func (m *memorySink) Append(ctx context.Context, entry Entry) error {
	if m.done != nil {
		defer func() { m.done <- struct{}{} }()
	}
	if m.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if m.err != nil {
		return m.err
	}
	// Mutating what we were handed must not leak back to the caller.
	entry.Breakdown.FinalAmount = -1
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memorySink) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

type countingRecorder struct {
	mu           sync.Mutex
	calculations int
	sinkErrors   map[string]int
}

func (r *countingRecorder) CalculationRecorded([]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calculations++
}

func (r *countingRecorder) SinkAppended(sink string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sinkErrors == nil {
		r.sinkErrors = map[string]int{}
	}
	if err != nil {
		r.sinkErrors[sink]++
	}
}

type inlineQueue struct {
	jobs []string
}

func (q *inlineQueue) Enqueue(jobType, key string, run func(context.Context) (any, error)) {
	q.jobs = append(q.jobs, jobType+":"+key)
	_, _ = run(context.Background())
}

func fixedClock() time.Time {
	return time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
}

func newTestService(opts ...Option) *Service {
	opts = append([]Option{WithClock(fixedClock)}, opts...)
	svc := NewService(NewCalculator(DefaultPolicy()), nil, opts...)
	svc.newID = func() string { return "entry-1" }
	return svc
}

func TestServiceCalculateRejectsInvalidInput(t *testing.T) {
	svc := newTestService()
	record := exampleRecord("1")
	record.MonthlySalary = d("-300000")

	_, err := svc.Calculate(context.Background(), record)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.NotErrorIs(t, err, ErrSinkUnavailable)
}

func TestServiceSaveAppendsToEverySink(t *testing.T) {
	first := &memorySink{name: "first"}
	second := &memorySink{name: "second"}
	rec := &countingRecorder{}
	svc := newTestService(WithSinks(first, second), WithRecorder(rec))

	result, err := svc.Save(context.Background(), exampleRecord("1"))
	require.NoError(t, err)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, []string{"first", "second"}, result.Persisted)
	assert.Equal(t, "entry-1", result.Entry.ID)
	assert.Equal(t, fixedClock(), result.Entry.RecordedAt)
	assert.Equal(t, int64(564000), result.Entry.Breakdown.FinalAmount)
	assert.Equal(t, 1, first.count())
	assert.Equal(t, 1, second.count())
	assert.Equal(t, 1, rec.calculations)
}

func TestServiceSaveSinkFailureKeepsBreakdown(t *testing.T) {
	broken := &memorySink{name: "sheets", err: errors.New("quota exceeded")}
	healthy := &memorySink{name: "csv"}
	rec := &countingRecorder{}
	svc := newTestService(WithSinks(broken, healthy), WithRecorder(rec))

	want, err := svc.Calculate(context.Background(), exampleRecord("0.80"))
	require.NoError(t, err)

	result, err := svc.Save(context.Background(), exampleRecord("0.80"))
	require.NoError(t, err)
	assert.Equal(t, want, result.Entry.Breakdown)
	assert.Equal(t, int64(451200), result.Entry.Breakdown.FinalAmount)
	assert.Equal(t, []string{"csv"}, result.Persisted)

	require.Len(t, result.Warnings, 1)
	warning := result.Warnings[0]
	assert.Equal(t, "sheets", warning.Sink)
	assert.ErrorIs(t, warning.Err, ErrSinkUnavailable)
	assert.NotErrorIs(t, warning.Err, ErrInvalidInput)
	assert.Contains(t, warning.Message, "quota exceeded")
	assert.Equal(t, 1, rec.sinkErrors["sheets"])
}

func TestServiceSaveBoundsSlowSinks(t *testing.T) {
	slow := &memorySink{name: "slow", block: true}
	svc := newTestService(WithSinks(slow), WithSinkTimeout(20*time.Millisecond))

	start := time.Now()
	result, err := svc.Save(context.Background(), exampleRecord("1"))
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	require.Len(t, result.Warnings, 1)
	assert.ErrorIs(t, result.Warnings[0].Err, context.DeadlineExceeded)
	assert.Equal(t, int64(564000), result.Entry.Breakdown.FinalAmount)
}

func TestServiceSaveInvalidInputSkipsSinks(t *testing.T) {
	sink := &memorySink{name: "csv"}
	svc := newTestService(WithSinks(sink))
	record := exampleRecord("1")
	record.BaseBonusMonths = d("-2")

	_, err := svc.Save(context.Background(), record)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, 0, sink.count())
}

func TestServiceSaveAsyncUsesQueue(t *testing.T) {
	sink := &memorySink{name: "csv"}
	queue := &inlineQueue{}
	svc := newTestService(WithSinks(sink), WithQueue(queue))

	entry, err := svc.SaveAsync(context.Background(), exampleRecord("1"))
	require.NoError(t, err)
	assert.Equal(t, int64(564000), entry.Breakdown.FinalAmount)
	assert.Equal(t, []string{JobSinkAppend + ":entry-1"}, queue.jobs)
	assert.Equal(t, 1, sink.count())
}

func TestServiceSaveAsyncWithoutQueueDetaches(t *testing.T) {
	sink := &memorySink{name: "csv", done: make(chan struct{}, 1)}
	svc := newTestService(WithSinks(sink))

	ctx, cancel := context.WithCancel(context.Background())
	entry, err := svc.SaveAsync(ctx, exampleRecord("1"))
	cancel()
	require.NoError(t, err)
	assert.Equal(t, int64(564000), entry.Breakdown.FinalAmount)

	select {
	case <-sink.done:
	case <-time.After(2 * time.Second):
		t.Fatal("sink append did not run")
	}
	assert.Equal(t, 1, sink.count())
}

func TestServiceSinks(t *testing.T) {
	svc := newTestService(WithSinks(&memorySink{name: "a"}, nil, &memorySink{name: "b"}))
	assert.Equal(t, []string{"a", "b"}, svc.Sinks())
}

func TestServiceSetCalculatorSwapsPolicy(t *testing.T) {
	svc := newTestService()
	policy := DefaultPolicy()
	policy.NumericWeight = d("0.5")
	svc.SetCalculator(NewCalculator(policy))
	svc.SetCalculator(nil)

	got, err := svc.Calculate(context.Background(), exampleRecord("1"))
	require.NoError(t, err)
	assertDecimal(t, "0.45", got.NumericScore)
	assert.Equal(t, policy, svc.Calculator().Policy())
}

func TestServiceCalculateConcurrentWithPolicySwap(t *testing.T) {
	defaults := NewCalculator(DefaultPolicy())
	lighter := DefaultPolicy()
	lighter.NumericWeight = d("0.5")
	swapped := NewCalculator(lighter)

	record := exampleRecord("1")
	allowed := []ScoreBreakdown{defaults.Calculate(record), swapped.Calculate(record)}
	assert.Equal(t, int64(564000), allowed[0].FinalAmount)
	assert.Equal(t, int64(510000), allowed[1].FinalAmount)

	svc := newTestService()
	stop := make(chan struct{})
	swapDone := make(chan struct{})
	go func() {
		defer close(swapDone)
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			if i%2 == 0 {
				svc.SetCalculator(swapped)
			} else {
				svc.SetCalculator(defaults)
			}
		}
	}()

	const workers, perWorker = 16, 50
	results := make(chan ScoreBreakdown, workers*perWorker)
	errs := make(chan error, workers*perWorker)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				got, err := svc.Calculate(context.Background(), record)
				if err != nil {
					errs <- err
					continue
				}
				results <- got
			}
		}()
	}
	wg.Wait()
	close(stop)
	<-swapDone
	close(results)
	close(errs)

	for err := range errs {
		t.Errorf("calculate: %v", err)
	}
	count := 0
	for got := range results {
		count++
		assert.Contains(t, allowed, got)
	}
	assert.Equal(t, workers*perWorker, count)
}
