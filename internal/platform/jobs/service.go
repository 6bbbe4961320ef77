package jobs

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const defaultQueueSize = 128

type DropHook func(jobType string)

// Service runs background work on a single worker. When a pool is set, each
// run is recorded in job_runs.
type Service struct {
	DB     *pgxpool.Pool
	log    *zap.Logger
	queue  chan job
	onDrop DropHook
	wg     sync.WaitGroup
}

type job struct {
	Type string
	Key  string
	Run  func(context.Context) (any, error)
}

func New(db *pgxpool.Pool, log *zap.Logger, size int, onDrop DropHook) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if size <= 0 {
		size = defaultQueueSize
	}
	return &Service{
		DB:     db,
		log:    log,
		queue:  make(chan job, size),
		onDrop: onDrop,
	}
}

func (s *Service) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.worker(ctx)
	}()
}

// Wait blocks until the worker has exited after its context ended.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) Enqueue(jobType, key string, run func(context.Context) (any, error)) {
	select {
	case s.queue <- job{Type: jobType, Key: key, Run: run}:
	default:
		s.log.Warn("job queue full", zap.String("jobType", jobType), zap.String("key", key))
		if s.onDrop != nil {
			s.onDrop(jobType)
		}
	}
}

func (s *Service) RunNow(ctx context.Context, jobType, key string, run func(context.Context) (any, error)) (any, error) {
	return s.runJob(ctx, job{Type: jobType, Key: key, Run: run})
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.drain()
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				s.log.Warn("job run failed", zap.String("jobType", j.Type), zap.String("key", j.Key), zap.Error(err))
			}
		}
	}
}

// drain runs whatever was queued before shutdown so accepted appends are not lost.
func (s *Service) drain() {
	ctx := context.Background()
	for {
		select {
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				s.log.Warn("job run failed during drain", zap.String("jobType", j.Type), zap.String("key", j.Key), zap.Error(err))
			}
		default:
			return
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	var runID int64
	if s.DB != nil {
		if err := s.DB.QueryRow(ctx, `
      INSERT INTO job_runs (job_type, job_key, status)
      VALUES ($1,$2,$3)
      RETURNING id
    `, j.Type, j.Key, "running").Scan(&runID); err != nil {
			s.log.Warn("job run insert failed", zap.Error(err))
		}
	}

	details, err := j.Run(ctx)
	status := "completed"
	if err != nil {
		status = "failed"
	}
	if runID != 0 {
		detailsJSON, marshalErr := json.Marshal(details)
		if marshalErr != nil {
			s.log.Warn("job details marshal failed", zap.Error(marshalErr))
			detailsJSON = []byte("{}")
		}
		if _, updErr := s.DB.Exec(ctx, `
      UPDATE job_runs
      SET status = $1, details_json = $2, completed_at = now()
      WHERE id = $3
    `, status, detailsJSON, runID); updErr != nil {
			s.log.Warn("job run update failed", zap.Error(updErr))
		}
	}
	return details, err
}
