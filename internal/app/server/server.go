package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"bonussim/internal/domain/bonus"
	"bonussim/internal/platform/config"
	"bonussim/internal/platform/db"
	"bonussim/internal/platform/jobs"
	"bonussim/internal/platform/metrics"
	"bonussim/internal/platform/sink"
	bonushandler "bonussim/internal/transport/http/handlers/bonus"
	"bonussim/internal/transport/http/middleware"
	"bonussim/migrations"
)

// App holds the wired dependencies shared by the HTTP server and the CLI.
type App struct {
	Config  config.Config
	Log     *zap.Logger
	DB      *pgxpool.Pool
	Scoring *config.ScoringHolder
	Store   bonus.StoreAPI
	Service *bonus.Service
	Jobs    *jobs.Service
	Metrics *metrics.Collector

	stopJobs  context.CancelFunc
	closeOnce sync.Once
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	app := &App{Config: cfg, Log: log, Metrics: metrics.New()}

	scoring, err := config.LoadScoring(cfg.ScoringFile)
	if err != nil {
		return nil, err
	}
	app.Scoring = scoring
	policy, err := scoring.Get().Policy()
	if err != nil {
		return nil, err
	}

	if cfg.DatabaseURL != "" {
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("db connect failed: %w", err)
		}
		app.DB = pool
		if cfg.RunMigrations {
			applied, err := db.Migrate(ctx, pool, migrations.FS)
			if err != nil {
				pool.Close()
				return nil, fmt.Errorf("migrations failed: %w", err)
			}
			if len(applied) > 0 {
				log.Info("migrations applied", zap.Strings("versions", applied))
			}
		}
		app.Store = bonus.NewStore(pool)
	}

	sinks, err := buildSinks(ctx, cfg, app.Store)
	if err != nil {
		app.Close()
		return nil, err
	}

	app.Jobs = jobs.New(app.DB, log, cfg.JobQueueSize, app.Metrics.JobDropped)
	jobsCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	app.stopJobs = cancel
	app.Jobs.Start(jobsCtx)

	opts := []bonus.Option{
		bonus.WithSinks(sinks...),
		bonus.WithSinkTimeout(cfg.SinkTimeout),
		bonus.WithRecorder(app.Metrics),
	}
	if cfg.SinkAsync {
		opts = append(opts, bonus.WithQueue(app.Jobs))
	}
	app.Service = bonus.NewService(bonus.NewCalculator(policy), log, opts...)

	scoring.Watch(log, func(updated config.Scoring) {
		p, err := updated.Policy()
		if err != nil {
			return
		}
		app.Service.SetCalculator(bonus.NewCalculator(p))
	})

	log.Info("bonus service ready",
		zap.Strings("sinks", app.Service.Sinks()),
		zap.String("rounding", policy.Rounding),
		zap.Bool("asyncSinks", cfg.SinkAsync),
	)
	return app, nil
}

func buildSinks(ctx context.Context, cfg config.Config, store bonus.StoreAPI) ([]bonus.RecordSink, error) {
	var sinks []bonus.RecordSink
	if store != nil {
		sinks = append(sinks, store)
	}
	if cfg.CSVSinkPath != "" {
		sinks = append(sinks, sink.NewCSVFile(cfg.CSVSinkPath))
	}
	if cfg.SheetsSpreadsheetID != "" {
		sheets, err := sink.NewSheets(ctx, sink.SheetsConfig{
			SpreadsheetID:   cfg.SheetsSpreadsheetID,
			Range:           cfg.SheetsRange,
			CredentialsFile: cfg.SheetsCredentialsFile,
			Endpoint:        cfg.SheetsEndpoint,
		})
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, sheets)
	}
	return sinks, nil
}

func (a *App) adjustmentBounds() (decimal.Decimal, decimal.Decimal) {
	return a.Scoring.Get().AdjustmentBounds()
}

func (a *App) Router() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(a.Log, a.Metrics))
	router.Use(chimw.Recoverer)
	router.Use(middleware.SecureHeaders(a.Config.Environment == "production"))
	router.Use(middleware.BodyLimit(a.Config.MaxBodyBytes))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if a.DB != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := a.DB.Ping(ctx); err != nil {
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if a.Config.MetricsEnabled {
		router.Method(http.MethodGet, "/metrics", a.Metrics.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		bonusHandler := bonushandler.NewHandler(a.Service, a.Store, a.adjustmentBounds, a.Config.SinkAsync, a.Log)
		bonusHandler.RegisterRoutes(r)
	})

	return router
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.Config.Addr,
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Log.Info("bonus simulator listening", zap.String("addr", a.Config.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// Close stops the job worker after it has drained queued sink appends, then
// releases the database pool.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		if a.stopJobs != nil {
			a.stopJobs()
			a.Jobs.Wait()
		}
		if a.DB != nil {
			a.DB.Close()
		}
		_ = a.Log.Sync()
	})
}
