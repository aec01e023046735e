package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/duuta/ocr-flavors/internal/config"
	"github.com/duuta/ocr-flavors/internal/core/cache"
	"github.com/duuta/ocr-flavors/internal/core/classify"
	"github.com/duuta/ocr-flavors/internal/core/ports"
	"github.com/duuta/ocr-flavors/internal/core/usecase"
	"github.com/duuta/ocr-flavors/internal/export"
	memorycache "github.com/duuta/ocr-flavors/internal/infrastructure/cache/memory"
	rediscache "github.com/duuta/ocr-flavors/internal/infrastructure/cache/redis"
	"github.com/duuta/ocr-flavors/internal/infrastructure/extractor"
	pdfextractor "github.com/duuta/ocr-flavors/internal/infrastructure/extractor/pdf"
	"github.com/duuta/ocr-flavors/internal/infrastructure/extractor/plaintext"
	"github.com/duuta/ocr-flavors/internal/infrastructure/llm/ollama"
	"github.com/duuta/ocr-flavors/internal/infrastructure/queue/nats"
	"github.com/duuta/ocr-flavors/internal/infrastructure/repository/postgres"
	"github.com/duuta/ocr-flavors/internal/infrastructure/resilience"
	"github.com/duuta/ocr-flavors/internal/infrastructure/storage/localfs"
	"github.com/duuta/ocr-flavors/internal/infrastructure/validator"
	"github.com/duuta/ocr-flavors/internal/observability/metrics"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Storage   ports.ObjectStorage
	Results   ports.ResultRepository
	Queue     ports.MessageQueue
	Metrics   *metrics.PipelineMetrics
	ProcessUC *usecase.ProcessDocumentUseCase
	Export    *export.Service

	db      *sql.DB
	closeFn func()
}

// Options toggles the pieces a given entrypoint actually needs. The CLI
// runs without a queue; the worker requires one.
type Options struct {
	WithQueue bool
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	fileValidator := validator.New(0, nil)

	var store ports.CacheStore
	switch cfg.CacheBackend {
	case "redis":
		store = rediscache.New(cfg.RedisAddr, "", cfg.RedisDB)
	default:
		store = memorycache.New()
	}
	resultCache := cache.New(store, cfg.CacheTTL)

	classifier, err := buildClassifier(cfg.ClassifierRulesPath)
	if err != nil {
		return nil, fmt.Errorf("init classifier: %w", err)
	}

	models := make([]ports.ModelClient, 0, len(cfg.Models))
	for _, m := range cfg.Models {
		models = append(models, ollama.New(m.Name, m.URL, cfg.ModelTimeout, cfg.ModelRPS))
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("init models: no model endpoints configured")
	}

	// Image documents go through the first configured vision model.
	router := extractor.NewRouter(plaintext.NewExtractor(), pdfextractor.NewExtractor(), models[0])

	executor := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:        cfg.RetryMaxAttempts,
		RetryBaseDelay:          cfg.RetryBaseDelay,
		RetryMaxDelay:           cfg.RetryMaxDelay,
		BreakerEnabled:          cfg.BreakerEnabled,
		BreakerFailureThreshold: cfg.BreakerFailureThreshold,
		BreakerRecoveryTimeout:  cfg.BreakerRecoveryTimeout,
	})

	var (
		db       *sql.DB
		results  ports.ResultRepository
		exporter *export.Service
	)
	if cfg.PostgresDSN != "" {
		db, err = postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		repo := postgres.NewResultRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		results = repo
		exporter = export.NewService(repo, logger)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		closeDB(db)
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	var queue *nats.Queue
	if opts.WithQueue {
		queue, err = nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			ResilienceExecutor: executor,
		})
		if err != nil {
			closeDB(db)
			return nil, fmt.Errorf("init message queue: %w", err)
		}
	}

	pipelineMetrics := metrics.NewPipelineMetrics(cfg.ServiceName, logger)

	processUC := usecase.NewProcessDocumentUseCase(
		fileValidator,
		resultCache,
		classifier,
		router,
		models,
		executor,
		results,
		pipelineMetrics,
		logger,
		usecase.ProcessConfig{
			ServiceName:    cfg.ServiceName,
			ModelTimeout:   cfg.ModelTimeout,
			MinConfidence:  cfg.MinConfidence,
			ScoringEnabled: cfg.ScoringEnabled,
		},
	)

	app := &App{
		Config:    cfg,
		Logger:    logger,
		Storage:   storage,
		Results:   results,
		Metrics:   pipelineMetrics,
		ProcessUC: processUC,
		Export:    exporter,
		db:        db,
		closeFn: func() {
			if queue != nil {
				queue.Close()
			}
			closeDB(db)
		},
	}
	if queue != nil {
		app.Queue = queue
	}
	return app, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func buildClassifier(rulesPath string) (ports.DocumentClassifier, error) {
	if rulesPath == "" {
		return classify.New(), nil
	}
	return classify.NewFromFile(rulesPath)
}

func closeDB(db *sql.DB) {
	if db != nil {
		_ = db.Close()
	}
}
