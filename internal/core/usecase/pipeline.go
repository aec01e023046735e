package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/duuta/ocr-flavors/internal/core/cache"
	"github.com/duuta/ocr-flavors/internal/core/domain"
	"github.com/duuta/ocr-flavors/internal/core/fields"
	"github.com/duuta/ocr-flavors/internal/core/ports"
	"github.com/duuta/ocr-flavors/internal/core/scoring"
	"github.com/duuta/ocr-flavors/internal/infrastructure/llm/ollama"
	"github.com/duuta/ocr-flavors/internal/infrastructure/resilience"
	"github.com/duuta/ocr-flavors/internal/observability/metrics"
)

type ProcessConfig struct {
	ServiceName    string
	ModelTimeout   time.Duration
	MinConfidence  float64
	ScoringEnabled bool
}

// Request carries one document through the pipeline. Params participate in
// the cache key; Prompt overrides the classifier-selected prompt.
type Request struct {
	Filename string
	Data     []byte
	Params   domain.ProcessingParams
	Prompt   string
}

// ProcessDocumentUseCase orchestrates validation, cache lookup,
// classification, protected model extraction, scoring, cache write and
// metrics for a single document.
type ProcessDocumentUseCase struct {
	validator  ports.Validator
	cache      *cache.ResultCache
	classifier ports.DocumentClassifier
	extractor  ports.TextExtractor
	models     []ports.ModelClient
	executor   *resilience.Executor
	results    ports.ResultRepository
	metrics    *metrics.PipelineMetrics
	logger     *slog.Logger
	cfg        ProcessConfig
}

// NewProcessDocumentUseCase wires the pipeline. results may be nil when no
// persistence is configured; everything else is required.
func NewProcessDocumentUseCase(
	validator ports.Validator,
	resultCache *cache.ResultCache,
	classifier ports.DocumentClassifier,
	extractor ports.TextExtractor,
	models []ports.ModelClient,
	executor *resilience.Executor,
	results ports.ResultRepository,
	pipelineMetrics *metrics.PipelineMetrics,
	logger *slog.Logger,
	cfg ProcessConfig,
) *ProcessDocumentUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ModelTimeout <= 0 {
		cfg.ModelTimeout = ollama.DefaultTimeout
	}
	return &ProcessDocumentUseCase{
		validator:  validator,
		cache:      resultCache,
		classifier: classifier,
		extractor:  extractor,
		models:     models,
		executor:   executor,
		results:    results,
		metrics:    pipelineMetrics,
		logger:     logger,
		cfg:        cfg,
	}
}

// Process runs the pipeline for one document. Validation and extraction
// failures are terminal for the request; cache and persistence failures are
// logged and swallowed. Metrics are emitted on every outcome.
func (uc *ProcessDocumentUseCase) Process(ctx context.Context, req Request) (res *domain.ExtractionResult, err error) {
	start := time.Now()
	uc.metrics.StartDocument()
	docType := ""
	defer func() {
		confidence := 0.0
		if res != nil {
			docType = string(res.DocumentType)
			confidence = res.Confidence
		}
		uc.metrics.FinishDocument(uc.cfg.ServiceName, docType, time.Since(start), confidence, err)
	}()

	doc, err := uc.validator.Validate(ctx, req.Data, req.Filename)
	if err != nil {
		return nil, fmt.Errorf("validate document: %w", err)
	}

	if cached := uc.lookupCache(ctx, doc, req.Params); cached != nil {
		return cached, nil
	}

	text, err := uc.extractor.Extract(ctx, doc, req.Data)
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}

	detected := uc.classifier.Classify(text)
	docType = string(detected)
	prompt := req.Prompt
	if prompt == "" {
		prompt = uc.classifier.ExtractionPrompt(detected)
	}

	best, err := uc.extractFields(ctx, doc, req.Data, prompt)
	if err != nil {
		return nil, err
	}

	result := uc.buildResult(doc, detected, best)

	if cacheErr := uc.cache.Set(ctx, doc.Fingerprint, req.Params, result); cacheErr != nil {
		uc.logger.Warn("cache write failed", "fingerprint", doc.Fingerprint, "error", cacheErr)
	}
	uc.persist(ctx, result)

	return result, nil
}

func (uc *ProcessDocumentUseCase) lookupCache(ctx context.Context, doc *domain.Document, params domain.ProcessingParams) *domain.ExtractionResult {
	cached, ok, err := uc.cache.Get(ctx, doc.Fingerprint, params)
	if err != nil {
		// A broken cache degrades to a miss.
		uc.logger.Warn("cache read failed", "fingerprint", doc.Fingerprint, "error", err)
		uc.metrics.ObserveCacheLookup(uc.cfg.ServiceName, false)
		return nil
	}
	uc.metrics.ObserveCacheLookup(uc.cfg.ServiceName, ok)
	if !ok {
		return nil
	}

	cached.FromCache = true
	uc.logger.Info("cache hit", "fingerprint", doc.Fingerprint, "filename", doc.Filename)
	return cached
}

// extractFields queries every configured model under breaker+retry
// protection and selects the best response. With scoring disabled, the first
// model to answer wins.
func (uc *ProcessDocumentUseCase) extractFields(ctx context.Context, doc *domain.Document, data []byte, prompt string) (domain.ModelScore, error) {
	var scores []domain.ModelScore
	var lastErr error

	for _, model := range uc.models {
		payload, callErr := uc.callModel(ctx, model, data, prompt)
		if callErr != nil {
			lastErr = callErr
			uc.logger.Warn("model extraction failed",
				"model", model.Name(),
				"filename", doc.Filename,
				"error", callErr,
			)
			continue
		}

		score := scoring.Score(model.Name(), payload)
		if !uc.cfg.ScoringEnabled {
			return score, nil
		}
		scores = append(scores, score)
	}

	best, ok := scoring.SelectBest(scores, uc.cfg.MinConfidence)
	if !ok {
		if lastErr == nil {
			lastErr = fmt.Errorf("no models configured")
		}
		return domain.ModelScore{}, fmt.Errorf("extract fields for %s: %w", doc.Filename, lastErr)
	}
	return best, nil
}

func (uc *ProcessDocumentUseCase) callModel(ctx context.Context, model ports.ModelClient, data []byte, prompt string) (map[string]any, error) {
	var payload map[string]any
	operation := "generate." + model.Name()

	err := uc.executor.Execute(ctx, operation, func(callCtx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(callCtx, uc.cfg.ModelTimeout)
		defer cancel()

		extracted, callErr := model.ExtractFields(attemptCtx, data, prompt)
		if callErr != nil {
			return callErr
		}
		payload = extracted
		return nil
	}, ollama.ClassifyError)
	if err != nil {
		return nil, ollama.WrapProtectedError(operation, err)
	}
	return payload, nil
}

func (uc *ProcessDocumentUseCase) buildResult(doc *domain.Document, docType domain.DocumentType, best domain.ModelScore) *domain.ExtractionResult {
	schemaValid := true
	if err := fields.Validate(docType, best.Response.Fields); err != nil {
		schemaValid = false
		uc.logger.Debug("extracted payload failed schema check",
			"document_type", docType,
			"model", best.ModelName,
			"error", err,
		)
	}

	return &domain.ExtractionResult{
		ID:           uuid.NewString(),
		Fingerprint:  doc.Fingerprint,
		Filename:     doc.Filename,
		DocumentType: docType,
		ModelName:    best.ModelName,
		Fields:       best.Response.Fields,
		Completeness: best.Completeness,
		Confidence:   best.Confidence,
		Score:        best.Score,
		SchemaValid:  schemaValid,
		ProcessedAt:  time.Now().UTC(),
	}
}

func (uc *ProcessDocumentUseCase) persist(ctx context.Context, res *domain.ExtractionResult) {
	if uc.results == nil {
		return
	}
	if err := uc.results.Save(ctx, res); err != nil {
		uc.logger.Warn("persist result failed", "result_id", res.ID, "error", err)
	}
}
