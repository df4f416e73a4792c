// Package app wires configuration into a ready-to-run extraction pipeline.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/joseph-ayodele/invoice-extractor/internal/assemble"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/extract"
	"github.com/joseph-ayodele/invoice-extractor/internal/ingest"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm/openai"
	"github.com/joseph-ayodele/invoice-extractor/internal/metrics"
	"github.com/joseph-ayodele/invoice-extractor/internal/normalize"
	"github.com/joseph-ayodele/invoice-extractor/internal/ocr"
	"github.com/joseph-ayodele/invoice-extractor/internal/pipeline"
	repo "github.com/joseph-ayodele/invoice-extractor/internal/repository"
)

// App holds the wired components. Files and Documents are nil when no store
// is configured.
type App struct {
	Config    *common.Config
	Logger    *slog.Logger
	Registry  *prometheus.Registry
	Metrics   *metrics.Metrics
	DB        *repo.DB
	Files     repo.SourceFileRepository
	Documents repo.DocumentRepository
	Ingestor  *ingest.FSIngestor
	Processor *pipeline.Processor
}

type Option func(*options)

type options struct {
	recognizer ocr.WordRecognizer
	backend    llm.CompletionBackend
	runner     ocr.Runner
}

// WithRecognizer sets the OCR engine for images and scanned PDFs.
func WithRecognizer(r ocr.WordRecognizer) Option {
	return func(o *options) { o.recognizer = r }
}

// WithBackend replaces the OpenAI-compatible client built from config.
func WithBackend(b llm.CompletionBackend) Option {
	return func(o *options) { o.backend = b }
}

func WithRunner(r ocr.Runner) Option {
	return func(o *options) { o.runner = r }
}

func New(ctx context.Context, cfg *common.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{Config: cfg, Logger: logger, Registry: prometheus.NewRegistry()}
	a.Metrics = metrics.New(a.Registry)

	if cfg.Store.DSN != "" {
		db, err := ConnectDB(ctx, cfg.Store, logger)
		if err != nil {
			return nil, err
		}
		a.DB = db
		a.Files = repo.NewSourceFileRepository(db, logger)
		a.Documents = repo.NewDocumentRepository(db, logger)
	}
	a.Ingestor = ingest.NewFSIngestor(a.Files, logger)

	var srcOpts []ocr.Option
	if o.recognizer != nil {
		srcOpts = append(srcOpts, ocr.WithRecognizer(o.recognizer))
	} else {
		logger.Warn("app.ocr.no_recognizer", "hint", "images and scanned PDFs will fail")
	}
	if o.runner != nil {
		srcOpts = append(srcOpts, ocr.WithRunner(o.runner))
	}
	source := ocr.NewExtractor(ocr.Config{
		Pdftoppm: cfg.Source.Pdftoppm,
		Language: cfg.Source.Language,
		DPI:      cfg.Source.DPI,
		MaxPages: cfg.Source.MaxPages,
		Enhance:  cfg.Source.Enhance,
	}, logger, srcOpts...)

	docs, err := a.buildExtractor(o.backend)
	if err != nil {
		a.Close()
		return nil, err
	}

	popts := []pipeline.Option{
		pipeline.WithMetrics(a.Metrics),
		pipeline.WithStrategy(cfg.Extraction.Strategy),
		pipeline.WithConcurrency(cfg.Batch.Concurrency),
		pipeline.WithFileTimeout(cfg.Batch.FileTimeout),
		pipeline.WithLogger(logger),
	}
	if a.Documents != nil {
		popts = append(popts, pipeline.WithStore(a.Documents))
	}
	a.Processor = pipeline.NewProcessor(source, docs, popts...)
	return a, nil
}

func (a *App) buildExtractor(backend llm.CompletionBackend) (*extract.Extractor, error) {
	cfg := a.Config
	if backend == nil && cfg.LLMActive() {
		backend = openai.NewClient(openai.Config{
			APIKey:            cfg.LLM.APIKey,
			BaseURL:           cfg.LLM.BaseURL,
			Model:             cfg.LLM.Model,
			Temperature:       cfg.LLM.Temperature,
			Timeout:           cfg.LLM.Timeout,
			RequestsPerSecond: cfg.LLM.RequestsPerSecond,
			Burst:             cfg.LLM.Burst,
			BreakerFailures:   uint32(max(cfg.LLM.BreakerFailures, 0)),
			BreakerCooldown:   cfg.LLM.BreakerCooldown,
		}, a.Logger)
		a.Logger.Info("app.llm.ready", "model", cfg.LLM.Model)
	}

	var llmStrategy extract.Strategy
	if backend != nil {
		s, err := extract.NewLLMStrategy(backend, llm.PromptOptions{
			DefaultCurrency: cfg.Extraction.DefaultCurrency,
			MaxChars:        cfg.LLM.MaxPromptChars,
		}, a.Logger)
		if err != nil {
			return nil, fmt.Errorf("build llm strategy: %w", err)
		}
		llmStrategy = s
	} else {
		a.Logger.Warn("app.llm.disabled", "hint", "llm requests fall back to regex")
	}

	return extract.NewExtractor(llmStrategy, extract.NewRegexStrategy(),
		extract.WithNormalizer(normalize.Normalizer{DefaultCurrency: cfg.Extraction.DefaultCurrency}),
		extract.WithCache(extract.NewCache(cfg.Extraction.CacheSize)),
		extract.WithMetrics(a.Metrics),
		extract.WithLogger(a.Logger),
	), nil
}

// IngestDirectory hashes every supported file under root and returns the
// metadata of those not seen before.
func (a *App) IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]assemble.Metadata, ingest.DirStats, error) {
	results, stats, err := a.Ingestor.IngestDirectory(ctx, root, skipHidden)
	if err != nil {
		return nil, stats, err
	}
	return ingest.Pending(results), stats, nil
}

// ProcessDirectory ingests root and processes the new files as one batch.
func (a *App) ProcessDirectory(ctx context.Context, root string, skipHidden bool) ([]entity.DocumentRecord, ingest.DirStats, error) {
	metas, stats, err := a.IngestDirectory(ctx, root, skipHidden)
	if err != nil {
		return nil, stats, err
	}
	return a.Processor.ProcessBatch(ctx, metas), stats, nil
}

// IngestFile ingests a single path; ok is false for duplicates.
func (a *App) IngestFile(ctx context.Context, path string) (assemble.Metadata, bool, error) {
	res, err := a.Ingestor.IngestPath(ctx, path)
	if err != nil {
		return assemble.Metadata{}, false, err
	}
	return res.Meta, !res.Deduplicated, nil
}

func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
}
