package extract

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/metrics"
	"github.com/joseph-ayodele/invoice-extractor/internal/normalize"
)

// Extractor runs the requested strategy and always produces a document: an
// LLM failure degrades to the regex strategy, tagged Regex-Fallback.
type Extractor struct {
	llm        Strategy
	regex      Strategy
	normalizer normalize.Normalizer
	cache      *Cache
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

type Option func(*Extractor)

func WithNormalizer(n normalize.Normalizer) Option {
	return func(e *Extractor) { e.normalizer = n }
}

func WithCache(c *Cache) Option {
	return func(e *Extractor) { e.cache = c }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Extractor) { e.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewExtractor wires the two strategies. llmStrategy may be nil when no
// backend is configured; regex defaults to NewRegexStrategy.
func NewExtractor(llmStrategy, regex Strategy, opts ...Option) *Extractor {
	if regex == nil {
		regex = NewRegexStrategy()
	}
	e := &Extractor{
		llm:        llmStrategy,
		regex:      regex,
		normalizer: normalize.Normalizer{DefaultCurrency: constants.DefaultCurrency},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract analyses text with the strategy named by kind ("llm" or "regex").
// It never fails; the provenance of the result is in AnalysisMethod.
func (e *Extractor) Extract(ctx context.Context, text, kind string) entity.ExtractedDocument {
	log := common.LoggerFrom(ctx, e.logger)
	start := time.Now()
	defer func() { e.metrics.ObserveStage("extract", time.Since(start)) }()

	if kind == constants.StrategyLLM && e.cache != nil {
		if doc, ok := e.cache.Get(kind, text); ok {
			e.metrics.ObserveCacheHit()
			log.Info("extract.cache_hit", "method", doc.AnalysisMethod)
			return doc
		}
	}

	out := e.Run(ctx, text, kind)
	doc := e.normalizer.Document(out.Raw, out.Method, out.Confidence)
	e.metrics.ObserveExtraction(doc.AnalysisMethod)

	if kind == constants.StrategyLLM && !out.Degraded && e.cache != nil {
		e.cache.Put(kind, text, doc)
	}

	log.Info("extract.done",
		"kind", kind,
		"method", doc.AnalysisMethod,
		"confidence", doc.Confidence,
		"items", len(doc.Items),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return doc
}

// Run executes the strategy transition without normalizing: the requested
// strategy first, the regex strategy when the LLM one fails or is absent.
func (e *Extractor) Run(ctx context.Context, text, kind string) Outcome {
	log := common.LoggerFrom(ctx, e.logger)

	if kind != constants.StrategyLLM {
		if kind != constants.StrategyRegex {
			log.Warn("extract.unknown_strategy", "kind", kind)
		}
		return e.runRegex(ctx, text, false, "")
	}

	if e.llm == nil {
		return e.degrade(ctx, text, ReasonDisabled, nil)
	}

	out, err := e.llm.Extract(ctx, text)
	if err != nil {
		return e.degrade(ctx, text, fallbackReason(err), err)
	}
	return out
}

func (e *Extractor) degrade(ctx context.Context, text, reason string, cause error) Outcome {
	common.LoggerFrom(ctx, e.logger).Warn("extract.fallback", "reason", reason, "error", cause)
	e.metrics.ObserveFallback(reason)
	return e.runRegex(ctx, text, true, reason)
}

func (e *Extractor) runRegex(ctx context.Context, text string, degraded bool, reason string) Outcome {
	out, err := e.regex.Extract(ctx, text)
	if err != nil {
		// a custom regex strategy misbehaved; keep the no-failure contract
		common.LoggerFrom(ctx, e.logger).Error("extract.regex_failed", "error", err)
		out = Outcome{Raw: map[string]any{}, Confidence: 0}
	}
	out.Method = constants.MethodRegex
	if degraded {
		out.Method = constants.MethodRegexFallback
		out.Degraded = true
		out.Reason = reason
	}
	return out
}
