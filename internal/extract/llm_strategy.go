package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm"
)

// LLMStrategy asks a structured-completion backend for the document fields.
type LLMStrategy struct {
	backend   llm.CompletionBackend
	validator *llm.SchemaValidator
	prompt    llm.PromptOptions
	logger    *slog.Logger
}

func NewLLMStrategy(backend llm.CompletionBackend, prompt llm.PromptOptions, logger *slog.Logger) (*LLMStrategy, error) {
	if backend == nil {
		return nil, fmt.Errorf("llm strategy: backend is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if prompt.MaxChars <= 0 {
		prompt.MaxChars = constants.MaxPromptChars
	}
	validator, err := llm.NewSchemaValidator(llm.BuildDocumentJSONSchema())
	if err != nil {
		return nil, fmt.Errorf("llm strategy: %w", err)
	}
	return &LLMStrategy{
		backend:   backend,
		validator: validator,
		prompt:    prompt,
		logger:    logger,
	}, nil
}

func (s *LLMStrategy) Name() string { return constants.StrategyLLM }

// Extract sends the truncated text to the backend. A clean JSON answer gets
// ConfidenceLLMClean; one that needed brace recovery or fails the schema gets
// ConfidenceLLMRecovered. Transport and parse failures are returned as errors.
func (s *LLMStrategy) Extract(ctx context.Context, text string) (Outcome, error) {
	log := common.LoggerFrom(ctx, s.logger)
	start := time.Now()

	req := llm.CompletionRequest{
		System:         llm.BuildSystemPrompt(s.prompt),
		User:           llm.BuildUserPrompt(text, "", s.prompt),
		ResponseFormat: llm.ResponseFormatJSON,
	}

	content, err := s.backend.Complete(ctx, req)
	if err != nil {
		return Outcome{}, common.BackendFailure("completion", err)
	}

	raw, recovered, err := llm.ParseJSONObject(content)
	if err != nil {
		log.Warn("llm.extract.unparseable", "error", err, "content_len", len(content))
		return Outcome{}, common.BackendFailure("parse completion", err)
	}

	confidence := constants.ConfidenceLLMClean
	if recovered {
		confidence = constants.ConfidenceLLMRecovered
		log.Warn("llm.extract.recovered_json", "content_len", len(content))
	}

	llm.NormalizeAndSanitize(raw, log)
	if err := s.validator.Validate(raw); err != nil {
		log.Warn("llm.extract.schema_validation_failed", "error", err)
		confidence = min(confidence, constants.ConfidenceLLMRecovered)
	}

	log.Info("llm.extract.ok",
		"recovered", recovered,
		"confidence", confidence,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return Outcome{Raw: raw, Method: constants.MethodLLM, Confidence: confidence}, nil
}

// fallbackReason classifies an LLM strategy error for logs and metrics.
func fallbackReason(err error) string {
	if errors.Is(err, common.ErrUnparseableResponse) {
		return ReasonUnparseable
	}
	return ReasonBackend
}
