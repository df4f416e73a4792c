package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm"
)

type chatCompletion struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete implements llm.CompletionBackend with a single chat/completions call.
// Calls are rate limited and pass through a circuit breaker; an open breaker
// fails fast with common.ErrBackendUnavailable.
func (c *Client) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	start := time.Now()
	rid := common.RequestIDFromContext(ctx)

	c.logger.Info("llm.complete.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"system_len", len(req.System),
		"user_len", len(req.User),
	)

	if err := c.limiter.Wait(ctx); err != nil {
		return "", common.BackendFailure("rate limiter wait", err)
	}

	content, err := c.breaker.Execute(func() (string, error) {
		return c.send(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.logger.Warn("llm.complete.breaker_rejected", "req_id", rid, "state", c.breaker.State().String())
			return "", common.BackendFailure("circuit open", errors.Join(common.ErrBackendUnavailable, err))
		}
		c.logger.Error("llm.complete.failed",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", err
	}

	c.logger.Info("llm.complete.ok",
		"req_id", rid,
		"content_len", len(content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return content, nil
}

func (c *Client) send(ctx context.Context, req llm.CompletionRequest) (string, error) {
	body := map[string]any{
		"model":       c.cfg.Model,
		"temperature": c.cfg.Temperature,
		"messages": []map[string]any{
			{"role": "system", "content": req.System},
			{"role": "user", "content": req.User},
		},
	}
	if req.ResponseFormat == llm.ResponseFormatJSON {
		body["response_format"] = map[string]any{"type": "json_object"}
	}

	headers := map[string]string{}
	if c.cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + c.cfg.APIKey
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	raw, err := llm.PostJSON(ctx, c.http, endpoint, body, headers, c.logger)
	if err != nil {
		var statusErr *llm.StatusError
		if errors.As(err, &statusErr) && statusErr.Retryable() {
			c.logger.Warn("llm.complete.transient", "status", statusErr.StatusCode)
		}
		return "", common.BackendFailure("chat completions request", err)
	}

	var cc chatCompletion
	if err := json.Unmarshal(raw, &cc); err != nil {
		return "", common.BackendFailure("decode chat completion", err)
	}
	if len(cc.Choices) == 0 {
		return "", common.BackendFailure("no choices in response", common.ErrUnparseableResponse)
	}
	content := strings.TrimSpace(cc.Choices[0].Message.Content)
	if content == "" {
		return "", common.BackendFailure("empty completion", fmt.Errorf("%w: empty content", common.ErrUnparseableResponse))
	}
	return content, nil
}
