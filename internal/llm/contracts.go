package llm

import "context"

// ResponseFormatJSON asks the backend for a single JSON object.
const ResponseFormatJSON = "json"

// CompletionRequest is one structured-completion call.
type CompletionRequest struct {
	System         string
	User           string
	ResponseFormat string
}

// CompletionBackend is the structured-completion capability the LLM strategy
// depends on. It returns the raw model text, expected (not guaranteed) to be JSON.
type CompletionBackend interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// CompletionFunc adapts a function to CompletionBackend.
type CompletionFunc func(ctx context.Context, req CompletionRequest) (string, error)

func (f CompletionFunc) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	return f(ctx, req)
}
