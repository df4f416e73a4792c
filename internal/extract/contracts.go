package extract

import (
	"context"
)

// Strategy turns reconstructed document text into a raw field map. The map is
// loosely typed; callers pass it through normalize.Document.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, text string) (Outcome, error)
}

// Outcome is the result of one strategy run.
type Outcome struct {
	Raw        map[string]any
	Method     string
	Confidence float64
	// Degraded is set when the requested strategy failed and another one
	// produced Raw. Reason says why.
	Degraded bool
	Reason   string
}

// Fallback reasons.
const (
	ReasonBackend     = "backend"
	ReasonUnparseable = "unparseable"
	ReasonDisabled    = "disabled"
)
