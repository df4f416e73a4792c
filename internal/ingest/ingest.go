package ingest

import (
	"context"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/internal/assemble"
)

// IngestionResult is the per-file ingest outcome.
type IngestionResult struct {
	SourcePath   string
	Deduplicated bool
	HashHex      string
	FileExt      string
	UploadedAt   time.Time
	Meta         assemble.Metadata
	Err          string
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// Ingestor is the behavior the pipeline depends on.
type Ingestor interface {
	// IngestPath a single path.
	IngestPath(ctx context.Context, path string) (IngestionResult, error)
	// IngestDirectory ingests all matching files under root.
	IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]IngestionResult, DirStats, error)
}

// Pending returns the metadata of results that still need processing: ingested
// without error and not a duplicate of an earlier file.
func Pending(results []IngestionResult) []assemble.Metadata {
	out := make([]assemble.Metadata, 0, len(results))
	for _, r := range results {
		if r.Err != "" || r.Deduplicated {
			continue
		}
		out = append(out, r.Meta)
	}
	return out
}
