package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/assemble"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/layout"
	"github.com/joseph-ayodele/invoice-extractor/internal/metrics"
	"github.com/joseph-ayodele/invoice-extractor/internal/ocr"
)

// SourceExtractor reads a file into positioned elements or raw text.
type SourceExtractor interface {
	Extract(ctx context.Context, path string) (ocr.ExtractionResult, error)
}

// DocumentExtractor turns reconstructed text into a normalized document. It
// never fails.
type DocumentExtractor interface {
	Extract(ctx context.Context, text, kind string) entity.ExtractedDocument
}

// RecordStore persists assembled records.
type RecordStore interface {
	Save(ctx context.Context, rec entity.DocumentRecord) error
}

// Processor coordinates source extraction, layout reconstruction, field
// extraction and record assembly for one file at a time.
type Processor struct {
	source      SourceExtractor
	docs        DocumentExtractor
	store       RecordStore
	metrics     *metrics.Metrics
	layout      layout.Options
	kind        string
	concurrency int
	fileTimeout time.Duration
	logger      *slog.Logger
}

type Option func(*Processor)

func WithStore(s RecordStore) Option {
	return func(p *Processor) { p.store = s }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Processor) { p.metrics = m }
}

func WithLayoutOptions(o layout.Options) Option {
	return func(p *Processor) { p.layout = o }
}

// WithStrategy selects "llm" or "regex" extraction.
func WithStrategy(kind string) Option {
	return func(p *Processor) {
		if kind != "" {
			p.kind = kind
		}
	}
}

func WithConcurrency(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

func WithFileTimeout(d time.Duration) Option {
	return func(p *Processor) {
		if d > 0 {
			p.fileTimeout = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) {
		if l != nil {
			p.logger = l
		}
	}
}

func NewProcessor(source SourceExtractor, docs DocumentExtractor, opts ...Option) *Processor {
	p := &Processor{
		source:      source,
		docs:        docs,
		layout:      layout.DefaultOptions(),
		kind:        constants.StrategyLLM,
		concurrency: 4,
		fileTimeout: 3 * time.Minute,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessFile produces the record for one file. An unreadable source yields a
// FAILED record, not an error; the error is only set when the record could not
// be stored.
func (p *Processor) ProcessFile(ctx context.Context, meta assemble.Metadata) (entity.DocumentRecord, error) {
	ctx, _ = common.EnsureRequestID(ctx)
	log := common.LoggerFrom(ctx, p.logger).With("file", meta.FileName)
	if p.fileTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.fileTimeout)
		defer cancel()
	}
	start := time.Now()

	res, err := p.source.Extract(ctx, meta.SourcePath)
	p.metrics.ObserveStage("source", time.Since(start))
	if meta.Format == "" {
		meta.Format = res.SourceType
	}
	if err != nil {
		log.Error("pipeline.file.failed", "path", meta.SourcePath, "error", err)
		rec := assemble.Failed(meta, err)
		p.metrics.ObserveDocument(string(rec.Status), string(meta.Format))
		return rec, p.save(ctx, rec)
	}

	text := p.reconstruct(res)
	doc := p.docs.Extract(ctx, text, p.kind)
	rec := assemble.Assemble(meta, doc, text, res.Method)
	p.metrics.ObserveDocument(string(rec.Status), string(meta.Format))

	log.Info("pipeline.file.ok",
		"record_id", rec.ID,
		"source_method", res.Method,
		"analysis_method", doc.AnalysisMethod,
		"document_type", doc.DocumentType,
		"confidence", doc.Confidence,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return rec, p.save(ctx, rec)
}

// reconstruct linearizes positioned elements; sources without geometry pass
// their raw text through.
func (p *Processor) reconstruct(res ocr.ExtractionResult) string {
	if !res.HasGeometry() {
		return res.RawText
	}
	start := time.Now()
	defer func() { p.metrics.ObserveStage("reconstruct", time.Since(start)) }()
	return layout.ReconstructWithOptions(layout.Clean(res.Elements), p.layout)
}

func (p *Processor) save(ctx context.Context, rec entity.DocumentRecord) error {
	if p.store == nil {
		return nil
	}
	if err := p.store.Save(ctx, rec); err != nil {
		common.LoggerFrom(ctx, p.logger).Error("pipeline.store.failed", "record_id", rec.ID, "error", err)
		return err
	}
	return nil
}

func (p *Processor) tasks(metas []assemble.Metadata) []Task[entity.DocumentRecord] {
	tasks := make([]Task[entity.DocumentRecord], len(metas))
	for i, meta := range metas {
		tasks[i] = func(ctx context.Context) (entity.DocumentRecord, error) {
			return p.ProcessFile(ctx, meta)
		}
	}
	return tasks
}

// ProcessBatch processes every file concurrently and returns one record per
// input, in input order. A task that panicked or was cancelled gets a FAILED
// record; store errors are logged but keep the record.
func (p *Processor) ProcessBatch(ctx context.Context, metas []assemble.Metadata) []entity.DocumentRecord {
	ctx = p.batchContext(ctx, len(metas))
	outcomes := RunAll(ctx, p.concurrency, p.tasks(metas))
	records := make([]entity.DocumentRecord, len(outcomes))
	for i, o := range outcomes {
		records[i] = p.settleRecord(metas[i], o)
	}
	p.logBatch(ctx, records)
	return records
}

// StreamBatch is ProcessBatch with records delivered as they complete.
func (p *Processor) StreamBatch(ctx context.Context, metas []assemble.Metadata) <-chan Event[entity.DocumentRecord] {
	ctx = p.batchContext(ctx, len(metas))
	in := Stream(ctx, p.concurrency, p.tasks(metas))
	out := make(chan Event[entity.DocumentRecord])
	go func() {
		defer close(out)
		for ev := range in {
			if !ev.Done {
				ev.Outcome.Value = p.settleRecord(metas[ev.Outcome.Index], ev.Outcome)
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func (p *Processor) settleRecord(meta assemble.Metadata, o Outcome[entity.DocumentRecord]) entity.DocumentRecord {
	// a record with an id was assembled; the error can only come from the store
	if o.Value.ID != uuid.Nil {
		return o.Value
	}
	if o.Err != nil {
		return assemble.Failed(meta, o.Err)
	}
	return o.Value
}

func (p *Processor) batchContext(ctx context.Context, n int) context.Context {
	if common.BatchIDFromContext(ctx) != "" {
		return ctx
	}
	batchID := uuid.NewString()
	p.logger.Info("pipeline.batch.start", "batch_id", batchID, "files", n, "concurrency", p.concurrency, "strategy", p.kind)
	return common.WithBatchID(ctx, batchID)
}

func (p *Processor) logBatch(ctx context.Context, records []entity.DocumentRecord) {
	var failed, fallback int
	for _, r := range records {
		if r.Failed() {
			failed++
		}
		if r.Document.AnalysisMethod == constants.MethodRegexFallback {
			fallback++
		}
	}
	common.LoggerFrom(ctx, p.logger).Info("pipeline.batch.done",
		"files", len(records),
		"failed", failed,
		"fallback", fallback,
	)
}
