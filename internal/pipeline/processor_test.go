package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/assemble"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/extract"
	"github.com/joseph-ayodele/invoice-extractor/internal/layout"
	"github.com/joseph-ayodele/invoice-extractor/internal/metrics"
	"github.com/joseph-ayodele/invoice-extractor/internal/ocr"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeSource serves canned adapter results by path; unknown paths fail.
type fakeSource map[string]ocr.ExtractionResult

func (f fakeSource) Extract(ctx context.Context, path string) (ocr.ExtractionResult, error) {
	res, ok := f[path]
	if !ok {
		return ocr.ExtractionResult{SourceType: constants.FormatPDF}, common.AdapterFailure("open "+path, errors.New("no such file"))
	}
	return res, nil
}

type memStore struct {
	mu   sync.Mutex
	recs []entity.DocumentRecord
	err  error
}

func (s *memStore) Save(ctx context.Context, rec entity.DocumentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.recs = append(s.recs, rec)
	return nil
}

func el(text string, x, y, w float64) layout.Element {
	return layout.Element{Text: text, X: x, Y: y, Width: w, Height: 10, Page: 1}
}

func scannedInvoice() ocr.ExtractionResult {
	return ocr.ExtractionResult{
		Elements: []layout.Element{
			el("119,00", 200, 20, 40),
			el("Rechnung", 0, 0, 60),
			el("Nr.", 70, 0, 20),
			el("R-77", 100, 0, 30),
			el("Gesamtbetrag", 0, 20, 80),
		},
		RawText:    "unused when geometry is present",
		SourceType: constants.FormatImage,
		Method:     "image-ocr",
	}
}

func plainQuote() ocr.ExtractionResult {
	return ocr.ExtractionResult{
		RawText:    "Angebot Nr. A-5\nSumme 50,00",
		SourceType: constants.FormatText,
		Method:     "text",
	}
}

func newTestProcessor(src SourceExtractor, opts ...Option) *Processor {
	docs := extract.NewExtractor(nil, nil, extract.WithLogger(quietLogger()))
	base := []Option{WithStrategy(constants.StrategyRegex), WithLogger(quietLogger())}
	return NewProcessor(src, docs, append(base, opts...)...)
}

func meta(path string) assemble.Metadata {
	return assemble.Metadata{FileName: path, SourcePath: "/in/" + path, UploadedAt: time.Now().UTC()}
}

func TestProcessFile_ReconstructsAndExtracts(t *testing.T) {
	p := newTestProcessor(fakeSource{"/in/scan.png": scannedInvoice()})

	rec, err := p.ProcessFile(context.Background(), meta("scan.png"))

	require.NoError(t, err)
	assert.False(t, rec.Failed())
	assert.Equal(t, "Rechnung Nr. R-77\nGesamtbetrag\t119,00", rec.ReconstructedText)
	assert.Equal(t, "image-ocr", rec.SourceMethod)
	assert.Equal(t, constants.FormatImage, rec.Format, "format is taken from the adapter when unknown")
	assert.Equal(t, constants.DocumentInvoice, rec.Document.DocumentType)
	require.NotNil(t, rec.Document.DocumentNumber)
	assert.Equal(t, "R-77", *rec.Document.DocumentNumber)
	require.NotNil(t, rec.Document.Totals.TotalAmount)
	assert.Equal(t, 119.0, *rec.Document.Totals.TotalAmount)
	assert.Equal(t, constants.MethodRegex, rec.Document.AnalysisMethod)
}

func TestProcessFile_RawTextPassesThrough(t *testing.T) {
	p := newTestProcessor(fakeSource{"/in/quote.txt": plainQuote()})

	rec, err := p.ProcessFile(context.Background(), meta("quote.txt"))

	require.NoError(t, err)
	assert.Equal(t, "Angebot Nr. A-5\nSumme 50,00", rec.ReconstructedText)
	assert.Equal(t, constants.DocumentQuote, rec.Document.DocumentType)
}

func TestProcessFile_LLMWithoutBackendFallsBack(t *testing.T) {
	docs := extract.NewExtractor(nil, nil, extract.WithLogger(quietLogger()))
	p := NewProcessor(fakeSource{"/in/quote.txt": plainQuote()}, docs, WithLogger(quietLogger()))

	rec, err := p.ProcessFile(context.Background(), meta("quote.txt"))

	require.NoError(t, err)
	assert.Equal(t, constants.MethodRegexFallback, rec.Document.AnalysisMethod)
}

func TestProcessFile_AdapterFailureYieldsFailedRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	store := &memStore{}
	p := newTestProcessor(fakeSource{}, WithStore(store), WithMetrics(m))

	rec, err := p.ProcessFile(context.Background(), meta("missing.pdf"))

	require.NoError(t, err)
	assert.True(t, rec.Failed())
	require.NotNil(t, rec.ErrorMessage)
	assert.Contains(t, *rec.ErrorMessage, "no such file")
	assert.Equal(t, 0.0, rec.Document.Confidence)
	assert.Empty(t, rec.Document.Items)
	require.Len(t, store.recs, 1)
	assert.Equal(t, rec.ID, store.recs[0].ID)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Documents.WithLabelValues("FAILED", "PDF")))
}

func TestProcessFile_StoreErrorKeepsRecord(t *testing.T) {
	boom := errors.New("disk full")
	p := newTestProcessor(fakeSource{"/in/quote.txt": plainQuote()}, WithStore(&memStore{err: boom}))

	rec, err := p.ProcessFile(context.Background(), meta("quote.txt"))

	assert.ErrorIs(t, err, boom)
	assert.False(t, rec.Failed())
	assert.Equal(t, "Angebot Nr. A-5\nSumme 50,00", rec.ReconstructedText)
}

func TestProcessBatch_OneFailureDoesNotAffectOthers(t *testing.T) {
	p := newTestProcessor(fakeSource{
		"/in/scan.png":  scannedInvoice(),
		"/in/quote.txt": plainQuote(),
	}, WithConcurrency(3))

	recs := p.ProcessBatch(context.Background(), []assemble.Metadata{
		meta("scan.png"), meta("broken.pdf"), meta("quote.txt"),
	})

	require.Len(t, recs, 3)
	assert.Equal(t, "scan.png", recs[0].FileName)
	assert.False(t, recs[0].Failed())
	assert.Equal(t, "broken.pdf", recs[1].FileName)
	assert.True(t, recs[1].Failed())
	assert.Equal(t, "quote.txt", recs[2].FileName)
	assert.False(t, recs[2].Failed())
	assert.Equal(t, constants.DocumentQuote, recs[2].Document.DocumentType)
}

func TestProcessBatch_StoreErrorStillReturnsRecord(t *testing.T) {
	p := newTestProcessor(fakeSource{"/in/quote.txt": plainQuote()}, WithStore(&memStore{err: errors.New("locked")}))

	recs := p.ProcessBatch(context.Background(), []assemble.Metadata{meta("quote.txt")})

	require.Len(t, recs, 1)
	assert.False(t, recs[0].Failed())
}

func TestStreamBatch_DeliversRecordsThenDone(t *testing.T) {
	p := newTestProcessor(fakeSource{
		"/in/scan.png":  scannedInvoice(),
		"/in/quote.txt": plainQuote(),
	})
	metas := []assemble.Metadata{meta("scan.png"), meta("broken.pdf"), meta("quote.txt")}

	var records []entity.DocumentRecord
	var done bool
	for ev := range p.StreamBatch(context.Background(), metas) {
		if ev.Done {
			done = true
			assert.Equal(t, 3, ev.Completed)
			continue
		}
		assert.Equal(t, metas[ev.Outcome.Index].FileName, ev.Outcome.Value.FileName)
		records = append(records, ev.Outcome.Value)
	}

	assert.True(t, done)
	require.Len(t, records, 3)
	var failed int
	for _, r := range records {
		if r.Failed() {
			failed++
		}
	}
	assert.Equal(t, 1, failed)
}

func TestQueue_ProcessesEnqueuedFilesUntilShutdown(t *testing.T) {
	p := newTestProcessor(fakeSource{
		"/in/scan.png":  scannedInvoice(),
		"/in/quote.txt": plainQuote(),
	})
	var mu sync.Mutex
	var got []string
	q := NewQueue(p, quietLogger(), WithWorkers(2), WithQueueSize(1), OnRecord(func(r entity.DocumentRecord) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, r.FileName)
	}))

	ctx := context.Background()
	for _, name := range []string{"scan.png", "quote.txt", "broken.pdf"} {
		require.NoError(t, q.Enqueue(ctx, meta(name)))
	}
	q.Shutdown(ctx)

	assert.ElementsMatch(t, []string{"scan.png", "quote.txt", "broken.pdf"}, got)
	assert.ErrorIs(t, q.Enqueue(ctx, meta("late.txt")), ErrQueueClosed)
}
