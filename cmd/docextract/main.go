package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/joseph-ayodele/invoice-extractor/internal/app"
	"github.com/joseph-ayodele/invoice-extractor/internal/assemble"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/ingest"
	"github.com/joseph-ayodele/invoice-extractor/internal/ocr/tesseract"
	"github.com/joseph-ayodele/invoice-extractor/internal/pipeline"
)

// editFlags collects repeated -edit path=value flags.
type editFlags []assemble.FieldEdit

func (e *editFlags) String() string {
	parts := make([]string, len(*e))
	for i, fe := range *e {
		parts[i] = fe.Path + "=" + fe.Value
	}
	return strings.Join(parts, ",")
}

func (e *editFlags) Set(s string) error {
	fe, err := assemble.ParseFieldEdit(s)
	if err != nil {
		return err
	}
	*e = append(*e, fe)
	return nil
}

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var edits editFlags
	var (
		dir         = flag.String("dir", "", "directory of documents to process")
		strategy    = flag.String("strategy", "", "extraction strategy: llm or regex (default from EXTRACTION_STRATEGY)")
		concurrency = flag.Int("concurrency", 0, "files processed in parallel (default from BATCH_CONCURRENCY)")
		stream      = flag.Bool("stream", false, "write each record as soon as it is ready (NDJSON)")
		watch       = flag.Bool("watch", false, "keep watching -dir and process new files as they arrive")
		store       = flag.String("store", "", "database DSN; overrides DB_URL")
		out         = flag.String("out", "", "output file (default stdout)")
		metricsOut  = flag.String("metrics-out", "", "write Prometheus metrics in text format to this file on exit")
		noOCR       = flag.Bool("no-ocr", false, "do not start the tesseract engine")
		verbose     = flag.Bool("v", false, "debug logging")
	)
	flag.Var(&edits, "edit", "manual correction path=value applied to every record (repeatable)")
	flag.Parse()

	paths := flag.Args()
	if *dir == "" && len(paths) == 0 {
		printError("usage: docextract [flags] -dir <dir> | <file>...\n")
		flag.PrintDefaults()
		os.Exit(2)
	}
	if *watch && *dir == "" {
		printError("Error: -watch requires -dir\n")
		os.Exit(2)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := common.LoadConfig()
	if err != nil {
		logger.Error("config.load_failed", "error", err)
		os.Exit(1)
	}
	if *strategy != "" {
		cfg.Extraction.Strategy = strings.ToLower(*strategy)
	}
	if *concurrency > 0 {
		cfg.Batch.Concurrency = *concurrency
	}
	if *store != "" {
		cfg.Store.DSN = *store
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var opts []app.Option
	if !*noOCR {
		tess, err := tesseract.New(cfg.Source.TessdataDir)
		if err != nil {
			logger.Warn("ocr.engine_unavailable", "error", err)
		} else {
			defer tess.Close()
			opts = append(opts, app.WithRecognizer(tess))
		}
	}

	a, err := app.New(ctx, cfg, logger, opts...)
	if err != nil {
		logger.Error("app.init_failed", "error", err)
		os.Exit(1)
	}
	defer a.Close()
	if *metricsOut != "" {
		defer writeMetrics(a.Registry, *metricsOut, logger)
	}

	w := io.Writer(os.Stdout)
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			logger.Error("output.create_failed", "path", *out, "error", err)
			os.Exit(1)
		}
		defer f.Close()
		w = f
	}
	sink := &recordSink{w: w, edits: edits, docs: a.Documents, logger: logger}

	if *watch {
		if err := runWatch(ctx, a, *dir, sink); err != nil {
			logger.Error("watch.failed", "error", err)
			os.Exit(1)
		}
		return
	}

	metas, err := collect(ctx, a, *dir, paths)
	if err != nil {
		logger.Error("ingest.failed", "error", err)
		os.Exit(1)
	}

	start := time.Now()
	var records []entity.DocumentRecord
	if *stream {
		for ev := range a.Processor.StreamBatch(ctx, metas) {
			if ev.Done {
				break
			}
			logger.Info("batch.progress", "completed", ev.Completed, "total", ev.Total, "progress", ev.Progress)
			rec := sink.finish(ctx, ev.Outcome.Value)
			sink.writeLine(rec)
			records = append(records, rec)
		}
	} else {
		for _, rec := range a.Processor.ProcessBatch(ctx, metas) {
			records = append(records, sink.finish(ctx, rec))
		}
		if err := sink.writeAll(records); err != nil {
			logger.Error("output.write_failed", "error", err)
			os.Exit(1)
		}
	}

	var failed int
	for _, r := range records {
		if r.Failed() {
			failed++
		}
	}
	logger.Info("batch.complete", "files", len(records), "failed", failed, "duration_ms", time.Since(start).Milliseconds())
}

// collect ingests -dir and explicit paths, skipping duplicates.
func collect(ctx context.Context, a *app.App, dir string, paths []string) ([]assemble.Metadata, error) {
	var metas []assemble.Metadata
	if dir != "" {
		m, stats, err := a.IngestDirectory(ctx, dir, true)
		if err != nil {
			return nil, err
		}
		a.Logger.Info("ingest.complete", "matched", stats.Matched, "deduplicated", stats.Deduplicated, "failed", stats.Failed)
		metas = append(metas, m...)
	}
	for _, p := range paths {
		meta, fresh, err := a.IngestFile(ctx, p)
		if err != nil {
			a.Logger.Warn("ingest.skipped", "path", p, "error", err)
			continue
		}
		if fresh {
			metas = append(metas, meta)
		}
	}
	return metas, nil
}

func runWatch(ctx context.Context, a *app.App, dir string, sink *recordSink) error {
	events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       []string{dir},
		InitialScan: true,
		Debounce:    500 * time.Millisecond,
		SkipHidden:  true,
		Logger:      a.Logger,
	})
	if err != nil {
		return err
	}

	q := pipeline.NewQueue(a.Processor, a.Logger,
		pipeline.WithWorkers(a.Config.Batch.Concurrency),
		pipeline.WithQueueSize(a.Config.Batch.QueueSize),
		pipeline.WithProcessTimeout(a.Config.Batch.FileTimeout),
		pipeline.OnRecord(func(rec entity.DocumentRecord) {
			sink.writeLine(sink.finish(context.Background(), rec))
		}),
	)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Batch.FileTimeout)
		defer cancel()
		q.Shutdown(shutdownCtx)
	}()

	a.Logger.Info("watch.start", "dir", dir)
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			a.Logger.Warn("watch.error", "error", err)
		case path, ok := <-events:
			if !ok {
				return nil
			}
			meta, fresh, err := a.IngestFile(ctx, path)
			if err != nil {
				a.Logger.Warn("ingest.skipped", "path", path, "error", err)
				continue
			}
			if !fresh {
				continue
			}
			if err := q.Enqueue(ctx, meta); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}

// recordSink applies manual edits and writes records. writeLine is safe for
// concurrent use.
type recordSink struct {
	mu     sync.Mutex
	w      io.Writer
	edits  []assemble.FieldEdit
	docs   pipeline.RecordStore
	logger *slog.Logger
}

func (s *recordSink) finish(ctx context.Context, rec entity.DocumentRecord) entity.DocumentRecord {
	if len(s.edits) == 0 || rec.Failed() {
		return rec
	}
	doc, err := assemble.ApplyFieldEdits(rec.Document, s.edits...)
	if err != nil {
		s.logger.Warn("edit.rejected", "record_id", rec.ID, "error", err)
		return rec
	}
	rec.Document = doc
	if s.docs != nil {
		if err := s.docs.Save(ctx, rec); err != nil {
			s.logger.Error("edit.store_failed", "record_id", rec.ID, "error", err)
		}
	}
	return rec
}

func (s *recordSink) writeLine(rec entity.DocumentRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := json.NewEncoder(s.w).Encode(rec); err != nil {
		s.logger.Error("output.write_failed", "record_id", rec.ID, "error", err)
	}
}

func (s *recordSink) writeAll(records []entity.DocumentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	enc := json.NewEncoder(s.w)
	enc.SetIndent("", "  ")
	if records == nil {
		records = []entity.DocumentRecord{}
	}
	return enc.Encode(records)
}

func writeMetrics(reg *prometheus.Registry, path string, logger *slog.Logger) {
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		logger.Error("metrics.write_failed", "path", path, "error", err)
	}
}
