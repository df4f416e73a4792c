package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/internal/assemble"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

var ErrQueueClosed = errors.New("queue is shutting down")

// Job is one file submitted to a long-running Queue.
type Job struct {
	Meta        assemble.Metadata
	SubmittedAt time.Time
}

// FileProcessor is the part of Processor a Queue needs.
type FileProcessor interface {
	ProcessFile(ctx context.Context, meta assemble.Metadata) (entity.DocumentRecord, error)
}

// Queue feeds files that arrive over time, for example from a directory
// watcher, to a fixed pool of workers.
type Queue struct {
	proc     FileProcessor
	logger   *slog.Logger
	workers  int
	timeout  time.Duration
	onRecord func(entity.DocumentRecord)

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type QueueOption func(*Queue)

func WithWorkers(n int) QueueOption {
	return func(q *Queue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) QueueOption {
	return func(q *Queue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) QueueOption {
	return func(q *Queue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// OnRecord registers a callback invoked from the worker goroutine after each
// file. It must be safe for concurrent use.
func OnRecord(fn func(entity.DocumentRecord)) QueueOption {
	return func(q *Queue) { q.onRecord = fn }
}

func NewQueue(proc FileProcessor, logger *slog.Logger, opts ...QueueOption) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &Queue{
		proc:    proc,
		logger:  logger,
		workers: 4,
		timeout: 3 * time.Minute,
		ch:      make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *Queue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go q.work(i + 1)
		}
	})
}

func (q *Queue) work(workerID int) {
	defer q.wg.Done()
	q.logger.Debug("pipeline.worker.start", "worker_id", workerID)

	for job := range q.ch {
		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
		rec, err := q.proc.ProcessFile(ctx, job.Meta)
		cancel()

		if err != nil {
			q.logger.Error("pipeline.worker.failed", "worker_id", workerID, "file", job.Meta.FileName, "error", err)
		} else {
			q.logger.Debug("pipeline.worker.done", "worker_id", workerID, "file", job.Meta.FileName,
				"status", rec.Status, "wait_ms", time.Since(job.SubmittedAt).Milliseconds())
		}
		if q.onRecord != nil {
			q.onRecord(rec)
		}
	}

	q.logger.Debug("pipeline.worker.stop", "worker_id", workerID)
}

// Enqueue blocks while the buffer is full, applying backpressure to the
// producer, until ctx is done.
func (q *Queue) Enqueue(ctx context.Context, meta assemble.Metadata) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("pipeline.queue.closed", "file", meta.FileName)
		return ErrQueueClosed
	}
	job := Job{Meta: meta, SubmittedAt: time.Now()}
	select {
	case q.ch <- job:
		q.logger.Debug("pipeline.queue.enqueued", "file", meta.FileName)
		return nil
	default:
	}
	q.logger.Warn("pipeline.queue.full", "file", meta.FileName)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting jobs and waits for queued ones to drain or ctx to
// end.
func (q *Queue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("pipeline.queue.shutdown_interrupted")
	case <-done:
		q.logger.Info("pipeline.queue.drained")
	}
}
