package audit

import (
	"context"
	"sync"
	"time"
)

// AsyncOptions tunes batching.
type AsyncOptions struct {
	BufferSize     int           // queued events before Store falls back to a direct write
	BatchSize      int           // events per StoreBatch call
	BatchTimeout   time.Duration // max wait for a partial batch
	StorageTimeout time.Duration // per batch write timeout
}

func (o AsyncOptions) withDefaults() AsyncOptions {
	if o.BufferSize <= 0 {
		o.BufferSize = 1000
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 100
	}
	if o.BatchTimeout <= 0 {
		o.BatchTimeout = 100 * time.Millisecond
	}
	if o.StorageTimeout <= 0 {
		o.StorageTimeout = 5 * time.Second
	}
	return o
}

// AsyncWriter is a Storage that groups concurrent Store calls into batches.
// Store still waits for the batch result so callers learn about failures.
type AsyncWriter struct {
	writer  BatchWriter
	queue   chan pending
	done    chan struct{}
	mu      sync.RWMutex // guards closed against in-flight enqueues
	closed  bool
	wg      sync.WaitGroup
	options AsyncOptions
}

type pending struct {
	event  Event
	result chan error
}

// NewAsyncWriter starts the batching worker. Call Close on shutdown.
func NewAsyncWriter(bw BatchWriter, opts AsyncOptions) *AsyncWriter {
	if bw == nil {
		panic("audit: batch writer cannot be nil")
	}

	aw := &AsyncWriter{
		writer:  bw,
		options: opts.withDefaults(),
		done:    make(chan struct{}),
	}
	aw.queue = make(chan pending, aw.options.BufferSize)

	aw.wg.Add(1)
	go aw.worker()
	return aw
}

func (aw *AsyncWriter) Store(ctx context.Context, event Event) error {
	result := make(chan error, 1)

	aw.mu.RLock()
	if aw.closed {
		aw.mu.RUnlock()
		return ErrWriterClosed
	}
	select {
	case aw.queue <- pending{event: event, result: result}:
		aw.mu.RUnlock()
	default:
		aw.mu.RUnlock()
		// buffer full: write directly instead of dropping the event
		return aw.writer.StoreBatch(ctx, []Event{event})
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (aw *AsyncWriter) worker() {
	defer aw.wg.Done()

	batch := make([]Event, 0, aw.options.BatchSize)
	results := make([]chan error, 0, aw.options.BatchSize)
	ticker := time.NewTicker(aw.options.BatchTimeout)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		// detached from request contexts so one caller's timeout does not fail the batch
		ctx, cancel := context.WithTimeout(context.Background(), aw.options.StorageTimeout)
		err := aw.writer.StoreBatch(ctx, batch)
		cancel()

		for _, r := range results {
			r <- err // buffered, never blocks
		}
		clear(batch)
		clear(results)
		batch = batch[:0]
		results = results[:0]
	}

	for {
		select {
		case p := <-aw.queue:
			batch = append(batch, p.event)
			results = append(results, p.result)
			if len(batch) >= aw.options.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-aw.done:
			for {
				select {
				case p := <-aw.queue:
					batch = append(batch, p.event)
					results = append(results, p.result)
					if len(batch) >= aw.options.BatchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		}
	}
}

// Close stops accepting events and flushes what is queued. If ctx expires
// first, queued events may be lost.
func (aw *AsyncWriter) Close(ctx context.Context) error {
	aw.mu.Lock()
	if !aw.closed {
		aw.closed = true
		close(aw.done)
	}
	aw.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		aw.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
