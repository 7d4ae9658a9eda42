package db

import (
	"context"
	"sync"
	"time"
)

// DefaultChannelCapacity is the default buffer size for the write queue.
const DefaultChannelCapacity = 100

// DefaultDrainTimeout is the maximum time to wait for pending writes during shutdown.
const DefaultDrainTimeout = 30 * time.Second

// WriteOperation is a queued database write.
type WriteOperation struct {
	// Data holds the write payload
	Data interface{}
	// Timestamp when the operation was queued
	Timestamp time.Time
}

// WriteHandler processes a single queued write. Implementations handle
// their own error logging; a failed write is not retried.
type WriteHandler func(op WriteOperation) error

// AsyncWriter queues database writes on a buffered channel and applies
// them from a background goroutine. The chat endpoint uses it to log
// conversation turns without adding write latency to the response path.
// On shutdown the queue is drained so logged turns are not lost.
type AsyncWriter struct {
	writeChan chan WriteOperation
	handler   WriteHandler
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	started   bool
	mu        sync.Mutex
}

// AsyncWriterConfig holds configuration for the async writer.
type AsyncWriterConfig struct {
	// ChannelCapacity is the buffer size for pending writes
	ChannelCapacity int
	// DrainTimeout is the maximum wait time during shutdown
	DrainTimeout time.Duration
}

// DefaultAsyncWriterConfig returns the default configuration.
func DefaultAsyncWriterConfig() AsyncWriterConfig {
	return AsyncWriterConfig{
		ChannelCapacity: DefaultChannelCapacity,
		DrainTimeout:    DefaultDrainTimeout,
	}
}

// NewAsyncWriter creates an async writer with default configuration.
func NewAsyncWriter(handler WriteHandler) *AsyncWriter {
	return NewAsyncWriterWithConfig(handler, DefaultAsyncWriterConfig())
}

// NewAsyncWriterWithConfig creates an async writer with custom configuration.
func NewAsyncWriterWithConfig(handler WriteHandler, config AsyncWriterConfig) *AsyncWriter {
	ctx, cancel := context.WithCancel(context.Background())

	return &AsyncWriter{
		writeChan: make(chan WriteOperation, config.ChannelCapacity),
		handler:   handler,
		ctx:       ctx,
		cancel:    cancel,
		started:   false,
	}
}

// Start launches the background processing goroutine. Writes queued before
// Start sit in the buffer until it runs. Calling Start twice is a no-op.
func (w *AsyncWriter) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return
	}

	w.started = true
	w.wg.Add(1)
	go w.processWrites()
}

func (w *AsyncWriter) processWrites() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			w.drainChannel()
			return
		case op, ok := <-w.writeChan:
			if !ok {
				return
			}
			_ = w.handler(op)
		}
	}
}

// drainChannel applies remaining buffered operations after cancellation.
func (w *AsyncWriter) drainChannel() {
	for {
		select {
		case op, ok := <-w.writeChan:
			if !ok {
				return
			}
			_ = w.handler(op)
		default:
			return
		}
	}
}

// Write queues a write without blocking. Returns false when the buffer is
// full; the caller decides whether to drop or write synchronously.
func (w *AsyncWriter) Write(data interface{}) bool {
	op := WriteOperation{
		Data:      data,
		Timestamp: time.Now(),
	}

	select {
	case w.writeChan <- op:
		return true
	default:
		return false
	}
}

// Pending returns the number of operations waiting in the buffer.
func (w *AsyncWriter) Pending() int {
	return len(w.writeChan)
}

// Stop cancels the processor and waits for buffered writes to drain.
func (w *AsyncWriter) Stop() {
	w.cancel()
	w.wg.Wait()
}

// StopWithTimeout stops the writer, waiting at most timeout for the drain.
// Returns false if the drain did not finish in time.
func (w *AsyncWriter) StopWithTimeout(timeout time.Duration) bool {
	w.cancel()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Close stops the writer and closes the channel. No writes may be queued
// after Close.
func (w *AsyncWriter) Close() {
	w.Stop()
	close(w.writeChan)
}

// IsStarted reports whether the background processor is running.
func (w *AsyncWriter) IsStarted() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.started
}
