package shutdown

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"adei_backend/core"
	"adei_backend/logging"
)

// Manager is the main shutdown coordination organism that composes:
//   - OperationTracker: tracks in-flight chat turns and pipeline work
//   - ShutdownRegistry: ordered cleanup functions
//   - SignalCounter: handles repeated signals for force shutdown
//
// Manager provides a unified interface for graceful shutdown management,
// coordinating context cancellation, operation tracking, cleanup execution,
// and signal handling.
//
// Usage:
//
//	manager := NewManager(log, WithTimeout(cfg.ShutdownTimeout()))
//
//	// Register cleanup handlers (lower priority runs first)
//	manager.Register("http-server", 10, func(ctx context.Context) error {
//	    return server.Shutdown(ctx)
//	})
//	manager.Register("database", 30, func(ctx context.Context) error {
//	    return database.Close()
//	})
//
//	// Start signal handling
//	manager.Start()
//
//	// Block until shutdown
//	<-manager.Context().Done()
//
//	// Execute shutdown sequence
//	manager.Shutdown()
type Manager struct {
	log      *logging.Logger
	timeout  time.Duration
	mu       sync.Mutex
	started  bool
	shutdown bool

	// Internal context management
	ctx    context.Context
	cancel context.CancelFunc

	// Composed molecules
	tracker  *OperationTracker
	registry *ShutdownRegistry
	signals  *SignalCounter

	// Signal channel for cleanup
	sigChan chan os.Signal

	// receivedSig is the signal that initiated shutdown, if any
	receivedSig os.Signal
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithTimeout sets the shutdown timeout duration.
// Default is 30 seconds.
func WithTimeout(timeout time.Duration) ManagerOption {
	return func(m *Manager) {
		if timeout > 0 {
			m.timeout = timeout
		}
	}
}

// NewManager creates a new Manager ready to coordinate graceful shutdown.
// The logger is required and used for all shutdown-related logging.
//
// Default configuration:
//   - Timeout: 30 seconds
//   - Force shutdown on second signal
func NewManager(log *logging.Logger, opts ...ManagerOption) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		log:      log.Named("shutdown"),
		timeout:  30 * time.Second,
		ctx:      ctx,
		cancel:   cancel,
		tracker:  NewOperationTracker(),
		registry: NewShutdownRegistry(),
		sigChan:  make(chan os.Signal, 1),
	}

	for _, opt := range opts {
		opt(m)
	}

	// Create signal counter with force shutdown callback
	m.signals = NewSignalCounter(2, func() {
		m.log.Warnw("Received second signal, forcing immediate shutdown")
		os.Exit(1)
	})

	return m
}

// Context returns the managed context that will be cancelled during shutdown.
// Components should use this context to detect when shutdown has been initiated.
func (m *Manager) Context() context.Context {
	return m.ctx
}

// Register adds a cleanup function to be called during shutdown.
// Lower priority values are executed first.
//
// Typical priority ranges:
//   - 0-9: Stop accepting work (HTTP listener, WebSocket accepts)
//   - 10-19: Connection cleanup (drain open sockets, sessions)
//   - 20-29: Service cleanup (stop background workers, flush async writers)
//   - 30-39: Resource cleanup (close databases, files)
//   - 40+: Final cleanup (sweep temp files, sync logs)
func (m *Manager) Register(name string, priority int, fn core.ShutdownFunc) {
	m.registry.Register(name, priority, fn)
	m.log.Debugw("Registered shutdown handler",
		"name", name,
		"priority", priority,
	)
}

// Start begins signal handling for SIGINT and SIGTERM.
// When a signal is received, the context is cancelled to initiate graceful shutdown.
// A second signal triggers immediate forced shutdown via os.Exit(1).
//
// Start must be called before shutdown will respond to OS signals.
// It is safe to call Start multiple times; subsequent calls are no-ops.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return
	}
	m.started = true

	signal.Notify(m.sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		for sig := range m.sigChan {
			count := m.signals.Increment()
			if count == 1 {
				m.log.Infow("Received shutdown signal, initiating graceful shutdown",
					"signal", sig.String(),
				)
				m.mu.Lock()
				m.receivedSig = sig
				m.mu.Unlock()
				m.cancel() // Cancel context to signal components
			}
			// Force shutdown is handled by SignalCounter callback
		}
	}()

	m.log.Infow("Shutdown manager started, listening for signals")
}

// Shutdown executes the graceful shutdown sequence:
//  1. Close operation tracker to reject new operations
//  2. Wait for in-flight operations (with timeout)
//  3. Execute registered cleanup functions in priority order
//
// Shutdown returns an error if any cleanup function fails or if
// waiting for in-flight operations times out.
//
// Shutdown is idempotent; subsequent calls are no-ops and return nil.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return nil
	}
	m.shutdown = true
	m.mu.Unlock()

	startTime := time.Now()
	m.log.Infow("Initiating graceful shutdown",
		"timeout", m.timeout.String(),
		"registered_handlers", m.registry.Count(),
	)

	// Step 1: Stop accepting new operations
	m.tracker.Close()

	// Step 2: Wait for in-flight operations
	if active := m.tracker.ActiveCount(); active > 0 {
		m.log.Infow("Waiting for in-flight operations", "active_count", active)
	}

	if err := m.tracker.Wait(m.timeout); err != nil {
		m.log.Warnw("Timeout waiting for in-flight operations",
			"waited", time.Since(startTime).String(),
			"remaining_ops", m.tracker.ActiveCount(),
		)
	}

	// Step 3: Execute cleanup functions with the remaining timeout
	elapsed := time.Since(startTime)
	remaining := m.timeout - elapsed
	if remaining < time.Second {
		remaining = time.Second // Minimum 1 second for cleanup
	}

	ctx, cancel := context.WithTimeout(context.Background(), remaining)
	defer cancel()

	m.log.Infow("Executing cleanup functions", "handlers", m.registry.Names())

	errs := m.registry.Shutdown(ctx)
	for _, err := range errs {
		m.log.Errorw("Cleanup function failed", "error", err.Error())
	}

	duration := time.Since(startTime)
	if len(errs) > 0 {
		m.log.Errorw("Shutdown completed with errors",
			"duration", duration.String(),
			"error_count", len(errs),
		)
		return fmt.Errorf("shutdown had %d errors", len(errs))
	}

	m.log.Infow("Graceful shutdown completed", "duration", duration.String())

	// Clean up signal channel
	signal.Stop(m.sigChan)
	close(m.sigChan)

	return nil
}

// Wait blocks until the managed context is cancelled.
// This is a convenience method for main goroutines.
func (m *Manager) Wait() {
	<-m.ctx.Done()
}

// Signal returns the OS signal that initiated shutdown, or nil when
// shutdown was not signal-initiated. Callers use it to derive the
// conventional 128+N process exit code.
func (m *Manager) Signal() os.Signal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.receivedSig
}

// WrapOperation executes a function while tracking it as an in-flight operation.
// If the system is shutting down, ErrTrackerClosed is returned and the function
// is not executed.
//
// The operation name is used for logging purposes.
//
// Example:
//
//	err := manager.WrapOperation(ctx, "chat-turn", func(ctx context.Context) error {
//	    return answerQuestion(ctx, question)
//	})
//	if errors.Is(err, shutdown.ErrTrackerClosed) {
//	    return fmt.Errorf("system is shutting down")
//	}
func (m *Manager) WrapOperation(ctx context.Context, name string, fn func(context.Context) error) error {
	if !m.tracker.Start() {
		m.log.Debugw("Operation rejected, system shutting down", "operation", name)
		return ErrTrackerClosed
	}
	defer m.tracker.Done()

	// Check if context is already cancelled
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-m.ctx.Done():
		return context.Canceled
	default:
	}

	return fn(ctx)
}

// ActiveOperations returns the count of currently in-flight operations.
func (m *Manager) ActiveOperations() int64 {
	return m.tracker.ActiveCount()
}

// IsShuttingDown returns true if shutdown has been initiated.
func (m *Manager) IsShuttingDown() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shutdown || m.tracker.IsClosed()
}

// RegisteredHandlers returns the names of all registered cleanup handlers
// in priority order (first to execute is first in slice).
func (m *Manager) RegisteredHandlers() []string {
	return m.registry.Names()
}
