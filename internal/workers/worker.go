package workers

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Worker defines the interface for background workers
type Worker interface {
	// Start begins the worker loop in the background
	Start(ctx context.Context) error

	// Stop shuts down the worker and waits for the current run
	Stop(ctx context.Context) error

	// Name returns the worker's name
	Name() string

	// IsRunning returns whether the worker is currently running
	IsRunning() bool

	// Stats returns worker statistics
	Stats() WorkerStats
}

// Logger is the logging surface workers need
type Logger interface {
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
}

// WorkerStats represents statistics about a worker
type WorkerStats struct {
	WorkerName     string        `json:"worker_name"`
	Runs           int64         `json:"runs"`
	RunsSucceeded  int64         `json:"runs_succeeded"`
	RunsFailed     int64         `json:"runs_failed"`
	ItemsProcessed int64         `json:"items_processed"`
	AverageRunTime time.Duration `json:"average_run_time"`
	LastRunTime    time.Time     `json:"last_run_time,omitempty"`
	Uptime         time.Duration `json:"uptime"`
	IsRunning      bool          `json:"is_running"`
}

// WorkerConfig holds configuration for workers
type WorkerConfig struct {
	// WorkerName is a unique identifier for this worker instance
	WorkerName string

	// PollInterval is how often the worker runs
	PollInterval time.Duration

	// ShutdownTimeout is how long Stop waits for the current run
	ShutdownTimeout time.Duration

	// EnableRecovery turns panics in a run into failures
	EnableRecovery bool
}

// DefaultWorkerConfig returns a worker configuration with sensible defaults
func DefaultWorkerConfig(workerName string) WorkerConfig {
	return WorkerConfig{
		WorkerName:      workerName,
		PollInterval:    time.Minute,
		ShutdownTimeout: 30 * time.Second,
		EnableRecovery:  true,
	}
}

// BaseWorker provides common functionality for workers
type BaseWorker struct {
	config  WorkerConfig
	running bool
	mu      sync.RWMutex

	// Stats tracking
	runs           int64
	runsSucceeded  int64
	runsFailed     int64
	itemsProcessed int64
	totalRunTime   time.Duration
	startTime      time.Time
	lastRunTime    time.Time
	statsMu        sync.RWMutex
}

// NewBaseWorker creates a new base worker
func NewBaseWorker(config WorkerConfig) *BaseWorker {
	return &BaseWorker{
		config: config,
	}
}

// Name returns the worker's name
func (w *BaseWorker) Name() string {
	return w.config.WorkerName
}

// IsRunning returns whether the worker is currently running
func (w *BaseWorker) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// setRunning sets the running state
func (w *BaseWorker) setRunning(running bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.running = running
	if running {
		w.startTime = time.Now()
	}
}

// Stats returns worker statistics
func (w *BaseWorker) Stats() WorkerStats {
	w.statsMu.RLock()
	defer w.statsMu.RUnlock()

	var avgRunTime time.Duration
	if w.runs > 0 {
		avgRunTime = w.totalRunTime / time.Duration(w.runs)
	}

	var uptime time.Duration
	if !w.startTime.IsZero() {
		uptime = time.Since(w.startTime)
	}

	return WorkerStats{
		WorkerName:     w.config.WorkerName,
		Runs:           w.runs,
		RunsSucceeded:  w.runsSucceeded,
		RunsFailed:     w.runsFailed,
		ItemsProcessed: w.itemsProcessed,
		AverageRunTime: avgRunTime,
		LastRunTime:    w.lastRunTime,
		Uptime:         uptime,
		IsRunning:      w.IsRunning(),
	}
}

// recordSuccess records a successful run that handled items
func (w *BaseWorker) recordSuccess(startTime time.Time, items int) {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()

	w.runs++
	w.runsSucceeded++
	w.itemsProcessed += int64(items)
	w.totalRunTime += time.Since(startTime)
	w.lastRunTime = time.Now()
}

// recordFailure records a failed run
func (w *BaseWorker) recordFailure(startTime time.Time) {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()

	w.runs++
	w.runsFailed++
	w.totalRunTime += time.Since(startTime)
	w.lastRunTime = time.Now()
}

// Config returns the worker configuration
func (w *BaseWorker) Config() WorkerConfig {
	return w.config
}

// WorkerPool manages multiple workers
type WorkerPool struct {
	workers []Worker
	mu      sync.RWMutex
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool() *WorkerPool {
	return &WorkerPool{
		workers: make([]Worker, 0),
	}
}

// AddWorker adds a worker to the pool
func (p *WorkerPool) AddWorker(worker Worker) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.workers = append(p.workers, worker)
}

// StartAll starts all workers in the pool
func (p *WorkerPool) StartAll(ctx context.Context) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, worker := range p.workers {
		if err := worker.Start(ctx); err != nil {
			return NewWorkerError(worker.Name(), "start", err)
		}
	}
	return nil
}

// StopAll stops all workers in the pool concurrently and returns the first error
func (p *WorkerPool) StopAll(ctx context.Context) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var wg sync.WaitGroup
	errChan := make(chan error, len(p.workers))

	for _, worker := range p.workers {
		wg.Add(1)
		go func(w Worker) {
			defer wg.Done()
			if err := w.Stop(ctx); err != nil {
				errChan <- NewWorkerError(w.Name(), "stop", err)
			}
		}(worker)
	}

	wg.Wait()
	close(errChan)

	select {
	case err := <-errChan:
		return err
	default:
		return nil
	}
}

// GetAllStats returns statistics for all workers
func (p *WorkerPool) GetAllStats() []WorkerStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stats := make([]WorkerStats, 0, len(p.workers))
	for _, worker := range p.workers {
		stats = append(stats, worker.Stats())
	}
	return stats
}

// Count returns the number of workers in the pool
func (p *WorkerPool) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.workers)
}

// WorkerError represents a worker-specific error
type WorkerError struct {
	WorkerName string
	Operation  string
	Err        error
}

func (e *WorkerError) Error() string {
	return e.WorkerName + ":" + e.Operation + ": " + e.Err.Error()
}

func (e *WorkerError) Unwrap() error {
	return e.Err
}

// NewWorkerError creates a new worker error
func NewWorkerError(workerName, operation string, err error) *WorkerError {
	return &WorkerError{
		WorkerName: workerName,
		Operation:  operation,
		Err:        err,
	}
}

// WorkerPanicError represents a panic that occurred during a run
type WorkerPanicError struct {
	Panic interface{}
}

func (e *WorkerPanicError) Error() string {
	return "worker panic: " + formatPanic(e.Panic)
}

func formatPanic(p interface{}) string {
	switch v := p.(type) {
	case string:
		return v
	case error:
		return v.Error()
	default:
		return fmt.Sprintf("%v", v)
	}
}
