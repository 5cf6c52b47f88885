package workers

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Purger removes expired records and reports how many went.
// repositories.ConversationRepository satisfies it.
type Purger interface {
	PurgeExpired(ctx context.Context) (int, error)
}

// RetentionWorkerConfig holds configuration for the retention worker
type RetentionWorkerConfig struct {
	WorkerConfig
	Store  Purger
	Logger Logger
}

// RetentionWorker periodically purges expired conversations
type RetentionWorker struct {
	*BaseWorker
	store  Purger
	logger Logger

	cancel context.CancelFunc
	done   chan struct{}
	stopMu sync.Mutex
}

// NewRetentionWorker creates a new retention worker
func NewRetentionWorker(config RetentionWorkerConfig) *RetentionWorker {
	if config.WorkerName == "" {
		config.WorkerName = "retention-worker"
	}
	if config.PollInterval <= 0 {
		config.PollInterval = time.Minute
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = 30 * time.Second
	}

	return &RetentionWorker{
		BaseWorker: NewBaseWorker(config.WorkerConfig),
		store:      config.Store,
		logger:     config.Logger,
	}
}

// Start launches the purge loop. It returns an error when already running
// or when no store is configured.
func (w *RetentionWorker) Start(ctx context.Context) error {
	w.stopMu.Lock()
	defer w.stopMu.Unlock()

	if w.IsRunning() {
		return errors.New("worker already running")
	}
	if w.store == nil {
		return errors.New("no store configured")
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.setRunning(true)

	go w.loop(runCtx, w.done)

	w.logInfo("Worker %s started (interval: %v)", w.Name(), w.config.PollInterval)
	return nil
}

// Stop cancels the loop and waits for the current run to finish
func (w *RetentionWorker) Stop(ctx context.Context) error {
	w.stopMu.Lock()
	defer w.stopMu.Unlock()

	if !w.IsRunning() {
		return nil
	}

	w.cancel()

	timeout := time.NewTimer(w.config.ShutdownTimeout)
	defer timeout.Stop()

	select {
	case <-w.done:
	case <-timeout.C:
		return errors.New("timed out waiting for worker to stop")
	case <-ctx.Done():
		return ctx.Err()
	}

	w.setRunning(false)
	w.logInfo("Worker %s stopped", w.Name())
	return nil
}

// RunOnce performs a single purge and records its stats
func (w *RetentionWorker) RunOnce(ctx context.Context) (int, error) {
	start := time.Now()

	purged, err := w.purge(ctx)
	if err != nil {
		w.recordFailure(start)
		w.logError("Worker %s purge failed: %v", w.Name(), err)
		return 0, err
	}

	w.recordSuccess(start, purged)
	if purged > 0 {
		w.logInfo("Worker %s purged %d expired conversations", w.Name(), purged)
	} else {
		w.logDebug("Worker %s found nothing to purge", w.Name())
	}
	return purged, nil
}

func (w *RetentionWorker) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

func (w *RetentionWorker) purge(ctx context.Context) (purged int, err error) {
	if w.config.EnableRecovery {
		defer func() {
			if r := recover(); r != nil {
				err = &WorkerPanicError{Panic: r}
			}
		}()
	}
	return w.store.PurgeExpired(ctx)
}

func (w *RetentionWorker) logInfo(msg string, args ...interface{}) {
	if w.logger != nil {
		w.logger.Info(msg, args...)
	}
}

func (w *RetentionWorker) logError(msg string, args ...interface{}) {
	if w.logger != nil {
		w.logger.Error(msg, args...)
	}
}

func (w *RetentionWorker) logDebug(msg string, args ...interface{}) {
	if w.logger != nil {
		w.logger.Debug(msg, args...)
	}
}
