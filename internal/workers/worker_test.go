package workers

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultWorkerConfig(t *testing.T) {
	config := DefaultWorkerConfig("test-worker")

	assert.Equal(t, "test-worker", config.WorkerName)
	assert.Equal(t, time.Minute, config.PollInterval)
	assert.Equal(t, 30*time.Second, config.ShutdownTimeout)
	assert.True(t, config.EnableRecovery)
}

func TestNewBaseWorker(t *testing.T) {
	worker := NewBaseWorker(DefaultWorkerConfig("base-worker"))

	assert.NotNil(t, worker)
	assert.Equal(t, "base-worker", worker.Name())
	assert.False(t, worker.IsRunning())
	assert.Equal(t, "base-worker", worker.Config().WorkerName)
}

func TestBaseWorker_IsRunning(t *testing.T) {
	worker := NewBaseWorker(DefaultWorkerConfig("test-worker"))

	assert.False(t, worker.IsRunning())

	worker.setRunning(true)
	assert.True(t, worker.IsRunning())

	worker.setRunning(false)
	assert.False(t, worker.IsRunning())
}

func TestBaseWorker_Stats(t *testing.T) {
	worker := NewBaseWorker(DefaultWorkerConfig("test-worker"))

	stats := worker.Stats()
	assert.Equal(t, "test-worker", stats.WorkerName)
	assert.Equal(t, int64(0), stats.Runs)
	assert.Zero(t, stats.Uptime)
	assert.False(t, stats.IsRunning)

	worker.setRunning(true)

	start := time.Now()
	time.Sleep(5 * time.Millisecond)
	worker.recordSuccess(start, 3)
	worker.recordFailure(time.Now())

	stats = worker.Stats()
	assert.Equal(t, int64(2), stats.Runs)
	assert.Equal(t, int64(1), stats.RunsSucceeded)
	assert.Equal(t, int64(1), stats.RunsFailed)
	assert.Equal(t, int64(3), stats.ItemsProcessed)
	assert.Greater(t, stats.AverageRunTime, time.Duration(0))
	assert.False(t, stats.LastRunTime.IsZero())
	assert.True(t, stats.IsRunning)
}

func TestBaseWorker_ConcurrentStats(t *testing.T) {
	worker := NewBaseWorker(DefaultWorkerConfig("test-worker"))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker.recordSuccess(time.Now(), 1)
			_ = worker.Stats()
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(50), worker.Stats().RunsSucceeded)
}

// ============================================================================
// WorkerPool
// ============================================================================

type fakeWorker struct {
	*BaseWorker
	startErr error
	stopErr  error
	started  bool
	stopped  bool
}

func newFakeWorker(name string) *fakeWorker {
	return &fakeWorker{BaseWorker: NewBaseWorker(WorkerConfig{WorkerName: name})}
}

func (f *fakeWorker) Start(ctx context.Context) error {
	f.started = true
	return f.startErr
}

func (f *fakeWorker) Stop(ctx context.Context) error {
	f.stopped = true
	return f.stopErr
}

func TestWorkerPool(t *testing.T) {
	pool := NewWorkerPool()
	a := newFakeWorker("a")
	b := newFakeWorker("b")
	pool.AddWorker(a)
	pool.AddWorker(b)

	assert.Equal(t, 2, pool.Count())

	require.NoError(t, pool.StartAll(context.Background()))
	assert.True(t, a.started)
	assert.True(t, b.started)

	stats := pool.GetAllStats()
	require.Len(t, stats, 2)
	assert.Equal(t, "a", stats[0].WorkerName)

	require.NoError(t, pool.StopAll(context.Background()))
	assert.True(t, a.stopped)
	assert.True(t, b.stopped)
}

func TestWorkerPool_Errors(t *testing.T) {
	pool := NewWorkerPool()
	bad := newFakeWorker("bad")
	bad.startErr = fmt.Errorf("boom")
	bad.stopErr = fmt.Errorf("stuck")
	pool.AddWorker(bad)

	err := pool.StartAll(context.Background())
	require.Error(t, err)
	assert.Equal(t, "bad:start: boom", err.Error())

	err = pool.StopAll(context.Background())
	require.Error(t, err)

	var workerErr *WorkerError
	require.ErrorAs(t, err, &workerErr)
	assert.Equal(t, "stop", workerErr.Operation)
	assert.EqualError(t, workerErr.Unwrap(), "stuck")
}

func TestWorkerPanicError(t *testing.T) {
	assert.Equal(t, "worker panic: boom", (&WorkerPanicError{Panic: "boom"}).Error())
	assert.Equal(t, "worker panic: bad", (&WorkerPanicError{Panic: fmt.Errorf("bad")}).Error())
	assert.Equal(t, "worker panic: 42", (&WorkerPanicError{Panic: 42}).Error())
}
