package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrQueueFull is returned by Submit when the queue has no room
	ErrQueueFull = errors.New("worker pool queue full (backpressure)")

	// ErrPoolClosed is returned by Submit after Shutdown
	ErrPoolClosed = errors.New("worker pool is shut down")
)

// Task is a unit of best-effort background work
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// WorkerPool runs background tasks on a fixed set of goroutines
type WorkerPool struct {
	jobs        chan Task
	workerCount int
	taskTimeout time.Duration
	logger      *zap.Logger
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	metrics     *PoolMetrics

	closeMu sync.RWMutex
	closed  bool
}

// PoolMetrics tracks worker pool performance
type PoolMetrics struct {
	mu              sync.RWMutex
	processed       int64
	failed          int64
	backpressure    int64
	totalProcessing time.Duration
}

// NewWorkerPool creates a new worker pool. Each task gets taskTimeout to
// finish; zero means no per-task deadline.
func NewWorkerPool(workerCount, queueSize int, taskTimeout time.Duration, logger *zap.Logger) *WorkerPool {
	if workerCount <= 0 {
		workerCount = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		jobs:        make(chan Task, queueSize),
		workerCount: workerCount,
		taskTimeout: taskTimeout,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
		metrics:     &PoolMetrics{},
	}
}

// Start initializes and starts all worker goroutines
func (wp *WorkerPool) Start() {
	wp.logger.Info("Starting worker pool",
		zap.Int("workers", wp.workerCount),
		zap.Int("queue_size", cap(wp.jobs)))

	for i := 1; i <= wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// worker is the main worker loop that processes jobs
func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for {
		select {
		case <-wp.ctx.Done():
			wp.logger.Debug("Worker shutting down", zap.Int("worker", id))
			return

		case task, ok := <-wp.jobs:
			if !ok {
				return
			}
			wp.processTask(id, task)
		}
	}
}

// processTask runs a single task with panic recovery
func (wp *WorkerPool) processTask(workerID int, task Task) {
	defer func() {
		if r := recover(); r != nil {
			wp.logger.Error("Worker recovered from panic",
				zap.Int("worker", workerID),
				zap.String("task", task.Name),
				zap.Any("panic", r))
			wp.metrics.incrementFailed()
		}
	}()

	startTime := time.Now()

	ctx := wp.ctx
	if wp.taskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, wp.taskTimeout)
		defer cancel()
	}

	err := task.Run(ctx)
	processingTime := time.Since(startTime)

	if err != nil {
		wp.logger.Warn("Task failed",
			zap.Int("worker", workerID),
			zap.String("task", task.Name),
			zap.Duration("took", processingTime),
			zap.Error(err))
		wp.metrics.incrementFailed()
		return
	}

	wp.logger.Debug("Task processed",
		zap.Int("worker", workerID),
		zap.String("task", task.Name),
		zap.Duration("took", processingTime))
	wp.metrics.recordSuccess(processingTime)
}

// Submit adds a task to the queue without blocking
func (wp *WorkerPool) Submit(task Task) error {
	wp.closeMu.RLock()
	defer wp.closeMu.RUnlock()

	if wp.closed {
		return ErrPoolClosed
	}

	select {
	case wp.jobs <- task:
		return nil
	default:
		wp.logger.Warn("Queue full, dropping task", zap.String("task", task.Name))
		wp.metrics.incrementBackpressure()
		return ErrQueueFull
	}
}

// Schedule adapts Submit to the leaderboard prefetch scheduler
func (wp *WorkerPool) Schedule(name string, run func(ctx context.Context) error) error {
	return wp.Submit(Task{Name: name, Run: run})
}

// Shutdown stops accepting tasks and waits for queued ones to finish.
// Tasks still running at the timeout have their context cancelled.
func (wp *WorkerPool) Shutdown(timeout time.Duration) error {
	wp.closeMu.Lock()
	if wp.closed {
		wp.closeMu.Unlock()
		return nil
	}
	wp.closed = true
	close(wp.jobs)
	wp.closeMu.Unlock()

	done := make(chan struct{})
	go func() {
		wp.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		wp.cancel()
		wp.logMetrics()
		return nil

	case <-time.After(timeout):
		wp.cancel()
		wp.logger.Warn("Worker pool shutdown timed out", zap.Duration("timeout", timeout))
		return fmt.Errorf("shutdown timeout exceeded")
	}
}

// Metrics is a snapshot of pool counters
type Metrics struct {
	Processed          int64  `json:"processed"`
	Failed             int64  `json:"failed"`
	BackpressureEvents int64  `json:"backpressure_events"`
	AvgProcessingTime  string `json:"avg_processing_time"`
	QueueUtilization   string `json:"queue_utilization"`
}

// GetMetrics returns a snapshot of the pool metrics
func (wp *WorkerPool) GetMetrics() Metrics {
	wp.metrics.mu.RLock()
	defer wp.metrics.mu.RUnlock()

	avgProcessing := time.Duration(0)
	if wp.metrics.processed > 0 {
		avgProcessing = wp.metrics.totalProcessing / time.Duration(wp.metrics.processed)
	}

	return Metrics{
		Processed:          wp.metrics.processed,
		Failed:             wp.metrics.failed,
		BackpressureEvents: wp.metrics.backpressure,
		AvgProcessingTime:  avgProcessing.String(),
		QueueUtilization:   fmt.Sprintf("%d/%d", len(wp.jobs), cap(wp.jobs)),
	}
}

func (wp *WorkerPool) logMetrics() {
	m := wp.GetMetrics()
	wp.logger.Info("Worker pool stopped",
		zap.Int64("processed", m.Processed),
		zap.Int64("failed", m.Failed),
		zap.Int64("backpressure_events", m.BackpressureEvents),
		zap.String("avg_processing_time", m.AvgProcessingTime))
}

func (pm *PoolMetrics) recordSuccess(duration time.Duration) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.processed++
	pm.totalProcessing += duration
}

func (pm *PoolMetrics) incrementFailed() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.failed++
}

func (pm *PoolMetrics) incrementBackpressure() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.backpressure++
}
