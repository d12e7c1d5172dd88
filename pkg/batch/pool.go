package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"debundle/pkg/driver"
	"debundle/pkg/reconstruct"
	"debundle/pkg/source"
)

// Job is one file to transform.
type Job struct {
	Root    string // input directory
	RelPath string
	OutPath string
}

// FileResult is the outcome for one file. Err is nil on success.
type FileResult struct {
	RelPath  string
	OutPath  string
	Report   *reconstruct.Report
	Err      error
	Duration time.Duration
	WorkerID int
}

// PoolStats counts jobs seen by a pool.
type PoolStats struct {
	WorkerCount   int
	TotalJobs     int
	ActiveJobs    int
	CompletedJobs int
	FailedJobs    int
	TotalTime     time.Duration
	AverageTime   time.Duration
}

// TransformFunc turns a job into a result. It must be safe for concurrent
// use.
type TransformFunc func(ctx context.Context, job *Job) *FileResult

// workerPool fans jobs out to a fixed number of workers. Every worker runs
// its own transform, so no reconstruction state is shared.
type workerPool struct {
	numWorkers   int
	resultBuffer int
	transform    TransformFunc

	jobQueue   chan *Job
	resultChan chan *FileResult

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	started    int32 // atomic
	stopped    int32 // atomic
	activeJobs int32 // atomic

	stats      PoolStats
	statsMutex sync.RWMutex
}

func newWorkerPool(numWorkers int, transform TransformFunc) *workerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &workerPool{
		numWorkers:   numWorkers,
		resultBuffer: numWorkers * 2,
		transform:    transform,
	}
}

// Start launches the workers.
func (wp *workerPool) Start(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&wp.started, 0, 1) {
		return fmt.Errorf("worker pool already started")
	}

	wp.ctx, wp.cancel = context.WithCancel(ctx)
	wp.jobQueue = make(chan *Job, wp.numWorkers)
	wp.resultChan = make(chan *FileResult, wp.resultBuffer)
	wp.stats = PoolStats{WorkerCount: wp.numWorkers}

	for i := range wp.numWorkers {
		wp.wg.Add(1)
		go wp.run(wp.ctx, i)
	}
	return nil
}

// Submit queues a job, blocking while every worker is busy.
func (wp *workerPool) Submit(job *Job) error {
	if atomic.LoadInt32(&wp.started) == 0 {
		return fmt.Errorf("worker pool not started")
	}
	if atomic.LoadInt32(&wp.stopped) == 1 {
		return fmt.Errorf("worker pool stopped")
	}

	select {
	case wp.jobQueue <- job:
		atomic.AddInt32(&wp.activeJobs, 1)
		wp.statsMutex.Lock()
		wp.stats.TotalJobs++
		wp.statsMutex.Unlock()
		return nil
	case <-wp.ctx.Done():
		return wp.ctx.Err()
	}
}

// Results returns the result channel. It is closed by Close once every
// worker has exited.
func (wp *workerPool) Results() <-chan *FileResult {
	return wp.resultChan
}

// Close stops accepting jobs and closes Results after the queue drains.
func (wp *workerPool) Close() error {
	if !atomic.CompareAndSwapInt32(&wp.stopped, 0, 1) {
		return fmt.Errorf("worker pool already stopped")
	}
	close(wp.jobQueue)
	go func() {
		wp.wg.Wait()
		wp.cancel()
		close(wp.resultChan)
	}()
	return nil
}

// Stats returns a snapshot of the pool counters.
func (wp *workerPool) Stats() PoolStats {
	wp.statsMutex.RLock()
	defer wp.statsMutex.RUnlock()

	stats := wp.stats
	stats.ActiveJobs = int(atomic.LoadInt32(&wp.activeJobs))
	return stats
}

func (wp *workerPool) run(ctx context.Context, id int) {
	defer wp.wg.Done()

	for {
		select {
		case job, ok := <-wp.jobQueue:
			if !ok {
				return
			}
			result := wp.transform(ctx, job)
			result.WorkerID = id

			wp.statsMutex.Lock()
			if result.Err == nil {
				wp.stats.CompletedJobs++
			} else {
				wp.stats.FailedJobs++
			}
			wp.stats.TotalTime += result.Duration
			if done := wp.stats.CompletedJobs + wp.stats.FailedJobs; done > 0 {
				wp.stats.AverageTime = wp.stats.TotalTime / time.Duration(done)
			}
			wp.statsMutex.Unlock()
			atomic.AddInt32(&wp.activeJobs, -1)

			select {
			case wp.resultChan <- result:
			case <-ctx.Done():
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

// transformJob is the default TransformFunc: read, transform and write one
// file.
func transformJob(opts driver.Options) TransformFunc {
	return func(ctx context.Context, job *Job) *FileResult {
		start := time.Now()
		result := &FileResult{RelPath: job.RelPath, OutPath: job.OutPath}
		result.Report, result.Err = processFile(ctx, job, opts)
		result.Duration = time.Since(start)
		return result
	}
}

func processFile(ctx context.Context, job *Job, opts driver.Options) (*reconstruct.Report, error) {
	content, err := os.ReadFile(filepath.Join(job.Root, job.RelPath))
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	src := source.FromBatch(job.Root, job.RelPath, string(content))
	res, err := driver.Transform(ctx, src, opts)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(job.OutPath), 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(job.OutPath, []byte(res.Output), 0o644); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}
	return res.Report, nil
}
