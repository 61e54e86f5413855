package renderer

import (
	"context"
	"sync"

	"github.com/df07/go-sphere-pathtracer/pkg/core"
)

// RowTask represents one scanline for the worker pool
type RowTask struct {
	Row  int   // Output row, 0 is the top of the image
	Seed int64 // Seed for this row's sampler
}

// RowResult contains the result from rendering a scanline
type RowResult struct {
	Row     int
	Samples int
	Error   error
}

// WorkerPool manages parallel scanline rendering
type WorkerPool struct {
	taskQueue   chan RowTask
	resultQueue chan RowResult
	workers     []*Worker
	numWorkers  int
	wg          sync.WaitGroup
}

// Worker handles individual scanline tasks
type Worker struct {
	ID          int
	raytracer   *Raytracer
	framebuffer *Framebuffer
	taskQueue   chan RowTask
	resultQueue chan RowResult
}

// NewWorkerPool creates a worker pool writing into fb.
// Queues are sized to hold one task per row so submission never blocks.
func NewWorkerPool(rt *Raytracer, fb *Framebuffer, numWorkers int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = 1
	}

	wp := &WorkerPool{
		taskQueue:   make(chan RowTask, fb.Height),
		resultQueue: make(chan RowResult, fb.Height),
		numWorkers:  numWorkers,
	}

	for i := 0; i < numWorkers; i++ {
		wp.workers = append(wp.workers, &Worker{
			ID:          i,
			raytracer:   rt,
			framebuffer: fb,
			taskQueue:   wp.taskQueue,
			resultQueue: wp.resultQueue,
		})
	}

	return wp
}

// Start begins all workers. Tasks picked up after ctx is done are
// reported back with ctx's error instead of being rendered.
func (wp *WorkerPool) Start(ctx context.Context) {
	for _, worker := range wp.workers {
		wp.wg.Add(1)
		go worker.run(ctx, &wp.wg)
	}
}

// Stop gracefully shuts down all workers
func (wp *WorkerPool) Stop() {
	close(wp.taskQueue) // No more tasks
	wp.wg.Wait()        // Wait for workers to finish
	close(wp.resultQueue)
}

// SubmitTask submits a row task to the worker pool
func (wp *WorkerPool) SubmitTask(task RowTask) {
	wp.taskQueue <- task
}

// GetResult retrieves a completed row result
func (wp *WorkerPool) GetResult() (RowResult, bool) {
	result, ok := <-wp.resultQueue
	return result, ok
}

// GetNumWorkers returns the number of workers in the pool
func (wp *WorkerPool) GetNumWorkers() int {
	return wp.numWorkers
}

// run is the main worker loop
func (w *Worker) run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	for task := range w.taskQueue {
		if err := ctx.Err(); err != nil {
			w.resultQueue <- RowResult{Row: task.Row, Error: err}
			continue
		}

		// Each row has its own sampler, so output does not depend on which worker ran it.
		// Rows never overlap, so writing to the shared framebuffer is safe.
		sampler := core.NewSeededSampler(task.Seed)
		samples := w.raytracer.RenderRow(task.Row, w.framebuffer.Row(task.Row), sampler)

		w.resultQueue <- RowResult{
			Row:     task.Row,
			Samples: samples,
		}
	}
}
