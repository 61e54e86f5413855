package renderer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/df07/go-sphere-pathtracer/pkg/core"
	"github.com/df07/go-sphere-pathtracer/pkg/hostinfo"
	"github.com/df07/go-sphere-pathtracer/pkg/integrator"
	"github.com/df07/go-sphere-pathtracer/pkg/scene"
)

// ErrInvalidConfig is returned when a render cannot start with the given settings
var ErrInvalidConfig = errors.New("invalid render configuration")

// Config contains render driver settings
type Config struct {
	NumWorkers int         // Number of parallel workers (0 = logical CPU count)
	Logger     core.Logger // Progress and timing output (nil = discard)

	// OnRowComplete is called once per finished scanline from the goroutine running Render
	OnRowComplete func(RowProgress)
}

// RowProgress describes a completed scanline
type RowProgress struct {
	Row       int // Output row that finished
	RowsDone  int // Rows completed so far, including this one
	TotalRows int
}

// Raytracer renders a scene into a framebuffer
type Raytracer struct {
	scene      *scene.Scene
	integrator integrator.Integrator
	sampling   scene.SamplingConfig
	config     Config
	logger     core.Logger
}

// NewRaytracer creates a new raytracer for the scene using the scene's sampling configuration
func NewRaytracer(sc *scene.Scene, config Config) (*Raytracer, error) {
	if sc == nil || sc.Camera == nil || sc.World == nil {
		return nil, fmt.Errorf("%w: scene is missing a camera or world", ErrInvalidConfig)
	}
	if err := sc.SamplingConfig.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if config.NumWorkers < 0 {
		return nil, fmt.Errorf("%w: worker count must not be negative, got %d", ErrInvalidConfig, config.NumWorkers)
	}
	if config.NumWorkers == 0 {
		config.NumWorkers = hostinfo.LogicalCores()
	}

	logger := config.Logger
	if logger == nil {
		logger = core.NopLogger{}
	}

	return &Raytracer{
		scene:      sc,
		integrator: integrator.NewPathTracingIntegrator(sc.SamplingConfig),
		sampling:   sc.SamplingConfig,
		config:     config,
		logger:     logger,
	}, nil
}

// SetIntegrator replaces the light transport algorithm
func (rt *Raytracer) SetIntegrator(integ integrator.Integrator) {
	rt.integrator = integ
}

// RenderRow renders output row y (0 is the top) into pixels and returns the samples taken
func (rt *Raytracer) RenderRow(y int, pixels []PixelStats, sampler core.Sampler) int {
	width, height := rt.sampling.Width, rt.sampling.Height
	camera := rt.scene.Camera

	// Image-space row counted from the bottom, so v grows upward
	j := float64(height - 1 - y)
	uScale := 1.0 / float64(max(width-1, 1))
	vScale := 1.0 / float64(max(height-1, 1))

	samples := 0
	for i := 0; i < width; i++ {
		ps := &pixels[i]
		for s := 0; s < rt.sampling.SamplesPerPixel; s++ {
			u := (float64(i) + sampler.Get1D()) * uScale
			v := (j + sampler.Get1D()) * vScale

			ray := camera.GetRay(u, v, sampler)
			ps.AddSample(rt.integrator.RayColor(ray, rt.scene, sampler))
			samples++
		}
	}
	return samples
}

// Render renders every scanline in parallel and returns the filled framebuffer.
// Rendering stops early with ctx's error if ctx is cancelled.
func (rt *Raytracer) Render(ctx context.Context) (*Framebuffer, RenderStats, error) {
	width, height := rt.sampling.Width, rt.sampling.Height

	if err := hostinfo.CheckFramebufferBudget(FramebufferBytes(width, height)); err != nil {
		return nil, RenderStats{}, fmt.Errorf("cannot allocate %dx%d framebuffer: %w", width, height, err)
	}
	fb := NewFramebuffer(width, height)

	seed := rt.sampling.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	workers := min(rt.config.NumWorkers, height)
	rt.logger.Printf("Rendering %dx%d, %d samples per pixel, max depth %d (using %d workers)...\n",
		width, height, rt.sampling.SamplesPerPixel, rt.sampling.MaxDepth, workers)

	startTime := time.Now()
	pool := NewWorkerPool(rt, fb, workers)
	pool.Start(ctx)

	for row := 0; row < height; row++ {
		pool.SubmitTask(RowTask{Row: row, Seed: seed + int64(row)})
	}

	stats := RenderStats{
		Width:       width,
		Height:      height,
		TotalPixels: width * height,
		Workers:     pool.GetNumWorkers(),
	}

	// Collect results and dispatch callbacks from this goroutine only
	var firstErr error
	nextReport := 1
	for i := 0; i < height; i++ {
		result, ok := pool.GetResult()
		if !ok {
			firstErr = fmt.Errorf("worker pool closed unexpectedly")
			break
		}
		if result.Error != nil {
			if firstErr == nil {
				firstErr = result.Error
			}
			continue
		}

		stats.RowsRendered++
		stats.TotalSamples += result.Samples

		if rt.config.OnRowComplete != nil {
			rt.config.OnRowComplete(RowProgress{
				Row:       result.Row,
				RowsDone:  stats.RowsRendered,
				TotalRows: height,
			})
		}

		// Log progress in 10% steps
		if stats.RowsRendered*10 >= nextReport*height {
			rt.logger.Printf("Scanlines remaining: %d\n", height-stats.RowsRendered)
			nextReport = stats.RowsRendered*10/height + 1
		}
	}
	pool.Stop()

	stats.Elapsed = time.Since(startTime)
	if stats.TotalPixels > 0 {
		stats.AverageSamples = float64(stats.TotalSamples) / float64(stats.TotalPixels)
	}

	if firstErr != nil {
		return nil, stats, fmt.Errorf("render aborted after %d of %d rows: %w", stats.RowsRendered, height, firstErr)
	}

	rt.logger.Printf("Render completed in %v (%.0f samples/sec)\n", stats.Elapsed, stats.SamplesPerSecond())
	return fb, stats, nil
}
