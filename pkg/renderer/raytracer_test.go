package renderer

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/df07/go-sphere-pathtracer/pkg/core"
	"github.com/df07/go-sphere-pathtracer/pkg/geometry"
	"github.com/df07/go-sphere-pathtracer/pkg/integrator"
	"github.com/df07/go-sphere-pathtracer/pkg/scene"
)

// createTestScene returns the ground sphere scene at a small size
func createTestScene(width, samples, depth int, seed int64) *scene.Scene {
	sc := scene.NewGroundSphereScene().WithCamera(geometry.CameraConfig{Width: width})
	sc.SamplingConfig.SamplesPerPixel = samples
	sc.SamplingConfig.MaxDepth = depth
	sc.SamplingConfig.Seed = seed
	return sc
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

func TestRenderSkyCornerPixel(t *testing.T) {
	sc := createTestScene(40, 1, 1, 7)
	rt, err := NewRaytracer(sc, Config{NumWorkers: 2})
	if err != nil {
		t.Fatalf("NewRaytracer failed: %v", err)
	}

	fb, stats, err := rt.Render(context.Background())
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if fb.Width != 40 || fb.Height != 22 {
		t.Fatalf("Expected 40x22 framebuffer, got %dx%d", fb.Width, fb.Height)
	}
	if stats.TotalSamples != 40*22 {
		t.Errorf("Expected %d samples, got %d", 40*22, stats.TotalSamples)
	}

	// The top-left pixel looks up and left, away from every sphere
	pathTracer := integrator.NewPathTracingIntegrator(sc.SamplingConfig)
	cornerRay := sc.Camera.GetRay(0, 1, nil)
	expected := QuantizeColor(pathTracer.RayColor(cornerRay, sc, nil))
	got := QuantizeColor(fb.ColorAt(0, 0))

	if absDiff(got.R, expected.R) > 3 || absDiff(got.G, expected.G) > 3 || absDiff(got.B, expected.B) > 3 {
		t.Errorf("Expected sky color near %v, got %v", expected, got)
	}
	if got.B != 255 || !(got.R < got.G && got.G < got.B) {
		t.Errorf("Expected a blue-white sky pixel, got %v", got)
	}

	// With one bounce, anything that hits geometry has no budget left to reach the sky
	bottom := QuantizeColor(fb.ColorAt(fb.Width/2, fb.Height-1))
	if bottom.R != 0 || bottom.G != 0 || bottom.B != 0 {
		t.Errorf("Expected black ground pixel at depth 1, got %v", bottom)
	}
}

func TestRenderDeterministicAcrossWorkerCounts(t *testing.T) {
	render := func(workers int) *Framebuffer {
		rt, err := NewRaytracer(createTestScene(16, 2, 5, 99), Config{NumWorkers: workers})
		if err != nil {
			t.Fatalf("NewRaytracer failed: %v", err)
		}
		fb, _, err := rt.Render(context.Background())
		if err != nil {
			t.Fatalf("Render failed: %v", err)
		}
		return fb
	}

	a := render(1)
	b := render(4)
	for i := range a.Pixels {
		if a.Pixels[i] != b.Pixels[i] {
			t.Fatalf("Pixel %d differs between worker counts: %v vs %v", i, a.Pixels[i], b.Pixels[i])
		}
	}
}

func TestRenderStatsWorkers(t *testing.T) {
	tests := []struct {
		name    string
		workers int
	}{
		{"single worker", 1},
		{"three workers", 3},
		{"more workers than rows", 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt, err := NewRaytracer(createTestScene(16, 1, 1, 5), Config{NumWorkers: tt.workers})
			if err != nil {
				t.Fatalf("NewRaytracer failed: %v", err)
			}
			fb, stats, err := rt.Render(context.Background())
			if err != nil {
				t.Fatalf("Render failed: %v", err)
			}
			if expected := min(tt.workers, fb.Height); stats.Workers != expected {
				t.Errorf("Expected %d workers in stats, got %d", expected, stats.Workers)
			}
		})
	}
}

func TestRenderEveryRowOnce(t *testing.T) {
	sc := createTestScene(20, 1, 2, 3)
	var mu sync.Mutex
	seen := make(map[int]int)
	var lastDone int

	rt, err := NewRaytracer(sc, Config{
		NumWorkers: 3,
		OnRowComplete: func(p RowProgress) {
			mu.Lock()
			defer mu.Unlock()
			seen[p.Row]++
			lastDone = p.RowsDone
		},
	})
	if err != nil {
		t.Fatalf("NewRaytracer failed: %v", err)
	}

	fb, stats, err := rt.Render(context.Background())
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	if len(seen) != fb.Height || lastDone != fb.Height || stats.RowsRendered != fb.Height {
		t.Fatalf("Expected %d rows, saw %d (last done %d, stats %d)", fb.Height, len(seen), lastDone, stats.RowsRendered)
	}
	for row, count := range seen {
		if count != 1 {
			t.Errorf("Row %d completed %d times", row, count)
		}
	}
	for i, ps := range fb.Pixels {
		if ps.SampleCount != 1 {
			t.Fatalf("Pixel %d has %d samples, expected 1", i, ps.SampleCount)
		}
	}
}

func TestRenderCancelled(t *testing.T) {
	rt, err := NewRaytracer(createTestScene(20, 1, 2, 3), Config{NumWorkers: 2})
	if err != nil {
		t.Fatalf("NewRaytracer failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := rt.Render(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestNewRaytracerInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		modify func(sc *scene.Scene)
		config Config
	}{
		{"zero samples", func(sc *scene.Scene) { sc.SamplingConfig.SamplesPerPixel = 0 }, Config{}},
		{"negative depth", func(sc *scene.Scene) { sc.SamplingConfig.MaxDepth = -1 }, Config{}},
		{"zero width", func(sc *scene.Scene) { sc.SamplingConfig.Width = 0 }, Config{}},
		{"no camera", func(sc *scene.Scene) { sc.Camera = nil }, Config{}},
		{"negative workers", func(sc *scene.Scene) {}, Config{NumWorkers: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := createTestScene(10, 1, 1, 1)
			tt.modify(sc)
			if _, err := NewRaytracer(sc, tt.config); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestNewRaytracerZeroDepthIsValid(t *testing.T) {
	rt, err := NewRaytracer(createTestScene(8, 1, 0, 1), Config{NumWorkers: 1})
	if err != nil {
		t.Fatalf("Expected depth 0 to be accepted, got %v", err)
	}
	fb, _, err := rt.Render(context.Background())
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	for i := range fb.Pixels {
		if c := fb.Pixels[i].GetColor(); c != (core.Vec3{}) {
			t.Fatalf("Expected black image at depth 0, pixel %d is %v", i, c)
		}
	}
}

// constantIntegrator returns the same color for every ray
type constantIntegrator struct {
	color core.Color
}

func (c constantIntegrator) RayColor(ray core.Ray, sc *scene.Scene, sampler core.Sampler) core.Color {
	return c.color
}

func TestRenderRowAveragesSamples(t *testing.T) {
	rt, err := NewRaytracer(createTestScene(4, 8, 1, 1), Config{NumWorkers: 1})
	if err != nil {
		t.Fatalf("NewRaytracer failed: %v", err)
	}
	rt.SetIntegrator(constantIntegrator{color: core.NewVec3(1, 0.25, 0)})

	pixels := make([]PixelStats, 4)
	samples := rt.RenderRow(0, pixels, core.NewSeededSampler(1))
	if samples != 32 {
		t.Errorf("Expected 32 samples, got %d", samples)
	}

	got := QuantizeColor(pixels[2].GetColor())
	if got.R != 255 || got.G != 128 || got.B != 0 {
		t.Errorf("Expected (255, 128, 0), got %v", got)
	}
}
