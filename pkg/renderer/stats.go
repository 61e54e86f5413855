package renderer

import (
	"time"

	"github.com/df07/go-sphere-pathtracer/pkg/core"
)

// RenderStats contains statistics about the rendering process
type RenderStats struct {
	Width          int           // Image width in pixels
	Height         int           // Image height in pixels
	TotalPixels    int           // Total number of pixels rendered
	TotalSamples   int           // Total number of samples taken
	AverageSamples float64       // Average samples per pixel
	RowsRendered   int           // Scanlines completed
	Workers        int           // Number of parallel workers used
	Elapsed        time.Duration // Wall-clock render time
}

// SamplesPerSecond returns the sample throughput of the render
func (s RenderStats) SamplesPerSecond() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.TotalSamples) / s.Elapsed.Seconds()
}

// PixelStats accumulates the samples taken for a single pixel
type PixelStats struct {
	ColorAccum  core.Color // RGB accumulator for final result
	SampleCount int        // Number of samples taken
}

// AddSample adds a new color sample to the pixel statistics
func (ps *PixelStats) AddSample(color core.Color) {
	ps.ColorAccum = ps.ColorAccum.Add(color)
	ps.SampleCount++
}

// GetColor returns the current average color for this pixel
func (ps *PixelStats) GetColor() core.Color {
	if ps.SampleCount == 0 {
		return core.Vec3{}
	}
	return ps.ColorAccum.Multiply(1.0 / float64(ps.SampleCount))
}
