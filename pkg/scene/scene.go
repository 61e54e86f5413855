package scene

import (
	"fmt"
	"time"

	"golang.org/x/image/colornames"

	"github.com/df07/go-sphere-pathtracer/pkg/core"
	"github.com/df07/go-sphere-pathtracer/pkg/geometry"
	"github.com/df07/go-sphere-pathtracer/pkg/material"
)

// Scene contains all the elements needed for rendering
type Scene struct {
	Camera         *geometry.Camera
	World          *geometry.HittableList // Objects in the scene
	TopColor       core.Color             // Sky color straight up
	BottomColor    core.Color             // Sky color straight down
	SamplingConfig SamplingConfig
	CameraConfig   geometry.CameraConfig
}

// SamplingConfig contains rendering configuration
type SamplingConfig struct {
	Width           int   // Image width
	Height          int   // Image height
	SamplesPerPixel int   // Number of rays per pixel
	MaxDepth        int   // Maximum ray bounce depth
	Seed            int64 // Base random seed (0 = seed from the clock)
}

// Validate reports configuration values the renderer cannot work with
func (c SamplingConfig) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("image size must be positive, got %dx%d", c.Width, c.Height)
	}
	if c.SamplesPerPixel <= 0 {
		return fmt.Errorf("samples per pixel must be positive, got %d", c.SamplesPerPixel)
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("max depth must not be negative, got %d", c.MaxDepth)
	}
	return nil
}

// MergeSamplingConfig returns base with every non-zero field of override applied
func MergeSamplingConfig(base, override SamplingConfig) SamplingConfig {
	result := base
	if override.Width != 0 {
		result.Width = override.Width
	}
	if override.Height != 0 {
		result.Height = override.Height
	}
	if override.SamplesPerPixel != 0 {
		result.SamplesPerPixel = override.SamplesPerPixel
	}
	if override.MaxDepth != 0 {
		result.MaxDepth = override.MaxDepth
	}
	if override.Seed != 0 {
		result.Seed = override.Seed
	}
	return result
}

// DefaultSkyColors returns the white-to-light-blue sky gradient endpoints
func DefaultSkyColors() (topColor, bottomColor core.Color) {
	return core.NewVec3(0.5, 0.7, 1.0), core.ColorFromRGBA(colornames.White)
}

// newScene builds a scene with the default sky around the given camera and sampling settings
func newScene(cameraConfig geometry.CameraConfig, samplingConfig SamplingConfig) *Scene {
	if samplingConfig.Width == 0 {
		samplingConfig.Width = cameraConfig.Width
	}
	if samplingConfig.Height == 0 {
		samplingConfig.Height = cameraConfig.ImageHeight()
	}
	top, bottom := DefaultSkyColors()
	return &Scene{
		Camera:         geometry.NewCamera(cameraConfig),
		World:          geometry.NewHittableList(),
		TopColor:       top,
		BottomColor:    bottom,
		SamplingConfig: samplingConfig,
		CameraConfig:   cameraConfig,
	}
}

// AddSphere adds a sphere with the given material to the scene
func (s *Scene) AddSphere(center core.Point3, radius float64, mat material.Material) {
	s.World.Add(geometry.NewSphere(center, radius, mat))
}

// GetBackgroundColors returns the sky gradient endpoints
func (s *Scene) GetBackgroundColors() (topColor, bottomColor core.Color) {
	return s.TopColor, s.BottomColor
}

// GetPrimitiveCount returns the total number of primitive objects in the scene
func (s *Scene) GetPrimitiveCount() int {
	return s.World.Len()
}

// WithCamera returns a copy of the scene viewed through a camera with the given overrides.
// Geometry and materials are shared.
func (s *Scene) WithCamera(override geometry.CameraConfig) *Scene {
	cameraConfig := geometry.MergeCameraConfig(s.CameraConfig, override)
	clone := *s
	clone.CameraConfig = cameraConfig
	clone.Camera = geometry.NewCamera(cameraConfig)
	if override.Width != 0 || override.AspectRatio != 0 {
		clone.SamplingConfig.Width = cameraConfig.Width
		clone.SamplingConfig.Height = cameraConfig.ImageHeight()
	}
	return &clone
}

// clockSeed returns a seed that differs between runs
func clockSeed() int64 {
	return time.Now().UnixNano()
}
