package geometry

import (
	"math"
	"math/rand"
	"testing"

	"github.com/df07/go-sphere-pathtracer/pkg/core"
)

func testCameraConfig() CameraConfig {
	return CameraConfig{
		Center:      core.NewVec3(0, 0, 0),
		LookAt:      core.NewVec3(0, 0, -1),
		Up:          core.NewVec3(0, 1, 0),
		Width:       400,
		AspectRatio: 2.0,
		VFov:        90.0,
	}
}

func TestCameraGetCameraForward(t *testing.T) {
	camera := NewCamera(testCameraConfig())

	forward := camera.GetCameraForward()
	expected := core.NewVec3(0, 0, -1)
	if forward.Subtract(expected).Length() > 1e-9 {
		t.Errorf("Expected forward direction %v, got %v", expected, forward)
	}
}

func TestCameraGetRay_Pinhole(t *testing.T) {
	camera := NewCamera(testCameraConfig())
	sampler := core.NewRandomSampler(rand.New(rand.NewSource(42)))

	tests := []struct {
		name     string
		s, t     float64
		expected core.Vec3
	}{
		// vfov 90 at focus distance 1 gives viewport height 2, width 4
		{"center", 0.5, 0.5, core.NewVec3(0, 0, -1)},
		{"lower left", 0, 0, core.NewVec3(-2, -1, -1)},
		{"upper right", 1, 1, core.NewVec3(2, 1, -1)},
		{"upper left", 0, 1, core.NewVec3(-2, 1, -1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ray := camera.GetRay(tt.s, tt.t, sampler)
			if ray.Origin != (core.Vec3{}) {
				t.Errorf("Pinhole ray should start at the eye, got %v", ray.Origin)
			}
			if ray.Direction.Subtract(tt.expected).Length() > 1e-9 {
				t.Errorf("Expected direction %v, got %v", tt.expected, ray.Direction)
			}
		})
	}
}

func TestCameraGetRay_DepthOfField(t *testing.T) {
	config := testCameraConfig()
	config.Aperture = 0.5
	config.FocusDistance = 3.0
	camera := NewCamera(config)
	sampler := core.NewRandomSampler(rand.New(rand.NewSource(42)))

	focusPoint := core.NewVec3(0, 0, -3)
	for i := 0; i < 100; i++ {
		ray := camera.GetRay(0.5, 0.5, sampler)

		// Origin stays on the lens disk in the camera plane
		if ray.Origin.Z != 0 || ray.Origin.Length() > 0.25+1e-12 {
			t.Fatalf("Lens origin %v outside aperture", ray.Origin)
		}
		// Every lens sample converges on the focus plane
		if ray.At(1.0).Subtract(focusPoint).Length() > 1e-9 {
			t.Fatalf("Ray %v does not pass through focus point %v", ray, focusPoint)
		}
	}
}

func TestCameraAutoFocusDistance(t *testing.T) {
	config := testCameraConfig()
	config.LookAt = core.NewVec3(0, 0, -4)
	camera := NewCamera(config)

	ray := camera.GetRay(0.5, 0.5, nil)
	if math.Abs(ray.Direction.Length()-4.0) > 1e-9 {
		t.Errorf("Expected focus plane at distance 4, got %f", ray.Direction.Length())
	}
}

func TestMergeCameraConfig(t *testing.T) {
	base := testCameraConfig()
	merged := MergeCameraConfig(base, CameraConfig{Width: 800, Aperture: 0.1})

	if merged.Width != 800 || merged.Aperture != 0.1 {
		t.Errorf("Override fields not applied: %+v", merged)
	}
	if merged.VFov != base.VFov || merged.Center != base.Center {
		t.Errorf("Unset override fields should keep base values: %+v", merged)
	}
}

func TestCameraConfigImageHeight(t *testing.T) {
	config := CameraConfig{Width: 1200, AspectRatio: 3.0 / 2.0}
	if config.ImageHeight() != 800 {
		t.Errorf("Expected height 800, got %d", config.ImageHeight())
	}
}
