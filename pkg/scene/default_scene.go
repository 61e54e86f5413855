package scene

import (
	"golang.org/x/image/colornames"

	"github.com/df07/go-sphere-pathtracer/pkg/core"
	"github.com/df07/go-sphere-pathtracer/pkg/geometry"
	"github.com/df07/go-sphere-pathtracer/pkg/material"
)

// NewDefaultScene creates a default scene with spheres, ground, and camera
func NewDefaultScene(cameraOverrides ...geometry.CameraConfig) *Scene {
	defaultCameraConfig := geometry.CameraConfig{
		Center:        core.NewVec3(0, 0.75, 2), // Position camera higher and farther back
		LookAt:        core.NewVec3(0, 0.5, -1), // Look at the sphere center
		Up:            core.NewVec3(0, 1, 0),
		Width:         400,
		AspectRatio:   16.0 / 9.0,
		VFov:          40.0,
		Aperture:      0.05,
		FocusDistance: 0.0, // Auto-calculate focus distance
	}

	cameraConfig := defaultCameraConfig
	if len(cameraOverrides) > 0 {
		cameraConfig = geometry.MergeCameraConfig(defaultCameraConfig, cameraOverrides[0])
	}

	s := newScene(cameraConfig, SamplingConfig{
		SamplesPerPixel: 200,
		MaxDepth:        50,
	})

	lambertianGreen := material.NewLambertian(core.NewVec3(0.8, 0.8, 0.0).Multiply(0.6))
	lambertianRed := material.NewLambertian(core.NewVec3(0.65, 0.25, 0.2))
	lambertianBlue := material.NewLambertian(core.ColorFromRGBA(colornames.Steelblue))
	metalSilver := material.NewMetal(core.ColorFromRGBA(colornames.Silver), 0.0)
	metalGold := material.NewMetal(core.NewVec3(0.8, 0.6, 0.2), 0.3)
	materialGlass := material.NewDielectric(1.5)

	// Ground is a very large sphere
	s.AddSphere(core.NewVec3(0, -1000, -1), 1000, lambertianGreen)

	s.AddSphere(core.NewVec3(0, 0.5, -1), 0.5, lambertianRed)
	s.AddSphere(core.NewVec3(-1, 0.5, -1), 0.5, metalSilver)
	s.AddSphere(core.NewVec3(1, 0.5, -1), 0.5, metalGold)
	s.AddSphere(core.NewVec3(0.5, 0.25, -0.5), 0.25, materialGlass)
	s.AddSphere(core.NewVec3(-0.5, 0.2, -0.5), 0.2, lambertianBlue)

	return s
}
