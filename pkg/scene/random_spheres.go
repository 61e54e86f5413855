package scene

import (
	"golang.org/x/image/colornames"

	"github.com/df07/go-sphere-pathtracer/pkg/core"
	"github.com/df07/go-sphere-pathtracer/pkg/geometry"
	"github.com/df07/go-sphere-pathtracer/pkg/material"
)

// NewRandomSpheresScene creates the classic cover scene: a huge ground sphere, a grid of
// small randomly placed spheres and three large feature spheres.
// seed fixes the layout; 0 gives a fresh layout every call.
func NewRandomSpheresScene(seed int64, cameraOverrides ...geometry.CameraConfig) *Scene {
	defaultCameraConfig := geometry.CameraConfig{
		Center:        core.NewVec3(13, 2, 3),
		LookAt:        core.NewVec3(0, 0, 0),
		Up:            core.NewVec3(0, 1, 0),
		Width:         1200,
		AspectRatio:   3.0 / 2.0,
		VFov:          20.0,
		Aperture:      0.1,
		FocusDistance: 10.0,
	}

	cameraConfig := defaultCameraConfig
	if len(cameraOverrides) > 0 {
		cameraConfig = geometry.MergeCameraConfig(defaultCameraConfig, cameraOverrides[0])
	}

	s := newScene(cameraConfig, SamplingConfig{
		SamplesPerPixel: 500,
		MaxDepth:        50,
	})

	sampler := newLayoutSampler(seed)

	groundMaterial := material.NewLambertian(core.NewVec3(0.5, 0.5, 0.5))
	s.AddSphere(core.NewVec3(0, -1000, -1), 1000, groundMaterial)

	clearance := core.NewVec3(4, 0.2, 0)
	for a := -11; a < 11; a++ {
		for b := -11; b < 11; b++ {
			chooseMat := sampler.Get1D()
			center := core.NewVec3(float64(a)+0.9*sampler.Get1D(), 0.2, float64(b)+0.9*sampler.Get1D())

			// Keep the area around the metal feature sphere clear
			if center.Subtract(clearance).Length() <= 0.9 {
				continue
			}

			var mat material.Material
			switch {
			case chooseMat < 0.8:
				albedo := core.RandomVec(sampler).MultiplyVec(core.RandomVec(sampler))
				mat = material.NewLambertian(albedo)
			case chooseMat < 0.95:
				albedo := core.RandomVecRange(sampler, 0.5, 1)
				fuzz := core.RandomRange(sampler, 0, 0.5)
				mat = material.NewMetal(albedo, fuzz)
			default:
				mat = material.NewDielectric(1.5)
			}
			s.AddSphere(center, 0.2, mat)
		}
	}

	s.AddSphere(core.NewVec3(0, 1, 0), 1.0, material.NewDielectric(1.5))
	s.AddSphere(core.NewVec3(-4, 1, 0), 1.0, material.NewLambertian(core.NewVec3(0.4, 0.2, 0.1)))
	s.AddSphere(core.NewVec3(4, 1, 0), 1.0, material.NewMetal(core.NewVec3(0.7, 0.6, 0.5), 0.0))

	return s
}

// NewGroundSphereScene creates a minimal scene: a ground sphere and one diffuse sphere
// in front of a pinhole camera.
func NewGroundSphereScene(cameraOverrides ...geometry.CameraConfig) *Scene {
	defaultCameraConfig := geometry.CameraConfig{
		Center:      core.NewVec3(0, 0, 0),
		LookAt:      core.NewVec3(0, 0, -1),
		Up:          core.NewVec3(0, 1, 0),
		Width:       400,
		AspectRatio: 16.0 / 9.0,
		VFov:        90.0,
	}

	cameraConfig := defaultCameraConfig
	if len(cameraOverrides) > 0 {
		cameraConfig = geometry.MergeCameraConfig(defaultCameraConfig, cameraOverrides[0])
	}

	s := newScene(cameraConfig, SamplingConfig{
		SamplesPerPixel: 100,
		MaxDepth:        50,
	})

	s.AddSphere(core.NewVec3(0, -100.5, -1), 100, material.NewLambertian(core.ColorFromRGBA(colornames.Olive)))
	s.AddSphere(core.NewVec3(0, 0, -1), 0.5, material.NewLambertian(core.ColorFromRGBA(colornames.Indianred)))

	return s
}

// layoutSeedSalt keeps the layout stream apart from the per-row pixel
// streams, which are seeded with seed+row.
const layoutSeedSalt int64 = 0x5eed1a40

// newLayoutSampler returns the sampler used to place random scene content
func newLayoutSampler(seed int64) core.Sampler {
	if seed == 0 {
		seed = clockSeed()
	}
	return core.NewSeededSampler(seed ^ layoutSeedSalt)
}
