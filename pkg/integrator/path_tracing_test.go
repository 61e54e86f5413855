package integrator

import (
	"math"
	"math/rand"
	"testing"

	"github.com/df07/go-sphere-pathtracer/pkg/core"
	"github.com/df07/go-sphere-pathtracer/pkg/geometry"
	"github.com/df07/go-sphere-pathtracer/pkg/material"
	"github.com/df07/go-sphere-pathtracer/pkg/scene"
)

// createTestScene creates a simple scene with a single sphere
func createTestScene(mat material.Material) *scene.Scene {
	top, bottom := scene.DefaultSkyColors()
	return &scene.Scene{
		World:       geometry.NewHittableList(geometry.NewSphere(core.NewVec3(0, 0, -1), 0.5, mat)),
		TopColor:    top,
		BottomColor: bottom,
	}
}

// absorber is a material that never scatters
type absorber struct{}

func (absorber) Scatter(rayIn core.Ray, hit material.HitRecord, sampler core.Sampler) (material.ScatterResult, bool) {
	return material.ScatterResult{}, false
}

// TestPathTracingDepthTermination tests that ray depth is properly limited
func TestPathTracingDepthTermination(t *testing.T) {
	sc := createTestScene(material.NewLambertian(core.NewVec3(0.7, 0.3, 0.3)))
	sampler := core.NewRandomSampler(rand.New(rand.NewSource(42)))

	rays := []core.Ray{
		core.NewRay(core.NewVec3(0, 0, 0), core.NewVec3(0, 0, -1)), // hits the sphere
		core.NewRay(core.NewVec3(0, 0, 0), core.NewVec3(0, 1, 0)),  // escapes to the sky
	}

	integrator := NewPathTracingIntegrator(scene.SamplingConfig{MaxDepth: 0})
	for _, ray := range rays {
		if c := integrator.RayColor(ray, sc, sampler); c != (core.Vec3{}) {
			t.Errorf("Expected black color for depth 0, got %v", c)
		}
	}

	integrator = NewPathTracingIntegrator(scene.SamplingConfig{MaxDepth: 3})
	if c := integrator.RayColor(rays[0], sc, sampler); c == (core.Vec3{}) {
		t.Error("Expected non-black color for positive depth")
	}
}

func TestPathTracingSkyGradient(t *testing.T) {
	sc := createTestScene(material.NewLambertian(core.NewVec3(0.5, 0.5, 0.5)))
	integrator := NewPathTracingIntegrator(scene.SamplingConfig{MaxDepth: 1})

	tests := []struct {
		name      string
		direction core.Vec3
		expected  core.Color
	}{
		{"straight up", core.NewVec3(0, 1, 0), core.NewVec3(0.5, 0.7, 1.0)},
		{"straight down", core.NewVec3(0, -1, 0), core.NewVec3(1, 1, 1)},
		{"horizon", core.NewVec3(1, 0, 0), core.NewVec3(0.75, 0.85, 1.0)},
		{"unnormalized up", core.NewVec3(0, 5, 0), core.NewVec3(0.5, 0.7, 1.0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ray := core.NewRay(core.NewVec3(0, 0, 0), tt.direction)
			c := integrator.RayColor(ray, sc, nil)
			if c.Subtract(tt.expected).Length() > 1e-12 {
				t.Errorf("Expected %v, got %v", tt.expected, c)
			}
		})
	}
}

func TestPathTracingAbsorbedRayIsBlack(t *testing.T) {
	sc := createTestScene(absorber{})
	integrator := NewPathTracingIntegrator(scene.SamplingConfig{MaxDepth: 10})
	ray := core.NewRay(core.NewVec3(0, 0, 0), core.NewVec3(0, 0, -1))

	if c := integrator.RayColor(ray, sc, nil); c != (core.Vec3{}) {
		t.Errorf("Expected black for absorbed ray, got %v", c)
	}
}

func TestPathTracingMirrorAttenuatesSky(t *testing.T) {
	albedo := core.NewVec3(0.8, 0.6, 0.4)
	sc := createTestScene(material.NewMetal(albedo, 0))
	integrator := NewPathTracingIntegrator(scene.SamplingConfig{MaxDepth: 5})

	// Head-on hit reflects straight back toward +Z, which escapes at the horizon
	ray := core.NewRay(core.NewVec3(0, 0, 0), core.NewVec3(0, 0, -1))
	c := integrator.RayColor(ray, sc, core.NewRandomSampler(rand.New(rand.NewSource(1))))

	expected := albedo.MultiplyVec(core.NewVec3(0.75, 0.85, 1.0))
	if c.Subtract(expected).Length() > 1e-9 {
		t.Errorf("Expected %v, got %v", expected, c)
	}
}

func TestPathTracingDepthOneHitIsBlack(t *testing.T) {
	sc := createTestScene(material.NewMetal(core.NewVec3(1, 1, 1), 0))
	integrator := NewPathTracingIntegrator(scene.SamplingConfig{MaxDepth: 1})

	// One bounce is spent on the hit; the reflected ray has no budget left
	ray := core.NewRay(core.NewVec3(0, 0, 0), core.NewVec3(0, 0, -1))
	if c := integrator.RayColor(ray, sc, nil); c != (core.Vec3{}) {
		t.Errorf("Expected black, got %v", c)
	}
}

func TestPathTracingEnergyBounded(t *testing.T) {
	sc := createTestScene(material.NewLambertian(core.NewVec3(0.9, 0.9, 0.9)))
	integrator := NewPathTracingIntegrator(scene.SamplingConfig{MaxDepth: 50})
	sampler := core.NewRandomSampler(rand.New(rand.NewSource(3)))

	for i := 0; i < 200; i++ {
		ray := core.NewRay(core.NewVec3(0, 0, 0), core.NewVec3(0, 0, -1))
		c := integrator.RayColor(ray, sc, sampler)
		for _, v := range []float64{c.X, c.Y, c.Z} {
			if v < 0 || v > 1 || math.IsNaN(v) {
				t.Fatalf("Radiance %v outside [0,1]", c)
			}
		}
	}
}
