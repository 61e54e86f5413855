package integrator

import (
	"math"

	"github.com/df07/go-sphere-pathtracer/pkg/core"
	"github.com/df07/go-sphere-pathtracer/pkg/scene"
)

// ShadowAcneEpsilon is the lower bound of the hit interval; it keeps a scattered
// ray from re-hitting the surface it just left
const ShadowAcneEpsilon = 0.001

// PathTracingIntegrator implements unidirectional path tracing
type PathTracingIntegrator struct {
	config scene.SamplingConfig
}

// NewPathTracingIntegrator creates a new path tracing integrator
func NewPathTracingIntegrator(config scene.SamplingConfig) *PathTracingIntegrator {
	return &PathTracingIntegrator{
		config: config,
	}
}

// RayColor computes the color for a single ray, bouncing it through the scene
// until it escapes, is absorbed, or MaxDepth bounces are used up
func (pt *PathTracingIntegrator) RayColor(ray core.Ray, scene *scene.Scene, sampler core.Sampler) core.Color {
	throughput := core.NewVec3(1, 1, 1)

	for depth := pt.config.MaxDepth; depth > 0; depth-- {
		hit, isHit := scene.World.Hit(ray, ShadowAcneEpsilon, math.Inf(1))
		if !isHit {
			return throughput.MultiplyVec(pt.backgroundGradient(ray, scene))
		}

		scatter, didScatter := hit.Material.Scatter(ray, *hit, sampler)
		if !didScatter {
			// Material absorbed the ray
			return core.Vec3{}
		}

		throughput = throughput.MultiplyVec(scatter.Attenuation)
		ray = scatter.Scattered
	}

	// Bounce limit exceeded, no more light is gathered
	return core.Vec3{}
}

// backgroundGradient returns a gradient color based on ray direction
func (pt *PathTracingIntegrator) backgroundGradient(r core.Ray, scene *scene.Scene) core.Color {
	topColor, bottomColor := scene.GetBackgroundColors()

	unitDirection := r.Direction.Normalize()

	// Map y from [-1,1] to [0,1]
	t := 0.5 * (unitDirection.Y + 1.0)

	return bottomColor.Lerp(topColor, t)
}
