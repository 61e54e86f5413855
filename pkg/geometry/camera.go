package geometry

import (
	"math"

	"github.com/df07/go-sphere-pathtracer/pkg/core"
)

// CameraConfig contains the view parameters a Camera is derived from
type CameraConfig struct {
	Center        core.Vec3 // Eye position
	LookAt        core.Vec3 // Point the camera looks at
	Up            core.Vec3 // Up direction
	Width         int       // Image width in pixels
	AspectRatio   float64   // Width / height
	VFov          float64   // Vertical field of view in degrees
	Aperture      float64   // Lens diameter (0 = pinhole)
	FocusDistance float64   // Distance to the focus plane (0 = auto-calculate)
}

// Camera generates rays for rendering
type Camera struct {
	origin          core.Vec3
	lowerLeftCorner core.Vec3
	horizontal      core.Vec3
	vertical        core.Vec3
	u, v, w         core.Vec3
	lensRadius      float64
}

// NewCamera creates a camera from the given configuration
func NewCamera(config CameraConfig) *Camera {
	theta := config.VFov * math.Pi / 180
	h := math.Tan(theta / 2)
	viewportHeight := 2.0 * h
	viewportWidth := config.AspectRatio * viewportHeight

	// Orthonormal basis: w points away from the view direction
	w := config.Center.Subtract(config.LookAt).Normalize()
	u := config.Up.Cross(w).Normalize()
	v := w.Cross(u)

	focusDistance := config.FocusDistance
	if focusDistance <= 0 {
		focusDistance = config.Center.Subtract(config.LookAt).Length()
	}

	origin := config.Center
	horizontal := u.Multiply(focusDistance * viewportWidth)
	vertical := v.Multiply(focusDistance * viewportHeight)
	lowerLeftCorner := origin.
		Subtract(horizontal.Multiply(0.5)).
		Subtract(vertical.Multiply(0.5)).
		Subtract(w.Multiply(focusDistance))

	return &Camera{
		origin:          origin,
		lowerLeftCorner: lowerLeftCorner,
		horizontal:      horizontal,
		vertical:        vertical,
		u:               u,
		v:               v,
		w:               w,
		lensRadius:      config.Aperture / 2,
	}
}

// GetRay generates a ray for screen coordinates (s, t) where 0 <= s,t <= 1.
// (0,0) is the lower-left corner of the viewport.
func (c *Camera) GetRay(s, t float64, sampler core.Sampler) core.Ray {
	target := c.lowerLeftCorner.
		Add(c.horizontal.Multiply(s)).
		Add(c.vertical.Multiply(t))

	if c.lensRadius <= 0 {
		return core.NewRay(c.origin, target.Subtract(c.origin))
	}

	// Jitter the origin across the lens for depth of field
	rd := core.RandomInUnitDisk(sampler).Multiply(c.lensRadius)
	offset := c.u.Multiply(rd.X).Add(c.v.Multiply(rd.Y))
	origin := c.origin.Add(offset)

	return core.NewRay(origin, target.Subtract(origin))
}

// GetCameraForward returns the direction the camera is looking
func (c *Camera) GetCameraForward() core.Vec3 {
	return c.w.Negate()
}

// ImageHeight returns the image height implied by the configured width and aspect ratio
func (c CameraConfig) ImageHeight() int {
	if c.AspectRatio <= 0 {
		return c.Width
	}
	return max(1, int(float64(c.Width)/c.AspectRatio))
}

// MergeCameraConfig returns base with every non-zero field of override applied
func MergeCameraConfig(base, override CameraConfig) CameraConfig {
	result := base
	if override.Center != (core.Vec3{}) {
		result.Center = override.Center
	}
	if override.LookAt != (core.Vec3{}) {
		result.LookAt = override.LookAt
	}
	if override.Up != (core.Vec3{}) {
		result.Up = override.Up
	}
	if override.Width != 0 {
		result.Width = override.Width
	}
	if override.AspectRatio != 0 {
		result.AspectRatio = override.AspectRatio
	}
	if override.VFov != 0 {
		result.VFov = override.VFov
	}
	if override.Aperture != 0 {
		result.Aperture = override.Aperture
	}
	if override.FocusDistance != 0 {
		result.FocusDistance = override.FocusDistance
	}
	return result
}
