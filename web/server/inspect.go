package server

import (
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/df07/go-sphere-pathtracer/pkg/core"
	"github.com/df07/go-sphere-pathtracer/pkg/geometry"
	"github.com/df07/go-sphere-pathtracer/pkg/integrator"
	"github.com/df07/go-sphere-pathtracer/pkg/material"
	"github.com/df07/go-sphere-pathtracer/pkg/scene"
)

// InspectResponse represents the JSON response for object inspection
type InspectResponse struct {
	Hit          bool                   `json:"hit"`
	MaterialType string                 `json:"materialType"`
	GeometryType string                 `json:"geometryType"`
	Point        [3]float64             `json:"point"`
	Normal       [3]float64             `json:"normal"`
	Distance     float64                `json:"distance"`
	FrontFace    bool                   `json:"frontFace"`
	Properties   map[string]interface{} `json:"properties"`
}

func vecArray(v core.Vec3) [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}

func hexColor(c core.Color) string {
	rgba := core.NewVec3(255, 255, 255).MultiplyVec(c.Clamp(0, 1))
	return fmt.Sprintf("#%02x%02x%02x", int(rgba.X), int(rgba.Y), int(rgba.Z))
}

// extractMaterialInfo extracts detailed material information with type assertions
func extractMaterialInfo(mat material.Material) (string, map[string]interface{}) {
	properties := make(map[string]interface{})

	switch m := mat.(type) {
	case *material.Lambertian:
		properties["albedo"] = vecArray(m.Albedo)
		properties["color"] = hexColor(m.Albedo)
		return "lambertian", properties

	case *material.Metal:
		properties["albedo"] = vecArray(m.Albedo)
		properties["color"] = hexColor(m.Albedo)
		properties["fuzzness"] = m.Fuzzness
		return "metal", properties

	case *material.Dielectric:
		properties["refractiveIndex"] = m.RefractiveIndex
		properties["color"] = "#ffffff" // Clear glass
		return "dielectric", properties

	default:
		return "unknown", properties
	}
}

// extractGeometryInfo extracts detailed geometry information
func extractGeometryInfo(shape geometry.Shape) (string, map[string]interface{}) {
	properties := make(map[string]interface{})

	switch geom := shape.(type) {
	case *geometry.Sphere:
		properties["center"] = vecArray(geom.Center)
		properties["radius"] = geom.Radius
		return "sphere", properties

	default:
		return "unknown", properties
	}
}

// InspectResult contains information about the object hit by an inspection ray
type InspectResult struct {
	Hit       bool
	HitRecord *material.HitRecord
	Shape     geometry.Shape // The shape that was hit, nil when unknown
}

// inspectPixel casts a ray through the center of the pixel (row 0 is the top) and
// returns the first object hit
func inspectPixel(sceneObj *scene.Scene, pixelX, pixelY int) InspectResult {
	width, height := sceneObj.SamplingConfig.Width, sceneObj.SamplingConfig.Height
	u := (float64(pixelX) + 0.5) / float64(max(width-1, 1))
	v := (float64(height-1-pixelY) + 0.5) / float64(max(height-1, 1))

	// Fixed seed so the lens sample, and the answer, is the same on every call
	ray := sceneObj.Camera.GetRay(u, v, core.NewSeededSampler(0))

	hit, isHit := sceneObj.World.Hit(ray, integrator.ShadowAcneEpsilon, math.Inf(1))
	if !isHit {
		return InspectResult{Hit: false}
	}

	// The list does not say which shape was hit, so find the one at the same distance
	for _, shape := range sceneObj.World.Shapes {
		if shapeHit, ok := shape.Hit(ray, integrator.ShadowAcneEpsilon, math.Inf(1)); ok && shapeHit.T == hit.T {
			return InspectResult{Hit: true, HitRecord: hit, Shape: shape}
		}
	}

	return InspectResult{Hit: true, HitRecord: hit}
}

// handleInspect handles ray casting inspection requests
func (s *Server) handleInspect(c echo.Context) error {
	req, err := parseRenderRequest(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid scene parameters: "+err.Error())
	}

	pixelX, err := strconv.Atoi(c.QueryParam("x"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid x coordinate")
	}
	pixelY, err := strconv.Atoi(c.QueryParam("y"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid y coordinate")
	}

	sceneObj, err := createScene(req)
	if err != nil {
		return httpError(err)
	}

	config := sceneObj.SamplingConfig
	if pixelX < 0 || pixelX >= config.Width || pixelY < 0 || pixelY >= config.Height {
		return echo.NewHTTPError(http.StatusBadRequest, "Pixel coordinates out of bounds")
	}

	result := inspectPixel(sceneObj, pixelX, pixelY)
	if !result.Hit {
		return c.JSON(http.StatusOK, InspectResponse{Hit: false})
	}

	materialType, materialProps := extractMaterialInfo(result.HitRecord.Material)
	geometryType, geometryProps := extractGeometryInfo(result.Shape)

	return c.JSON(http.StatusOK, InspectResponse{
		Hit:          true,
		MaterialType: materialType,
		GeometryType: geometryType,
		Point:        vecArray(result.HitRecord.Point),
		Normal:       vecArray(result.HitRecord.Normal),
		Distance:     result.HitRecord.T,
		FrontFace:    result.HitRecord.FrontFace,
		Properties: map[string]interface{}{
			"material": materialProps,
			"geometry": geometryProps,
		},
	})
}
