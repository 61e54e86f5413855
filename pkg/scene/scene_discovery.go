package scene

import (
	"errors"
	"fmt"
	"sort"

	"github.com/df07/go-sphere-pathtracer/pkg/geometry"
)

// ErrUnknownScene is returned when a scene name has no registered builder
var ErrUnknownScene = errors.New("unknown scene")

// SceneInfo describes a built-in scene
type SceneInfo struct {
	ID          string `json:"id"`          // Name used to select the scene
	DisplayName string `json:"displayName"` // UI display name
	Description string `json:"description"` // Short description
}

// Options adjusts a scene at build time
type Options struct {
	Seed   int64                 // Layout seed for scenes with random content
	Camera geometry.CameraConfig // Camera overrides
}

type builtinScene struct {
	info  SceneInfo
	build func(opts Options) *Scene
}

var builtinScenes = []builtinScene{
	{
		info: SceneInfo{ID: "random", DisplayName: "Random Spheres", Description: "Ground sphere, a field of small random spheres and three feature spheres"},
		build: func(opts Options) *Scene {
			return NewRandomSpheresScene(opts.Seed, opts.Camera)
		},
	},
	{
		info: SceneInfo{ID: "default", DisplayName: "Default", Description: "Diffuse, metal and glass spheres on a ground sphere"},
		build: func(opts Options) *Scene {
			return NewDefaultScene(opts.Camera)
		},
	},
	{
		info: SceneInfo{ID: "spheregrid", DisplayName: "Sphere Grid", Description: "Grid of colored metal spheres"},
		build: func(opts Options) *Scene {
			return NewSphereGridScene(opts.Camera)
		},
	},
	{
		info: SceneInfo{ID: "ground", DisplayName: "Ground Sphere", Description: "One diffuse sphere resting on a ground sphere"},
		build: func(opts Options) *Scene {
			return NewGroundSphereScene(opts.Camera)
		},
	},
}

// ListScenes returns the built-in scenes sorted by ID
func ListScenes() []SceneInfo {
	scenes := make([]SceneInfo, 0, len(builtinScenes))
	for _, b := range builtinScenes {
		scenes = append(scenes, b.info)
	}
	sort.Slice(scenes, func(i, j int) bool {
		return scenes[i].ID < scenes[j].ID
	})
	return scenes
}

// Create builds the named scene
func Create(name string, opts Options) (*Scene, error) {
	for _, b := range builtinScenes {
		if b.info.ID == name {
			return b.build(opts), nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownScene, name)
}
