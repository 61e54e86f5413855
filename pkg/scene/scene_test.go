package scene

import (
	"errors"
	"math"
	"testing"

	"github.com/df07/go-sphere-pathtracer/pkg/core"
	"github.com/df07/go-sphere-pathtracer/pkg/geometry"
	"github.com/df07/go-sphere-pathtracer/pkg/material"
)

func TestCreateScene(t *testing.T) {
	for _, info := range ListScenes() {
		t.Run(info.ID, func(t *testing.T) {
			s, err := Create(info.ID, Options{Seed: 42})
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if s.Camera == nil {
				t.Error("Scene should have a camera")
			}
			if s.World.Len() == 0 {
				t.Error("Scene should contain shapes")
			}
			if err := s.SamplingConfig.Validate(); err != nil {
				t.Errorf("Scene sampling config invalid: %v", err)
			}
		})
	}
}

func TestCreateUnknownScene(t *testing.T) {
	s, err := Create("nonexistent", Options{})
	if !errors.Is(err, ErrUnknownScene) {
		t.Errorf("Expected ErrUnknownScene, got %v", err)
	}
	if s != nil {
		t.Errorf("Expected nil scene, got %v", s)
	}
}

func TestRandomSpheresScene_Layout(t *testing.T) {
	s := NewRandomSpheresScene(42)

	if s.SamplingConfig.Width != 1200 || s.SamplingConfig.Height != 800 {
		t.Errorf("Expected 1200x800, got %dx%d", s.SamplingConfig.Width, s.SamplingConfig.Height)
	}

	// Ground + up to 22x22 small spheres + 3 feature spheres
	count := s.GetPrimitiveCount()
	if count < 4 || count > 1+22*22+3 {
		t.Errorf("Unexpected sphere count %d", count)
	}

	ground, ok := s.World.Shapes[0].(*geometry.Sphere)
	if !ok || ground.Radius != 1000 {
		t.Fatalf("First shape should be the ground sphere, got %+v", s.World.Shapes[0])
	}

	clearance := core.NewVec3(4, 0.2, 0)
	for _, shape := range s.World.Shapes[1 : count-3] {
		sphere := shape.(*geometry.Sphere)
		if sphere.Radius != 0.2 {
			t.Errorf("Small sphere has radius %f", sphere.Radius)
		}
		if sphere.Center.Subtract(clearance).Length() <= 0.9 {
			t.Errorf("Small sphere at %v intrudes on the clear area", sphere.Center)
		}
		if metal, isMetal := sphere.Material.(*material.Metal); isMetal && metal.Fuzzness > 0.5 {
			t.Errorf("Small metal sphere fuzz %f exceeds 0.5", metal.Fuzzness)
		}
	}
}

func TestRandomSpheresScene_SeedIsReproducible(t *testing.T) {
	a := NewRandomSpheresScene(7)
	b := NewRandomSpheresScene(7)
	if a.World.Len() != b.World.Len() {
		t.Fatalf("Same seed gave %d and %d shapes", a.World.Len(), b.World.Len())
	}
	for i := range a.World.Shapes {
		ca := a.World.Shapes[i].(*geometry.Sphere).Center
		cb := b.World.Shapes[i].(*geometry.Sphere).Center
		if ca != cb {
			t.Fatalf("Shape %d differs: %v vs %v", i, ca, cb)
		}
	}
}

func TestLayoutSamplerIndependentOfPixelRows(t *testing.T) {
	tests := []struct {
		name string
		seed int64
	}{
		{"small seed", 7},
		{"negative seed", -3},
		{"large seed", 1 << 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			layout := newLayoutSampler(tt.seed)
			first := [4]float64{layout.Get1D(), layout.Get1D(), layout.Get1D(), layout.Get1D()}
			for row := int64(0); row < 8; row++ {
				pixel := core.NewSeededSampler(tt.seed + row)
				same := true
				for _, v := range first {
					if pixel.Get1D() != v {
						same = false
					}
				}
				if same {
					t.Errorf("Layout stream for seed %d matches pixel stream of row %d", tt.seed, row)
				}
			}
		})
	}
}

func TestDefaultSkyColors(t *testing.T) {
	top, bottom := DefaultSkyColors()
	if top != core.NewVec3(0.5, 0.7, 1.0) {
		t.Errorf("Unexpected top color %v", top)
	}
	if bottom != core.NewVec3(1, 1, 1) {
		t.Errorf("Unexpected bottom color %v", bottom)
	}
}

func TestWithCamera(t *testing.T) {
	s := NewGroundSphereScene()
	small := s.WithCamera(geometry.CameraConfig{Width: 40, AspectRatio: 2})

	if small.SamplingConfig.Width != 40 || small.SamplingConfig.Height != 20 {
		t.Errorf("Expected 40x20, got %dx%d", small.SamplingConfig.Width, small.SamplingConfig.Height)
	}
	if s.SamplingConfig.Width != 400 {
		t.Errorf("Original scene should be unchanged, width=%d", s.SamplingConfig.Width)
	}
	if small.World != s.World {
		t.Error("Geometry should be shared between views")
	}
}

func TestSamplingConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  SamplingConfig
		wantErr bool
	}{
		{"valid", SamplingConfig{Width: 10, Height: 10, SamplesPerPixel: 1, MaxDepth: 1}, false},
		{"zero depth allowed", SamplingConfig{Width: 10, Height: 10, SamplesPerPixel: 1}, false},
		{"zero width", SamplingConfig{Height: 10, SamplesPerPixel: 1}, true},
		{"zero samples", SamplingConfig{Width: 10, Height: 10}, true},
		{"negative depth", SamplingConfig{Width: 10, Height: 10, SamplesPerPixel: 1, MaxDepth: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOklchToRGBInRange(t *testing.T) {
	for hue := 0.0; hue < 360; hue += 30 {
		c := oklchToRGB(0.65, 0.25, hue)
		for _, v := range []float64{c.X, c.Y, c.Z} {
			if v < 0 || v > 1 || math.IsNaN(v) {
				t.Fatalf("Hue %f produced out-of-range color %v", hue, c)
			}
		}
	}
}
