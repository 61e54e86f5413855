package renderer

import (
	"unsafe"

	"github.com/df07/go-sphere-pathtracer/pkg/core"
)

// Framebuffer holds the accumulated samples of every pixel.
// Pixels are stored row-major with row 0 at the top of the image.
type Framebuffer struct {
	Width  int
	Height int
	Pixels []PixelStats
}

// FramebufferBytes returns the memory needed for a framebuffer of the given size
func FramebufferBytes(width, height int) uint64 {
	if width <= 0 || height <= 0 {
		return 0
	}
	return uint64(width) * uint64(height) * uint64(unsafe.Sizeof(PixelStats{}))
}

// NewFramebuffer allocates an empty framebuffer
func NewFramebuffer(width, height int) *Framebuffer {
	return &Framebuffer{
		Width:  width,
		Height: height,
		Pixels: make([]PixelStats, width*height),
	}
}

// Row returns the pixels of output row y
func (fb *Framebuffer) Row(y int) []PixelStats {
	return fb.Pixels[y*fb.Width : (y+1)*fb.Width]
}

// At returns the pixel at column x of output row y
func (fb *Framebuffer) At(x, y int) *PixelStats {
	return &fb.Pixels[y*fb.Width+x]
}

// ColorAt returns the averaged linear color at (x, y)
func (fb *Framebuffer) ColorAt(x, y int) core.Color {
	return fb.At(x, y).GetColor()
}
