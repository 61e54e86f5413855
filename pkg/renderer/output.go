package renderer

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"github.com/df07/go-sphere-pathtracer/pkg/core"
)

// toByte maps a gamma-corrected channel to 8 bits.
// Values are clamped to [0, 0.999] so 1.0 maps to 255. NaN maps to 0.
func toByte(v float64) uint8 {
	if math.IsNaN(v) {
		return 0
	}
	v = max(0.0, min(0.999, v))
	return uint8(256 * v)
}

// QuantizeColor maps an averaged linear color to 8 bits per channel with gamma 2
func QuantizeColor(c core.Color) color.RGBA {
	g := c.GammaCorrect(2.0)
	return color.RGBA{
		R: toByte(g.X),
		G: toByte(g.Y),
		B: toByte(g.Z),
		A: 255,
	}
}

// ToImage converts the framebuffer to an 8-bit RGBA image
func (fb *Framebuffer) ToImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, fb.Width, fb.Height))
	for y := 0; y < fb.Height; y++ {
		for x := 0; x < fb.Width; x++ {
			img.SetRGBA(x, y, QuantizeColor(fb.ColorAt(x, y)))
		}
	}
	return img
}

// WritePPM writes the framebuffer as an ASCII PPM (P3) image, top row first
func WritePPM(w io.Writer, fb *Framebuffer) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "P3\n%d %d\n255\n", fb.Width, fb.Height); err != nil {
		return fmt.Errorf("failed to write PPM header: %w", err)
	}

	for y := 0; y < fb.Height; y++ {
		for x := 0; x < fb.Width; x++ {
			c := QuantizeColor(fb.ColorAt(x, y))
			if _, err := fmt.Fprintf(bw, "%d %d %d\n", c.R, c.G, c.B); err != nil {
				return fmt.Errorf("failed to write pixel (%d, %d): %w", x, y, err)
			}
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to flush PPM output: %w", err)
	}
	return nil
}

// WritePNG writes the framebuffer as a PNG image
func WritePNG(w io.Writer, fb *Framebuffer) error {
	if err := png.Encode(w, fb.ToImage()); err != nil {
		return fmt.Errorf("failed to encode PNG: %w", err)
	}
	return nil
}

// Write encodes the framebuffer in the named format ("ppm" or "png")
func Write(w io.Writer, fb *Framebuffer, format string) error {
	switch format {
	case "ppm", "":
		return WritePPM(w, fb)
	case "png":
		return WritePNG(w, fb)
	default:
		return fmt.Errorf("%w: unknown output format %q", ErrInvalidConfig, format)
	}
}
