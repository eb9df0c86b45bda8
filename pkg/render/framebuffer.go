// Package render draws scenes into a terminal framebuffer: a Gouraud
// rasterizer for the interactive preview, a wireframe overlay, and a blit
// from the path tracer's accumulation buffer.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	"github.com/taigrr/sunlit/pkg/math3d"
	"github.com/taigrr/sunlit/pkg/pathtrace"
)

// Framebuffer is the 8-bit canvas of the terminal preview. Each terminal
// cell shows two vertically stacked pixels, so Height is twice the row
// count.
type Framebuffer struct {
	Width  int
	Height int
	Pixels []color.RGBA // Row-major, row 0 at the top
}

// NewFramebuffer allocates a transparent width×height canvas.
func NewFramebuffer(width, height int) *Framebuffer {
	return &Framebuffer{
		Width:  width,
		Height: height,
		Pixels: make([]color.RGBA, width*height),
	}
}

func (fb *Framebuffer) inBounds(x, y int) bool {
	return x >= 0 && x < fb.Width && y >= 0 && y < fb.Height
}

// Clear fills the canvas with c.
func (fb *Framebuffer) Clear(c color.RGBA) {
	if len(fb.Pixels) == 0 {
		return
	}
	fb.Pixels[0] = c
	for n := 1; n < len(fb.Pixels); n *= 2 {
		copy(fb.Pixels[n:], fb.Pixels[:n])
	}
}

// SetPixel writes (x, y); writes outside the canvas are dropped.
func (fb *Framebuffer) SetPixel(x, y int, c color.RGBA) {
	if fb.inBounds(x, y) {
		fb.Pixels[y*fb.Width+x] = c
	}
}

// GetPixel reads (x, y), or transparent black outside the canvas.
func (fb *Framebuffer) GetPixel(x, y int) color.RGBA {
	if !fb.inBounds(x, y) {
		return color.RGBA{}
	}
	return fb.Pixels[y*fb.Width+x]
}

// DrawLine steps from (x0, y0) to (x1, y1) one pixel at a time along the
// major axis, rounding the minor one.
func (fb *Framebuffer) DrawLine(x0, y0, x1, y1 int, c color.RGBA) {
	dx, dy := x1-x0, y1-y0
	steps := max(abs(dx), abs(dy))
	if steps == 0 {
		fb.SetPixel(x0, y0, c)
		return
	}
	sx, sy := float64(dx)/float64(steps), float64(dy)/float64(steps)
	for i := range steps + 1 {
		x := float64(x0) + sx*float64(i)
		y := float64(y0) + sy*float64(i)
		fb.SetPixel(int(math.Round(x)), int(math.Round(y)), c)
	}
}

func abs(x int) int {
	return max(x, -x)
}

// LinearSource is a grid of linear RGBA values, such as the path tracer's
// accumulation buffer.
type LinearSource interface {
	Size() (w, h int)
	At(x, y int) math3d.Vec4
}

// Blit copies src into the framebuffer, encoding each channel with
// 1/gamma. Pixels outside either image are left alone.
func (fb *Framebuffer) Blit(src LinearSource, gamma float64) {
	w, h := src.Size()
	w, h = min(w, fb.Width), min(h, fb.Height)
	for y := range h {
		for x := range w {
			fb.Pixels[y*fb.Width+x] = pathtrace.ToRGBA(src.At(x, y), gamma)
		}
	}
}

// ToImage copies the canvas into an image.RGBA.
func (fb *Framebuffer) ToImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, fb.Width, fb.Height))
	for i, c := range fb.Pixels {
		p := img.Pix[i*4 : i*4+4]
		p[0], p[1], p[2], p[3] = c.R, c.G, c.B, c.A
	}
	return img
}

// SavePNG writes the canvas as a PNG.
func (fb *Framebuffer) SavePNG(path string) error {
	return SavePNG(path, fb.ToImage())
}

// SavePNG encodes img to a new file at path.
func SavePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create image: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
