package pathtrace

import (
	"image"
	"image/color"
	"math"

	"github.com/taigrr/sunlit/pkg/math3d"
)

// Background is the value every pixel restarts from on frame 0.
var Background = math3d.V4(0, 0, 0, 1)

// BlendWeight returns the weight of frame's sample: 1/(frame+1)^exponent.
// It is 1 on frame 0.
func BlendWeight(frame uint32, exponent float64) float64 {
	return 1 / math.Pow(float64(frame)+1, exponent)
}

// Accumulate folds sample into prev. On frame 0 prev is ignored and
// replaced by Background, so the result is exactly sample.
func Accumulate(sample, prev math3d.Vec4, frame uint32, exponent float64) math3d.Vec4 {
	if frame == 0 {
		prev = Background
	}
	alpha := BlendWeight(frame, exponent)
	return prev.Scale(1 - alpha).Add(sample.Scale(alpha))
}

// AccumulationBuffer is the persistent per-pixel running estimate.
// Pixels are row-major with row 0 at the top.
type AccumulationBuffer struct {
	width, height int
	pix           []math3d.Vec4
}

// NewAccumulationBuffer allocates a w×h buffer filled with Background.
func NewAccumulationBuffer(w, h int) *AccumulationBuffer {
	b := &AccumulationBuffer{
		width:  w,
		height: h,
		pix:    make([]math3d.Vec4, w*h),
	}
	b.Clear()
	return b
}

// Size returns the buffer dimensions.
func (b *AccumulationBuffer) Size() (w, h int) {
	return b.width, b.height
}

// At returns the accumulated value of pixel (x, y).
func (b *AccumulationBuffer) At(x, y int) math3d.Vec4 {
	return b.pix[y*b.width+x]
}

// Blend folds sample into pixel (x, y) and returns the stored value.
// It touches no other pixel, so distinct pixels may blend concurrently.
func (b *AccumulationBuffer) Blend(x, y int, sample math3d.Vec4, frame uint32, exponent float64) math3d.Vec4 {
	i := y*b.width + x
	v := Accumulate(sample, b.pix[i], frame, exponent)
	b.pix[i] = v
	return v
}

// Clear resets every pixel to Background.
func (b *AccumulationBuffer) Clear() {
	for i := range b.pix {
		b.pix[i] = Background
	}
}

// ToImage converts the buffer to 8-bit RGBA, raising each channel to
// 1/gamma. A gamma of 1 (or less) writes linear values.
func (b *AccumulationBuffer) ToImage(gamma float64) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, b.width, b.height))
	for y := range b.height {
		for x := range b.width {
			img.SetRGBA(x, y, ToRGBA(b.At(x, y), gamma))
		}
	}
	return img
}

// ToRGBA quantizes a linear color to 8 bits with gamma encoding.
func ToRGBA(c math3d.Vec4, gamma float64) color.RGBA {
	c = c.Clamp(0, 1)
	enc := func(v float64) uint8 {
		if gamma > 1 {
			v = math.Pow(v, 1/gamma)
		}
		return uint8(v*255 + 0.5)
	}
	return color.RGBA{enc(c.X), enc(c.Y), enc(c.Z), uint8(c.W*255 + 0.5)}
}
