// Package pixbuf holds the raw pixel buffer type shared by all pipeline
// stages, plus the geometry primitives (crop, pad) the stages are built from.
package pixbuf

import (
	"fmt"
	"image"
	"image/color"
)

// Channels per pixel. Buffers are always straight-alpha RGBA.
const Channels = 4

// PixelBuffer holds decoded image data as raw RGBA samples.
//
// Stride is fixed at Width*Channels. A buffer is immutable once handed to the
// next pipeline stage: operations allocate a new buffer instead of mutating.
type PixelBuffer struct {
	Pix    []byte
	Width  int
	Height int
}

// New allocates a zero-filled (fully transparent) buffer.
func New(width, height int) *PixelBuffer {
	return &PixelBuffer{
		Pix:    make([]byte, width*height*Channels),
		Width:  width,
		Height: height,
	}
}

// Stride returns the byte length of one row.
func (b *PixelBuffer) Stride() int {
	return b.Width * Channels
}

// ByteLen returns the expected byte length for the buffer's dimensions.
func (b *PixelBuffer) ByteLen() int {
	return b.Width * b.Height * Channels
}

// NRGBA wraps the buffer as an *image.NRGBA sharing the same pixel storage.
// The returned image must be treated as read-only.
func (b *PixelBuffer) NRGBA() *image.NRGBA {
	return &image.NRGBA{
		Pix:    b.Pix,
		Stride: b.Stride(),
		Rect:   image.Rect(0, 0, b.Width, b.Height),
	}
}

// FromImage converts any image to a tightly packed RGBA buffer.
func FromImage(img image.Image) *PixelBuffer {
	if n, ok := img.(*image.NRGBA); ok {
		r := n.Rect
		if r.Min.X == 0 && r.Min.Y == 0 && n.Stride == r.Dx()*Channels {
			return &PixelBuffer{Pix: n.Pix, Width: r.Dx(), Height: r.Dy()}
		}
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	out := New(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color.NRGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
			idx := (y*width + x) * Channels
			out.Pix[idx] = c.R
			out.Pix[idx+1] = c.G
			out.Pix[idx+2] = c.B
			out.Pix[idx+3] = c.A
		}
	}
	return out
}

// Crop extracts the w×h rectangle at (x, y) into a new buffer.
func (b *PixelBuffer) Crop(x, y, w, h int) (*PixelBuffer, error) {
	if x < 0 || y < 0 || w <= 0 || h <= 0 || x+w > b.Width || y+h > b.Height {
		return nil, fmt.Errorf("crop rect %dx%d at (%d,%d) outside %dx%d canvas",
			w, h, x, y, b.Width, b.Height)
	}

	out := New(w, h)
	srcStride := b.Stride()
	dstStride := out.Stride()
	for row := 0; row < h; row++ {
		src := (y+row)*srcStride + x*Channels
		dst := row * dstStride
		copy(out.Pix[dst:dst+dstStride], b.Pix[src:src+dstStride])
	}
	return out, nil
}

// Extend returns a new buffer enlarged by the given non-negative extents,
// with the original content offset by (left, top) and transparent fill
// everywhere else. Negative extents are clamped to zero.
func (b *PixelBuffer) Extend(left, top, right, bottom int) *PixelBuffer {
	left = max(left, 0)
	top = max(top, 0)
	right = max(right, 0)
	bottom = max(bottom, 0)

	out := New(b.Width+left+right, b.Height+top+bottom)
	srcStride := b.Stride()
	dstStride := out.Stride()
	for row := 0; row < b.Height; row++ {
		src := row * srcStride
		dst := (top+row)*dstStride + left*Channels
		copy(out.Pix[dst:dst+srcStride], b.Pix[src:src+srcStride])
	}
	return out
}
