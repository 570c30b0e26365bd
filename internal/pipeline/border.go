package pipeline

import "github.com/fourshot/wigglegram/pkg/pixbuf"

// The border crop is only applied when the surviving box is at least this
// large on both axes.
const minBorderBox = 8

// boundingBox holds inclusive pixel bounds of detected content.
type boundingBox struct {
	left, top, right, bottom int
}

func (b boundingBox) width() int  { return b.right - b.left + 1 }
func (b boundingBox) height() int { return b.bottom - b.top + 1 }

// autoBorderCrop removes residual black/transparent letterboxing consistently
// across all frames. All frames are cropped to the identical rectangle, or
// none are: per-frame cropping would break the alignment established earlier.
func autoBorderCrop(frames []*pixbuf.PixelBuffer, cfg Config) []*pixbuf.PixelBuffer {
	boxes := make([]boundingBox, 0, len(frames))
	for _, f := range frames {
		box, ok := contentBox(f, uint8(cfg.AlphaThreshold), uint8(cfg.BlackThreshold))
		if !ok {
			// A frame with no content at all makes any crop unsafe.
			return frames
		}
		boxes = append(boxes, box)
	}

	box := intersectBoxes(boxes)

	m := cfg.AutoBorderMarginPx
	box.left += m
	box.top += m
	box.right -= m
	box.bottom -= m

	width := frames[0].Width
	height := frames[0].Height
	if box.width() < minBorderBox || box.height() < minBorderBox {
		return frames
	}
	if box.width() >= width && box.height() >= height {
		return frames
	}

	out := make([]*pixbuf.PixelBuffer, len(frames))
	for i, f := range frames {
		cropped, err := f.Crop(box.left, box.top, box.width(), box.height())
		if err != nil {
			return frames
		}
		out[i] = cropped
	}
	return out
}

// contentBox scans inward from each edge of a frame for the first row or
// column containing a content pixel. Returns false when the frame is entirely
// border (no content anywhere).
func contentBox(f *pixbuf.PixelBuffer, alphaT, blackT uint8) (boundingBox, bool) {
	box := boundingBox{left: -1, top: -1, right: -1, bottom: -1}

	for y := 0; y < f.Height && box.top < 0; y++ {
		if rowHasContent(f, y, alphaT, blackT) {
			box.top = y
		}
	}
	if box.top < 0 {
		return boundingBox{}, false
	}
	for y := f.Height - 1; y >= 0 && box.bottom < 0; y-- {
		if rowHasContent(f, y, alphaT, blackT) {
			box.bottom = y
		}
	}
	for x := 0; x < f.Width && box.left < 0; x++ {
		if colHasContent(f, x, alphaT, blackT) {
			box.left = x
		}
	}
	for x := f.Width - 1; x >= 0 && box.right < 0; x-- {
		if colHasContent(f, x, alphaT, blackT) {
			box.right = x
		}
	}
	return box, true
}

// intersectBoxes folds per-frame boxes into the single most conservative box
// safe for every frame simultaneously.
func intersectBoxes(boxes []boundingBox) boundingBox {
	out := boxes[0]
	for _, b := range boxes[1:] {
		out.left = max(out.left, b.left)
		out.top = max(out.top, b.top)
		out.right = min(out.right, b.right)
		out.bottom = min(out.bottom, b.bottom)
	}
	return out
}

func rowHasContent(f *pixbuf.PixelBuffer, y int, alphaT, blackT uint8) bool {
	row := f.Pix[y*f.Stride() : (y+1)*f.Stride()]
	for x := 0; x < f.Width; x++ {
		if isContent(row[x*pixbuf.Channels:], alphaT, blackT) {
			return true
		}
	}
	return false
}

func colHasContent(f *pixbuf.PixelBuffer, x int, alphaT, blackT uint8) bool {
	stride := f.Stride()
	for y := 0; y < f.Height; y++ {
		if isContent(f.Pix[y*stride+x*pixbuf.Channels:], alphaT, blackT) {
			return true
		}
	}
	return false
}

// isContent reports whether a pixel is visible scene content: sufficiently
// opaque and not near-black on every channel.
func isContent(px []byte, alphaT, blackT uint8) bool {
	return px[3] > alphaT && (px[0] > blackT || px[1] > blackT || px[2] > blackT)
}
