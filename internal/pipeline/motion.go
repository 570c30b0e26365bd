package pipeline

import (
	"image"
	"math"

	xdraw "golang.org/x/image/draw"

	"github.com/fourshot/wigglegram/pkg/pixbuf"
)

// Motion estimation runs at a fixed work resolution to bound search cost;
// offsets found there are scaled back to the target resolution.
const (
	workWidth     = 320
	minWorkHeight = 120

	// Fraction of each reference dimension trimmed from the comparison
	// region to avoid scoring border artifacts.
	searchMarginFrac = 10
)

// Offset is an integer translational shift between a frame and the reference.
type Offset struct {
	DX int
	DY int
}

func (o Offset) abs() (int, int) {
	dx, dy := o.DX, o.DY
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	return dx, dy
}

// estimateOffsets computes per-frame offsets against frame 0 and the per-axis
// pad magnitude needed so that later cropping never samples outside any
// frame's edge. Returned offsets are in target-resolution pixels; frame 0 is
// always (0, 0).
func estimateOffsets(frames []*pixbuf.PixelBuffer, cfg Config, width, height int) ([]Offset, int, int) {
	workH := int(math.Round(float64(height) * workWidth / float64(width)))
	if workH < minWorkHeight {
		workH = minWorkHeight
	}

	work := make([]*image.Gray, len(frames))
	for i, f := range frames {
		work[i] = grayscaleWork(f, workWidth, workH)
	}

	scaleX := float64(width) / float64(workWidth)
	scaleY := float64(height) / float64(workH)

	offsets := make([]Offset, len(frames))
	for i := 1; i < len(frames); i++ {
		found := searchOffset(work[0], work[i], cfg.MaxShiftPx)
		offsets[i] = Offset{
			DX: int(math.Round(float64(found.DX) * scaleX)),
			DY: int(math.Round(float64(found.DY) * scaleY)),
		}
	}

	padX := int(math.Ceil(float64(cfg.MaxShiftPx) * scaleX))
	padY := int(math.Ceil(float64(cfg.MaxShiftPx) * scaleY))
	for _, o := range offsets {
		ax, ay := o.abs()
		padX = max(padX, ax)
		padY = max(padY, ay)
	}
	return offsets, padX, padY
}

// grayscaleWork downscales a buffer to the single-channel work resolution.
func grayscaleWork(b *pixbuf.PixelBuffer, w, h int) *image.Gray {
	dst := image.NewGray(image.Rect(0, 0, w, h))
	src := b.NRGBA()
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}

// searchOffset performs an exhaustive block-matching search: it scores every
// candidate (dx, dy) in [-maxShift, maxShift]² by mean absolute difference
// over the overlapping region and keeps the first-encountered minimum.
//
// The reported offset is the view shift: cand sampled at (x-dx, y-dy) lines
// up with ref at (x, y). Padding later places the frame content dx right and
// dy down, which cancels the shift.
//
// The scan order (dy ascending outer, dx ascending inner) is the tie-break
// rule; changing it changes results for flat inputs, so it is fixed.
func searchOffset(ref, cand *image.Gray, maxShift int) Offset {
	w := ref.Rect.Dx()
	h := ref.Rect.Dy()
	marginX := w / searchMarginFrac
	marginY := h / searchMarginFrac

	best := Offset{}
	bestScore := math.Inf(1)

	for dy := -maxShift; dy <= maxShift; dy++ {
		for dx := -maxShift; dx <= maxShift; dx++ {
			var sum, n int64
			for y := marginY; y < h-marginY; y++ {
				cy := y - dy
				if cy < 0 || cy >= h {
					continue
				}
				refRow := ref.Pix[y*ref.Stride:]
				candRow := cand.Pix[cy*cand.Stride:]
				for x := marginX; x < w-marginX; x++ {
					cx := x - dx
					if cx < 0 || cx >= w {
						continue
					}
					d := int64(refRow[x]) - int64(candRow[cx])
					if d < 0 {
						d = -d
					}
					sum += d
					n++
				}
			}
			if n == 0 {
				// Degenerate overlap: worse than any finite score.
				continue
			}
			score := float64(sum) / float64(n)
			if score < bestScore {
				bestScore = score
				best = Offset{DX: dx, DY: dy}
			}
		}
	}
	return best
}
