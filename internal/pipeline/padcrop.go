package pipeline

import (
	"fmt"
	"math"

	"github.com/fourshot/wigglegram/pkg/pixbuf"
)

// Cropped frames never go below this size on either axis.
const minCanvas = 16

// padAndCrop neutralizes the estimated motion by shifting each frame's canvas
// opposite to its offset, then crops all frames to a shared interior
// rectangle so every frame depicts the same field of view.
//
// The pad magnitudes were computed as the maximum required across all frames,
// so with valid inputs the extraction never reads outside an extended canvas.
func padAndCrop(frames []*pixbuf.PixelBuffer, offsets []Offset, padX, padY int, cfg Config, width, height int) ([]*pixbuf.PixelBuffer, error) {
	finalCrop := int(math.Round(float64(min(width, height)) * cfg.CropPercent))
	if cfg.Stabilize {
		finalCrop += max(padX, padY)
	}

	cropW := max(width-2*finalCrop, minCanvas)
	cropH := max(height-2*finalCrop, minCanvas)

	out := make([]*pixbuf.PixelBuffer, len(frames))
	for i, f := range frames {
		src := f
		if cfg.Stabilize {
			o := offsets[i]
			src = f.Extend(padX+o.DX, padY+o.DY, padX-o.DX, padY-o.DY)
		}

		cropped, err := src.Crop(finalCrop, finalCrop, cropW, cropH)
		if err != nil {
			return nil, &StabilizationError{Frame: i, Err: err}
		}
		if len(cropped.Pix) < cropped.ByteLen() {
			return nil, &StabilizationError{
				Frame: i,
				Err:   fmt.Errorf("short buffer: %d bytes, want %d", len(cropped.Pix), cropped.ByteLen()),
			}
		}
		out[i] = cropped
	}
	return out, nil
}
