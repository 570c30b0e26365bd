package pipeline

import (
	"sync"

	"github.com/disintegration/imaging"

	"github.com/fourshot/wigglegram/pkg/pixbuf"
)

// normalizeFrames decodes every input, reorients it 180° (the capture rig is
// mounted inverted) and cover-fits it onto a common W×H canvas. The target
// size defaults to the native size of frame 0 when the config leaves it zero.
//
// The four decodes run concurrently: each works on disjoint input and
// produces a disjoint buffer.
func normalizeFrames(inputs [][]byte, cfg Config) ([]*pixbuf.PixelBuffer, int, int, error) {
	decoded := make([]*pixbuf.PixelBuffer, len(inputs))
	errs := make([]error, len(inputs))

	var wg sync.WaitGroup
	for i, data := range inputs {
		wg.Add(1)
		go func(i int, data []byte) {
			defer wg.Done()
			img, err := pixbuf.DecodeImage(data)
			if err != nil {
				errs[i] = &DecodeError{Frame: i, Err: err}
				return
			}
			decoded[i] = pixbuf.FromImage(imaging.Rotate180(img))
		}(i, data)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, 0, 0, err
		}
	}

	width := cfg.TargetWidth
	height := cfg.TargetHeight
	if width == 0 {
		width = decoded[0].Width
	}
	if height == 0 {
		height = decoded[0].Height
	}

	out := make([]*pixbuf.PixelBuffer, len(decoded))
	for i, buf := range decoded {
		if buf.Width == width && buf.Height == height {
			out[i] = buf
			continue
		}
		filled := imaging.Fill(buf.NRGBA(), width, height, imaging.Center, imaging.Lanczos)
		out[i] = pixbuf.FromImage(filled)
	}
	return out, width, height, nil
}
