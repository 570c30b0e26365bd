package pipeline

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"

	"github.com/ericpauley/go-quantize/quantize"

	"github.com/fourshot/wigglegram/pkg/pixbuf"
)

// FrameCount is the number of captured input frames a build consumes.
const FrameCount = 4

// infiniteLoop is the GIF application-extension loop count for endless play.
const infiniteLoop = 0

// paletteSize is the fixed quantization tier: a full 256-entry palette.
const paletteSize = 256

// pingPongOrder plays the four frames forward then partially backward,
// skipping the repeated endpoints, so the loop oscillates instead of jumping.
var pingPongOrder = [6]int{0, 1, 2, 3, 2, 1}

// assembleAndEncode orders the frames into the ping-pong sequence and encodes
// them as a looping animated GIF with the configured per-frame delay.
func assembleAndEncode(frames []*pixbuf.PixelBuffer, cfg Config) ([]byte, error) {
	width := frames[0].Width
	height := frames[0].Height

	for entry, idx := range pingPongOrder {
		f := frames[idx]
		if f.Width != width || f.Height != height || len(f.Pix) != width*height*pixbuf.Channels {
			return nil, &FrameShapeError{
				Entry:      entry,
				Frame:      idx,
				WantWidth:  width,
				WantHeight: height,
				Width:      f.Width,
				Height:     f.Height,
				ByteLen:    len(f.Pix),
			}
		}
	}

	delay := cfg.FrameDelayMs / 10 // GIF delays are in 100ths of a second

	anim := &gif.GIF{
		LoopCount: infiniteLoop,
		Config: image.Config{
			Width:  width,
			Height: height,
		},
	}

	quantizer := quantize.MedianCutQuantizer{}
	rect := image.Rect(0, 0, width, height)
	for _, idx := range pingPongOrder {
		src := frames[idx].NRGBA()
		palette := quantizer.Quantize(make([]color.Color, 0, paletteSize), src)
		frame := image.NewPaletted(rect, palette)
		draw.Draw(frame, rect, src, image.Point{}, draw.Src)

		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, delay)
	}

	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, anim); err != nil {
		return nil, &EncodeError{Err: err}
	}
	if buf.Len() == 0 {
		return nil, &EncodeError{Err: fmt.Errorf("encoder produced empty output")}
	}
	return buf.Bytes(), nil
}
