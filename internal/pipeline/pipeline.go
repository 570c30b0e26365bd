// Package pipeline turns four independently captured images of the same scene
// into a stabilized, border-trimmed, looping ping-pong animation.
//
// The stages run strictly forward: normalize → motion estimate → pad/crop →
// border detect → assemble/encode. Each stage consumes the buffers of the
// prior stage and allocates new ones, so a failure at any point leaves
// earlier buffers untouched. A build holds no cross-invocation state; two
// concurrent builds are fully independent.
package pipeline

// Result is the outcome of a successful build.
type Result struct {
	// GIF is the encoded looping animation.
	GIF []byte

	// Final per-frame canvas size after cropping.
	Width  int
	Height int

	// Offsets are the estimated per-frame shifts in target-resolution
	// pixels. Frame 0 is the reference and always (0, 0); all zeros when
	// stabilization is disabled.
	Offsets [FrameCount]Offset
}

// Build runs the full pipeline over exactly four encoded images in capture-
// device order. It returns the encoded animation or one of the typed failure
// kinds; the whole job succeeds atomically or fails atomically.
func Build(inputs [][]byte, cfg Config) (*Result, error) {
	if len(inputs) != FrameCount {
		return nil, &InputCountError{Count: len(inputs)}
	}
	cfg = cfg.normalized()

	frames, width, height, err := normalizeFrames(inputs, cfg)
	if err != nil {
		return nil, err
	}

	offsets := make([]Offset, FrameCount)
	padX, padY := 0, 0
	if cfg.Stabilize {
		offsets, padX, padY = estimateOffsets(frames, cfg, width, height)
	}

	cropped, err := padAndCrop(frames, offsets, padX, padY, cfg, width, height)
	if err != nil {
		return nil, err
	}

	if cfg.AutoBorderDetect {
		cropped = autoBorderCrop(cropped, cfg)
	}

	data, err := assembleAndEncode(cropped, cfg)
	if err != nil {
		return nil, err
	}

	res := &Result{
		GIF:    data,
		Width:  cropped[0].Width,
		Height: cropped[0].Height,
	}
	copy(res.Offsets[:], offsets)
	return res, nil
}
