package pipeline

import "fmt"

// The pipeline fails with exactly one of the error kinds below. Each carries
// enough context (frame index, expected vs. actual geometry) to diagnose a
// failed build without inspecting pipeline internals. A build either returns
// a complete animation or one of these; there is no partial output.

// InputCountError reports a call with anything other than 4 input frames.
type InputCountError struct {
	Count int
}

func (e *InputCountError) Error() string {
	return fmt.Sprintf("expected exactly %d input frames, got %d", FrameCount, e.Count)
}

// DecodeError reports an input that could not be parsed as an image.
type DecodeError struct {
	Frame int
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("frame %d: decode failed: %v", e.Frame, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// StabilizationError reports an empty or short buffer after pad-and-crop.
type StabilizationError struct {
	Frame int
	Err   error
}

func (e *StabilizationError) Error() string {
	return fmt.Sprintf("frame %d: stabilization produced invalid buffer: %v", e.Frame, e.Err)
}

func (e *StabilizationError) Unwrap() error {
	return e.Err
}

// FrameShapeError reports a sequence entry whose buffer does not match the
// common final dimensions before encoding.
type FrameShapeError struct {
	Entry      int // position in the ping-pong sequence
	Frame      int // source frame index
	WantWidth  int
	WantHeight int
	Width      int
	Height     int
	ByteLen    int
}

func (e *FrameShapeError) Error() string {
	return fmt.Sprintf("sequence entry %d (frame %d): got %dx%d (%d bytes), want %dx%d",
		e.Entry, e.Frame, e.Width, e.Height, e.ByteLen, e.WantWidth, e.WantHeight)
}

// EncodeError reports an encoder rejection or empty encoder output.
type EncodeError struct {
	Err error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("animation encoding failed: %v", e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}
