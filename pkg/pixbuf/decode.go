package pixbuf

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
)

// Decode detects the image format from its magic bytes and decodes it into a
// raw RGBA buffer. PNG and JPEG are the formats the capture devices produce.
func Decode(data []byte) (*PixelBuffer, error) {
	img, err := DecodeImage(data)
	if err != nil {
		return nil, err
	}
	return FromImage(img), nil
}

// DecodeImage decodes PNG or JPEG bytes without converting to a buffer.
func DecodeImage(data []byte) (image.Image, error) {
	if len(data) >= 4 && bytes.Equal(data[:4], []byte{0x89, 0x50, 0x4E, 0x47}) {
		return png.Decode(bytes.NewReader(data))
	} else if len(data) >= 2 && bytes.Equal(data[:2], []byte{0xFF, 0xD8}) {
		return jpeg.Decode(bytes.NewReader(data))
	}

	return nil, fmt.Errorf("unrecognized image format")
}
