package ioutils

import (
	"bytes"
	"image"
	"image/jpeg"
	_ "image/png" // PNG decoder registration

	"golang.org/x/image/draw"
)

// ImageService prepares cover art before it is embedded or saved.
//
// The catalog serves covers as 1280x1280 JPEG. Embedding that in every
// track of a large album adds up, so the tagger can ask for a smaller
// re-encoded copy:
//
//	svc := NewImageService(90)
//	small, err := svc.Fit(coverBytes, 640)
type ImageService struct {
	quality int
}

// NewImageService creates an ImageService that encodes JPEG at the given
// quality (1-100). Out of range values fall back to 90.
func NewImageService(quality int) *ImageService {
	if quality < 1 || quality > 100 {
		quality = 90
	}
	return &ImageService{quality: quality}
}

// Fit scales an image down so neither side exceeds maxSize and returns it
// as JPEG. Aspect ratio is preserved. A maxSize <= 0 only re-encodes.
func (s *ImageService) Fit(data []byte, maxSize int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if maxSize > 0 && (width > maxSize || height > maxSize) {
		if width >= height {
			height = height * maxSize / width
			width = maxSize
		} else {
			width = width * maxSize / height
			height = maxSize
		}
		if width < 1 {
			width = 1
		}
		if height < 1 {
			height = 1
		}
		dst := image.NewRGBA(image.Rect(0, 0, width, height))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: s.quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// IsJPEG reports whether data starts with the JPEG SOI marker.
func IsJPEG(data []byte) bool {
	return len(data) > 2 && data[0] == 0xFF && data[1] == 0xD8
}
