package utils

import (
	"bytes"
	"image"

	"github.com/disintegration/imaging"
)

const thumbnailWidth = 320

// MakeThumbnail downscales an image to the list-view thumbnail size and
// re-encodes it as JPEG. Images narrower than the thumbnail width are kept
// as-is dimension-wise.
func MakeThumbnail(data []byte) ([]byte, error) {
	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}

	var thumb image.Image = src
	if src.Bounds().Dx() > thumbnailWidth {
		thumb = imaging.Resize(src, thumbnailWidth, 0, imaging.Lanczos)
	}

	var out bytes.Buffer
	if err := imaging.Encode(&out, thumb, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
