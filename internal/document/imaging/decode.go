// Package imaging decodes uploaded documents and renders the grayscale
// variants fed to the OCR ensemble.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	// Registered decoders.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"golang.org/x/image/draw"

	"suiverify/internal/document/models"
)

// ErrDecode is returned when the upload is not a decodable, non-empty image.
var ErrDecode = errors.New("image cannot be decoded")

// MaxPixels bounds the decoded area. Every variant is a full-size copy.
const MaxPixels = 40_000_000

// Decode decodes JPEG, PNG, GIF, BMP, TIFF or WebP bytes. The header is read
// first so oversized images are rejected before any pixel is allocated.
func Decode(raw models.RawImage) (image.Image, error) {
	if len(raw.Data) == 0 {
		return nil, fmt.Errorf("%w: empty upload", ErrDecode)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw.Data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: %s image has no pixels", ErrDecode, format)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, fmt.Errorf("%w: %s image is %dx%d, above %d pixels", ErrDecode, format, cfg.Width, cfg.Height, MaxPixels)
	}
	img, format, err := image.Decode(bytes.NewReader(raw.Data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("%w: %s image has no pixels", ErrDecode, format)
	}
	return img, nil
}

// Gray converts img to an 8-bit grayscale image anchored at the origin.
func Gray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Rect.Min == (image.Point{}) {
		return g
	}
	b := img.Bounds()
	g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(g, g.Bounds(), img, b.Min, draw.Src)
	return g
}

// Resize scales img to w×h with Catmull-Rom resampling.
func Resize(img image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}
