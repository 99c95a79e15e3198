// Package photo crops the holder photograph from a PAN card image.
package photo

import (
	"bytes"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"

	"suiverify/internal/document/imaging"
	"suiverify/internal/document/models"
)

const (
	Width       = 150
	Height      = 200
	JPEGQuality = 85

	minSide   = 16
	minStdDev = 8.0
)

// Layout is the photo rectangle as fractions of the card size.
type Layout struct {
	X0, X1, Y0, Y1 float64
}

// PANLayout is the left-hand photo slot of a PAN card.
var PANLayout = Layout{X0: 0.02, X1: 0.25, Y0: 0.25, Y1: 0.75}

// Rect maps the layout onto bounds.
func (l Layout) Rect(bounds image.Rectangle) image.Rectangle {
	w, h := float64(bounds.Dx()), float64(bounds.Dy())
	return image.Rect(
		bounds.Min.X+int(w*l.X0),
		bounds.Min.Y+int(h*l.Y0),
		bounds.Min.X+int(w*l.X1),
		bounds.Min.Y+int(h*l.Y1),
	)
}

// Extract crops the photo using PANLayout.
func Extract(img image.Image) models.PhotoRegion {
	return ExtractLayout(img, PANLayout)
}

// ExtractLayout crops, resizes and JPEG encodes the region. It never fails:
// a degenerate, near-uniform or unencodable region comes back with Found false.
func ExtractLayout(img image.Image, l Layout) models.PhotoRegion {
	rect := l.Rect(img.Bounds())
	region := models.PhotoRegion{Bounds: rect}
	if rect.Dx() < minSide || rect.Dy() < minSide {
		return region
	}

	crop := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(crop, crop.Bounds(), img, rect.Min, draw.Src)
	if imaging.StdDevLuminance(imaging.Gray(crop)) < minStdDev {
		return region
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, imaging.Resize(crop, Width, Height), &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return region
	}
	region.JPEG = buf.Bytes()
	region.Found = true
	return region
}
