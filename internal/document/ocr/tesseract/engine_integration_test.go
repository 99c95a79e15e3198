//go:build integration

package tesseract

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"suiverify/internal/document/imaging"
	"suiverify/internal/document/ocr"
)

// renderText draws s in black on white, scaled up so Tesseract can read the bitmap font.
func renderText(s string) image.Image {
	small := image.NewGray(image.Rect(0, 0, 8*len(s)+20, 30))
	draw.Draw(small, small.Bounds(), image.White, image.Point{}, draw.Src)
	d := &font.Drawer{
		Dst:  small,
		Src:  image.NewUniform(color.Black),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(10, 20),
	}
	d.DrawString(s)
	b := small.Bounds()
	return imaging.Resize(small, b.Dx()*4, b.Dy()*4)
}

func TestRecognizeRenderedPAN(t *testing.T) {
	e := New(2, "")
	defer e.Close()

	profile := ocr.DefaultProfiles()[3]
	text, err := e.Recognize(context.Background(), renderText("ABCDE1234F"), profile)
	require.NoError(t, err)
	assert.Contains(t, strings.ReplaceAll(text, " ", ""), "ABCDE1234F")
}

func TestRecognizeHonoursCancellation(t *testing.T) {
	e := New(1, "")
	defer e.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Recognize(ctx, renderText("X"), ocr.DefaultProfiles()[0])
	assert.ErrorIs(t, err, context.Canceled)
}
