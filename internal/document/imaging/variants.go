package imaging

import (
	"image"
	"math"
	"sort"
)

// VariantID names a rendering of the document.
type VariantID string

const (
	VariantOriginal          VariantID = "original"
	VariantContrast          VariantID = "contrast"
	VariantSharpenGray       VariantID = "sharpen_gray"
	VariantOtsuBinary        VariantID = "otsu_binary"
	VariantAdaptiveThreshold VariantID = "adaptive_threshold"
	VariantMorphClose        VariantID = "morph_close"
	VariantBrightContrast    VariantID = "bright_contrast"
)

// VariantIDs returns every variant in rendering order.
func VariantIDs() []VariantID {
	return []VariantID{
		VariantOriginal,
		VariantContrast,
		VariantSharpenGray,
		VariantOtsuBinary,
		VariantAdaptiveThreshold,
		VariantMorphClose,
		VariantBrightContrast,
	}
}

// Variant is one grayscale rendering handed to the OCR engine.
type Variant struct {
	ID    VariantID
	Image *image.Gray
}

const (
	darkThreshold       = 150.0
	maxBrightnessFactor = 4.0
	adaptiveBlock       = 11
	adaptiveC           = 2
)

// Preprocess renders every variant of img. Pixels depend only on the input.
func Preprocess(img image.Image) []Variant {
	gray := Gray(img)
	otsu := otsuBinary(gray)

	return []Variant{
		{ID: VariantOriginal, Image: autoBrighten(gray)},
		{ID: VariantContrast, Image: contrast(gray, 2.0)},
		{ID: VariantSharpenGray, Image: sharpen(gray)},
		{ID: VariantOtsuBinary, Image: otsu},
		{ID: VariantAdaptiveThreshold, Image: adaptiveThreshold(median3(gray), adaptiveBlock, adaptiveC)},
		{ID: VariantMorphClose, Image: erode(dilate(otsu))},
		{ID: VariantBrightContrast, Image: contrast(brightness(gray, 1.5), 1.5)},
	}
}

// MeanLuminance is the average gray level of g.
func MeanLuminance(g *image.Gray) float64 {
	if len(g.Pix) == 0 {
		return 0
	}
	w, h := g.Rect.Dx(), g.Rect.Dy()
	var sum uint64
	for y := 0; y < h; y++ {
		row := g.Pix[y*g.Stride : y*g.Stride+w]
		for _, p := range row {
			sum += uint64(p)
		}
	}
	return float64(sum) / float64(w*h)
}

// StdDevLuminance is the standard deviation of the gray levels of g.
func StdDevLuminance(g *image.Gray) float64 {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	if w == 0 || h == 0 {
		return 0
	}
	mean := MeanLuminance(g)
	var acc float64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			d := float64(g.Pix[y*g.Stride+x]) - mean
			acc += d * d
		}
	}
	return math.Sqrt(acc / float64(w*h))
}

// autoBrighten lifts dark scans before recognition.
func autoBrighten(g *image.Gray) *image.Gray {
	mean := MeanLuminance(g)
	if mean >= darkThreshold {
		return clone(g)
	}
	factor := math.Min(maxBrightnessFactor, 200/(mean+1))
	return contrast(brightness(g, factor), 1.8)
}

func brightness(g *image.Gray, factor float64) *image.Gray {
	return mapPixels(g, func(p uint8) uint8 {
		return clamp(float64(p) * factor)
	})
}

// contrast scales distance from the rounded mean level.
func contrast(g *image.Gray, factor float64) *image.Gray {
	mean := math.Floor(MeanLuminance(g) + 0.5)
	return mapPixels(g, func(p uint8) uint8 {
		return clamp(mean + (float64(p)-mean)*factor)
	})
}

// sharpen applies the 3×3 kernel (-2 … 32 … -2)/16.
func sharpen(g *image.Gray) *image.Gray {
	out := image.NewGray(g.Rect)
	w, h := g.Rect.Dx(), g.Rect.Dy()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sum := 32 * int(at(g, x, y))
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if dx == 0 && dy == 0 {
						continue
					}
					sum -= 2 * int(at(g, x+dx, y+dy))
				}
			}
			out.Pix[y*out.Stride+x] = clamp(float64(sum) / 16)
		}
	}
	return out
}

// OtsuThreshold returns the level that maximizes between-class variance.
func OtsuThreshold(g *image.Gray) uint8 {
	var hist [256]int
	w, h := g.Rect.Dx(), g.Rect.Dy()
	for y := 0; y < h; y++ {
		for _, p := range g.Pix[y*g.Stride : y*g.Stride+w] {
			hist[p]++
		}
	}
	total := w * h
	var sumAll float64
	for i, c := range hist {
		sumAll += float64(i * c)
	}

	var (
		sumB, best float64
		weightB    int
		threshold  uint8
	)
	for t := 0; t < 256; t++ {
		weightB += hist[t]
		if weightB == 0 {
			continue
		}
		weightF := total - weightB
		if weightF == 0 {
			break
		}
		sumB += float64(t * hist[t])
		meanB := sumB / float64(weightB)
		meanF := (sumAll - sumB) / float64(weightF)
		between := float64(weightB) * float64(weightF) * (meanB - meanF) * (meanB - meanF)
		if between > best {
			best = between
			threshold = uint8(t)
		}
	}
	return threshold
}

func otsuBinary(g *image.Gray) *image.Gray {
	t := OtsuThreshold(g)
	return mapPixels(g, func(p uint8) uint8 {
		if p > t {
			return 255
		}
		return 0
	})
}

func median3(g *image.Gray) *image.Gray {
	out := image.NewGray(g.Rect)
	w, h := g.Rect.Dx(), g.Rect.Dy()
	var window [9]int
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := 0
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					window[i] = int(at(g, x+dx, y+dy))
					i++
				}
			}
			s := window[:]
			sort.Ints(s)
			out.Pix[y*out.Stride+x] = uint8(s[4])
		}
	}
	return out
}

// adaptiveThreshold whitens a pixel brighter than its block mean minus c.
// Block sums come from an integral image.
func adaptiveThreshold(g *image.Gray, block, c int) *image.Gray {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	integral := make([]int, (w+1)*(h+1))
	for y := 0; y < h; y++ {
		rowSum := 0
		for x := 0; x < w; x++ {
			rowSum += int(g.Pix[y*g.Stride+x])
			integral[(y+1)*(w+1)+x+1] = integral[y*(w+1)+x+1] + rowSum
		}
	}

	half := block / 2
	out := image.NewGray(g.Rect)
	for y := 0; y < h; y++ {
		y0, y1 := max(0, y-half), min(h, y+half+1)
		for x := 0; x < w; x++ {
			x0, x1 := max(0, x-half), min(w, x+half+1)
			sum := integral[y1*(w+1)+x1] - integral[y0*(w+1)+x1] - integral[y1*(w+1)+x0] + integral[y0*(w+1)+x0]
			mean := float64(sum) / float64((x1-x0)*(y1-y0))
			if float64(g.Pix[y*g.Stride+x]) > mean-float64(c) {
				out.Pix[y*out.Stride+x] = 255
			}
		}
	}
	return out
}

func dilate(g *image.Gray) *image.Gray {
	return morph(g, func(a, b uint8) bool { return b > a })
}

func erode(g *image.Gray) *image.Gray {
	return morph(g, func(a, b uint8) bool { return b < a })
}

// morph replaces each pixel with the 3×3 neighbour preferred by better.
func morph(g *image.Gray, better func(cur, cand uint8) bool) *image.Gray {
	out := image.NewGray(g.Rect)
	w, h := g.Rect.Dx(), g.Rect.Dy()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := at(g, x, y)
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if n := at(g, x+dx, y+dy); better(v, n) {
						v = n
					}
				}
			}
			out.Pix[y*out.Stride+x] = v
		}
	}
	return out
}

// at reads a pixel with coordinates clamped to the image edge.
func at(g *image.Gray, x, y int) uint8 {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	x = min(max(x, 0), w-1)
	y = min(max(y, 0), h-1)
	return g.Pix[y*g.Stride+x]
}

func mapPixels(g *image.Gray, fn func(uint8) uint8) *image.Gray {
	out := image.NewGray(g.Rect)
	w, h := g.Rect.Dx(), g.Rect.Dy()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.Pix[y*out.Stride+x] = fn(g.Pix[y*g.Stride+x])
		}
	}
	return out
}

func clone(g *image.Gray) *image.Gray {
	return mapPixels(g, func(p uint8) uint8 { return p })
}

func clamp(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v + 0.5)
	}
}
