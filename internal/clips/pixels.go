package clips

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// Opacity scales every channel of a premultiplied frame by a (0..1)
func Opacity(src *image.RGBA, a float64) *image.RGBA {
	a = clamp01(a)
	if a >= 1 {
		return src
	}
	b := src.Bounds()
	dst := image.NewRGBA(b)
	if a <= 0 {
		return dst
	}
	draw.DrawMask(dst, b, src, b.Min, alphaMask(level(a)), image.Point{}, draw.Src)
	return dst
}

// Dim darkens a frame toward black, leaving f (0..1) of its brightness.
// Partly transparent pixels gain alpha as if black were laid over them,
// which is invisible once the frame lands on the black canvas.
func Dim(src *image.RGBA, f float64) *image.RGBA {
	f = clamp01(f)
	if f >= 1 {
		return src
	}
	b := src.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, src, b.Min, draw.Src)
	draw.DrawMask(dst, b, image.Black, image.Point{}, alphaMask(0xffff-level(f)), image.Point{}, draw.Over)
	return dst
}

// Shift translates a frame by (dx, dy), leaving uncovered pixels transparent
func Shift(src *image.RGBA, dx, dy int) *image.RGBA {
	if dx == 0 && dy == 0 {
		return src
	}
	b := src.Bounds()
	dst := image.NewRGBA(b)
	moved := b.Add(image.Pt(dx, dy)).Intersect(b)
	if moved.Empty() {
		return dst
	}
	draw.Draw(dst, moved, src, moved.Min.Sub(image.Pt(dx, dy)), draw.Src)
	return dst
}

// level maps 0..1 onto the 16-bit alpha range, rounding to nearest
func level(v float64) uint16 {
	return uint16(v*0xffff + 0.5)
}

func alphaMask(a uint16) *image.Uniform {
	return image.NewUniform(color.Alpha16{A: a})
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
