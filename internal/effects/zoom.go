package effects

import (
	"image"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/kikiluvv/slideforge/internal/clips"
)

const lanczosSupport = 4

// lanczos is the a=4 Lanczos windowed sinc
var lanczos = &draw.Kernel{
	Support: lanczosSupport,
	At: func(t float64) float64 {
		if t < 0 {
			t = -t
		}
		if t < 1e-9 {
			return 1
		}
		if t >= lanczosSupport {
			return 0
		}
		return sinc(t) * sinc(t/lanczosSupport)
	},
}

func sinc(x float64) float64 {
	x *= math.Pi
	return math.Sin(x) / x
}

// ZoomTransform scales each frame about its center by 1 + rate*t, where t is
// the clip-local time. Each frame is resampled from its own source frame.
func ZoomTransform(c *clips.Clip, rate float64) *clips.Clip {
	if rate == 0 {
		return c
	}
	return c.Map(func(t float64, f *image.RGBA) *image.RGBA {
		return ZoomFrame(f, 1+rate*t)
	})
}

// ZoomFrame magnifies f by s about its center, keeping its size. Samples
// falling outside the frame are mirrored back in at the border.
func ZoomFrame(f *image.RGBA, s float64) *image.RGBA {
	if s == 1 || s <= 0 {
		return f
	}

	b := f.Bounds()
	w, h := b.Dx(), b.Dy()
	cx, cy := float64(w)/2, float64(h)/2

	// dst = s*src + c*(1-s)
	s2d := f64.Aff3{
		s, 0, cx * (1 - s),
		0, s, cy * (1 - s),
	}

	// The kernel footprint grows by 1/s when shrinking; a zoom out also
	// uncovers up to (1/s - 1) * size/2 beyond each edge.
	reach := lanczosSupport / s
	if s < 1 {
		reach += (1/s - 1) * float64(max(w, h)) / 2
	}
	margin := int(math.Ceil(reach)) + 2

	src := reflectPad(f, margin)
	dst := image.NewRGBA(b)
	lanczos.Transform(dst, s2d, src, src.Bounds(), draw.Src, nil)
	return dst
}

// reflectPad returns a copy of f extended by m pixels on every side, the
// border filled by mirroring. The result keeps f's coordinate space, so
// its bounds start at (-m, -m).
func reflectPad(f *image.RGBA, m int) *image.RGBA {
	b := f.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewRGBA(image.Rect(b.Min.X-m, b.Min.Y-m, b.Max.X+m, b.Max.Y+m))

	cols := make([]int, out.Rect.Dx())
	for i := range cols {
		cols[i] = mirror(out.Rect.Min.X+i-b.Min.X, w) + b.Min.X
	}

	for y := out.Rect.Min.Y; y < out.Rect.Max.Y; y++ {
		sy := mirror(y-b.Min.Y, h) + b.Min.Y
		srow := f.PixOffset(b.Min.X, sy)
		drow := out.PixOffset(out.Rect.Min.X, y)
		for i, sx := range cols {
			s := srow + (sx-b.Min.X)*4
			d := drow + i*4
			copy(out.Pix[d:d+4], f.Pix[s:s+4])
		}
	}
	return out
}

// mirror folds any index into [0, n) by reflecting at the edges
// (... 2 1 0 | 0 1 2 ... n-1 | n-1 n-2 ...).
func mirror(i, n int) int {
	if n <= 1 {
		return 0
	}
	period := 2 * n
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - 1 - i
	}
	return i
}
