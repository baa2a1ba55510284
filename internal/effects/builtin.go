package effects

import (
	"image"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/kikiluvv/slideforge/internal/clips"
)

// FadeInTransform fades from black over the first d seconds
func FadeInTransform(c *clips.Clip, d float64) *clips.Clip {
	if d <= 0 {
		return c
	}
	return c.Map(func(t float64, f *image.RGBA) *image.RGBA {
		if t >= d {
			return f
		}
		return clips.Dim(f, t/d)
	})
}

// FadeOutTransform fades to black over the last d seconds
func FadeOutTransform(c *clips.Clip, d float64) *clips.Clip {
	if d <= 0 {
		return c
	}
	start := c.Duration() - d
	return c.Map(func(t float64, f *image.RGBA) *image.RGBA {
		if t <= start {
			return f
		}
		return clips.Dim(f, (c.Duration()-t)/d)
	})
}

// SlideInTransform moves the frame in from the left edge over d seconds
func SlideInTransform(c *clips.Clip, d float64) *clips.Clip {
	if d <= 0 {
		return c
	}
	w := float64(c.Width())
	return c.Map(func(t float64, f *image.RGBA) *image.RGBA {
		if t >= d {
			return f
		}
		dx := int(math.Round(w * (t/d - 1)))
		return clips.Shift(f, dx, 0)
	})
}

// CrossFadeIn ramps the clip's opacity from 0 to 1 over d seconds
func CrossFadeIn(c *clips.Clip, d float64) *clips.Clip {
	if d <= 0 {
		return c
	}
	return c.Map(func(t float64, f *image.RGBA) *image.RGBA {
		if t >= d {
			return f
		}
		return clips.Opacity(f, t/d)
	})
}

// RotateTransform rotates every frame by deg degrees counter-clockwise
// about its center. The frame size is kept and uncovered pixels are
// transparent.
func RotateTransform(c *clips.Clip, deg float64) *clips.Clip {
	if math.Mod(deg, 360) == 0 {
		return c
	}

	rad := deg * math.Pi / 180
	sin, cos := math.Sincos(rad)
	cx, cy := float64(c.Width())/2, float64(c.Height())/2

	// Screen y points down, so a visually counter-clockwise turn is
	// x' = x cos + y sin, y' = -x sin + y cos about the center.
	s2d := f64.Aff3{
		cos, sin, cx - cos*cx - sin*cy,
		-sin, cos, cy + sin*cx - cos*cy,
	}

	return c.Map(func(_ float64, f *image.RGBA) *image.RGBA {
		dst := image.NewRGBA(f.Bounds())
		draw.CatmullRom.Transform(dst, s2d, f, f.Bounds(), draw.Src, nil)
		return dst
	})
}
