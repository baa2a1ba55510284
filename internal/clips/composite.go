package clips

import (
	"image"
	"image/color"
	"slices"

	"golang.org/x/image/draw"
)

// Layer places a clip on a composite timeline
type Layer struct {
	Clip   *Clip
	Start  float64
	Offset image.Point
}

// Active reports whether the layer is visible at composite time t
func (l Layer) Active(t float64) bool {
	return t >= l.Start && t < l.Start+l.Clip.Duration()
}

// End returns the composite time at which the layer stops
func (l Layer) End() float64 {
	return l.Start + l.Clip.Duration()
}

// Centered places c at start, centered on a canvas of the given size
func Centered(c *Clip, start float64, canvas image.Point) Layer {
	return Layer{
		Clip:   c,
		Start:  start,
		Offset: canvas.Sub(c.Size()).Div(2),
	}
}

// Composite stacks layers onto a canvas. Later layers are drawn over earlier
// ones. A nil background leaves uncovered pixels transparent.
func Composite(size image.Point, duration float64, background color.Color, layers []Layer) *Clip {
	layers = slices.Clone(layers)

	var bg image.Image
	if background != nil {
		bg = image.NewUniform(background)
	}

	return New(duration, size, func(t float64) *image.RGBA {
		dst := image.NewRGBA(image.Rectangle{Max: size})
		if bg != nil {
			draw.Draw(dst, dst.Bounds(), bg, image.Point{}, draw.Src)
		}

		for _, l := range layers {
			if !l.Active(t) {
				continue
			}
			frame := l.Clip.Frame(t - l.Start)
			fb := frame.Bounds()
			r := image.Rectangle{Max: fb.Size()}.Add(l.Offset)
			draw.Draw(dst, r, frame, fb.Min, draw.Over)
		}

		return dst
	})
}
