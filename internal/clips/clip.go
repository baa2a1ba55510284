// Package clips holds the immutable visual segment model the render stages
// pass between each other. A Clip is a duration, a frame size and a pure
// function from local time to a frame. Frames may be shared between calls
// and between clips, so they must never be modified after being returned.
package clips

import (
	"image"

	"golang.org/x/image/draw"
)

// FrameFunc renders the frame shown at local time t (seconds)
type FrameFunc func(t float64) *image.RGBA

// Clip is a time-bounded visual segment
type Clip struct {
	duration float64
	size     image.Point
	frame    FrameFunc
}

// New creates a clip from a frame function. fn must return frames of the given size.
func New(duration float64, size image.Point, fn FrameFunc) *Clip {
	return &Clip{
		duration: duration,
		size:     size,
		frame:    fn,
	}
}

// Still holds a single image for duration seconds
func Still(img image.Image, duration float64) *Clip {
	frame := ToRGBA(img)
	return New(duration, frame.Rect.Size(), func(float64) *image.RGBA {
		return frame
	})
}

// Duration returns the clip length in seconds
func (c *Clip) Duration() float64 { return c.duration }

// Size returns the frame dimensions
func (c *Clip) Size() image.Point { return c.size }

// Width returns the frame width in pixels
func (c *Clip) Width() int { return c.size.X }

// Height returns the frame height in pixels
func (c *Clip) Height() int { return c.size.Y }

// Frame renders the frame at local time t
func (c *Clip) Frame(t float64) *image.RGBA {
	return c.frame(t)
}

// WithDuration returns a copy of the clip with a different duration
func (c *Clip) WithDuration(d float64) *Clip {
	return New(d, c.size, c.frame)
}

// Map returns a clip whose frames are fn applied to this clip's frames.
// fn receives the local time and must not modify the frame it is given.
func (c *Clip) Map(fn func(t float64, frame *image.RGBA) *image.RGBA) *Clip {
	src := c.frame
	return New(c.duration, c.size, func(t float64) *image.RGBA {
		return fn(t, src(t))
	})
}

// ToRGBA returns an origin-anchored RGBA copy of img
func ToRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
