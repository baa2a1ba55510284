// Package transitions merges compiled clips into one visual track, each
// clip overlapping the previous one by the transition duration.
package transitions

import (
	"image"
	"image/color"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/slideforge/internal/clips"
	"github.com/kikiluvv/slideforge/internal/effects"
	"github.com/kikiluvv/slideforge/internal/failure"
	"github.com/kikiluvv/slideforge/internal/timeline"
)

// Entry applies a transition's ramp to the entering clip over d seconds
type Entry func(c *clips.Clip, d float64) *clips.Clip

var entries = map[timeline.TransitionType]Entry{
	timeline.TransitionCrossfade: effects.CrossFadeIn,
	timeline.TransitionSlide:     effects.SlideInTransform,
}

// Supported returns the transition types that can be composed
func Supported() []timeline.TransitionType {
	return []timeline.TransitionType{timeline.TransitionCrossfade, timeline.TransitionSlide}
}

// Composer builds the visual track
type Composer struct {
	logger zerolog.Logger
}

// New creates a composer
func New(logger zerolog.Logger) *Composer {
	return &Composer{
		logger: logger.With().Str("component", "transitions").Logger(),
	}
}

// Compose places segment i at the end of segment i-1 minus the transition
// duration, applying the entry ramp to every segment after the first. The
// track is as wide and as tall as the largest segment; smaller ones are
// centered on black.
func (c *Composer) Compose(segments []*clips.Clip, tr timeline.Transition) (*clips.Clip, error) {
	if len(segments) == 0 {
		return nil, failure.Newf(failure.ErrInvalidTimeline, failure.StageTransition, "timeline", "no segments to compose")
	}
	enter, ok := entries[tr.Type]
	if !ok {
		return nil, failure.Newf(failure.ErrInvalidTimeline, failure.StageTransition, "transition.type",
			"unsupported transition type %q", tr.Type)
	}
	if len(segments) == 1 {
		return segments[0], nil
	}
	td := float64(tr.Duration)

	var size image.Point
	for _, s := range segments {
		size.X = max(size.X, s.Width())
		size.Y = max(size.Y, s.Height())
	}

	layers := make([]clips.Layer, 0, len(segments))
	var start float64
	for i, s := range segments {
		if i > 0 {
			prev := layers[i-1]
			start = prev.End() - td
			if td > 0 {
				s = enter(s, td)
			}
		}
		layers = append(layers, clips.Centered(s, start, size))
	}
	total := layers[len(layers)-1].End()

	c.logger.Debug().
		Str("type", string(tr.Type)).
		Float64("overlap", td).
		Int("segments", len(segments)).
		Float64("duration", total).
		Msg("track composed")

	return clips.Composite(size, total, color.Black, layers), nil
}
