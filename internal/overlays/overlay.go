// Package overlays layers timed text captions over the visual track.
package overlays

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/slideforge/internal/clips"
	"github.com/kikiluvv/slideforge/internal/failure"
	"github.com/kikiluvv/slideforge/internal/timeline"
)

// Compositor renders text overlays onto a base track
type Compositor struct {
	logger      zerolog.Logger
	fonts       *FontRegistry
	defaultFont string
}

// NewCompositor creates a compositor. defaultFont is used for overlays that
// name no font; empty means the built-in font.
func NewCompositor(logger zerolog.Logger, fonts *FontRegistry, defaultFont string) *Compositor {
	return &Compositor{
		logger:      logger.With().Str("component", "overlays").Logger(),
		fonts:       fonts,
		defaultFont: defaultFont,
	}
}

// Fonts returns the font registry
func (c *Compositor) Fonts() *FontRegistry { return c.fonts }

func (c *Compositor) fontRef(o timeline.TextOverlay) string {
	if o.Font != "" {
		return o.Font
	}
	return c.defaultFont
}

// CheckStyle verifies the overlay color and font can be used
func (c *Compositor) CheckStyle(o timeline.TextOverlay) error {
	if _, err := ParseColor(o.Color); err != nil {
		return err
	}
	if _, err := c.fonts.Resolve(c.fontRef(o)); err != nil {
		return err
	}
	return nil
}

// Apply returns base with every overlay drawn during its window. Later
// overlays are drawn on top. Duration and frame size are unchanged.
func (c *Compositor) Apply(base *clips.Clip, overlays []timeline.TextOverlay) (*clips.Clip, error) {
	if len(overlays) == 0 {
		return base, nil
	}

	layers := []clips.Layer{{Clip: base}}

	for i, o := range overlays {
		entity := fmt.Sprintf("text_overlays[%d]", i)

		start, end := o.Window(base.Duration())
		if start >= end {
			c.logger.Debug().Str("overlay", entity).Msg("overlay starts after the track ends, skipping")
			continue
		}

		col, err := ParseColor(o.Color)
		if err != nil {
			return nil, failure.New(failure.ErrInvalidTimeline, failure.StageOverlay, entity+".color", err)
		}
		face, err := c.fonts.Face(c.fontRef(o), o.FontSize)
		if err != nil {
			return nil, failure.New(failure.ErrInvalidTimeline, failure.StageOverlay, entity+".font", err)
		}

		frame := Rasterize(base.Size(), Caption{
			Text:     o.Text,
			Face:     face,
			Color:    col,
			Position: o.Position,
		})
		if err := face.Close(); err != nil {
			c.logger.Warn().Err(err).Str("overlay", entity).Msg("failed to release font face")
		}

		layers = append(layers, clips.Layer{
			Clip:  clips.Still(frame, end-start),
			Start: start,
		})
	}

	c.logger.Debug().
		Int("overlays", len(overlays)).
		Int("layers", len(layers)-1).
		Msg("overlays composed")

	return clips.Composite(base.Size(), base.Duration(), nil, layers), nil
}
