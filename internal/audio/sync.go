// Package audio binds an optional background track to the visual track,
// looping the source and cutting it to exactly the visual duration.
package audio

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/slideforge/internal/assets"
	"github.com/kikiluvv/slideforge/internal/clips"
	"github.com/kikiluvv/slideforge/internal/failure"
)

// Prober reports media durations in seconds
type Prober interface {
	ProbeDuration(ctx context.Context, path string) (float64, error)
}

// Track is a resolved audio source repeated Loops times and cut to Duration
type Track struct {
	Path           string
	SourceDuration float64
	Loops          int
	Duration       float64
}

// Composition is the visual track plus its synchronized audio, ready to
// encode. Audio is nil for a silent video.
type Composition struct {
	Video *clips.Clip
	Audio *Track
}

// Duration is the visual duration, which the audio always matches
func (c *Composition) Duration() float64 {
	return c.Video.Duration()
}

// Synchronizer attaches audio to visual tracks
type Synchronizer struct {
	logger zerolog.Logger
	prober Prober
}

// NewSynchronizer creates a synchronizer
func NewSynchronizer(logger zerolog.Logger, prober Prober) *Synchronizer {
	return &Synchronizer{
		logger: logger.With().Str("component", "audio").Logger(),
		prober: prober,
	}
}

// Attach resolves locator and loops it to cover the whole visual track.
// An empty locator yields a silent composition.
func (s *Synchronizer) Attach(ctx context.Context, res assets.Resolver, video *clips.Clip, locator string) (*Composition, error) {
	comp := &Composition{Video: video}
	if locator == "" {
		return comp, nil
	}

	path, err := res.Resolve(ctx, locator)
	if err != nil {
		return nil, failure.New(failure.ErrAssetUnavailable, failure.StageAudio, "audio", err)
	}

	source, err := s.prober.ProbeDuration(ctx, path)
	if err != nil {
		return nil, failure.New(failure.ErrAssetUnavailable, failure.StageAudio, "audio", err)
	}
	if !(source > 0) || math.IsInf(source, 0) {
		return nil, failure.New(failure.ErrAssetUnavailable, failure.StageAudio, "audio",
			fmt.Errorf("source has no usable duration (%v)", source))
	}

	comp.Audio = NewTrack(path, source, video.Duration())

	s.logger.Debug().
		Str("path", path).
		Float64("source", source).
		Int("loops", comp.Audio.Loops).
		Float64("duration", comp.Audio.Duration).
		Msg("audio synchronized")

	return comp, nil
}

// NewTrack loops a source of the given length enough times to cover
// visual seconds, then cuts it to exactly visual.
func NewTrack(path string, source, visual float64) *Track {
	return &Track{
		Path:           path,
		SourceDuration: source,
		Loops:          Loops(source, visual),
		Duration:       visual,
	}
}

// Loops is ceil(visual / source), at least 1
func Loops(source, visual float64) int {
	if source <= 0 || visual <= source {
		return 1
	}
	return int(math.Ceil(visual/source - 1e-9))
}
