package timeline

import (
	"errors"
	"fmt"
	"math"

	"github.com/kikiluvv/slideforge/internal/failure"
)

// EffectChecker knows which effects exist and which parameters they accept
type EffectChecker interface {
	Has(name string) bool
	CheckParam(name string, value, duration float64) error
}

// StyleChecker validates overlay styling (color, font) before rendering
type StyleChecker interface {
	CheckStyle(o TextOverlay) error
}

// Validate checks the whole request before any asset is fetched. Every
// problem found is returned, joined, each naming the offending entity.
// styles may be nil to skip overlay styling checks.
func Validate(req *VideoRequest, effects EffectChecker, styles StyleChecker) error {
	v := &validator{}

	if req == nil || len(req.Timeline) == 0 {
		v.invalid("timeline", "timeline must contain at least one entry")
		return v.err()
	}

	for i, entry := range req.Timeline {
		v.entry(i, entry, effects)
	}
	v.transition(req)
	for i, o := range req.TextOverlays {
		v.overlay(i, o, styles)
	}

	return v.err()
}

type validator struct {
	problems []error
}

func (v *validator) invalid(entity, format string, args ...any) {
	v.problems = append(v.problems,
		failure.Newf(failure.ErrInvalidTimeline, failure.StageValidate, entity, format, args...))
}

func (v *validator) err() error {
	return errors.Join(v.problems...)
}

func (v *validator) entry(i int, entry Entry, effects EffectChecker) {
	path := fmt.Sprintf("timeline[%d]", i)

	switch e := entry.(type) {
	case ImageEntry:
		if e.URL == "" {
			v.invalid(path+".url", "image url is required")
		}
	case SplitEntry:
		if e.TopURL == "" {
			v.invalid(path+".top_url", "top image url is required")
		}
		if e.BottomURL == "" {
			v.invalid(path+".bot_url", "bottom image url is required")
		}
		if e.Size != nil && (e.Size.Width <= 0 || e.Size.Height <= 0) {
			v.invalid(path+".size", "size must be positive, got %dx%d", e.Size.Width, e.Size.Height)
		}
	default:
		v.invalid(path, "unsupported entry %T", entry)
		return
	}

	base := entry.Common()
	d := float64(base.Duration)
	if !finite(d) || d <= 0 {
		v.invalid(path+".duration", "duration must be positive, got %v", d)
	}

	seen := make(map[string]bool, len(base.Effects))
	for _, eff := range base.Effects {
		epath := path + ".effects." + eff.Name
		if seen[eff.Name] {
			v.invalid(epath, "effect declared more than once")
			continue
		}
		seen[eff.Name] = true

		if !effects.Has(eff.Name) {
			v.problems = append(v.problems,
				failure.Newf(failure.ErrUnknownEffect, failure.StageValidate, epath, "no effect named %q", eff.Name))
			continue
		}
		if !finite(eff.Value) {
			v.invalid(epath, "parameter must be finite, got %v", eff.Value)
			continue
		}
		if err := effects.CheckParam(eff.Name, eff.Value, d); err != nil {
			v.problems = append(v.problems,
				failure.New(failure.ErrInvalidTimeline, failure.StageValidate, epath, err))
		}
	}
}

func (v *validator) transition(req *VideoRequest) {
	tr := req.EffectiveTransition()

	switch tr.Type {
	case TransitionCrossfade, TransitionSlide:
	case TransitionBlink:
		v.invalid("transition.type", "unsupported transition type %q", tr.Type)
	default:
		v.invalid("transition.type", "unknown transition type %q", tr.Type)
	}

	td := float64(tr.Duration)
	if !finite(td) || td < 0 {
		v.invalid("transition.duration", "duration must be non-negative, got %v", td)
		return
	}

	for i := 1; i < len(req.Timeline); i++ {
		prev := float64(req.Timeline[i-1].Common().Duration)
		next := float64(req.Timeline[i].Common().Duration)
		if td > math.Min(prev, next) {
			v.invalid("transition.duration",
				"duration %v exceeds the shorter of timeline[%d] (%v) and timeline[%d] (%v)",
				td, i-1, prev, i, next)
		}
	}
}

func (v *validator) overlay(i int, o TextOverlay, styles StyleChecker) {
	path := fmt.Sprintf("text_overlays[%d]", i)

	start := float64(o.Start)
	if !finite(start) || start < 0 {
		v.invalid(path+".start", "start must be non-negative, got %v", start)
	}
	if o.End != nil {
		end := float64(*o.End)
		if !finite(end) || end <= start {
			v.invalid(path+".end", "end must be after start (%v), got %v", start, end)
		}
	}

	switch o.Position {
	case PositionCenter, PositionTop, PositionBottom:
	default:
		v.invalid(path+".position", "unknown position %q", o.Position)
	}
	if o.FontSize <= 0 {
		v.invalid(path+".fontsize", "font size must be positive, got %d", o.FontSize)
	}

	if styles != nil {
		if err := styles.CheckStyle(o); err != nil {
			v.problems = append(v.problems,
				failure.New(failure.ErrInvalidTimeline, failure.StageValidate, path, err))
		}
	}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
