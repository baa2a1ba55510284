// Package timeline is the declarative render request: an ordered list of
// image-derived entries plus a transition, text overlays and background audio.
package timeline

import (
	"image"
)

// Entry kinds
const (
	KindImage = "image"
	KindSplit = "split"
)

// Entry is one timeline item. The variant set is closed: ImageEntry and SplitEntry.
type Entry interface {
	Kind() string
	Common() EntryBase
	isEntry()
}

// EntryBase carries the attributes shared by every entry kind
type EntryBase struct {
	Duration Seconds `json:"duration"`
	Effects  Effects `json:"effects,omitempty"`
}

// ImageEntry holds one still image for Duration seconds
type ImageEntry struct {
	EntryBase
	URL string `json:"url"`
}

// SplitEntry stacks the middle halves of two images vertically
type SplitEntry struct {
	EntryBase
	TopURL    string     `json:"top_url"`
	BottomURL string     `json:"bot_url"`
	Size      *FrameSize `json:"size,omitempty"`
}

func (ImageEntry) Kind() string { return KindImage }
func (SplitEntry) Kind() string { return KindSplit }

func (e ImageEntry) Common() EntryBase { return e.EntryBase }
func (e SplitEntry) Common() EntryBase { return e.EntryBase }

func (ImageEntry) isEntry() {}
func (SplitEntry) isEntry() {}

// FrameSize is an explicit target size in pixels
type FrameSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Point converts the size to an image.Point
func (s FrameSize) Point() image.Point {
	return image.Pt(s.Width, s.Height)
}

// TransitionType names a blend between adjacent entries
type TransitionType string

const (
	TransitionCrossfade TransitionType = "crossfade"
	TransitionSlide     TransitionType = "slide"
	// TransitionBlink is accepted by the decoder and rejected by validation.
	TransitionBlink TransitionType = "blink"
)

// Transition defaults
const (
	DefaultTransitionType     = TransitionCrossfade
	DefaultTransitionDuration = 0.5
)

// Transition is applied uniformly between every adjacent pair of entries
type Transition struct {
	Type     TransitionType `json:"type"`
	Duration Seconds        `json:"duration"`
}

// DefaultTransition returns crossfade/0.5s
func DefaultTransition() Transition {
	return Transition{Type: DefaultTransitionType, Duration: DefaultTransitionDuration}
}

// Overlay positions
const (
	PositionCenter = "center"
	PositionTop    = "top"
	PositionBottom = "bottom"
)

// Overlay defaults
const (
	DefaultFontSize = 32
	DefaultColor    = "white"
)

// TextOverlay is a caption shown during [Start, End)
type TextOverlay struct {
	Text     string   `json:"text"`
	Start    Seconds  `json:"start"`
	End      *Seconds `json:"end,omitempty"`
	Position string   `json:"position,omitempty"`
	FontSize int      `json:"fontsize,omitempty"`
	Color    string   `json:"color,omitempty"`
	Font     string   `json:"font,omitempty"`
}

// Window resolves the overlay's active interval against a base duration.
// An absent End spans the remainder; End beyond the base is clamped.
func (o TextOverlay) Window(base float64) (start, end float64) {
	start = float64(o.Start)
	end = base
	if o.End != nil && float64(*o.End) < base {
		end = float64(*o.End)
	}
	return start, end
}

// VideoRequest is the aggregate render request
type VideoRequest struct {
	Timeline     Timeline      `json:"timeline"`
	Audio        string        `json:"audio,omitempty"`
	Transition   *Transition   `json:"transition,omitempty"`
	TextOverlays []TextOverlay `json:"text_overlays,omitempty"`
}

// EffectiveTransition returns the request transition or the default
func (r *VideoRequest) EffectiveTransition() Transition {
	if r.Transition == nil {
		return DefaultTransition()
	}
	return *r.Transition
}

// ExpectedDuration is the composed length: sum of entries minus one
// transition overlap per adjacent pair.
func (r *VideoRequest) ExpectedDuration() float64 {
	var total float64
	for _, e := range r.Timeline {
		total += float64(e.Common().Duration)
	}
	if n := len(r.Timeline); n > 1 {
		total -= float64(n-1) * float64(r.EffectiveTransition().Duration)
	}
	return total
}
