package transitions

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/slideforge/internal/clips"
	"github.com/kikiluvv/slideforge/internal/failure"
	"github.com/kikiluvv/slideforge/internal/timeline"
)

func still(w, h int, c color.RGBA, d float64) *clips.Clip {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return clips.Still(img, d)
}

var (
	red  = color.RGBA{R: 255, A: 255}
	blue = color.RGBA{B: 255, A: 255}
)

func TestCrossfadeOverlap(t *testing.T) {
	comp := New(zerolog.Nop())
	track, err := comp.Compose(
		[]*clips.Clip{still(8, 8, red, 2), still(8, 8, blue, 2)},
		timeline.Transition{Type: timeline.TransitionCrossfade, Duration: 0.5},
	)
	if err != nil {
		t.Fatalf("compose failed: %v", err)
	}

	if track.Duration() != 3.5 {
		t.Errorf("expected duration 3.5, got %v", track.Duration())
	}

	at := func(ts float64) color.RGBA { return track.Frame(ts).RGBAAt(4, 4) }

	if got := at(1.0); got != red {
		t.Errorf("expected only segment 1 at t=1.0, got %v", got)
	}
	if got := at(1.5); got != red {
		t.Errorf("expected segment 2 invisible at the start of its ramp, got %v", got)
	}

	prevBlue := -1
	for ts := 1.55; ts < 2.0; ts += 0.1 {
		got := at(ts)
		if int(got.B) <= prevBlue {
			t.Errorf("expected blue to increase during the ramp, t=%v got %v", ts, got)
		}
		prevBlue = int(got.B)
		want := (ts - 1.5) / 0.5 * 255
		if math.Abs(float64(got.B)-want) > 3 {
			t.Errorf("t=%v: expected blue ~%.0f, got %v", ts, want, got.B)
		}
	}

	if got := at(2.0); got != blue {
		t.Errorf("expected segment 2 fully opaque at t=2.0, got %v", got)
	}
	if got := at(3.49); got != blue {
		t.Errorf("expected segment 2 near the end, got %v", got)
	}
}

func TestDurationFormula(t *testing.T) {
	comp := New(zerolog.Nop())
	segs := []*clips.Clip{still(4, 4, red, 1), still(4, 4, blue, 3), still(4, 4, red, 2.5), still(4, 4, blue, 0.75)}

	for _, td := range []float64{0, 0.25, 0.75} {
		track, err := comp.Compose(segs, timeline.Transition{Type: timeline.TransitionSlide, Duration: timeline.Seconds(td)})
		if err != nil {
			t.Fatalf("td=%v: compose failed: %v", td, err)
		}
		want := 1 + 3 + 2.5 + 0.75 - 3*td
		if math.Abs(track.Duration()-want) > 1e-9 {
			t.Errorf("td=%v: expected %v, got %v", td, want, track.Duration())
		}
	}
}

func TestHardCut(t *testing.T) {
	track, err := New(zerolog.Nop()).Compose(
		[]*clips.Clip{still(4, 4, red, 1), still(4, 4, blue, 1)},
		timeline.Transition{Type: timeline.TransitionCrossfade, Duration: 0},
	)
	if err != nil {
		t.Fatal(err)
	}
	if got := track.Frame(0.999).RGBAAt(0, 0); got != red {
		t.Errorf("expected red before the cut, got %v", got)
	}
	if got := track.Frame(1).RGBAAt(0, 0); got != blue {
		t.Errorf("expected blue from the cut, got %v", got)
	}
}

func TestSlideEntersFromLeft(t *testing.T) {
	track, err := New(zerolog.Nop()).Compose(
		[]*clips.Clip{still(10, 2, red, 2), still(10, 2, blue, 2)},
		timeline.Transition{Type: timeline.TransitionSlide, Duration: 1},
	)
	if err != nil {
		t.Fatal(err)
	}

	f := track.Frame(1.5)
	if got := f.RGBAAt(2, 0); got != blue {
		t.Errorf("expected entering segment on the left half, got %v", got)
	}
	if got := f.RGBAAt(8, 0); got != red {
		t.Errorf("expected exiting segment still visible on the right, got %v", got)
	}
}

func TestSingleSegmentUnchanged(t *testing.T) {
	seg := still(4, 4, red, 3)
	track, err := New(zerolog.Nop()).Compose([]*clips.Clip{seg}, timeline.DefaultTransition())
	if err != nil {
		t.Fatal(err)
	}
	if track != seg {
		t.Error("expected the single segment to pass through")
	}
	if track.Duration() != 3 {
		t.Errorf("expected duration 3, got %v", track.Duration())
	}
}

func TestMixedSizesCentered(t *testing.T) {
	track, err := New(zerolog.Nop()).Compose(
		[]*clips.Clip{still(8, 4, red, 1), still(4, 8, blue, 1)},
		timeline.Transition{Type: timeline.TransitionCrossfade, Duration: 0},
	)
	if err != nil {
		t.Fatal(err)
	}
	if track.Size() != image.Pt(8, 8) {
		t.Fatalf("expected 8x8 track, got %v", track.Size())
	}

	first := track.Frame(0.5)
	if got := first.RGBAAt(0, 0); got != (color.RGBA{A: 255}) {
		t.Errorf("expected black letterbox, got %v", got)
	}
	if got := first.RGBAAt(0, 3); got != red {
		t.Errorf("expected centered first segment, got %v", got)
	}
	if got := track.Frame(1.5).RGBAAt(3, 0); got != blue {
		t.Errorf("expected centered second segment, got %v", got)
	}
}

func TestUnknownTransition(t *testing.T) {
	_, err := New(zerolog.Nop()).Compose(
		[]*clips.Clip{still(4, 4, red, 1), still(4, 4, blue, 1)},
		timeline.Transition{Type: timeline.TransitionBlink, Duration: 0.5},
	)
	if !errors.Is(err, failure.ErrInvalidTimeline) {
		t.Errorf("expected invalid timeline error, got %v", err)
	}
}
