package audio

import (
	"context"
	"errors"
	"fmt"
	"image"
	"testing"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/slideforge/internal/clips"
	"github.com/kikiluvv/slideforge/internal/failure"
)

type fakeProber map[string]float64

func (f fakeProber) ProbeDuration(_ context.Context, path string) (float64, error) {
	d, ok := f[path]
	if !ok {
		return 0, fmt.Errorf("cannot probe %s", path)
	}
	return d, nil
}

type identity struct{}

func (identity) Resolve(_ context.Context, locator string) (string, error) {
	if locator == "unreachable" {
		return "", fmt.Errorf("connection refused")
	}
	return locator, nil
}

func video(d float64) *clips.Clip {
	return clips.Still(image.NewRGBA(image.Rect(0, 0, 2, 2)), d)
}

func TestLoops(t *testing.T) {
	tests := []struct {
		source, visual float64
		want           int
	}{
		{10, 3, 1},
		{3, 3, 1},
		{2, 3, 2},
		{1, 3, 3},
		{0.7, 3.5, 5},
		{0.3, 1, 4},
	}
	for _, tt := range tests {
		if got := Loops(tt.source, tt.visual); got != tt.want {
			t.Errorf("Loops(%v, %v) = %d, want %d", tt.source, tt.visual, got, tt.want)
		}
		// Looped audio must always cover the visual track
		if covered := float64(Loops(tt.source, tt.visual)) * tt.source; covered < tt.visual-1e-9 {
			t.Errorf("Loops(%v, %v) covers only %v", tt.source, tt.visual, covered)
		}
	}
}

func TestAttach(t *testing.T) {
	s := NewSynchronizer(zerolog.Nop(), fakeProber{"short.mp3": 1.5, "long.mp3": 60})

	comp, err := s.Attach(context.Background(), identity{}, video(3.5), "short.mp3")
	if err != nil {
		t.Fatalf("attach failed: %v", err)
	}
	if comp.Audio == nil {
		t.Fatal("expected audio track")
	}
	if comp.Audio.Duration != 3.5 || comp.Duration() != 3.5 {
		t.Errorf("expected audio cut to exactly 3.5s, got %v", comp.Audio.Duration)
	}
	if comp.Audio.Loops != 3 {
		t.Errorf("expected 3 loops, got %d", comp.Audio.Loops)
	}

	comp, err = s.Attach(context.Background(), identity{}, video(3.5), "long.mp3")
	if err != nil {
		t.Fatal(err)
	}
	if comp.Audio.Loops != 1 || comp.Audio.Duration != 3.5 {
		t.Errorf("expected a single truncated pass, got %+v", comp.Audio)
	}
}

func TestAttachSilent(t *testing.T) {
	v := video(2)
	comp, err := NewSynchronizer(zerolog.Nop(), fakeProber{}).Attach(context.Background(), identity{}, v, "")
	if err != nil {
		t.Fatal(err)
	}
	if comp.Audio != nil || comp.Video != v {
		t.Errorf("expected silent pass-through, got %+v", comp)
	}
}

func TestAttachFailures(t *testing.T) {
	s := NewSynchronizer(zerolog.Nop(), fakeProber{"empty.mp3": 0})

	for _, locator := range []string{"unreachable", "unprobeable.mp3", "empty.mp3"} {
		_, err := s.Attach(context.Background(), identity{}, video(2), locator)
		if !errors.Is(err, failure.ErrAssetUnavailable) {
			t.Errorf("%s: expected asset unavailable, got %v", locator, err)
		}
		var fe *failure.Error
		if errors.As(err, &fe) && fe.Stage != failure.StageAudio {
			t.Errorf("%s: expected audio stage, got %s", locator, fe.Stage)
		}
	}
}
