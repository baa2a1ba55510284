package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kikiluvv/slideforge/internal/failure"
)

func TestObserveRender(t *testing.T) {
	ok := testutil.ToFloat64(rendersTotal.WithLabelValues("ok"))
	bad := testutil.ToFloat64(rendersTotal.WithLabelValues("asset_unavailable"))

	ObserveRender(nil, time.Second)
	ObserveRender(failure.New(failure.ErrAssetUnavailable, failure.StageCompile, "timeline[0].url", errors.New("404")), time.Second)

	if got := testutil.ToFloat64(rendersTotal.WithLabelValues("ok")); got != ok+1 {
		t.Errorf("expected ok counter %v, got %v", ok+1, got)
	}
	if got := testutil.ToFloat64(rendersTotal.WithLabelValues("asset_unavailable")); got != bad+1 {
		t.Errorf("expected asset_unavailable counter %v, got %v", bad+1, got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	ObserveStage(failure.StageCompile, 20*time.Millisecond)
	SetEncodeFPS(48)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{
		`slideforge_stage_duration_seconds_count{stage="clip-compiler"}`,
		"slideforge_ffmpeg_fps 48",
		"slideforge_renders_total",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in metrics output", want)
		}
	}
}
