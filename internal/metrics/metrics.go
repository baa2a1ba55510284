// Package metrics provides Prometheus metrics for the render pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kikiluvv/slideforge/internal/failure"
)

var (
	rendersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "slideforge",
		Name:      "renders_total",
		Help:      "Render requests by outcome",
	}, []string{"result"})

	renderDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "slideforge",
		Name:      "render_duration_seconds",
		Help:      "Wall time of complete renders",
		Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
	})

	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "slideforge",
		Name:      "stage_duration_seconds",
		Help:      "Wall time per pipeline stage",
		Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
	}, []string{"stage"})

	encodeFPS = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "slideforge",
		Subsystem: "ffmpeg",
		Name:      "fps",
		Help:      "Current encoding FPS reported by ffmpeg",
	})
)

// ObserveRender records one finished render. err nil counts as success.
func ObserveRender(err error, took time.Duration) {
	rendersTotal.WithLabelValues(failure.Label(err)).Inc()
	if err == nil {
		renderDuration.Observe(took.Seconds())
	}
}

// ObserveStage records the wall time of one pipeline stage
func ObserveStage(stage string, took time.Duration) {
	stageDuration.WithLabelValues(stage).Observe(took.Seconds())
}

// SetEncodeFPS sets the current encoder throughput
func SetEncodeFPS(fps float64) {
	encodeFPS.Set(fps)
}

// Handler serves the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
