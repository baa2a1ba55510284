package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/kikiluvv/slideforge/internal/audio"
	"github.com/kikiluvv/slideforge/internal/ffmpeg"
)

// ErrUploadDisabled is returned when an upload is requested but no remote
// store is configured
var ErrUploadDisabled = errors.New("upload requested but no remote store is configured")

// Backend probes audio sources and encodes final compositions
type Backend interface {
	audio.Prober
	Encode(ctx context.Context, comp *audio.Composition, output string, opts ffmpeg.EncodeOptions) error
}

// Artifact is a finished render
type Artifact struct {
	ID       string  `json:"id"`
	Path     string  `json:"path,omitempty"`
	URL      string  `json:"url,omitempty"`
	Duration float64 `json:"duration"`
}

// RenderOptions configures render behavior
type RenderOptions struct {
	// Output moves the result to this path instead of the output store
	Output string
	// Upload sends the result to the remote store
	Upload bool
}

// Config holds pipeline-specific configuration
type Config struct {
	Concurrency int
	TempDir     string

	AssetTimeout  time.Duration
	AssetRetryMax int
	// AllowLocal lets requests reference files on this host, for assets
	// and fonts alike. Off for requests from remote clients.
	AllowLocal bool

	DefaultFont string
	Fonts       map[string]string

	Encode ffmpeg.EncodeOptions
}
