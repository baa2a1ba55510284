// Package pipeline orchestrates a render request through validation, clip
// compilation, transitions, overlays, audio and encoding.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"net/url"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kikiluvv/slideforge/internal/assets"
	"github.com/kikiluvv/slideforge/internal/audio"
	"github.com/kikiluvv/slideforge/internal/clips"
	"github.com/kikiluvv/slideforge/internal/compiler"
	"github.com/kikiluvv/slideforge/internal/effects"
	"github.com/kikiluvv/slideforge/internal/failure"
	"github.com/kikiluvv/slideforge/internal/ffmpeg"
	"github.com/kikiluvv/slideforge/internal/metrics"
	"github.com/kikiluvv/slideforge/internal/overlays"
	"github.com/kikiluvv/slideforge/internal/storage"
	"github.com/kikiluvv/slideforge/internal/timeline"
	"github.com/kikiluvv/slideforge/internal/transitions"
	"github.com/kikiluvv/slideforge/pkg/util"
)

// Pipeline orchestrates the entire render workflow
type Pipeline struct {
	logger     zerolog.Logger
	config     *Config
	fetcher    *assets.Fetcher
	registry   *effects.Registry
	compiler   *compiler.Compiler
	composer   *transitions.Composer
	compositor *overlays.Compositor
	sync       *audio.Synchronizer
	backend    Backend
	store      storage.Store
	upload     storage.Store
}

// New creates a pipeline. store receives finished renders; upload, if
// non-nil, receives renders that ask for an upload.
func New(logger zerolog.Logger, cfg *Config, backend Backend, store, upload storage.Store) *Pipeline {
	if cfg == nil {
		cfg = &Config{Concurrency: 4}
	}

	fonts := overlays.NewFontRegistry(cfg.AllowLocal)
	for name, path := range cfg.Fonts {
		fonts.Register(name, path)
	}

	registry := effects.Default()

	return &Pipeline{
		logger: logger.With().Str("component", "pipeline").Logger(),
		config: cfg,
		fetcher: assets.NewFetcher(logger, assets.Options{
			TempDir:    cfg.TempDir,
			Timeout:    cfg.AssetTimeout,
			RetryMax:   cfg.AssetRetryMax,
			AllowLocal: cfg.AllowLocal,
		}),
		registry:   registry,
		compiler:   compiler.New(logger, registry, cfg.Concurrency),
		composer:   transitions.New(logger),
		compositor: overlays.NewCompositor(logger, fonts, cfg.DefaultFont),
		sync:       audio.NewSynchronizer(logger, backend),
		backend:    backend,
		store:      store,
		upload:     upload,
	}
}

// Effects lists the registered effect names
func (p *Pipeline) Effects() []string { return p.registry.Names() }

// Fonts lists the registered font names
func (p *Pipeline) Fonts() []string { return p.compositor.Fonts().List() }

// Transitions lists the supported transition types
func (p *Pipeline) Transitions() []timeline.TransitionType { return transitions.Supported() }

// CanUpload reports whether a remote store is configured
func (p *Pipeline) CanUpload() bool { return p.upload != nil }

// Validate checks a request without fetching any asset
func (p *Pipeline) Validate(req *timeline.VideoRequest) error {
	return timeline.Validate(req, p.registry, p.compositor)
}

// Compose builds the final composition for req. Assets are fetched into ws,
// which must outlive every use of the composition.
func (p *Pipeline) Compose(ctx context.Context, ws *assets.Workspace, req *timeline.VideoRequest) (*audio.Composition, error) {
	video, err := p.visual(ctx, ws, req)
	if err != nil {
		return nil, err
	}

	var comp *audio.Composition
	err = p.stage(failure.StageAudio, func() error {
		comp, err = p.sync.Attach(ctx, ws, video, req.Audio)
		return err
	})
	if err != nil {
		return nil, err
	}
	return comp, nil
}

// visual runs every stage up to and including overlays
func (p *Pipeline) visual(ctx context.Context, ws *assets.Workspace, req *timeline.VideoRequest) (*clips.Clip, error) {
	if err := p.stage(failure.StageValidate, func() error { return p.Validate(req) }); err != nil {
		return nil, err
	}

	var (
		segments []*clips.Clip
		track    *clips.Clip
		err      error
	)
	err = p.stage(failure.StageCompile, func() error {
		segments, err = p.compiler.CompileAll(ctx, ws, req.Timeline)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = p.stage(failure.StageTransition, func() error {
		track, err = p.composer.Compose(segments, req.EffectiveTransition())
		return err
	})
	if err != nil {
		return nil, err
	}

	err = p.stage(failure.StageOverlay, func() error {
		track, err = p.compositor.Apply(track, req.TextOverlays)
		return err
	})
	if err != nil {
		return nil, err
	}

	p.logger.Debug().
		Int("entries", len(req.Timeline)).
		Int("overlays", len(req.TextOverlays)).
		Float64("duration", track.Duration()).
		Msg("visual track composed")
	return track, nil
}

// Render composes, encodes and stores req. The request workspace is always
// removed; a failed render leaves no output behind.
func (p *Pipeline) Render(ctx context.Context, req *timeline.VideoRequest, opts RenderOptions) (*Artifact, error) {
	start := time.Now()
	art, err := p.render(ctx, req, opts)
	metrics.ObserveRender(err, time.Since(start))

	if err != nil {
		p.logger.Error().Err(err).Str("result", failure.Label(err)).Msg("render failed")
		return nil, err
	}

	p.logger.Info().
		Str("id", art.ID).
		Str("path", art.Path).
		Str("url", art.URL).
		Float64("duration", art.Duration).
		Dur("took", time.Since(start)).
		Msg("render complete")
	return art, nil
}

func (p *Pipeline) render(ctx context.Context, req *timeline.VideoRequest, opts RenderOptions) (*Artifact, error) {
	store := p.store
	if opts.Upload {
		if p.upload == nil {
			return nil, ErrUploadDisabled
		}
		store = p.upload
	}

	ws, err := p.fetcher.Workspace()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := ws.Cleanup(); err != nil {
			p.logger.Warn().Err(err).Str("dir", ws.Dir()).Msg("failed to remove workspace")
		}
	}()

	comp, err := p.Compose(ctx, ws, req)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	tmp := ws.Path(".mp4")

	encode := p.config.Encode
	encode.ProgressFunc = func(pr *ffmpeg.Progress) {
		metrics.SetEncodeFPS(pr.FPS)
		p.logger.Debug().
			Str("id", id).
			Int("frame", pr.Frame).
			Float64("fps", pr.FPS).
			Str("time", pr.Time).
			Msg("encoding")
	}
	err = p.stage(failure.StageEncode, func() error {
		return p.backend.Encode(ctx, comp, tmp, encode)
	})
	if err != nil {
		return nil, err
	}

	art := &Artifact{ID: id, Duration: comp.Duration()}

	if opts.Output != "" && !opts.Upload {
		if err := util.MoveFile(tmp, opts.Output); err != nil {
			return nil, fmt.Errorf("failed to move render to %s: %w", opts.Output, err)
		}
		art.Path, _ = filepath.Abs(opts.Output)
		art.URL = (&url.URL{Scheme: "file", Path: filepath.ToSlash(art.Path)}).String()
		return art, nil
	}

	loc, err := store.Save(ctx, id, tmp)
	if err != nil {
		return nil, fmt.Errorf("failed to store render: %w", err)
	}
	art.Path = loc.Path
	art.URL = loc.URL
	return art, nil
}

// Preview returns the composed visual frame at t seconds. Audio is not
// fetched.
func (p *Pipeline) Preview(ctx context.Context, req *timeline.VideoRequest, t float64) (*image.RGBA, error) {
	ws, err := p.fetcher.Workspace()
	if err != nil {
		return nil, err
	}
	defer ws.Cleanup()

	track, err := p.visual(ctx, ws, req)
	if err != nil {
		return nil, err
	}
	if t < 0 || t >= track.Duration() {
		return nil, failure.Newf(failure.ErrInvalidTimeline, failure.StageValidate, "preview.at",
			"time %v outside [0, %v)", t, track.Duration())
	}
	return track.Frame(t), nil
}

func (p *Pipeline) stage(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	took := time.Since(start)
	metrics.ObserveStage(name, took)

	p.logger.Debug().Str("stage", name).Dur("took", took).Err(err).Msg("stage finished")
	return err
}
