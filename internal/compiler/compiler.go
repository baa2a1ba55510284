// Package compiler turns timeline entries into clips of exactly their
// declared duration, with effects applied in declaration order.
package compiler

import (
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"time"

	"github.com/nfnt/resize"
	"github.com/rs/zerolog"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"

	"github.com/kikiluvv/slideforge/internal/assets"
	"github.com/kikiluvv/slideforge/internal/clips"
	"github.com/kikiluvv/slideforge/internal/effects"
	"github.com/kikiluvv/slideforge/internal/failure"
	"github.com/kikiluvv/slideforge/internal/timeline"
)

// Compiler builds clips from timeline entries
type Compiler struct {
	logger      zerolog.Logger
	effects     *effects.Registry
	concurrency int
}

// New creates a compiler. concurrency bounds CompileAll; values below 1 mean 1.
func New(logger zerolog.Logger, reg *effects.Registry, concurrency int) *Compiler {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Compiler{
		logger:      logger.With().Str("component", "compiler").Logger(),
		effects:     reg,
		concurrency: concurrency,
	}
}

// CompileAll compiles every entry on a bounded pool. The first failure
// cancels the remaining work. Results keep timeline order.
func (c *Compiler) CompileAll(ctx context.Context, res assets.Resolver, tl timeline.Timeline) ([]*clips.Clip, error) {
	start := time.Now()
	results := make([]*clips.Clip, len(tl))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for i, entry := range tl {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			clip, err := c.Compile(gctx, res, i, entry)
			if err != nil {
				return err
			}
			results[i] = clip
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	c.logger.Debug().
		Int("entries", len(tl)).
		Int("workers", c.concurrency).
		Dur("took", time.Since(start)).
		Msg("timeline compiled")

	return results, nil
}

// Compile builds the clip for one entry. index identifies the entry in errors.
func (c *Compiler) Compile(ctx context.Context, res assets.Resolver, index int, entry timeline.Entry) (*clips.Clip, error) {
	path := fmt.Sprintf("timeline[%d]", index)
	base := entry.Common()
	duration := float64(base.Duration)

	var frame image.Image
	var err error

	switch e := entry.(type) {
	case timeline.ImageEntry:
		frame, err = c.loadImage(ctx, res, path+".url", e.URL)
	case timeline.SplitEntry:
		frame, err = c.splitScreen(ctx, res, path, e)
	default:
		return nil, failure.Newf(failure.ErrInvalidTimeline, failure.StageCompile, path, "unsupported entry %T", entry)
	}
	if err != nil {
		return nil, err
	}

	clip := clips.Still(frame, duration)

	for _, eff := range base.Effects {
		fn, ok := c.effects.Resolve(eff.Name)
		if !ok {
			return nil, failure.Newf(failure.ErrUnknownEffect, failure.StageCompile,
				path+".effects."+eff.Name, "no effect named %q", eff.Name)
		}
		clip = fn(clip, eff.Value)
	}

	c.logger.Debug().
		Int("index", index).
		Str("kind", entry.Kind()).
		Int("width", clip.Width()).
		Int("height", clip.Height()).
		Int("effects", len(base.Effects)).
		Msg("entry compiled")

	return clip.WithDuration(duration), nil
}

func (c *Compiler) loadImage(ctx context.Context, res assets.Resolver, entity, locator string) (image.Image, error) {
	p, err := res.Resolve(ctx, locator)
	if err != nil {
		return nil, failure.New(failure.ErrAssetUnavailable, failure.StageCompile, entity, err)
	}

	img, err := decodeFile(p)
	if err != nil {
		return nil, failure.New(failure.ErrAssetUnavailable, failure.StageCompile, entity, err)
	}
	return img, nil
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("empty %s image", format)
	}
	return img, nil
}

// splitScreen scales both images to the target size, keeps rows 25%..75%
// of each and stacks them top over bottom on a black canvas.
func (c *Compiler) splitScreen(ctx context.Context, res assets.Resolver, path string, e timeline.SplitEntry) (image.Image, error) {
	top, err := c.loadImage(ctx, res, path+".top_url", e.TopURL)
	if err != nil {
		return nil, err
	}
	bottom, err := c.loadImage(ctx, res, path+".bot_url", e.BottomURL)
	if err != nil {
		return nil, err
	}

	size := top.Bounds().Size()
	if e.Size != nil {
		size = e.Size.Point()
	}

	y1, y2 := int(0.25*float64(size.Y)), int(0.75*float64(size.Y))
	half := y2 - y1
	if size.X <= 0 || half <= 0 {
		return nil, failure.Newf(failure.ErrInvalidTimeline, failure.StageCompile, path+".size",
			"frame %dx%d is too small to split", size.X, size.Y)
	}

	canvas := image.NewRGBA(image.Rect(0, 0, size.X, 2*half))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	for i, src := range []image.Image{top, bottom} {
		scaled := resize.Resize(uint(size.X), uint(size.Y), src, resize.Lanczos3)
		sb := scaled.Bounds()
		dst := image.Rect(0, i*half, size.X, (i+1)*half)
		draw.Draw(canvas, dst, scaled, image.Pt(sb.Min.X, sb.Min.Y+y1), draw.Over)
	}

	return canvas, nil
}
