package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/slideforge/internal/config"
	"github.com/kikiluvv/slideforge/internal/ffmpeg"
	"github.com/kikiluvv/slideforge/internal/storage"
)

// FromConfig wires a pipeline from application config: the ffmpeg executor
// as backend, a local output store and, when a bucket is set, an S3 upload
// store. allowLocal is passed through to Config.AllowLocal.
func FromConfig(ctx context.Context, logger zerolog.Logger, appCfg *config.Config, allowLocal bool) (*Pipeline, error) {
	exec, err := ffmpeg.New(logger, ffmpeg.Options{
		BinaryPath: appCfg.FFmpeg.BinaryPath,
		ProbePath:  appCfg.FFmpeg.ProbePath,
		Threads:    appCfg.FFmpeg.Threads,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ffmpeg: %w", err)
	}

	var upload storage.Store
	if s3cfg := appCfg.Storage.S3; s3cfg.Enabled() {
		s3store, err := storage.NewS3Store(ctx, logger, storage.S3Config{
			Bucket:        s3cfg.Bucket,
			Region:        s3cfg.Region,
			Profile:       s3cfg.Profile,
			Prefix:        s3cfg.Prefix,
			UsePathStyle:  s3cfg.UsePathStyle,
			PublicBaseURL: s3cfg.PublicBaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize s3 store: %w", err)
		}
		upload = s3store
	}

	cfg := ConfigFrom(appCfg)
	cfg.AllowLocal = allowLocal
	return New(logger, cfg, exec, storage.NewLocalStore(appCfg.OutputDir), upload), nil
}

// ConfigFrom maps application config onto pipeline config
func ConfigFrom(appCfg *config.Config) *Config {
	return &Config{
		Concurrency:   appCfg.Concurrency,
		TempDir:       appCfg.TempDir,
		AssetTimeout:  appCfg.Assets.Timeout,
		AssetRetryMax: appCfg.Assets.RetryMax,
		DefaultFont:   appCfg.Overlays.DefaultFont,
		Fonts:         appCfg.Overlays.Fonts,
		Encode: ffmpeg.EncodeOptions{
			FPS:        appCfg.Render.FPS,
			VideoCodec: appCfg.FFmpeg.VideoCodec,
			AudioCodec: appCfg.FFmpeg.AudioCodec,
			CRF:        appCfg.FFmpeg.CRF,
			Preset:     appCfg.FFmpeg.Preset,
		},
	}
}
