package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slideforge.yaml")
	data := `
concurrency: 8
render:
  fps: 30
assets:
  timeout: 5s
overlays:
  default_font: impact
  fonts:
    impact: /fonts/impact.ttf
storage:
  s3:
    bucket: renders
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Concurrency != 8 || cfg.Render.FPS != 30 {
		t.Errorf("unexpected core values: %+v", cfg)
	}
	if cfg.Assets.Timeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %v", cfg.Assets.Timeout)
	}
	if cfg.Overlays.Fonts["impact"] != "/fonts/impact.ttf" || cfg.Overlays.DefaultFont != "impact" {
		t.Errorf("unexpected overlays: %+v", cfg.Overlays)
	}
	if !cfg.Storage.S3.Enabled() {
		t.Error("expected s3 enabled")
	}
	// untouched keys keep defaults
	if cfg.FFmpeg.VideoCodec != "libx264" || cfg.Assets.RetryMax != 3 {
		t.Errorf("expected defaults kept, got %+v", cfg.FFmpeg)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("expected defaults, got %v", err)
	}
	if cfg.Render.FPS != 24 {
		t.Errorf("expected default fps, got %v", cfg.Render.FPS)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SLIDEFORGE_CONCURRENCY", "2")
	t.Setenv("SLIDEFORGE_OUTPUT_DIR", "/srv/out")
	t.Setenv("S3_BUCKET", "from-env")
	t.Setenv("S3_USE_PATH_STYLE", "TRUE")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Concurrency != 2 || cfg.OutputDir != "/srv/out" {
		t.Errorf("env not applied: %+v", cfg)
	}
	if cfg.Storage.S3.Bucket != "from-env" || !cfg.Storage.S3.UsePathStyle {
		t.Errorf("s3 env not applied: %+v", cfg.Storage.S3)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := Default()
	cfg.Assets.Timeout = 90 * time.Second
	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Assets.Timeout != 90*time.Second {
		t.Errorf("expected 90s, got %v", loaded.Assets.Timeout)
	}
}

func TestContext(t *testing.T) {
	if FromContext(context.Background()).Concurrency != 4 {
		t.Error("expected defaults from empty context")
	}
	cfg := Default()
	cfg.Concurrency = 11
	if FromContext(WithConfig(context.Background(), cfg)) != cfg {
		t.Error("expected stored config")
	}
}
