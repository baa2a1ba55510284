package config

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type contextKey string

const configKey contextKey = "config"

// Config holds all application configuration
type Config struct {
	// Core settings
	WorkDir     string `yaml:"work_dir"`
	TempDir     string `yaml:"temp_dir"`
	OutputDir   string `yaml:"output_dir"`
	Concurrency int    `yaml:"concurrency"`

	Render   RenderConfig  `yaml:"render"`
	FFmpeg   FFmpegConfig  `yaml:"ffmpeg"`
	Assets   AssetsConfig  `yaml:"assets"`
	Overlays OverlayConfig `yaml:"overlays"`
	Storage  StorageConfig `yaml:"storage"`
	Server   ServerConfig  `yaml:"server"`
}

type RenderConfig struct {
	FPS float64 `yaml:"fps"`
}

type FFmpegConfig struct {
	BinaryPath string `yaml:"binary_path"`
	ProbePath  string `yaml:"probe_path"`
	Threads    int    `yaml:"threads"`
	Preset     string `yaml:"preset"`
	CRF        int    `yaml:"crf"`
	VideoCodec string `yaml:"video_codec"`
	AudioCodec string `yaml:"audio_codec"`
}

type AssetsConfig struct {
	Timeout  time.Duration `yaml:"timeout"`
	RetryMax int           `yaml:"retry_max"`
}

// OverlayConfig names the caption fonts. Fonts maps a name usable in a
// request's "font" field to a TTF/OTF path.
type OverlayConfig struct {
	DefaultFont string            `yaml:"default_font"`
	Fonts       map[string]string `yaml:"fonts"`
}

type StorageConfig struct {
	S3 S3Config `yaml:"s3"`
}

// S3Config enables uploads when Bucket is set
type S3Config struct {
	Bucket        string `yaml:"bucket"`
	Region        string `yaml:"region"`
	Profile       string `yaml:"profile"`
	Prefix        string `yaml:"prefix"`
	UsePathStyle  bool   `yaml:"use_path_style"`
	PublicBaseURL string `yaml:"public_base_url"`
}

// Enabled reports whether uploads are configured
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Load reads configuration from file or returns defaults. A .env file in the
// working directory is loaded first, then SLIDEFORGE_* and S3_* variables
// override file values.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path == "" {
		path = findConfigFile()
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, err
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		WorkDir:     "./work",
		TempDir:     os.TempDir(),
		OutputDir:   "./output",
		Concurrency: 4,
		Render: RenderConfig{
			FPS: 24,
		},
		FFmpeg: FFmpegConfig{
			BinaryPath: "ffmpeg",
			ProbePath:  "ffprobe",
			Threads:    0,
			Preset:     "medium",
			CRF:        23,
			VideoCodec: "libx264",
			AudioCodec: "aac",
		},
		Assets: AssetsConfig{
			Timeout:  30 * time.Second,
			RetryMax: 3,
		},
		Overlays: OverlayConfig{
			DefaultFont: "gobold",
			Fonts:       make(map[string]string),
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

func findConfigFile() string {
	candidates := []string{
		"./slideforge.yaml",
		"./config.yaml",
		"./config.yml",
		filepath.Join(os.Getenv("HOME"), ".slideforge", "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

func applyEnv(cfg *Config) {
	setString(&cfg.WorkDir, "SLIDEFORGE_WORK_DIR")
	setString(&cfg.TempDir, "SLIDEFORGE_TEMP_DIR")
	setString(&cfg.OutputDir, "SLIDEFORGE_OUTPUT_DIR")
	setInt(&cfg.Concurrency, "SLIDEFORGE_CONCURRENCY")
	setString(&cfg.FFmpeg.BinaryPath, "SLIDEFORGE_FFMPEG_PATH")
	setString(&cfg.FFmpeg.ProbePath, "SLIDEFORGE_FFPROBE_PATH")
	setString(&cfg.Overlays.DefaultFont, "SLIDEFORGE_DEFAULT_FONT")
	setString(&cfg.Server.Addr, "SLIDEFORGE_ADDR")

	setString(&cfg.Storage.S3.Bucket, "S3_BUCKET")
	setString(&cfg.Storage.S3.Region, "S3_REGION")
	setString(&cfg.Storage.S3.Profile, "S3_PROFILE")
	setString(&cfg.Storage.S3.Prefix, "S3_PREFIX")
	setString(&cfg.Storage.S3.PublicBaseURL, "S3_PUBLIC_BASE_URL")
	if v, ok := lookup("S3_USE_PATH_STYLE"); ok {
		cfg.Storage.S3.UsePathStyle = strings.EqualFold(v, "true")
	}
}

func lookup(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}

func setString(dst *string, key string) {
	if v, ok := lookup(key); ok {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := lookup(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return Default()
}
