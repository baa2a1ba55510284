// Package assets turns content locators into local files. Remote assets are
// downloaded into a per-request workspace that is removed when the request
// finishes.
package assets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/kikiluvv/slideforge/pkg/util"
)

// Resolver returns a local path for a locator
type Resolver interface {
	Resolve(ctx context.Context, locator string) (string, error)
}

// Options configures remote fetching
type Options struct {
	TempDir  string
	Timeout  time.Duration
	RetryMax int
	// AllowLocal permits file:// and plain path locators. Leave it off
	// when locators come from untrusted clients.
	AllowLocal bool
}

// Fetcher downloads remote assets. It is safe for concurrent use and is
// shared across requests; per-request state lives in a Workspace.
type Fetcher struct {
	logger     zerolog.Logger
	client     *retryablehttp.Client
	tempDir    string
	allowLocal bool
}

// NewFetcher creates a fetcher with bounded retries
func NewFetcher(logger zerolog.Logger, opts Options) *Fetcher {
	logger = logger.With().Str("component", "assets").Logger()

	client := retryablehttp.NewClient()
	client.RetryMax = opts.RetryMax
	client.Logger = leveled{logger}
	if opts.Timeout > 0 {
		client.HTTPClient.Timeout = opts.Timeout
	}

	tempDir := opts.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}

	return &Fetcher{
		logger:     logger,
		client:     client,
		tempDir:    tempDir,
		allowLocal: opts.AllowLocal,
	}
}

// Workspace creates a fresh request-scoped directory
func (f *Fetcher) Workspace() (*Workspace, error) {
	if err := util.EnsureDir(f.tempDir); err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	dir := filepath.Join(f.tempDir, "slideforge-"+uuid.NewString())
	if err := os.Mkdir(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}

	f.logger.Debug().Str("dir", dir).Msg("workspace created")
	return &Workspace{fetcher: f, dir: dir}, nil
}

// Workspace is one request's scratch directory. Resolve deduplicates
// concurrent fetches of the same locator.
type Workspace struct {
	fetcher *Fetcher
	dir     string
	group   singleflight.Group
	paths   sync.Map
}

// Dir returns the workspace directory
func (w *Workspace) Dir() string { return w.dir }

// Path returns a new unique file path inside the workspace
func (w *Workspace) Path(ext string) string {
	return filepath.Join(w.dir, uuid.NewString()+ext)
}

// Resolve returns a local path for locator. http(s) locators are
// downloaded; file:// and plain paths must name an existing file and are
// only accepted when the fetcher allows local access.
func (w *Workspace) Resolve(ctx context.Context, locator string) (string, error) {
	if p, ok := w.paths.Load(locator); ok {
		return p.(string), nil
	}

	v, err, _ := w.group.Do(locator, func() (any, error) {
		if p, ok := w.paths.Load(locator); ok {
			return p, nil
		}
		p, err := w.resolve(ctx, locator)
		if err != nil {
			return "", err
		}
		w.paths.Store(locator, p)
		return p, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (w *Workspace) resolve(ctx context.Context, locator string) (string, error) {
	u, err := url.Parse(locator)
	if err != nil {
		return "", fmt.Errorf("invalid locator %q: %w", locator, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return w.download(ctx, u)
	case "file":
		return w.localFile(u.Path)
	case "":
		return w.localFile(locator)
	default:
		if filepath.VolumeName(locator) != "" {
			return w.localFile(locator)
		}
		return "", fmt.Errorf("unsupported locator scheme %q", u.Scheme)
	}
}

func (w *Workspace) download(ctx context.Context, u *url.URL) (string, error) {
	start := time.Now()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := w.fetcher.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", u.Redacted(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("fetch %s: unexpected status %s", u.Redacted(), resp.Status)
	}

	dst := w.Path(path.Ext(u.Path))
	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dst, err)
	}

	n, err := io.Copy(out, resp.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		util.CleanupFiles(dst)
		return "", fmt.Errorf("download %s: %w", u.Redacted(), err)
	}

	w.fetcher.logger.Debug().
		Str("url", u.Redacted()).
		Int64("bytes", n).
		Dur("took", time.Since(start)).
		Msg("asset downloaded")

	return dst, nil
}

func (w *Workspace) localFile(p string) (string, error) {
	if !w.fetcher.allowLocal {
		return "", fmt.Errorf("local locators are not allowed: %s", p)
	}
	if !util.FileExists(p) {
		return "", fmt.Errorf("file not found: %s", p)
	}
	return p, nil
}

// Cleanup removes the workspace and everything fetched into it
func (w *Workspace) Cleanup() error {
	if err := os.RemoveAll(w.dir); err != nil {
		return fmt.Errorf("failed to remove workspace: %w", err)
	}
	w.fetcher.logger.Debug().Str("dir", w.dir).Msg("workspace removed")
	return nil
}

// leveled adapts zerolog to retryablehttp's LeveledLogger
type leveled struct {
	logger zerolog.Logger
}

func (l leveled) Error(msg string, kv ...any) { l.logger.Error().Fields(kv).Msg(msg) }
func (l leveled) Warn(msg string, kv ...any)  { l.logger.Warn().Fields(kv).Msg(msg) }
func (l leveled) Info(msg string, kv ...any)  { l.logger.Debug().Fields(kv).Msg(msg) }
func (l leveled) Debug(msg string, kv ...any) { l.logger.Trace().Fields(kv).Msg(msg) }
