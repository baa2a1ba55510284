package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/kikiluvv/slideforge/internal/failure"
	"github.com/kikiluvv/slideforge/internal/pipeline"
	"github.com/kikiluvv/slideforge/internal/storage"
	"github.com/kikiluvv/slideforge/internal/timeline"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeRenderer struct {
	validateErr error
	renderErr   error
	opts        pipeline.RenderOptions
}

func (f *fakeRenderer) Validate(*timeline.VideoRequest) error { return f.validateErr }

func (f *fakeRenderer) Render(_ context.Context, req *timeline.VideoRequest, opts pipeline.RenderOptions) (*pipeline.Artifact, error) {
	f.opts = opts
	if f.renderErr != nil {
		return nil, f.renderErr
	}
	art := &pipeline.Artifact{ID: "abc", Duration: req.ExpectedDuration()}
	if opts.Upload {
		art.URL = "s3://renders/abc.mp4"
		return art, nil
	}
	if err := os.WriteFile(opts.Output, []byte("mp4 bytes"), 0644); err != nil {
		return nil, err
	}
	art.Path = opts.Output
	return art, nil
}

const body = `{"timeline":[{"type":"image","url":"a.png","duration":2},{"type":"image","url":"b.png","duration":2}]}`

func do(t *testing.T, s *Server, method, path, payload string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := do(t, New(zerolog.Nop(), &fakeRenderer{}, t.TempDir()), http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "healthy") {
		t.Errorf("unexpected health response %d %s", rec.Code, rec.Body.String())
	}
}

func TestMetricsRoute(t *testing.T) {
	rec := do(t, New(zerolog.Nop(), &fakeRenderer{}, t.TempDir()), http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestRenderReturnsFile(t *testing.T) {
	dir := t.TempDir()
	r := &fakeRenderer{}
	rec := do(t, New(zerolog.Nop(), r, dir), http.MethodPost, "/render", body)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "mp4 bytes" {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
	if rec.Header().Get("X-Render-Id") != "abc" || rec.Header().Get("X-Render-Duration") != "3.5" {
		t.Errorf("unexpected headers %v", rec.Header())
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "abc.mp4") {
		t.Errorf("expected attachment name, got %q", rec.Header().Get("Content-Disposition"))
	}
	if _, err := os.Stat(r.opts.Output); !os.IsNotExist(err) {
		t.Error("expected staged file removed after response")
	}
}

func TestRenderUpload(t *testing.T) {
	r := &fakeRenderer{}
	rec := do(t, New(zerolog.Nop(), r, t.TempDir()), http.MethodPost, "/render?upload=true", body)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var art pipeline.Artifact
	if err := json.Unmarshal(rec.Body.Bytes(), &art); err != nil {
		t.Fatal(err)
	}
	if art.ID != "abc" || art.URL != "s3://renders/abc.mp4" || art.Duration != 3.5 {
		t.Errorf("unexpected artifact %+v", art)
	}
	if !r.opts.Upload {
		t.Error("expected upload requested")
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid", failure.Newf(failure.ErrInvalidTimeline, failure.StageValidate, "timeline", "empty"), http.StatusBadRequest},
		{"unknown effect", failure.Newf(failure.ErrUnknownEffect, failure.StageValidate, "timeline[0].effects.blur", "blur"), http.StatusBadRequest},
		{"asset", failure.New(failure.ErrAssetUnavailable, failure.StageCompile, "timeline[0].url", errors.New("404")), http.StatusUnprocessableEntity},
		{"encode", failure.New(failure.ErrEncodingFailure, failure.StageEncode, "", errors.New("exit 1")), http.StatusInternalServerError},
		{"upload", pipeline.ErrUploadDisabled, http.StatusServiceUnavailable},
		{"other", fmt.Errorf("failed to store render: %w", errors.New("disk full")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, New(zerolog.Nop(), &fakeRenderer{renderErr: tt.err}, t.TempDir()), http.MethodPost, "/render", body)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestRenderMalformedBody(t *testing.T) {
	rec := do(t, New(zerolog.Nop(), &fakeRenderer{}, t.TempDir()), http.MethodPost, "/render", `{"timeline":[{"type":"video"}]}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestValidate(t *testing.T) {
	rec := do(t, New(zerolog.Nop(), &fakeRenderer{}, t.TempDir()), http.MethodPost, "/validate", body)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"duration":3.5`) {
		t.Errorf("unexpected response %d %s", rec.Code, rec.Body.String())
	}

	joined := errors.Join(
		failure.Newf(failure.ErrInvalidTimeline, failure.StageValidate, "timeline[1].duration", "must be positive"),
		failure.Newf(failure.ErrUnknownEffect, failure.StageValidate, "timeline[0].effects.blur", "blur"),
	)
	rec = do(t, New(zerolog.Nop(), &fakeRenderer{validateErr: joined}, t.TempDir()), http.MethodPost, "/validate", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Problems) != 2 {
		t.Fatalf("expected 2 problems, got %+v", resp.Problems)
	}
	if resp.Problems[0].Entity != "timeline[1].duration" || resp.Problems[1].Kind != "unknown_effect" {
		t.Errorf("unexpected problems %+v", resp.Problems)
	}
}

func TestRenderRejectsHostFiles(t *testing.T) {
	images := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		png.Encode(w, image.NewRGBA(image.Rect(0, 0, 16, 9)))
	}))
	defer images.Close()

	pipe := pipeline.New(zerolog.Nop(), &pipeline.Config{Concurrency: 1, TempDir: t.TempDir()}, nil, storage.NewLocalStore(t.TempDir()), nil)
	s := New(zerolog.Nop(), pipe, t.TempDir())

	tests := []struct {
		name    string
		payload string
	}{
		{"audio path", fmt.Sprintf(`{"timeline":[{"type":"image","url":%q,"duration":1}],"audio":"/etc/hostname"}`, images.URL+"/a.png")},
		{"audio file url", fmt.Sprintf(`{"timeline":[{"type":"image","url":%q,"duration":1}],"audio":"file:///etc/hostname"}`, images.URL+"/a.png")},
		{"image path", `{"timeline":[{"type":"image","url":"/etc/hostname","duration":1}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/render", tt.payload)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Errorf("expected 422, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}
