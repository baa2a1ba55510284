// Package server exposes the render pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kikiluvv/slideforge/internal/failure"
	"github.com/kikiluvv/slideforge/internal/metrics"
	"github.com/kikiluvv/slideforge/internal/pipeline"
	"github.com/kikiluvv/slideforge/internal/timeline"
	"github.com/kikiluvv/slideforge/pkg/util"
)

// Renderer is the part of the pipeline the HTTP surface drives
type Renderer interface {
	Validate(req *timeline.VideoRequest) error
	Render(ctx context.Context, req *timeline.VideoRequest, opts pipeline.RenderOptions) (*pipeline.Artifact, error)
}

// Server handles render requests
type Server struct {
	logger   zerolog.Logger
	renderer Renderer
	tempDir  string
}

// New creates a server. Renders returned inline are staged in tempDir.
func New(logger zerolog.Logger, renderer Renderer, tempDir string) *Server {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Server{
		logger:   logger.With().Str("component", "server").Logger(),
		renderer: renderer,
		tempDir:  tempDir,
	}
}

// Router constructs a Gin engine with registered routes
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/health", s.handleHealth)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.POST("/validate", s.handleValidate)
	r.POST("/render", s.handleRender)
	return r
}

// Run serves until ctx is cancelled, then drains in-flight requests
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) handleValidate(c *gin.Context) {
	req, err := timeline.Decode(c.Request.Body)
	if err == nil {
		err = s.renderer.Validate(req)
	}
	if err != nil {
		s.respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"valid":    true,
		"duration": req.ExpectedDuration(),
	})
}

// handleRender returns the mp4 itself, or the artifact description when
// ?upload=true
func (s *Server) handleRender(c *gin.Context) {
	req, err := timeline.Decode(c.Request.Body)
	if err != nil {
		s.respondWithError(c, err)
		return
	}

	upload, _ := strconv.ParseBool(c.Query("upload"))
	if upload {
		art, err := s.renderer.Render(c.Request.Context(), req, pipeline.RenderOptions{Upload: true})
		if err != nil {
			s.respondWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, art)
		return
	}

	out := filepath.Join(s.tempDir, "slideforge-"+uuid.NewString()+".mp4")
	defer util.CleanupFiles(out)

	art, err := s.renderer.Render(c.Request.Context(), req, pipeline.RenderOptions{Output: out})
	if err != nil {
		s.respondWithError(c, err)
		return
	}

	c.Header("X-Render-Id", art.ID)
	c.Header("X-Render-Duration", strconv.FormatFloat(art.Duration, 'f', -1, 64))
	c.FileAttachment(out, art.ID+".mp4")
}

// Problem is one entry of an error response
type Problem struct {
	Stage   string `json:"stage,omitempty"`
	Entity  string `json:"entity,omitempty"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error    string    `json:"error"`
	Kind     string    `json:"kind"`
	Problems []Problem `json:"problems,omitempty"`
}

// StatusFor maps an error onto an HTTP status
func StatusFor(err error) int {
	switch failure.KindOf(err) {
	case failure.ErrInvalidTimeline, failure.ErrUnknownEffect:
		return http.StatusBadRequest
	case failure.ErrAssetUnavailable:
		return http.StatusUnprocessableEntity
	}
	if errors.Is(err, pipeline.ErrUploadDisabled) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) respondWithError(c *gin.Context, err error) {
	status := StatusFor(err)
	resp := ErrorResponse{
		Error:    err.Error(),
		Kind:     failure.Label(err),
		Problems: problems(err),
	}

	event := s.logger.Warn()
	if status >= http.StatusInternalServerError {
		event = s.logger.Error()
	}
	event.Err(err).Int("status", status).Str("path", c.FullPath()).Msg("request failed")

	c.JSON(status, resp)
}

// problems flattens a joined validation error into one entry per cause
func problems(err error) []Problem {
	var errs []error
	if joined, ok := err.(interface{ Unwrap() []error }); ok && !isFailure(err) {
		errs = joined.Unwrap()
	} else {
		errs = []error{err}
	}

	out := make([]Problem, 0, len(errs))
	for _, e := range errs {
		p := Problem{Kind: failure.Label(e), Message: e.Error()}
		var fe *failure.Error
		if errors.As(e, &fe) {
			p.Stage = fe.Stage
			p.Entity = fe.Entity
		}
		out = append(out, p)
	}
	return out
}

func isFailure(err error) bool {
	_, ok := err.(*failure.Error)
	return ok
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("request")
	}
}
