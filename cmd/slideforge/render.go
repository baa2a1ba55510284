package main

import (
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/image/draw"

	"github.com/kikiluvv/slideforge/internal/config"
	"github.com/kikiluvv/slideforge/internal/pipeline"
	"github.com/kikiluvv/slideforge/internal/storage"
	"github.com/kikiluvv/slideforge/internal/timeline"
)

var (
	renderOutput string
	renderUpload bool

	previewAt     float64
	previewOutput string
)

func init() {
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "", "output mp4 path (default: <output_dir>/<id>.mp4)")
	renderCmd.Flags().BoolVar(&renderUpload, "upload", false, "upload the result to the configured S3 bucket")

	previewCmd.Flags().Float64Var(&previewAt, "at", 0, "time in seconds")
	previewCmd.Flags().StringVarP(&previewOutput, "output", "o", "preview.png", "output PNG path")
}

// readRequest decodes a request file, or stdin for "-"
func readRequest(path string) (*timeline.VideoRequest, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open request: %w", err)
		}
		defer f.Close()
		r = f
	}
	return timeline.Decode(r)
}

// offlinePipeline serves local commands that never encode or probe audio
func offlinePipeline(cfg *config.Config) *pipeline.Pipeline {
	pcfg := pipeline.ConfigFrom(cfg)
	pcfg.AllowLocal = true
	return pipeline.New(log.Logger, pcfg, nil, storage.NewLocalStore(cfg.OutputDir), nil)
}

var renderCmd = &cobra.Command{
	Use:   "render [request.json]",
	Short: "Render a request into an mp4",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		req, err := readRequest(args[0])
		if err != nil {
			return fail(err)
		}

		pipe, err := pipeline.FromConfig(cmd.Context(), log.Logger, cfg, true)
		if err != nil {
			return fail(err)
		}

		art, err := pipe.Render(cmd.Context(), req, pipeline.RenderOptions{
			Output: renderOutput,
			Upload: renderUpload,
		})
		if err != nil {
			return fail(err)
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(art)
	},
}

var previewCmd = &cobra.Command{
	Use:   "preview [request.json]",
	Short: "Write the composed frame at a point in time as PNG",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		req, err := readRequest(args[0])
		if err != nil {
			return fail(err)
		}

		frame, err := offlinePipeline(cfg).Preview(cmd.Context(), req, previewAt)
		if err != nil {
			return fail(err)
		}

		if err := writePNG(previewOutput, frame); err != nil {
			return fail(err)
		}

		log.Info().Str("output", previewOutput).Float64("at", previewAt).Msg("preview written")
		return nil
	},
}

// writePNG flattens frame over black, matching the encoded video
func writePNG(path string, frame *image.RGBA) error {
	b := frame.Bounds()
	flat := image.NewRGBA(b)
	draw.Draw(flat, b, image.Black, image.Point{}, draw.Src)
	draw.Draw(flat, b, frame, b.Min, draw.Over)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, flat); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

var validateCmd = &cobra.Command{
	Use:   "validate [request.json]",
	Short: "Check a request without fetching assets",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		req, err := readRequest(args[0])
		if err != nil {
			return fail(err)
		}

		if err := offlinePipeline(cfg).Validate(req); err != nil {
			return fail(err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "ok: %d entries, %.3fs\n", len(req.Timeline), req.ExpectedDuration())
		return nil
	},
}
