package ffmpeg

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	ffmpeggo "github.com/u2takey/ffmpeg-go"

	"github.com/kikiluvv/slideforge/internal/audio"
	"github.com/kikiluvv/slideforge/internal/clips"
	"github.com/kikiluvv/slideforge/internal/failure"
	"github.com/kikiluvv/slideforge/pkg/util"
)

// FrameCount is the number of frames sampled at fps over duration seconds
func FrameCount(duration, fps float64) int {
	return int(math.Ceil(duration*fps - 1e-9))
}

// Encode renders the composition into output. Frames are sampled at
// t = i/fps and streamed to ffmpeg as raw RGBA on stdin; transparent
// pixels come out black. A failed encode removes the partial output.
func (e *Executor) Encode(ctx context.Context, comp *audio.Composition, output string, opts EncodeOptions) error {
	opts = opts.withDefaults()
	start := time.Now()

	video := comp.Video
	if video.Width() <= 0 || video.Height() <= 0 {
		return failure.Newf(failure.ErrEncodingFailure, failure.StageEncode, output, "empty frame size %v", video.Size())
	}

	args := EncodeArgs(comp, output, opts)
	frames := FrameCount(comp.Duration(), opts.FPS)

	e.logger.Info().
		Str("output", output).
		Int("width", video.Width()).
		Int("height", video.Height()).
		Int("frames", frames).
		Bool("audio", comp.Audio != nil).
		Msg("starting encode")

	pr, pw := io.Pipe()
	written := make(chan error, 1)
	go func() {
		err := writeFrames(ctx, pw, video, frames, opts.FPS)
		pw.CloseWithError(err)
		written <- err
	}()

	runErr := e.Run(ctx, RunOptions{
		Args:            args,
		Stdin:           pr,
		ProgressHandler: opts.ProgressFunc,
		LogHandler: func(line string) {
			e.logger.Trace().Str("ffmpeg", line).Msg("encode output")
		},
	})
	// Unblock the writer if ffmpeg stopped reading early
	pr.CloseWithError(io.ErrClosedPipe)
	writeErr := <-written

	if runErr == nil && writeErr != nil {
		runErr = writeErr
	}
	if runErr != nil {
		util.CleanupFiles(output)
		return failure.New(failure.ErrEncodingFailure, failure.StageEncode, output, runErr)
	}

	e.logger.Info().
		Str("output", output).
		Dur("took", time.Since(start)).
		Msg("encode completed")
	return nil
}

// EncodeArgs builds the ffmpeg argument list for a composition
func EncodeArgs(comp *audio.Composition, output string, opts EncodeOptions) []string {
	opts = opts.withDefaults()
	video := comp.Video

	streams := []*ffmpeggo.Stream{
		ffmpeggo.Input("pipe:0", ffmpeggo.KwArgs{
			"f":       "rawvideo",
			"pix_fmt": "rgba",
			"s":       fmt.Sprintf("%dx%d", video.Width(), video.Height()),
			"r":       formatFloat(opts.FPS),
		}),
	}

	out := ffmpeggo.KwArgs{
		"t":      util.FormatSeconds(comp.Duration()),
		"vf":     NewFilterBuilder().PadEven().Format("yuv420p").Build(),
		"c:v":    opts.VideoCodec,
		"crf":    strconv.Itoa(opts.CRF),
		"preset": opts.Preset,
	}

	if comp.Audio != nil {
		in := ffmpeggo.KwArgs{}
		if loops := comp.Audio.Loops; loops > 1 {
			in["stream_loop"] = strconv.Itoa(loops - 1)
		}
		streams = append(streams, ffmpeggo.Input(comp.Audio.Path, in).Audio())
		out["c:a"] = opts.AudioCodec
	}

	return ffmpeggo.Output(streams, output, out).GetArgs()
}

// writeFrames streams frames [0, n) as tightly packed RGBA rows
func writeFrames(ctx context.Context, w io.Writer, c *clips.Clip, n int, fps float64) error {
	bw := bufio.NewWriterSize(w, 1<<20)
	rowBytes := c.Width() * 4

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		f := c.Frame(float64(i) / fps)
		if f.Rect.Dx() != c.Width() || f.Rect.Dy() != c.Height() {
			return fmt.Errorf("frame %d is %v, expected %v", i, f.Rect.Size(), c.Size())
		}

		for y := 0; y < c.Height(); y++ {
			off := f.PixOffset(f.Rect.Min.X, f.Rect.Min.Y+y)
			if _, err := bw.Write(f.Pix[off : off+rowBytes]); err != nil {
				return fmt.Errorf("write frame %d: %w", i, err)
			}
		}
	}
	return bw.Flush()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
