package overlays

import (
	"image"
	"image/color"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/kikiluvv/slideforge/internal/timeline"
)

// Caption describes one rasterized text block
type Caption struct {
	Text     string
	Face     font.Face
	Color    color.Color
	Position string
}

// margin keeps captions off the frame edge
func margin(size image.Point) int {
	return max(8, min(size.X, size.Y)/20)
}

// Rasterize draws the caption onto a transparent frame of the given size.
// Lines are word-wrapped to the frame width and centered horizontally; the
// block sits at the top, center or bottom of the frame.
func Rasterize(size image.Point, c Caption) *image.RGBA {
	dst := image.NewRGBA(image.Rectangle{Max: size})
	if strings.TrimSpace(c.Text) == "" {
		return dst
	}

	m := margin(size)
	lines := wrap(c.Face, c.Text, fixed.I(size.X-2*m))

	metrics := c.Face.Metrics()
	lineHeight := metrics.Height.Ceil()
	blockHeight := lineHeight * len(lines)

	var top int
	switch c.Position {
	case timeline.PositionTop:
		top = m
	case timeline.PositionBottom:
		top = size.Y - m - blockHeight
	default:
		top = (size.Y - blockHeight) / 2
	}

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c.Color),
		Face: c.Face,
	}
	for i, line := range lines {
		width := d.MeasureString(line)
		x := (fixed.I(size.X) - width) / 2
		baseline := top + i*lineHeight + metrics.Ascent.Ceil()
		d.Dot = fixed.Point26_6{X: x, Y: fixed.I(baseline)}
		d.DrawString(line)
	}
	return dst
}

// wrap breaks text into lines no wider than limit. Explicit newlines are
// kept; a single word wider than the limit gets a line of its own.
func wrap(face font.Face, text string, limit fixed.Int26_6) []string {
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}

		line := words[0]
		for _, w := range words[1:] {
			candidate := line + " " + w
			if font.MeasureString(face, candidate) <= limit {
				line = candidate
				continue
			}
			lines = append(lines, line)
			line = w
		}
		lines = append(lines, line)
	}
	return lines
}
