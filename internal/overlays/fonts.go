package overlays

import (
	"fmt"
	"os"
	"slices"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"

	"github.com/kikiluvv/slideforge/pkg/util"
)

// DefaultFontName is the built-in caption font
const DefaultFontName = "gobold"

// FontRegistry maps font names to TTF/OTF files and caches parsed fonts
type FontRegistry struct {
	fonts      map[string]string
	allowFiles bool
	parsed     sync.Map // path -> *opentype.Font
}

// NewFontRegistry creates a new font registry. Unless allowFiles is set,
// references must name a registered or built-in font.
func NewFontRegistry(allowFiles bool) *FontRegistry {
	return &FontRegistry{
		fonts:      make(map[string]string),
		allowFiles: allowFiles,
	}
}

// Register adds a font file under name
func (r *FontRegistry) Register(name, path string) {
	r.fonts[name] = path
}

// List returns all registered fonts, sorted, including the built-in one
func (r *FontRegistry) List() []string {
	names := make([]string, 0, len(r.fonts)+1)
	names = append(names, DefaultFontName)
	for name := range r.fonts {
		if name != DefaultFontName {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// Resolve maps a font reference to a loadable source: the built-in font
// ("" or DefaultFontName), a registered name, or an existing file path
// when file references are allowed.
func (r *FontRegistry) Resolve(ref string) (string, error) {
	if path, ok := r.fonts[ref]; ok {
		return path, nil
	}
	if ref == "" || ref == DefaultFontName {
		return "", nil
	}
	if !r.allowFiles {
		return "", fmt.Errorf("font %q is not registered", ref)
	}
	if util.FileExists(ref) {
		return ref, nil
	}
	return "", fmt.Errorf("font %q is neither registered nor a file", ref)
}

// Load parses the referenced font, caching by source
func (r *FontRegistry) Load(ref string) (*opentype.Font, error) {
	path, err := r.Resolve(ref)
	if err != nil {
		return nil, err
	}
	if f, ok := r.parsed.Load(path); ok {
		return f.(*opentype.Font), nil
	}

	data := gobold.TTF
	if path != "" {
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read font: %w", err)
		}
	}

	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font %q: %w", ref, err)
	}
	r.parsed.Store(path, f)
	return f, nil
}

// Face returns a new face for the referenced font. size is in pixels.
// Faces are not safe for concurrent use.
func (r *FontRegistry) Face(ref string, size int) (font.Face, error) {
	f, err := r.Load(ref)
	if err != nil {
		return nil, err
	}
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
}
