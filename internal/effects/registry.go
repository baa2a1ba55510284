// Package effects maps effect names to clip transforms. The registry is
// filled by one initialization routine, then frozen; lookups after that
// need no locking.
package effects

import (
	"fmt"
	"slices"
	"sync"

	"github.com/kikiluvv/slideforge/internal/clips"
)

// Transform applies an effect with its parameter, returning a new clip
type Transform func(c *clips.Clip, param float64) *clips.Clip

// ParamCheck validates a parameter against the entry duration
type ParamCheck func(param, duration float64) error

type entry struct {
	apply Transform
	check ParamCheck
}

// Registry manages available effects
type Registry struct {
	effects map[string]entry
	frozen  bool
}

// NewRegistry creates an empty, writable registry
func NewRegistry() *Registry {
	return &Registry{
		effects: make(map[string]entry),
	}
}

// Register inserts or overwrites the transform for name
func (r *Registry) Register(name string, fn Transform) {
	r.RegisterChecked(name, fn, nil)
}

// RegisterChecked registers a transform together with its parameter check
func (r *Registry) RegisterChecked(name string, fn Transform, check ParamCheck) {
	if r.frozen {
		panic(fmt.Sprintf("effects: register %q on a frozen registry", name))
	}
	r.effects[name] = entry{apply: fn, check: check}
}

// Freeze makes the registry read-only
func (r *Registry) Freeze() {
	r.frozen = true
}

// Resolve retrieves a transform by name
func (r *Registry) Resolve(name string) (Transform, bool) {
	e, ok := r.effects[name]
	return e.apply, ok
}

// Has reports whether name is registered
func (r *Registry) Has(name string) bool {
	_, ok := r.effects[name]
	return ok
}

// CheckParam runs the effect's parameter check, if it has one
func (r *Registry) CheckParam(name string, param, duration float64) error {
	e, ok := r.effects[name]
	if !ok {
		return fmt.Errorf("unknown effect %q", name)
	}
	if e.check == nil {
		return nil
	}
	return e.check(param, duration)
}

// Names returns all registered effects, sorted
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.effects))
	for name := range r.effects {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Built-in effect names
const (
	FadeIn  = "fadein"
	FadeOut = "fadeout"
	Zoom    = "zoom"
	Rotate  = "rotate"
	SlideIn = "slidein"
)

var builtin = sync.OnceValue(func() *Registry {
	r := NewRegistry()
	RegisterBuiltins(r)
	r.Freeze()
	return r
})

// Default returns the process-wide frozen registry of built-in effects
func Default() *Registry {
	return builtin()
}

// RegisterBuiltins adds the built-in effect set to r
func RegisterBuiltins(r *Registry) {
	r.RegisterChecked(FadeIn, FadeInTransform, nonNegative)
	r.RegisterChecked(FadeOut, FadeOutTransform, nonNegative)
	r.RegisterChecked(Zoom, ZoomTransform, zoomCheck)
	r.Register(Rotate, RotateTransform)
	r.RegisterChecked(SlideIn, SlideInTransform, nonNegative)
}

func nonNegative(param, _ float64) error {
	if param < 0 {
		return fmt.Errorf("duration must be >= 0, got %v", param)
	}
	return nil
}

// zoomCheck keeps the scale factor positive over the whole entry
func zoomCheck(rate, duration float64) error {
	if 1+rate*duration <= 0 {
		return fmt.Errorf("zoom rate %v collapses the frame within %vs", rate, duration)
	}
	return nil
}
