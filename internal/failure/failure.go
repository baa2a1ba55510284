// Package failure defines the render error taxonomy. Every error that leaves
// a pipeline stage is a *Error naming the stage, the offending entity and one
// of the sentinel kinds below, so callers can branch with errors.Is.
package failure

import (
	"errors"
	"fmt"
)

// Error kinds
var (
	ErrAssetUnavailable = errors.New("asset unavailable")
	ErrInvalidTimeline  = errors.New("invalid timeline configuration")
	ErrUnknownEffect    = errors.New("unknown effect")
	ErrEncodingFailure  = errors.New("encoding failure")
)

// Pipeline stages
const (
	StageValidate   = "validate"
	StageCompile    = "clip-compiler"
	StageTransition = "transition-composer"
	StageOverlay    = "overlay-compositor"
	StageAudio      = "audio-synchronizer"
	StageEncode     = "codec"
)

// Error is a classified render failure
type Error struct {
	Kind   error
	Stage  string
	Entity string
	Err    error
}

// New builds a classified error
func New(kind error, stage, entity string, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Entity: entity, Err: err}
}

// Newf builds a classified error from a format string
func Newf(kind error, stage, entity, format string, args ...any) *Error {
	return New(kind, stage, entity, fmt.Errorf(format, args...))
}

func (e *Error) Error() string {
	msg := e.Stage
	if e.Entity != "" {
		msg += ": " + e.Entity
	}
	msg += ": " + e.Kind.Error()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindOf returns the first taxonomy kind found in err's chain, or nil
func KindOf(err error) error {
	for _, kind := range []error{ErrInvalidTimeline, ErrUnknownEffect, ErrAssetUnavailable, ErrEncodingFailure} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// Label returns a short metric-friendly name for err's kind
func Label(err error) string {
	switch KindOf(err) {
	case nil:
		if err == nil {
			return "ok"
		}
		return "error"
	case ErrInvalidTimeline:
		return "invalid_timeline"
	case ErrUnknownEffect:
		return "unknown_effect"
	case ErrAssetUnavailable:
		return "asset_unavailable"
	default:
		return "encoding_failure"
	}
}
