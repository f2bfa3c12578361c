package types

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindDownload   ErrorKind = "download"
	KindProbe      ErrorKind = "probe"
	KindRender     ErrorKind = "render"
	KindValidation ErrorKind = "validation"
	KindNotFound   ErrorKind = "not_found"
	KindInternal   ErrorKind = "internal"
)

// ErrNotFound is returned by lookups of unknown jobs or clips.
var ErrNotFound = errors.New("not found")

type DownloadError struct {
	URL string
	Err error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %s: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

type ProbeError struct {
	Path string
	Err  error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe %s: %v", e.Path, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

// Render stages, in pipeline order.
const (
	StageExtract   = "extract"
	StageFit       = "fit"
	StageSpeed     = "speed"
	StageFilters   = "filters"
	StageCaptions  = "captions"
	StageOverlay   = "overlay"
	StageEncode    = "encode"
	StageThumbnail = "thumbnail"
	StageMeasure   = "measure"
	StageCompile   = "compile"
)

type RenderError struct {
	Stage     string
	Candidate string
	Format    string
	Err       error
}

func (e *RenderError) Error() string {
	if e.Format != "" {
		return fmt.Sprintf("render %s [%s] at %s: %v", e.Candidate, e.Format, e.Stage, e.Err)
	}
	return fmt.Sprintf("render %s at %s: %v", e.Candidate, e.Stage, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid request: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// KindOf maps an error to the stable kind reported to callers.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var (
		dl *DownloadError
		pr *ProbeError
		re *RenderError
		ve *ValidationError
	)
	switch {
	case errors.As(err, &ve):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.As(err, &dl):
		return KindDownload
	case errors.As(err, &pr):
		return KindProbe
	case errors.As(err, &re):
		return KindRender
	default:
		return KindInternal
	}
}
