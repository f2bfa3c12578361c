package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/forPelevin/clipforge/internal/domain/render"
	"github.com/forPelevin/clipforge/internal/domain/subtitles"
	"github.com/forPelevin/clipforge/internal/ports"
	"github.com/forPelevin/clipforge/internal/types"
)

// Renderer turns one candidate of a probed source into a finished clip.
type Renderer struct {
	video    ports.VideoTool
	log      logrus.FieldLogger
	captions bool
}

func NewRenderer(video ports.VideoTool, log logrus.FieldLogger, captions bool) *Renderer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Renderer{video: video, log: log.WithField("component", "renderer"), captions: captions}
}

// Render writes the clip to out and its thumbnail next to it. Edits may be
// nil. A malformed edit is a ValidationError returned before any encoding;
// every later failure is a RenderError naming the stage.
func (r *Renderer) Render(ctx context.Context, src types.SourceVideo, c types.Candidate, p types.FormatProfile, edits *types.EditSpec, out string) (types.OutputAsset, error) {
	fail := func(stage string, err error) error {
		return &types.RenderError{Stage: stage, Candidate: c.ID(), Format: p.Name, Err: err}
	}
	if c.Start < 0 || c.End <= c.Start || c.End > src.Duration {
		return types.OutputAsset{}, fail(types.StageExtract, fmt.Errorf("range %s-%s outside source of %s", c.Start, c.End, src.Duration))
	}
	if err := ValidateEdit(edits, c.Length(), p); err != nil {
		return types.OutputAsset{}, err
	}

	win := trimWindow(c, edits)
	speed := speedFor(win.Length(), p, edits)
	outLen := time.Duration(float64(win.Length()) / speed)
	log := r.log.WithFields(logrus.Fields{"clip": c.ID(), "format": p.Name})
	if speed != 1 {
		log = log.WithField("speed", round2(speed))
	}

	steps := []render.Step{render.Extract(p.FPS), render.FitTo(p), render.Speed(speed)}
	if edits != nil && edits.Filters != nil {
		steps = append(steps, render.ColorFilters(*edits.Filters))
	}

	var scratch []string
	defer func() {
		for _, f := range scratch {
			_ = os.Remove(f)
		}
	}()
	if r.captions {
		if ass := subtitles.Captions(src.Transcript, win.Start, win.End, speed, p.Width, p.Height); ass != "" {
			path, err := writeScratch(filepath.Dir(out), "captions", ass)
			if err != nil {
				return types.OutputAsset{}, fail(types.StageCaptions, err)
			}
			scratch = append(scratch, path)
			steps = append(steps, render.BurnASS(types.StageCaptions, path))
		}
	}
	if edits != nil && edits.Overlay != nil {
		ass, err := subtitles.Overlay(*edits.Overlay, outLen, p.Width, p.Height)
		if err != nil {
			return types.OutputAsset{}, err
		}
		path, err := writeScratch(filepath.Dir(out), "overlay", ass)
		if err != nil {
			return types.OutputAsset{}, fail(types.StageOverlay, err)
		}
		scratch = append(scratch, path)
		steps = append(steps, render.BurnASS(types.StageOverlay, path))
	}

	plan, _, err := render.Build(src, win, out, steps...)
	if err != nil {
		var re *types.RenderError
		if errors.As(err, &re) {
			re.Candidate, re.Format = c.ID(), p.Name
		}
		return types.OutputAsset{}, err
	}

	log.Debug("encoding clip")
	if err := r.video.RenderClip(ctx, plan); err != nil {
		return types.OutputAsset{}, fail(types.StageEncode, err)
	}

	asset, err := finish(ctx, r.video, out, fail)
	if err != nil {
		return types.OutputAsset{}, err
	}
	asset.Format = p.Name
	asset.Score = c.Score
	asset.Title = c.Title
	asset.Reason = c.Reason
	asset.SourceStart, asset.SourceEnd = win.Start, win.End
	if edits != nil && edits.Title != "" {
		asset.Title = edits.Title
	}
	log.WithFields(logrus.Fields{"duration": asset.DurationSec, "bytes": asset.FileSize}).Info("clip rendered")
	return asset, nil
}

// finish measures the written artifact and extracts the midpoint thumbnail.
func finish(ctx context.Context, video ports.VideoTool, out string, fail func(string, error) error) (types.OutputAsset, error) {
	got, err := video.Probe(ctx, out)
	if err != nil {
		return types.OutputAsset{}, fail(types.StageMeasure, err)
	}
	fi, err := os.Stat(out)
	if err != nil {
		return types.OutputAsset{}, fail(types.StageMeasure, err)
	}
	thumb := ThumbnailPath(out)
	if err := video.Thumbnail(ctx, out, got.Duration/2, thumb); err != nil {
		return types.OutputAsset{}, fail(types.StageThumbnail, err)
	}
	return types.OutputAsset{
		Path:          out,
		Filename:      filepath.Base(out),
		ThumbnailPath: thumb,
		Duration:      got.Duration,
		DurationSec:   round2(got.Duration.Seconds()),
		Width:         got.Width,
		Height:        got.Height,
		FileSize:      fi.Size(),
	}, nil
}

// ValidateEdit checks an edit against a clip of length clipLen.
func ValidateEdit(e *types.EditSpec, clipLen time.Duration, p types.FormatProfile) error {
	if e == nil {
		return nil
	}
	start := time.Duration(0)
	end := clipLen
	if e.TrimStart != nil {
		start = *e.TrimStart
		if start < 0 || start >= clipLen {
			return types.Invalid("trim_start", "%s is outside the %s clip", start, clipLen)
		}
	}
	if e.TrimEnd != nil {
		end = *e.TrimEnd
		if end > clipLen {
			return types.Invalid("trim_end", "%s is outside the %s clip", end, clipLen)
		}
	}
	if end <= start {
		return types.Invalid("trim_end", "must be after trim_start")
	}
	if e.Speed != nil {
		if speed := *e.Speed; speed <= 0 || math.IsNaN(speed) || math.IsInf(speed, 0) {
			return types.Invalid("speed", "must be a positive number")
		}
	}
	if f := e.Filters; f != nil {
		if f.Brightness < 0 || f.Contrast < 0 || f.Saturation < 0 {
			return types.Invalid("filters", "multipliers must not be negative")
		}
	}
	if e.Overlay != nil {
		outLen := time.Duration(float64(end-start) / speedFor(end-start, p, e))
		if _, err := subtitles.Overlay(*e.Overlay, outLen, max(p.Width, 1), max(p.Height, 1)); err != nil {
			return err
		}
	}
	return nil
}

// trimWindow narrows a candidate by clip-relative trim bounds.
func trimWindow(c types.Candidate, e *types.EditSpec) types.Candidate {
	if e == nil {
		return c
	}
	w := c
	if e.TrimEnd != nil {
		w.End = c.Start + *e.TrimEnd
	}
	if e.TrimStart != nil {
		w.Start = c.Start + *e.TrimStart
	}
	return w
}

// speedFor is the explicit edit speed, or the speed-up needed to fit the
// profile's maximum duration.
func speedFor(length time.Duration, p types.FormatProfile, e *types.EditSpec) float64 {
	if e != nil && e.Speed != nil {
		return *e.Speed
	}
	if p.MaxDuration > 0 && length > p.MaxDuration {
		return float64(length) / float64(p.MaxDuration)
	}
	return 1
}

func writeScratch(dir, kind, content string) (string, error) {
	f, err := os.CreateTemp(dir, "."+kind+"-*.ass")
	if err != nil {
		return "", err
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), f.Close()
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
