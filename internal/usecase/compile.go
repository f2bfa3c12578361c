package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/forPelevin/clipforge/internal/domain/render"
	"github.com/forPelevin/clipforge/internal/ports"
	"github.com/forPelevin/clipforge/internal/types"
)

// Compiler concatenates rendered clips into one reel.
type Compiler struct {
	video ports.VideoTool
	log   logrus.FieldLogger
}

func NewCompiler(video ports.VideoTool, log logrus.FieldLogger) *Compiler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Compiler{video: video, log: log.WithField("component", "compiler")}
}

// Compile joins assets in the given order. Fewer than two assets is a
// ValidationError and nothing is probed or encoded.
func (c *Compiler) Compile(ctx context.Context, assets []types.OutputAsset, spec types.CompilationSpec, out string) (types.OutputAsset, error) {
	if len(assets) < 2 {
		return types.OutputAsset{}, types.Invalid("clips", "need at least 2 clips, got %d", len(assets))
	}
	id := Stem(out)
	fail := func(stage string, err error) error {
		return &types.RenderError{Stage: stage, Candidate: id, Format: spec.Profile.Name, Err: err}
	}

	inputs := make([]render.CompileInput, 0, len(assets))
	var score float64
	for _, a := range assets {
		v, err := c.video.Probe(ctx, a.Path)
		if err != nil {
			return types.OutputAsset{}, fail(types.StageCompile, fmt.Errorf("input %s: %w", a.Filename, err))
		}
		inputs = append(inputs, render.CompileInput{
			Path:     a.Path,
			Duration: v.Duration,
			Width:    v.Width,
			Height:   v.Height,
			HasAudio: v.HasAudio,
		})
		score += a.Score
	}

	plan, err := render.PlanCompile(inputs, spec, out)
	if err != nil {
		var re *types.RenderError
		if errors.As(err, &re) {
			re.Candidate = id
		}
		return types.OutputAsset{}, err
	}

	log := c.log.WithFields(logrus.Fields{"clips": len(inputs), "transition": spec.Transition})
	log.Debug("compiling")
	if err := c.video.Compile(ctx, plan); err != nil {
		return types.OutputAsset{}, fail(types.StageCompile, err)
	}

	asset, err := finish(ctx, c.video, out, fail)
	if err != nil {
		return types.OutputAsset{}, err
	}
	asset.Format = spec.Profile.Name
	asset.Title = spec.Title
	if asset.Title == "" {
		asset.Title = "Compilation"
	}
	asset.Reason = fmt.Sprintf("Compilation of %d clips", len(inputs))
	asset.Score = round2(score / float64(len(assets)))
	log.WithFields(logrus.Fields{"duration": asset.DurationSec, "expected": plan.Duration.Seconds()}).Info("compilation rendered")
	return asset, nil
}
