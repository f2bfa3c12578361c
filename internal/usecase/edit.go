package usecase

import (
	"context"
	"os"
	"path/filepath"

	"github.com/forPelevin/clipforge/internal/types"
)

// Editor applies an EditSpec to an existing clip or an arbitrary source file.
type Editor struct {
	renderer *Renderer
}

func NewEditor(r *Renderer) *Editor {
	return &Editor{renderer: r}
}

// Edit probes input, treats the whole file as the clip and re-renders it into
// outDir as edited_<stem>_<id>.mp4.
func (e *Editor) Edit(ctx context.Context, input string, spec types.EditSpec, p types.FormatProfile, outDir string) (types.OutputAsset, error) {
	if input == "" {
		return types.OutputAsset{}, types.Invalid("video_path", "must not be empty")
	}
	src, err := e.renderer.video.Probe(ctx, input)
	if err != nil {
		return types.OutputAsset{}, err
	}
	whole := types.Candidate{Start: 0, End: src.Duration, Title: spec.Title, Reason: "Edited clip"}
	if whole.Title == "" {
		whole.Title = Stem(input)
	}
	if err := ValidateEdit(&spec, whole.Length(), p); err != nil {
		return types.OutputAsset{}, err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return types.OutputAsset{}, err
	}
	return e.renderer.Render(ctx, src, whole, p, &spec, filepath.Join(outDir, EditedFilename(input)))
}
