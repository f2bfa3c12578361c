package ports

import (
	"context"
	"time"

	"github.com/forPelevin/clipforge/internal/domain/render"
	"github.com/forPelevin/clipforge/internal/types"
)

// Downloader fetches a remote video into dir and returns the local path.
type Downloader interface {
	Download(ctx context.Context, url, dir string) (string, error)
}

// CaptionSource returns platform captions for a remote video, or nil when the
// platform has none.
type CaptionSource interface {
	Captions(ctx context.Context, url, cacheDir string) (*types.Transcript, error)
}

type ASR interface {
	Transcribe(ctx context.Context, wavPath, cacheDir string) (types.Transcript, error)
}

type Prober interface {
	Probe(ctx context.Context, path string) (types.SourceVideo, error)
}

type VideoTool interface {
	Prober
	ExtractAudioMono16k(ctx context.Context, inMP4, outWav string) error
	RenderClip(ctx context.Context, plan render.ClipPlan) error
	Thumbnail(ctx context.Context, inMP4 string, at time.Duration, outJPG string) error
	Compile(ctx context.Context, plan render.CompilePlan) error
}

type HighlightRequest struct {
	System string
	Prompt string
}

// HighlightModel is the external text-completion collaborator used for
// AI-assisted selection. It returns the raw model content.
type HighlightModel interface {
	Suggest(ctx context.Context, req HighlightRequest) (string, error)
}

// AssetSink receives finished jobs and assets. Sinks are write-once; nothing
// in the pipeline reads them back.
type AssetSink interface {
	SaveJob(ctx context.Context, job types.JobStatus) error
	SaveClip(ctx context.Context, jobID string, src types.SourceVideo, asset types.OutputAsset) error
}

// Publisher copies a finished asset to shared storage and returns its
// object key.
type Publisher interface {
	Publish(ctx context.Context, jobID string, asset types.OutputAsset) (string, error)
}
