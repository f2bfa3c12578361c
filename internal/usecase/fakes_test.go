package usecase

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/forPelevin/clipforge/internal/domain/render"
	"github.com/forPelevin/clipforge/internal/types"
)

// fakeVideo writes placeholder files and reports probe results derived from
// the plans it was asked to execute.
type fakeVideo struct {
	mu       sync.Mutex
	probes   map[string]types.SourceVideo
	renders  []render.ClipPlan
	compiles []render.CompilePlan
	thumbs   map[string]time.Duration
	failOn   func(render.ClipPlan) error
	audio    int
}

func newFakeVideo() *fakeVideo {
	return &fakeVideo{probes: map[string]types.SourceVideo{}, thumbs: map[string]time.Duration{}}
}

func (f *fakeVideo) addSource(v types.SourceVideo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probes[v.Path] = v
}

func (f *fakeVideo) Probe(_ context.Context, path string) (types.SourceVideo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.probes[path]
	if !ok {
		return types.SourceVideo{}, &types.ProbeError{Path: path, Err: os.ErrNotExist}
	}
	return v, nil
}

func (f *fakeVideo) ExtractAudioMono16k(_ context.Context, _, out string) error {
	f.mu.Lock()
	f.audio++
	f.mu.Unlock()
	return os.WriteFile(out, []byte("wav"), 0o644)
}

func (f *fakeVideo) RenderClip(_ context.Context, p render.ClipPlan) error {
	if f.failOn != nil {
		if err := f.failOn(p); err != nil {
			return err
		}
	}
	if err := os.WriteFile(p.Output, []byte("clip"), 0o644); err != nil {
		return err
	}
	w, h, speed := planGeometry(p.VideoFilter)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.renders = append(f.renders, p)
	f.probes[p.Output] = types.SourceVideo{
		Path:     p.Output,
		Duration: time.Duration(float64(p.End-p.Start) / speed),
		Width:    w,
		Height:   h,
		HasAudio: p.HasAudio,
	}
	return nil
}

func (f *fakeVideo) Compile(_ context.Context, p render.CompilePlan) error {
	if err := os.WriteFile(p.Output, []byte("reel"), 0o644); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.compiles = append(f.compiles, p)
	f.probes[p.Output] = types.SourceVideo{Path: p.Output, Duration: p.Duration, Width: 1080, Height: 1920, HasAudio: p.AudioOut != ""}
	return nil
}

func (f *fakeVideo) Thumbnail(_ context.Context, in string, at time.Duration, out string) error {
	f.mu.Lock()
	f.thumbs[in] = at
	f.mu.Unlock()
	return os.WriteFile(out, []byte("jpg"), 0o644)
}

func planGeometry(filter string) (w, h int, speed float64) {
	speed = 1
	for _, part := range strings.Split(filter, ",") {
		switch {
		case strings.HasPrefix(part, "scale="):
			_, _ = fmt.Sscanf(part, "scale=%d:%d", &w, &h)
		case strings.HasPrefix(part, "setpts=PTS/"):
			speed, _ = strconv.ParseFloat(strings.TrimPrefix(part, "setpts=PTS/"), 64)
		}
	}
	return w, h, speed
}

type fakeASR struct {
	tr    types.Transcript
	err   error
	calls int
}

func (f *fakeASR) Transcribe(_ context.Context, _, _ string) (types.Transcript, error) {
	f.calls++
	return f.tr, f.err
}

type fakeCaptions struct {
	tr  *types.Transcript
	err error
}

func (f fakeCaptions) Captions(_ context.Context, _, _ string) (*types.Transcript, error) {
	return f.tr, f.err
}

type fakeDownloader struct {
	path string
	err  error
}

func (f fakeDownloader) Download(_ context.Context, _, _ string) (string, error) {
	return f.path, f.err
}
