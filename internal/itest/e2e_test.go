//go:build integration

package itest

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/forPelevin/clipforge/internal/catalog"
	"github.com/forPelevin/clipforge/internal/config"
	"github.com/forPelevin/clipforge/internal/pipeline"
	"github.com/forPelevin/clipforge/internal/types"
)

func TestE2E(t *testing.T) {
	tmp := t.TempDir()
	in := filepath.Join(tmp, "input.mp4")

	// Generate speech audio via espeak-ng.
	wav := filepath.Join(tmp, "speech.wav")
	text := "Here is the key idea. Step one: do this. Step two: measure results. This is important."
	cmd := exec.Command("espeak-ng", "-w", wav, text)
	if b, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("espeak-ng failed: %v\n%s", err, string(b))
	}

	// Landscape source with a looped voice track so the cropper and the
	// audio path are both exercised.
	ff := exec.Command("ffmpeg",
		"-y",
		"-f", "lavfi",
		"-i", "testsrc=s=1280x720:d=75",
		"-stream_loop", "-1",
		"-i", wav,
		"-t", "75",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		in,
	)
	if b, err := ff.CombinedOutput(); err != nil {
		t.Fatalf("ffmpeg fixture failed: %v\n%s", err, string(b))
	}

	outDir := filepath.Join(tmp, "out")
	cfg, err := config.Load("", map[string]any{
		"paths.output":             outDir,
		"paths.work":               filepath.Join(tmp, "work"),
		"paths.downloads":          filepath.Join(tmp, "downloads"),
		"catalog.path":             filepath.Join(tmp, "clipforge.db"),
		"clip.min_duration":        10,
		"clip.preferred_duration":  15,
		"clip.max_clips_per_video": 2,
		"tools.whisper_model":      os.Getenv("WHISPER_MODEL"),
	})
	if err != nil {
		t.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	app, err := pipeline.Build(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer app.Close()

	st, manifestPath, err := app.Run(ctx, in, []string{"tiktok"})
	if err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}
	if st.State != types.StateCompleted || len(st.Outputs) == 0 {
		t.Fatalf("unexpected status: %+v", st)
	}

	b, err := os.ReadFile(manifestPath)
	if err != nil {
		t.Fatalf("missing manifest: %v", err)
	}
	var m types.Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("decode manifest: %v", err)
	}
	if len(m.Clips) != len(st.Outputs) {
		t.Fatalf("manifest clips = %d, outputs = %d", len(m.Clips), len(st.Outputs))
	}

	for _, a := range st.Outputs {
		sec, err := probeDurationSeconds(a.Path)
		if err != nil {
			t.Fatalf("probe output: %v", err)
		}
		if sec <= 0 || sec > 60.5 {
			t.Fatalf("clip %s duration %.2fs outside the tiktok limit", a.Filename, sec)
		}
		if _, err := os.Stat(a.ThumbnailPath); err != nil {
			t.Fatalf("missing thumbnail: %v", err)
		}
	}

	clips, err := app.Catalog.ListClips(ctx, catalog.ListOptions{})
	if err != nil {
		t.Fatalf("list clips: %v", err)
	}
	if len(clips) != len(st.Outputs) {
		t.Fatalf("catalog clips = %d, outputs = %d", len(clips), len(st.Outputs))
	}

	if len(st.Outputs) >= 2 {
		p, err := app.Jobs.Profile("tiktok")
		if err != nil {
			t.Fatal(err)
		}
		reel, err := app.Compiler.Compile(ctx, st.Outputs[:2], types.CompilationSpec{
			Transition:         types.TransitionCrossfade,
			TransitionDuration: time.Second,
			Title:              "Best of",
			Profile:            p,
		}, filepath.Join(outDir, "reel.mp4"))
		if err != nil {
			t.Fatalf("compile: %v", err)
		}
		want := st.Outputs[0].DurationSec + st.Outputs[1].DurationSec - 1
		if d := reel.DurationSec; d < want-0.5 || d > want+0.5 {
			t.Fatalf("reel duration %.2f, want about %.2f", d, want)
		}
	}
}
