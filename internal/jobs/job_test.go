package jobs

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/forPelevin/clipforge/internal/types"
)

func TestJob_RenderProgress(t *testing.T) {
	j := newJob("id", "in", []string{"tiktok"}, time.Now)
	j.startRenders(4)
	want := []int{61, 72, 83, 95}
	for i, w := range want {
		j.renderDone()
		if got := j.snapshot().Progress; got != w {
			t.Fatalf("after %d renders progress = %d, want %d", i+1, got, w)
		}
	}
}

func TestJob_StatesAndSnapshots(t *testing.T) {
	j := newJob("id", "in", []string{"tiktok"}, time.Now)
	if s := j.snapshot(); s.State != types.StateQueued || s.Progress != 0 {
		t.Fatalf("unexpected initial status: %+v", s)
	}
	j.enter(types.StateDownloading, progressDownloading, "Downloading video...")
	snap := j.snapshot()
	snap.Formats[0] = "mutated"
	if j.snapshot().Formats[0] != "tiktok" {
		t.Fatalf("snapshot aliases job state")
	}

	j.fail(&types.DownloadError{URL: "u", Err: errors.New("timeout")})
	s := j.snapshot()
	if s.State != types.StateFailed || s.ErrorKind != types.KindDownload || s.Progress != 100 || !s.State.Terminal() {
		t.Fatalf("unexpected failed status: %+v", s)
	}
}

func TestRunDir(t *testing.T) {
	now := time.Date(2026, 2, 12, 10, 30, 45, 1234, time.UTC)
	got := RunDir("out", "My Cool.Video", now)
	base := filepath.Base(got)
	if filepath.Dir(got) != "out" {
		t.Fatalf("unexpected parent dir: %s", got)
	}
	if !strings.HasPrefix(base, "my-cool-video-20260212-103045Z-") {
		t.Fatalf("unexpected run dir format: %s", base)
	}
	if len(base) != len("my-cool-video-20260212-103045Z-")+6 {
		t.Fatalf("unexpected run dir suffix length: %s", base)
	}
	if got := filepath.Base(RunDir("out", "___", now)); !strings.HasPrefix(got, "input-") {
		t.Fatalf("expected fallback name, got %s", got)
	}
}
