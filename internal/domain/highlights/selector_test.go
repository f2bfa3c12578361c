package highlights

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/forPelevin/clipforge/internal/ports"
	"github.com/forPelevin/clipforge/internal/types"
)

func testConfig() Config {
	return Config{
		MinDuration:       15 * time.Second,
		MaxDuration:       60 * time.Second,
		PreferredDuration: 30 * time.Second,
		Buffer:            2 * time.Second,
		MaxClips:          5,
	}
}

func sec(s float64) time.Duration { return time.Duration(s * float64(time.Second)) }

func TestFinalize_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	cfg := testConfig()
	total := 600 * time.Second

	for iter := 0; iter < 200; iter++ {
		raw := make([]types.Candidate, 0, 20)
		for i := 0; i < 20; i++ {
			st := rng.Float64() * 620
			ln := rng.Float64() * 90
			raw = append(raw, types.Candidate{Start: sec(st), End: sec(st + ln), Score: rng.Float64() * 12})
		}

		out := Finalize(raw, total, cfg)
		if len(out) > cfg.MaxClips {
			t.Fatalf("iter %d: %d candidates exceed max %d", iter, len(out), cfg.MaxClips)
		}
		for i, c := range out {
			if c.Length() < cfg.MinDuration || c.Length() > cfg.MaxDuration {
				t.Fatalf("iter %d: length %v outside bounds", iter, c.Length())
			}
			if c.Start < 0 || c.End > total {
				t.Fatalf("iter %d: range %v-%v outside source", iter, c.Start, c.End)
			}
			if c.Score < 0 || c.Score > 10 {
				t.Fatalf("iter %d: score %v outside [0,10]", iter, c.Score)
			}
			if i > 0 && out[i-1].Start > c.Start {
				t.Fatalf("iter %d: output not chronological", iter)
			}
			for j := i + 1; j < len(out); j++ {
				if c.Overlaps(out[j]) {
					t.Fatalf("iter %d: %v overlaps %v", iter, c, out[j])
				}
			}
		}
	}
}

func TestFinalize_ClampsSymmetricallyAroundCenter(t *testing.T) {
	cfg := testConfig()
	out := Finalize([]types.Candidate{
		{Start: sec(100), End: sec(104), Score: 5},
		{Start: sec(200), End: sec(300), Score: 5},
	}, 600*time.Second, cfg)
	if len(out) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(out))
	}
	if out[0].Start != sec(94.5) || out[0].End != sec(109.5) {
		t.Fatalf("short window not extended around center: %v-%v", out[0].Start, out[0].End)
	}
	if out[1].Start != sec(220) || out[1].End != sec(280) {
		t.Fatalf("long window not trimmed around center: %v-%v", out[1].Start, out[1].End)
	}
}

func TestFinalize_ShiftsWindowsInsideSource(t *testing.T) {
	cfg := testConfig()
	out := Finalize([]types.Candidate{{Start: sec(95), End: sec(100), Score: 5}}, 100*time.Second, cfg)
	if len(out) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(out))
	}
	if out[0].End != sec(100) || out[0].Length() != cfg.MinDuration {
		t.Fatalf("unexpected range: %v-%v", out[0].Start, out[0].End)
	}
}

func TestFinalize_OverlapKeepsHigherScoreAndEarlierOnTie(t *testing.T) {
	cfg := testConfig()
	out := Finalize([]types.Candidate{
		{Start: sec(10), End: sec(40), Score: 6, Title: "low"},
		{Start: sec(30), End: sec(60), Score: 9, Title: "high"},
		{Start: sec(100), End: sec(130), Score: 7, Title: "tie-late"},
		{Start: sec(90), End: sec(120), Score: 7, Title: "tie-early"},
	}, 600*time.Second, cfg)
	if len(out) != 2 {
		t.Fatalf("expected 2 survivors, got %d: %+v", len(out), out)
	}
	if out[0].Title != "high" || out[1].Title != "tie-early" {
		t.Fatalf("unexpected survivors: %q, %q", out[0].Title, out[1].Title)
	}
}

func TestFinalize_TruncatesByScoreThenOrdersByTime(t *testing.T) {
	cfg := testConfig()
	cfg.MaxClips = 2
	out := Finalize([]types.Candidate{
		{Start: sec(0), End: sec(20), Score: 9, Title: "a"},
		{Start: sec(100), End: sec(120), Score: 3, Title: "b"},
		{Start: sec(200), End: sec(220), Score: 8, Title: "c"},
	}, 600*time.Second, cfg)
	if len(out) != 2 || out[0].Title != "a" || out[1].Title != "c" {
		t.Fatalf("unexpected output: %+v", out)
	}
}

func TestHeuristic_120sSourceStaysInsideBuffer(t *testing.T) {
	cfg := testConfig()
	src := types.SourceVideo{Duration: 120 * time.Second}
	out := NewSelector(nil, Heuristic{}).Select(context.Background(), src, cfg)
	if len(out) == 0 {
		t.Fatalf("expected heuristic candidates")
	}
	for _, c := range out {
		if c.Start < sec(2) || c.End > sec(118) {
			t.Fatalf("candidate %v-%v outside [2,118]", c.Start, c.End)
		}
		if c.Basis != types.BasisHeuristic {
			t.Fatalf("unexpected basis %q", c.Basis)
		}
	}
}

func TestHeuristic_ShortSourceYieldsNothing(t *testing.T) {
	src := types.SourceVideo{Duration: 5 * time.Second}
	out := NewSelector(nil, Heuristic{}).Select(context.Background(), src, testConfig())
	if len(out) != 0 {
		t.Fatalf("expected no candidates, got %d", len(out))
	}
}

func TestHeuristic_TranscriptBoostsScore(t *testing.T) {
	cfg := testConfig()
	cfg.MaxClips = 1
	plain := heuristicWindows(types.SourceVideo{Duration: 60 * time.Second}, cfg)
	boosted := heuristicWindows(types.SourceVideo{
		Duration: 60 * time.Second,
		Transcript: &types.Transcript{Segments: []types.Segment{
			{Start: 10, End: 40, Text: "NO WAY, that was insane! How did he do that?"},
		}},
	}, cfg)
	if len(plain) != 1 || len(boosted) != 1 {
		t.Fatalf("expected one window each, got %d and %d", len(plain), len(boosted))
	}
	if boosted[0].Score <= plain[0].Score {
		t.Fatalf("expected transcript to raise score: %v <= %v", boosted[0].Score, plain[0].Score)
	}
}

type fakeModel struct {
	content string
	err     error
	calls   int
	req     string
}

func (f *fakeModel) Suggest(_ context.Context, req ports.HighlightRequest) (string, error) {
	f.calls++
	f.req = req.Prompt
	return f.content, f.err
}

func transcriptSource(total time.Duration) types.SourceVideo {
	return types.SourceVideo{
		Duration: total,
		Transcript: &types.Transcript{Segments: []types.Segment{
			{Start: 0, End: 5, Text: "welcome back"},
			{Start: 50, End: 55, Text: "that was insane"},
		}},
	}
}

func TestSelector_UsesAIWhenAvailable(t *testing.T) {
	model := &fakeModel{content: "```json\n{\"clips\":[" +
		`{"start": 40, "end": 70, "title": "Big play", "reason": "clutch", "score": 9},` +
		`{"start": "bad", "end": 70, "score": 1},` +
		`{"start": 100, "end": 900, "score": 5},` +
		`{"start": 150, "end": 175, "title": "No score"}` +
		"]}\n```"}
	sel := NewSelector(nil, AI{Model: model}, Heuristic{})

	out := sel.Select(context.Background(), transcriptSource(300*time.Second), testConfig())
	if model.calls != 1 {
		t.Fatalf("expected one model call, got %d", model.calls)
	}
	if len(out) != 1 {
		t.Fatalf("expected only the valid suggestion to survive, got %+v", out)
	}
	if out[0].Basis != types.BasisAI || out[0].Title != "Big play" || out[0].Score != 9 {
		t.Fatalf("unexpected candidate: %+v", out[0])
	}
}

func TestSelector_FallsBackSilentlyOnModelFailure(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	model := &fakeModel{err: errors.New("openrouter status 429: quota")}
	sel := NewSelector(logger, AI{Model: model}, Heuristic{})

	out := sel.Select(context.Background(), transcriptSource(300*time.Second), testConfig())
	if len(out) == 0 {
		t.Fatalf("expected heuristic fallback candidates")
	}
	for _, c := range out {
		if c.Basis != types.BasisHeuristic {
			t.Fatalf("expected heuristic basis, got %q", c.Basis)
		}
	}
	var degraded bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			degraded = true
		}
	}
	if !degraded {
		t.Fatalf("expected a degraded-selection warning")
	}
}

func TestSelector_SkipsAIWithoutTranscript(t *testing.T) {
	model := &fakeModel{content: "[]"}
	sel := NewSelector(nil, AI{Model: model}, Heuristic{})
	out := sel.Select(context.Background(), types.SourceVideo{Duration: 300 * time.Second}, testConfig())
	if model.calls != 0 {
		t.Fatalf("model must not be called without a transcript")
	}
	if len(out) == 0 {
		t.Fatalf("expected heuristic candidates")
	}
}

func TestSelector_FallsBackWhenAIReturnsNothingUsable(t *testing.T) {
	model := &fakeModel{content: `[{"start": 1, "end": 2}]`}
	sel := NewSelector(nil, AI{Model: model}, Heuristic{})
	out := sel.Select(context.Background(), transcriptSource(300*time.Second), testConfig())
	if len(out) == 0 || out[0].Basis != types.BasisHeuristic {
		t.Fatalf("expected heuristic fallback, got %+v", out)
	}
}
