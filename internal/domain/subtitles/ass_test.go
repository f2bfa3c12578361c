package subtitles

import (
	"strings"
	"testing"
	"time"

	"github.com/forPelevin/clipforge/internal/types"
)

func TestCaptions_KaraokeHasKTags(t *testing.T) {
	tr := &types.Transcript{Segments: []types.Segment{
		{Start: 0, End: 2, Words: []types.Word{{Start: 0.0, End: 0.3, Word: "Hello"}, {Start: 0.3, End: 0.8, Word: "world"}}},
	}}
	ass := Captions(tr, 0, 2*time.Second, 1, 1080, 1920)
	if !strings.Contains(ass, "{\\k30}Hello {\\k50}world") {
		t.Fatalf("expected karaoke tags in ASS, got:\n%s", ass)
	}
	if !strings.Contains(ass, "PlayResX: 1080") || !strings.Contains(ass, "PlayResY: 1920") {
		t.Fatalf("expected vertical play resolution, got:\n%s", ass)
	}
}

func TestCaptions_ClipLocalAndSpeedScaled(t *testing.T) {
	tr := &types.Transcript{Segments: []types.Segment{
		{Start: 10, End: 14, Words: []types.Word{{Start: 12, End: 14, Word: "late"}}},
	}}
	ass := Captions(tr, 10*time.Second, 20*time.Second, 2, 1080, 1920)
	if !strings.Contains(ass, "Dialogue: 0,0:00:01.00,0:00:02.00,Caption") {
		t.Fatalf("expected clip-local halved timing, got:\n%s", ass)
	}
}

func TestCaptions_SegmentTextWithoutWords(t *testing.T) {
	tr := &types.Transcript{Segments: []types.Segment{{Start: 0, End: 4, Text: "one two three four"}}}
	ass := Captions(tr, 0, 4*time.Second, 1, 1080, 1920)
	if !strings.Contains(ass, "{\\k100}one {\\k100}two") {
		t.Fatalf("expected evenly spread words, got:\n%s", ass)
	}
}

func TestCaptions_EmptyWindow(t *testing.T) {
	tr := &types.Transcript{Segments: []types.Segment{{Start: 50, End: 55, Text: "later"}}}
	if got := Captions(tr, 0, 10*time.Second, 1, 1080, 1920); got != "" {
		t.Fatalf("expected no captions, got:\n%s", got)
	}
	if got := Captions(nil, 0, 10*time.Second, 1, 1080, 1920); got != "" {
		t.Fatalf("expected no captions for nil transcript")
	}
}

func TestPackWords_RespectsBudgets(t *testing.T) {
	var words []word
	for i := 0; i < 20; i++ {
		words = append(words, word{Start: time.Duration(i) * time.Second, End: time.Duration(i+1) * time.Second, Text: "word"})
	}
	lines := packWords(words)
	total := 0
	for _, ln := range lines {
		if len(ln.Words) > lineWords {
			t.Fatalf("line has %d words", len(ln.Words))
		}
		total += len(ln.Words)
	}
	if total != 20 {
		t.Fatalf("lost words: %d", total)
	}
	if lines[0].Start != 0 || lines[len(lines)-1].End != 20*time.Second {
		t.Fatalf("unexpected line bounds: %+v", lines)
	}
}

func TestOverlay_PositionColorAndTiming(t *testing.T) {
	ass, err := Overlay(types.TextOverlay{
		Text:     "Big {play}",
		Position: types.PositionTop,
		FontSize: 64,
		Color:    "#FF8800",
		Start:    2 * time.Second,
		Duration: 3 * time.Second,
	}, 20*time.Second, 1080, 1920)
	if err != nil {
		t.Fatalf("Overlay: %v", err)
	}
	if !strings.Contains(ass, "Style: Overlay,Inter,64,&H000088FF,") {
		t.Fatalf("unexpected style:\n%s", ass)
	}
	if !strings.Contains(ass, ",1,3,1,8,") {
		t.Fatalf("expected top alignment:\n%s", ass)
	}
	if !strings.Contains(ass, "Dialogue: 0,0:00:02.00,0:00:05.00,Overlay,,0,0,0,,Big (play)") {
		t.Fatalf("unexpected event:\n%s", ass)
	}
}

func TestOverlay_DefaultsToFullClip(t *testing.T) {
	ass, err := Overlay(types.TextOverlay{Text: "hi"}, 12*time.Second, 1080, 1920)
	if err != nil {
		t.Fatalf("Overlay: %v", err)
	}
	if !strings.Contains(ass, "Dialogue: 0,0:00:00.00,0:00:12.00,Overlay") {
		t.Fatalf("expected full-length event:\n%s", ass)
	}
	if !strings.Contains(ass, ",&H00FFFFFF,") || !strings.Contains(ass, ",1,3,1,2,") {
		t.Fatalf("expected white bottom defaults:\n%s", ass)
	}
}

func TestOverlay_Invalid(t *testing.T) {
	tests := []struct {
		name string
		o    types.TextOverlay
	}{
		{"empty text", types.TextOverlay{Text: "  "}},
		{"bad position", types.TextOverlay{Text: "x", Position: "left"}},
		{"bad color", types.TextOverlay{Text: "x", Color: "#12"}},
		{"start past end", types.TextOverlay{Text: "x", Start: 30 * time.Second}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Overlay(tt.o, 10*time.Second, 1080, 1920)
			if types.KindOf(err) != types.KindValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestAssTime_Format(t *testing.T) {
	got := assTime(61*time.Second + 234*time.Millisecond)
	if got != "0:01:01.23" {
		t.Fatalf("unexpected assTime: %s", got)
	}
}
