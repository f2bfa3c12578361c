package subtitles

import (
	"fmt"
	"strings"
	"time"

	"github.com/forPelevin/clipforge/internal/types"
)

// Caption layout budgets for vertical frames.
const (
	lineChars = 32
	lineWords = 7
)

// Captions renders karaoke captions for the source window [start, end).
// Event times are clip-local and divided by speed so they line up with a
// time-scaled clip. It returns "" when the window has no speech.
func Captions(tr *types.Transcript, start, end time.Duration, speed float64, w, h int) string {
	if tr.Empty() || end <= start {
		return ""
	}
	if speed <= 0 {
		speed = 1
	}
	words := collectWords(tr, start, end)
	if len(words) == 0 {
		words = segmentChunks(tr, start, end)
	}
	if len(words) == 0 {
		return ""
	}
	for i := range words {
		words[i].Start = time.Duration(float64(words[i].Start) / speed)
		words[i].End = time.Duration(float64(words[i].End) / speed)
	}

	fontSize := h / 24
	style := fmt.Sprintf("Style: Caption,Inter,%d,&H00FFFFFF,&H00FFD200,&H00000000,&H64000000,1,0,0,0,100,100,0,0,1,%d,2,2,%d,%d,%d,1",
		fontSize, max(2, fontSize/13), w/14, w/14, h/5)

	var b strings.Builder
	b.WriteString(header(w, h, style))
	for _, ln := range packWords(words) {
		var text strings.Builder
		for i, wd := range ln.Words {
			if i > 0 {
				text.WriteString(" ")
			}
			cs := int((wd.End - wd.Start) / (10 * time.Millisecond))
			if cs < 1 {
				cs = 1
			}
			fmt.Fprintf(&text, "{\\k%d}%s", cs, wd.Text)
		}
		dialogue(&b, "Caption", ln.Start, ln.End, text.String())
	}
	return b.String()
}

type word struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

type line struct {
	Start time.Duration
	End   time.Duration
	Words []word
}

func collectWords(tr *types.Transcript, start, end time.Duration) []word {
	var out []word
	for _, s := range tr.Segments {
		for _, w := range s.Words {
			if wd, ok := clipWord(dur(w.Start), dur(w.End), w.Word, start, end); ok {
				out = append(out, wd)
			}
		}
	}
	return out
}

// segmentChunks spreads a segment's duration evenly over its words. Platform
// captions carry no word timings.
func segmentChunks(tr *types.Transcript, start, end time.Duration) []word {
	var out []word
	for _, s := range tr.Segments {
		fields := strings.Fields(s.Text)
		if len(fields) == 0 || s.End <= s.Start {
			continue
		}
		step := (s.End - s.Start) / float64(len(fields))
		for i, f := range fields {
			ws := s.Start + step*float64(i)
			if wd, ok := clipWord(dur(ws), dur(ws+step), f, start, end); ok {
				out = append(out, wd)
			}
		}
	}
	return out
}

func clipWord(ws, we time.Duration, text string, start, end time.Duration) (word, bool) {
	if we <= start || ws >= end {
		return word{}, false
	}
	text = sanitizeASS(text)
	if text == "" {
		return word{}, false
	}
	ws = max(ws, start)
	we = min(we, end)
	return word{Start: ws - start, End: we - start, Text: text}, true
}

func packWords(words []word) []line {
	var out []line
	cur := line{Start: words[0].Start}
	curLen := 0
	for _, w := range words {
		wl := len([]rune(w.Text))
		next := curLen + wl
		if curLen > 0 {
			next++
		}
		if len(cur.Words) > 0 && (len(cur.Words) >= lineWords || next > lineChars) {
			cur.End = cur.Words[len(cur.Words)-1].End
			out = append(out, cur)
			cur = line{Start: w.Start}
			curLen = 0
			next = wl
		}
		cur.Words = append(cur.Words, w)
		curLen = next
	}
	cur.End = cur.Words[len(cur.Words)-1].End
	return append(out, cur)
}
