package highlights

import (
	"fmt"
	"strings"
	"time"

	"github.com/forPelevin/clipforge/internal/types"
)

// WindowText joins the transcript segments that intersect [start, end).
func WindowText(tr *types.Transcript, start, end time.Duration) string {
	if tr.Empty() {
		return ""
	}
	var parts []string
	for _, s := range tr.Segments {
		if dur(s.End) <= start || dur(s.Start) >= end {
			continue
		}
		if t := strings.TrimSpace(s.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// PromptTranscript renders timestamped transcript lines, stopping once budget
// characters are used. The first line is cut rather than dropped so a single
// very long segment still produces usable input.
func PromptTranscript(tr *types.Transcript, budget int) string {
	if tr.Empty() || budget <= 0 {
		return ""
	}
	var b strings.Builder
	for _, s := range tr.Segments {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		line := fmt.Sprintf("[%.1f-%.1f] %s\n", s.Start, s.End, text)
		if b.Len()+len(line) > budget {
			if b.Len() == 0 {
				b.WriteString(truncateRunes(line, budget))
			}
			break
		}
		b.WriteString(line)
	}
	return strings.TrimRight(b.String(), "\n")
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// Cut on a rune boundary at or below n bytes.
	cut := 0
	for i := range s {
		if i > n {
			break
		}
		cut = i
	}
	return s[:cut]
}

func dur(sec float64) time.Duration { return time.Duration(sec * float64(time.Second)) }
