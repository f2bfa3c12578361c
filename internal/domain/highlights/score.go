package highlights

import (
	"math"
	"regexp"
	"strings"
	"time"
)

var (
	reNum    = regexp.MustCompile(`\b\d+(?:[\.,]\d+)?\b`)
	reHook   = regexp.MustCompile(`(?i)\b(important|secret|mistake|never|always|here\s+is\s+why|remember|insane|clutch|no\s+way|oh\s+my\s+god|let'?s\s+go|unbelievable|crazy)\b`)
	reHow    = regexp.MustCompile(`(?i)\b(how\s+to|step\s+\d+|first|second|third|do\s+this)\b`)
	reLaugh  = regexp.MustCompile(`(?i)\b(haha+|lol|lmao|\[laughter\])\b`)
	reShouty = regexp.MustCompile(`\b[A-Z]{3,}\b`)
	reStep   = regexp.MustCompile(`(?i)\bstep\s+\d+\b`)
)

// TextSignals returns (info, hook) in range [0..10] for a transcript slice.
func TextSignals(text string) (float64, float64) {
	t := strings.TrimSpace(text)
	if t == "" {
		return 0, 0
	}
	lower := strings.ToLower(t)

	info := float64(len(reNum.FindAllStringIndex(t, -1))) * 0.4
	if reHow.MatchString(lower) {
		info += 1.2
	}
	info -= 0.0006 * float64(len([]rune(t)))

	hook := float64(len(reHook.FindAllStringIndex(lower, -1))) * 0.9
	hook += float64(len(reLaugh.FindAllStringIndex(lower, -1))) * 0.6
	hook += float64(len(reShouty.FindAllStringIndex(t, -1))) * 0.3
	hook += float64(strings.Count(t, "?")) * 0.7
	hook += float64(strings.Count(t, "!")) * 0.3
	// Numbered steps keep viewers waiting for the next one.
	hook += float64(len(reStep.FindAllStringIndex(lower, -1))) * 0.4

	return clamp(info, 0, 10), clamp(hook, 0, 10)
}

// positionScore favours windows near the middle of the source: 7.5 at the
// center, 6.0 at either edge.
func positionScore(center, total time.Duration) float64 {
	if total <= 0 {
		return 6
	}
	rel := center.Seconds() / total.Seconds()
	return 6 + 1.5*(1-math.Abs(2*rel-1))
}

func round2(x float64) float64 { return math.Round(x*100) / 100 }

func clamp(x, a, b float64) float64 {
	if x < a {
		return a
	}
	if x > b {
		return b
	}
	return x
}
