package highlights

import (
	"context"
	"fmt"
	"time"

	"github.com/forPelevin/clipforge/internal/types"
)

// Heuristic spaces preferred-length windows evenly across the source, away
// from the first and last Buffer of the video.
type Heuristic struct{}

func (Heuristic) Basis() types.Basis { return types.BasisHeuristic }

func (Heuristic) Propose(_ context.Context, src types.SourceVideo, cfg Config) ([]types.Candidate, error) {
	return heuristicWindows(src, cfg), nil
}

func heuristicWindows(src types.SourceVideo, cfg Config) []types.Candidate {
	lo := cfg.Buffer
	hi := src.Duration - cfg.Buffer
	usable := hi - lo
	if usable <= 0 || usable < cfg.MinDuration {
		return nil
	}

	length := clampDuration(cfg.PreferredDuration, cfg.MinDuration, cfg.MaxDuration)
	if length <= 0 {
		return nil
	}
	if length > usable {
		length = usable
	}

	n := int(usable / length)
	if cfg.MaxClips > 0 && n > cfg.MaxClips {
		n = cfg.MaxClips
	}
	if n < 1 {
		n = 1
	}
	gap := (usable - time.Duration(n)*length) / time.Duration(n+1)

	out := make([]types.Candidate, 0, n)
	for i := 0; i < n; i++ {
		start := lo + gap*time.Duration(i+1) + length*time.Duration(i)
		end := start + length

		score := positionScore(start+length/2, src.Duration)
		if text := WindowText(src.Transcript, start, end); text != "" {
			info, hook := TextSignals(text)
			score += 0.25 * (info + hook)
		}

		out = append(out, types.Candidate{
			Start:  start,
			End:    end,
			Score:  round2(clamp(score, 0, 10)),
			Title:  fmt.Sprintf("Clip %d", i+1),
			Reason: fmt.Sprintf("Engaging moment at %ds", int(start.Seconds())),
			Basis:  types.BasisHeuristic,
		})
	}
	return out
}
