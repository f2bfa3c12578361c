package highlights

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/forPelevin/clipforge/internal/types"
)

// Config bounds every candidate the selector emits.
type Config struct {
	MinDuration       time.Duration
	MaxDuration       time.Duration
	PreferredDuration time.Duration
	Buffer            time.Duration
	MaxClips          int
}

// ErrUnavailable means a strategy cannot run for this source (no transcript,
// no model configured). It is not logged as a degradation.
var ErrUnavailable = errors.New("strategy unavailable")

// Strategy proposes raw candidates. Its output is normalized by Finalize, so
// implementations need not enforce bounds, overlap or ordering.
type Strategy interface {
	Basis() types.Basis
	Propose(ctx context.Context, src types.SourceVideo, cfg Config) ([]types.Candidate, error)
}

type Selector struct {
	strategies []Strategy
	log        logrus.FieldLogger
}

// NewSelector tries strategies in order and keeps the first non-empty result.
func NewSelector(log logrus.FieldLogger, strategies ...Strategy) *Selector {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Selector{strategies: strategies, log: log.WithField("component", "selector")}
}

// Select returns the final, chronologically ordered candidates. An empty
// result is a valid outcome.
func (s *Selector) Select(ctx context.Context, src types.SourceVideo, cfg Config) []types.Candidate {
	for i, st := range s.strategies {
		last := i == len(s.strategies)-1
		raw, err := st.Propose(ctx, src, cfg)
		if err != nil {
			if !errors.Is(err, ErrUnavailable) {
				s.log.WithError(err).WithField("strategy", st.Basis()).Warn("selection degraded, falling back")
			}
			continue
		}
		out := Finalize(raw, src.Duration, cfg)
		if len(out) == 0 && !last {
			s.log.WithField("strategy", st.Basis()).WithField("raw", len(raw)).Warn("selection degraded: no usable candidates, falling back")
			continue
		}
		s.log.WithFields(logrus.Fields{"strategy": st.Basis(), "raw": len(raw), "selected": len(out)}).Info("candidates selected")
		return out
	}
	return nil
}

// Finalize applies the shared post-processing: fit each window to the
// duration bounds, drop overlaps keeping the higher score, keep the top
// MaxClips and order the survivors by start time.
func Finalize(raw []types.Candidate, total time.Duration, cfg Config) []types.Candidate {
	fitted := make([]types.Candidate, 0, len(raw))
	for _, c := range raw {
		if fc, ok := fitWindow(c, total, cfg); ok {
			fitted = append(fitted, fc)
		}
	}

	sort.SliceStable(fitted, func(i, j int) bool {
		if fitted[i].Score == fitted[j].Score {
			return fitted[i].Start < fitted[j].Start
		}
		return fitted[i].Score > fitted[j].Score
	})

	kept := make([]types.Candidate, 0, len(fitted))
	for _, c := range fitted {
		if overlapsAny(kept, c) {
			continue
		}
		kept = append(kept, c)
	}
	if cfg.MaxClips > 0 && len(kept) > cfg.MaxClips {
		kept = kept[:cfg.MaxClips]
	}

	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Start < kept[j].Start })
	return kept
}

// fitWindow extends or trims symmetrically around the center, then shifts the
// window back inside [0, total]. Windows that still violate the bounds are
// dropped.
func fitWindow(c types.Candidate, total time.Duration, cfg Config) (types.Candidate, bool) {
	if c.End < c.Start || total <= 0 {
		return c, false
	}
	length := c.End - c.Start
	target := length
	if target < cfg.MinDuration {
		target = cfg.MinDuration
	}
	if cfg.MaxDuration > 0 && target > cfg.MaxDuration {
		target = cfg.MaxDuration
	}

	center := c.Start + length/2
	start := center - target/2
	end := start + target

	if start < 0 {
		end -= start
		start = 0
	}
	if end > total {
		start -= end - total
		end = total
	}
	if start < 0 {
		start = 0
	}

	got := end - start
	if got < cfg.MinDuration || (cfg.MaxDuration > 0 && got > cfg.MaxDuration) {
		return c, false
	}
	c.Start, c.End = start, end
	c.Score = clamp(c.Score, 0, 10)
	return c, true
}

func overlapsAny(kept []types.Candidate, c types.Candidate) bool {
	for _, k := range kept {
		if k.Overlaps(c) {
			return true
		}
	}
	return false
}

func clampDuration(d, lo, hi time.Duration) time.Duration {
	if d < lo {
		return lo
	}
	if hi > 0 && d > hi {
		return hi
	}
	return d
}
