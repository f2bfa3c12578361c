package render

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/forPelevin/clipforge/internal/types"
)

// CompileInput is one previously rendered clip, probed.
type CompileInput struct {
	Path     string
	Duration time.Duration
	Width    int
	Height   int
	HasAudio bool
}

// CompilePlan is a single filter_complex invocation producing the compilation.
type CompilePlan struct {
	Inputs   []CompileInput
	Output   string
	Filter   string
	VideoOut string
	// AudioOut is empty when at least one input has no audio track.
	AudioOut string
	FPS      int
	// Duration is the expected output length.
	Duration time.Duration
}

// PlanCompile validates the inputs against spec and builds the filter graph.
// Inputs are concatenated in the order given.
func PlanCompile(inputs []CompileInput, spec types.CompilationSpec, output string) (CompilePlan, error) {
	if len(inputs) < 2 {
		return CompilePlan{}, types.Invalid("clips", "need at least 2 clips, got %d", len(inputs))
	}
	p := spec.Profile
	if p.Width <= 0 || p.Height <= 0 || p.FPS <= 0 {
		return CompilePlan{}, types.Invalid("format", "profile %q has invalid geometry", p.Name)
	}
	d := spec.TransitionDuration
	if d < 0 {
		return CompilePlan{}, types.Invalid("transition_duration", "must be >= 0")
	}

	shortest := inputs[0].Duration
	allAudio := true
	for i, in := range inputs {
		if in.Duration <= 0 {
			return CompilePlan{}, types.Invalid("clips", "clip %d has no duration", i+1)
		}
		if in.Duration < shortest {
			shortest = in.Duration
		}
		allAudio = allAudio && in.HasAudio
	}

	tr := spec.Transition
	if tr == "" {
		tr = types.TransitionCut
	}
	switch tr {
	case types.TransitionCut:
	case types.TransitionFade:
		if 2*d > shortest {
			return CompilePlan{}, types.Invalid("transition_duration", "fade of %s does not fit a %s clip", d, shortest)
		}
	case types.TransitionCrossfade:
		if d <= 0 {
			return CompilePlan{}, types.Invalid("transition_duration", "crossfade needs a positive duration")
		}
		if d >= shortest {
			return CompilePlan{}, types.Invalid("transition_duration", "crossfade of %s does not fit a %s clip", d, shortest)
		}
	default:
		return CompilePlan{}, types.Invalid("transition", "unknown transition %q", tr)
	}

	var b strings.Builder
	for i, in := range inputs {
		f, err := CenterFit(in.Width, in.Height, p.Width, p.Height)
		if err != nil {
			return CompilePlan{}, &types.RenderError{Stage: types.StageFit, Candidate: in.Path, Format: p.Name, Err: err}
		}
		chain := append([]string{"fps=" + strconv.Itoa(p.FPS)}, f.Filters(in.Width, in.Height)...)
		chain = append(chain, "format=yuv420p", "settb=AVTB")
		if tr == types.TransitionFade && d > 0 {
			chain = append(chain, fadePair("fade", in.Duration, d)...)
		}
		fmt.Fprintf(&b, "[%d:v]%s[v%d];", i, strings.Join(chain, ","), i)

		if allAudio {
			achain := []string{"aresample=48000", "aformat=sample_fmts=fltp:channel_layouts=stereo"}
			if tr == types.TransitionFade && d > 0 {
				achain = append(achain, fadePair("afade", in.Duration, d)...)
			}
			fmt.Fprintf(&b, "[%d:a]%s[a%d];", i, strings.Join(achain, ","), i)
		}
	}

	plan := CompilePlan{
		Inputs:   inputs,
		Output:   output,
		VideoOut: "[vout]",
		FPS:      p.FPS,
		Duration: ExpectedDuration(inputs, tr, d),
	}
	if allAudio {
		plan.AudioOut = "[aout]"
	}

	if tr == types.TransitionCrossfade {
		writeCrossfade(&b, inputs, d, allAudio)
	} else {
		for i := range inputs {
			fmt.Fprintf(&b, "[v%d]", i)
			if allAudio {
				fmt.Fprintf(&b, "[a%d]", i)
			}
		}
		a := 0
		if allAudio {
			a = 1
		}
		fmt.Fprintf(&b, "concat=n=%d:v=1:a=%d[vout]", len(inputs), a)
		if allAudio {
			b.WriteString("[aout]")
		}
	}
	plan.Filter = b.String()
	return plan, nil
}

// writeCrossfade chains xfade pairwise. Each offset is the running output
// length minus one transition.
func writeCrossfade(b *strings.Builder, inputs []CompileInput, d time.Duration, audio bool) {
	last := len(inputs) - 1
	merged := inputs[0].Duration
	prevV, prevA := "[v0]", "[a0]"
	for k := 1; k <= last; k++ {
		outV, outA := fmt.Sprintf("[vx%d]", k), fmt.Sprintf("[ax%d]", k)
		if k == last {
			outV, outA = "[vout]", "[aout]"
		}
		offset := merged - d
		fmt.Fprintf(b, "%s[v%d]xfade=transition=fade:duration=%s:offset=%s%s", prevV, k, secs(d), secs(offset), outV)
		if audio {
			fmt.Fprintf(b, ";%s[a%d]acrossfade=d=%s%s", prevA, k, secs(d), outA)
		}
		if k != last {
			b.WriteString(";")
		}
		merged += inputs[k].Duration - d
		prevV, prevA = outV, outA
	}
}

func fadePair(name string, clip, d time.Duration) []string {
	return []string{
		fmt.Sprintf("%s=t=in:st=0:d=%s", name, secs(d)),
		fmt.Sprintf("%s=t=out:st=%s:d=%s", name, secs(clip-d), secs(d)),
	}
}

// ExpectedDuration is the output length of a compilation. Only crossfade
// shortens the result.
func ExpectedDuration(inputs []CompileInput, tr types.Transition, d time.Duration) time.Duration {
	var total time.Duration
	for _, in := range inputs {
		total += in.Duration
	}
	if tr == types.TransitionCrossfade && len(inputs) > 1 {
		total -= time.Duration(len(inputs)-1) * d
	}
	return total
}

func secs(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}
