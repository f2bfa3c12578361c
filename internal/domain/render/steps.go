package render

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/forPelevin/clipforge/internal/types"
)

// Clip is the value threaded through the transform steps. Each step appends
// to the filter chains and updates the output geometry and duration.
type Clip struct {
	Input    string
	Start    time.Duration
	End      time.Duration
	SrcW     int
	SrcH     int
	HasAudio bool

	Width    int
	Height   int
	FPS      int
	Duration time.Duration

	Video []string
	Audio []string
}

// Step is one stage of the clip pipeline.
type Step struct {
	Stage string
	Apply func(Clip) (Clip, error)
}

// Build runs steps in order and returns the encoder plan. A failing step is
// reported as a RenderError for that stage.
func Build(src types.SourceVideo, c types.Candidate, output string, steps ...Step) (ClipPlan, Clip, error) {
	clip := Clip{
		Input:    src.Path,
		Start:    c.Start,
		End:      c.End,
		SrcW:     src.Width,
		SrcH:     src.Height,
		HasAudio: src.HasAudio,
		Width:    src.Width,
		Height:   src.Height,
		Duration: c.End - c.Start,
	}
	for _, st := range steps {
		next, err := st.Apply(clip)
		if err != nil {
			return ClipPlan{}, clip, &types.RenderError{Stage: st.Stage, Candidate: c.ID(), Err: err}
		}
		clip = next
	}
	return ClipPlan{
		Input:       clip.Input,
		Output:      output,
		Start:       clip.Start,
		End:         clip.End,
		FPS:         clip.FPS,
		HasAudio:    clip.HasAudio,
		VideoFilter: strings.Join(clip.Video, ","),
		AudioFilter: strings.Join(clip.Audio, ","),
	}, clip, nil
}

// ClipPlan is everything the encoder needs for one clip.
type ClipPlan struct {
	Input       string
	Output      string
	Start       time.Duration
	End         time.Duration
	FPS         int
	HasAudio    bool
	VideoFilter string
	AudioFilter string
}

func Extract(fps int) Step {
	return Step{Stage: types.StageExtract, Apply: func(c Clip) (Clip, error) {
		if c.Input == "" {
			return c, fmt.Errorf("no input")
		}
		if c.Start < 0 || c.End <= c.Start {
			return c, fmt.Errorf("range %s-%s is empty", c.Start, c.End)
		}
		if fps <= 0 {
			return c, fmt.Errorf("frame rate %d is invalid", fps)
		}
		c.FPS = fps
		c.Duration = c.End - c.Start
		c.Video = append(c.Video, "fps="+strconv.Itoa(fps))
		return c, nil
	}}
}

func FitTo(p types.FormatProfile) Step {
	return Step{Stage: types.StageFit, Apply: func(c Clip) (Clip, error) {
		f, err := CenterFit(c.SrcW, c.SrcH, p.Width, p.Height)
		if err != nil {
			return c, err
		}
		c.Video = append(c.Video, f.Filters(c.SrcW, c.SrcH)...)
		c.Width, c.Height = p.Width, p.Height
		return c, nil
	}}
}

// Speed time-scales the clip. Audio goes through atempo, which keeps pitch
// where the encoder build supports it.
func Speed(mult float64) Step {
	return Step{Stage: types.StageSpeed, Apply: func(c Clip) (Clip, error) {
		if mult <= 0 {
			return c, fmt.Errorf("speed %v must be > 0", mult)
		}
		if mult == 1 {
			return c, nil
		}
		c.Video = append(c.Video, "setpts=PTS/"+ftoa(mult))
		if c.HasAudio {
			c.Audio = append(c.Audio, AtempoChain(mult)...)
		}
		c.Duration = time.Duration(float64(c.Duration) / mult)
		return c, nil
	}}
}

// AtempoChain splits a tempo factor into atempo stages within [0.5, 2.0].
func AtempoChain(mult float64) []string {
	var out []string
	for mult > 2.0 {
		out = append(out, "atempo=2.0")
		mult /= 2.0
	}
	for mult < 0.5 {
		out = append(out, "atempo=0.5")
		mult /= 0.5
	}
	return append(out, "atempo="+ftoa(mult))
}

// ColorFilters applies brightness, contrast and saturation as separate
// transforms in that order. A multiplier of 1 is the identity and is
// skipped; 0 is applied.
func ColorFilters(f types.Filters) Step {
	return Step{Stage: types.StageFilters, Apply: func(c Clip) (Clip, error) {
		if b := f.Brightness; b != 1 {
			v := ftoa(b)
			c.Video = append(c.Video, "colorchannelmixer=rr="+v+":gg="+v+":bb="+v)
		}
		if f.Contrast != 1 {
			c.Video = append(c.Video, "eq=contrast="+ftoa(f.Contrast))
		}
		if f.Saturation != 1 {
			c.Video = append(c.Video, "eq=saturation="+ftoa(f.Saturation))
		}
		return c, nil
	}}
}

// BurnASS composites an ASS subtitle file above the video.
func BurnASS(stage, path string) Step {
	return Step{Stage: stage, Apply: func(c Clip) (Clip, error) {
		if path == "" {
			return c, fmt.Errorf("subtitle path is empty")
		}
		c.Video = append(c.Video, "subtitles="+EscapeFilterPath(path))
		return c, nil
	}}
}

func EscapeFilterPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "\\\\")
	p = strings.ReplaceAll(p, ":", "\\:")
	p = strings.ReplaceAll(p, "'", "\\'")
	return p
}

func ftoa(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
