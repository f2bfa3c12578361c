package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/forPelevin/clipforge/internal/domain/render"
	"github.com/forPelevin/clipforge/internal/types"
)

type Options struct {
	FFmpegPath  string
	FFprobePath string
	Preset      string
	CRF         int
	AudioRate   string
}

type Adapter struct {
	ffmpeg  string
	ffprobe string
	preset  string
	crf     string
	abr     string
}

func New(o Options) *Adapter {
	a := &Adapter{ffmpeg: o.FFmpegPath, ffprobe: o.FFprobePath, preset: o.Preset, abr: o.AudioRate}
	if a.ffmpeg == "" {
		a.ffmpeg = "ffmpeg"
	}
	if a.ffprobe == "" {
		a.ffprobe = "ffprobe"
	}
	if a.preset == "" {
		a.preset = "veryfast"
	}
	if a.abr == "" {
		a.abr = "192k"
	}
	crf := o.CRF
	if crf <= 0 {
		crf = 20
	}
	a.crf = strconv.Itoa(crf)
	return a
}

func (a *Adapter) ExtractAudioMono16k(ctx context.Context, inMP4, outWav string) error {
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-i", inMP4,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-f", "wav",
		outWav,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg extract audio: %w\n%s", err, tail(b))
	}
	return nil
}

func (a *Adapter) RenderClip(ctx context.Context, p render.ClipPlan) error {
	args := []string{
		"-y",
		"-ss", fmtSeconds(p.Start),
		"-to", fmtSeconds(p.End),
		"-i", p.Input,
	}
	if p.VideoFilter != "" {
		args = append(args, "-vf", p.VideoFilter)
	}
	if !p.HasAudio {
		args = append(args, "-an")
	} else if p.AudioFilter != "" {
		args = append(args, "-af", p.AudioFilter)
	}
	if p.FPS > 0 {
		args = append(args, "-r", strconv.Itoa(p.FPS))
	}
	args = append(args, a.encodeArgs(p.HasAudio)...)
	args = append(args, p.Output)

	b, err := exec.CommandContext(ctx, a.ffmpeg, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg render clip: %w\n%s", err, tail(b))
	}
	return nil
}

func (a *Adapter) Compile(ctx context.Context, p render.CompilePlan) error {
	args := []string{"-y"}
	for _, in := range p.Inputs {
		args = append(args, "-i", in.Path)
	}
	args = append(args, "-filter_complex", p.Filter, "-map", p.VideoOut)
	if p.AudioOut != "" {
		args = append(args, "-map", p.AudioOut)
	}
	if p.FPS > 0 {
		args = append(args, "-r", strconv.Itoa(p.FPS))
	}
	args = append(args, a.encodeArgs(p.AudioOut != "")...)
	args = append(args, p.Output)

	b, err := exec.CommandContext(ctx, a.ffmpeg, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg compile: %w\n%s", err, tail(b))
	}
	return nil
}

func (a *Adapter) Thumbnail(ctx context.Context, inMP4 string, at time.Duration, outJPG string) error {
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-ss", fmtSeconds(at),
		"-i", inMP4,
		"-frames:v", "1",
		"-q:v", "3",
		outJPG,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg thumbnail: %w\n%s", err, tail(b))
	}
	return nil
}

// Probe reads container and stream metadata with ffprobe.
func (a *Adapter) Probe(ctx context.Context, path string) (types.SourceVideo, error) {
	if _, err := os.Stat(path); err != nil {
		return types.SourceVideo{}, &types.ProbeError{Path: path, Err: err}
	}
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		var stderr []byte
		if ee, ok := err.(*exec.ExitError); ok {
			stderr = ee.Stderr
		}
		return types.SourceVideo{}, &types.ProbeError{Path: path, Err: fmt.Errorf("ffprobe: %w\n%s", err, tail(stderr))}
	}
	v, err := ParseProbe(out)
	if err != nil {
		return types.SourceVideo{}, &types.ProbeError{Path: path, Err: err}
	}
	v.Path = path
	return v, nil
}

type probeOutput struct {
	Streams []struct {
		CodecType    string `json:"codec_type"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		RFrameRate   string `json:"r_frame_rate"`
		AvgFrameRate string `json:"avg_frame_rate"`
		Duration     string `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration string            `json:"duration"`
		Size     string            `json:"size"`
		Tags     map[string]string `json:"tags"`
	} `json:"format"`
}

// ParseProbe turns ffprobe JSON into a SourceVideo without a path.
func ParseProbe(b []byte) (types.SourceVideo, error) {
	var po probeOutput
	if err := json.Unmarshal(b, &po); err != nil {
		return types.SourceVideo{}, fmt.Errorf("decode ffprobe output: %w", err)
	}

	var v types.SourceVideo
	var videoDur float64
	found := false
	for _, s := range po.Streams {
		switch s.CodecType {
		case "video":
			if found {
				continue
			}
			found = true
			v.Width, v.Height = s.Width, s.Height
			v.FPS = parseRate(s.AvgFrameRate)
			if v.FPS == 0 {
				v.FPS = parseRate(s.RFrameRate)
			}
			videoDur, _ = strconv.ParseFloat(s.Duration, 64)
		case "audio":
			v.HasAudio = true
		}
	}
	if !found {
		return types.SourceVideo{}, fmt.Errorf("no video stream")
	}
	if v.Width <= 0 || v.Height <= 0 {
		return types.SourceVideo{}, fmt.Errorf("video stream has dimensions %dx%d", v.Width, v.Height)
	}

	sec, _ := strconv.ParseFloat(po.Format.Duration, 64)
	if sec <= 0 {
		sec = videoDur
	}
	if sec <= 0 {
		return types.SourceVideo{}, fmt.Errorf("media has no duration")
	}
	v.Duration = time.Duration(sec * float64(time.Second))
	v.Size, _ = strconv.ParseInt(po.Format.Size, 10, 64)
	v.Title = po.Format.Tags["title"]
	return v, nil
}

// parseRate parses "30000/1001" style rates.
func parseRate(r string) float64 {
	num, den, ok := strings.Cut(r, "/")
	if !ok {
		f, _ := strconv.ParseFloat(r, 64)
		return f
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}

func (a *Adapter) encodeArgs(audio bool) []string {
	args := []string{
		"-c:v", "libx264",
		"-preset", a.preset,
		"-crf", a.crf,
		"-pix_fmt", "yuv420p",
	}
	if audio {
		args = append(args, "-c:a", "aac", "-b:a", a.abr)
	}
	return append(args, "-movflags", "+faststart")
}

func fmtSeconds(d time.Duration) string {
	sec := float64(d) / float64(time.Second)
	return strconv.FormatFloat(sec, 'f', 3, 64)
}

// tail keeps the end of tool output, where ffmpeg prints the actual error.
func tail(b []byte) string {
	const limit = 2000
	s := strings.TrimSpace(string(b))
	if len(s) > limit {
		s = "..." + s[len(s)-limit:]
	}
	return s
}
