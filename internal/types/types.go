package types

import (
	"fmt"
	"time"
)

type Transcript struct {
	Segments []Segment `json:"segments"`
}

func (t *Transcript) Empty() bool {
	return t == nil || len(t.Segments) == 0
}

type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
	Words []Word  `json:"words,omitempty"`
}

type Word struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Word  string  `json:"word"`
}

// SourceVideo is a probed media file. It is never mutated after probing and is
// shared read-only by every render of the job that produced it.
type SourceVideo struct {
	Path       string
	Title      string
	URL        string
	Duration   time.Duration
	Width      int
	Height     int
	FPS        float64
	HasAudio   bool
	Size       int64
	Transcript *Transcript
}

// FormatProfile is a named output target.
type FormatProfile struct {
	Name        string
	Width       int
	Height      int
	MaxDuration time.Duration
	FPS         int
}

func (p FormatProfile) Aspect() float64 {
	if p.Height == 0 {
		return 0
	}
	return float64(p.Width) / float64(p.Height)
}

type Basis string

const (
	BasisAI        Basis = "ai"
	BasisHeuristic Basis = "heuristic"
)

type Candidate struct {
	Start  time.Duration
	End    time.Duration
	Score  float64
	Title  string
	Reason string
	Basis  Basis
}

func (c Candidate) Length() time.Duration { return c.End - c.Start }

// ID is the stable identity used in logs and render errors.
func (c Candidate) ID() string {
	return fmt.Sprintf("%.3f-%.3f", c.Start.Seconds(), c.End.Seconds())
}

func (c Candidate) Overlaps(o Candidate) bool {
	return c.Start < o.End && o.Start < c.End
}

type OutputAsset struct {
	Path          string        `json:"path"`
	Filename      string        `json:"filename"`
	ThumbnailPath string        `json:"thumbnail"`
	Format        string        `json:"format"`
	Duration      time.Duration `json:"-"`
	DurationSec   float64       `json:"duration"`
	Width         int           `json:"width"`
	Height        int           `json:"height"`
	FileSize      int64         `json:"file_size"`
	Score         float64       `json:"engagement_score"`
	Title         string        `json:"title"`
	Reason        string        `json:"reason"`
	SourceStart   time.Duration `json:"-"`
	SourceEnd     time.Duration `json:"-"`
}

type Position string

const (
	PositionTop    Position = "top"
	PositionCenter Position = "center"
	PositionBottom Position = "bottom"
)

type Filters struct {
	Brightness float64 `json:"brightness"`
	Contrast   float64 `json:"contrast"`
	Saturation float64 `json:"saturation"`
}

type TextOverlay struct {
	Text     string        `json:"text"`
	Position Position      `json:"position"`
	FontSize int           `json:"font_size"`
	Color    string        `json:"color"`
	Start    time.Duration `json:"-"`
	// Duration of zero means until the end of the clip.
	Duration time.Duration `json:"-"`
}

// EditSpec describes an optional post-hoc transform. Nil pointers mean the
// corresponding stage is skipped.
type EditSpec struct {
	TrimStart *time.Duration
	TrimEnd   *time.Duration
	Speed     *float64
	Filters   *Filters
	Overlay   *TextOverlay
	Title     string
}

type Transition string

const (
	TransitionCut       Transition = "cut"
	TransitionFade      Transition = "fade"
	TransitionCrossfade Transition = "crossfade"
)

type CompilationSpec struct {
	Transition         Transition
	TransitionDuration time.Duration
	Title              string
	Profile            FormatProfile
}

type JobState string

const (
	StateQueued      JobState = "queued"
	StateDownloading JobState = "downloading"
	StateProbing     JobState = "probing"
	StateSelecting   JobState = "selecting"
	StateRendering   JobState = "rendering"
	StateCompleted   JobState = "completed"
	StateFailed      JobState = "failed"
)

func (s JobState) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

type JobStatus struct {
	ID        string        `json:"job_id"`
	URL       string        `json:"url"`
	Formats   []string      `json:"formats"`
	State     JobState      `json:"status"`
	Progress  int           `json:"progress"`
	Message   string        `json:"message"`
	Note      string        `json:"note,omitempty"`
	Error     string        `json:"error,omitempty"`
	ErrorKind ErrorKind     `json:"error_kind,omitempty"`
	Outputs   []OutputAsset `json:"output_files"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

type Manifest struct {
	Input  string         `json:"input"`
	JobID  string         `json:"job_id"`
	Status JobState       `json:"status"`
	Note   string         `json:"note,omitempty"`
	Clips  []ManifestClip `json:"clips"`
}

type ManifestClip struct {
	ID        string  `json:"id"`
	Format    string  `json:"format"`
	StartSec  float64 `json:"start_sec"`
	EndSec    float64 `json:"end_sec"`
	Duration  float64 `json:"duration_sec"`
	Score     float64 `json:"engagement_score"`
	File      string  `json:"file"`
	Thumbnail string  `json:"thumbnail"`
	Title     string  `json:"title"`
	Reason    string  `json:"reason"`
	FileSize  int64   `json:"file_size"`
}
