package api

import (
	"time"

	"github.com/forPelevin/clipforge/internal/catalog"
	"github.com/forPelevin/clipforge/internal/types"
)

type errorResponse struct {
	Error string          `json:"error"`
	Kind  types.ErrorKind `json:"kind"`
}

type healthResponse struct {
	Status        string  `json:"status"`
	Version       string  `json:"version,omitempty"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

type processRequest struct {
	URL     string   `json:"url"`
	Formats []string `json:"formats"`
}

type processResponse struct {
	JobID  string         `json:"job_id"`
	Status types.JobState `json:"status"`
}

type jobsResponse struct {
	Jobs []types.JobStatus `json:"jobs"`
}

type overlayRequest struct {
	Text      string  `json:"text"`
	Position  string  `json:"position"`
	FontSize  int     `json:"font_size"`
	Color     string  `json:"color"`
	StartTime float64 `json:"start_time"`
	Duration  float64 `json:"duration"`
}

// filtersRequest keeps omitted multipliers at the identity.
type filtersRequest struct {
	Brightness *float64 `json:"brightness"`
	Contrast   *float64 `json:"contrast"`
	Saturation *float64 `json:"saturation"`
}

func (r *filtersRequest) filters() *types.Filters {
	if r == nil {
		return nil
	}
	return &types.Filters{
		Brightness: multiplier(r.Brightness),
		Contrast:   multiplier(r.Contrast),
		Saturation: multiplier(r.Saturation),
	}
}

func multiplier(v *float64) float64 {
	if v == nil {
		return 1
	}
	return *v
}

type editRequest struct {
	VideoPath   string          `json:"video_path"`
	ClipID      *int64          `json:"clip_id"`
	TrimStart   *float64        `json:"trim_start"`
	TrimEnd     *float64        `json:"trim_end"`
	Speed       *float64        `json:"speed"`
	Filters     *filtersRequest `json:"filters"`
	TextOverlay *overlayRequest `json:"text_overlay"`
	Format      string          `json:"format"`
	Title       string          `json:"title"`
}

func (r editRequest) spec() types.EditSpec {
	s := types.EditSpec{
		TrimStart: secondsPtr(r.TrimStart),
		TrimEnd:   secondsPtr(r.TrimEnd),
		Speed:     r.Speed,
		Filters:   r.Filters.filters(),
		Title:     r.Title,
	}
	if o := r.TextOverlay; o != nil {
		s.Overlay = &types.TextOverlay{
			Text:     o.Text,
			Position: types.Position(o.Position),
			FontSize: o.FontSize,
			Color:    o.Color,
			Start:    seconds(o.StartTime),
			Duration: seconds(o.Duration),
		}
	}
	return s
}

type compileRequest struct {
	ClipIDs            []int64 `json:"clip_ids"`
	Transition         string  `json:"transition"`
	TransitionDuration float64 `json:"transition_duration"`
	Title              string  `json:"title"`
	Format             string  `json:"format"`
}

type clipsResponse struct {
	Clips []catalog.Clip `json:"clips"`
	Total int            `json:"total"`
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

func secondsPtr(v *float64) *time.Duration {
	if v == nil {
		return nil
	}
	d := seconds(*v)
	return &d
}
