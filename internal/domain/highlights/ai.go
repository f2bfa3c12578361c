package highlights

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/forPelevin/clipforge/internal/ports"
	"github.com/forPelevin/clipforge/internal/types"
)

// DefaultTranscriptBudget caps the transcript characters sent to the model.
const DefaultTranscriptBudget = 4000

const systemPrompt = "You are an expert video editor who identifies viral-worthy moments. Return only valid JSON."

// AI asks an external model for highlights based on the transcript.
type AI struct {
	Model  ports.HighlightModel
	Budget int
}

func (AI) Basis() types.Basis { return types.BasisAI }

func (a AI) Propose(ctx context.Context, src types.SourceVideo, cfg Config) ([]types.Candidate, error) {
	if a.Model == nil || src.Transcript.Empty() {
		return nil, ErrUnavailable
	}
	budget := a.Budget
	if budget <= 0 {
		budget = DefaultTranscriptBudget
	}
	text := PromptTranscript(src.Transcript, budget)
	if text == "" {
		return nil, ErrUnavailable
	}

	content, err := a.Model.Suggest(ctx, ports.HighlightRequest{
		System: systemPrompt,
		Prompt: buildPrompt(text, src.Duration, cfg),
	})
	if err != nil {
		return nil, fmt.Errorf("highlight model: %w", err)
	}
	return ParseSuggestions(content, src.Duration)
}

func buildPrompt(transcript string, total time.Duration, cfg Config) string {
	return fmt.Sprintf(
		"Analyze this video transcript and identify the most engaging, viral-worthy moments "+
			"for TikTok/YouTube Shorts: funny moments, shocking revelations, emotional peaks, "+
			"action-packed sequences, memorable quotes, cliffhangers, high energy.\n\n"+
			"Video duration: %.1f seconds.\n"+
			"Each clip must be %.0f-%.0f seconds long (ideally about %.0f). Return at most %d clips.\n"+
			"Return a JSON object {\"clips\": [...]} where each clip has: "+
			"start (seconds, number), end (seconds, number), title (catchy, string), "+
			"reason (why it is engaging, string), score (0-10 engagement, number). "+
			"No markdown, no code fences.\n\n"+
			"Transcript (timestamps in seconds):\n%s",
		total.Seconds(),
		cfg.MinDuration.Seconds(), cfg.MaxDuration.Seconds(), cfg.PreferredDuration.Seconds(),
		cfg.MaxClips,
		transcript,
	)
}

type suggestion struct {
	Start           *float64 `json:"start"`
	StartTime       *float64 `json:"start_time"`
	End             *float64 `json:"end"`
	EndTime         *float64 `json:"end_time"`
	Title           string   `json:"title"`
	Reason          string   `json:"reason"`
	Score           *float64 `json:"score"`
	EngagementScore *float64 `json:"engagement_score"`
}

// ParseSuggestions decodes model output item by item. Items with missing or
// out-of-range fields are dropped; only an unreadable payload is an error.
func ParseSuggestions(content string, total time.Duration) ([]types.Candidate, error) {
	items, err := suggestionItems(content)
	if err != nil {
		return nil, err
	}

	out := make([]types.Candidate, 0, len(items))
	for _, raw := range items {
		var s suggestion
		if err := json.Unmarshal(raw, &s); err != nil {
			continue
		}
		start, end, score := firstSet(s.Start, s.StartTime), firstSet(s.End, s.EndTime), firstSet(s.Score, s.EngagementScore)
		if start == nil || end == nil || score == nil {
			continue
		}
		if !finite(*start) || !finite(*end) || !finite(*score) {
			continue
		}
		st, en := dur(*start), dur(*end)
		if st < 0 || en <= st || en > total {
			continue
		}
		title := strings.TrimSpace(s.Title)
		if title == "" {
			title = "Highlight"
		}
		reason := strings.TrimSpace(s.Reason)
		if reason == "" {
			reason = "Engaging moment"
		}
		out = append(out, types.Candidate{
			Start:  st,
			End:    en,
			Score:  clamp(*score, 0, 10),
			Title:  title,
			Reason: reason,
			Basis:  types.BasisAI,
		})
	}
	return out, nil
}

func suggestionItems(content string) ([]json.RawMessage, error) {
	clean, err := extractJSON(content)
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(clean, "[") {
		var arr []json.RawMessage
		if err := json.Unmarshal([]byte(clean), &arr); err != nil {
			return nil, fmt.Errorf("decode suggestions: %w", err)
		}
		return arr, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(clean), &obj); err != nil {
		return nil, fmt.Errorf("decode suggestions: %w", err)
	}
	for _, key := range []string{"clips", "highlights", "candidates"} {
		if v, ok := obj[key]; ok {
			var arr []json.RawMessage
			if err := json.Unmarshal(v, &arr); err != nil {
				return nil, fmt.Errorf("decode %s: %w", key, err)
			}
			return arr, nil
		}
	}
	// A single bare clip object.
	return []json.RawMessage{json.RawMessage(clean)}, nil
}

// extractJSON strips code fences and returns the outermost JSON array or
// object found in s.
func extractJSON(s string) (string, error) {
	t := strings.TrimSpace(s)
	if t == "" {
		return "", errors.New("empty model content")
	}
	if strings.HasPrefix(t, "```") {
		if i := strings.Index(t, "\n"); i >= 0 {
			t = t[i+1:]
		}
		if j := strings.LastIndex(t, "```"); j >= 0 {
			t = t[:j]
		}
		t = strings.TrimSpace(t)
	}

	openCh, closeCh := byte('{'), byte('}')
	iArr, iObj := strings.IndexByte(t, '['), strings.IndexByte(t, '{')
	if iArr >= 0 && (iObj < 0 || iArr < iObj) {
		openCh, closeCh = '[', ']'
	}
	start := strings.IndexByte(t, openCh)
	end := strings.LastIndexByte(t, closeCh)
	if start >= 0 && end > start {
		return t[start : end+1], nil
	}
	return "", fmt.Errorf("no JSON found in model content: %q", truncateRunes(t, 200))
}

func firstSet(vals ...*float64) *float64 {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

func finite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }
