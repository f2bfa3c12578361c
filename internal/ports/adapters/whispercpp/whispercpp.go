package whispercpp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/forPelevin/clipforge/internal/types"
)

// Adapter transcribes 16 kHz mono WAV files with the whisper.cpp CLI.
type Adapter struct {
	bin   string
	model string
}

func New(binPath, modelPath string) *Adapter {
	if binPath == "" {
		binPath = "whisper-cli"
	}
	return &Adapter{bin: binPath, model: modelPath}
}

func (a *Adapter) Transcribe(ctx context.Context, wavPath, cacheDir string) (types.Transcript, error) {
	if a.model == "" {
		return types.Transcript{}, fmt.Errorf("whisper.cpp: no model configured")
	}
	outPrefix := filepath.Join(cacheDir, "whisper")
	cmd := exec.CommandContext(ctx, a.bin,
		"-m", a.model,
		"-f", wavPath,
		"-oj",
		"-of", outPrefix,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return types.Transcript{}, fmt.Errorf("whisper.cpp failed: %w\n%s", err, string(b))
	}

	jb, err := os.ReadFile(outPrefix + ".json")
	if err != nil {
		return types.Transcript{}, err
	}
	return ParseOutput(jb)
}

type output struct {
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

// ParseOutput reads the -oj JSON file. Offsets are milliseconds.
func ParseOutput(b []byte) (types.Transcript, error) {
	var out output
	if err := json.Unmarshal(b, &out); err != nil {
		return types.Transcript{}, fmt.Errorf("decode whisper.cpp output: %w", err)
	}
	tr := types.Transcript{Segments: make([]types.Segment, 0, len(out.Transcription))}
	for _, s := range out.Transcription {
		text := strings.TrimSpace(s.Text)
		if text == "" || s.Offsets.To <= s.Offsets.From {
			continue
		}
		tr.Segments = append(tr.Segments, types.Segment{
			Start: float64(s.Offsets.From) / 1000,
			End:   float64(s.Offsets.To) / 1000,
			Text:  text,
		})
	}
	return tr, nil
}
