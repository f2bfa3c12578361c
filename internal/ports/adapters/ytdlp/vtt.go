package ytdlp

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/forPelevin/clipforge/internal/types"
)

var (
	cueTimingRE = regexp.MustCompile(`^((?:\d+:)?\d{2}:\d{2}\.\d{3})\s+-->\s+((?:\d+:)?\d{2}:\d{2}\.\d{3})`)
	vttTagRE    = regexp.MustCompile(`<[^>]*>`)
)

// ParseVTT reads WebVTT captions into timed segments. Auto-generated captions
// repeat the previous line in every cue; repeated lines are dropped.
func ParseVTT(r io.Reader) (*types.Transcript, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	tr := &types.Transcript{}
	var (
		inCue      bool
		start, end float64
		lines      []string
		last       string
	)
	flush := func() {
		defer func() { inCue, lines = false, nil }()
		if !inCue {
			return
		}
		var fresh []string
		for _, ln := range lines {
			if ln == last {
				continue
			}
			fresh = append(fresh, ln)
			last = ln
		}
		if len(fresh) == 0 || end <= start {
			return
		}
		tr.Segments = append(tr.Segments, types.Segment{Start: start, End: end, Text: strings.Join(fresh, " ")})
	}

	for sc.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(sc.Text(), "\uFEFF"))
		if m := cueTimingRE.FindStringSubmatch(line); m != nil {
			flush()
			var err error
			if start, err = vttSeconds(m[1]); err != nil {
				return nil, err
			}
			if end, err = vttSeconds(m[2]); err != nil {
				return nil, err
			}
			inCue = true
			continue
		}
		if line == "" {
			flush()
			continue
		}
		if inCue {
			if text := cleanCueText(line); text != "" {
				lines = append(lines, text)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read vtt: %w", err)
	}
	flush()
	return tr, nil
}

func cleanCueText(s string) string {
	s = vttTagRE.ReplaceAllString(s, "")
	s = strings.NewReplacer("&amp;", "&", "&lt;", "<", "&gt;", ">", "&nbsp;", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// vttSeconds parses "hh:mm:ss.mmm" or "mm:ss.mmm".
func vttSeconds(ts string) (float64, error) {
	parts := strings.Split(ts, ":")
	var total float64
	for _, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return 0, fmt.Errorf("vtt timestamp %q: %w", ts, err)
		}
		total = total*60 + v
	}
	return total, nil
}
