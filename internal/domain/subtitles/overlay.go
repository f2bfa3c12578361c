package subtitles

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/forPelevin/clipforge/internal/types"
)

const DefaultFontSize = 48

var namedColors = map[string]string{
	"white":   "FFFFFF",
	"black":   "000000",
	"red":     "FF0000",
	"green":   "00FF00",
	"blue":    "0000FF",
	"yellow":  "FFFF00",
	"cyan":    "00FFFF",
	"magenta": "FF00FF",
	"orange":  "FFA500",
}

// Overlay renders a fixed text event for a clip of length clipLen. Times are
// in output (post-speed) clip time.
func Overlay(o types.TextOverlay, clipLen time.Duration, w, h int) (string, error) {
	text := sanitizeASS(o.Text)
	if text == "" {
		return "", types.Invalid("text_overlay.text", "must not be empty")
	}
	align, err := alignment(o.Position)
	if err != nil {
		return "", err
	}
	colour, err := ASSColor(o.Color)
	if err != nil {
		return "", err
	}
	size := o.FontSize
	if size <= 0 {
		size = DefaultFontSize
	}
	if o.Start < 0 || o.Start >= clipLen {
		return "", types.Invalid("text_overlay.start_time", "%s is outside the %s clip", o.Start, clipLen)
	}
	end := clipLen
	if o.Duration > 0 && o.Start+o.Duration < clipLen {
		end = o.Start + o.Duration
	}

	style := fmt.Sprintf("Style: Overlay,Inter,%d,%s,&H000000FF,&H00000000,&H64000000,1,0,0,0,100,100,0,0,1,3,1,%d,%d,%d,%d,1",
		size, colour, align, w/20, w/20, h/12)
	var b strings.Builder
	b.WriteString(header(w, h, style))
	dialogue(&b, "Overlay", o.Start, end, text)
	return b.String(), nil
}

// alignment maps a position to an ASS numpad alignment, horizontally centered.
func alignment(p types.Position) (int, error) {
	switch p {
	case types.PositionTop:
		return 8, nil
	case types.PositionCenter:
		return 5, nil
	case types.PositionBottom, "":
		return 2, nil
	default:
		return 0, types.Invalid("text_overlay.position", "unknown position %q", p)
	}
}

// ASSColor converts "#RRGGBB", "RRGGBB" or a basic color name into the
// &H00BBGGRR form. Empty means white.
func ASSColor(c string) (string, error) {
	c = strings.ToLower(strings.TrimSpace(c))
	if c == "" {
		c = "white"
	}
	hex, ok := namedColors[c]
	if !ok {
		hex = strings.TrimPrefix(c, "#")
	}
	if len(hex) != 6 {
		return "", types.Invalid("text_overlay.color", "unsupported color %q", c)
	}
	if _, err := strconv.ParseUint(hex, 16, 32); err != nil {
		return "", types.Invalid("text_overlay.color", "unsupported color %q", c)
	}
	hex = strings.ToUpper(hex)
	return "&H00" + hex[4:6] + hex[2:4] + hex[0:2], nil
}
