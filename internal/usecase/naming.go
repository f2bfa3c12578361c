package usecase

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

const maxSlugRunes = 48

// Slug lowercases s and collapses every run of non-alphanumerics into a dash.
func Slug(s string) string {
	var b strings.Builder
	prevDash := false
	n := 0
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if n >= maxSlugRunes {
			break
		}
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if prevDash {
				continue
			}
			b.WriteByte('-')
			prevDash = true
		}
		n++
	}
	return strings.Trim(b.String(), "-")
}

func Stem(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

func ClipFilename(sourceSlug string, n int, format string) string {
	if sourceSlug == "" {
		sourceSlug = "video"
	}
	return fmt.Sprintf("%s_clip%d_%s.mp4", sourceSlug, n, format)
}

func EditedFilename(input string) string {
	return fmt.Sprintf("edited_%s_%s.mp4", Stem(input), shortID())
}

func CompilationFilename(title string) string {
	s := Slug(title)
	if s == "" {
		s = "reel"
	}
	return fmt.Sprintf("compilation_%s_%s.mp4", s, shortID())
}

// ThumbnailPath is the still image written next to a video.
func ThumbnailPath(video string) string {
	return strings.TrimSuffix(video, filepath.Ext(video)) + ".jpg"
}

func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
