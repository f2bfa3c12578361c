package jobs

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"time"

	"github.com/forPelevin/clipforge/internal/usecase"
)

// RunDir is the per-job output directory: <root>/<slug>-<utc ts>-<6 hex>.
func RunDir(root, name string, now time.Time) string {
	slug := usecase.Slug(name)
	if slug == "" {
		slug = "input"
	}
	ts := now.UTC().Format("20060102-150405Z")
	seed := fmt.Sprintf("%s|%d", name, now.UTC().UnixNano())
	return filepath.Join(root, fmt.Sprintf("%s-%s-%s", slug, ts, hash(seed)[:6]))
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}
