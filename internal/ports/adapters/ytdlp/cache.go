package ytdlp

import (
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Prune removes files in dir older than maxAge, then removes the oldest
// remaining files until the total size is at most maxSize. keep is never
// removed. Zero limits are ignored.
func Prune(dir string, maxAge time.Duration, maxSize int64, now time.Time, keep string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}

	type file struct {
		path string
		size int64
		mod  time.Time
	}
	var (
		files   []file
		total   int64
		removed int
	)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		p := filepath.Join(dir, e.Name())
		if p != keep && maxAge > 0 && now.Sub(fi.ModTime()) > maxAge {
			if os.Remove(p) == nil {
				removed++
			}
			continue
		}
		files = append(files, file{path: p, size: fi.Size(), mod: fi.ModTime()})
		total += fi.Size()
	}

	if maxSize <= 0 || total <= maxSize {
		return removed, nil
	}
	sort.Slice(files, func(i, j int) bool { return files[i].mod.Before(files[j].mod) })
	for _, f := range files {
		if total <= maxSize {
			break
		}
		if f.path == keep {
			continue
		}
		if err := os.Remove(f.path); err != nil {
			return removed, err
		}
		total -= f.size
		removed++
	}
	return removed, nil
}
