package ytdlp

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/forPelevin/clipforge/internal/types"
)

const DefaultFormat = "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best"

type CacheOptions struct {
	Enabled bool
	MaxAge  time.Duration
	MaxSize int64
}

type Options struct {
	Bin    string
	Format string
	Cache  CacheOptions
	Log    logrus.FieldLogger
}

// Adapter downloads sources and platform captions with the yt-dlp CLI.
type Adapter struct {
	bin    string
	format string
	cache  CacheOptions
	log    logrus.FieldLogger
	now    func() time.Time
}

func New(o Options) *Adapter {
	a := &Adapter{bin: o.Bin, format: o.Format, cache: o.Cache, log: o.Log, now: time.Now}
	if a.bin == "" {
		a.bin = "yt-dlp"
	}
	if a.format == "" {
		a.format = DefaultFormat
	}
	if a.log == nil {
		a.log = logrus.StandardLogger()
	}
	a.log = a.log.WithField("component", "ytdlp")
	return a
}

// Download fetches url into dir. With the cache enabled the file name is a
// hash of the URL and a fresh enough earlier download is reused.
func (a *Adapter) Download(ctx context.Context, url, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &types.DownloadError{URL: url, Err: err}
	}
	key := CacheKey(url)
	if a.cache.Enabled {
		if p, ok := a.cached(dir, key); ok {
			a.log.WithField("path", p).Info("download cache hit")
			return p, nil
		}
	}

	cmd := exec.CommandContext(ctx, a.bin,
		"--no-playlist",
		"--no-progress",
		"-f", a.format,
		"--merge-output-format", "mp4",
		"-o", filepath.Join(dir, key+".%(ext)s"),
		"--print", "after_move:filepath",
		url,
	)
	out, err := cmd.Output()
	if err != nil {
		var stderr []byte
		if ee, ok := err.(*exec.ExitError); ok {
			stderr = ee.Stderr
		}
		return "", &types.DownloadError{URL: url, Err: fmt.Errorf("yt-dlp: %w\n%s", err, lastLines(stderr, 5))}
	}
	path := lastLine(out)
	if path == "" {
		return "", &types.DownloadError{URL: url, Err: fmt.Errorf("yt-dlp printed no output path")}
	}
	if _, err := os.Stat(path); err != nil {
		return "", &types.DownloadError{URL: url, Err: err}
	}

	if a.cache.Enabled {
		removed, err := Prune(dir, a.cache.MaxAge, a.cache.MaxSize, a.now(), path)
		if err != nil {
			a.log.WithError(err).Warn("download cache prune failed")
		} else if removed > 0 {
			a.log.WithField("removed", removed).Info("download cache pruned")
		}
	}
	return path, nil
}

func (a *Adapter) cached(dir, key string) (string, bool) {
	matches, _ := filepath.Glob(filepath.Join(dir, key+".*"))
	for _, m := range matches {
		if strings.HasSuffix(m, ".part") || strings.HasSuffix(m, ".ytdl") {
			continue
		}
		fi, err := os.Stat(m)
		if err != nil || fi.IsDir() || fi.Size() == 0 {
			continue
		}
		if a.cache.MaxAge > 0 && a.now().Sub(fi.ModTime()) > a.cache.MaxAge {
			continue
		}
		return m, true
	}
	return "", false
}

// Captions fetches English platform captions. It returns nil when the video
// has none.
func (a *Adapter) Captions(ctx context.Context, url, cacheDir string) (*types.Transcript, error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, err
	}
	prefix := filepath.Join(cacheDir, "captions")
	cmd := exec.CommandContext(ctx, a.bin,
		"--no-playlist",
		"--skip-download",
		"--write-subs",
		"--write-auto-subs",
		"--sub-langs", "en.*,en",
		"--sub-format", "vtt",
		"-o", prefix+".%(ext)s",
		url,
	)
	if b, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("yt-dlp captions: %w\n%s", err, lastLines(b, 5))
	}

	files, _ := filepath.Glob(prefix + "*.vtt")
	if len(files) == 0 {
		return nil, nil
	}
	f, err := os.Open(files[0])
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tr, err := ParseVTT(f)
	if err != nil {
		return nil, err
	}
	if tr.Empty() {
		return nil, nil
	}
	return tr, nil
}

func CacheKey(url string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(url)))
	return hex.EncodeToString(sum[:])[:16]
}

func lastLine(b []byte) string {
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

func lastLines(b []byte, n int) string {
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
