package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/forPelevin/clipforge/internal/ports"
	"github.com/forPelevin/clipforge/internal/types"
)

// Sources acquires and probes job inputs. Captions and ASR are optional.
type Sources struct {
	Downloader ports.Downloader
	Captions   ports.CaptionSource
	ASR        ports.ASR
	Video      ports.VideoTool
	Log        logrus.FieldLogger
}

func IsRemote(input string) bool {
	l := strings.ToLower(strings.TrimSpace(input))
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

// Fetch downloads a remote input into dir. A local path is used in place.
func (s *Sources) Fetch(ctx context.Context, input, dir string) (string, error) {
	if !IsRemote(input) {
		fi, err := os.Stat(input)
		if err != nil {
			return "", &types.DownloadError{URL: input, Err: err}
		}
		if fi.IsDir() {
			return "", &types.DownloadError{URL: input, Err: fmt.Errorf("is a directory")}
		}
		return input, nil
	}
	if s.Downloader == nil {
		return "", &types.DownloadError{URL: input, Err: fmt.Errorf("no downloader configured")}
	}
	return s.Downloader.Download(ctx, input, dir)
}

// Inspect probes path and attaches a transcript when one can be found.
// Transcript failures only degrade selection.
func (s *Sources) Inspect(ctx context.Context, path, input, cacheDir string) (types.SourceVideo, error) {
	src, err := s.Video.Probe(ctx, path)
	if err != nil {
		return types.SourceVideo{}, err
	}
	src.URL = input
	if src.Title == "" {
		src.Title = Stem(path)
	}
	src.Transcript = s.transcript(ctx, src, input, cacheDir)
	return src, nil
}

func (s *Sources) transcript(ctx context.Context, src types.SourceVideo, input, cacheDir string) *types.Transcript {
	log := s.logger().WithField("input", input)
	if s.Captions != nil && IsRemote(input) {
		tr, err := s.Captions.Captions(ctx, input, cacheDir)
		switch {
		case err != nil:
			log.WithError(err).Warn("platform captions unavailable")
		case !tr.Empty():
			log.WithField("segments", len(tr.Segments)).Info("using platform captions")
			return tr
		}
	}
	if s.ASR == nil || !src.HasAudio {
		return nil
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		log.WithError(err).Warn("transcription skipped")
		return nil
	}
	wav := filepath.Join(cacheDir, "audio.wav")
	if err := s.Video.ExtractAudioMono16k(ctx, src.Path, wav); err != nil {
		log.WithError(err).Warn("transcription skipped")
		return nil
	}
	defer os.Remove(wav)
	tr, err := s.ASR.Transcribe(ctx, wav, cacheDir)
	if err != nil {
		log.WithError(err).Warn("transcription failed")
		return nil
	}
	if tr.Empty() {
		return nil
	}
	log.WithField("segments", len(tr.Segments)).Info("using local transcription")
	return &tr
}

func (s *Sources) logger() logrus.FieldLogger {
	if s.Log == nil {
		return logrus.StandardLogger()
	}
	return s.Log
}
