package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/forPelevin/clipforge/internal/catalog"
	"github.com/forPelevin/clipforge/internal/config"
	"github.com/forPelevin/clipforge/internal/domain/highlights"
	"github.com/forPelevin/clipforge/internal/jobs"
	"github.com/forPelevin/clipforge/internal/ports"
	"github.com/forPelevin/clipforge/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/clipforge/internal/ports/adapters/objectstore"
	"github.com/forPelevin/clipforge/internal/ports/adapters/openrouter"
	"github.com/forPelevin/clipforge/internal/ports/adapters/whispercpp"
	"github.com/forPelevin/clipforge/internal/ports/adapters/ytdlp"
	"github.com/forPelevin/clipforge/internal/types"
	"github.com/forPelevin/clipforge/internal/usecase"
)

const manifestName = "manifest.json"

// App holds the wired collaborators shared by the CLI commands and the HTTP
// server.
type App struct {
	Config   *config.Config
	Jobs     *jobs.Manager
	Editor   *usecase.Editor
	Compiler *usecase.Compiler
	// Catalog is nil when catalog.path is empty.
	Catalog *catalog.Catalog
	Log     logrus.FieldLogger

	now func() time.Time
}

// Build validates cfg and wires every adapter. Optional collaborators (AI
// model, ASR, catalog, object store) are skipped when not configured.
func Build(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*App, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	video := ffmpeg.New(ffmpeg.Options{
		FFmpegPath:  cfg.Tools.FFmpeg,
		FFprobePath: cfg.Tools.FFprobe,
		Preset:      cfg.Tools.Preset,
		CRF:         cfg.Tools.CRF,
	})
	dl := ytdlp.New(ytdlp.Options{
		Bin: cfg.Tools.YtDlp,
		Cache: ytdlp.CacheOptions{
			Enabled: cfg.Cache.Enabled,
			MaxAge:  cfg.Cache.MaxAge(),
			MaxSize: cfg.Cache.MaxBytes(),
		},
		Log: log,
	})
	sources := &usecase.Sources{Downloader: dl, Captions: dl, Video: video, Log: log}
	if cfg.Tools.WhisperModel != "" {
		sources.ASR = whispercpp.New(cfg.Tools.WhisperBin, cfg.Tools.WhisperModel)
	} else {
		log.Info("whisper model not configured, transcripts come from captions only")
	}

	strategies := []highlights.Strategy{}
	if cfg.AI.APIKey != "" {
		model := openrouter.New(openrouter.Options{
			APIKey:      cfg.AI.APIKey,
			Model:       cfg.AI.Model,
			BaseURL:     cfg.AI.BaseURL,
			Temperature: cfg.AI.Temperature,
			Timeout:     cfg.AI.Timeout,
			MaxRetries:  cfg.AI.MaxRetries,
		})
		strategies = append(strategies, highlights.AI{Model: model, Budget: cfg.AI.TranscriptBudget})
	} else {
		log.Info("no AI key configured, using heuristic selection")
	}
	strategies = append(strategies, highlights.Heuristic{})

	app := &App{Config: cfg, Log: log, now: time.Now}
	deps := jobs.Deps{
		Source:   sources,
		Selector: highlights.NewSelector(log, strategies...),
		Renderer: usecase.NewRenderer(video, log, cfg.Captions.Burn),
		Log:      log,
	}

	if cfg.Catalog.Path != "" {
		cat, err := catalog.Open(cfg.Catalog.Path, log)
		if err != nil {
			return nil, err
		}
		app.Catalog = cat
		deps.Sinks = append(deps.Sinks, cat)
	}
	if cfg.ObjectStore.Enabled {
		oc := cfg.ObjectStore
		pub, err := objectstore.New(ctx, objectstore.Options{
			Endpoint:  oc.Endpoint,
			AccessKey: oc.AccessKey,
			SecretKey: oc.SecretKey,
			Bucket:    oc.Bucket,
			UseSSL:    oc.UseSSL,
			Prefix:    oc.Prefix,
			Log:       log,
		})
		if err != nil {
			app.Close()
			return nil, err
		}
		deps.Publisher = pub
	}

	app.Jobs = jobs.New(deps, jobs.Options{
		Profiles:    cfg.Profiles(),
		Selection:   cfg.Selection(),
		OutputDir:   cfg.Paths.Output,
		DownloadDir: cfg.Paths.Downloads,
		WorkDir:     cfg.Paths.Work,
		Workers:     cfg.Workers,
	})
	app.Editor = usecase.NewEditor(usecase.NewRenderer(video, log, false))
	app.Compiler = usecase.NewCompiler(video, log)
	return app, nil
}

// Close waits for running jobs and releases the catalog.
func (a *App) Close() error {
	var errs []error
	if a.Jobs != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		errs = append(errs, a.Jobs.Shutdown(ctx))
	}
	if a.Catalog != nil {
		errs = append(errs, a.Catalog.Close())
	}
	return errors.Join(errs...)
}

// Sink returns the catalog as an asset sink, or nil without one.
func (a *App) Sink() ports.AssetSink {
	if a.Catalog == nil {
		return nil
	}
	return a.Catalog
}

// Run processes one input synchronously and writes manifest.json into the
// run directory. The returned status is terminal; a failed job is also
// returned as an error.
func (a *App) Run(ctx context.Context, input string, formats []string) (types.JobStatus, string, error) {
	st, err := a.Jobs.Process(ctx, input, formats)
	if err != nil {
		return st, "", err
	}
	if st.State == types.StateFailed {
		return st, "", fmt.Errorf("job failed (%s): %s", st.ErrorKind, st.Error)
	}
	dir := runDirOf(st)
	if dir == "" {
		dir = jobs.RunDir(a.Config.Paths.Output, usecase.Stem(input), a.now().UTC())
	}
	path, err := WriteManifest(dir, BuildManifest(st))
	if err != nil {
		return st, "", err
	}
	a.Log.WithFields(logrus.Fields{"clips": len(st.Outputs), "manifest": path}).Info("manifest written")
	return st, path, nil
}

func runDirOf(st types.JobStatus) string {
	if len(st.Outputs) == 0 {
		return ""
	}
	return filepath.Dir(st.Outputs[0].Path)
}

// BuildManifest lists the clips of a finished job with paths relative to the
// run directory.
func BuildManifest(st types.JobStatus) types.Manifest {
	m := types.Manifest{
		Input:  st.URL,
		JobID:  st.ID,
		Status: st.State,
		Note:   st.Note,
		Clips:  make([]types.ManifestClip, 0, len(st.Outputs)),
	}
	for _, a := range st.Outputs {
		thumb := ""
		if a.ThumbnailPath != "" {
			thumb = filepath.Base(a.ThumbnailPath)
		}
		m.Clips = append(m.Clips, types.ManifestClip{
			ID:        usecase.Stem(a.Filename),
			Format:    a.Format,
			StartSec:  round3(a.SourceStart.Seconds()),
			EndSec:    round3(a.SourceEnd.Seconds()),
			Duration:  a.DurationSec,
			Score:     a.Score,
			File:      a.Filename,
			Thumbnail: thumb,
			Title:     a.Title,
			Reason:    a.Reason,
			FileSize:  a.FileSize,
		})
	}
	return m
}

func WriteManifest(dir string, m types.Manifest) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal manifest: %w", err)
	}
	path := filepath.Join(dir, manifestName)
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func round3(x float64) float64 {
	return float64(int64(x*1000+0.5)) / 1000
}

var (
	_ ports.VideoTool      = (*ffmpeg.Adapter)(nil)
	_ ports.ASR            = (*whispercpp.Adapter)(nil)
	_ ports.HighlightModel = (*openrouter.Adapter)(nil)
	_ ports.Downloader     = (*ytdlp.Adapter)(nil)
	_ ports.CaptionSource  = (*ytdlp.Adapter)(nil)
	_ ports.Publisher      = (*objectstore.Adapter)(nil)
	_ ports.AssetSink      = (*catalog.Catalog)(nil)
)
