package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/forPelevin/clipforge/internal/catalog"
	"github.com/forPelevin/clipforge/internal/types"
	"github.com/forPelevin/clipforge/internal/usecase"
)

const maxBodyBytes = 1 << 20

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, healthResponse{
			Status:        "ok",
			Version:       cfg.Version,
			UptimeSeconds: time.Since(cfg.StartTime).Seconds(),
		})
	}
}

func processHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req processRequest
		if err := decodeBody(w, r, &req); err != nil {
			writeError(w, err)
			return
		}
		input := strings.TrimSpace(req.URL)
		if input != "" && !usecase.IsRemote(input) {
			if err := checkLocal(cfg.MediaRoots, "url", input); err != nil {
				writeError(w, err)
				return
			}
		}
		id, err := cfg.Jobs.Submit(r.Context(), input, req.Formats)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, processResponse{JobID: id, Status: types.StateQueued})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := cfg.Jobs.Poll(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

func listJobsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, jobsResponse{Jobs: cfg.Jobs.List()})
	}
}

func editHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req editRequest
		if err := decodeBody(w, r, &req); err != nil {
			writeError(w, err)
			return
		}
		ctx := r.Context()
		input, format, title := req.VideoPath, req.Format, req.Title
		switch {
		case req.ClipID != nil:
			clip, err := lookupClip(ctx, cfg, *req.ClipID)
			if err != nil {
				writeError(w, err)
				return
			}
			input = clip.Path
			if format == "" {
				format = clip.Format
			}
			if title == "" {
				title = clip.Title
			}
		case input == "":
			writeError(w, types.Invalid("video_path", "video_path or clip_id is required"))
			return
		default:
			if err := checkLocal(cfg.MediaRoots, "video_path", input); err != nil {
				writeError(w, err)
				return
			}
		}
		p, err := cfg.Jobs.Profile(orDefault(format, cfg.DefaultFormat))
		if err != nil {
			writeError(w, err)
			return
		}
		spec := req.spec()
		spec.Title = title
		asset, err := cfg.Editor.Edit(ctx, input, spec, p, cfg.EditedDir)
		if err != nil {
			cfg.Logger.WithError(err).WithField("input", input).Warn("edit failed")
			writeError(w, err)
			return
		}
		record(ctx, cfg, "edit", types.SourceVideo{Path: input, Title: title}, asset)
		writeJSON(w, http.StatusOK, asset)
	}
}

func compileHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req compileRequest
		if err := decodeBody(w, r, &req); err != nil {
			writeError(w, err)
			return
		}
		ctx := r.Context()
		if len(req.ClipIDs) < 2 {
			writeError(w, types.Invalid("clip_ids", "need at least 2 clips, got %d", len(req.ClipIDs)))
			return
		}
		assets := make([]types.OutputAsset, 0, len(req.ClipIDs))
		for _, id := range req.ClipIDs {
			clip, err := lookupClip(ctx, cfg, id)
			if err != nil {
				writeError(w, err)
				return
			}
			assets = append(assets, clip.Asset())
		}
		p, err := cfg.Jobs.Profile(orDefault(orDefault(req.Format, assets[0].Format), cfg.DefaultFormat))
		if err != nil {
			writeError(w, err)
			return
		}
		if err := os.MkdirAll(cfg.CompiledDir, 0o755); err != nil {
			writeError(w, err)
			return
		}
		spec := types.CompilationSpec{
			Transition:         types.Transition(orDefault(req.Transition, string(types.TransitionCut))),
			TransitionDuration: seconds(req.TransitionDuration),
			Title:              req.Title,
			Profile:            p,
		}
		out := filepath.Join(cfg.CompiledDir, usecase.CompilationFilename(req.Title))
		asset, err := cfg.Compiler.Compile(ctx, assets, spec, out)
		if err != nil {
			cfg.Logger.WithError(err).WithField("clips", len(assets)).Warn("compile failed")
			writeError(w, err)
			return
		}
		record(ctx, cfg, "compilation", types.SourceVideo{Title: asset.Title}, asset)
		writeJSON(w, http.StatusOK, asset)
	}
}

func listClipsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Library == nil {
			writeJSON(w, http.StatusOK, clipsResponse{Clips: []catalog.Clip{}})
			return
		}
		q := r.URL.Query()
		o := catalog.ListOptions{
			Search: q.Get("search"),
			Format: q.Get("format"),
			JobID:  q.Get("job_id"),
			Sort:   q.Get("sort"),
		}
		if s := q.Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 0 {
				writeError(w, types.Invalid("limit", "must be a non-negative integer"))
				return
			}
			o.Limit = n
		}
		clips, err := cfg.Library.ListClips(r.Context(), o)
		if err != nil {
			writeError(w, err)
			return
		}
		if clips == nil {
			clips = []catalog.Clip{}
		}
		writeJSON(w, http.StatusOK, clipsResponse{Clips: clips, Total: len(clips)})
	}
}

func getClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := clipID(r)
		if err != nil {
			writeError(w, err)
			return
		}
		clip, err := lookupClip(r.Context(), cfg, id)
		if err != nil {
			writeError(w, err)
			return
		}
		if err := cfg.Library.Increment(r.Context(), id, catalog.CounterViews); err != nil {
			cfg.Logger.WithError(err).WithField("clip_id", id).Warn("count view")
		}
		writeJSON(w, http.StatusOK, clip)
	}
}

func downloadClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := clipID(r)
		if err != nil {
			writeError(w, err)
			return
		}
		clip, err := lookupClip(r.Context(), cfg, id)
		if err != nil {
			writeError(w, err)
			return
		}
		if _, err := os.Stat(clip.Path); err != nil {
			writeError(w, fmt.Errorf("clip file %s: %w", clip.Filename, types.ErrNotFound))
			return
		}
		if err := cfg.Library.Increment(r.Context(), id, catalog.CounterDownloads); err != nil {
			cfg.Logger.WithError(err).WithField("clip_id", id).Warn("count download")
		}
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", clip.Filename))
		http.ServeFile(w, r, clip.Path)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return types.Invalid("", "invalid request body: %v", err)
	}
	return nil
}

func clipID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, types.Invalid("id", "must be a positive integer")
	}
	return id, nil
}

func lookupClip(ctx context.Context, cfg ServerConfig, id int64) (catalog.Clip, error) {
	if cfg.Library == nil {
		return catalog.Clip{}, fmt.Errorf("clip %d: %w", id, types.ErrNotFound)
	}
	return cfg.Library.GetClip(ctx, id)
}

// checkLocal rejects local paths outside the configured media roots.
// Symlinks are resolved on both sides before comparing.
func checkLocal(roots []string, field, p string) error {
	abs, err := filepath.Abs(p)
	if err != nil {
		return types.Invalid(field, "bad path")
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return types.Invalid(field, "path does not exist")
	}
	for _, root := range roots {
		rootAbs, err := filepath.Abs(root)
		if err != nil {
			continue
		}
		rootReal, err := filepath.EvalSymlinks(rootAbs)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(rootReal, resolved)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil
		}
	}
	return types.Invalid(field, "path is outside the media directories")
}

func record(ctx context.Context, cfg ServerConfig, jobID string, src types.SourceVideo, a types.OutputAsset) {
	if cfg.Sink == nil {
		return
	}
	if err := cfg.Sink.SaveClip(context.WithoutCancel(ctx), jobID, src, a); err != nil {
		cfg.Logger.WithError(err).WithFields(logrus.Fields{"file": a.Filename}).Warn("catalog save failed")
	}
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
