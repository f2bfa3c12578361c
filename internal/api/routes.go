package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/forPelevin/clipforge/internal/types"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	if cfg.StartTime.IsZero() {
		cfg.StartTime = time.Now()
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(loggingMiddleware(cfg.Logger))
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler(cfg))
		r.Post("/process", processHandler(cfg))
		r.Get("/status/{id}", statusHandler(cfg))
		r.Get("/jobs", listJobsHandler(cfg))
		r.Post("/edit", editHandler(cfg))
		r.Post("/compile", compileHandler(cfg))
		r.Get("/library/clips", listClipsHandler(cfg))
		r.Get("/library/clips/{id}", getClipHandler(cfg))
		r.Get("/library/clips/{id}/download", downloadClipHandler(cfg))
	})
	return r
}

func loggingMiddleware(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.WithFields(logrus.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      ww.Status(),
				"duration_ms": time.Since(start).Milliseconds(),
				"request_id":  middleware.GetReqID(r.Context()),
			}).Info("http request")
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error) {
	kind := types.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case types.KindValidation:
		status = http.StatusBadRequest
	case types.KindNotFound:
		status = http.StatusNotFound
	}
	var re *types.RenderError
	if errors.As(err, &re) {
		// Keep encoder output out of responses.
		writeJSON(w, status, errorResponse{Error: "render failed at " + re.Stage, Kind: kind})
		return
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Kind: kind})
}
