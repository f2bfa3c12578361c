package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/forPelevin/clipforge/internal/catalog"
	"github.com/forPelevin/clipforge/internal/ports"
	"github.com/forPelevin/clipforge/internal/types"
)

type JobService interface {
	Submit(ctx context.Context, input string, formats []string) (string, error)
	Poll(id string) (types.JobStatus, error)
	List() []types.JobStatus
	Profile(name string) (types.FormatProfile, error)
}

type EditService interface {
	Edit(ctx context.Context, input string, spec types.EditSpec, p types.FormatProfile, outDir string) (types.OutputAsset, error)
}

type CompileService interface {
	Compile(ctx context.Context, assets []types.OutputAsset, spec types.CompilationSpec, out string) (types.OutputAsset, error)
}

type Library interface {
	GetClip(ctx context.Context, id int64) (catalog.Clip, error)
	ListClips(ctx context.Context, o catalog.ListOptions) ([]catalog.Clip, error)
	Increment(ctx context.Context, id int64, counter catalog.Counter) error
}

type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	Jobs     JobService
	Editor   EditService
	Compiler CompileService
	// Library and Sink are optional; without a library, clip_id references
	// and library routes return 404.
	Library Library
	Sink    ports.AssetSink

	DefaultFormat string
	EditedDir     string
	CompiledDir   string
	// MediaRoots limits which local paths requests may reference. Empty
	// rejects every local path.
	MediaRoots []string

	Logger    logrus.FieldLogger
	StartTime time.Time
	Version   string
}

type Server struct {
	httpServer *http.Server
	log        logrus.FieldLogger
}

func NewServer(cfg ServerConfig) *Server {
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Addr,
			Handler:      NewRouter(cfg),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  60 * time.Second,
		},
		log: cfg.Logger.WithField("component", "http"),
	}
}

func (s *Server) Start() error {
	s.log.WithField("addr", s.httpServer.Addr).Info("starting HTTP server")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
