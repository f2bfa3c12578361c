package cli

import (
	"context"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/forPelevin/clipforge/internal/api"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  serve,
	}
	cmd.Flags().String("addr", ":8080", "Listen address")
	cmd.Flags().Int("workers", 3, "Concurrent renders across all jobs")
	cmd.Flags().Bool("burn-captions", false, "Burn transcript captions into clips")
	return cmd
}

func serve(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, log, err := buildApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	cfg := app.Config
	srvCfg := api.ServerConfig{
		Addr:          cfg.Server.Addr,
		ReadTimeout:   cfg.Server.ReadTimeout,
		WriteTimeout:  cfg.Server.WriteTimeout,
		Jobs:          app.Jobs,
		Editor:        app.Editor,
		Compiler:      app.Compiler,
		Sink:          app.Sink(),
		DefaultFormat: cfg.FormatNames()[0],
		EditedDir:     cfg.Paths.Edited,
		CompiledDir:   filepath.Join(cfg.Paths.Output, "compilations"),
		MediaRoots:    []string{cfg.Paths.Output, cfg.Paths.Downloads},
		Logger:        log,
		StartTime:     time.Now(),
		Version:       Version,
	}
	if app.Catalog != nil {
		srvCfg.Library = app.Catalog
	}
	srv := api.NewServer(srvCfg)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
