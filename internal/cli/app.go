package cli

import (
	"context"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/forPelevin/clipforge/internal/config"
	"github.com/forPelevin/clipforge/internal/logging"
	"github.com/forPelevin/clipforge/internal/pipeline"
	"github.com/forPelevin/clipforge/internal/usecase"
)

// flagKeys maps command flags onto config keys. Only flags the user set
// override the config file and environment.
var flagKeys = map[string]string{
	"log-level":     "log.level",
	"log-format":    "log.format",
	"out":           "paths.output",
	"clips":         "clip.max_clips_per_video",
	"workers":       "workers",
	"burn-captions": "captions.burn",
	"addr":          "server.addr",
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	overrides := map[string]any{}
	for name, key := range flagKeys {
		f := cmd.Flags().Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		switch name {
		case "clips", "workers":
			v, err := cmd.Flags().GetInt(name)
			if err != nil {
				return nil, err
			}
			overrides[key] = v
		case "burn-captions":
			v, err := cmd.Flags().GetBool(name)
			if err != nil {
				return nil, err
			}
			overrides[key] = v
		default:
			overrides[key] = f.Value.String()
		}
	}
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path, overrides)
}

func newLogger(cmd *cobra.Command, cfg *config.Config) *logrus.Logger {
	return logging.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
}

func buildApp(ctx context.Context, cmd *cobra.Command) (*pipeline.App, *logrus.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	log := newLogger(cmd, cfg)
	if cfg.AI.APIKey != "" {
		log.WithFields(logrus.Fields{"model": cfg.AI.Model, "key": logging.MaskSecret(cfg.AI.APIKey)}).Debug("AI selection enabled")
	}
	app, err := pipeline.Build(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return app, log, nil
}

// absInput resolves local inputs; URLs pass through.
func absInput(p string) (string, error) {
	if usecase.IsRemote(p) {
		return p, nil
	}
	return filepath.Abs(p)
}
