package config

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/forPelevin/clipforge/internal/domain/highlights"
	"github.com/forPelevin/clipforge/internal/ports/adapters/openrouter"
	"github.com/forPelevin/clipforge/internal/types"
)

const EnvPrefix = "CLIPFORGE"

type Config struct {
	Clip        ClipConfig              `mapstructure:"clip"`
	Formats     map[string]FormatConfig `mapstructure:"formats"`
	AI          AIConfig                `mapstructure:"ai"`
	Cache       CacheConfig             `mapstructure:"cache"`
	Captions    CaptionsConfig          `mapstructure:"captions"`
	Paths       PathsConfig             `mapstructure:"paths"`
	Tools       ToolsConfig             `mapstructure:"tools"`
	Workers     int                     `mapstructure:"workers"`
	Catalog     CatalogConfig           `mapstructure:"catalog"`
	ObjectStore ObjectStoreConfig       `mapstructure:"object_store"`
	Server      ServerConfig            `mapstructure:"server"`
	Log         LogConfig               `mapstructure:"log"`
}

// ClipConfig bounds selection. Durations are seconds.
type ClipConfig struct {
	MinDuration       float64 `mapstructure:"min_duration"`
	MaxDuration       float64 `mapstructure:"max_duration"`
	PreferredDuration float64 `mapstructure:"preferred_duration"`
	BufferSeconds     float64 `mapstructure:"buffer_seconds"`
	MaxClipsPerVideo  int     `mapstructure:"max_clips_per_video"`
}

type FormatConfig struct {
	Width       int     `mapstructure:"width"`
	Height      int     `mapstructure:"height"`
	DurationMax float64 `mapstructure:"duration_max"`
	FPS         int     `mapstructure:"fps"`
}

type AIConfig struct {
	APIKey           string        `mapstructure:"api_key"`
	Model            string        `mapstructure:"model"`
	Temperature      float64       `mapstructure:"temperature"`
	BaseURL          string        `mapstructure:"base_url"`
	AllowedHosts     []string      `mapstructure:"allowed_hosts"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MaxRetries       int           `mapstructure:"max_retries"`
	TranscriptBudget int           `mapstructure:"transcript_budget"`
}

type CacheConfig struct {
	Enabled    bool    `mapstructure:"enabled"`
	MaxSizeGB  float64 `mapstructure:"max_size_gb"`
	MaxAgeDays float64 `mapstructure:"max_age_days"`
}

type CaptionsConfig struct {
	Burn bool `mapstructure:"burn"`
}

type PathsConfig struct {
	Output    string `mapstructure:"output"`
	Downloads string `mapstructure:"downloads"`
	Work      string `mapstructure:"work"`
	Edited    string `mapstructure:"edited"`
}

type ToolsConfig struct {
	FFmpeg       string `mapstructure:"ffmpeg"`
	FFprobe      string `mapstructure:"ffprobe"`
	YtDlp        string `mapstructure:"ytdlp"`
	WhisperBin   string `mapstructure:"whisper_bin"`
	WhisperModel string `mapstructure:"whisper_model"`
	Preset       string `mapstructure:"preset"`
	CRF          int    `mapstructure:"crf"`
}

type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

type ObjectStoreConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Prefix    string `mapstructure:"prefix"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("clip.min_duration", 15)
	v.SetDefault("clip.max_duration", 60)
	v.SetDefault("clip.preferred_duration", 30)
	v.SetDefault("clip.buffer_seconds", 2)
	v.SetDefault("clip.max_clips_per_video", 5)

	for _, name := range []string{"tiktok", "youtube_shorts"} {
		v.SetDefault("formats."+name+".width", 1080)
		v.SetDefault("formats."+name+".height", 1920)
		v.SetDefault("formats."+name+".duration_max", 60)
		v.SetDefault("formats."+name+".fps", 30)
	}

	v.SetDefault("ai.model", openrouter.DefaultModel)
	v.SetDefault("ai.temperature", 0.7)
	v.SetDefault("ai.base_url", "https://openrouter.ai")
	v.SetDefault("ai.allowed_hosts", []string{})
	v.SetDefault("ai.timeout", openrouter.DefaultTimeout)
	v.SetDefault("ai.max_retries", 2)
	v.SetDefault("ai.transcript_budget", highlights.DefaultTranscriptBudget)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.max_size_gb", 10)
	v.SetDefault("cache.max_age_days", 7)

	v.SetDefault("captions.burn", false)

	v.SetDefault("paths.output", "out")
	v.SetDefault("paths.downloads", ".cache/downloads")
	v.SetDefault("paths.work", ".cache/runs")
	v.SetDefault("paths.edited", "out/edited")

	v.SetDefault("tools.ffmpeg", "ffmpeg")
	v.SetDefault("tools.ffprobe", "ffprobe")
	v.SetDefault("tools.ytdlp", "yt-dlp")
	v.SetDefault("tools.whisper_bin", ".cache/bin/whisper.cpp")
	v.SetDefault("tools.whisper_model", "")
	v.SetDefault("tools.preset", "veryfast")
	v.SetDefault("tools.crf", 20)

	v.SetDefault("workers", 3)
	v.SetDefault("catalog.path", ".cache/clipforge.db")

	v.SetDefault("object_store.enabled", false)
	v.SetDefault("object_store.endpoint", "")
	v.SetDefault("object_store.access_key", "")
	v.SetDefault("object_store.secret_key", "")
	v.SetDefault("object_store.bucket", "clipforge")
	v.SetDefault("object_store.use_ssl", false)
	v.SetDefault("object_store.prefix", "clips")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Minute)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads defaults, then the config file, then CLIPFORGE_* env vars, then
// overrides. An empty path searches ./config.* and $HOME/.clipforge; a
// missing file is not an error in that case.
func Load(path string, overrides map[string]any) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	aliases := map[string][]string{
		"ai.api_key":       {"CLIPFORGE_AI_API_KEY", "OPENROUTER_API_KEY"},
		"ai.model":         {"CLIPFORGE_AI_MODEL", "OPENROUTER_MODEL"},
		"ai.base_url":      {"CLIPFORGE_AI_BASE_URL", "OPENROUTER_BASE_URL"},
		"ai.allowed_hosts": {"CLIPFORGE_AI_ALLOWED_HOSTS", "OPENROUTER_ALLOWED_HOSTS"},
	}
	for key, envs := range aliases {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.clipforge")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	for k, val := range overrides {
		v.Set(k, val)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	c.AI.AllowedHosts = splitHosts(c.AI.AllowedHosts)
	return &c, nil
}

// splitHosts accepts both list values and a single comma-separated env value.
func splitHosts(in []string) []string {
	var out []string
	for _, h := range in {
		for _, part := range strings.Split(h, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func (c *Config) Validate() error {
	cl := c.Clip
	switch {
	case cl.MinDuration <= 0:
		return types.Invalid("clip.min_duration", "must be > 0")
	case cl.MinDuration > cl.MaxDuration:
		return types.Invalid("clip.min_duration", "must be <= max_duration")
	case cl.PreferredDuration < cl.MinDuration || cl.PreferredDuration > cl.MaxDuration:
		return types.Invalid("clip.preferred_duration", "must be within [min_duration, max_duration]")
	case cl.BufferSeconds < 0:
		return types.Invalid("clip.buffer_seconds", "must be >= 0")
	case cl.MaxClipsPerVideo <= 0:
		return types.Invalid("clip.max_clips_per_video", "must be > 0")
	}
	if len(c.Formats) == 0 {
		return types.Invalid("formats", "at least one format is required")
	}
	for _, name := range c.FormatNames() {
		f := c.Formats[name]
		if f.Width <= 0 || f.Height <= 0 || f.FPS <= 0 || f.DurationMax <= 0 {
			return types.Invalid("formats."+name, "width, height, fps and duration_max must be > 0")
		}
	}
	if c.Workers <= 0 {
		return types.Invalid("workers", "must be > 0")
	}
	if c.AI.Temperature < 0 || c.AI.Temperature > 2 {
		return types.Invalid("ai.temperature", "must be within [0, 2]")
	}
	if c.Cache.MaxSizeGB < 0 || c.Cache.MaxAgeDays < 0 {
		return types.Invalid("cache", "limits must be >= 0")
	}
	if c.ObjectStore.Enabled && (c.ObjectStore.Endpoint == "" || c.ObjectStore.Bucket == "") {
		return types.Invalid("object_store", "endpoint and bucket are required when enabled")
	}
	if c.AI.APIKey != "" {
		if err := openrouter.ValidateBaseURL(c.AI.BaseURL, c.AI.AllowedHosts); err != nil {
			return types.Invalid("ai.base_url", "%v", err)
		}
	}
	return nil
}

func (c *Config) FormatNames() []string {
	names := make([]string, 0, len(c.Formats))
	for n := range c.Formats {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (c *Config) Profiles() map[string]types.FormatProfile {
	out := make(map[string]types.FormatProfile, len(c.Formats))
	for name, f := range c.Formats {
		out[name] = types.FormatProfile{
			Name:        name,
			Width:       f.Width,
			Height:      f.Height,
			FPS:         f.FPS,
			MaxDuration: seconds(f.DurationMax),
		}
	}
	return out
}

func (c *Config) Selection() highlights.Config {
	return highlights.Config{
		MinDuration:       seconds(c.Clip.MinDuration),
		MaxDuration:       seconds(c.Clip.MaxDuration),
		PreferredDuration: seconds(c.Clip.PreferredDuration),
		Buffer:            seconds(c.Clip.BufferSeconds),
		MaxClips:          c.Clip.MaxClipsPerVideo,
	}
}

func (c *CacheConfig) MaxAge() time.Duration {
	return time.Duration(c.MaxAgeDays * 24 * float64(time.Hour))
}

func (c *CacheConfig) MaxBytes() int64 {
	return int64(math.Round(c.MaxSizeGB * (1 << 30)))
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
