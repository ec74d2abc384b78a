package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"steinbockcal/internal/model"
)

// DefaultSourceURL is the published Steinbock maintenance sheet.
const DefaultSourceURL = "https://docs.google.com/spreadsheets/d/e/2PACX-1vRM5GLi6AJKszq5NmdvB4CG1t4NngoJzLigvQ81Q3IKWbwONE2t4bRGdQfBgFVT_KsCPkElmyL_Kkbv/pubhtml/sheet?headers=true&gid=442327001"

const (
	FetchModeHTTP    = "http"
	FetchModeBrowser = "browser"
)

// FetchConfig controls how the source document is retrieved.
type FetchConfig struct {
	// Mode is "http" (plain GET) or "browser" (headless Chromium).
	Mode string `yaml:"mode" json:"mode"`
	// Timeout bounds a single fetch, e.g. "15s".
	Timeout Duration `yaml:"timeout" json:"timeout"`
	// UserAgent is sent with plain HTTP fetches.
	UserAgent string `yaml:"user_agent" json:"user_agent"`
	// ChromePath overrides the Chromium binary used in browser mode.
	ChromePath string `yaml:"chrome_path,omitempty" json:"chrome_path,omitempty"`
}

// LogConfig controls log level and optional rotated file output.
type LogConfig struct {
	Level      string `yaml:"level" json:"level"`
	File       string `yaml:"file,omitempty" json:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address of the feed.
	Listen string `yaml:"listen" json:"listen"`

	// SourceURL is the published HTML view of the sheet.
	SourceURL string `yaml:"source_url" json:"source_url"`

	// EventStyle is "all_day" or "timed" (09:00-12:00 busy block).
	EventStyle model.EventStyle `yaml:"event_style" json:"event_style"`

	Fetch FetchConfig `yaml:"fetch" json:"fetch"`

	// CheckCron, if set, schedules a background build of the feed whose
	// outcome is only logged, e.g. "@every 1h" or "0 6 * * *".
	CheckCron string `yaml:"check_cron,omitempty" json:"check_cron,omitempty"`

	Log LogConfig `yaml:"log" json:"log"`
}

// Duration is a time.Duration that reads and writes as "15s" in YAML.
type Duration time.Duration

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	if s == "" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q: %w", node.Line, s, err)
	}
	*d = Duration(v)
	return nil
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:     "0.0.0.0:8000",
		SourceURL:  DefaultSourceURL,
		EventStyle: model.StyleAllDay,
		Fetch: FetchConfig{
			Mode:      FetchModeHTTP,
			Timeout:   Duration(15 * time.Second),
			UserAgent: "steinbockcal/1.0",
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// Normalize fills in missing/zero values with defaults so that partially
// filled configs still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.SourceURL == "" {
		c.SourceURL = def.SourceURL
	}
	if c.EventStyle == "" {
		c.EventStyle = def.EventStyle
	}
	if c.Fetch.Mode == "" {
		c.Fetch.Mode = def.Fetch.Mode
	}
	if c.Fetch.Timeout <= 0 {
		c.Fetch.Timeout = def.Fetch.Timeout
	}
	if c.Fetch.UserAgent == "" {
		c.Fetch.UserAgent = def.Fetch.UserAgent
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Log.MaxSizeMB <= 0 {
		c.Log.MaxSizeMB = def.Log.MaxSizeMB
	}
	if c.Log.MaxBackups < 0 {
		c.Log.MaxBackups = 0
	}
}

// Validate rejects values Normalize cannot repair.
func (c *Config) Validate() error {
	var errs []error
	if !c.EventStyle.Valid() {
		errs = append(errs, fmt.Errorf("event_style: unknown value %q (want %q or %q)", c.EventStyle, model.StyleAllDay, model.StyleTimed))
	}
	switch c.Fetch.Mode {
	case FetchModeHTTP, FetchModeBrowser:
	default:
		errs = append(errs, fmt.Errorf("fetch.mode: unknown value %q", c.Fetch.Mode))
	}
	if c.CheckCron != "" {
		if _, err := cron.ParseStandard(c.CheckCron); err != nil {
			errs = append(errs, fmt.Errorf("check_cron: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, write a default config with 0600 perms
//     and return it.
//   - Otherwise read the YAML, normalize defaults and validate.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600 perms,
// creating the parent directory if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".steinbockcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}
