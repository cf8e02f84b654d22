package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// DefaultPath is the configuration file looked up when --config is not given.
const DefaultPath = "sitebuilder.yaml"

// Config is the complete sitebuilder configuration.
type Config struct {
	Paths   PathsConfig   `yaml:"paths"`
	Output  OutputConfig  `yaml:"output"`
	Styles  StylesConfig  `yaml:"styles"`
	Scripts ScriptsConfig `yaml:"scripts"`
	Pages   PagesConfig   `yaml:"pages"`
	Sitemap SitemapConfig `yaml:"sitemap"`
	Dev     DevConfig     `yaml:"dev"`
	History HistoryConfig `yaml:"history"`
	Notify  NotifyConfig  `yaml:"notify"`
	Logging LoggingConfig `yaml:"logging"`

	// Source is the file this config was read from; empty when defaults were used.
	Source string `yaml:"-"`
}

// PathsConfig locates the site sources.
type PathsConfig struct {
	Styles    string `yaml:"styles"`
	Pages     string `yaml:"pages"`
	Templates string `yaml:"templates"`
	Scripts   string `yaml:"scripts"`
	Data      string `yaml:"data"`
	Public    string `yaml:"public"`
}

// OutputConfig names the output directory per mode.
type OutputConfig struct {
	Dev  string `yaml:"dev"`
	Prod string `yaml:"prod"`
}

// StylesConfig configures SCSS compilation.
type StylesConfig struct {
	IncludePaths []string `yaml:"include_paths"`
	SassBinary   string   `yaml:"sass_binary,omitempty"`
	SourceMaps   bool     `yaml:"source_maps"`
}

// ScriptsConfig configures JavaScript bundling.
type ScriptsConfig struct {
	Entry      string `yaml:"entry"`
	Outfile    string `yaml:"outfile"`
	GlobalName string `yaml:"global_name"`
	Target     string `yaml:"target"`
}

// PagesConfig configures template rendering.
type PagesConfig struct {
	Extension string   `yaml:"extension"`
	Data      []string `yaml:"data"`
	Beautify  *bool    `yaml:"beautify,omitempty"`
}

// BeautifyEnabled reports whether rendered HTML is reformatted (default true).
func (p PagesConfig) BeautifyEnabled() bool {
	return p.Beautify == nil || *p.Beautify
}

// SitemapConfig configures sitemap.xml generation.
type SitemapConfig struct {
	SiteURL    string          `yaml:"site_url,omitempty"`
	LastMod    LastModStrategy `yaml:"lastmod"`
	ChangeFreq string          `yaml:"changefreq,omitempty"`
	Exclude    []string        `yaml:"exclude,omitempty"`
}

// DevConfig configures the development server and watcher.
type DevConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	LiveReload     *bool         `yaml:"live_reload,omitempty"`
	Debounce       time.Duration `yaml:"debounce"`
	ResyncInterval time.Duration `yaml:"resync_interval"`
	Metrics        bool          `yaml:"metrics"`
}

// LiveReloadEnabled reports whether the live reload script is served (default true).
func (d DevConfig) LiveReloadEnabled() bool {
	return d.LiveReload == nil || *d.LiveReload
}

// Addr is the listen address of the dev server.
func (d DevConfig) Addr() string {
	return fmt.Sprintf("%s:%d", d.Host, d.Port)
}

// HistoryConfig locates the build history database.
type HistoryConfig struct {
	Path     string `yaml:"path"`
	Disabled bool   `yaml:"disabled"`
}

// Enabled reports whether builds are recorded.
func (h HistoryConfig) Enabled() bool { return !h.Disabled && h.Path != "" }

// NotifyConfig configures build notifications. An empty URL disables them.
type NotifyConfig struct {
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject"`
}

// Load reads configuration from path. A missing file is not an error: the
// conventional project layout is assumed. .env files are loaded first and
// ${VAR} references in the file are expanded.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// defaults only
	case err != nil:
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "read configuration").
			WithContext("path", path).Fatal().Build()
	default:
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "parse configuration").
				WithContext("path", path).Fatal().Build()
		}
		cfg.Source = path
	}

	if err := ApplyDefaults(cfg); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	_ = ApplyDefaults(cfg)
	return cfg
}
