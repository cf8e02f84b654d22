package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// ScriptTargets lists the accepted scripts.target values.
var ScriptTargets = []string{"es2015", "es2016", "es2017", "es2018", "es2019", "es2020", "es2021", "es2022", "es2023", "es2024", "esnext"}

// Validate checks cfg after defaults have been applied. Enum fields are
// normalized in place.
func Validate(cfg *Config) error {
	v := &validator{cfg: cfg}
	for _, step := range []func() error{
		v.validateOutput,
		v.validatePages,
		v.validateScripts,
		v.validateSitemap,
		v.validateDev,
		v.validateLogging,
	} {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

type validator struct{ cfg *Config }

func invalid(field, msg string, value any) error {
	return ferrors.ConfigError(msg).WithContext("field", field).WithContext("value", value).Build()
}

// The output directory is deleted by the init task, so it must never be the
// project root or contain a source directory.
func (v *validator) validateOutput() error {
	sources := []string{v.cfg.Paths.Styles, v.cfg.Paths.Pages, v.cfg.Paths.Templates, v.cfg.Paths.Scripts, v.cfg.Paths.Data, v.cfg.Paths.Public}
	for field, out := range map[string]string{"output.dev": v.cfg.Output.Dev, "output.prod": v.cfg.Output.Prod} {
		clean := filepath.Clean(out)
		if clean == "." || clean == string(filepath.Separator) || clean == ".." {
			return invalid(field, "output directory must be a dedicated subdirectory", out)
		}
		for _, src := range sources {
			if isWithin(filepath.Clean(src), clean) {
				return invalid(field, "output directory must not contain a source directory", out)
			}
		}
		if isWithin(clean, filepath.Clean(v.cfg.Paths.Public)) {
			return invalid(field, "output directory must not live inside the public directory", out)
		}
	}
	return nil
}

func isWithin(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func (v *validator) validatePages() error {
	if !strings.HasPrefix(v.cfg.Pages.Extension, ".") {
		return invalid("pages.extension", "page extension must start with a dot", v.cfg.Pages.Extension)
	}
	return nil
}

func (v *validator) validateScripts() error {
	target := strings.ToLower(v.cfg.Scripts.Target)
	for _, t := range ScriptTargets {
		if t == target {
			v.cfg.Scripts.Target = target
			return nil
		}
	}
	return invalid("scripts.target", "unsupported script target", v.cfg.Scripts.Target)
}

func (v *validator) validateSitemap() error {
	lm, err := lastModNormalizer.NormalizeWithError(string(v.cfg.Sitemap.LastMod))
	if err != nil {
		return invalid("sitemap.lastmod", err.Error(), v.cfg.Sitemap.LastMod)
	}
	v.cfg.Sitemap.LastMod = lm
	freq, err := changeFreqNormalizer.NormalizeWithError(v.cfg.Sitemap.ChangeFreq)
	if err != nil {
		return invalid("sitemap.changefreq", err.Error(), v.cfg.Sitemap.ChangeFreq)
	}
	v.cfg.Sitemap.ChangeFreq = freq
	for _, pattern := range v.cfg.Sitemap.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return invalid("sitemap.exclude", "invalid glob pattern", pattern)
		}
	}
	return nil
}

func (v *validator) validateDev() error {
	d := v.cfg.Dev
	if d.Port < 1 || d.Port > 65535 {
		return invalid("dev.port", "port must be between 1 and 65535", d.Port)
	}
	if d.Debounce < 0 {
		return invalid("dev.debounce", "debounce must not be negative", d.Debounce)
	}
	if d.ResyncInterval != 0 && d.ResyncInterval < time.Second {
		return invalid("dev.resync_interval", "resync interval must be at least 1s", d.ResyncInterval)
	}
	return nil
}

func (v *validator) validateLogging() error {
	level, err := logLevelNormalizer.NormalizeWithError(string(v.cfg.Logging.Level))
	if err != nil {
		return invalid("logging.level", err.Error(), v.cfg.Logging.Level)
	}
	format, err := logFormatNormalizer.NormalizeWithError(string(v.cfg.Logging.Format))
	if err != nil {
		return invalid("logging.format", err.Error(), v.cfg.Logging.Format)
	}
	v.cfg.Logging.Level, v.cfg.Logging.Format = level, format
	return nil
}
