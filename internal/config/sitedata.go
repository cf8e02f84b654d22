package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"maps"
	"os"

	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// LoadSiteData reads the JSON data files in order and merges their top-level
// keys, later files overriding earlier ones. Files that do not exist are
// skipped; files that exist must contain a JSON object.
func LoadSiteData(paths []string) (map[string]any, error) {
	merged := make(map[string]any)
	for _, p := range paths {
		raw, err := os.ReadFile(p)
		if errors.Is(err, fs.ErrNotExist) {
			slog.Debug("Site data file not found; skipping", "path", p)
			continue
		}
		if err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryPages, "read site data").WithContext("path", p).Build()
		}
		var doc map[string]any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryPages, "parse site data").WithContext("path", p).Build()
		}
		maps.Copy(merged, doc)
	}
	return merged, nil
}

// SiteURL resolves the public site URL: sitemap.site_url first, then the
// "url" key of the merged site data.
func (c *Config) SiteURL() (string, error) {
	if c.Sitemap.SiteURL != "" {
		return c.Sitemap.SiteURL, nil
	}
	data, err := LoadSiteData(c.Pages.Data)
	if err != nil {
		return "", err
	}
	if u, ok := data["url"].(string); ok && u != "" {
		return u, nil
	}
	return "", ferrors.ConfigError("no site URL: set sitemap.site_url or a \"url\" key in the site data").Build()
}
