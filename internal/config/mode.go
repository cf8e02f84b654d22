package config

import (
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/normalization"
)

// Mode selects between development and production output.
type Mode string

const (
	ModeDev  Mode = "dev"
	ModeProd Mode = "prod"
)

var modeNormalizer = normalization.NewNormalizer(map[string]Mode{
	"dev":         ModeDev,
	"development": ModeDev,
	"prod":        ModeProd,
	"production":  ModeProd,
}, ModeProd)

// ParseMode accepts dev/development and prod/production.
func ParseMode(raw string) (Mode, error) {
	return modeNormalizer.NormalizeWithError(raw)
}

// OutputDir returns the output directory for m.
func (c *Config) OutputDir(m Mode) string {
	if m == ModeDev {
		return c.Output.Dev
	}
	return c.Output.Prod
}

// LastModStrategy selects how sitemap <lastmod> values are derived.
type LastModStrategy string

const (
	LastModMtime LastModStrategy = "mtime"
	LastModGit   LastModStrategy = "git"
	LastModNone  LastModStrategy = "none"
)

var lastModNormalizer = normalization.NewNormalizer(map[string]LastModStrategy{
	"mtime": LastModMtime,
	"git":   LastModGit,
	"none":  LastModNone,
}, LastModMtime)

// changeFreqNormalizer accepts the sitemaps.org <changefreq> values.
var changeFreqNormalizer = normalization.NewNormalizer(map[string]string{
	"always":  "always",
	"hourly":  "hourly",
	"daily":   "daily",
	"weekly":  "weekly",
	"monthly": "monthly",
	"yearly":  "yearly",
	"never":   "never",
}, "")
