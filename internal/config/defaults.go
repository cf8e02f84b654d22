package config

import "time"

// Default values for the conventional project layout.
const (
	DefaultStylesDir    = "src/styles"
	DefaultPagesDir     = "src/pages"
	DefaultTemplatesDir = "src/html"
	DefaultScriptsDir   = "src/scripts"
	DefaultDataDir      = "src/data"
	DefaultPublicDir    = "public"
	DefaultDevOutput    = "_dev"
	DefaultProdOutput   = "dist"
	DefaultDevPort      = 3000
	DefaultDebounce     = 300 * time.Millisecond
	DefaultHistoryPath  = ".sitebuilder/history.db"
	DefaultNotifySubj   = "sitebuilder.builds"
)

// ApplyDefaults fills unset fields in place.
func ApplyDefaults(cfg *Config) error {
	setDefault(&cfg.Paths.Styles, DefaultStylesDir)
	setDefault(&cfg.Paths.Pages, DefaultPagesDir)
	setDefault(&cfg.Paths.Templates, DefaultTemplatesDir)
	setDefault(&cfg.Paths.Scripts, DefaultScriptsDir)
	setDefault(&cfg.Paths.Data, DefaultDataDir)
	setDefault(&cfg.Paths.Public, DefaultPublicDir)

	setDefault(&cfg.Output.Dev, DefaultDevOutput)
	setDefault(&cfg.Output.Prod, DefaultProdOutput)

	if cfg.Styles.IncludePaths == nil {
		cfg.Styles.IncludePaths = []string{"node_modules"}
	}

	setDefault(&cfg.Scripts.Entry, cfg.Paths.Scripts+"/main.js")
	setDefault(&cfg.Scripts.Outfile, "js/main.js")
	setDefault(&cfg.Scripts.GlobalName, "library")
	setDefault(&cfg.Scripts.Target, "es2015")

	setDefault(&cfg.Pages.Extension, ".njk")
	if cfg.Pages.Data == nil {
		cfg.Pages.Data = []string{cfg.Paths.Data + "/site-data.json"}
	}

	if cfg.Sitemap.LastMod == "" {
		cfg.Sitemap.LastMod = LastModMtime
	}

	setDefault(&cfg.Dev.Host, "localhost")
	if cfg.Dev.Port == 0 {
		cfg.Dev.Port = DefaultDevPort
	}
	if cfg.Dev.Debounce == 0 {
		cfg.Dev.Debounce = DefaultDebounce
	}

	setDefault(&cfg.History.Path, DefaultHistoryPath)
	setDefault(&cfg.Notify.Subject, DefaultNotifySubj)

	setDefault((*string)(&cfg.Logging.Level), string(LogLevelInfo))
	setDefault((*string)(&cfg.Logging.Format), string(LogFormatText))
	return nil
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}
