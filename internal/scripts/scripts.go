// Package scripts bundles the JavaScript entry point with esbuild.
package scripts

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"git.home.luguber.info/inful/sitebuilder/internal/build"
	"git.home.luguber.info/inful/sitebuilder/internal/config"
	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

var targets = map[string]api.Target{
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
	"es2023": api.ES2023,
	"es2024": api.ES2024,
	"esnext": api.ESNext,
}

// Task bundles scripts.entry into <out>/<scripts.outfile>.
type Task struct {
	cfg *config.Config
}

// NewTask returns the scripts task.
func NewTask(cfg *config.Config) *Task { return &Task{cfg: cfg} }

// Options returns the esbuild options for one run.
func (t *Task) Options(st *build.State) (api.BuildOptions, error) {
	wd, err := filepath.Abs(".")
	if err != nil {
		return api.BuildOptions{}, err
	}
	outfile, err := filepath.Abs(filepath.Join(st.OutDir, filepath.FromSlash(t.cfg.Scripts.Outfile)))
	if err != nil {
		return api.BuildOptions{}, err
	}
	target, ok := targets[strings.ToLower(t.cfg.Scripts.Target)]
	if !ok {
		target = api.ES2015
	}
	opts := api.BuildOptions{
		AbsWorkingDir: wd,
		EntryPoints:   []string{t.cfg.Scripts.Entry},
		Bundle:        true,
		Outfile:       outfile,
		Format:        api.FormatIIFE,
		GlobalName:    t.cfg.Scripts.GlobalName,
		Target:        target,
		Write:         true,
		LogLevel:      api.LogLevelSilent,
	}
	if st.Dev() {
		opts.Sourcemap = api.SourceMapLinked
	} else {
		opts.MinifyWhitespace = true
		opts.MinifyIdentifiers = true
		opts.MinifySyntax = true
	}
	return opts, nil
}

// Run implements build.Func. A missing entry point means the site has no
// scripts and is not an error.
func (t *Task) Run(ctx context.Context, st *build.State) error {
	if _, err := os.Stat(t.cfg.Scripts.Entry); os.IsNotExist(err) {
		slog.Warn("scripts: entry point not found, skipping", logfields.Path(t.cfg.Scripts.Entry))
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	opts, err := t.Options(st)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryScripts, "failed to resolve bundle paths").Build()
	}
	res := api.Build(opts)
	for _, w := range res.Warnings {
		slog.Warn("scripts: "+w.Text, logfields.Path(location(w)))
	}
	if len(res.Errors) > 0 {
		first := res.Errors[0]
		return ferrors.NewError(ferrors.CategoryScripts, "failed to bundle scripts").
			WithContext("path", location(first)).
			WithContext("errors", len(res.Errors)).
			WithContext("detail", first.Text).
			Build()
	}
	st.Report.AddFiles(build.TaskScripts, len(res.OutputFiles))
	slog.Debug("scripts: bundled", logfields.Path(t.cfg.Scripts.Entry), logfields.Output(opts.Outfile))
	return nil
}

// location renders a bundler message position as file:line:column.
func location(m api.Message) string {
	if m.Location == nil {
		return ""
	}
	return fmt.Sprintf("%s:%d:%d", m.Location.File, m.Location.Line, m.Location.Column)
}
