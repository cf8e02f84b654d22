// Package pages renders the site's HTML pages from templates and JSON data.
//
// Pages are rendered incrementally: after a successful run only pages whose
// source changed since that run started are rendered again. A change to
// anything a page may depend on indirectly (partials, templates, data) must
// call Reset so that the next run renders every page.
package pages

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/flosch/pongo2/v6"

	"git.home.luguber.info/inful/sitebuilder/internal/build"
	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/fileset"
	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// Task renders pages and owns the incremental tracker.
type Task struct {
	cfg     *config.Config
	tracker *Tracker
}

// NewTask returns a pages task whose first run is a full one.
func NewTask(cfg *config.Config) *Task {
	return &Task{cfg: cfg, tracker: NewTracker()}
}

// Tracker exposes the incremental state.
func (t *Task) Tracker() *Tracker { return t.tracker }

// Selector picks the page sources for the configured extension.
func (t *Task) Selector() fileset.Selector {
	return fileset.Selector{Include: []string{"**/*" + t.cfg.Pages.Extension}, SkipPartials: true}
}

// Reset implements the reset_pages task.
func (t *Task) Reset(context.Context, *build.State) error {
	t.tracker.Reset()
	slog.Debug("pages: full render requested")
	return nil
}

// Run implements build.Func.
func (t *Task) Run(ctx context.Context, st *build.State) error {
	start := time.Now()
	since := t.tracker.Since()

	files, err := fileset.Collect(t.cfg.Paths.Pages, t.Selector(), since)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryPages, "failed to list pages").
			WithContext("path", t.cfg.Paths.Pages).Build()
	}
	mode := "full"
	if !since.IsZero() {
		mode = "incremental"
	}
	slog.Info("pages: rendering", logfields.Files(len(files)), slog.String("kind", mode))

	data, err := config.LoadSiteData(t.cfg.Pages.Data)
	if err != nil {
		return err
	}
	set, err := t.templateSet()
	if err != nil {
		return err
	}
	r := newRenderer(set, data, t.cfg.Pages.BeautifyEnabled())

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := t.renderOne(st, r, f); err != nil {
			return err
		}
	}
	t.tracker.Complete(start)
	return nil
}

func (t *Task) renderOne(st *build.State, r *renderer, f fileset.File) error {
	src, err := os.ReadFile(f.Abs)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryPages, "failed to read page").
			WithContext("path", f.Rel).Build()
	}
	page := newPageInfo(f.Rel)
	html, err := r.render(f.Rel, src, page)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryPages, "failed to render page").
			WithContext("path", f.Rel).Build()
	}
	out := filepath.Join(st.OutDir, filepath.FromSlash(page.Output))
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to create output directory").
			WithContext("path", filepath.Dir(out)).Build()
	}
	if err := os.WriteFile(out, html, 0o644); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to write page").
			WithContext("path", out).Build()
	}
	st.RecordPage(page.Output, filepath.ToSlash(filepath.Join(t.cfg.Paths.Pages, f.Rel)))
	st.Report.AddFiles(build.TaskPages, 1)
	slog.Debug("pages: rendered", logfields.Path(f.Rel), logfields.Output(page.Output))
	return nil
}

// templateSet is rebuilt for every run so template edits are always seen.
// Templates resolve from paths.templates first, then from paths.pages.
func (t *Task) templateSet() (*pongo2.TemplateSet, error) {
	var loaders []pongo2.TemplateLoader
	for _, dir := range []string{t.cfg.Paths.Templates, t.cfg.Paths.Pages} {
		if !fileset.Exists(dir) {
			continue
		}
		l, err := pongo2.NewLocalFileSystemLoader(dir)
		if err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryPages, "failed to open template directory").
				WithContext("path", dir).Build()
		}
		loaders = append(loaders, l)
	}
	if len(loaders) == 0 {
		// No sources at all: nothing will be rendered, but the set still needs a loader.
		l, _ := pongo2.NewLocalFileSystemLoader("")
		loaders = append(loaders, l)
	}
	return pongo2.NewSet("pages", loaders...), nil
}
