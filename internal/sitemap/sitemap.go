// Package sitemap writes sitemap.xml for the rendered site.
package sitemap

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	smap "github.com/snabb/sitemap"

	"git.home.luguber.info/inful/sitebuilder/internal/build"
	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/fileset"
	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/git"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// Filename is the sitemap written to the output root.
const Filename = "sitemap.xml"

// Entry is one URL of the sitemap.
type Entry struct {
	// Output is the HTML file relative to the output directory.
	Output  string
	Loc     string
	LastMod *time.Time
}

// Task generates <out>/sitemap.xml from the HTML files in the output directory.
type Task struct {
	cfg *config.Config
}

// NewTask returns the sitemap task.
func NewTask(cfg *config.Config) *Task { return &Task{cfg: cfg} }

// Run implements build.Func.
func (t *Task) Run(ctx context.Context, st *build.State) error {
	siteURL, err := t.cfg.SiteURL()
	if err != nil {
		return err
	}
	entries, err := t.Collect(ctx, st, siteURL)
	if err != nil {
		return err
	}

	sm := smap.New()
	for _, e := range entries {
		u := &smap.URL{Loc: e.Loc, LastMod: e.LastMod}
		if t.cfg.Sitemap.ChangeFreq != "" {
			u.ChangeFreq = smap.ChangeFreq(t.cfg.Sitemap.ChangeFreq)
		}
		sm.Add(u)
	}

	dst := filepath.Join(st.OutDir, Filename)
	f, err := os.Create(dst)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to create sitemap").
			WithContext("path", dst).Build()
	}
	if _, err := sm.WriteTo(f); err != nil {
		_ = f.Close()
		return ferrors.WrapError(err, ferrors.CategorySitemap, "failed to write sitemap").
			WithContext("path", dst).Build()
	}
	if err := f.Close(); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to close sitemap").
			WithContext("path", dst).Build()
	}
	st.Report.AddFiles(build.TaskSitemap, 1)
	slog.Info("sitemap: written", logfields.Output(dst), slog.Int("urls", len(entries)))
	return nil
}

// Collect lists the indexable pages of the output directory with their
// absolute URLs and lastmod values, sorted by output path.
func (t *Task) Collect(ctx context.Context, st *build.State, siteURL string) ([]Entry, error) {
	sel := fileset.Selector{Include: []string{"**/*.html"}, Exclude: t.cfg.Sitemap.Exclude}
	files, err := fileset.Collect(st.OutDir, sel, time.Time{})
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategorySitemap, "failed to list output pages").
			WithContext("path", st.OutDir).Build()
	}
	base, err := url.Parse(strings.TrimSuffix(siteURL, "/") + "/")
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "invalid site URL").
			WithContext("value", siteURL).Build()
	}

	lm := t.lastMod(st)
	entries := make([]Entry, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		noindex, err := IsNoIndex(f.Abs)
		if err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategorySitemap, "failed to read page").
				WithContext("path", f.Rel).Build()
		}
		if noindex {
			slog.Debug("sitemap: skipping noindex page", logfields.Path(f.Rel))
			continue
		}
		entries = append(entries, Entry{
			Output:  f.Rel,
			Loc:     base.ResolveReference(&url.URL{Path: PagePath(f.Rel)}).String(),
			LastMod: lm(f),
		})
	}
	return entries, nil
}

// PagePath maps an output file to its path below the site root: index.html
// becomes its directory.
func PagePath(rel string) string {
	rel = strings.TrimPrefix(filepath.ToSlash(rel), "/")
	if path.Base(rel) == "index.html" {
		return strings.TrimSuffix(rel, "index.html")
	}
	return rel
}

func (t *Task) lastMod(st *build.State) func(fileset.File) *time.Time {
	mtime := func(f fileset.File) *time.Time {
		m := f.ModTime.UTC()
		return &m
	}
	switch t.cfg.Sitemap.LastMod {
	case config.LastModNone:
		return func(fileset.File) *time.Time { return nil }
	case config.LastModGit:
		hist, err := git.Open(t.cfg.Paths.Pages)
		if err != nil {
			slog.Warn("sitemap: git history unavailable, using file times", logfields.Error(err))
			return mtime
		}
		slog.Debug("sitemap: using git history", logfields.Path(hist.Root()))
		sources := st.Pages()
		return func(f fileset.File) *time.Time {
			src, ok := sources[f.Rel]
			if !ok {
				return mtime(f)
			}
			when, err := hist.LastCommitTime(src)
			if err != nil {
				slog.Debug("sitemap: no commit date", logfields.Path(src), logfields.Error(err))
				return mtime(f)
			}
			return &when
		}
	default:
		return mtime
	}
}
