package pages

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/build"
	"git.home.luguber.info/inful/sitebuilder/internal/config"
	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

type site struct {
	root string
	cfg  *config.Config
}

func newSite(t *testing.T) *site {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths.Pages = filepath.Join(root, "src", "pages")
	cfg.Paths.Templates = filepath.Join(root, "src", "html")
	cfg.Pages.Data = []string{filepath.Join(root, "src", "data", "site-data.json")}
	cfg.Output.Dev = filepath.Join(root, "_dev")
	off := false
	cfg.Pages.Beautify = &off
	s := &site{root: root, cfg: cfg}

	old := time.Now().Add(-time.Hour)
	s.write(t, "src/html/layout.njk", `<html><head><title>{{ title }}</title></head><body>{% block content %}{% endblock %}</body></html>`, old)
	s.write(t, "src/html/_nav.njk", `<nav>{{ page.url }}</nav>`, old)
	s.write(t, "src/data/site-data.json", `{"title":"My Site","intro":"*hi*","site-name":"ignored"}`, old)
	s.write(t, "src/pages/index.njk", `{% extends "layout.njk" %}{% block content %}{% include "_nav.njk" %}{{ intro|markdown }}{% endblock %}`, old)
	s.write(t, "src/pages/blog/post.njk", `{% extends "layout.njk" %}{% block content %}<h1>{{ page.path }}</h1>{% endblock %}`, old)
	s.write(t, "src/pages/_partials/footer.njk", `footer`, old)
	s.write(t, "src/pages/draft.njk~", `stale`, old)
	return s
}

func (s *site) write(t *testing.T, rel, body string, mod time.Time) {
	t.Helper()
	p := filepath.Join(s.root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	require.NoError(t, os.Chtimes(p, mod, mod))
}

func (s *site) read(t *testing.T, rel string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(s.cfg.Output.Dev, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(b)
}

func (s *site) run(t *testing.T, task *Task) *build.State {
	t.Helper()
	st := build.NewState(s.cfg, "pages", config.ModeDev, nil)
	require.NoError(t, task.Run(context.Background(), st))
	return st
}

func TestRun_RendersWithLayoutDataAndMarkdown(t *testing.T) {
	s := newSite(t)
	st := s.run(t, NewTask(s.cfg))

	index := s.read(t, "index.html")
	assert.Contains(t, index, "<title>My Site</title>")
	assert.Contains(t, index, "<nav>/</nav>")
	assert.Contains(t, index, "<p><em>hi</em></p>")

	post := s.read(t, "blog/post.html")
	assert.Contains(t, post, "<h1>blog/post.njk</h1>")

	assert.NoFileExists(t, filepath.Join(s.cfg.Output.Dev, "_partials", "footer.html"))
	assert.NoFileExists(t, filepath.Join(s.cfg.Output.Dev, "draft.html"))
	assert.Equal(t, 2, st.Report.Files())

	manifest := st.Pages()
	assert.Len(t, manifest, 2)
	assert.True(t, strings.HasSuffix(manifest["blog/post.html"], "src/pages/blog/post.njk"))
}

func TestRun_Incremental(t *testing.T) {
	s := newSite(t)
	task := NewTask(s.cfg)

	st := s.run(t, task)
	assert.Equal(t, 2, st.Report.Files())

	st = s.run(t, task)
	assert.Equal(t, 0, st.Report.Files(), "nothing changed since the last run")

	s.write(t, "src/pages/blog/post.njk", `{% extends "layout.njk" %}{% block content %}<h1>updated</h1>{% endblock %}`, time.Now())
	time.Sleep(10 * time.Millisecond)
	st = s.run(t, task)
	assert.Equal(t, 1, st.Report.Files())
	assert.Contains(t, s.read(t, "blog/post.html"), "updated")

	require.NoError(t, task.Reset(context.Background(), st))
	st = s.run(t, task)
	assert.Equal(t, 2, st.Report.Files(), "reset forces a full render")

	st = s.run(t, task)
	assert.Equal(t, 0, st.Report.Files(), "reset is cleared after a successful run")
}

func TestRun_FailureKeepsPendingWork(t *testing.T) {
	s := newSite(t)
	task := NewTask(s.cfg)
	s.write(t, "src/pages/broken.njk", `{% extends "missing.njk" %}`, time.Now().Add(-time.Hour))

	st := build.NewState(s.cfg, "pages", config.ModeDev, nil)
	err := task.Run(context.Background(), st)
	require.Error(t, err)
	assert.Equal(t, ferrors.CategoryPages, ferrors.GetCategory(err))
	assert.True(t, task.Tracker().Since().IsZero(), "reset must survive a failed run")

	require.NoError(t, os.Remove(filepath.Join(s.cfg.Paths.Pages, "broken.njk")))
	st = s.run(t, task)
	assert.Equal(t, 2, st.Report.Files())
	assert.False(t, task.Tracker().Since().IsZero())
}

func TestRun_DataReadFreshEachRun(t *testing.T) {
	s := newSite(t)
	task := NewTask(s.cfg)
	s.run(t, task)

	s.write(t, "src/data/site-data.json", `{"title":"Renamed","intro":""}`, time.Now())
	require.NoError(t, task.Reset(context.Background(), nil))
	s.run(t, task)
	assert.Contains(t, s.read(t, "index.html"), "<title>Renamed</title>")
}

func TestRun_Beautify(t *testing.T) {
	s := newSite(t)
	s.cfg.Pages.Beautify = nil
	s.run(t, NewTask(s.cfg))
	index := s.read(t, "index.html")
	assert.Contains(t, index, "<title>")
	assert.Greater(t, strings.Count(index, "\n"), 2)
}

func TestPageURL(t *testing.T) {
	assert.Equal(t, "/", PageURL("index.html"))
	assert.Equal(t, "/blog/", PageURL("blog/index.html"))
	assert.Equal(t, "/about.html", PageURL("about.html"))
}

func TestTracker(t *testing.T) {
	tr := NewTracker()
	assert.True(t, tr.Since().IsZero())
	start := time.Now()
	tr.Complete(start)
	assert.Equal(t, start, tr.Since())
	tr.Reset()
	assert.True(t, tr.Since().IsZero())
}
