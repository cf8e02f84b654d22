package site

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"git.home.luguber.info/inful/sitebuilder/internal/build"
	"git.home.luguber.info/inful/sitebuilder/internal/config"
	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/notify"
	"git.home.luguber.info/inful/sitebuilder/internal/server"
	"git.home.luguber.info/inful/sitebuilder/internal/styles"
	"git.home.luguber.info/inful/sitebuilder/internal/watch"
)

type fakeCompiler struct {
	mu     sync.Mutex
	fail   error
	closed bool
}

func (f *fakeCompiler) Compile(_ context.Context, req styles.Request) (styles.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return styles.Result{}, f.fail
	}
	return styles.Result{CSS: strings.TrimSpace(req.Source)}, nil
}

func (f *fakeCompiler) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

type capture struct {
	mu   sync.Mutex
	msgs [][]byte
}

func (c *capture) Publish(_ string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, data)
	return nil
}

func project(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"src/styles/main.scss":      "body { color: red; }",
		"src/styles/_vars.scss":     "$c: red;",
		"src/html/layout.njk":       `<html><body>{% block content %}{% endblock %}</body></html>`,
		"src/pages/index.njk":       `{% extends "layout.njk" %}{% block content %}<h1>{{ title }}</h1>{% endblock %}`,
		"src/pages/about.njk":       `{% extends "layout.njk" %}{% block content %}about{% endblock %}`,
		"src/data/site-data.json":   `{"title":"Hello","url":"https://example.com/"}`,
		"src/scripts/main.js":       `export function greet() { return "hi"; }`,
		"public/robots.txt":         "User-agent: *",
		"public/img/logo.svg":       "<svg/>",
		"public/draft.html.bak":     "old",
		"src/pages/_partials/x.njk": "partial",
	}
	for rel, body := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}

	cfg := config.Default()
	cfg.Paths.Styles = filepath.Join(root, "src/styles")
	cfg.Paths.Pages = filepath.Join(root, "src/pages")
	cfg.Paths.Templates = filepath.Join(root, "src/html")
	cfg.Paths.Scripts = filepath.Join(root, "src/scripts")
	cfg.Paths.Data = filepath.Join(root, "src/data")
	cfg.Paths.Public = filepath.Join(root, "public")
	cfg.Output.Dev = filepath.Join(root, "_dev")
	cfg.Output.Prod = filepath.Join(root, "dist")
	cfg.Scripts.Entry = filepath.Join(root, "src/scripts/main.js")
	cfg.Pages.Data = []string{filepath.Join(root, "src/data/site-data.json")}
	cfg.History.Path = filepath.Join(root, ".sitebuilder/history.db")
	off := false
	cfg.Pages.Beautify = &off
	return cfg
}

func exists(t *testing.T, path string) {
	t.Helper()
	_, err := os.Stat(path)
	assert.NoError(t, err, path)
}

func TestBuild_ProducesCompleteSite(t *testing.T) {
	cfg := project(t)
	pub := &capture{}
	compiler := &fakeCompiler{}
	s := New(cfg, Options{Compiler: compiler, Publisher: pub})

	report, err := s.Build(t.Context())
	require.NoError(t, err)
	assert.Equal(t, build.OutcomeSuccess, report.Outcome)

	dist := cfg.Output.Prod
	exists(t, filepath.Join(dist, "css", "main.css"))
	exists(t, filepath.Join(dist, "index.html"))
	exists(t, filepath.Join(dist, "about.html"))
	exists(t, filepath.Join(dist, "js", "main.js"))
	exists(t, filepath.Join(dist, "robots.txt"))
	exists(t, filepath.Join(dist, "img", "logo.svg"))
	assert.NoFileExists(t, filepath.Join(dist, "css", "_vars.css"))
	assert.NoFileExists(t, filepath.Join(dist, "draft.html.bak"))

	sm, err := os.ReadFile(filepath.Join(dist, "sitemap.xml"))
	require.NoError(t, err)
	assert.Contains(t, string(sm), "<loc>https://example.com/</loc>")
	assert.Contains(t, string(sm), "<loc>https://example.com/about.html</loc>")

	for _, name := range []build.TaskName{build.TaskInit, build.TaskScripts, build.TaskStyles, build.TaskAssets, build.TaskPages, build.TaskSitemap} {
		rec, ok := report.Task(name)
		require.True(t, ok, name)
		assert.Equal(t, build.ResultSuccess, rec.Result, name)
	}

	view, err := s.History(t.Context(), 10)
	require.NoError(t, err)
	assert.Nil(t, view.Active)
	require.Len(t, view.Builds, 1)
	assert.Equal(t, report.BuildID, view.Builds[0].BuildID)
	assert.Equal(t, "success", view.Builds[0].Status)
	assert.Equal(t, "build", view.Builds[0].Graph)

	detail, err := s.HistoryBuild(t.Context(), report.BuildID[:8])
	require.NoError(t, err)
	assert.Equal(t, report.BuildID, detail.BuildID)
	assert.Len(t, detail.Tasks, 6)
	_, err = s.HistoryBuild(t.Context(), "no-such-build")
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))

	require.Len(t, pub.msgs, 1)
	var msg notify.BuildMessage
	require.NoError(t, json.Unmarshal(pub.msgs[0], &msg))
	assert.Equal(t, report.BuildID, msg.BuildID)

	require.NoError(t, s.Close())
	assert.True(t, compiler.closed)
}

func TestBuild_FailureStopsSitemap(t *testing.T) {
	cfg := project(t)
	cfg.History.Disabled = true
	s := New(cfg, Options{Compiler: &fakeCompiler{}})
	defer func() { _ = s.Close() }()

	require.NoError(t, os.WriteFile(filepath.Join(cfg.Paths.Pages, "broken.njk"), []byte(`{% if %}`), 0o644))

	report, err := s.Build(t.Context())
	require.Error(t, err)
	failed, ok := build.FailedTask(err)
	require.True(t, ok)
	assert.Equal(t, build.TaskPages, failed)
	assert.Equal(t, build.OutcomeFailed, report.Outcome)

	rec, ok := report.Task(build.TaskSitemap)
	require.True(t, ok)
	assert.Equal(t, build.ResultSkipped, rec.Result)
	assert.NoFileExists(t, filepath.Join(cfg.Output.Prod, "sitemap.xml"))

	_, err = s.History(t.Context(), 1)
	assert.Error(t, err, "history is disabled")
}

func TestRunTask_TargetsModeOutput(t *testing.T) {
	cfg := project(t)
	cfg.History.Disabled = true
	s := New(cfg, Options{Compiler: &fakeCompiler{}})
	defer func() { _ = s.Close() }()

	_, err := s.RunTask(t.Context(), build.TaskStyles, config.ModeDev)
	require.NoError(t, err)
	exists(t, filepath.Join(cfg.Output.Dev, "css", "main.css"))
	assert.NoDirExists(t, cfg.Output.Prod)
}

func TestGraphs_DescribeFixedShapes(t *testing.T) {
	s := New(project(t), Options{Compiler: &fakeCompiler{}})
	defer func() { _ = s.Close() }()

	graphs := s.Graphs()
	require.Len(t, graphs, 2)
	assert.Equal(t, "dev", graphs[0].Name)
	assert.Equal(t, "build", graphs[1].Name)
	assert.Contains(t, graphs[0].Describe(), "watch")
	assert.Contains(t, graphs[1].Describe(), "sitemap")
}

func TestRebuild_RecordsStatus(t *testing.T) {
	cfg := project(t)
	cfg.History.Disabled = true
	compiler := &fakeCompiler{}
	s := New(cfg, Options{Compiler: compiler})
	defer func() { _ = s.Close() }()

	body, err := s.currentStatus()
	require.NoError(t, err)
	idle, ok := body.(*DevStatus)
	require.True(t, ok)
	assert.Equal(t, "idle", idle.Outcome)
	assert.Nil(t, idle.Rebuild)

	plan := watch.Plan{Styles: true, Reload: watch.ReloadCSS}
	require.NoError(t, s.Rebuild(t.Context(), plan))
	exists(t, filepath.Join(cfg.Output.Dev, "css", "main.css"))

	body, err = s.currentStatus()
	require.NoError(t, err)
	status, ok := body.(*DevStatus)
	require.True(t, ok)
	assert.Equal(t, string(build.OutcomeSuccess), status.Outcome)
	require.NotNil(t, status.Rebuild)
	assert.Equal(t, plan.String(), status.Rebuild.Plan)

	compiler.fail = errors.New("Undefined variable")
	require.Error(t, s.Rebuild(t.Context(), plan))
	_, err = s.currentStatus()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Undefined variable")
}

func TestDev_ServesRebuildsAndStops(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfg := project(t)
	cfg.History.Disabled = true
	cfg.Dev.Debounce = 20 * time.Millisecond
	cfg.Dev.Metrics = true
	require.NoError(t, os.Remove(cfg.Scripts.Entry))
	s := New(cfg, Options{Compiler: &fakeCompiler{}})
	defer func() { _ = s.Close() }()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	base := "http://" + ln.Addr().String()

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- s.Dev(ctx, ln) }()

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}, Timeout: 2 * time.Second}
	get := func(path string) (int, string) {
		resp, err := client.Get(base + path)
		if err != nil {
			return 0, ""
		}
		defer func() { _ = resp.Body.Close() }()
		b, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, string(b)
	}

	require.Eventually(t, func() bool {
		code, _ := get("/index.html")
		return code == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	_, page := get("/index.html")
	assert.Contains(t, page, "<h1>Hello</h1>")
	assert.Contains(t, page, "/__livereload.js")

	code, _ := get("/robots.txt")
	assert.Equal(t, http.StatusOK, code, "public directory is served as fallback")

	code, metricsBody := get("/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, metricsBody, "sitebuilder_task_results_total")

	require.NoError(t, os.WriteFile(filepath.Join(cfg.Paths.Pages, "about.njk"),
		[]byte(`{% extends "layout.njk" %}{% block content %}changed{% endblock %}`), 0o644))
	require.Eventually(t, func() bool {
		_, body := get("/about.html")
		return strings.Contains(body, "changed")
	}, 5*time.Second, 20*time.Millisecond)

	code, statusBody := get("/__status")
	assert.Equal(t, http.StatusOK, code)
	var status DevStatus
	require.NoError(t, json.Unmarshal([]byte(statusBody), &status))
	assert.Equal(t, string(build.OutcomeSuccess), status.Outcome)
	assert.Nil(t, status.ActiveBuild, "history is disabled")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("dev session did not stop")
	}
}

func TestRebuild_BroadcastsReloadKind(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfg := project(t)
	cfg.History.Disabled = true
	compiler := &fakeCompiler{}
	s := New(cfg, Options{Compiler: compiler})
	defer func() { _ = s.Close() }()

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	srv := server.New(cfg, cfg.OutputDir(config.ModeDev), server.Options{})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	require.NoError(t, srv.StartWithListener(ctx, ln))
	s.mu.Lock()
	s.server = srv
	s.mu.Unlock()

	tr := &http.Transport{}
	defer tr.CloseIdleConnections()
	resp, err := (&http.Client{Transport: tr}).Get("http://" + srv.Addr() + server.EventsPath)
	require.NoError(t, err)
	events := make(chan string, 8)
	go func() {
		defer close(events)
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			if data, ok := strings.CutPrefix(sc.Text(), "data: "); ok {
				events <- data
			}
		}
	}()
	require.Eventually(t, func() bool { return srv.Hub().Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	next := func() string {
		t.Helper()
		select {
		case e := <-events:
			return e
		case <-time.After(5 * time.Second):
			t.Fatal("no live reload event")
			return ""
		}
	}

	require.NoError(t, s.Rebuild(ctx, watch.Plan{Styles: true, Reload: watch.ReloadCSS}))
	assert.JSONEq(t, `{"type":"css"}`, next())

	require.NoError(t, s.Rebuild(ctx, watch.Plan{Styles: true, Pages: true, Reload: watch.ReloadFull}))
	assert.JSONEq(t, `{"type":"reload"}`, next())

	compiler.mu.Lock()
	compiler.fail = errors.New("Undefined variable")
	compiler.mu.Unlock()
	require.Error(t, s.Rebuild(ctx, watch.Plan{Styles: true, Reload: watch.ReloadCSS}))

	compiler.mu.Lock()
	compiler.fail = nil
	compiler.mu.Unlock()
	require.NoError(t, s.Rebuild(ctx, watch.Plan{Pages: true, Reload: watch.ReloadFull}))
	assert.JSONEq(t, `{"type":"reload"}`, next(), "a failed rebuild must not broadcast")

	cancel()
	<-srv.Done()
	_ = resp.Body.Close()
	for range events {
	}
}

func TestDev_StopsWhenWatchFails(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfg := project(t)
	cfg.History.Disabled = true
	// gocron rejects a negative interval, so the watch task fails after
	// the server is up.
	cfg.Dev.ResyncInterval = -time.Second
	require.NoError(t, os.Remove(cfg.Scripts.Entry))
	s := New(cfg, Options{Compiler: &fakeCompiler{}})
	defer func() { _ = s.Close() }()

	// A second session on the same site must start cleanly.
	for range 2 {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		addr := ln.Addr().String()

		done := make(chan error, 1)
		go func() { done <- s.Dev(t.Context(), ln) }()

		select {
		case err := <-done:
			require.Error(t, err)
			failed, ok := build.FailedTask(err)
			require.True(t, ok)
			assert.Equal(t, build.TaskWatch, failed)
			assert.True(t, ferrors.HasCategory(err, ferrors.CategoryWatch))
		case <-time.After(5 * time.Second):
			t.Fatal("dev session kept serving after the watch task failed")
		}

		assert.Nil(t, s.Server())
		conn, err := net.DialTimeout("tcp", addr, time.Second)
		if err == nil {
			_ = conn.Close()
		}
		assert.Error(t, err, "listener should be closed")
	}
}

func TestCurrentStatus_ReportsHistory(t *testing.T) {
	cfg := project(t)
	s := New(cfg, Options{Compiler: &fakeCompiler{}})
	defer func() { _ = s.Close() }()

	report, err := s.Build(t.Context())
	require.NoError(t, err)

	body, err := s.currentStatus()
	require.NoError(t, err)
	status := body.(*DevStatus)
	require.NotNil(t, status.LastBuild)
	assert.Equal(t, report.BuildID, status.LastBuild.BuildID)
	assert.Nil(t, status.ActiveBuild)
	assert.Zero(t, status.LiveReloadClients)
}
