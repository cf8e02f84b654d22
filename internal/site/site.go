// Package site assembles the build tasks, graphs and their collaborators
// into the operations exposed by the command line.
package site

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/sitebuilder/internal/assets"
	"git.home.luguber.info/inful/sitebuilder/internal/build"
	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/eventstore"
	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/notify"
	"git.home.luguber.info/inful/sitebuilder/internal/pages"
	"git.home.luguber.info/inful/sitebuilder/internal/scripts"
	"git.home.luguber.info/inful/sitebuilder/internal/server"
	"git.home.luguber.info/inful/sitebuilder/internal/sitemap"
	"git.home.luguber.info/inful/sitebuilder/internal/styles"
)

// Options overrides collaborators, mostly for tests.
type Options struct {
	// Compiler replaces the Dart Sass compiler.
	Compiler styles.Compiler
	// Publisher replaces the NATS connection for build notifications.
	Publisher notify.Publisher
}

// Site owns the tasks of one project and everything they share across
// graph executions: the sass process, the pages tracker, the dev server and
// the build history.
type Site struct {
	cfg *config.Config

	compiler styles.Compiler
	styles   *styles.Task
	pages    *pages.Task
	scripts  *scripts.Task
	assets   *assets.Task
	sitemap  *sitemap.Task

	registry *prom.Registry
	recorder metrics.Recorder

	store      *eventstore.SQLiteStore
	projection *eventstore.BuildHistoryProjection
	history    *eventstore.Recorder
	notifier   *notify.Notifier

	mu     sync.Mutex
	server *server.Server
	status *RebuildStatus
}

// New wires a site for cfg. History and notification failures are logged
// and leave the feature disabled; they never prevent a build.
func New(cfg *config.Config, opts Options) *Site {
	compiler := opts.Compiler
	if compiler == nil {
		compiler = styles.NewDartSass(cfg.Styles.SassBinary)
	}
	reg := prom.NewRegistry()
	s := &Site{
		cfg:      cfg,
		compiler: compiler,
		styles:   styles.NewTask(cfg, compiler),
		pages:    pages.NewTask(cfg),
		scripts:  scripts.NewTask(cfg),
		assets:   assets.NewTask(cfg),
		sitemap:  sitemap.NewTask(cfg),
		registry: reg,
		recorder: metrics.NewPrometheusRecorder(reg),
	}

	if cfg.History.Enabled() {
		store, err := eventstore.NewSQLiteStore(cfg.History.Path)
		if err != nil {
			slog.Warn("Build history disabled", logfields.Path(cfg.History.Path), logfields.Error(err))
		} else {
			s.store = store
			s.projection = eventstore.NewBuildHistoryProjection(store, 0)
			s.history = eventstore.NewRecorder(store, s.projection)
		}
	}

	switch {
	case opts.Publisher != nil:
		s.notifier = notify.New(opts.Publisher, cfg.Notify.Subject)
	case cfg.Notify.NATSURL != "":
		n, err := notify.Connect(cfg.Notify)
		if err != nil {
			slog.Warn("Build notifications disabled", logfields.Error(err))
		}
		s.notifier = n
	}
	return s
}

// Config returns the configuration the site was built from.
func (s *Site) Config() *config.Config { return s.cfg }

// Close releases the sass process, the history database and the NATS
// connection.
func (s *Site) Close() error {
	var errs []error
	if err := s.compiler.Close(); err != nil {
		errs = append(errs, err)
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.notifier.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *Site) observer() build.Observer {
	obs := build.MultiObserver{build.RecorderObserver{Rec: s.recorder}}
	if s.history != nil {
		obs = append(obs, s.history)
	}
	if s.notifier != nil {
		obs = append(obs, s.notifier)
	}
	return obs
}

// funcs binds every task name to its implementation. reload is bound per
// rebuild.
func (s *Site) funcs() build.Funcs {
	return build.Funcs{
		build.TaskInit:       build.InitOutput,
		build.TaskStyles:     s.styles.Run,
		build.TaskPages:      s.pages.Run,
		build.TaskScripts:    s.scripts.Run,
		build.TaskAssets:     s.assets.Run,
		build.TaskSitemap:    s.sitemap.Run,
		build.TaskResetPages: s.pages.Reset,
		build.TaskServe:      s.serve,
		build.TaskWatch:      s.watch,
		build.TaskReload: func(context.Context, *build.State) error {
			s.reload(server.ReloadPage)
			return nil
		},
	}
}

func (s *Site) execute(ctx context.Context, g build.Graph, mode config.Mode) (*build.Report, error) {
	st := build.NewState(s.cfg, g.Name, mode, s.observer())
	err := build.Execute(ctx, g, st)
	return st.Report, err
}

// Build runs the production graph into output.prod.
func (s *Site) Build(ctx context.Context) (*build.Report, error) {
	return s.execute(ctx, build.ProductionGraph(s.funcs()), config.ModeProd)
}

// RunTask runs a single task against the output directory of mode.
func (s *Site) RunTask(ctx context.Context, name build.TaskName, mode config.Mode) (*build.Report, error) {
	return s.execute(ctx, build.SingleTaskGraph(name, s.funcs()), mode)
}

// Graphs returns the fixed graphs, for display.
func (s *Site) Graphs() []build.Graph {
	f := s.funcs()
	return []build.Graph{build.DevGraph(f), build.ProductionGraph(f)}
}

// HistoryView is a snapshot of the recorded builds.
type HistoryView struct {
	// Active is the newest build without a completion event: a build still
	// running in another process, or one that was interrupted.
	Active *eventstore.BuildSummary
	// Builds are finished builds, newest first.
	Builds []*eventstore.BuildSummary
}

// History returns up to limit finished builds, newest first. limit <= 0
// returns every recorded build.
func (s *Site) History(ctx context.Context, limit int) (*HistoryView, error) {
	size := limit
	if size <= 0 {
		size = eventstore.Unlimited
	}
	p, err := s.loadHistory(ctx, size)
	if err != nil {
		return nil, err
	}
	return &HistoryView{Active: p.GetActiveBuild(), Builds: p.GetHistory(limit)}, nil
}

// HistoryBuild returns one recorded build by ID or unique ID prefix.
func (s *Site) HistoryBuild(ctx context.Context, id string) (*eventstore.BuildSummary, error) {
	p, err := s.loadHistory(ctx, eventstore.Unlimited)
	if err != nil {
		return nil, err
	}
	summary, ok := p.FindBuild(id)
	if !ok {
		return nil, ferrors.ValidationError("no recorded build matches").WithContext("build_id", id).Build()
	}
	return summary, nil
}

// loadHistory replays the store into a projection of its own, so queries
// are not bounded by the live projection's size.
func (s *Site) loadHistory(ctx context.Context, size int) (*eventstore.BuildHistoryProjection, error) {
	if s.store == nil {
		return nil, ferrors.ValidationError("build history is disabled").
			WithContext("path", s.cfg.History.Path).Build()
	}
	p := eventstore.NewBuildHistoryProjection(s.store, size)
	if err := p.Rebuild(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

// Registry exposes the metrics registry shared by all builds of this site.
func (s *Site) Registry() *prom.Registry { return s.registry }
