package site

import (
	"context"
	"log/slog"
	"net"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/build"
	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/eventstore"
	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/server"
	"git.home.luguber.info/inful/sitebuilder/internal/watch"
)

// RebuildStatus describes the most recent dev rebuild, served on /__status.
type RebuildStatus struct {
	BuildID  string             `json:"build_id"`
	Plan     string             `json:"plan"`
	Outcome  build.Outcome      `json:"outcome"`
	Summary  string             `json:"summary"`
	Finished time.Time          `json:"finished"`
	Tasks    []build.TaskRecord `json:"tasks"`
	Issues   []build.Issue      `json:"issues,omitempty"`
	err      error
}

// DevStatus is the body of /__status while the last rebuild succeeded.
type DevStatus struct {
	// Outcome is "idle" before the first rebuild.
	Outcome           string                   `json:"outcome"`
	Rebuild           *RebuildStatus           `json:"rebuild,omitempty"`
	LiveReloadClients int                      `json:"livereload_clients"`
	ActiveBuild       *eventstore.BuildSummary `json:"active_build,omitempty"`
	LastBuild         *eventstore.BuildSummary `json:"last_build,omitempty"`
	HistorySynced     *time.Time               `json:"history_synced,omitempty"`
}

// Dev runs the dev graph until ctx is done or a task fails. The listener is
// optional; when nil the server binds dev.host:dev.port.
func (s *Site) Dev(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.server != nil {
		s.mu.Unlock()
		return ferrors.ServerError("dev session already running").Build()
	}
	opts := server.Options{Recorder: s.recorder, Status: s.currentStatus}
	if s.cfg.Dev.Metrics {
		opts.Registry = s.registry
	}
	srv := server.New(s.cfg, s.cfg.OutputDir(config.ModeDev), opts)
	s.server = srv
	s.status = nil
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.server = nil
		s.mu.Unlock()
	}()

	if s.projection != nil {
		if err := s.projection.Rebuild(ctx); err != nil {
			slog.Warn("Failed to load build history", logfields.Error(err))
		}
	}

	// The server lives on devCtx so a failing watch task stops it too.
	devCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	f := s.funcs()
	f[build.TaskServe] = func(context.Context, *build.State) error {
		if ln != nil {
			return srv.StartWithListener(devCtx, ln)
		}
		return srv.Start(devCtx)
	}
	_, err := s.execute(devCtx, build.DevGraph(f), config.ModeDev)
	cancel()

	if done := srv.Done(); done != nil {
		<-done
	} else if ln != nil {
		_ = ln.Close()
	}
	return err
}

// Server returns the running dev server, or nil.
func (s *Site) Server() *server.Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.server
}

// serve is only reachable outside Dev through a single-task graph.
func (s *Site) serve(context.Context, *build.State) error {
	return ferrors.ValidationError("serve runs only as part of the dev graph").Build()
}

// watch blocks until ctx is done, rebuilding on source changes.
func (s *Site) watch(ctx context.Context, _ *build.State) error {
	session := watch.NewSession(watch.NewClassifier(s.cfg), s.cfg.Dev.Debounce, s.Rebuild)
	if iv := s.cfg.Dev.ResyncInterval; iv != 0 {
		resync, err := watch.StartResync(session, iv)
		if err != nil {
			return ferrors.WrapError(err, ferrors.CategoryWatch, "failed to schedule resync").Build()
		}
		defer func() { _ = resync.Stop() }()
	}
	return session.Run(ctx)
}

// Rebuild executes plan against the dev output and records the outcome for
// /__status. A failed rebuild broadcasts nothing, so browsers keep the last
// good output.
func (s *Site) Rebuild(ctx context.Context, plan watch.Plan) error {
	f := s.funcs()
	kind := server.ReloadPage
	if plan.Reload == watch.ReloadCSS {
		kind = server.ReloadCSS
	}
	f[build.TaskReload] = func(context.Context, *build.State) error {
		s.reload(kind)
		return nil
	}

	report, err := s.execute(ctx, plan.Graph(f), config.ModeDev)
	s.setStatus(plan, report, err)
	return err
}

func (s *Site) reload(kind server.ReloadKind) {
	if srv := s.Server(); srv != nil {
		srv.Reload(kind)
		return
	}
	slog.Debug("Reload requested without a running server", logfields.Kind(string(kind)))
}

func (s *Site) setStatus(plan watch.Plan, r *build.Report, err error) {
	st := &RebuildStatus{
		BuildID:  r.BuildID,
		Plan:     plan.String(),
		Outcome:  r.Outcome,
		Summary:  r.Summary(),
		Finished: r.End,
		Tasks:    r.Tasks(),
		Issues:   r.Issues(),
		err:      err,
	}
	s.mu.Lock()
	s.status = st
	s.mu.Unlock()
}

// currentStatus reports the last rebuild. A failed rebuild is returned as
// its error so the server answers with the classified status code.
func (s *Site) currentStatus() (any, error) {
	s.mu.Lock()
	last, srv := s.status, s.server
	s.mu.Unlock()
	if last != nil && last.err != nil {
		return nil, last.err
	}

	st := &DevStatus{Outcome: "idle", Rebuild: last}
	if last != nil {
		st.Outcome = string(last.Outcome)
	}
	if srv != nil {
		st.LiveReloadClients = srv.Hub().Clients()
	}
	if s.projection != nil {
		st.ActiveBuild = s.projection.GetActiveBuild()
		st.LastBuild = s.projection.GetLastCompletedBuild()
		if synced := s.projection.LastSyncTime(); !synced.IsZero() {
			st.HistorySynced = &synced
		}
	}
	return st, nil
}
