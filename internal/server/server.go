// Package server is the development HTTP server: it serves the dev output
// with the public directory as fallback and pushes live reload events.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
)

// Reserved paths.
const (
	EventsPath  = "/__livereload"
	ScriptPath  = "/__livereload.js"
	StatusPath  = "/__status"
	MetricsPath = "/metrics"
)

const shutdownTimeout = 5 * time.Second

// StatusFunc reports the latest rebuild. A non-nil error is served as a
// classified error response.
type StatusFunc func() (any, error)

// Options carries the optional collaborators of a Server.
type Options struct {
	Recorder metrics.Recorder
	// Registry enables /metrics when set.
	Registry *prom.Registry
	Status   StatusFunc
}

// Server is the dev server.
type Server struct {
	cfg     *config.Config
	outDir  string
	hub     *Hub
	opts    Options
	adapter *ferrors.HTTPErrorAdapter

	mu      sync.Mutex
	httpSrv *http.Server
	addr    string
	done    chan struct{}
}

// New prepares a server for outDir.
func New(cfg *config.Config, outDir string, opts Options) *Server {
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}
	return &Server{
		cfg:     cfg,
		outDir:  outDir,
		hub:     NewHub(opts.Recorder),
		opts:    opts,
		adapter: ferrors.NewHTTPErrorAdapter(nil),
	}
}

// Hub returns the live reload hub.
func (s *Server) Hub() *Hub { return s.hub }

// Handler builds the request router.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	files := noCache(layeredFiles(s.outDir, s.cfg.Paths.Public))
	if s.cfg.Dev.LiveReloadEnabled() {
		mux.Handle(EventsPath, s.hub)
		mux.HandleFunc(ScriptPath, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
			w.Header().Set("Cache-Control", "no-cache")
			_, _ = w.Write([]byte(ClientScript))
		})
		files = injectLiveReload(files)
	}
	mux.HandleFunc(StatusPath, s.handleStatus)
	if s.opts.Registry != nil {
		mux.Handle(MetricsPath, metrics.HTTPHandler(s.opts.Registry))
	}
	mux.Handle("/", files)
	return chain(s.adapter)(mux)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.opts.Status == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	body, err := s.opts.Status()
	if err != nil {
		s.adapter.WriteErrorResponse(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Debug("status encode", logfields.Error(err))
	}
}

// Start listens on dev.host:dev.port and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Dev.Addr())
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryServer, "failed to bind dev server").
			WithContext("addr", s.cfg.Dev.Addr()).Build()
	}
	return s.StartWithListener(ctx, ln)
}

// StartWithListener serves on ln until ctx is done. It returns once the
// server is accepting connections.
func (s *Server) StartWithListener(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.httpSrv != nil {
		s.mu.Unlock()
		_ = ln.Close()
		return ferrors.ServerError("dev server already started").Build()
	}
	// No write timeout: SSE connections are long-lived.
	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second, IdleTimeout: 120 * time.Second}
	s.httpSrv = srv
	s.addr = ln.Addr().String()
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()
	go func() {
		defer close(done)
		select {
		case <-ctx.Done():
			s.shutdown(srv)
			<-serveErr
		case err := <-serveErr:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Dev server stopped", logfields.Error(err))
			}
			s.hub.Shutdown()
		}
	}()
	slog.Info("Dev server listening", logfields.Addr("http://"+s.addr))
	return nil
}

func (s *Server) shutdown(srv *http.Server) {
	s.hub.Shutdown()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Warn("Dev server shutdown", logfields.Error(err))
		_ = srv.Close()
	}
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Done is closed after the server has stopped. It is nil before Start.
func (s *Server) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Reload broadcasts kind to connected browsers. It is a no-op before Start.
func (s *Server) Reload(kind ReloadKind) {
	s.mu.Lock()
	started := s.httpSrv != nil
	s.mu.Unlock()
	if !started || !s.cfg.Dev.LiveReloadEnabled() {
		return
	}
	s.hub.Broadcast(kind)
}
