// Package styles compiles the SCSS entry points of the site into CSS.
package styles

import (
	"context"
	"log/slog"
	"net/url"
	"path/filepath"
	"sync"

	"github.com/bep/godartsass/v2"

	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// Request is one stylesheet to compile.
type Request struct {
	// Path is the absolute path of the entry file, used for error locations
	// and relative imports.
	Path         string
	Source       string
	IncludePaths []string
	Compressed   bool
	SourceMap    bool
}

// Result holds the compiled CSS and, when requested, its source map.
type Result struct {
	CSS       string
	SourceMap string
}

// Compiler turns SCSS into CSS.
type Compiler interface {
	Compile(ctx context.Context, req Request) (Result, error)
	Close() error
}

// DartSass compiles through the Dart Sass embedded protocol. The sass process
// is started on first use and shared until Close.
type DartSass struct {
	binary string

	once sync.Once
	mu   sync.Mutex
	tr   *godartsass.Transpiler
	err  error
}

// NewDartSass returns a compiler using binary; empty means "sass" on PATH.
func NewDartSass(binary string) *DartSass {
	return &DartSass{binary: binary}
}

func (d *DartSass) start() (*godartsass.Transpiler, error) {
	d.once.Do(func() {
		d.tr, d.err = godartsass.Start(godartsass.Options{
			DartSassEmbeddedFilename: d.binary,
			LogEventHandler:          logSassEvent,
		})
		if d.err != nil {
			d.err = ferrors.WrapError(d.err, ferrors.CategoryStyles, "failed to start dart sass").
				WithContext("binary", d.binaryName()).
				Fatal().
				Build()
		}
	})
	return d.tr, d.err
}

func (d *DartSass) binaryName() string {
	if d.binary == "" {
		return "sass"
	}
	return d.binary
}

// Compile runs one entry through the transpiler.
func (d *DartSass) Compile(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if _, err := d.start(); err != nil {
		return Result{}, err
	}
	style := godartsass.OutputStyleExpanded
	if req.Compressed {
		style = godartsass.OutputStyleCompressed
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.tr == nil {
		return Result{}, ferrors.InternalError("sass compiler already closed").Build()
	}
	res, err := d.tr.Execute(godartsass.Args{
		Source:          req.Source,
		URL:             fileURL(req.Path),
		OutputStyle:     style,
		SourceSyntax:    godartsass.SourceSyntaxSCSS,
		IncludePaths:    req.IncludePaths,
		EnableSourceMap: req.SourceMap,
	})
	if err != nil {
		return Result{}, err
	}
	return Result{CSS: res.CSS, SourceMap: res.SourceMap}, nil
}

// Close stops the sass process if it was started.
func (d *DartSass) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.tr == nil {
		return nil
	}
	err := d.tr.Close()
	d.tr = nil
	return err
}

func logSassEvent(e godartsass.LogEvent) {
	switch e.Type {
	case godartsass.LogEventTypeWarning:
		slog.Warn("sass warning", slog.String("message", e.Message))
	default:
		// Deprecations come almost exclusively from dependencies.
		slog.Debug("sass", slog.String("message", e.Message))
	}
}

func fileURL(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
}
