package styles

import (
	"context"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/build"
	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/fileset"
	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// Selector picks the compiled entry points: every non-partial .scss file.
var Selector = fileset.Selector{Include: []string{"**/*.scss"}, SkipPartials: true}

// OutputSubdir is where stylesheets land inside the output directory.
const OutputSubdir = "css"

// Task compiles every entry under paths.styles into <out>/css.
type Task struct {
	cfg      *config.Config
	compiler Compiler
}

// NewTask returns the styles task backed by compiler.
func NewTask(cfg *config.Config, compiler Compiler) *Task {
	return &Task{cfg: cfg, compiler: compiler}
}

// Run implements build.Func.
func (t *Task) Run(ctx context.Context, st *build.State) error {
	files, err := fileset.Collect(t.cfg.Paths.Styles, Selector, time.Time{})
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryStyles, "failed to list stylesheets").
			WithContext("path", t.cfg.Paths.Styles).Build()
	}
	outRoot := filepath.Join(st.OutDir, OutputSubdir)
	for _, f := range files {
		if err := t.compileOne(ctx, st, f, outRoot); err != nil {
			return err
		}
	}
	return nil
}

func (t *Task) compileOne(ctx context.Context, st *build.State, f fileset.File, outRoot string) error {
	src, err := os.ReadFile(f.Abs)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryStyles, "failed to read stylesheet").
			WithContext("path", f.Rel).Build()
	}
	includes := append(append([]string{}, t.cfg.Styles.IncludePaths...), filepath.Dir(f.Abs))
	res, err := t.compiler.Compile(ctx, Request{
		Path:         f.Abs,
		Source:       string(src),
		IncludePaths: includes,
		Compressed:   !st.Dev(),
		SourceMap:    st.Dev() && t.cfg.Styles.SourceMaps,
	})
	if err != nil {
		if ferrors.IsClassified(err) || ctx.Err() != nil {
			return err
		}
		return ferrors.WrapError(err, ferrors.CategoryStyles, "failed to compile stylesheet").
			WithContext("path", f.Rel).Build()
	}

	rel := fileset.ReplaceExt(f.Rel, ".css")
	out := filepath.Join(outRoot, filepath.FromSlash(rel))
	css := res.CSS
	written := 1
	if res.SourceMap != "" {
		css += "\n/*# sourceMappingURL=" + path.Base(rel) + ".map */\n"
		if err := writeFile(out+".map", []byte(res.SourceMap)); err != nil {
			return err
		}
		written++
	}
	if err := writeFile(out, []byte(css)); err != nil {
		return err
	}
	st.Report.AddFiles(build.TaskStyles, written)
	slog.Debug("styles: compiled", logfields.Path(f.Rel), logfields.Output(out))
	return nil
}

func writeFile(p string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to create output directory").
			WithContext("path", filepath.Dir(p)).Build()
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to write output").
			WithContext("path", p).Build()
	}
	return nil
}
