// Package assets copies the public directory into the production output.
package assets

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/build"
	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/fileset"
	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// Selector matches every public file; only temp files are left behind.
var Selector = fileset.Selector{Include: []string{"**"}}

// Task copies paths.public into the output directory.
type Task struct {
	cfg *config.Config
}

// NewTask returns the assets task.
func NewTask(cfg *config.Config) *Task { return &Task{cfg: cfg} }

// Run implements build.Func.
func (t *Task) Run(ctx context.Context, st *build.State) error {
	files, err := fileset.Collect(t.cfg.Paths.Public, Selector, time.Time{})
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryAssets, "failed to list public files").
			WithContext("path", t.cfg.Paths.Public).Build()
	}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		dst := filepath.Join(st.OutDir, filepath.FromSlash(f.Rel))
		if err := CopyFile(f.Abs, dst); err != nil {
			return ferrors.WrapError(err, ferrors.CategoryAssets, "failed to copy asset").
				WithContext("path", f.Rel).Build()
		}
		slog.Debug("assets: copied", logfields.Path(f.Rel))
	}
	st.Report.AddFiles(build.TaskAssets, len(files))
	return nil
}

// CopyFile copies src to dst byte for byte, creating parent directories and
// keeping the source permission bits.
func CopyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return os.Chmod(dst, info.Mode().Perm())
}
