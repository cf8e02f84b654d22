// Package fileset selects source files the way every build task does: include
// globs relative to a root, minus editor/backup leftovers and, for compiled
// sources, partials.
package fileset

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// TempPatterns match editor swap files, backups and merge leftovers. They are
// matched against the base name of a path.
var TempPatterns = []string{
	"*~",
	"#*#",
	"*.tmp", "*.tmp.*", "*.tmp-*",
	"*.bak", "*.bak.*", "*.bak-*",
	"*.ORIG", "*.ORIG.*", "*.ORIG-*",
	"*.orig", "*.orig.*", "*.orig-*",
}

// IsTemp reports whether the base name of rel matches a temp pattern.
func IsTemp(rel string) bool {
	base := path.Base(filepath.ToSlash(rel))
	for _, p := range TempPatterns {
		if ok, _ := path.Match(p, base); ok {
			return true
		}
	}
	return false
}

// IsPartial reports whether any segment of rel starts with an underscore:
// either the file itself (_header.njk) or one of its directories (_layouts/base.njk).
func IsPartial(rel string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(seg, "_") {
			return true
		}
	}
	return false
}

// Selector describes which files under a root a task consumes.
type Selector struct {
	// Include globs, relative to the root, using ** for any depth.
	Include []string
	// Exclude globs applied after Include.
	Exclude []string
	// SkipPartials drops any path with an underscore-prefixed segment.
	SkipPartials bool
}

// Matches reports whether the slash-separated relative path is selected.
func (s Selector) Matches(rel string) bool {
	rel = filepath.ToSlash(rel)
	if IsTemp(rel) || (s.SkipPartials && IsPartial(rel)) {
		return false
	}
	for _, p := range s.Exclude {
		if ok, _ := doublestar.Match(p, rel); ok {
			return false
		}
	}
	for _, p := range s.Include {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// File is a selected source file.
type File struct {
	// Rel is the slash-separated path relative to the root.
	Rel     string
	Abs     string
	ModTime time.Time
}

// Collect walks root and returns the selected files sorted by Rel. When since
// is non-zero, only files modified strictly after since are returned. A
// missing root yields no files.
func Collect(root string, sel Selector, since time.Time) ([]File, error) {
	var files []File
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !sel.Matches(rel) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if !since.IsZero() && !info.ModTime().After(since) {
			return nil
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		files = append(files, File{Rel: rel, Abs: abs, ModTime: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Rel < files[j].Rel })
	return files, nil
}

// Exists reports whether dir exists and is a directory.
func Exists(dir string) bool {
	st, err := os.Stat(dir)
	return err == nil && st.IsDir()
}

// ReplaceExt swaps the extension of rel for ext.
func ReplaceExt(rel, ext string) string {
	return strings.TrimSuffix(rel, path.Ext(rel)) + ext
}
