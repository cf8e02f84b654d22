// Package watch decides what to rebuild when a source file changes in
// development mode, and drives those rebuilds from filesystem events.
package watch

import (
	"path/filepath"
	"sort"
	"strings"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/fileset"
)

// Area is the source tree a path belongs to.
type Area string

const (
	AreaStyles    Area = "styles"
	AreaPages     Area = "pages"
	AreaTemplates Area = "templates"
	AreaScripts   Area = "scripts"
	AreaData      Area = "data"
	AreaPublic    Area = "public"
	AreaNone      Area = ""
)

// Change is a classified filesystem change.
type Change struct {
	Path string
	// Rel is the slash-separated path relative to the area root.
	Rel     string
	Area    Area
	Partial bool
	Plan    Plan
}

// Ignored reports whether the change triggers nothing.
func (c Change) Ignored() bool { return c.Plan.Empty() }

type root struct {
	area Area
	dir  string
}

// Classifier maps paths to rebuild plans.
type Classifier struct {
	roots   []root
	pageExt string
}

// NewClassifier resolves the configured source directories.
func NewClassifier(cfg *config.Config) *Classifier {
	c := &Classifier{pageExt: cfg.Pages.Extension}
	for _, r := range []root{
		{AreaStyles, cfg.Paths.Styles},
		{AreaPages, cfg.Paths.Pages},
		{AreaTemplates, cfg.Paths.Templates},
		{AreaScripts, cfg.Paths.Scripts},
		{AreaData, cfg.Paths.Data},
		{AreaPublic, cfg.Paths.Public},
	} {
		if r.dir == "" {
			continue
		}
		if abs, err := filepath.Abs(r.dir); err == nil {
			r.dir = abs
		}
		c.roots = append(c.roots, r)
	}
	// Most specific root first, so nested trees win over their parents.
	sort.SliceStable(c.roots, func(i, j int) bool { return len(c.roots[i].dir) > len(c.roots[j].dir) })
	return c
}

// Dirs returns the watched source directories.
func (c *Classifier) Dirs() []string {
	out := make([]string, 0, len(c.roots))
	for _, r := range c.roots {
		out = append(out, r.dir)
	}
	return out
}

// Classify maps a changed path to the plan that brings the output up to date.
func (c *Classifier) Classify(path string) Change {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	ch := Change{Path: abs}
	base := filepath.Base(abs)
	if fileset.IsTemp(base) || strings.HasPrefix(base, ".") {
		return ch
	}
	for _, r := range c.roots {
		rel, err := filepath.Rel(r.dir, abs)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		ch.Area = r.area
		ch.Rel = filepath.ToSlash(rel)
		ch.Partial = fileset.IsPartial(ch.Rel)
		ch.Plan = c.plan(ch)
		return ch
	}
	return ch
}

func (c *Classifier) plan(ch Change) Plan {
	switch ch.Area {
	case AreaStyles:
		return Plan{Styles: true, Reload: ReloadCSS}
	case AreaPages:
		if !ch.Partial && strings.HasSuffix(ch.Rel, c.pageExt) {
			return Plan{Pages: true, Reload: ReloadFull}
		}
		return FullPages()
	case AreaTemplates, AreaData:
		return FullPages()
	case AreaScripts:
		return Plan{Scripts: true, Reload: ReloadFull}
	case AreaPublic:
		return Plan{Reload: ReloadFull}
	default:
		return Plan{}
	}
}
