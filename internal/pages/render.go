package pages

import (
	"fmt"
	"log/slog"
	"maps"
	"path"
	"regexp"
	"strings"

	"github.com/flosch/pongo2/v6"
	"github.com/yosssi/gohtml"

	"git.home.luguber.info/inful/sitebuilder/internal/fileset"
	"git.home.luguber.info/inful/sitebuilder/internal/markdown"
)

func init() {
	if !pongo2.FilterExists("markdown") {
		_ = pongo2.RegisterFilter("markdown", filterMarkdown)
	}
}

func filterMarkdown(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	html, err := markdown.Render([]byte(in.String()))
	if err != nil {
		return nil, &pongo2.Error{Sender: "filter:markdown", OrigError: err}
	}
	return pongo2.AsSafeValue(html), nil
}

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// PageInfo is exposed to templates as {{ page }}.
type PageInfo struct {
	// Path is the source page relative to the pages directory.
	Path string
	// Output is the rendered file relative to the output directory.
	Output string
	// URL is the site-absolute URL of the page.
	URL string
}

func newPageInfo(rel string) PageInfo {
	out := fileset.ReplaceExt(rel, ".html")
	return PageInfo{Path: rel, Output: out, URL: PageURL(out)}
}

// PageURL maps an output path to its URL: index.html files are served as
// their directory.
func PageURL(output string) string {
	u := "/" + strings.TrimPrefix(output, "/")
	if path.Base(u) == "index.html" {
		return strings.TrimSuffix(u, "index.html")
	}
	return u
}

// templateContext builds the pongo2 context from site data plus page info.
// Keys that are not valid identifiers cannot be referenced from templates
// and are dropped.
func templateContext(data map[string]any, page PageInfo) pongo2.Context {
	ctx := pongo2.Context{}
	for k, v := range data {
		if !identifier.MatchString(k) {
			slog.Debug("pages: ignoring data key", slog.String("key", k))
			continue
		}
		ctx[k] = v
	}
	ctx["page"] = map[string]any{
		"path":   page.Path,
		"output": page.Output,
		"url":    page.URL,
	}
	return ctx
}

// renderer executes page sources against one template set.
type renderer struct {
	set      *pongo2.TemplateSet
	data     map[string]any
	beautify bool
}

func newRenderer(set *pongo2.TemplateSet, data map[string]any, beautify bool) *renderer {
	return &renderer{set: set, data: maps.Clone(data), beautify: beautify}
}

func (r *renderer) render(name string, src []byte, page PageInfo) ([]byte, error) {
	tpl, err := r.set.FromBytes(src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	out, err := tpl.ExecuteBytes(templateContext(r.data, page))
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	if r.beautify {
		out = []byte(gohtml.Format(string(out)))
	}
	return out, nil
}
