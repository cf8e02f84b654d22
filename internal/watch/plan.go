package watch

import (
	"strings"

	"git.home.luguber.info/inful/sitebuilder/internal/build"
)

// Reload is how much the browser has to refresh. Higher values dominate.
type Reload int

const (
	ReloadNone Reload = iota
	ReloadCSS
	ReloadFull
)

func (r Reload) String() string {
	switch r {
	case ReloadCSS:
		return "css"
	case ReloadFull:
		return "full"
	default:
		return "none"
	}
}

// Plan is the set of tasks one rebuild runs.
type Plan struct {
	// ResetPages makes the pages run a full one.
	ResetPages bool
	Styles     bool
	Scripts    bool
	Pages      bool
	Reload     Reload
}

// FullPages re-renders every page.
func FullPages() Plan {
	return Plan{ResetPages: true, Pages: true, Reload: ReloadFull}
}

// Everything rebuilds all dev outputs; used by periodic resyncs.
func Everything() Plan {
	return Plan{ResetPages: true, Styles: true, Scripts: true, Pages: true, Reload: ReloadFull}
}

// Empty reports whether the plan does nothing.
func (p Plan) Empty() bool {
	return !p.ResetPages && !p.Styles && !p.Scripts && !p.Pages && p.Reload == ReloadNone
}

// Merge unions two plans. A full pages run dominates an incremental one and
// a full reload dominates a CSS reload.
func (p Plan) Merge(o Plan) Plan {
	return Plan{
		ResetPages: p.ResetPages || o.ResetPages,
		Styles:     p.Styles || o.Styles,
		Scripts:    p.Scripts || o.Scripts,
		Pages:      p.Pages || o.Pages,
		Reload:     max(p.Reload, o.Reload),
	}
}

// Tasks lists the leaf tasks of the plan in execution order.
func (p Plan) Tasks() []build.TaskName {
	var out []build.TaskName
	if p.ResetPages {
		out = append(out, build.TaskResetPages)
	}
	if p.Styles {
		out = append(out, build.TaskStyles)
	}
	if p.Scripts {
		out = append(out, build.TaskScripts)
	}
	if p.Pages {
		out = append(out, build.TaskPages)
	}
	if p.Reload != ReloadNone {
		out = append(out, build.TaskReload)
	}
	return out
}

func (p Plan) String() string {
	names := make([]string, 0, 5)
	for _, n := range p.Tasks() {
		names = append(names, string(n))
	}
	return strings.Join(names, ",") + " reload=" + p.Reload.String()
}

// Graph arranges the plan as reset_pages -> parallel(styles, scripts, pages) -> reload,
// leaving out whatever the plan does not need.
func (p Plan) Graph(f build.Funcs) build.Graph {
	var steps []build.Task
	if p.ResetPages {
		steps = append(steps, f.Leaf(build.TaskResetPages))
	}
	var work []build.Task
	if p.Styles {
		work = append(work, f.Leaf(build.TaskStyles))
	}
	if p.Scripts {
		work = append(work, f.Leaf(build.TaskScripts))
	}
	if p.Pages {
		work = append(work, f.Leaf(build.TaskPages))
	}
	switch len(work) {
	case 0:
	case 1:
		steps = append(steps, work[0])
	default:
		steps = append(steps, build.Parallel(work...))
	}
	if p.Reload != ReloadNone {
		steps = append(steps, f.Leaf(build.TaskReload))
	}
	return build.Graph{Name: "rebuild", Root: build.Series(steps...)}
}
