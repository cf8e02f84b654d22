package build

import (
	"fmt"
	"strings"
)

// Graph is a named task tree.
type Graph struct {
	Name string
	Root Task
}

// Funcs supplies the implementation of each leaf task. Graph constructors
// only arrange the leaves; they never decide what a task does.
type Funcs map[TaskName]Func

// Leaf returns the leaf task for name.
func (f Funcs) Leaf(name TaskName) Task { return Leaf(name, f[name]) }

// DevGraph: init, then scripts/styles/pages in parallel, then serve, then watch.
func DevGraph(f Funcs) Graph {
	return Graph{
		Name: "dev",
		Root: Series(
			f.Leaf(TaskInit),
			Parallel(f.Leaf(TaskScripts), f.Leaf(TaskStyles), f.Leaf(TaskPages)),
			f.Leaf(TaskServe),
			f.Leaf(TaskWatch),
		),
	}
}

// ProductionGraph: init, then scripts and styles alongside a
// (assets || pages) -> sitemap chain. The sitemap waits for pages only.
func ProductionGraph(f Funcs) Graph {
	return Graph{
		Name: "build",
		Root: Series(
			f.Leaf(TaskInit),
			Parallel(
				f.Leaf(TaskScripts),
				f.Leaf(TaskStyles),
				Series(
					Parallel(f.Leaf(TaskAssets), f.Leaf(TaskPages)),
					f.Leaf(TaskSitemap),
				),
			),
		),
	}
}

// SingleTaskGraph runs one leaf without init.
func SingleTaskGraph(name TaskName, f Funcs) Graph {
	return Graph{Name: string(name), Root: f.Leaf(name)}
}

// Describe renders the graph as an indented tree.
func (g Graph) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", g.Name)
	describe(&b, g.Root, 1)
	return b.String()
}

func describe(b *strings.Builder, t Task, depth int) {
	fmt.Fprintf(b, "%s%s\n", strings.Repeat("  ", depth), t.Name())
	if c, ok := t.(Composite); ok {
		for _, child := range c.Children() {
			describe(b, child, depth+1)
		}
	}
}
