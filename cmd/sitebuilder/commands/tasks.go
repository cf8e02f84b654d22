package commands

import (
	"fmt"
	"strings"

	"git.home.luguber.info/inful/sitebuilder/internal/build"
)

// TasksCmd implements the 'tasks' command.
type TasksCmd struct{}

func (t *TasksCmd) Run(g *Global, root *CLI) error {
	s, err := openSite(root)
	if err != nil {
		return err
	}
	defer closeSite(s)

	for i, graph := range s.Graphs() {
		if i > 0 {
			_, _ = fmt.Fprintln(g.Out)
		}
		_, _ = fmt.Fprint(g.Out, graph.Describe())
		names := build.Leaves(graph.Root)
		leaves := make([]string, len(names))
		for i, n := range names {
			leaves[i] = string(n)
		}
		_, _ = fmt.Fprintf(g.Out, "  runs: %s\n", strings.Join(leaves, ", "))
	}
	return nil
}
