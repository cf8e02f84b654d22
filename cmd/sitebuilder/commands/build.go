package commands

import (
	"fmt"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/build"
	"git.home.luguber.info/inful/sitebuilder/internal/config"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct{}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	s, err := openSite(root)
	if err != nil {
		return err
	}
	defer closeSite(s)

	ctx, cancel := signalContext()
	defer cancel()

	_, _ = fmt.Fprintf(g.Out, "Building site into %s\n", s.Config().OutputDir(config.ModeProd))
	report, err := s.Build(ctx)
	printReport(g, report, err)
	return err
}

// SassCmd implements the 'sass' command.
type SassCmd struct {
	Dev bool `help:"Write to the dev output directory"`
}

func (c *SassCmd) Run(g *Global, root *CLI) error {
	return runTask(g, root, build.TaskStyles, c.Dev)
}

// HTMLCmd implements the 'html' command.
type HTMLCmd struct {
	Dev bool `help:"Write to the dev output directory"`
}

func (c *HTMLCmd) Run(g *Global, root *CLI) error {
	return runTask(g, root, build.TaskPages, c.Dev)
}

// JSCmd implements the 'js' command.
type JSCmd struct {
	Dev bool `help:"Write to the dev output directory"`
}

func (c *JSCmd) Run(g *Global, root *CLI) error {
	return runTask(g, root, build.TaskScripts, c.Dev)
}

func runTask(g *Global, root *CLI, name build.TaskName, dev bool) error {
	s, err := openSite(root)
	if err != nil {
		return err
	}
	defer closeSite(s)

	ctx, cancel := signalContext()
	defer cancel()

	report, err := s.RunTask(ctx, name, modeFor(dev))
	printReport(g, report, err)
	return err
}

func printReport(g *Global, r *build.Report, err error) {
	if r == nil {
		return
	}
	for _, t := range r.Tasks() {
		line := fmt.Sprintf("  %-12s %-9s %6s  files=%d", t.Task, t.Result, t.Duration.Round(time.Millisecond), t.Files)
		_, _ = fmt.Fprintln(g.Out, line)
	}
	_, _ = fmt.Fprintf(g.Out, "Build %s (%s)\n", r.Outcome, r.Duration().Round(time.Millisecond))
	if name, ok := build.FailedTask(err); ok && r.Outcome == build.OutcomeFailed {
		_, _ = fmt.Fprintf(g.Out, "Failed task: %s\n", name)
	}
}
