package commands

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/eventstore"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Build string `arg:"" optional:"" help:"Show the tasks of one build (ID or unique prefix)"`
	Limit int    `short:"n" default:"20" help:"Number of builds to show (0 for all)"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	s, err := openSite(root)
	if err != nil {
		return err
	}
	defer closeSite(s)

	ctx, cancel := signalContext()
	defer cancel()

	if h.Build != "" {
		b, err := s.HistoryBuild(ctx, h.Build)
		if err != nil {
			return err
		}
		return printBuild(g.Out, b)
	}

	view, err := s.History(ctx, h.Limit)
	if err != nil {
		return err
	}
	if view.Active == nil && len(view.Builds) == 0 {
		_, _ = fmt.Fprintln(g.Out, "No builds recorded")
		return nil
	}

	tw := tabwriter.NewWriter(g.Out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "STARTED\tBUILD\tGRAPH\tMODE\tSTATUS\tDURATION\tFILES\tFAILED TASK")
	if view.Active != nil {
		writeRow(tw, view.Active)
	}
	for _, b := range view.Builds {
		writeRow(tw, b)
	}
	return tw.Flush()
}

func writeRow(w io.Writer, b *eventstore.BuildSummary) {
	duration := "-"
	if b.CompletedAt != nil {
		duration = b.Duration.Round(time.Millisecond).String()
	}
	_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
		b.StartedAt.Local().Format(time.DateTime),
		shortID(b.BuildID), b.Graph, b.Mode, b.Status,
		duration, b.Files, b.ErrorTask)
}

func printBuild(out io.Writer, b *eventstore.BuildSummary) error {
	_, _ = fmt.Fprintf(out, "Build %s (%s, %s): %s\n", b.BuildID, b.Graph, b.Mode, b.Status)
	_, _ = fmt.Fprintf(out, "Started %s\n", b.StartedAt.Local().Format(time.DateTime))
	if b.ErrorMessage != "" {
		_, _ = fmt.Fprintf(out, "Failed in %s: %s\n", b.ErrorTask, b.ErrorMessage)
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "TASK\tRESULT\tDURATION\tFILES")
	for _, t := range b.Tasks {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", t.Task, t.Result, t.Duration.Round(time.Millisecond), t.Files)
	}
	return tw.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
