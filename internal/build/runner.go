package build

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// Execute runs g against st, finishes the report and notifies the observer.
// The returned error is the first task failure (a *TaskError).
func Execute(ctx context.Context, g Graph, st *State) error {
	r := st.Report
	slog.Info("Build starting",
		logfields.BuildID(r.BuildID),
		slog.String("graph", g.Name),
		logfields.Mode(string(st.Mode)),
		logfields.Output(st.OutDir))
	st.observer.OnBuildStart(r)

	err := g.Root.Run(ctx, st)

	r.finish(err)
	st.observer.OnBuildComplete(r)
	if err != nil {
		slog.Error("Build failed", logfields.BuildID(r.BuildID), slog.String("summary", r.Summary()), logfields.Error(err))
		return err
	}
	slog.Info("Build finished", logfields.BuildID(r.BuildID), slog.String("summary", r.Summary()))
	return nil
}
