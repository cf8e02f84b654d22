package build

import (
	"context"
	"log/slog"
	"os"

	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// InitOutput removes the output directory, tolerating its absence, and
// recreates it empty.
func InitOutput(_ context.Context, st *State) error {
	if err := os.RemoveAll(st.OutDir); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to clean output directory").
			WithContext("path", st.OutDir).Build()
	}
	if err := os.MkdirAll(st.OutDir, 0o755); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to create output directory").
			WithContext("path", st.OutDir).Build()
	}
	slog.Debug("Output directory ready", logfields.Output(st.OutDir))
	return nil
}
