package eventstore

import (
	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// Sentinel errors for history store failures. Callers wrap the cause with
// ferrors.WrapError and match with errors.Is against these.
var (
	ErrDatabaseOpenFailed     = ferrors.HistoryError("could not open build history database").Build()
	ErrInitializeSchemaFailed = ferrors.HistoryError("failed to initialize build history schema").Build()
	ErrEventAppendFailed      = ferrors.HistoryError("failed to append build event").Build()
	ErrEventQueryFailed       = ferrors.HistoryError("failed to query build events").Build()
	ErrMarshalPayloadFailed   = ferrors.HistoryError("failed to marshal event payload").Build()
)
