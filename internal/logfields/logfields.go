package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field names shared by every package.
const (
	KeyBuildID    = "build_id"
	KeyTask       = "task"
	KeyMode       = "mode"
	KeyPath       = "path"
	KeyOutput     = "output"
	KeyFiles      = "files"
	KeyDurationMS = "duration_ms"
	KeyResult     = "result"
	KeyReason     = "reason"
	KeyAddr       = "addr"
	KeyError      = "error"
	KeyMethod     = "method"
	KeyStatus     = "status"
	KeyKind       = "kind"
	KeyClients    = "clients"
)

func BuildID(id string) slog.Attr     { return slog.String(KeyBuildID, id) }
func Task(name string) slog.Attr      { return slog.String(KeyTask, name) }
func Mode(m string) slog.Attr         { return slog.String(KeyMode, m) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Output(p string) slog.Attr       { return slog.String(KeyOutput, p) }
func Files(n int) slog.Attr           { return slog.Int(KeyFiles, n) }
func Result(r string) slog.Attr       { return slog.String(KeyResult, r) }
func Reason(r string) slog.Attr       { return slog.String(KeyReason, r) }
func Addr(a string) slog.Attr         { return slog.String(KeyAddr, a) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Method(m string) slog.Attr       { return slog.String(KeyMethod, m) }
func Status(code int) slog.Attr       { return slog.Int(KeyStatus, code) }
func Kind(k string) slog.Attr         { return slog.String(KeyKind, k) }
func Clients(n int) slog.Attr         { return slog.Int(KeyClients, n) }

// Duration reports d in milliseconds under KeyDurationMS.
func Duration(d time.Duration) slog.Attr {
	return DurationMS(float64(d.Microseconds()) / 1000)
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
