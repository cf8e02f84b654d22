package logfields

import (
	"errors"
	"log/slog"
	"testing"
	"time"
)

// Key drift would break anything parsing our JSON logs.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    slog.Attr
	}{
		{"BuildID", KeyBuildID, "b1", BuildID("b1")},
		{"Task", KeyTask, "styles", Task("styles")},
		{"Mode", KeyMode, "dev", Mode("dev")},
		{"Path", KeyPath, "src/pages/index.njk", Path("src/pages/index.njk")},
		{"Output", KeyOutput, "_dev/index.html", Output("_dev/index.html")},
		{"Result", KeyResult, "success", Result("success")},
		{"Reason", KeyReason, "partial", Reason("partial")},
		{"Addr", KeyAddr, "localhost:3000", Addr("localhost:3000")},
		{"Method", KeyMethod, "GET", Method("GET")},
		{"Kind", KeyKind, "css", Kind("css")},
	}
	for _, tc := range cases {
		if tc.attr.Key != tc.attrKey {
			t.Fatalf("%s: expected key %s, got %s", tc.name, tc.attrKey, tc.attr.Key)
		}
		if got := tc.attr.Value.String(); got != tc.attrVal {
			t.Fatalf("%s: expected value %s, got %s", tc.name, tc.attrVal, got)
		}
	}
}

func TestNumericHelpers(t *testing.T) {
	if a := Files(3); a.Key != KeyFiles || a.Value.Int64() != 3 {
		t.Fatalf("Files mismatch: %v", a)
	}
	if a := Duration(1500 * time.Microsecond); a.Key != KeyDurationMS || a.Value.Float64() != 1.5 {
		t.Fatalf("Duration mismatch: %v", a)
	}
}

func TestErrorHelper(t *testing.T) {
	if a := Error(nil); a.Key != KeyError || a.Value.String() != "" {
		t.Fatalf("nil error mismatch: %v", a)
	}
	if a := Error(errors.New("boom")); a.Value.String() != "boom" {
		t.Fatalf("error mismatch: %v", a)
	}
}
