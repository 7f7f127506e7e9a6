package hiddenapps

import (
	"context"
	"strings"
	"testing"

	"github.com/droidsift-project/droidsift/internal/core"
)

func score(t *testing.T, rec core.Record) *core.Finding {
	t.Helper()
	a := New()
	fs, err := a.Normalize(context.Background(), rec)
	if err != nil {
		t.Fatalf("Normalize() error: %v", err)
	}
	return a.Score(fs, nil)
}

func visibleApp(name string) core.Record {
	return core.Record{
		"app_name":     name,
		"package_name": "com.example." + strings.ToLower(name),
		"intents":      []interface{}{"android.intent.category.LAUNCHER"},
		"permissions":  []interface{}{"INTERNET"},
	}
}

// ─── Rule cascade ────────────────────────────────────────────────────────────

func TestNoLauncherIntentIsHigh(t *testing.T) {
	f := score(t, core.Record{
		"app_name":     "SystemHelper",
		"package_name": "com.cam.helper",
		"permissions":  []interface{}{"CAMERA", "READ_CONTACTS"},
		"intents":      []interface{}{},
	})
	if f.Risk != core.RiskHigh {
		t.Errorf("Risk = %v, want High", f.Risk)
	}
	found := false
	for _, r := range f.Reasons {
		if strings.Contains(r, "Hidden intent") {
			found = true
		}
	}
	if !found {
		t.Errorf("Reasons = %v, want one containing %q", f.Reasons, "Hidden intent")
	}
}

func TestSuspiciousKeywordIsHigh(t *testing.T) {
	for _, name := range []string{"PhotoVault", "GhostCam", "StealthNotes", "SpyRecorder"} {
		f := score(t, visibleApp(name))
		if f.Risk != core.RiskHigh {
			t.Errorf("Risk for %q = %v, want High", name, f.Risk)
		}
		if f.Reasons[0] != "Suspicious keyword" {
			t.Errorf("Reason for %q = %q", name, f.Reasons[0])
		}
	}
}

func TestBothIndicatorsAccumulateReasons(t *testing.T) {
	f := score(t, core.Record{
		"app_name":    "GhostVault",
		"intents":     []interface{}{},
		"permissions": []interface{}{},
	})
	if f.Risk != core.RiskHigh {
		t.Fatalf("Risk = %v, want High", f.Risk)
	}
	if len(f.Reasons) != 2 {
		t.Errorf("Reasons = %v, want both indicators", f.Reasons)
	}
}

func TestVisiblePlainAppIsLow(t *testing.T) {
	f := score(t, visibleApp("Calculator"))
	if f.Risk != core.RiskLow {
		t.Errorf("Risk = %v, want Low", f.Risk)
	}
	if f.Reasons[0] != "Normal behavior" {
		t.Errorf("Reason = %q, want Normal behavior", f.Reasons[0])
	}
}

// ─── Normalization ───────────────────────────────────────────────────────────

func TestNormalizeRequiresIdentity(t *testing.T) {
	a := New()
	_, err := a.Normalize(context.Background(), core.Record{"permissions": []interface{}{"CAMERA"}})
	if err == nil {
		t.Fatal("Normalize() with no app_name or package_name should fail")
	}
	if _, ok := err.(*core.MalformedRecordError); !ok {
		t.Errorf("error type = %T, want *core.MalformedRecordError", err)
	}
}

func TestPackageNameFallbackSubject(t *testing.T) {
	a := New()
	fs, err := a.Normalize(context.Background(), core.Record{
		"package_name": "com.ghost.vault",
		"intents":      []interface{}{"android.intent.category.LAUNCHER"},
	})
	if err != nil {
		t.Fatalf("Normalize() error: %v", err)
	}
	if fs.Subject() != "com.ghost.vault" {
		t.Errorf("Subject = %q, want package name fallback", fs.Subject())
	}
}

func TestFirstSeenCarriesIntoFinding(t *testing.T) {
	rec := visibleApp("Calculator")
	rec["first_seen"] = "2026-06-20 10:00:00"
	f := score(t, rec)
	if f.Timestamp.IsZero() {
		t.Fatal("Timestamp should carry first_seen")
	}

	a := New()
	row := a.CSVRow(core.RecordResult{Finding: f})
	if row[7] != "2026-06-20 10:00:00" {
		t.Errorf("First Seen column = %q", row[7])
	}
}

func TestCSVRowWidths(t *testing.T) {
	a := New()
	f := score(t, visibleApp("Calculator"))
	if got := len(a.CSVRow(core.RecordResult{Finding: f})); got != len(a.CSVHeader()) {
		t.Fatalf("row width = %d, want %d", got, len(a.CSVHeader()))
	}
	errRow := a.CSVRow(core.RecordResult{Err: &core.MalformedRecordError{Domain: core.DomainHiddenApp, Reason: "missing app_name and package_name"}})
	if len(errRow) != len(a.CSVHeader()) {
		t.Fatalf("error row width = %d, want %d", len(errRow), len(a.CSVHeader()))
	}
}
