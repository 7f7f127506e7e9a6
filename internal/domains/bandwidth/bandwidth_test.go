package bandwidth

import (
	"context"
	"testing"

	"github.com/droidsift-project/droidsift/internal/core"
)

const mb = 1024 * 1024

func score(t *testing.T, a *Analyzer, rec core.Record, clf core.Classifier) *core.Finding {
	t.Helper()
	fs, err := a.Normalize(context.Background(), rec)
	if err != nil {
		t.Fatalf("Normalize() error: %v", err)
	}
	return a.Score(fs, clf)
}

// fixedClassifier returns a constant probability regardless of features.
type fixedClassifier struct {
	prob float64
}

func (c *fixedClassifier) PredictProbability(fs core.FeatureSet) (float64, error) {
	return c.prob, nil
}

func (c *fixedClassifier) Predict(fs core.FeatureSet) (core.RiskLevel, error) {
	return core.RiskLow, nil
}

// ─── Rule cascade ────────────────────────────────────────────────────────────

func TestLargeUploadIsHigh(t *testing.T) {
	a := New(DefaultThresholdMB)
	f := score(t, a, core.Record{
		"timestamp":    "2026-07-01 10:00:00",
		"destination":  "198.51.100.7",
		"upload_bytes": float64(6 * mb),
	}, nil)
	if f.Risk != core.RiskHigh {
		t.Errorf("Risk = %v, want High", f.Risk)
	}
	if f.Reasons[0] != "Upload exceeds 5 MB" {
		t.Errorf("Reason = %q", f.Reasons[0])
	}
}

func TestAfterHoursUploadIsHigh(t *testing.T) {
	a := New(DefaultThresholdMB)
	for _, ts := range []string{"2026-07-01 03:00:00", "2026-07-01 17:00:00", "2026-07-01 08:59:00"} {
		f := score(t, a, core.Record{
			"timestamp":    ts,
			"destination":  "198.51.100.7",
			"upload_bytes": float64(mb / 2),
		}, nil)
		if f.Risk != core.RiskHigh {
			t.Errorf("Risk at %s = %v, want High", ts, f.Risk)
		}
		if f.Reasons[0] != "After-hours upload" {
			t.Errorf("Reason at %s = %q", ts, f.Reasons[0])
		}
	}
}

func TestThresholdUploadIsIntermediate(t *testing.T) {
	a := New(DefaultThresholdMB)
	f := score(t, a, core.Record{
		"timestamp":    "2026-07-01 10:00:00",
		"destination":  "198.51.100.7",
		"upload_bytes": float64(2 * mb),
	}, nil)
	if f.Risk != core.RiskIntermediate {
		t.Errorf("Risk = %v, want Intermediate", f.Risk)
	}
}

func TestWorkHoursSmallUploadIsLow(t *testing.T) {
	a := New(DefaultThresholdMB)
	f := score(t, a, core.Record{
		"timestamp":    "2026-07-01 10:00:00",
		"destination":  "198.51.100.7",
		"upload_bytes": float64(mb / 4),
	}, nil)
	if f.Risk != core.RiskLow {
		t.Errorf("Risk = %v, want Low", f.Risk)
	}
	if f.Reasons[0] != "Normal" {
		t.Errorf("Reason = %q, want Normal", f.Reasons[0])
	}
}

func TestModelProbabilityRules(t *testing.T) {
	a := New(DefaultThresholdMB)
	rec := core.Record{
		"timestamp":    "2026-07-01 10:00:00",
		"destination":  "198.51.100.7",
		"upload_bytes": float64(mb / 4),
	}

	high := score(t, a, rec, &fixedClassifier{prob: 0.95})
	if high.Risk != core.RiskHigh {
		t.Errorf("Risk with p=0.95 = %v, want High", high.Risk)
	}
	if high.Reasons[0] != "Model anomaly score" {
		t.Errorf("Reason = %q", high.Reasons[0])
	}

	inter := score(t, a, rec, &fixedClassifier{prob: 0.6})
	if inter.Risk != core.RiskIntermediate {
		t.Errorf("Risk with p=0.6 = %v, want Intermediate", inter.Risk)
	}

	low := score(t, a, rec, &fixedClassifier{prob: 0.1})
	if low.Risk != core.RiskLow {
		t.Errorf("Risk with p=0.1 = %v, want Low", low.Risk)
	}
}

func TestCustomThreshold(t *testing.T) {
	a := New(3.0)
	f := score(t, a, core.Record{
		"timestamp":    "2026-07-01 10:00:00",
		"destination":  "198.51.100.7",
		"upload_bytes": float64(2 * mb),
	}, nil)
	if f.Risk != core.RiskLow {
		t.Errorf("Risk below the raised threshold = %v, want Low", f.Risk)
	}
}

// ─── Normalization ───────────────────────────────────────────────────────────

func TestNormalizeRejectsBadRecords(t *testing.T) {
	a := New(DefaultThresholdMB)

	cases := []struct {
		name string
		rec  core.Record
	}{
		{"missing timestamp", core.Record{"destination": "x", "upload_bytes": float64(mb)}},
		{"missing bytes", core.Record{"timestamp": "2026-07-01 10:00:00", "destination": "x"}},
		{"negative bytes", core.Record{"timestamp": "2026-07-01 10:00:00", "destination": "x", "upload_bytes": -5.0}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := a.Normalize(context.Background(), tc.rec)
			if err == nil {
				t.Fatal("Normalize() should fail")
			}
			if _, ok := err.(*core.MalformedRecordError); !ok {
				t.Errorf("error type = %T, want *core.MalformedRecordError", err)
			}
		})
	}
}

func TestNormalizeDefaultsDestination(t *testing.T) {
	a := New(DefaultThresholdMB)
	fs, err := a.Normalize(context.Background(), core.Record{
		"timestamp":    "2026-07-01 10:00:00",
		"upload_bytes": float64(mb),
	})
	if err != nil {
		t.Fatalf("Normalize() error: %v", err)
	}
	if fs.Subject() != "Unknown" {
		t.Errorf("Subject = %q, want Unknown", fs.Subject())
	}
}

func TestCSVRowWidths(t *testing.T) {
	a := New(DefaultThresholdMB)
	f := score(t, a, core.Record{
		"timestamp":    "2026-07-01 10:00:00",
		"destination":  "198.51.100.7",
		"upload_bytes": float64(6 * mb),
	}, nil)
	if got := len(a.CSVRow(core.RecordResult{Finding: f})); got != len(a.CSVHeader()) {
		t.Fatalf("row width = %d, want %d", got, len(a.CSVHeader()))
	}
	errRow := a.CSVRow(core.RecordResult{Err: &core.MalformedRecordError{Domain: core.DomainBandwidth, Subject: "x", Reason: "missing upload_bytes field"}})
	if len(errRow) != len(a.CSVHeader()) {
		t.Fatalf("error row width = %d, want %d", len(errRow), len(a.CSVHeader()))
	}
}
