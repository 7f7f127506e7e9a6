package email

import (
	"context"
	"testing"

	"github.com/droidsift-project/droidsift/internal/core"
)

func score(t *testing.T, a *Analyzer, rec core.Record) *core.Finding {
	t.Helper()
	fs, err := a.Normalize(context.Background(), rec)
	if err != nil {
		t.Fatalf("Normalize() error: %v", err)
	}
	return a.Score(fs, nil)
}

// ─── Weighted scoring ────────────────────────────────────────────────────────

func TestAuthFailuresSumToIntermediate(t *testing.T) {
	a := New(DefaultWeights(), nil)
	// SPF 2.0 + DKIM 1.5 + DMARC 1.5 = 5.0 → Intermediate.
	f := score(t, a, core.Record{
		"sender": "alice@plain-company.net",
		"spf":    "fail",
		"dkim":   "fail",
		"dmarc":  "fail",
	})
	if f.Score != 5.0 {
		t.Errorf("Score = %.1f, want 5.0", f.Score)
	}
	if f.Risk != core.RiskIntermediate {
		t.Errorf("Risk = %v, want Intermediate", f.Risk)
	}
}

func TestBulkSendPushesToHigh(t *testing.T) {
	a := New(DefaultWeights(), nil)
	// 5.0 from auth failures + 2.5 bulk = 7.5 → High.
	f := score(t, a, core.Record{
		"sender":               "alice@plain-company.net",
		"spf":                  "fail",
		"dkim":                 "fail",
		"dmarc":                "fail",
		"count_same_timestamp": 12,
	})
	if f.Score != 7.5 {
		t.Errorf("Score = %.1f, want 7.5", f.Score)
	}
	if f.Risk != core.RiskHigh {
		t.Errorf("Risk = %v, want High", f.Risk)
	}
	found := false
	for _, r := range f.Reasons {
		if r == "Bulk emails sent at once" {
			found = true
		}
	}
	if !found {
		t.Errorf("Reasons = %v, missing bulk reason", f.Reasons)
	}
}

func TestCleanSenderIsLow(t *testing.T) {
	a := New(DefaultWeights(), nil)
	f := score(t, a, core.Record{
		"sender": "alice@plain-company.net",
		"spf":    "pass",
		"dkim":   "pass",
		"dmarc":  "pass",
	})
	if f.Score != 0 {
		t.Errorf("Score = %.1f, want 0", f.Score)
	}
	if len(f.Reasons) != 1 || f.Reasons[0] != "Normal" {
		t.Errorf("Reasons = %v, want [Normal]", f.Reasons)
	}
}

func TestMissingAuthHeadersCountAsFailures(t *testing.T) {
	a := New(DefaultWeights(), nil)
	f := score(t, a, core.Record{"sender": "alice@plain-company.net"})
	if f.Score != 5.0 {
		t.Errorf("Score = %.1f, want 5.0 (missing headers are failures)", f.Score)
	}
}

func TestSuspiciousDomainWeight(t *testing.T) {
	a := New(DefaultWeights(), nil)
	f := score(t, a, core.Record{
		"sender": "promo@discount-deals.biz",
		"spf":    "pass",
		"dkim":   "pass",
		"dmarc":  "pass",
	})
	if f.Score != 3.0 {
		t.Errorf("Score = %.1f, want 3.0", f.Score)
	}
	if f.Reasons[0] != "Domain looks suspicious" {
		t.Errorf("Reason = %q", f.Reasons[0])
	}
}

func TestIntelVerdictWeights(t *testing.T) {
	intel := core.StaticIntel{"mal.example.net": core.VerdictMalicious}
	a := New(DefaultWeights(), intel)
	f := score(t, a, core.Record{
		"sender": "x@mal.example.net",
		"spf":    "pass",
		"dkim":   "pass",
		"dmarc":  "pass",
	})
	if f.Score != 3.0 {
		t.Errorf("Score = %.1f, want 3.0 for a malicious sender domain", f.Score)
	}
}

func TestScoreMonotonicInIndicators(t *testing.T) {
	a := New(DefaultWeights(), nil)
	base := score(t, a, core.Record{
		"sender": "alice@plain-company.net",
		"spf":    "pass", "dkim": "pass", "dmarc": "pass",
	})
	withAnomaly := score(t, a, core.Record{
		"sender": "alice@plain-company.net",
		"spf":    "pass", "dkim": "pass", "dmarc": "pass",
		"timestamp_anomaly": true,
	})
	if withAnomaly.Score <= base.Score {
		t.Errorf("adding an indicator lowered the score: %.1f -> %.1f", base.Score, withAnomaly.Score)
	}
}

// ─── Normalization and configuration ─────────────────────────────────────────

func TestNormalizeMissingSender(t *testing.T) {
	a := New(DefaultWeights(), nil)
	_, err := a.Normalize(context.Background(), core.Record{"spf": "pass"})
	if err == nil {
		t.Fatal("Normalize() with no sender should fail")
	}
	if _, ok := err.(*core.MalformedRecordError); !ok {
		t.Errorf("error type = %T, want *core.MalformedRecordError", err)
	}
}

func TestWeightsFromConfig(t *testing.T) {
	cfg := core.DefaultConfig()
	cfg.Domains["email"] = core.DomainConfig{
		Enabled: true,
		Settings: map[string]interface{}{
			"spf_fail_weight": 4.0,
			"bulk_threshold":  3,
		},
	}
	w := WeightsFromConfig(cfg)
	if w.SPFFail != 4.0 {
		t.Errorf("SPFFail = %.1f, want 4.0", w.SPFFail)
	}
	if w.BulkThreshold != 3 {
		t.Errorf("BulkThreshold = %d, want 3", w.BulkThreshold)
	}
	if w.DKIMFail != 1.5 {
		t.Errorf("DKIMFail = %.1f, want untouched default 1.5", w.DKIMFail)
	}
}

func TestCSVRowWidths(t *testing.T) {
	a := New(DefaultWeights(), nil)
	f := score(t, a, core.Record{"sender": "alice@plain-company.net", "timestamp": "2026-07-01 09:15:00"})
	row := a.CSVRow(core.RecordResult{Finding: f})
	if len(row) != len(a.CSVHeader()) {
		t.Fatalf("row width = %d, want %d", len(row), len(a.CSVHeader()))
	}

	errRow := a.CSVRow(core.RecordResult{Err: &core.MalformedRecordError{Domain: core.DomainEmail, Reason: "missing sender field"}})
	if len(errRow) != len(a.CSVHeader()) {
		t.Fatalf("error row width = %d, want %d", len(errRow), len(a.CSVHeader()))
	}
}
