package ssl

import (
	"context"
	"testing"

	"github.com/droidsift-project/droidsift/internal/core"
)

func certRecord(host, subjectCN, issuerCN, notBefore, notAfter string) core.Record {
	return core.Record{
		"timestamp":  "2026-07-01 10:00:00",
		"domain":     host,
		"subject_cn": subjectCN,
		"issuer_cn":  issuerCN,
		"not_before": notBefore,
		"not_after":  notAfter,
	}
}

func score(t *testing.T, rec core.Record) *core.Finding {
	t.Helper()
	a := New()
	fs, err := a.Normalize(context.Background(), rec)
	if err != nil {
		t.Fatalf("Normalize() error: %v", err)
	}
	return a.Score(fs, nil)
}

// ─── Rule cascade ────────────────────────────────────────────────────────────

func TestForgedBrandCNIsHigh(t *testing.T) {
	f := score(t, certRecord("accounts.google.phish.example",
		"Google Accounts", "Shady CA Ltd",
		"20260101000000Z", "20270101000000Z"))
	if f.Risk != core.RiskHigh {
		t.Errorf("Risk = %v, want High", f.Risk)
	}
	if f.Reasons[0] != "Forged certificate CN" {
		t.Errorf("Reason = %q", f.Reasons[0])
	}
}

func TestGenuineBrandIssuerNotForged(t *testing.T) {
	f := score(t, certRecord("www.google.com",
		"Google LLC", "Google Trust Services",
		"20260101000000Z", "20270101000000Z"))
	if f.Risk != core.RiskLow {
		t.Errorf("Risk = %v, want Low when the issuer also names the brand", f.Risk)
	}
}

func TestSelfSignedIsHigh(t *testing.T) {
	f := score(t, certRecord("internal.example.net",
		"internal.example.net", "internal.example.net",
		"20260101000000Z", "20270101000000Z"))
	if f.Risk != core.RiskHigh {
		t.Errorf("Risk = %v, want High", f.Risk)
	}
	if f.Reasons[0] != "Self-signed certificate" {
		t.Errorf("Reason = %q", f.Reasons[0])
	}
}

func TestShortValidityIsIntermediate(t *testing.T) {
	f := score(t, certRecord("pop-up.example.net",
		"pop-up.example.net", "Budget CA",
		"20260701000000Z", "20260715000000Z"))
	if f.Risk != core.RiskIntermediate {
		t.Errorf("Risk = %v, want Intermediate", f.Risk)
	}
	if f.Reasons[0] != "Short validity period" {
		t.Errorf("Reason = %q", f.Reasons[0])
	}
}

func TestNormalCertificateIsLow(t *testing.T) {
	f := score(t, certRecord("shop.example.com",
		"shop.example.com", "Trusted CA",
		"20260101000000Z", "20270101000000Z"))
	if f.Risk != core.RiskLow {
		t.Errorf("Risk = %v, want Low", f.Risk)
	}
	if f.Reasons[0] != "Normal certificate" {
		t.Errorf("Reason = %q", f.Reasons[0])
	}
}

func TestForgedAndSelfSignedBothReported(t *testing.T) {
	f := score(t, certRecord("meta-login.example",
		"Meta Platforms", "Free Tier CA",
		"20260101000000Z", "20260110000000Z"))
	if f.Risk != core.RiskHigh {
		t.Fatalf("Risk = %v, want High", f.Risk)
	}
	// Forged CN wins the report; short validity does not demote it.
	if f.Reasons[0] != "Forged certificate CN" {
		t.Errorf("Reason = %q", f.Reasons[0])
	}
}

// ─── Normalization ───────────────────────────────────────────────────────────

func TestNormalizeRejectsBadRecords(t *testing.T) {
	a := New()

	cases := []struct {
		name string
		rec  core.Record
	}{
		{"missing domain", certRecordWithout("domain")},
		{"missing subject", certRecordWithout("subject_cn")},
		{"bad not_before", func() core.Record {
			r := certRecord("x.example", "x.example", "CA", "not-a-date", "20270101000000Z")
			return r
		}()},
		{"bad not_after", certRecord("x.example", "x.example", "CA", "20260101000000Z", "soon")},
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

func certRecordWithout(key string) core.Record {
	rec := certRecord("x.example", "x.example CN", "CA", "20260101000000Z", "20270101000000Z")
	delete(rec, key)
	return rec
}

func TestValidityDaysComputed(t *testing.T) {
	a := New()
	fs, err := a.Normalize(context.Background(),
		certRecord("x.example", "x.example", "CA", "20260701000000Z", "20260731000000Z"))
	if err != nil {
		t.Fatalf("Normalize() error: %v", err)
	}
	f := fs.(*Features)
	if f.ValidityDays != 30 {
		t.Errorf("ValidityDays = %d, want 30", f.ValidityDays)
	}
	if !f.ShortLived {
		t.Error("ShortLived = false at exactly 30 days, want true")
	}
}

func TestCSVRowWidths(t *testing.T) {
	a := New()
	f := score(t, certRecord("shop.example.com", "shop.example.com", "Trusted CA",
		"20260101000000Z", "20270101000000Z"))
	if got := len(a.CSVRow(core.RecordResult{Finding: f})); got != len(a.CSVHeader()) {
		t.Fatalf("row width = %d, want %d", got, len(a.CSVHeader()))
	}
	errRow := a.CSVRow(core.RecordResult{Err: &core.MalformedRecordError{Domain: core.DomainSSL, Subject: "x.example", Reason: "missing subject_cn"}})
	if len(errRow) != len(a.CSVHeader()) {
		t.Fatalf("error row width = %d, want %d", len(errRow), len(a.CSVHeader()))
	}
}
