// Package email scores email-header artifacts using a weighted indicator sum:
// authentication failures, timestamp anomalies, bulk sends, and sender-domain
// reputation.
package email

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/droidsift-project/droidsift/internal/core"
)

// Sender-domain heuristics.
var (
	tldBlacklist  = []string{".xyz", ".top", ".buzz", ".ru", ".onion"}
	freeProviders = []string{"mail.ru", "protonmail.com", "yopmail.com", "tutanota.com"}
	domainKeyword = []string{"xyz", "click", "discount", "darkweb", "tor", "onion", "proxy"}
)

// Weights holds the indicator weights and thresholds of the scoring function.
// The values are heuristic constants carried over from casework, kept as
// configuration defaults rather than re-derived.
type Weights struct {
	SPFFail          float64
	DKIMFail         float64
	DMARCFail        float64
	TimestampAnomaly float64
	BulkSend         float64
	SuspiciousDomain float64
	IntelMalicious   float64
	IntelSuspicious  float64
	BulkThreshold    int
}

// DefaultWeights returns the stock scoring weights.
func DefaultWeights() Weights {
	return Weights{
		SPFFail:          2.0,
		DKIMFail:         1.5,
		DMARCFail:        1.5,
		TimestampAnomaly: 2.0,
		BulkSend:         2.5,
		SuspiciousDomain: 3.0,
		IntelMalicious:   3.0,
		IntelSuspicious:  2.0,
		BulkThreshold:    10,
	}
}

// WeightsFromConfig overlays configured settings onto the defaults.
func WeightsFromConfig(cfg *core.Config) Weights {
	w := DefaultWeights()
	d := core.DomainEmail
	w.SPFFail = cfg.FloatSetting(d, "spf_fail_weight", w.SPFFail)
	w.DKIMFail = cfg.FloatSetting(d, "dkim_fail_weight", w.DKIMFail)
	w.DMARCFail = cfg.FloatSetting(d, "dmarc_fail_weight", w.DMARCFail)
	w.TimestampAnomaly = cfg.FloatSetting(d, "timestamp_anomaly_weight", w.TimestampAnomaly)
	w.BulkSend = cfg.FloatSetting(d, "bulk_send_weight", w.BulkSend)
	w.SuspiciousDomain = cfg.FloatSetting(d, "suspicious_domain_weight", w.SuspiciousDomain)
	w.IntelMalicious = cfg.FloatSetting(d, "intel_malicious_weight", w.IntelMalicious)
	w.IntelSuspicious = cfg.FloatSetting(d, "intel_suspicious_weight", w.IntelSuspicious)
	w.BulkThreshold = cfg.IntSetting(d, "bulk_threshold", w.BulkThreshold)
	return w
}

// Features is the canonical email feature set for one message.
type Features struct {
	Sender             string
	SenderDomain       string
	Timestamp          time.Time
	SPF, DKIM, DMARC   string
	TimestampAnomaly   bool
	SameTimestampCount int
	SuspiciousDomain   bool
	Intel              core.Verdict
}

func (f *Features) Domain() core.Domain { return core.DomainEmail }
func (f *Features) Subject() string     { return f.Sender }

func (f *Features) Features() []core.Feature {
	return []core.Feature{
		{Name: "spf_pass", Value: f.SPF == "pass"},
		{Name: "dkim_pass", Value: f.DKIM == "pass"},
		{Name: "dmarc_pass", Value: f.DMARC == "pass"},
		{Name: "timestamp_anomaly", Value: f.TimestampAnomaly},
		{Name: "count_same_timestamp", Value: f.SameTimestampCount},
		{Name: "suspicious_domain", Value: f.SuspiciousDomain},
	}
}

// Analyzer normalizes and scores email header records.
type Analyzer struct {
	weights Weights
	intel   core.Intel
}

// New builds the email analyzer.
func New(weights Weights, intel core.Intel) *Analyzer {
	return &Analyzer{weights: weights, intel: intel}
}

func (a *Analyzer) Domain() core.Domain { return core.DomainEmail }

func (a *Analyzer) Description() string {
	return "Weighted scoring of SPF/DKIM/DMARC failures, timestamp anomalies, bulk sends, and sender-domain reputation"
}

// Normalize validates one header record. The sender address is required; the
// date is optional and, when missing or unparseable, simply leaves the
// finding without a timeline position.
func (a *Analyzer) Normalize(ctx context.Context, rec core.Record) (core.FeatureSet, error) {
	sender := strings.ToLower(strings.TrimSpace(rec.String("sender")))
	if sender == "" {
		return nil, &core.MalformedRecordError{Domain: core.DomainEmail, Reason: "missing sender field"}
	}

	senderDomain := sender
	if i := strings.LastIndex(sender, "@"); i >= 0 {
		senderDomain = sender[i+1:]
	}

	ts, _ := rec.Time("timestamp")
	count, _ := rec.Int("count_same_timestamp")

	verdict := core.VerdictUnknown
	if a.intel != nil {
		verdict = a.intel.Lookup(ctx, senderDomain)
	}

	return &Features{
		Sender:             sender,
		SenderDomain:       senderDomain,
		Timestamp:          ts,
		SPF:                authResult(rec, "spf"),
		DKIM:               authResult(rec, "dkim"),
		DMARC:              authResult(rec, "dmarc"),
		TimestampAnomaly:   rec.Bool("timestamp_anomaly"),
		SameTimestampCount: count,
		SuspiciousDomain:   isSuspiciousDomain(senderDomain),
		Intel:              verdict,
	}, nil
}

// authResult lowercases an authentication verdict; a missing header counts as
// a failure, not a pass.
func authResult(rec core.Record, key string) string {
	v := strings.ToLower(strings.TrimSpace(rec.String(key)))
	if v == "" {
		return "none"
	}
	return v
}

// isSuspiciousDomain applies the sender-domain heuristic.
func isSuspiciousDomain(domain string) bool {
	for _, tld := range tldBlacklist {
		if strings.HasSuffix(domain, tld) {
			return true
		}
	}
	for _, free := range freeProviders {
		if strings.Contains(domain, free) {
			return true
		}
	}
	for _, kw := range domainKeyword {
		if strings.Contains(domain, kw) {
			return true
		}
	}
	return false
}

// Score sums the weighted indicators. Adding an indicator can only raise the
// score, so the risk level is monotonic in every input.
func (a *Analyzer) Score(fs core.FeatureSet, clf core.Classifier) *core.Finding {
	f := fs.(*Features)
	w := a.weights

	var (
		score   float64
		reasons []string
	)
	add := func(weight float64, reason string) {
		score += weight
		reasons = append(reasons, reason)
	}

	if f.SPF != "pass" {
		add(w.SPFFail, "SPF failed")
	}
	if f.DKIM != "pass" {
		add(w.DKIMFail, "DKIM failed")
	}
	if f.DMARC != "pass" {
		add(w.DMARCFail, "DMARC failed")
	}
	if f.TimestampAnomaly {
		add(w.TimestampAnomaly, "Timestamp anomaly")
	}
	if f.SameTimestampCount >= w.BulkThreshold {
		add(w.BulkSend, "Bulk emails sent at once")
	}
	if f.SuspiciousDomain {
		add(w.SuspiciousDomain, "Domain looks suspicious")
	}
	switch f.Intel {
	case core.VerdictMalicious:
		add(w.IntelMalicious, "Threat intel: malicious")
	case core.VerdictSuspicious:
		add(w.IntelSuspicious, "Threat intel: suspicious")
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "Normal")
	}

	modelLabel, modelProb, degraded := core.RunClassifier(fs, clf)

	bulk := "No"
	if f.SameTimestampCount >= w.BulkThreshold {
		bulk = "Yes"
	}
	anomaly := "No"
	if f.TimestampAnomaly {
		anomaly = "Yes"
	}

	finding := core.NewFinding(core.DomainEmail, f.Sender, score, reasons)
	finding.Timestamp = f.Timestamp
	finding.Details = map[string]string{
		"spf":     f.SPF,
		"dkim":    f.DKIM,
		"dmarc":   f.DMARC,
		"anomaly": anomaly,
		"bulk":    bulk,
	}
	finding.ModelLabel = modelLabel
	finding.ModelProbability = modelProb
	finding.Degraded = degraded
	return finding
}

// CSVHeader is the fixed email report schema.
func (a *Analyzer) CSVHeader() []string {
	return []string{
		"Timestamp", "Sender", "SPF", "DKIM", "DMARC",
		"Timestamp Anomaly", "Bulk Count", "Risk Level", "Reasons", "Score", "Model Risk",
	}
}

// CSVRow renders one result; malformed records become Error rows.
func (a *Analyzer) CSVRow(res core.RecordResult) []string {
	if res.Errored() {
		return []string{"", res.Err.Subject, "", "", "", "", "", core.RiskError.String(), res.Err.Reason, "", ""}
	}
	f := res.Finding
	ts := ""
	if !f.Timestamp.IsZero() {
		ts = f.Timestamp.Format("2006-01-02 15:04:05")
	}
	return []string{
		ts,
		f.Subject,
		f.Detail("spf"),
		f.Detail("dkim"),
		f.Detail("dmarc"),
		f.Detail("anomaly"),
		f.Detail("bulk"),
		f.Risk.String(),
		strings.Join(f.Reasons, "; "),
		strconv.FormatFloat(f.Score, 'f', 1, 64),
		core.ModelColumn(f),
	}
}
