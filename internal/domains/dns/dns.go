// Package dns scores DNS query-log artifacts: domains with suspicious TLDs,
// free dynamic-DNS hosts, tunneling keywords, and threat-intel matches.
package dns

import (
	"context"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/droidsift-project/droidsift/internal/core"
)

// Known suspicious TLDs and patterns.
var (
	suspiciousTLDs     = []string{".xyz", ".tk", ".top", ".gq", ".ml", ".cf", ".onion"}
	freeDynamicDNS     = []string{"duckdns.org", "freedns.afraid.org"}
	suspiciousKeywords = []string{"dns-tunnel", "malware", "c2", "leak", "exploit"}
)

// Working hours; queries outside are flagged after-hours.
const (
	workHoursStart = 9
	workHoursEnd   = 17
)

// Features is the canonical DNS feature set for one query record.
type Features struct {
	Name       string
	Timestamp  time.Time
	Length     int
	Dots       int
	Hour       int
	HasDigit   bool
	TLD        string
	BadTLD     bool
	FreeDNS    bool
	Keyword    bool
	AfterHours bool
	Intel      core.Verdict
}

func (f *Features) Domain() core.Domain { return core.DomainDNS }
func (f *Features) Subject() string     { return f.Name }

func (f *Features) Features() []core.Feature {
	return []core.Feature{
		{Name: "domain_length", Value: f.Length},
		{Name: "num_dots", Value: f.Dots},
		{Name: "hour_accessed", Value: f.Hour},
		{Name: "has_numeric", Value: f.HasDigit},
		{Name: "tld", Value: f.TLD},
	}
}

// Analyzer normalizes and scores DNS query records.
type Analyzer struct {
	intel core.Intel
}

// New builds the DNS analyzer. intel may be nil; lookups then report Unknown.
func New(intel core.Intel) *Analyzer {
	return &Analyzer{intel: intel}
}

func (a *Analyzer) Domain() core.Domain { return core.DomainDNS }

func (a *Analyzer) Description() string {
	return "Flags queried domains with suspicious TLDs, free dynamic DNS hosts, tunneling keywords, and threat-intel matches"
}

// Normalize validates one query record ({"timestamp", "domain"}) into its
// feature set.
func (a *Analyzer) Normalize(ctx context.Context, rec core.Record) (core.FeatureSet, error) {
	name := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(rec.String("domain"))), ".")
	if name == "" {
		return nil, &core.MalformedRecordError{Domain: core.DomainDNS, Reason: "missing domain field"}
	}
	ts, err := rec.Time("timestamp")
	if err != nil {
		return nil, &core.MalformedRecordError{Domain: core.DomainDNS, Subject: name, Reason: err.Error()}
	}

	hasDigit := false
	for _, r := range name {
		if unicode.IsDigit(r) {
			hasDigit = true
			break
		}
	}
	tld := name
	if i := strings.LastIndex(name, "."); i >= 0 {
		tld = name[i+1:]
	}

	verdict := core.VerdictUnknown
	if a.intel != nil {
		verdict = a.intel.Lookup(ctx, name)
	}

	return &Features{
		Name:       name,
		Timestamp:  ts,
		Length:     len(name),
		Dots:       strings.Count(name, "."),
		Hour:       ts.Hour(),
		HasDigit:   hasDigit,
		TLD:        tld,
		BadTLD:     containsAny(name, suspiciousTLDs),
		FreeDNS:    containsAny(name, freeDynamicDNS),
		Keyword:    containsAny(name, suspiciousKeywords),
		AfterHours: ts.Hour() < workHoursStart || ts.Hour() >= workHoursEnd,
		Intel:      verdict,
	}, nil
}

// Score applies the rule cascade, most severe first. Rule order is fixed; the
// first match decides.
func (a *Analyzer) Score(fs core.FeatureSet, clf core.Classifier) *core.Finding {
	f := fs.(*Features)

	modelLabel, modelProb, degraded := core.RunClassifier(fs, clf)

	var (
		score  float64
		reason string
	)
	switch {
	case f.BadTLD:
		score, reason = core.ScoreHigh, "Suspicious TLD"
	case f.FreeDNS:
		score, reason = core.ScoreIntermediate, "Free Domain"
	case f.Keyword:
		score, reason = core.ScoreIntermediate, "Keyword"
	case f.Intel == core.VerdictMalicious:
		score, reason = core.ScoreHigh, "Threat Intel Match"
	case modelLabel == core.RiskHigh:
		score, reason = core.ScoreHigh, "Model classification"
	case modelLabel == core.RiskIntermediate:
		score, reason = core.ScoreIntermediate, "Model classification"
	default:
		score, reason = 0, "Normal"
	}

	finding := core.NewFinding(core.DomainDNS, f.Name, score, []string{reason})
	finding.Timestamp = f.Timestamp
	finding.ModelLabel = modelLabel
	finding.ModelProbability = modelProb
	finding.Degraded = degraded
	return finding
}

// CSVHeader is the fixed DNS report schema.
func (a *Analyzer) CSVHeader() []string {
	return []string{"Timestamp", "Domain", "Accessed After Hours", "Risk Level", "Reason", "Score", "Model Risk"}
}

// CSVRow renders one result. Malformed records surface as Error rows.
func (a *Analyzer) CSVRow(res core.RecordResult) []string {
	if res.Errored() {
		return []string{"", res.Err.Subject, "", core.RiskError.String(), res.Err.Reason, "", ""}
	}
	f := res.Finding
	afterHours := "No"
	if f.Timestamp.Hour() < workHoursStart || f.Timestamp.Hour() >= workHoursEnd {
		afterHours = "Yes"
	}
	return []string{
		f.Timestamp.Format("2006-01-02 15:04:05"),
		f.Subject,
		afterHours,
		f.Risk.String(),
		strings.Join(f.Reasons, "; "),
		strconv.FormatFloat(f.Score, 'f', 1, 64),
		core.ModelColumn(f),
	}
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
