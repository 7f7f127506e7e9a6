package core

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Domain identifies one of the six artifact analysis domains.
type Domain int

const (
	DomainBandwidth Domain = iota
	DomainDNS
	DomainEmail
	DomainHiddenApp
	DomainPermission
	DomainSSL
)

// Domains lists all analysis domains in canonical order.
var Domains = []Domain{
	DomainBandwidth, DomainDNS, DomainEmail,
	DomainHiddenApp, DomainPermission, DomainSSL,
}

func (d Domain) String() string {
	switch d {
	case DomainBandwidth:
		return "bandwidth"
	case DomainDNS:
		return "dns"
	case DomainEmail:
		return "email"
	case DomainHiddenApp:
		return "hidden_apps"
	case DomainPermission:
		return "permissions"
	case DomainSSL:
		return "ssl"
	default:
		return "unknown"
	}
}

// Title returns the human-readable source label used in reports and timelines.
func (d Domain) Title() string {
	switch d {
	case DomainBandwidth:
		return "Bandwidth"
	case DomainDNS:
		return "DNS Logs"
	case DomainEmail:
		return "Email"
	case DomainHiddenApp:
		return "Hidden App"
	case DomainPermission:
		return "Permissions"
	case DomainSSL:
		return "SSL"
	default:
		return "Unknown"
	}
}

// ParseDomain converts a workflow name to a Domain.
func ParseDomain(s string) (Domain, error) {
	for _, d := range Domains {
		if d.String() == s {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown domain %q", s)
}

func (d Domain) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Domain) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDomain(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// RiskLevel is the triage classification assigned to a finding.
type RiskLevel int

const (
	RiskLow RiskLevel = iota
	RiskIntermediate
	RiskHigh
	// RiskError marks a record that could not be normalized. It is surfaced
	// as a report row rather than silently dropped.
	RiskError
)

func (r RiskLevel) String() string {
	switch r {
	case RiskLow:
		return "Low"
	case RiskIntermediate:
		return "Intermediate"
	case RiskHigh:
		return "High"
	case RiskError:
		return "Error"
	default:
		return "Unknown"
	}
}

// ParseRiskLevel converts a report string back to a RiskLevel.
func ParseRiskLevel(s string) (RiskLevel, error) {
	switch s {
	case "Low":
		return RiskLow, nil
	case "Intermediate":
		return RiskIntermediate, nil
	case "High":
		return RiskHigh, nil
	case "Error":
		return RiskError, nil
	default:
		return 0, fmt.Errorf("unknown risk level %q", s)
	}
}

func (r RiskLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *RiskLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseRiskLevel(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Risk classification thresholds shared by every scoring strategy. The email
// weighted-sum values (High at 6, Intermediate at 3) come from the original
// heuristics and are kept as defaults rather than re-derived; the rule-cascade
// domains assign scores on the same scale so one threshold function covers all
// six domains.
const (
	ScoreHigh         = 6.0
	ScoreIntermediate = 3.0
)

// RiskFromScore maps a heuristic score to its risk level. Every Finding's
// level is derived through this function, never assigned independently.
func RiskFromScore(score float64) RiskLevel {
	switch {
	case score >= ScoreHigh:
		return RiskHigh
	case score >= ScoreIntermediate:
		return RiskIntermediate
	default:
		return RiskLow
	}
}

// Record is a raw artifact record as delivered by an acquisition collaborator.
// Records are loosely typed; validation happens when a domain normalizer
// converts one into its FeatureSet.
type Record map[string]interface{}

// Feature is one named canonical feature. Value is a float64, int, bool or
// string depending on the feature.
type Feature struct {
	Name  string
	Value interface{}
}

// FeatureSet is the canonical, immutable feature view of one artifact record.
// Each domain package defines its own concrete shape; the ordered Features
// list is the classifier input vector.
type FeatureSet interface {
	Domain() Domain
	// Subject is the entity the record describes: a domain name, a package
	// name, a sender address.
	Subject() string
	Features() []Feature
}

// Finding is the scored outcome for one artifact record. Read-only after
// creation.
type Finding struct {
	ID        string    `json:"id"`
	Domain    Domain    `json:"domain"`
	Subject   string    `json:"subject"`
	Score     float64   `json:"score"`
	Risk      RiskLevel `json:"risk_level"`
	Reasons   []string  `json:"reasons"`
	Timestamp time.Time `json:"timestamp,omitempty"`

	// Details carries domain-specific report columns (feature values that
	// belong in the CSV next to the classification).
	Details map[string]string `json:"details,omitempty"`

	// ModelProbability and ModelLabel hold the optional classifier output.
	// Degraded is set when no classifier was available, so a heuristic-only
	// finding is never mistaken for a model-confirmed one.
	ModelProbability *float64  `json:"model_probability,omitempty"`
	ModelLabel       RiskLevel `json:"model_label,omitempty"`
	Degraded         bool      `json:"degraded,omitempty"`
}

// Detail returns a domain-specific report value, or "" when unset.
func (f *Finding) Detail(key string) string {
	return f.Details[key]
}

// NewFinding builds a Finding from a heuristic score and reasons. The risk
// level is always derived from the score via RiskFromScore.
func NewFinding(domain Domain, subject string, score float64, reasons []string) *Finding {
	return &Finding{
		ID:      uuid.New().String(),
		Domain:  domain,
		Subject: subject,
		Score:   score,
		Risk:    RiskFromScore(score),
		Reasons: reasons,
	}
}

// RecordResult is the outcome of processing one record: either a Finding or a
// named per-record error. Using an explicit result type keeps a malformed
// record from aborting the rest of a batch.
type RecordResult struct {
	Finding *Finding
	Err     *MalformedRecordError
}

// Errored reports whether this record failed normalization.
func (r RecordResult) Errored() bool { return r.Err != nil }
