// Package ssl scores observed TLS certificates for impersonation and
// weak-issuance indicators.
package ssl

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/droidsift-project/droidsift/internal/core"
)

// certTimeLayout is the compact UTC layout certificate dumps use for
// validity bounds.
const certTimeLayout = "20060102150405Z"

// Certificates valid for this many days or fewer are treated as
// throwaway issuance.
const shortValidityDays = 30

// Brands commonly impersonated in forged subject CNs.
var protectedBrands = []string{"Google", "WhatsApp", "Meta", "YouTube", "Amazon"}

// Features is the canonical feature set for one observed certificate.
type Features struct {
	Host         string
	Timestamp    time.Time
	SubjectCN    string
	IssuerCN     string
	NotBefore    time.Time
	NotAfter     time.Time
	ValidityDays int
	SelfSigned   bool
	ShortLived   bool
	ForgedCN     bool
}

func (f *Features) Domain() core.Domain { return core.DomainSSL }
func (f *Features) Subject() string     { return f.Host }

func (f *Features) Features() []core.Feature {
	return []core.Feature{
		{Name: "validity_days", Value: f.ValidityDays},
		{Name: "self_signed", Value: f.SelfSigned},
		{Name: "forged_cn", Value: f.ForgedCN},
	}
}

// Analyzer normalizes and scores certificate observation records.
type Analyzer struct{}

// New builds the SSL analyzer.
func New() *Analyzer { return &Analyzer{} }

func (a *Analyzer) Domain() core.Domain { return core.DomainSSL }

func (a *Analyzer) Description() string {
	return "Flags self-signed, short-lived, and brand-impersonating certificates"
}

// Normalize validates one certificate record and derives the static flags.
func (a *Analyzer) Normalize(ctx context.Context, rec core.Record) (core.FeatureSet, error) {
	host := strings.TrimSpace(strings.ToLower(rec.String("domain")))
	if host == "" {
		return nil, &core.MalformedRecordError{Domain: core.DomainSSL, Reason: "missing domain"}
	}

	subjectCN := strings.TrimSpace(rec.String("subject_cn"))
	issuerCN := strings.TrimSpace(rec.String("issuer_cn"))
	if subjectCN == "" {
		return nil, &core.MalformedRecordError{Domain: core.DomainSSL, Subject: host, Reason: "missing subject_cn"}
	}

	notBefore, err := parseCertTime(rec.String("not_before"))
	if err != nil {
		return nil, &core.MalformedRecordError{Domain: core.DomainSSL, Subject: host, Reason: "unparseable not_before"}
	}
	notAfter, err := parseCertTime(rec.String("not_after"))
	if err != nil {
		return nil, &core.MalformedRecordError{Domain: core.DomainSSL, Subject: host, Reason: "unparseable not_after"}
	}

	ts, _ := rec.Time("timestamp")
	validity := int(notAfter.Sub(notBefore).Hours() / 24)

	return &Features{
		Host:         host,
		Timestamp:    ts,
		SubjectCN:    subjectCN,
		IssuerCN:     issuerCN,
		NotBefore:    notBefore,
		NotAfter:     notAfter,
		ValidityDays: validity,
		SelfSigned:   issuerCN != "" && issuerCN == subjectCN,
		ShortLived:   validity <= shortValidityDays,
		ForgedCN:     forgedBrandCN(subjectCN, issuerCN),
	}, nil
}

func parseCertTime(v string) (time.Time, error) {
	return time.Parse(certTimeLayout, strings.TrimSpace(v))
}

// forgedBrandCN reports whether the subject claims a protected brand the
// issuer does not belong to.
func forgedBrandCN(subjectCN, issuerCN string) bool {
	for _, brand := range protectedBrands {
		if strings.Contains(subjectCN, brand) && !strings.Contains(issuerCN, brand) {
			return true
		}
	}
	return false
}

// Score applies the certificate rule cascade. Impersonation and self-signed
// issuance are High, short validity alone is Intermediate.
func (a *Analyzer) Score(fs core.FeatureSet, clf core.Classifier) *core.Finding {
	f := fs.(*Features)
	modelLabel, modelProb, degraded := core.RunClassifier(fs, clf)

	var reasons []string
	if f.ForgedCN {
		reasons = append(reasons, "Forged certificate CN")
	}
	if f.SelfSigned {
		reasons = append(reasons, "Self-signed certificate")
	}
	if !degraded && modelLabel == core.RiskHigh {
		reasons = append(reasons, "Model classification")
	}

	var score float64
	switch {
	case len(reasons) > 0:
		score = core.ScoreHigh
	case f.ShortLived:
		score = core.ScoreIntermediate
		reasons = append(reasons, "Short validity period")
	case !degraded && modelLabel == core.RiskIntermediate:
		score = core.ScoreIntermediate
		reasons = append(reasons, "Model classification")
	default:
		reasons = append(reasons, "Normal certificate")
	}

	finding := core.NewFinding(core.DomainSSL, f.Host, score, reasons)
	finding.Timestamp = f.Timestamp
	finding.Details = map[string]string{
		"subject_cn":    f.SubjectCN,
		"issuer_cn":     f.IssuerCN,
		"not_before":    f.NotBefore.Format("2006-01-02"),
		"not_after":     f.NotAfter.Format("2006-01-02"),
		"validity_days": strconv.Itoa(f.ValidityDays),
		"self_signed":   yesNo(f.SelfSigned),
		"forged_cn":     yesNo(f.ForgedCN),
	}
	finding.ModelLabel = modelLabel
	finding.ModelProbability = modelProb
	finding.Degraded = degraded
	return finding
}

// CSVHeader is the fixed SSL report schema.
func (a *Analyzer) CSVHeader() []string {
	return []string{
		"Timestamp", "Domain", "Subject CN", "Issuer CN", "Not Before", "Not After",
		"Validity Days", "Self Signed", "Forged CN", "Risk Level", "Reasons", "Score", "Model Risk",
	}
}

// CSVRow renders one result; malformed records become Error rows.
func (a *Analyzer) CSVRow(res core.RecordResult) []string {
	if res.Errored() {
		return []string{"", res.Err.Subject, "", "", "", "", "", "", "", core.RiskError.String(), res.Err.Reason, "", ""}
	}
	f := res.Finding
	ts := ""
	if !f.Timestamp.IsZero() {
		ts = f.Timestamp.Format("2006-01-02 15:04:05")
	}
	return []string{
		ts,
		f.Subject,
		f.Detail("subject_cn"),
		f.Detail("issuer_cn"),
		f.Detail("not_before"),
		f.Detail("not_after"),
		f.Detail("validity_days"),
		f.Detail("self_signed"),
		f.Detail("forged_cn"),
		f.Risk.String(),
		strings.Join(f.Reasons, "; "),
		strconv.FormatFloat(f.Score, 'f', 1, 64),
		core.ModelColumn(f),
	}
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
