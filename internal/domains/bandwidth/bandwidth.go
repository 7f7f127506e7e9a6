// Package bandwidth scores per-bucket upload volumes extracted from network
// captures: large transfers, after-hours activity, and model-flagged
// anomalies.
package bandwidth

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/droidsift-project/droidsift/internal/core"
)

// Working hours; uploads outside are flagged after-hours.
const (
	workHoursStart = 9
	workHoursEnd   = 17
)

// Rule thresholds. highUploadMB is fixed; the intermediate threshold is a
// configuration default.
const (
	highUploadMB           = 5.0
	DefaultThresholdMB     = 1.0
	highProbabilityCutoff  = 0.8
	interProbabilityCutoff = 0.4
)

// Features is the canonical bandwidth feature set for one upload bucket.
type Features struct {
	Timestamp   time.Time
	Destination string
	UploadMB    float64
	Hour        int
	AfterHours  bool
}

func (f *Features) Domain() core.Domain { return core.DomainBandwidth }

func (f *Features) Subject() string { return f.Destination }

func (f *Features) Features() []core.Feature {
	return []core.Feature{
		{Name: "upload_mb", Value: f.UploadMB},
		{Name: "hour", Value: f.Hour},
	}
}

// Analyzer normalizes and scores upload-volume records.
type Analyzer struct {
	thresholdMB float64
}

// New builds the bandwidth analyzer with the configured intermediate upload
// threshold in megabytes.
func New(thresholdMB float64) *Analyzer {
	if thresholdMB <= 0 {
		thresholdMB = DefaultThresholdMB
	}
	return &Analyzer{thresholdMB: thresholdMB}
}

func (a *Analyzer) Domain() core.Domain { return core.DomainBandwidth }

func (a *Analyzer) Description() string {
	return "Flags large uploads, after-hours transfers, and model-detected bandwidth anomalies"
}

// Normalize validates one upload record ({"timestamp", "upload_bytes",
// "destination"}).
func (a *Analyzer) Normalize(ctx context.Context, rec core.Record) (core.FeatureSet, error) {
	dest := strings.TrimSpace(rec.String("destination"))
	if dest == "" {
		dest = "Unknown"
	}
	ts, err := rec.Time("timestamp")
	if err != nil {
		return nil, &core.MalformedRecordError{Domain: core.DomainBandwidth, Subject: dest, Reason: err.Error()}
	}
	bytes, ok := rec.Float("upload_bytes")
	if !ok {
		return nil, &core.MalformedRecordError{Domain: core.DomainBandwidth, Subject: dest, Reason: "missing upload_bytes field"}
	}
	if bytes < 0 {
		return nil, &core.MalformedRecordError{Domain: core.DomainBandwidth, Subject: dest, Reason: fmt.Sprintf("negative upload_bytes %v", bytes)}
	}

	return &Features{
		Timestamp:   ts,
		Destination: dest,
		UploadMB:    bytes / (1024 * 1024),
		Hour:        ts.Hour(),
		AfterHours:  ts.Hour() < workHoursStart || ts.Hour() >= workHoursEnd,
	}, nil
}

// Score applies the rule cascade, most severe first.
func (a *Analyzer) Score(fs core.FeatureSet, clf core.Classifier) *core.Finding {
	f := fs.(*Features)
	modelLabel, modelProb, degraded := core.RunClassifier(fs, clf)

	prob := 0.0
	if modelProb != nil {
		prob = *modelProb
	}

	var (
		score  float64
		reason string
	)
	switch {
	case f.UploadMB > highUploadMB:
		score, reason = core.ScoreHigh, fmt.Sprintf("Upload exceeds %.0f MB", highUploadMB)
	case f.AfterHours:
		score, reason = core.ScoreHigh, "After-hours upload"
	case prob > highProbabilityCutoff:
		score, reason = core.ScoreHigh, "Model anomaly score"
	case f.UploadMB > a.thresholdMB:
		score, reason = core.ScoreIntermediate, fmt.Sprintf("Upload exceeds %.1f MB", a.thresholdMB)
	case prob > interProbabilityCutoff:
		score, reason = core.ScoreIntermediate, "Model anomaly score"
	default:
		score, reason = 0, "Normal"
	}

	finding := core.NewFinding(core.DomainBandwidth, f.Destination, score, []string{reason})
	finding.Timestamp = f.Timestamp
	finding.Details = map[string]string{
		"upload_mb":   strconv.FormatFloat(f.UploadMB, 'f', 2, 64),
		"after_hours": yesNo(f.AfterHours),
	}
	finding.ModelLabel = modelLabel
	finding.ModelProbability = modelProb
	finding.Degraded = degraded
	return finding
}

// CSVHeader is the fixed bandwidth report schema.
func (a *Analyzer) CSVHeader() []string {
	return []string{"Timestamp", "Destination", "Upload MB", "After Hours", "Risk Level", "Reasons", "Score", "Model Risk"}
}

// CSVRow renders one result; malformed records become Error rows.
func (a *Analyzer) CSVRow(res core.RecordResult) []string {
	if res.Errored() {
		return []string{"", res.Err.Subject, "", "", core.RiskError.String(), res.Err.Reason, "", ""}
	}
	f := res.Finding
	return []string{
		f.Timestamp.Format("2006-01-02 15:04:05"),
		f.Subject,
		f.Detail("upload_mb"),
		f.Detail("after_hours"),
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
