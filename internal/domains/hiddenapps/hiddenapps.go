// Package hiddenapps scores installed-app metadata for concealment
// indicators: missing launcher entries, stealth naming, and model-flagged
// profiles.
package hiddenapps

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/droidsift-project/droidsift/internal/core"
)

// launcherIntent is the intent category a user-visible app declares.
const launcherIntent = "android.intent.category.LAUNCHER"

// Name keywords associated with concealment apps.
var suspiciousKeywords = []string{"spy", "hide", "vault", "stealth", "incognito", "ghost"}

// Features is the canonical hidden-app feature set for one installed app.
type Features struct {
	AppName         string
	Package         string
	HasLauncher     bool
	KeywordMatch    bool
	PermissionCount int
	SizeMB          float64
	LastUsedDays    int
	FirstSeen       time.Time
}

func (f *Features) Domain() core.Domain { return core.DomainHiddenApp }

func (f *Features) Subject() string {
	if f.AppName != "" {
		return f.AppName
	}
	return f.Package
}

func (f *Features) Features() []core.Feature {
	return []core.Feature{
		{Name: "has_launcher_intent", Value: f.HasLauncher},
		{Name: "num_permissions", Value: f.PermissionCount},
		{Name: "app_size_mb", Value: f.SizeMB},
		{Name: "last_used_days_ago", Value: f.LastUsedDays},
	}
}

// Analyzer normalizes and scores installed-app records.
type Analyzer struct{}

// New builds the hidden-app analyzer.
func New() *Analyzer { return &Analyzer{} }

func (a *Analyzer) Domain() core.Domain { return core.DomainHiddenApp }

func (a *Analyzer) Description() string {
	return "Flags apps with no launcher entry, stealth naming, or model-detected concealment profiles"
}

// Normalize validates one installed-app record.
func (a *Analyzer) Normalize(ctx context.Context, rec core.Record) (core.FeatureSet, error) {
	name := strings.TrimSpace(rec.String("app_name"))
	pkg := strings.TrimSpace(rec.String("package_name"))
	if name == "" && pkg == "" {
		return nil, &core.MalformedRecordError{Domain: core.DomainHiddenApp, Reason: "missing app_name and package_name"}
	}

	hasLauncher := false
	for _, intent := range rec.Strings("intents") {
		if intent == launcherIntent {
			hasLauncher = true
			break
		}
	}

	keyword := false
	lower := strings.ToLower(name)
	for _, kw := range suspiciousKeywords {
		if strings.Contains(lower, kw) {
			keyword = true
			break
		}
	}

	size, _ := rec.Float("apk_size_mb")
	lastUsed, _ := rec.Int("last_used_days_ago")
	firstSeen, _ := rec.Time("first_seen")

	return &Features{
		AppName:         name,
		Package:         pkg,
		HasLauncher:     hasLauncher,
		KeywordMatch:    keyword,
		PermissionCount: len(rec.Strings("permissions")),
		SizeMB:          size,
		LastUsedDays:    lastUsed,
		FirstSeen:       firstSeen,
	}, nil
}

// Score applies the rule cascade. Any concealment indicator is High; a model
// Intermediate alone is Intermediate.
func (a *Analyzer) Score(fs core.FeatureSet, clf core.Classifier) *core.Finding {
	f := fs.(*Features)
	modelLabel, modelProb, degraded := core.RunClassifier(fs, clf)

	var reasons []string
	if !f.HasLauncher {
		reasons = append(reasons, "Hidden intent")
	}
	if f.KeywordMatch {
		reasons = append(reasons, "Suspicious keyword")
	}
	if !degraded && modelLabel == core.RiskHigh {
		reasons = append(reasons, "Model classification")
	}

	var score float64
	switch {
	case len(reasons) > 0:
		score = core.ScoreHigh
	case !degraded && modelLabel == core.RiskIntermediate:
		score = core.ScoreIntermediate
		reasons = append(reasons, "Model classification")
	default:
		reasons = append(reasons, "Normal behavior")
	}

	finding := core.NewFinding(core.DomainHiddenApp, f.Subject(), score, reasons)
	finding.Timestamp = f.FirstSeen
	finding.Details = map[string]string{
		"package":      f.Package,
		"has_launcher": yesNo(f.HasLauncher),
		"keyword":      yesNo(f.KeywordMatch),
		"permissions":  strconv.Itoa(f.PermissionCount),
		"size_mb":      strconv.FormatFloat(f.SizeMB, 'f', 1, 64),
		"last_used":    strconv.Itoa(f.LastUsedDays),
	}
	finding.ModelLabel = modelLabel
	finding.ModelProbability = modelProb
	finding.Degraded = degraded
	return finding
}

// CSVHeader is the fixed hidden-app report schema.
func (a *Analyzer) CSVHeader() []string {
	return []string{
		"App Name", "Package Name", "Has Launcher Intent", "Suspicious Keyword",
		"Permissions Count", "App Size (MB)", "Last Used (days ago)", "First Seen",
		"Risk Level", "Reasons", "Score", "Model Risk",
	}
}

// CSVRow renders one result; malformed records become Error rows.
func (a *Analyzer) CSVRow(res core.RecordResult) []string {
	if res.Errored() {
		return []string{res.Err.Subject, "", "", "", "", "", "", "", core.RiskError.String(), res.Err.Reason, "", ""}
	}
	f := res.Finding
	firstSeen := ""
	if !f.Timestamp.IsZero() {
		firstSeen = f.Timestamp.Format("2006-01-02 15:04:05")
	}
	return []string{
		f.Subject,
		f.Detail("package"),
		f.Detail("has_launcher"),
		f.Detail("keyword"),
		f.Detail("permissions"),
		f.Detail("size_mb"),
		f.Detail("last_used"),
		firstSeen,
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
