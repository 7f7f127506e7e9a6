// Package permissions scores per-app permission grants against the Android
// dangerous-permission list.
package permissions

import (
	"context"
	"strconv"
	"strings"

	"github.com/droidsift-project/droidsift/internal/core"
)

// Apps holding three or more dangerous permissions are escalated even
// without a direct match.
const dangerousCountThreshold = 3

// Dangerous Android permissions, stored without the android.permission prefix.
var dangerousPermissions = []string{
	"READ_SMS",
	"SEND_SMS",
	"RECEIVE_SMS",
	"READ_CONTACTS",
	"WRITE_CONTACTS",
	"ACCESS_FINE_LOCATION",
	"RECORD_AUDIO",
	"CAMERA",
	"READ_PHONE_STATE",
	"CALL_PHONE",
}

// Features is the permission profile of one installed app.
type Features struct {
	AppName     string
	Package     string
	Permissions []string
	Matches     []string
}

func (f *Features) Domain() core.Domain { return core.DomainPermission }

func (f *Features) Subject() string {
	if f.AppName != "" {
		return f.AppName
	}
	return f.Package
}

func (f *Features) Features() []core.Feature {
	return []core.Feature{
		{Name: "num_permissions", Value: len(f.Permissions)},
		{Name: "num_dangerous", Value: len(f.Matches)},
	}
}

// Analyzer normalizes and scores app permission records.
type Analyzer struct{}

// New builds the permission analyzer.
func New() *Analyzer { return &Analyzer{} }

func (a *Analyzer) Domain() core.Domain { return core.DomainPermission }

func (a *Analyzer) Description() string {
	return "Flags apps granted dangerous Android permissions"
}

// Normalize validates one app permission record. Permission names are
// compared case-insensitively with any android.permission prefix stripped.
func (a *Analyzer) Normalize(ctx context.Context, rec core.Record) (core.FeatureSet, error) {
	name := strings.TrimSpace(rec.String("app_name"))
	pkg := strings.TrimSpace(rec.String("package_name"))
	if name == "" && pkg == "" {
		return nil, &core.MalformedRecordError{Domain: core.DomainPermission, Reason: "missing app_name and package_name"}
	}

	perms := rec.Strings("permissions")
	var matches []string
	for _, p := range perms {
		short := normalizePermission(p)
		for _, d := range dangerousPermissions {
			if short == d {
				matches = append(matches, d)
				break
			}
		}
	}

	return &Features{AppName: name, Package: pkg, Permissions: perms, Matches: matches}, nil
}

func normalizePermission(p string) string {
	p = strings.TrimSpace(p)
	if i := strings.LastIndex(p, "."); i >= 0 {
		p = p[i+1:]
	}
	return strings.ToUpper(p)
}

// Score applies the dangerous-permission cascade.
func (a *Analyzer) Score(fs core.FeatureSet, clf core.Classifier) *core.Finding {
	f := fs.(*Features)
	modelLabel, modelProb, degraded := core.RunClassifier(fs, clf)

	var score float64
	var reasons []string
	switch {
	case len(f.Matches) > 0:
		score = core.ScoreHigh
		reasons = []string{"Dangerous permission: " + strings.Join(f.Matches, ", ")}
	case len(f.Permissions) >= dangerousCountThreshold:
		score = core.ScoreIntermediate
		reasons = []string{"Broad permission surface"}
	default:
		reasons = []string{"Normal behavior"}
	}

	finding := core.NewFinding(core.DomainPermission, f.Subject(), score, reasons)
	finding.Details = map[string]string{
		"package":         f.Package,
		"permissions":     strings.Join(f.Permissions, "; "),
		"matches":         strings.Join(f.Matches, "; "),
		"permission_num":  strconv.Itoa(len(f.Permissions)),
		"dangerous_count": strconv.Itoa(len(f.Matches)),
	}
	finding.ModelLabel = modelLabel
	finding.ModelProbability = modelProb
	finding.Degraded = degraded
	return finding
}

// CSVHeader is the fixed permission report schema.
func (a *Analyzer) CSVHeader() []string {
	return []string{
		"App", "Package", "Permissions", "High Risk Matches",
		"Dangerous Permission Count", "Risk Level", "Reasons", "Score", "Model Risk",
	}
}

// CSVRow renders one result; malformed records become Error rows.
func (a *Analyzer) CSVRow(res core.RecordResult) []string {
	if res.Errored() {
		return []string{res.Err.Subject, "", "", "", "", core.RiskError.String(), res.Err.Reason, "", ""}
	}
	f := res.Finding
	return []string{
		f.Subject,
		f.Detail("package"),
		f.Detail("permissions"),
		f.Detail("matches"),
		f.Detail("dangerous_count"),
		f.Risk.String(),
		strings.Join(f.Reasons, "; "),
		strconv.FormatFloat(f.Score, 'f', 1, 64),
		core.ModelColumn(f),
	}
}
