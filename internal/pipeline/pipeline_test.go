package pipeline

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/droidsift-project/droidsift/internal/core"
	"github.com/droidsift-project/droidsift/internal/domains/permissions"
)

func testRunner(t *testing.T, workers int) (*Runner, *core.Ledger) {
	t.Helper()
	dir := t.TempDir()

	reports := core.NewReportBuilder(core.Reports{
		Dir:    filepath.Join(dir, "reports"),
		ZipDir: filepath.Join(dir, "reports", "zipped_reports"),
	}, zerolog.Nop())

	ledger, err := core.OpenLedger(filepath.Join(dir, "forensics.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { ledger.Close() })

	return NewRunner(reports, ledger, nil, workers, zerolog.Nop()), ledger
}

func appRecord(name string, perms ...interface{}) core.Record {
	return core.Record{"app_name": name, "permissions": perms}
}

var testMeta = CaseMeta{CaseNumber: "2026-0142", InvestigatorID: "jdoe", Device: "Pixel 8"}

// ─── End to end ──────────────────────────────────────────────────────────────

func TestRunEndToEnd(t *testing.T) {
	r, ledger := testRunner(t, 1)

	records := []core.Record{
		appRecord("Clock", "INTERNET"),
		appRecord("Grabber", "CAMERA", "READ_SMS"),
		{"permissions": []interface{}{"CAMERA"}}, // malformed: no identity
	}

	res, err := r.Run(context.Background(), permissions.New(), nil, records, testMeta)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Findings)
	assert.Equal(t, 1, res.Errors)
	assert.Equal(t, core.ScoreHigh, res.FinalScore)
	assert.NotEmpty(t, res.RunID)

	// The bundle verifies and carries every record as a row.
	require.NotNil(t, res.Bundle)
	require.NoError(t, core.VerifyManifest(res.Bundle.HashPath))

	f, err := os.Open(res.Bundle.CSVPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4) // header + 3 records

	// The malformed record surfaces as an Error row, not a dropped one.
	assert.Equal(t, "Error", rows[3][5])

	// One session recorded.
	require.NotNil(t, res.Session)
	assert.Greater(t, res.Session.ID, int64(0))
	assert.Equal(t, "permissions", res.Session.Workflow)
	assert.Equal(t, core.ScoreHigh, res.Session.FinalScore)

	n, err := ledger.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRunPreservesRecordOrder(t *testing.T) {
	r, _ := testRunner(t, 4)

	var records []core.Record
	for i := 0; i < 50; i++ {
		records = append(records, appRecord(fmt.Sprintf("App%02d", i), "INTERNET"))
	}

	res, err := r.Run(context.Background(), permissions.New(), nil, records, testMeta)
	require.NoError(t, err)
	require.Len(t, res.Results, 50)

	for i, rr := range res.Results {
		require.False(t, rr.Errored())
		assert.Equal(t, fmt.Sprintf("App%02d", i), rr.Finding.Subject)
	}
}

func TestRunAllMalformed(t *testing.T) {
	r, _ := testRunner(t, 1)

	records := []core.Record{
		{"permissions": []interface{}{"CAMERA"}},
		{},
	}
	res, err := r.Run(context.Background(), permissions.New(), nil, records, testMeta)
	require.NoError(t, err)

	assert.Equal(t, 0, res.Findings)
	assert.Equal(t, 2, res.Errors)
	assert.Equal(t, 0.0, res.FinalScore)
	// An all-error batch still produces a verifiable bundle.
	assert.NoError(t, core.VerifyManifest(res.Bundle.HashPath))
}

func TestRunFinalScoreIsMax(t *testing.T) {
	r, _ := testRunner(t, 1)

	records := []core.Record{
		appRecord("Clock", "INTERNET"),                          // Low, 0
		appRecord("Widget", "INTERNET", "VIBRATE", "WAKE_LOCK"), // Intermediate, 3
	}
	res, err := r.Run(context.Background(), permissions.New(), nil, records, testMeta)
	require.NoError(t, err)
	assert.Equal(t, core.ScoreIntermediate, res.FinalScore)
}
