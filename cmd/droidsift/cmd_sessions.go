package main

// ---------------------------------------------------------------------------
// cmd_sessions.go — query the audit ledger of past analysis runs
// ---------------------------------------------------------------------------

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/droidsift-project/droidsift/internal/core"
)

func cmdSessions(args []string) {
	fs := flag.NewFlagSet("sessions", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Config file path")
	investigator := fs.String("investigator", "", "Filter by investigator")
	workflow := fs.String("workflow", "", "Filter by analysis domain")
	format := fs.String("format", "table", "Output format: table, json, csv")
	output := fs.String("output", "", "Write output to file")
	fs.Parse(args)

	cfg := loadConfigOrDie(*configPath)
	logger := newLogger(cfg)

	if *workflow != "" {
		if _, err := core.ParseDomain(*workflow); err != nil {
			errorf("%v", err)
		}
	}

	ledger, err := core.OpenLedger(cfg.Ledger.Path, logger)
	if err != nil {
		errorf("opening session ledger: %v", err)
	}
	defer ledger.Close()

	sessions, err := ledger.Query(*investigator, *workflow)
	if err != nil {
		errorf("querying sessions: %v", err)
	}

	w, cleanup := outputWriter(*output)
	defer cleanup()

	switch parseFormat(*format) {
	case FormatJSON:
		data, _ := json.MarshalIndent(sessions, "", "  ")
		fmt.Fprintln(w, string(data))
	case FormatCSV:
		rows := make([][]string, 0, len(sessions))
		for _, s := range sessions {
			rows = append(rows, sessionRow(&s))
		}
		writeCSV(w, sessionHeaders(), rows)
	default:
		if len(sessions) == 0 {
			fmt.Fprintf(os.Stdout, "%s No sessions recorded.\n", dim("▸"))
			return
		}
		t := NewTable(w, sessionHeaders()...)
		for _, s := range sessions {
			t.AddRow(sessionRow(&s)...)
		}
		t.Render()
		fmt.Fprintf(os.Stdout, "\n%d session(s), newest first.\n", len(sessions))
	}
}

func sessionHeaders() []string {
	return []string{"ID", "Case", "Investigator", "Device", "Timestamp", "Workflow", "Score", "Report"}
}

func sessionRow(s *core.SessionRecord) []string {
	return []string{
		fmt.Sprintf("%d", s.ID),
		s.CaseNumber,
		s.InvestigatorID,
		s.Device,
		s.Timestamp,
		s.Workflow,
		fmt.Sprintf("%.1f", s.FinalScore),
		s.CSVPath,
	}
}
