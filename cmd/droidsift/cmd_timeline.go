package main

// ---------------------------------------------------------------------------
// cmd_timeline.go — fuse per-domain reports into one activity timeline
// ---------------------------------------------------------------------------

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/droidsift-project/droidsift/internal/core"
)

func cmdTimeline(args []string) {
	fs := flag.NewFlagSet("timeline", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Config file path")
	dnsPath := fs.String("dns", "", "DNS report CSV")
	emailPath := fs.String("email", "", "Email report CSV")
	sslPath := fs.String("ssl", "", "SSL report CSV")
	hiddenPath := fs.String("hidden-apps", "", "Hidden app report CSV")
	bandwidthPath := fs.String("bandwidth", "", "Bandwidth report CSV")
	riskFilter := fs.String("risk", "", "Only include events at this risk level")
	format := fs.String("format", "table", "Output format: table, json, csv")
	output := fs.String("output", "", "Write output to file")
	fs.Parse(args)

	cfg := loadConfigOrDie(*configPath)
	logger := newLogger(cfg)

	overrides := map[core.Domain]string{
		core.DomainDNS:       *dnsPath,
		core.DomainEmail:     *emailPath,
		core.DomainSSL:       *sslPath,
		core.DomainHiddenApp: *hiddenPath,
		core.DomainBandwidth: *bandwidthPath,
	}

	var sources []core.TimelineSource
	for _, d := range core.TimelineDomains() {
		path := overrides[d]
		if path == "" {
			path = latestReport(cfg.Reports.Dir, d)
		}
		if path == "" {
			continue
		}
		sources = append(sources, core.TimelineSource{Domain: d, Path: path})
	}
	if len(sources) == 0 {
		errorf("no report CSVs found — run 'droidsift analyze' first or pass source flags")
	}

	events, err := core.FuseTimeline(sources, logger)
	if err != nil {
		errorf("fusing timeline: %v", err)
	}

	if *riskFilter != "" {
		want, err := core.ParseRiskLevel(*riskFilter)
		if err != nil {
			errorf("%v", err)
		}
		filtered := events[:0]
		for _, ev := range events {
			if ev.Risk == want {
				filtered = append(filtered, ev)
			}
		}
		events = filtered
	}

	w, cleanup := outputWriter(*output)
	defer cleanup()

	switch parseFormat(*format) {
	case FormatJSON:
		data, _ := json.MarshalIndent(events, "", "  ")
		fmt.Fprintln(w, string(data))
	case FormatCSV:
		rows := make([][]string, 0, len(events))
		for _, ev := range events {
			rows = append(rows, timelineRow(&ev))
		}
		writeCSV(w, timelineHeaders(), rows)
	default:
		if len(events) == 0 {
			fmt.Fprintf(os.Stdout, "%s No timeline events.\n", dim("▸"))
			return
		}
		t := NewTable(w, timelineHeaders()...)
		for _, ev := range events {
			t.AddRow(timelineRow(&ev)...)
		}
		t.Render()
		fmt.Fprintf(os.Stdout, "\n%d event(s) across %d source(s), oldest first.\n", len(events), len(sources))
	}
}

func timelineHeaders() []string {
	return []string{"Timestamp", "Activity", "Risk", "Source"}
}

func timelineRow(ev *core.TimelineEvent) []string {
	return []string{
		ev.Timestamp.Format("2006-01-02 15:04:05"),
		ev.Activity,
		ev.Risk.String(),
		ev.Source.Title(),
	}
}

// latestReport returns the newest analysis CSV for a domain, or "" when none
// exists. Report filenames embed a sortable timestamp, so lexicographic order
// is chronological order.
func latestReport(reportsDir string, d core.Domain) string {
	pattern := filepath.Join(reportsDir, d.String(), d.String()+"_analysis_*.csv")
	matches, err := filepath.Glob(pattern)
	if err != nil || len(matches) == 0 {
		return ""
	}
	sort.Strings(matches)
	return matches[len(matches)-1]
}
