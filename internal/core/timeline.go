package core

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

// TimelineEvent is one entry of the fused cross-domain timeline. Events are
// derived on every fusion call and never persisted.
type TimelineEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Activity  string    `json:"activity"`
	Risk      RiskLevel `json:"risk_level"`
	Source    Domain    `json:"source"`
}

// TimelineSource names one domain report CSV to fuse.
type TimelineSource struct {
	Domain Domain
	Path   string
}

// timelineAdapter maps one domain's report schema onto the common
// TimelineEvent shape. Registering adapters per domain replaces fragile
// cross-module column-name assumptions with one explicit table.
type timelineAdapter struct {
	timeColumn    string
	subjectColumn string
	riskColumn    string
	activity      func(subject string) string
}

// timelineAdapters registers the domains that carry per-record timestamps.
// Permission audits have no record-level time axis and are not fused.
var timelineAdapters = map[Domain]timelineAdapter{
	DomainDNS: {
		timeColumn:    "Timestamp",
		subjectColumn: "Domain",
		riskColumn:    "Risk Level",
		activity:      func(s string) string { return s },
	},
	DomainEmail: {
		timeColumn:    "Timestamp",
		subjectColumn: "Sender",
		riskColumn:    "Risk Level",
		activity:      func(s string) string { return "Email from: " + s },
	},
	DomainSSL: {
		timeColumn:    "Timestamp",
		subjectColumn: "Domain",
		riskColumn:    "Risk Level",
		activity:      func(s string) string { return "SSL to: " + s },
	},
	DomainHiddenApp: {
		timeColumn:    "First Seen",
		subjectColumn: "App Name",
		riskColumn:    "Risk Level",
		activity:      func(s string) string { return s },
	},
	DomainBandwidth: {
		timeColumn:    "Timestamp",
		subjectColumn: "Destination",
		riskColumn:    "Risk Level",
		activity:      func(s string) string { return "Upload to: " + s },
	},
}

// TimelineDomains returns the domains that participate in timeline fusion.
func TimelineDomains() []Domain {
	out := make([]Domain, 0, len(timelineAdapters))
	for _, d := range Domains {
		if _, ok := timelineAdapters[d]; ok {
			out = append(out, d)
		}
	}
	return out
}

// timestampLayouts are tried in order when parsing report timestamps.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FuseTimeline reads the given per-domain report CSVs and merges them into
// one chronological timeline. Rows with missing or unparseable timestamps are
// dropped, never defaulted. The sort is stable: ties keep per-domain
// ingestion order. Each call recomputes from the current CSV bytes.
func FuseTimeline(sources []TimelineSource, logger zerolog.Logger) ([]TimelineEvent, error) {
	log := logger.With().Str("component", "timeline_fusion").Logger()
	var events []TimelineEvent

	for _, src := range sources {
		adapter, ok := timelineAdapters[src.Domain]
		if !ok {
			log.Debug().Str("domain", src.Domain.String()).Msg("domain has no timeline adapter, skipping")
			continue
		}

		rows, dropped, err := fuseOne(src, adapter)
		if err != nil {
			// A missing or unreadable report means that domain has not run
			// yet; the timeline is built from what exists.
			log.Warn().Err(err).Str("path", src.Path).Msg("skipping timeline source")
			continue
		}
		events = append(events, rows...)
		log.Debug().
			Str("domain", src.Domain.String()).
			Int("events", len(rows)).
			Int("dropped", dropped).
			Msg("timeline source fused")
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
	return events, nil
}

func fuseOne(src TimelineSource, adapter timelineAdapter) ([]TimelineEvent, int, error) {
	f, err := os.Open(src.Path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("reading header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	timeIdx, ok := col[adapter.timeColumn]
	if !ok {
		return nil, 0, fmt.Errorf("report has no %q column", adapter.timeColumn)
	}
	subjIdx, ok := col[adapter.subjectColumn]
	if !ok {
		return nil, 0, fmt.Errorf("report has no %q column", adapter.subjectColumn)
	}
	riskIdx, ok := col[adapter.riskColumn]
	if !ok {
		return nil, 0, fmt.Errorf("report has no %q column", adapter.riskColumn)
	}

	var (
		events  []TimelineEvent
		dropped int
	)
	for {
		row, err := r.Read()
		if err != nil {
			break
		}
		if len(row) <= timeIdx || len(row) <= subjIdx || len(row) <= riskIdx {
			dropped++
			continue
		}
		ts, ok := parseTimestamp(row[timeIdx])
		if !ok {
			dropped++
			continue
		}
		risk, err := ParseRiskLevel(row[riskIdx])
		if err != nil {
			dropped++
			continue
		}
		events = append(events, TimelineEvent{
			Timestamp: ts,
			Activity:  adapter.activity(row[subjIdx]),
			Risk:      risk,
			Source:    src.Domain,
		})
	}
	return events, dropped, nil
}
