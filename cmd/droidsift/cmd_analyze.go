package main

// ---------------------------------------------------------------------------
// cmd_analyze.go — run one analysis domain over an extraction file
// ---------------------------------------------------------------------------

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/droidsift-project/droidsift/internal/core"
	"github.com/droidsift-project/droidsift/internal/domains/bandwidth"
	"github.com/droidsift-project/droidsift/internal/domains/dns"
	"github.com/droidsift-project/droidsift/internal/domains/email"
	"github.com/droidsift-project/droidsift/internal/domains/hiddenapps"
	"github.com/droidsift-project/droidsift/internal/domains/permissions"
	"github.com/droidsift-project/droidsift/internal/domains/ssl"
	"github.com/droidsift-project/droidsift/internal/pipeline"
)

func cmdAnalyze(args []string) {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Config file path")
	domainFlag := fs.String("domain", "", "Analysis domain")
	input := fs.String("input", "", "Extraction file to analyze")
	caseNumber := fs.String("case", "", "Case number")
	investigator := fs.String("investigator", "", "Investigator identifier")
	device := fs.String("device", "", "Source device label")
	modelPath := fs.String("model", "", "Classifier artifact (overrides config)")
	workers := fs.Int("workers", 1, "Parallel record scoring")
	format := fs.String("format", "table", "Summary format: table, json")
	fs.Parse(args)

	if *domainFlag == "" {
		errorf("--domain is required (see 'droidsift domains')")
	}
	if *input == "" {
		errorf("--input is required")
	}

	domain, err := core.ParseDomain(*domainFlag)
	if err != nil {
		errorf("%v", err)
	}

	cfg := loadConfigOrDie(*configPath)
	logger := newLogger(cfg)

	if !cfg.IsDomainEnabled(domain) {
		errorf("domain %q is disabled in config", domain)
	}

	records, err := readDomainRecords(domain, *input)
	if err != nil {
		errorf("%v", err)
	}
	if len(records) == 0 {
		errorf("no records found in %s", *input)
	}

	clf := loadClassifier(cfg, domain, *modelPath)
	analyzer := buildAnalyzer(domain, cfg, core.NewIntelClient(cfg.Intel, logger))

	bus, err := core.NewEventBus(cfg.Bus, logger)
	if err != nil {
		warnf("case-event stream unavailable: %v", err)
	}
	defer bus.Close()

	ledger, err := core.OpenLedger(cfg.Ledger.Path, logger)
	if err != nil {
		errorf("opening session ledger: %v", err)
	}
	defer ledger.Close()

	reports := core.NewReportBuilder(cfg.Reports, logger)
	runner := pipeline.NewRunner(reports, ledger, bus, *workers, logger)

	meta := pipeline.CaseMeta{
		CaseNumber:     *caseNumber,
		InvestigatorID: *investigator,
		Device:         *device,
	}
	res, err := runner.Run(context.Background(), analyzer, clf, records, meta)
	if err != nil {
		errorf("%v", err)
	}

	if parseFormat(*format) == FormatJSON {
		data, _ := json.MarshalIndent(res, "", "  ")
		fmt.Println(string(data))
		return
	}
	printRunSummary(res)
}

// readDomainRecords loads the extraction file. DNS accepts raw resolver query
// logs as well as JSON records; every other domain takes JSON.
func readDomainRecords(domain core.Domain, path string) ([]core.Record, error) {
	if domain == core.DomainDNS && !strings.HasSuffix(path, ".json") {
		return dns.ReadLog(path)
	}
	return core.ReadRecords(path)
}

// loadClassifier resolves the model artifact for a domain. A missing or
// unloadable model degrades the run rather than aborting it.
func loadClassifier(cfg *core.Config, domain core.Domain, override string) core.Classifier {
	path := override
	if path == "" {
		path = cfg.ModelPath(domain)
	}
	if path == "" {
		return nil
	}
	model, err := core.LoadModel(path)
	if err != nil {
		warnf("classifier unavailable, scoring on rules only: %v", err)
		return nil
	}
	return model
}

func buildAnalyzer(domain core.Domain, cfg *core.Config, intel core.Intel) pipeline.Analyzer {
	switch domain {
	case core.DomainBandwidth:
		return bandwidth.New(cfg.FloatSetting(domain, "threshold_mb", bandwidth.DefaultThresholdMB))
	case core.DomainDNS:
		return dns.New(intel)
	case core.DomainEmail:
		return email.New(email.WeightsFromConfig(cfg), intel)
	case core.DomainHiddenApp:
		return hiddenapps.New()
	case core.DomainPermission:
		return permissions.New()
	case core.DomainSSL:
		return ssl.New()
	}
	errorf("no analyzer registered for domain %q", domain)
	return nil
}

func printRunSummary(res *pipeline.RunResult) {
	risk := core.RiskFromScore(res.FinalScore).String()
	fmt.Fprintf(os.Stdout, "\n%s %s analysis complete — run %s\n\n",
		green("✓"), res.Domain.Title(), dim(res.RunID))

	t := NewTable(os.Stdout, "Records", "Findings", "Errors", "Final Score", "Overall Risk")
	t.AddRow(
		fmt.Sprintf("%d", len(res.Results)),
		fmt.Sprintf("%d", res.Findings),
		fmt.Sprintf("%d", res.Errors),
		fmt.Sprintf("%.1f", res.FinalScore),
		risk,
	)
	t.Render()
	fmt.Fprintf(os.Stdout, "\n  Overall risk: %s\n", riskColor(risk)(bold(risk)))

	high := 0
	for _, rr := range res.Results {
		if !rr.Errored() && rr.Finding.Risk == core.RiskHigh {
			high++
		}
	}
	if high > 0 {
		fmt.Fprintf(os.Stdout, "\n%s %d high-risk finding(s):\n", red("●"), high)
		for _, rr := range res.Results {
			if rr.Errored() || rr.Finding.Risk != core.RiskHigh {
				continue
			}
			fmt.Fprintf(os.Stdout, "  %s %s — %s\n",
				red("●"), bold(rr.Finding.Subject), strings.Join(rr.Finding.Reasons, "; "))
		}
	}

	fmt.Fprintf(os.Stdout, "\n%s\n", bold("EVIDENCE BUNDLE"))
	fmt.Fprintf(os.Stdout, "  %-10s %s\n", "report", res.Bundle.CSVPath)
	fmt.Fprintf(os.Stdout, "  %-10s %s\n", "manifest", res.Bundle.HashPath)
	fmt.Fprintf(os.Stdout, "  %-10s %s\n", "archive", res.Bundle.ZipPath)
	fmt.Fprintf(os.Stdout, "  %-10s %s\n", "sha256", dim(res.Bundle.Digest))
	if res.Session != nil {
		fmt.Fprintf(os.Stdout, "\n%s Session #%d recorded in the audit ledger.\n", green("✓"), res.Session.ID)
	}
	fmt.Println()
}
