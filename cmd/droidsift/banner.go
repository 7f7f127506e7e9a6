package main

// ---------------------------------------------------------------------------
// banner.go — banner, version/usage printing, per-command help
// ---------------------------------------------------------------------------

import (
	"fmt"
	"io"
	"os"
	goruntime "runtime"
	"runtime/debug"
)

func bannerText() string {
	banner := `
    ╔════════════════════════════════════════════════════╗
    ║                                                    ║
    ║   ▄▄▄▄  ▄▄▄▄   ▄▄▄▄  ▄▄ ▄▄▄▄   ▄▄▄▄ ▄▄ ▄▄▄▄ ▄▄▄▄  ║
    ║   ██ ██ ██ ██ ██  ██ ██ ██ ██  ██    ██ ██    ██   ║
    ║   ██ ██ ████▀ ██  ██ ██ ██ ██  ▀███▄ ██ ███   ██   ║
    ║   ██ ██ ██ ██ ██  ██ ██ ██ ██     ██ ██ ██    ██   ║
    ║   ▀▀▀▀  ▀▀ ▀▀  ▀▀▀▀  ▀▀ ▀▀▀▀   ▀▀▀▀  ▀▀ ▀▀    ▀▀   ║
    ║                                                    ║
    ║        MOBILE ARTIFACT TRIAGE PIPELINE             ║
    ║                                                    ║
    ╚════════════════════════════════════════════════════╝
`
	if !colorEnabled() {
		return banner
	}
	return "\033[36m" + banner + "\033[0m"
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "droidsift v%s", version)
	if commit != "dev" {
		fmt.Fprintf(w, " (%s)", commit[:min(7, len(commit))])
	}
	if buildDate != "unknown" {
		fmt.Fprintf(w, " built %s", buildDate)
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		fmt.Fprintf(w, " %s", bi.GoVersion)
	}
	fmt.Fprintf(w, " %s/%s", goruntime.GOOS, goruntime.GOARCH)
	fmt.Fprintln(w)
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, bannerText())
	fmt.Fprintf(w, "  %s\n\n", dim("v"+version))
	fmt.Fprintf(w, "%s\n\n", bold("USAGE"))
	fmt.Fprintf(w, "  droidsift <command> [flags]\n\n")
	fmt.Fprintf(w, "%s\n\n", bold("COMMANDS"))
	fmt.Fprintf(w, "  %-10s  %s\n", bold("analyze"), "Run one analysis domain over an extraction file")
	fmt.Fprintf(w, "  %-10s  %s\n", bold("sessions"), "Query the audit ledger of past analysis runs")
	fmt.Fprintf(w, "  %-10s  %s\n", bold("timeline"), "Fuse per-domain reports into one activity timeline")
	fmt.Fprintf(w, "  %-10s  %s\n", bold("verify"), "Check evidence CSVs against their hash manifests")
	fmt.Fprintf(w, "  %-10s  %s\n", bold("domains"), "List available analysis domains")
	fmt.Fprintf(w, "  %-10s  %s\n", bold("config"), "Show, validate, initialize, or set configuration")
	fmt.Fprintf(w, "  %-10s  %s\n", bold("version"), "Print version and build info")
	fmt.Fprintf(w, "  %-10s  %s\n", bold("help"), "Show help for a command")
	fmt.Fprintf(w, "\n%s\n\n", bold("GLOBAL FLAGS"))
	fmt.Fprintf(w, "  %-22s  %s\n", "--config <path>", "Config file path (default: "+defaultConfigPath+", env: DROIDSIFT_CONFIG)")
	fmt.Fprintf(w, "  %-22s  %s\n", "--format <fmt>", "Output format: table, json, csv (default: table)")
	fmt.Fprintf(w, "  %-22s  %s\n", "--version, -V", "Print version and exit")
	fmt.Fprintf(w, "  %-22s  %s\n", "--help, -h", "Show help")
	fmt.Fprintf(w, "\n%s\n\n", bold("ENVIRONMENT VARIABLES"))
	fmt.Fprintf(w, "  %-22s  %s\n", "DROIDSIFT_CONFIG", "Default config file path")
	fmt.Fprintf(w, "  %-22s  %s\n", "VT_API_KEY", "Threat-intel API key")
	fmt.Fprintf(w, "\n%s\n\n", bold("EXAMPLES"))
	fmt.Fprintf(w, "  %s\n", dim("# Score a DNS log for case 2026-0142"))
	fmt.Fprintf(w, "  droidsift analyze --domain dns --input dns_queries.log --case 2026-0142 --investigator jdoe\n\n")
	fmt.Fprintf(w, "  %s\n", dim("# Score extracted email metadata with a trained model"))
	fmt.Fprintf(w, "  droidsift analyze --domain email --input emails.json --model models/email.json\n\n")
	fmt.Fprintf(w, "  %s\n", dim("# Review an investigator's past runs"))
	fmt.Fprintf(w, "  droidsift sessions --investigator jdoe --format json\n\n")
	fmt.Fprintf(w, "  %s\n", dim("# Fuse the newest reports into a cross-domain timeline"))
	fmt.Fprintf(w, "  droidsift timeline --output timeline.csv --format csv\n\n")
	fmt.Fprintf(w, "  %s\n", dim("# Verify bundle integrity before presenting evidence"))
	fmt.Fprintf(w, "  droidsift verify reports/dns/hash_20260830_141502.txt\n\n")
	fmt.Fprintf(w, "Run %s for detailed help on any command.\n\n", bold("droidsift help <command>"))
}

func cmdHelp(cmd string) {
	w := os.Stdout
	switch cmd {
	case "analyze":
		fmt.Fprintf(w, "%s\n\n", bold("droidsift analyze — run one analysis domain over an extraction file"))
		fmt.Fprintf(w, "USAGE\n  droidsift analyze --domain <domain> --input <file> [flags]\n\n")
		fmt.Fprintf(w, "FLAGS\n")
		fmt.Fprintf(w, "  %-24s %s\n", "--domain <name>", "Analysis domain (see 'droidsift domains')")
		fmt.Fprintf(w, "  %-24s %s\n", "--input <file>", "Extraction file: JSON records, or a query log for dns")
		fmt.Fprintf(w, "  %-24s %s\n", "--case <number>", "Case number recorded in the session ledger")
		fmt.Fprintf(w, "  %-24s %s\n", "--investigator <id>", "Investigator identifier")
		fmt.Fprintf(w, "  %-24s %s\n", "--device <name>", "Source device label")
		fmt.Fprintf(w, "  %-24s %s\n", "--model <file>", "Classifier artifact (overrides config)")
		fmt.Fprintf(w, "  %-24s %s\n", "--workers <n>", "Parallel record scoring (default 1)")
		fmt.Fprintf(w, "  %-24s %s\n", "--config <path>", "Config file path")
		fmt.Fprintf(w, "  %-24s %s\n", "--format <fmt>", "Summary format: table, json")
		fmt.Fprintf(w, "\nEvery run writes a CSV report, a SHA-256 hash manifest, and a ZIP bundle,\n")
		fmt.Fprintf(w, "then appends a session entry to the audit ledger.\n")
	case "sessions":
		fmt.Fprintf(w, "%s\n\n", bold("droidsift sessions — query the audit ledger of past analysis runs"))
		fmt.Fprintf(w, "USAGE\n  droidsift sessions [flags]\n\n")
		fmt.Fprintf(w, "FLAGS\n")
		fmt.Fprintf(w, "  %-24s %s\n", "--investigator <id>", "Filter by investigator")
		fmt.Fprintf(w, "  %-24s %s\n", "--workflow <domain>", "Filter by analysis domain")
		fmt.Fprintf(w, "  %-24s %s\n", "--config <path>", "Config file path")
		fmt.Fprintf(w, "  %-24s %s\n", "--format <fmt>", "Output format: table, json, csv")
		fmt.Fprintf(w, "  %-24s %s\n", "--output <file>", "Write output to file")
		fmt.Fprintf(w, "\nSessions are listed newest first. The ledger is append-only.\n")
	case "timeline":
		fmt.Fprintf(w, "%s\n\n", bold("droidsift timeline — fuse per-domain reports into one activity timeline"))
		fmt.Fprintf(w, "USAGE\n  droidsift timeline [flags]\n\n")
		fmt.Fprintf(w, "FLAGS\n")
		fmt.Fprintf(w, "  %-24s %s\n", "--dns <file>", "DNS report CSV (default: newest in reports/dns)")
		fmt.Fprintf(w, "  %-24s %s\n", "--email <file>", "Email report CSV")
		fmt.Fprintf(w, "  %-24s %s\n", "--ssl <file>", "SSL report CSV")
		fmt.Fprintf(w, "  %-24s %s\n", "--hidden-apps <file>", "Hidden app report CSV")
		fmt.Fprintf(w, "  %-24s %s\n", "--bandwidth <file>", "Bandwidth report CSV")
		fmt.Fprintf(w, "  %-24s %s\n", "--risk <level>", "Only include events at this risk level")
		fmt.Fprintf(w, "  %-24s %s\n", "--config <path>", "Config file path")
		fmt.Fprintf(w, "  %-24s %s\n", "--format <fmt>", "Output format: table, json, csv")
		fmt.Fprintf(w, "  %-24s %s\n", "--output <file>", "Write output to file")
		fmt.Fprintf(w, "\nWith no source flags the newest report per domain is used. Rows without a\n")
		fmt.Fprintf(w, "parseable timestamp are dropped; events are sorted oldest first.\n")
	case "verify":
		fmt.Fprintf(w, "%s\n\n", bold("droidsift verify — check evidence CSVs against their hash manifests"))
		fmt.Fprintf(w, "USAGE\n  droidsift verify <manifest>... [flags]\n")
		fmt.Fprintf(w, "       droidsift verify --all [flags]\n\n")
		fmt.Fprintf(w, "FLAGS\n")
		fmt.Fprintf(w, "  %-24s %s\n", "--all", "Verify every manifest under the reports directory")
		fmt.Fprintf(w, "  %-24s %s\n", "--config <path>", "Config file path")
		fmt.Fprintf(w, "\nExit status is nonzero if any manifest fails verification.\n")
	case "domains":
		fmt.Fprintf(w, "%s\n\n", bold("droidsift domains — list available analysis domains"))
		fmt.Fprintf(w, "USAGE\n  droidsift domains [--config <path>]\n")
	case "config":
		fmt.Fprintf(w, "%s\n\n", bold("droidsift config — show, validate, initialize, or set configuration"))
		fmt.Fprintf(w, "USAGE\n  droidsift config [flags]\n")
		fmt.Fprintf(w, "       droidsift config init [--config <path>]\n")
		fmt.Fprintf(w, "       droidsift config set <key> <value> [--config <path>]\n\n")
		fmt.Fprintf(w, "FLAGS\n")
		fmt.Fprintf(w, "  %-24s %s\n", "--validate", "Validate config and exit")
		fmt.Fprintf(w, "  %-24s %s\n", "--format <fmt>", "Output format: table (yaml), json")
		fmt.Fprintf(w, "\nEXAMPLES\n")
		fmt.Fprintf(w, "  droidsift config set domains.bandwidth.settings.threshold_mb 2.5\n")
		fmt.Fprintf(w, "  droidsift config set logging.level debug\n")
	case "version":
		fmt.Fprintf(w, "%s\n\n", bold("droidsift version — print version and build info"))
		fmt.Fprintf(w, "USAGE\n  droidsift version\n")
	default:
		printUsage(w)
	}
}
