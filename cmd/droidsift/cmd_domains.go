package main

// ---------------------------------------------------------------------------
// cmd_domains.go — list available analysis domains
// ---------------------------------------------------------------------------

import (
	"flag"
	"os"

	"github.com/droidsift-project/droidsift/internal/core"
)

func cmdDomains(args []string) {
	fs := flag.NewFlagSet("domains", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Config file path")
	fs.Parse(args)

	cfg := loadConfigOrDie(*configPath)

	t := NewTable(os.Stdout, "Domain", "Enabled", "Model", "Description")
	for _, d := range core.Domains {
		enabled := green("yes")
		if !cfg.IsDomainEnabled(d) {
			enabled = dim("no")
		}
		model := cfg.ModelPath(d)
		if model == "" {
			model = dim("rules only")
		}
		t.AddRow(d.String(), enabled, model, buildAnalyzer(d, cfg, nil).Description())
	}
	t.Render()
}
