package main

// ---------------------------------------------------------------------------
// cmd_config.go — show, validate, initialize, or modify configuration
// ---------------------------------------------------------------------------

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/droidsift-project/droidsift/internal/core"
)

func cmdConfig(args []string) {
	if len(args) > 0 && args[0] == "set" {
		cmdConfigSet(args[1:])
		return
	}
	if len(args) > 0 && args[0] == "init" {
		cmdConfigInit(args[1:])
		return
	}

	fs := flag.NewFlagSet("config", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Config file path")
	validate := fs.Bool("validate", false, "Validate config and exit")
	format := fs.String("format", "table", "Output format: table, json")
	output := fs.String("output", "", "Write output to file")
	fs.Parse(args)

	path := envConfig(*configPath)
	cfg, err := core.LoadConfig(path)
	if err != nil {
		if *validate {
			fmt.Fprintf(os.Stderr, "%s Config invalid: %v\n", red("✗"), err)
			os.Exit(1)
		}
		errorf("loading config: %v", err)
	}

	if *validate {
		issues := make([]string, 0)
		if cfg.Reports.Dir == "" {
			issues = append(issues, "reports.dir must not be empty")
		}
		if cfg.Ledger.Path == "" {
			issues = append(issues, "ledger.path must not be empty")
		}
		if cfg.Bus.Enabled && (cfg.Bus.Port < 1 || cfg.Bus.Port > 65535) {
			issues = append(issues, fmt.Sprintf("bus.port %d is out of range (1-65535)", cfg.Bus.Port))
		}
		if _, err := time.ParseDuration(cfg.Intel.Timeout); err != nil {
			issues = append(issues, fmt.Sprintf("intel.timeout %q is not a duration", cfg.Intel.Timeout))
		}
		validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
		if !validLevels[cfg.LogLevel()] {
			issues = append(issues, fmt.Sprintf("logging.level %q is not valid (debug, info, warn, error)", cfg.Logging.Level))
		}
		for name := range cfg.Domains {
			if _, err := core.ParseDomain(name); err != nil {
				issues = append(issues, fmt.Sprintf("domains.%s is not a known analysis domain", name))
			}
		}
		for name := range cfg.Models {
			if _, err := core.ParseDomain(name); err != nil {
				issues = append(issues, fmt.Sprintf("models.%s is not a known analysis domain", name))
			}
		}

		if len(issues) > 0 {
			fmt.Fprintf(os.Stderr, "%s Config has %d issue(s):\n", red("✗"), len(issues))
			for _, issue := range issues {
				fmt.Fprintf(os.Stderr, "  - %s\n", issue)
			}
			os.Exit(1)
		}

		enabled := 0
		for _, d := range core.Domains {
			if cfg.IsDomainEnabled(d) {
				enabled++
			}
		}
		fmt.Fprintf(os.Stdout, "%s Config valid (%s). %d/%d domains enabled.\n",
			green("✓"), path, enabled, len(core.Domains))
		os.Exit(0)
	}

	w, cleanup := outputWriter(*output)
	defer cleanup()

	if parseFormat(*format) == FormatJSON {
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			errorf("marshaling config: %v", err)
		}
		fmt.Fprintln(w, string(data))
		return
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		errorf("marshaling config: %v", err)
	}
	fmt.Fprint(w, string(data))
}

func cmdConfigInit(args []string) {
	fs := flag.NewFlagSet("config-init", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Config file path")
	force := fs.Bool("force", false, "Overwrite an existing file")
	fs.Parse(args)

	path := envConfig(*configPath)
	if _, err := os.Stat(path); err == nil && !*force {
		errorf("%s already exists (use --force to overwrite)", path)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			errorf("creating config dir: %v", err)
		}
	}

	if err := core.SaveConfig(core.DefaultConfig(), path); err != nil {
		errorf("writing config: %v", err)
	}
	fmt.Fprintf(os.Stdout, "%s Wrote starter configuration to %s\n", green("✓"), path)
}

func cmdConfigSet(args []string) {
	fs := flag.NewFlagSet("config-set", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Config file path")
	fs.Parse(args)

	path := envConfig(*configPath)
	remaining := fs.Args()
	if len(remaining) < 2 {
		errorf("usage: droidsift config set <key> <value>\n\nExamples:\n  droidsift config set logging.level debug\n  droidsift config set domains.bandwidth.settings.threshold_mb 2.5\n  droidsift config set bus.enabled true")
	}

	key := remaining[0]
	value := remaining[1]

	data, err := os.ReadFile(path)
	if err != nil {
		errorf("reading config: %v", err)
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		errorf("parsing config: %v", err)
	}

	parts := strings.Split(key, ".")
	if err := setNestedValue(raw, parts, value); err != nil {
		errorf("setting %s: %v", key, err)
	}

	out, err := yaml.Marshal(raw)
	if err != nil {
		errorf("marshaling config: %v", err)
	}

	if err := os.WriteFile(path, out, 0644); err != nil {
		errorf("writing config: %v", err)
	}

	fmt.Fprintf(os.Stdout, "%s Set %s = %s in %s\n", green("✓"), bold(key), value, path)
}

func setNestedValue(m map[string]interface{}, path []string, value string) error {
	if len(path) == 0 {
		return fmt.Errorf("empty key path")
	}

	if len(path) == 1 {
		m[path[0]] = parseValue(value)
		return nil
	}

	next, ok := m[path[0]]
	if !ok {
		next = map[string]interface{}{}
		m[path[0]] = next
	}

	nextMap, ok := next.(map[string]interface{})
	if !ok {
		return fmt.Errorf("key %q is not a map", path[0])
	}

	return setNestedValue(nextMap, path[1:], value)
}
