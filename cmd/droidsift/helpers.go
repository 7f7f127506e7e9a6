package main

// ---------------------------------------------------------------------------
// helpers.go — TTY detection, color, error helpers, env-based config, logging
// ---------------------------------------------------------------------------

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/droidsift-project/droidsift/internal/core"
)

const defaultConfigPath = "configs/droidsift.yaml"

// ---------------------------------------------------------------------------
// TTY / color helpers
// ---------------------------------------------------------------------------

func isTTY(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

func colorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return isTTY(os.Stderr)
}

func ansi(code, s string) string {
	if !colorEnabled() {
		return s
	}
	return code + s + "\033[0m"
}

func red(s string) string    { return ansi("\033[91m", s) }
func yellow(s string) string { return ansi("\033[93m", s) }
func green(s string) string  { return ansi("\033[32m", s) }
func cyan(s string) string   { return ansi("\033[36m", s) }
func dim(s string) string    { return ansi("\033[90m", s) }
func bold(s string) string   { return ansi("\033[1m", s) }

// riskColor picks the display color for a risk level string.
func riskColor(risk string) func(string) string {
	switch risk {
	case "High", "Error":
		return red
	case "Intermediate":
		return yellow
	case "Low":
		return green
	default:
		return dim
	}
}

// ---------------------------------------------------------------------------
// Error / warn helpers (always to stderr)
// ---------------------------------------------------------------------------

func errorf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, red("error: ")+format+"\n", args...)
	os.Exit(1)
}

func warnf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, yellow("warn: ")+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Env-based configuration
//
// Environment variables:
//   DROIDSIFT_CONFIG — default config file path
//   VT_API_KEY       — threat-intel API key (read by core.LoadConfig)
// ---------------------------------------------------------------------------

// envConfig returns the config path, preferring flag > env > default.
func envConfig(flagVal string) string {
	if flagVal != "" && flagVal != defaultConfigPath {
		return flagVal
	}
	if e := os.Getenv("DROIDSIFT_CONFIG"); e != "" {
		return e
	}
	return flagVal
}

// loadConfigOrDie loads the config file or exits with a CLI error.
func loadConfigOrDie(path string) *core.Config {
	cfg, err := core.LoadConfig(envConfig(path))
	if err != nil {
		errorf("loading config: %v", err)
	}
	return cfg
}

// newLogger builds the process logger from config. Console format writes
// human-readable lines to stderr; anything else emits JSON.
func newLogger(cfg *core.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel())
	if err != nil {
		level = zerolog.InfoLevel
	}

	if cfg.Logging.Format == "console" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			Level(level).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
}

// ---------------------------------------------------------------------------
// hasFlag checks if any of the given flags appear in args.
// ---------------------------------------------------------------------------

func hasFlag(args []string, flags ...string) bool {
	for _, a := range args {
		for _, f := range flags {
			if a == f {
				return true
			}
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Suggest — typo correction for unknown commands
// ---------------------------------------------------------------------------

func suggest(input string) string {
	cmds := []string{"analyze", "sessions", "timeline", "verify", "domains",
		"config", "version", "help"}
	input = strings.ToLower(input)
	for _, c := range cmds {
		if strings.HasPrefix(c, input) || strings.HasPrefix(input, c) {
			return c
		}
	}
	for _, c := range cmds {
		if len(c) == len(input) {
			diff := 0
			for i := range c {
				if c[i] != input[i] {
					diff++
				}
			}
			if diff <= 1 {
				return c
			}
		}
	}
	return ""
}

// ---------------------------------------------------------------------------
// parseValue converts a string to the appropriate Go type.
// ---------------------------------------------------------------------------

func parseValue(s string) interface{} {
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := fmt.Sscanf(s, "%d", new(int)); n == 1 && err == nil && !strings.Contains(s, ".") {
		var i int
		fmt.Sscanf(s, "%d", &i)
		return i
	}
	if n, err := fmt.Sscanf(s, "%f", new(float64)); n == 1 && err == nil && strings.Contains(s, ".") {
		var f float64
		fmt.Sscanf(s, "%f", &f)
		return f
	}
	return s
}
