package core

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the entire droidsift configuration.
type Config struct {
	Reports Reports                 `yaml:"reports"`
	Ledger  LedgerConfig            `yaml:"ledger"`
	Intel   IntelConfig             `yaml:"intel"`
	Bus     BusConfig               `yaml:"bus"`
	Models  map[string]string       `yaml:"models"` // domain name → classifier artifact path
	Domains map[string]DomainConfig `yaml:"domains"`
	Logging LoggingConfig           `yaml:"logging"`
}

// Reports holds evidence bundle output settings.
type Reports struct {
	Dir    string `yaml:"dir"`     // per-domain CSV + manifest root
	ZipDir string `yaml:"zip_dir"` // bundled ZIP output
}

// LedgerConfig holds session ledger settings.
type LedgerConfig struct {
	Path string `yaml:"path"`
}

// IntelConfig holds threat-intel lookup settings. The API key is read once at
// process start; an empty key degrades every lookup to Unknown.
type IntelConfig struct {
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	Timeout   string `yaml:"timeout"`
	CacheSize int    `yaml:"cache_size"`
}

// BusConfig holds the optional case-event stream settings.
type BusConfig struct {
	Enabled  bool   `yaml:"enabled"`
	URL      string `yaml:"url"`
	Embedded bool   `yaml:"embedded"`
	Port     int    `yaml:"port"`
}

// DomainConfig holds per-domain analyzer settings.
type DomainConfig struct {
	Enabled  bool                   `yaml:"enabled"`
	Settings map[string]interface{} `yaml:"settings"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns a Config with sane defaults — zero-config works out of the box.
func DefaultConfig() *Config {
	domains := make(map[string]DomainConfig, len(Domains))
	for _, d := range Domains {
		domains[d.String()] = DomainConfig{Enabled: true, Settings: map[string]interface{}{}}
	}
	return &Config{
		Reports: Reports{
			Dir:    "reports",
			ZipDir: "reports/zipped_reports",
		},
		Ledger: LedgerConfig{
			Path: "database/forensics.db",
		},
		Intel: IntelConfig{
			BaseURL:   "https://www.virustotal.com/api/v3",
			Timeout:   "10s",
			CacheSize: 1024,
		},
		Bus: BusConfig{
			Enabled:  false,
			URL:      "nats://127.0.0.1:4222",
			Embedded: true,
			Port:     4222,
		},
		Models:  map[string]string{},
		Domains: domains,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from a YAML file, falling back to defaults.
// The threat-intel API key may also come from the VT_API_KEY environment
// variable; the file value wins if both are set.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if cfg.Intel.APIKey == "" {
		cfg.Intel.APIKey = os.Getenv("VT_API_KEY")
	}

	return cfg, nil
}

// SaveConfig writes the configuration to a YAML file.
func SaveConfig(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// IsDomainEnabled checks if an analysis domain is enabled.
func (c *Config) IsDomainEnabled(d Domain) bool {
	dc, ok := c.Domains[d.String()]
	if !ok {
		return true
	}
	return dc.Enabled
}

// DomainSettings returns the settings map for a domain.
func (c *Config) DomainSettings(d Domain) map[string]interface{} {
	dc, ok := c.Domains[d.String()]
	if !ok || dc.Settings == nil {
		return map[string]interface{}{}
	}
	return dc.Settings
}

// DomainSetting returns a specific setting value for a domain.
func (c *Config) DomainSetting(d Domain, key string, defaultVal interface{}) interface{} {
	settings := c.DomainSettings(d)
	if val, ok := settings[key]; ok {
		return val
	}
	return defaultVal
}

// FloatSetting returns a numeric domain setting, tolerating int or float YAML
// values.
func (c *Config) FloatSetting(d Domain, key string, defaultVal float64) float64 {
	switch v := c.DomainSetting(d, key, defaultVal).(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return defaultVal
	}
}

// IntSetting returns an integer domain setting.
func (c *Config) IntSetting(d Domain, key string, defaultVal int) int {
	switch v := c.DomainSetting(d, key, defaultVal).(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return defaultVal
	}
}

// ModelPath returns the classifier artifact path for a domain, or "" when no
// model is configured.
func (c *Config) ModelPath(d Domain) string {
	return c.Models[d.String()]
}

// LogLevel returns the normalized log level string.
func (c *Config) LogLevel() string {
	return strings.ToLower(c.Logging.Level)
}
