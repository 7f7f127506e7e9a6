package core

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
)

// Verdict is the reputation classification returned by a threat-intel lookup.
type Verdict int

const (
	VerdictUnknown Verdict = iota
	VerdictClean
	VerdictSuspicious
	VerdictMalicious
	// VerdictError means the lookup itself failed (network, timeout). It is
	// distinct from Unknown so a transient outage is visible in the report.
	VerdictError
)

func (v Verdict) String() string {
	switch v {
	case VerdictClean:
		return "Clean"
	case VerdictSuspicious:
		return "Suspicious"
	case VerdictMalicious:
		return "Malicious"
	case VerdictError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Intel is the threat-intel collaborator boundary. Lookups never fail the
// pipeline: failures come back as VerdictError, a missing credential as
// VerdictUnknown.
type Intel interface {
	Lookup(ctx context.Context, domain string) Verdict
}

// IntelClient queries the VirusTotal v3 domains endpoint. Verdicts are cached
// in an LRU so a batch scores each distinct domain with at most one network
// call.
type IntelClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
	cache   *lru.Cache[string, Verdict]
	logger  zerolog.Logger
}

// NewIntelClient builds the client from config. The returned client is usable
// without a key; every lookup then reports Unknown without touching the
// network.
func NewIntelClient(cfg IntelConfig, logger zerolog.Logger) *IntelClient {
	timeout := 10 * time.Second
	if d, err := time.ParseDuration(cfg.Timeout); err == nil && d > 0 {
		timeout = d
	}
	size := cfg.CacheSize
	if size <= 0 {
		size = 1024
	}
	cache, _ := lru.New[string, Verdict](size)

	return &IntelClient{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		cache:   cache,
		logger:  logger.With().Str("component", "threat_intel").Logger(),
	}
}

// vtDomainReport is the subset of the VirusTotal response the verdict needs.
type vtDomainReport struct {
	Data struct {
		Attributes struct {
			LastAnalysisStats struct {
				Malicious  int `json:"malicious"`
				Suspicious int `json:"suspicious"`
			} `json:"last_analysis_stats"`
		} `json:"attributes"`
	} `json:"data"`
}

// Lookup returns the reputation verdict for a domain.
func (c *IntelClient) Lookup(ctx context.Context, domain string) Verdict {
	if c.apiKey == "" {
		return VerdictUnknown
	}
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return VerdictUnknown
	}

	if v, ok := c.cache.Get(domain); ok {
		return v
	}

	v := c.fetch(ctx, domain)
	// Transient failures are not cached; the next batch may succeed.
	if v != VerdictError {
		c.cache.Add(domain, v)
	}
	return v
}

func (c *IntelClient) fetch(ctx context.Context, domain string) Verdict {
	url := fmt.Sprintf("%s/domains/%s", c.baseURL, domain)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		c.logger.Error().Err(err).Str("domain", domain).Msg("building intel request")
		return VerdictError
	}
	req.Header.Set("x-apikey", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		wrapped := &ExternalServiceError{Service: "threat-intel", Err: err}
		c.logger.Warn().Err(wrapped).Str("domain", domain).Msg("intel lookup failed")
		return VerdictError
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Debug().Int("status", resp.StatusCode).Str("domain", domain).Msg("intel lookup non-OK")
		return VerdictUnknown
	}

	var report vtDomainReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		c.logger.Warn().Err(err).Str("domain", domain).Msg("parsing intel response")
		return VerdictError
	}

	stats := report.Data.Attributes.LastAnalysisStats
	switch {
	case stats.Malicious > 0:
		return VerdictMalicious
	case stats.Suspicious > 0:
		return VerdictSuspicious
	default:
		return VerdictClean
	}
}

// StaticIntel is an Intel implementation backed by a fixed verdict map, for
// tests and offline runs. Domains not in the map report Unknown.
type StaticIntel map[string]Verdict

func (s StaticIntel) Lookup(_ context.Context, domain string) Verdict {
	if v, ok := s[strings.ToLower(domain)]; ok {
		return v
	}
	return VerdictUnknown
}
