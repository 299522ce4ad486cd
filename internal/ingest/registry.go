package ingest

import (
	"embed"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed config/sources.yaml
var embeddedSourcesYAML embed.FS

// FetchConfig is the per-source fetch policy: timeouts, retry budget,
// politeness rate, and any source-specific transport quirks.
type FetchConfig struct {
	TimeoutSeconds  int    `yaml:"timeout_seconds" validate:"required,min=1"`
	MaxRetries      int    `yaml:"max_retries" validate:"min=0,max=10"`
	RateLimitRPS    float64 `yaml:"rate_limit_rps" validate:"required,gt=0"`
	ProxyURL        string `yaml:"proxy_url"`
	AcceptLanguage  string `yaml:"accept_language"`
	AllowTLSFallback bool  `yaml:"allow_tls_fallback"`
}

// DiscoveryKind selects which C4 strategy handles a source.
type DiscoveryKind string

const (
	DiscoveryBFS       DiscoveryKind = "bfs"       // generic same-host link crawl
	DiscoverySitemap   DiscoveryKind = "sitemap"    // sitemap-index -> sitemaps -> urls
	DiscoveryCKAN      DiscoveryKind = "ckan"       // CKAN package_search enumeration
	DiscoverySeedsOnly DiscoveryKind = "seeds_only" // fixed list of document URLs, no crawl
)

// ParserFamily selects which parser group a source's documents get run
// through. Per-document classification (ClassifyDocType) picks the
// specific parser within the "fiscal" family; "statistics" sources
// (KNBS, opendata) have no BUDGET/AUDIT/LOAN/REPORT shape at all and
// always route to ParseStatistics.
type ParserFamily string

const (
	ParserFamilyFiscal      ParserFamily = "fiscal"
	ParserFamilyStatistics  ParserFamily = "statistics"
)

// SourceConfig describes one of Kenya's fiscal-data publishers.
type SourceConfig struct {
	Key           string        `yaml:"key" validate:"required"`
	Name          string        `yaml:"name" validate:"required"`
	BaseURL       string        `yaml:"base_url" validate:"required,url"`
	Discovery     DiscoveryKind `yaml:"discovery" validate:"required,oneof=bfs sitemap ckan seeds_only"`
	SeedURLs      []string      `yaml:"seed_urls"`
	SitemapURL    string        `yaml:"sitemap_url"`
	AllowedHosts  []string      `yaml:"allowed_hosts" validate:"required,min=1"`
	MaxDepth      int           `yaml:"max_depth" validate:"min=0,max=10"`
	MaxPages      int           `yaml:"max_pages" validate:"min=0"`
	ExcludedPaths []string      `yaml:"excluded_paths"`
	ParserFamily  ParserFamily  `yaml:"parser_family" validate:"required,oneof=fiscal statistics"`
	Schedule      string        `yaml:"schedule"` // human label; actual cadence lives in scheduler.go
	Fetch         FetchConfig   `yaml:"fetch" validate:"required"`
}

// Registry is the decoded set of all configured sources.
type Registry struct {
	Sources []SourceConfig `yaml:"sources" validate:"required,min=1,dive"`
}

// LoadRegistry reads source configuration from path if it exists,
// falling back to the config embedded at build time. ${VAR} references
// in the YAML are expanded against the process environment before
// parsing, and the decoded result is struct-validated.
func LoadRegistry(path string) (*Registry, error) {
	var raw []byte
	var err error

	if path != "" {
		raw, err = os.ReadFile(path)
	}
	if path == "" || err != nil {
		raw, err = embeddedSourcesYAML.ReadFile("config/sources.yaml")
	}
	if err != nil {
		return nil, fmt.Errorf("loading source registry: %w", err)
	}

	expanded := os.ExpandEnv(string(raw))

	var reg Registry
	if err := yaml.Unmarshal([]byte(expanded), &reg); err != nil {
		return nil, fmt.Errorf("parsing source registry: %w", err)
	}

	v := validator.New()
	if err := v.Struct(&reg); err != nil {
		return nil, fmt.Errorf("validating source registry: %w", err)
	}

	return &reg, nil
}

// Get returns the source with the given key, if configured.
func (r *Registry) Get(key string) (SourceConfig, bool) {
	for _, s := range r.Sources {
		if s.Key == key {
			return s, true
		}
	}
	return SourceConfig{}, false
}
