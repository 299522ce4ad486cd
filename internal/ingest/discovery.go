package ingest

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/kefis/kefis/internal/domain"
)

// DiscoveryMeta carries the provenance a discovery strategy observed
// while finding a document: how deep the crawl was, what breadcrumb
// trail led to it, and a coarse level label (e.g. OAG's
// national/county split, or opendata's CKAN "dataset" level).
type DiscoveryMeta struct {
	Breadcrumbs []string `json:"breadcrumbs,omitempty"`
	Year        int      `json:"year,omitempty"`
	Level       string   `json:"level,omitempty"`
}

// DiscoveredDocument is a candidate document URL surfaced by a
// discovery strategy, not yet fetched.
type DiscoveredDocument struct {
	URL          string
	SourceKey    string
	Title        string
	DocType      domain.DocType
	DiscoveredAt time.Time
	FiscalYear   int // best-effort, 0 if undetermined
	Meta         DiscoveryMeta
}

// DiscoveryStrategy finds candidate document URLs for one source.
// Mirrors the teacher's FetcherStrategy interface shape (strategies.go)
// generalized from "ingest a page of opportunities" to "list document
// URLs"; fetching and parsing are separate stages here.
type DiscoveryStrategy interface {
	Discover(ctx context.Context, cfg SourceConfig, fetcher *Fetcher) ([]DiscoveredDocument, error)
}

// DiscoveryFactory resolves a SourceConfig's DiscoveryKind to a
// DiscoveryStrategy implementation, mirroring the teacher's
// StrategyFactory/GlobalStrategyFactory registration pattern.
type DiscoveryFactory struct {
	strategies map[DiscoveryKind]DiscoveryStrategy
}

func NewDiscoveryFactory() *DiscoveryFactory {
	return &DiscoveryFactory{strategies: make(map[DiscoveryKind]DiscoveryStrategy)}
}

func (f *DiscoveryFactory) Register(kind DiscoveryKind, s DiscoveryStrategy) {
	f.strategies[kind] = s
}

func (f *DiscoveryFactory) Get(kind DiscoveryKind) (DiscoveryStrategy, bool) {
	s, ok := f.strategies[kind]
	return s, ok
}

// GlobalDiscoveryFactory is populated in init() with the four
// discovery kinds SPEC_FULL.md §4.4 describes.
var GlobalDiscoveryFactory = NewDiscoveryFactory()

func init() {
	GlobalDiscoveryFactory.Register(DiscoveryBFS, &BFSDiscovery{})
	GlobalDiscoveryFactory.Register(DiscoverySitemap, &SitemapDiscovery{})
	GlobalDiscoveryFactory.Register(DiscoveryCKAN, &CKANDiscovery{})
	GlobalDiscoveryFactory.Register(DiscoverySeedsOnly, &SeedsOnlyDiscovery{})
}

// yearPattern pulls a plausible fiscal year out of a URL or title,
// e.g. "2023-24", "2023/2024", "FY2023".
var yearPattern = regexp.MustCompile(`(20\d{2})`)

func extractYear(s string) int {
	m := yearPattern.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	var y int
	fmt.Sscanf(m[1], "%d", &y)
	return y
}

// sameHost reports whether candidate belongs to one of allowedHosts.
func sameHost(candidate string, allowedHosts []string) bool {
	u, err := url.Parse(candidate)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, allowed := range allowedHosts {
		if strings.EqualFold(host, allowed) {
			return true
		}
	}
	return false
}

// isExcluded reports whether candidate's path matches one of the
// source's excluded path prefixes.
func isExcluded(candidate string, excludedPaths []string) bool {
	u, err := url.Parse(candidate)
	if err != nil {
		return true
	}
	for _, p := range excludedPaths {
		if strings.HasPrefix(u.Path, p) {
			return true
		}
	}
	return false
}

// looksLikeDocument reports whether a URL plausibly points at a
// downloadable document rather than another listing/navigation page.
func looksLikeDocument(candidate string) bool {
	lower := strings.ToLower(candidate)
	for _, ext := range []string{".pdf", ".xls", ".xlsx", ".csv", ".doc", ".docx", ".zip"} {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
