package ingest

import (
	"context"
	"time"
)

// SeedsOnlyDiscovery treats every configured seed as a document URL
// directly, with no crawl. Useful for sources that publish a fixed,
// manually curated list.
type SeedsOnlyDiscovery struct{}

func (SeedsOnlyDiscovery) Discover(ctx context.Context, cfg SourceConfig, fetcher *Fetcher) ([]DiscoveredDocument, error) {
	found := make([]DiscoveredDocument, 0, len(cfg.SeedURLs))
	for _, seed := range cfg.SeedURLs {
		found = append(found, DiscoveredDocument{
			URL:          seed,
			SourceKey:    cfg.Key,
			DiscoveredAt: time.Now().UTC(),
			FiscalYear:   extractYear(seed),
		})
	}
	return found, nil
}
