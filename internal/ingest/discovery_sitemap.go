package ingest

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/antchfx/xmlquery"

	"github.com/kefis/kefis/internal/obs"
)

// SitemapDiscovery walks a sitemap index (a sitemap-of-sitemaps) down
// to individual <url><loc> entries. COB publishes its document
// catalogue this way; the recursive structure (index -> sitemaps ->
// urls) isn't something the teacher's colly-based crawl handles, so
// this uses antchfx/xmlquery directly against each fetched XML
// document instead.
type SitemapDiscovery struct{}

func (SitemapDiscovery) Discover(ctx context.Context, cfg SourceConfig, fetcher *Fetcher) ([]DiscoveredDocument, error) {
	if cfg.SitemapURL == "" {
		return nil, fmt.Errorf("sitemap discovery for %s: no sitemap_url configured", cfg.Key)
	}

	var found []DiscoveredDocument
	visitedSitemaps := make(map[string]bool)

	var walk func(sitemapURL string) error
	walk = func(sitemapURL string) error {
		if visitedSitemaps[sitemapURL] {
			return nil
		}
		visitedSitemaps[sitemapURL] = true

		doc, err := fetcher.Fetch(ctx, sitemapURL)
		if err != nil {
			return fmt.Errorf("fetching sitemap %s: %w", sitemapURL, err)
		}
		if doc == nil {
			return nil // manifest hit, nothing new
		}

		xdoc, err := xmlquery.Parse(bytes.NewReader(doc.Body))
		if err != nil {
			return fmt.Errorf("parsing sitemap xml %s: %w", sitemapURL, err)
		}

		// Nested sitemap index: <sitemapindex><sitemap><loc>...
		for _, n := range xmlquery.Find(xdoc, "//sitemapindex/sitemap/loc") {
			childURL := n.InnerText()
			if cfg.MaxPages > 0 && len(visitedSitemaps) >= cfg.MaxPages {
				break
			}
			if err := walk(childURL); err != nil {
				obs.L.Warn().Str("source_key", cfg.Key).Str("sitemap", childURL).Err(err).Msg("nested sitemap walk failed")
			}
		}

		// Leaf sitemap: <urlset><url><loc>...
		for _, n := range xmlquery.Find(xdoc, "//urlset/url/loc") {
			link := n.InnerText()
			if !sameHost(link, cfg.AllowedHosts) || isExcluded(link, cfg.ExcludedPaths) {
				continue
			}
			if !looksLikeDocument(link) {
				continue
			}
			found = append(found, DiscoveredDocument{
				URL:          link,
				SourceKey:    cfg.Key,
				DiscoveredAt: time.Now().UTC(),
				FiscalYear:   extractYear(link),
				Meta:         DiscoveryMeta{Level: "sitemap"},
			})
		}

		return nil
	}

	if err := walk(cfg.SitemapURL); err != nil {
		return found, err
	}
	return found, nil
}
