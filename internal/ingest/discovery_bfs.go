package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/kefis/kefis/internal/obs"
)

// BFSDiscovery crawls a source breadth-first from its seed URLs,
// following only same-host links (SPEC_FULL.md §4.4's same-host-only
// invariant), up to MaxDepth/MaxPages, collecting links that look like
// documents. Grounded on the teacher's strategy_html_generic.go colly
// collector setup (AllowedDomains, LimitRule, OnHTML link harvesting,
// visited-URL cycle guard) generalized from "grant listing" to "any
// linked document".
type BFSDiscovery struct{}

func (BFSDiscovery) Discover(ctx context.Context, cfg SourceConfig, fetcher *Fetcher) ([]DiscoveredDocument, error) {
	if len(cfg.SeedURLs) == 0 {
		return nil, fmt.Errorf("bfs discovery for %s: no seed urls configured", cfg.Key)
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(cfg.AllowedHosts...),
		colly.MaxDepth(cfg.MaxDepth),
		colly.Async(false),
	)
	collector.SetRequestTimeout(time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second)
	_ = collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
		Delay:       time.Second,
	})

	var found []DiscoveredDocument
	visited := make(map[string]bool)
	pages := 0

	collector.OnHTML("a[href]", func(e *colly.HTMLElement) {
		if cfg.MaxPages > 0 && pages >= cfg.MaxPages {
			return
		}
		link := e.Request.AbsoluteURL(e.Attr("href"))
		if link == "" || visited[link] {
			return
		}
		if !sameHost(link, cfg.AllowedHosts) || isExcluded(link, cfg.ExcludedPaths) {
			return
		}

		title := strings.TrimSpace(e.Text)
		breadcrumbs, _ := e.Request.Ctx.GetAny("breadcrumbs").([]string)
		depth := e.Request.Depth

		if looksLikeDocument(link) {
			if !visited[link] {
				visited[link] = true
				found = append(found, DiscoveredDocument{
					URL:          link,
					SourceKey:    cfg.Key,
					Title:        title,
					DiscoveredAt: time.Now().UTC(),
					FiscalYear:   extractYear(link),
					Meta: DiscoveryMeta{
						Breadcrumbs: append(append([]string{}, breadcrumbs...), title),
						Level:       fmt.Sprintf("depth_%d", depth),
					},
				})
			}
			return
		}

		visited[link] = true
		pages++
		e.Request.Ctx.Put("breadcrumbs", append(append([]string{}, breadcrumbs...), title))
		_ = e.Request.Visit(link)
	})

	collector.OnError(func(r *colly.Response, err error) {
		obs.L.Warn().Str("source_key", cfg.Key).Str("url", r.Request.URL.String()).Err(err).Msg("bfs discovery fetch error")
	})

	for _, seed := range cfg.SeedURLs {
		if err := collector.Visit(seed); err != nil {
			obs.L.Warn().Str("source_key", cfg.Key).Str("seed", seed).Err(err).Msg("bfs seed visit failed")
		}
	}
	collector.Wait()

	return found, nil
}
