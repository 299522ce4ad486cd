package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// ckanPackageSearchResponse mirrors the subset of a CKAN
// /api/3/action/package_search response needed to enumerate dataset
// resources, per opendata.go.ke's actual API shape.
type ckanPackageSearchResponse struct {
	Success bool `json:"success"`
	Result  struct {
		Count   int          `json:"count"`
		Results []ckanPackage `json:"results"`
	} `json:"result"`
}

type ckanPackage struct {
	Name             string `json:"name"`
	Title            string `json:"title"`
	MetadataCreated  string `json:"metadata_created"`
	Resources        []struct {
		URL    string `json:"url"`
		Name   string `json:"name"`
		Format string `json:"format"`
	} `json:"resources"`
}

// CKANDiscovery paginates a CKAN portal's package_search action by
// rows/start, emitting one DiscoveredDocument per dataset resource.
// Replaces the old WordPress-flavored strategy that opendata.go.ke's
// real API never actually exposed.
type CKANDiscovery struct{}

func (CKANDiscovery) Discover(ctx context.Context, cfg SourceConfig, fetcher *Fetcher) ([]DiscoveredDocument, error) {
	if len(cfg.SeedURLs) == 0 {
		return nil, fmt.Errorf("ckan discovery for %s: no seed urls configured", cfg.Key)
	}
	searchURL := cfg.SeedURLs[0]

	rows := 100
	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = 10
	}

	var found []DiscoveredDocument
	start := 0
	for page := 0; page < maxPages; page++ {
		pageURL := fmt.Sprintf("%s?rows=%d&start=%d", searchURL, rows, start)
		fetched, err := fetcher.Fetch(ctx, pageURL)
		if err != nil {
			if page == 0 {
				return nil, fmt.Errorf("fetching %s: %w", pageURL, err)
			}
			break
		}
		if fetched == nil {
			break // manifest hit
		}

		var resp ckanPackageSearchResponse
		if err := json.Unmarshal(fetched.Body, &resp); err != nil || !resp.Success {
			break
		}

		for _, pkg := range resp.Result.Results {
			for _, res := range pkg.Resources {
				if res.URL == "" || !sameHost(res.URL, cfg.AllowedHosts) {
					continue
				}
				found = append(found, DiscoveredDocument{
					URL:          res.URL,
					SourceKey:    cfg.Key,
					Title:        pkg.Title,
					DiscoveredAt: time.Now().UTC(),
					FiscalYear:   extractYear(pkg.MetadataCreated),
					Meta: DiscoveryMeta{
						Breadcrumbs: []string{pkg.Name},
						Level:       "dataset",
					},
				})
			}
		}

		start += rows
		if start >= resp.Result.Count || len(resp.Result.Results) == 0 {
			break
		}
	}

	return found, nil
}
