package ingest

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/kefis/kefis/internal/domain"
)

// StatisticsDocKind classifies a KNBS-family document by title/URL
// keywords. Pipeline.parse computes it from the title at parse time
// and passes it to ParseStatistics, which runs every extractor
// whatever the kind.
type StatisticsDocKind string

const (
	StatsEconomicSurvey     StatisticsDocKind = "economic_survey"
	StatsStatisticalAbstract StatisticsDocKind = "statistical_abstract"
	StatsCountyAbstract     StatisticsDocKind = "county_statistical_abstract"
	StatsQuarterlyGDP       StatisticsDocKind = "quarterly_gdp"
	StatsCPIInflation       StatisticsDocKind = "cpi_inflation"
	StatsFactsFigures       StatisticsDocKind = "facts_figures"
	StatsGeneric            StatisticsDocKind = "generic"
)

// StatisticsBundle collects everything ParseStatistics extracted,
// since one KNBS document commonly yields several record kinds at
// once (population + GDP + an inflation figure, say).
type StatisticsBundle struct {
	Population []domain.PopulationDataRecord
	GDP        []domain.GDPDataRecord
	Indicators []domain.EconomicIndicatorRecord
	Poverty    []domain.PovertyIndexRecord
}

var (
	populationRegex = regexp.MustCompile(`(?i)population[^\d]{0,30}([\d,.]+)\s*(million|billion)?`)
	gdpRegex        = regexp.MustCompile(`(?i)(?:GDP|gross domestic product)[^\d]{0,30}(?:KES\s*)?([\d,.]+)\s*(trillion|billion|million)?`)
	inflationRegex  = regexp.MustCompile(`(?i)inflation[^\d]{0,20}([\d.]+)\s*%`)
	unemploymentRegex = regexp.MustCompile(`(?i)unemployment[^\d]{0,20}([\d.]+)\s*%`)
	povertyRegex    = regexp.MustCompile(`(?i)poverty\s*(?:rate|index|level)?[^\d]{0,20}([\d.]+)\s*%`)
	yearContextRegex = regexp.MustCompile(`(20\d{2})`)
)

// ParseStatistics implements the KNBS family: regex ensembles over
// free text for population/GDP/inflation/unemployment/poverty, each
// bounded by the sanity checks in spec.md §4.6, plus a dedicated GDP
// table extractor for column-per-year Gross-County-Product layouts.
func ParseStatistics(extraction ExtractionResult, doc domain.SourceDocument, kind StatisticsDocKind) StatisticsBundle {
	var bundle StatisticsBundle
	year := doc.FiscalYear
	if year == 0 {
		if m := yearContextRegex.FindString(extraction.Text); m != "" {
			if y, err := strconv.Atoi(m); err == nil {
				year = y
			}
		}
	}

	for _, line := range strings.Split(extraction.Text, "\n") {
		if m := populationRegex.FindStringSubmatch(line); m != nil {
			if pop, ok := scaleMagnitude(m[1], m[2]); ok && pop >= 10_000_000 && pop <= 100_000_000 {
				bundle.Population = append(bundle.Population, domain.PopulationDataRecord{
					EntityKey:   "national",
					Year:        year,
					Population:  int64(pop),
					SourceDocID: doc.ID,
				})
			}
		}
		if m := gdpRegex.FindStringSubmatch(line); m != nil {
			if gdp, ok := scaleMagnitude(m[1], m[2]); ok {
				gdpMillion := gdp / 1_000_000
				if gdpTotal := gdp; gdpTotal >= 1_000_000_000_000 && gdpTotal <= 50_000_000_000_000 {
					bundle.GDP = append(bundle.GDP, domain.GDPDataRecord{
						EntityKey:     "national",
						Year:          year,
						GDPKESMillion: gdpMillion,
						SourceDocID:   doc.ID,
					})
				}
			}
		}
		if m := inflationRegex.FindStringSubmatch(line); m != nil {
			if rate, err := strconv.ParseFloat(m[1], 64); err == nil && rate >= 0 && rate <= 50 {
				bundle.Indicators = append(bundle.Indicators, domain.EconomicIndicatorRecord{
					Year:        year,
					Indicator:   "inflation",
					Value:       rate,
					Unit:        "percent",
					SourceDocID: doc.ID,
				})
			}
		}
		if m := unemploymentRegex.FindStringSubmatch(line); m != nil {
			if rate, err := strconv.ParseFloat(m[1], 64); err == nil && rate >= 0 && rate <= 50 {
				bundle.Indicators = append(bundle.Indicators, domain.EconomicIndicatorRecord{
					Year:        year,
					Indicator:   "unemployment",
					Value:       rate,
					Unit:        "percent",
					SourceDocID: doc.ID,
				})
			}
		}
		if m := povertyRegex.FindStringSubmatch(line); m != nil {
			if rate, err := strconv.ParseFloat(m[1], 64); err == nil && rate >= 0 && rate <= 100 {
				bundle.Poverty = append(bundle.Poverty, domain.PovertyIndexRecord{
					EntityKey:   "national",
					Year:        year,
					PovertyRatePct: rate,
					SourceDocID: doc.ID,
				})
			}
		}
	}

	for _, table := range extraction.Tables {
		bundle.GDP = append(bundle.GDP, parseGDPTable(table, doc)...)
	}

	return bundle
}

// parseGDPTable handles the column-per-year Gross-County-Product
// layout: a header row like "Economic activities 2019 2020 2021 2022
// 2023" and data rows like "GCP Kiambu 420 440 470 505 540" (values in
// KES billions per the table's caption convention).
func parseGDPTable(table ExtractedTable, doc domain.SourceDocument) []domain.GDPDataRecord {
	var years []int
	var yearCols []int
	for i, h := range table.Headers {
		h = strings.TrimSpace(h)
		if len(h) == 4 {
			if y, err := strconv.Atoi(h); err == nil && y > 1990 && y < 2100 {
				years = append(years, y)
				yearCols = append(yearCols, i)
			}
		}
	}
	if len(years) == 0 {
		return nil
	}

	var records []domain.GDPDataRecord
	for _, row := range table.Rows {
		entityLabel := strings.TrimSpace(row[0])
		entityLabel = strings.TrimPrefix(entityLabel, "GCP ")
		entity := NormalizeEntityName(entityLabel)
		entityKey := entityLabel
		if entity != nil {
			entityKey = entity.CanonicalName
		}

		for idx, col := range yearCols {
			if col >= len(row) {
				continue
			}
			raw := strings.ReplaceAll(row[col], ",", "")
			value, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				continue
			}
			records = append(records, domain.GDPDataRecord{
				EntityKey:     entityKey,
				Year:          years[idx],
				GDPKESMillion: value * 1000, // billions -> millions
				SourceDocID:   doc.ID,
			})
		}
	}
	return records
}

// scaleMagnitude parses a numeric string and applies a
// million/billion/trillion suffix found nearby in the source text.
func scaleMagnitude(numStr, suffix string) (float64, bool) {
	clean := strings.ReplaceAll(numStr, ",", "")
	value, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0, false
	}
	switch strings.ToLower(suffix) {
	case "million":
		value *= 1_000_000
	case "billion":
		value *= 1_000_000_000
	case "trillion":
		value *= 1_000_000_000_000
	}
	return value, true
}

// ClassifyStatisticsDocKind maps a title/URL to one of the KNBS
// document kinds. ParseStatistics does not branch on the kind: the
// same extraction paths run for every kind.
func ClassifyStatisticsDocKind(titleOrURL string) StatisticsDocKind {
	lower := strings.ToLower(titleOrURL)
	switch {
	case strings.Contains(lower, "economic survey"):
		return StatsEconomicSurvey
	case strings.Contains(lower, "county statistical abstract"):
		return StatsCountyAbstract
	case strings.Contains(lower, "statistical abstract"):
		return StatsStatisticalAbstract
	case strings.Contains(lower, "quarterly") && strings.Contains(lower, "gdp"):
		return StatsQuarterlyGDP
	case strings.Contains(lower, "cpi") || strings.Contains(lower, "inflation"):
		return StatsCPIInflation
	case strings.Contains(lower, "facts and figures") || strings.Contains(lower, "facts & figures"):
		return StatsFactsFigures
	default:
		return StatsGeneric
	}
}
