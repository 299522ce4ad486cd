package ingest

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// TruncateText cuts a string to max length, appending ellipsis if truncated.
func TruncateText(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}
	if maxLen > 3 {
		return text[:maxLen-3] + "..."
	}
	return text[:maxLen]
}

// HTMLToText converts HTML to plain text, collapsing whitespace.
func HTMLToText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html // Fallback to original if parsing fails
	}
	return cleanText(doc.Text())
}

// NormalizedEntity is the result of matching a raw entity string
// (a table cell, a document title fragment) against the canonical
// gazetteer.
type NormalizedEntity struct {
	CanonicalName string
	Kind          string // county, ministry, agency, unknown
	Confidence    float64
	RawName       string
}

// NormalizeEntityName maps a raw entity string to the canonical
// gazetteer, first by exact lowercase match then by fuzzy match at the
// 0.70 token-set-ratio threshold.
func NormalizeEntityName(raw string) *NormalizedEntity {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	cleaned := strings.ToLower(strings.TrimSpace(raw))

	gazetteer := allGazetteers()
	if entry, ok := gazetteer[cleaned]; ok {
		return &NormalizedEntity{
			CanonicalName: entry.CanonicalName,
			Kind:          string(entry.Kind),
			Confidence:    1.0,
			RawName:       raw,
		}
	}

	candidates := make(map[string]string, len(gazetteer))
	for key, entry := range gazetteer {
		candidates[key] = entry.CanonicalName
	}
	bestKey, score := bestEntityMatch(cleaned, candidates)
	if bestKey == "" {
		return nil
	}
	entry := gazetteer[bestKey]
	return &NormalizedEntity{
		CanonicalName: entry.CanonicalName,
		Kind:          string(entry.Kind),
		Confidence:    score,
		RawName:       raw,
	}
}

// NormalizedFiscalPeriod is the result of parsing a raw fiscal-year
// string into Kenya's July-June fiscal calendar.
type NormalizedFiscalPeriod struct {
	Label      string // "FY2024/25"
	StartYear  int
	EndYear    int
	Confidence float64
}

var fiscalYearPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)FY\s*(\d{4})[/\-](\d{2,4})`),
	regexp.MustCompile(`(?i)(\d{4})[/\-](\d{2,4})\s*FY`),
	regexp.MustCompile(`(?i)Financial\s+Year\s+(\d{4})[/\-](\d{2,4})`),
}

var bareYearPattern = regexp.MustCompile(`(\d{4})`)

// NormalizeFiscalPeriod parses a raw fiscal-year string. Kenya's
// fiscal year runs July 1 through June 30 of the following calendar
// year, so "FY2024/25" spans 2024-07-01 to 2025-06-30.
func NormalizeFiscalPeriod(raw string) *NormalizedFiscalPeriod {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return nil
	}

	for _, pattern := range fiscalYearPatterns {
		m := pattern.FindStringSubmatch(cleaned)
		if m == nil {
			continue
		}
		year1, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		year2Str := m[2]
		var year2 int
		if len(year2Str) == 2 {
			var yy int
			yy, err = strconv.Atoi(year2Str)
			year2 = year1/100*100 + yy
			if year2 < year1 {
				year2 += 100
			}
		} else {
			year2, err = strconv.Atoi(year2Str)
		}
		if err != nil {
			continue
		}
		return &NormalizedFiscalPeriod{
			Label:      fmt.Sprintf("FY%d/%02d", year1, year2%100),
			StartYear:  year1,
			EndYear:    year2,
			Confidence: 0.9,
		}
	}

	if m := bareYearPattern.FindStringSubmatch(cleaned); m != nil {
		year, err := strconv.Atoi(m[1])
		if err == nil {
			return &NormalizedFiscalPeriod{
				Label:      fmt.Sprintf("FY%d/%02d", year, (year+1)%100),
				StartYear:  year,
				EndYear:    year + 1,
				Confidence: 0.5,
			}
		}
	}

	return nil
}

// NormalizedAmount is the result of extracting a monetary value and
// its currency from free text, with KES as the base-currency
// projection used for cross-document comparison.
type NormalizedAmount struct {
	Amount        float64
	Currency      string
	BaseAmountKES float64
	Confidence    float64
}

type currencyPattern struct {
	Currency string
	Rate     float64 // to KES
	Patterns []*regexp.Regexp
}

// currencyPatterns: the USD rate is a point-in-time CBK mid-rate
// snapshot. These compiled rates are the only ones NormalizeAmount
// uses; internal/ingest/config/rates.yaml is not read at runtime.
var currencyPatterns = []currencyPattern{
	{
		Currency: "KES",
		Rate:     1.0,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)KES\s*([\d,.]+)`),
			regexp.MustCompile(`(?i)K[Ss]h\.?\s*([\d,.]+)`),
			regexp.MustCompile(`(?i)([\d,.]+)\s*KES`),
			regexp.MustCompile(`(?i)([\d,.]+)\s*K[Ss]h`),
		},
	},
	{
		Currency: "USD",
		Rate:     129.0,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)USD\s*([\d,.]+)`),
			regexp.MustCompile(`\$\s*([\d,.]+)`),
			regexp.MustCompile(`(?i)US\$\s*([\d,.]+)`),
		},
	},
}

// NormalizeAmount detects currency and magnitude suffix
// (million/billion/thousand) in raw and projects it to KES.
func NormalizeAmount(raw, context string) *NormalizedAmount {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	lowerClean := strings.ToLower(cleaned)
	lowerContext := strings.ToLower(context)

	for _, cp := range currencyPatterns {
		for _, pattern := range cp.Patterns {
			m := pattern.FindStringSubmatch(cleaned)
			if m == nil {
				continue
			}
			amountStr := strings.ReplaceAll(m[1], ",", "")
			amount, err := strconv.ParseFloat(amountStr, 64)
			if err != nil {
				continue
			}

			// next is the word right after the number, for abbreviated
			// magnitudes such as "KES 2.5B" or "KES 40 mn".
			next := ""
			if loc := pattern.FindStringSubmatchIndex(cleaned); loc != nil {
				if f := strings.Fields(strings.ToLower(cleaned[loc[3]:])); len(f) > 0 {
					next = strings.TrimRight(f[0], ".,;:)")
				}
			}

			switch {
			case strings.Contains(lowerClean, "million") || next == "m" || next == "mn" || strings.Contains(lowerContext, "m"):
				amount *= 1_000_000
			case strings.Contains(lowerClean, "billion") || next == "b" || next == "bn" || strings.Contains(lowerContext, "b"):
				amount *= 1_000_000_000
			case strings.Contains(lowerClean, "thousand") || next == "k" || strings.Contains(lowerContext, "k"):
				amount *= 1_000
			}

			return &NormalizedAmount{
				Amount:        amount,
				Currency:      cp.Currency,
				BaseAmountKES: amount * cp.Rate,
				Confidence:    0.8,
			}
		}
	}

	numberPattern := regexp.MustCompile(`[\d,.]+`)
	if m := numberPattern.FindString(cleaned); m != "" {
		amount, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
		if err == nil {
			return &NormalizedAmount{
				Amount:        amount,
				Currency:      "KES",
				BaseAmountKES: amount,
				Confidence:    0.3,
			}
		}
	}

	return nil
}

// ExtractedTableRow is one row of a parsed table, column-mapped by
// header keyword, ready for the budget/statistics parsers to turn
// into typed fact records.
type ExtractedTableRow struct {
	Entity      string
	Amount      string
	Actual      string
	Category    string
	Subcategory string
	Period      string
}

// columnKeywords maps a logical column name to the header substrings
// that identify it, mirroring DataNormalizer._identify_columns.
var columnKeywords = map[string][]string{
	"entity":      {"entity", "department", "ministry", "county", "agency", "name", "description", "item"},
	"amount":      {"allocation", "budget", "approved"},
	"actual":      {"actual", "spent", "expenditure", "disbursed"},
	"category":    {"category", "programme", "sector"},
	"subcategory": {"subcategory", "sub-category", "vote", "subvote", "sub-programme", "subprogramme"},
	"period":      {"year", "period", "fy"},
}

// IdentifyColumns returns, for each logical field, the header index it
// matched (or -1 if none did).
func IdentifyColumns(headers []string) map[string]int {
	mapping := map[string]int{"entity": -1, "amount": -1, "actual": -1, "category": -1, "subcategory": -1, "period": -1}
	for i, h := range headers {
		lower := strings.ToLower(strings.TrimSpace(h))
		for field, keywords := range columnKeywords {
			if mapping[field] != -1 {
				continue
			}
			for _, kw := range keywords {
				if strings.Contains(lower, kw) {
					mapping[field] = i
					break
				}
			}
		}
	}
	return mapping
}

// NormalizeTableRow projects a raw table row into logical fields given
// a column mapping from IdentifyColumns. Rows whose length doesn't
// match the header are the caller's responsibility to skip.
func NormalizeTableRow(row []string, mapping map[string]int) ExtractedTableRow {
	get := func(field string) string {
		idx := mapping[field]
		if idx < 0 || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}
	return ExtractedTableRow{
		Entity:      get("entity"),
		Amount:      get("amount"),
		Actual:      get("actual"),
		Category:    get("category"),
		Subcategory: get("subcategory"),
		Period:      get("period"),
	}
}
