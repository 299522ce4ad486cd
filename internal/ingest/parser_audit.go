package ingest

import (
	"regexp"
	"strings"

	"github.com/kefis/kefis/internal/domain"
)

var auditCueRegex = regexp.MustCompile(`(?i)audit|query|finding|irregular|unaccounted|pending bills|procurement|unsupported|loss|embezzlement`)

var auditSectionCueRegex = regexp.MustCompile(`(?i)management responses|audit findings|recommendations|basis of opinion|qualified|adverse|disclaimer`)

var monetaryTokenRegex = regexp.MustCompile(`(?i)KES|K[Ss]h|[\d,]{4,}`)

var recommendationRegex = regexp.MustCompile(`(?i)recommendation[: \-]\s*(.+)`)

var auditCriticalKeywords = regexp.MustCompile(`(?i)embezzlement|fraud|misappropriation`)
var auditWarningKeywords = regexp.MustCompile(`(?i)irregular|unsupported|unaccounted|pending bills`)

// ParseAudit implements the OAG/COB audit parser. Entity/period
// inference prefers the document title, falling back to the first
// page(s) of text; findings come from both loose text-line scanning
// and structured table rows.
func ParseAudit(extraction ExtractionResult, doc domain.SourceDocument, titleHint string) []domain.AuditFindingRecord {
	entityKey, fiscalYear := inferAuditEntityAndPeriod(titleHint, extraction.Text)

	seen := make(map[string]bool)
	var findings []domain.AuditFindingRecord

	for _, line := range strings.Split(extraction.Text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !monetaryTokenRegex.MatchString(line) && !auditCueRegex.MatchString(line) && !auditSectionCueRegex.MatchString(line) {
			continue
		}

		key := line
		if seen[key] {
			continue
		}
		seen[key] = true

		amount := extractAuditAmount(line)
		findings = append(findings, domain.AuditFindingRecord{
			EntityKey:         entityKey,
			FiscalYear:        fiscalYear,
			FindingText:       line,
			AmountKES:         amount,
			Severity:          classifyAuditSeverity(line, amount),
			Category:          classifyAuditCategory(line),
			RecommendedAction: extractRecommendation(line),
			SourceDocID:       doc.ID,
		})
	}

	for _, table := range extraction.Tables {
		if !tableLooksLikeAuditFindings(table.Headers) {
			continue
		}
		mapping := IdentifyColumns(table.Headers)
		for _, row := range table.Rows {
			if len(row) != len(table.Headers) {
				continue
			}
			normalized := NormalizeTableRow(row, mapping)
			text := strings.Join(row, " ")
			if seen[text] {
				continue
			}
			seen[text] = true

			amount := extractAuditAmount(text)
			findings = append(findings, domain.AuditFindingRecord{
				EntityKey:         entityKey,
				FiscalYear:        fiscalYear,
				FindingText:       text,
				AmountKES:         amount,
				Severity:          classifyAuditSeverity(text, amount),
				Category:          classifyAuditCategory(normalized.Category),
				RecommendedAction: extractRecommendation(text),
				SourceDocID:       doc.ID,
			})
		}
	}

	return findings
}

func tableLooksLikeAuditFindings(headers []string) bool {
	for _, h := range headers {
		lower := strings.ToLower(h)
		if strings.Contains(lower, "description") || strings.Contains(lower, "finding") ||
			strings.Contains(lower, "query") || strings.Contains(lower, "issue") ||
			strings.Contains(lower, "amount") || strings.Contains(lower, "kes") ||
			strings.Contains(lower, "ksh") || strings.Contains(lower, "value") {
			return true
		}
	}
	return false
}

func inferAuditEntityAndPeriod(title, text string) (string, int) {
	entityKey := ""
	if entity := NormalizeEntityName(title); entity != nil {
		entityKey = entity.CanonicalName
	} else if firstPage := firstNChars(text, 2000); firstPage != "" {
		// scan the leading text for a county/ministry mention
		for key, entry := range allGazetteers() {
			if strings.Contains(strings.ToLower(firstPage), key) {
				entityKey = entry.CanonicalName
				break
			}
		}
	}

	fiscalYear := 0
	if period := NormalizeFiscalPeriod(title); period != nil {
		fiscalYear = period.StartYear
	} else if period := NormalizeFiscalPeriod(firstNChars(text, 4000)); period != nil {
		fiscalYear = period.StartYear
	}

	return entityKey, fiscalYear
}

func firstNChars(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func extractAuditAmount(text string) float64 {
	amt := NormalizeAmount(text, "")
	if amt == nil {
		return 0
	}
	return amt.BaseAmountKES
}

// classifyAuditSeverity mirrors spec.md §4.6: keyword match takes
// priority over the amount thresholds (>=50M CRITICAL, >=5M WARNING).
func classifyAuditSeverity(text string, amountKES float64) domain.AuditSeverity {
	switch {
	case auditCriticalKeywords.MatchString(text):
		return domain.AuditCritical
	case auditWarningKeywords.MatchString(text):
		return domain.AuditWarning
	case amountKES >= 50_000_000:
		return domain.AuditCritical
	case amountKES >= 5_000_000:
		return domain.AuditWarning
	default:
		return domain.AuditInfo
	}
}

func classifyAuditCategory(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "embezzlement") || strings.Contains(lower, "fraud"):
		return "misappropriation"
	case strings.Contains(lower, "procurement"):
		return "irregular_procurement"
	case strings.Contains(lower, "pending bills"):
		return "pending_bills"
	case strings.Contains(lower, "unaccounted"):
		return "unaccounted_funds"
	default:
		return "general"
	}
}

// extractRecommendation pulls the free-text recommendation following
// a "Recommendation:" label, if present.
func extractRecommendation(text string) string {
	m := recommendationRegex.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}
