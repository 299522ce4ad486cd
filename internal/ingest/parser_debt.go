package ingest

import (
	"strconv"
	"strings"
	"time"

	"github.com/kefis/kefis/internal/domain"
)

// debtColumnKeywords identifies the columns a public-debt register or
// fiscal-summary table carries, distinct from IdentifyColumns' budget-
// line field set: these tables key on lender/date/revenue-source
// rather than entity+category.
var debtColumnKeywords = map[string][]string{
	"lender":      {"lender", "creditor"},
	"loan_type":   {"loan type", "debt category", "classification"},
	"principal":   {"principal"},
	"outstanding": {"outstanding"},
	"rate":        {"interest rate", "rate"},
	"maturity":    {"maturity"},
	"date":        {"date", "as at", "as of"},
	"total_debt":  {"total debt", "total public debt"},
	"domestic":    {"domestic debt", "domestic"},
	"external":    {"external debt", "external"},
	"revenue":     {"revenue", "receipts"},
	"expenditure": {"expenditure", "expense"},
	"source":      {"revenue source", "tax head", "category"},
	"amount":      {"amount", "collection"},
}

func identifyDebtColumns(headers []string) map[string]int {
	mapping := make(map[string]int, len(debtColumnKeywords))
	for field := range debtColumnKeywords {
		mapping[field] = -1
	}
	for i, h := range headers {
		lower := strings.ToLower(strings.TrimSpace(h))
		for field, keywords := range debtColumnKeywords {
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

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func parseKES(s string) float64 {
	amt := NormalizeAmount(s, "")
	if amt == nil {
		return 0
	}
	return amt.BaseAmountKES
}

// classifyLoanType maps a free-text loan-type/classification cell to
// spec.md §3's debt-category enum, by keyword, falling back to
// LoanOther when nothing matches.
func classifyLoanType(raw string) domain.LoanType {
	lower := strings.ToLower(raw)
	switch {
	case strings.Contains(lower, "multilateral"):
		return domain.LoanExternalMultilateral
	case strings.Contains(lower, "bilateral"):
		return domain.LoanExternalBilateral
	case strings.Contains(lower, "commercial"):
		return domain.LoanExternalCommercial
	case strings.Contains(lower, "bond"):
		return domain.LoanDomesticBonds
	case strings.Contains(lower, "bill") && strings.Contains(lower, "pending"):
		return domain.LoanPendingBills
	case strings.Contains(lower, "treasury bill") || strings.Contains(lower, "t-bill"):
		return domain.LoanDomesticBills
	case strings.Contains(lower, "overdraft"):
		return domain.LoanDomesticOverdraft
	case strings.Contains(lower, "guarantee"):
		return domain.LoanCountyGuaranteed
	case strings.Contains(lower, "domestic"):
		return domain.LoanDomesticBonds
	case strings.Contains(lower, "external"):
		return domain.LoanExternalBilateral
	default:
		return domain.LoanOther
	}
}

// DebtBundle is the result of scanning an extraction for debt-register
// and fiscal-summary style tables, the Go analogue of the Python
// original's debt/revenue loaders folded into one pass since Kenya's
// Treasury publishes these alongside ordinary budget tables rather
// than as a separate document type.
type DebtBundle struct {
	Loans           []domain.LoanRecord
	DebtTimeline    []domain.DebtTimelineRecord
	FiscalSummaries []domain.FiscalSummaryRecord
	RevenueLines    []domain.RevenueBySourceRecord
}

// ParseDebt scans every table in extraction for a loan register, a
// debt-timeline snapshot, or a revenue/expenditure summary, by column
// header shape rather than a dedicated document type. Each table is
// parsed as at most one kind: the first whose columns it has, checked
// in the order loan register, debt timeline, revenue/expenditure
// summary, revenue by source.
func ParseDebt(extraction ExtractionResult, doc domain.SourceDocument) DebtBundle {
	var bundle DebtBundle

	for _, table := range extraction.Tables {
		cols := identifyDebtColumns(table.Headers)

		switch {
		case cols["lender"] >= 0 && (cols["principal"] >= 0 || cols["outstanding"] >= 0):
			bundle.Loans = append(bundle.Loans, parseLoanRows(table, cols, doc)...)
		case cols["date"] >= 0 && cols["total_debt"] >= 0:
			bundle.DebtTimeline = append(bundle.DebtTimeline, parseDebtTimelineRows(table, cols, doc)...)
		case cols["revenue"] >= 0 && cols["expenditure"] >= 0:
			if fs := parseFiscalSummaryRow(table, cols, doc); fs != nil {
				bundle.FiscalSummaries = append(bundle.FiscalSummaries, *fs)
			}
		case cols["source"] >= 0 && cols["amount"] >= 0:
			bundle.RevenueLines = append(bundle.RevenueLines, parseRevenueRows(table, cols, doc)...)
		}
	}

	return bundle
}

func parseLoanRows(table ExtractedTable, cols map[string]int, doc domain.SourceDocument) []domain.LoanRecord {
	var records []domain.LoanRecord
	for _, row := range table.Rows {
		if len(row) != len(table.Headers) {
			continue
		}
		lender := cellAt(row, cols["lender"])
		if lender == "" {
			continue
		}
		issueDate := parseDate(cellAt(row, cols["date"]))
		if issueDate.IsZero() && doc.FiscalYear > 0 {
			issueDate = time.Date(doc.FiscalYear, time.July, 1, 0, 0, 0, 0, time.UTC)
		}
		rec := domain.LoanRecord{
			EntityKey:    "national",
			FiscalYear:   doc.FiscalYear,
			IssueDate:    issueDate,
			Lender:       lender,
			LoanType:     classifyLoanType(cellAt(row, cols["loan_type"])),
			Currency:     "KES",
			InterestRate: parsePercent(cellAt(row, cols["rate"])),
			MaturityYear: parseYear(cellAt(row, cols["maturity"])),
			SourceDocID:  doc.ID,
		}
		if principal := NormalizeAmount(cellAt(row, cols["principal"]), ""); principal != nil {
			rec.Principal = principal.Amount
			rec.PrincipalKES = principal.BaseAmountKES
			rec.Currency = principal.Currency
		}
		if outstanding := NormalizeAmount(cellAt(row, cols["outstanding"]), ""); outstanding != nil {
			rec.Outstanding = outstanding.Amount
			rec.OutstandingKES = outstanding.BaseAmountKES
			rec.Currency = outstanding.Currency
		}
		records = append(records, rec)
	}
	return records
}

func parseDebtTimelineRows(table ExtractedTable, cols map[string]int, doc domain.SourceDocument) []domain.DebtTimelineRecord {
	var records []domain.DebtTimelineRecord
	for _, row := range table.Rows {
		if len(row) != len(table.Headers) {
			continue
		}
		date := parseDate(cellAt(row, cols["date"]))
		if date.IsZero() {
			continue
		}
		records = append(records, domain.DebtTimelineRecord{
			Date:         date,
			TotalDebtKES: parseKES(cellAt(row, cols["total_debt"])),
			DomesticKES:  parseKES(cellAt(row, cols["domestic"])),
			ExternalKES:  parseKES(cellAt(row, cols["external"])),
			SourceDocID:  doc.ID,
		})
	}
	return records
}

// parseFiscalSummaryRow treats the table as a single summary, taking
// the first row with both a revenue and an expenditure figure — these
// tables are a handful of rollup rows, not per-entity detail.
func parseFiscalSummaryRow(table ExtractedTable, cols map[string]int, doc domain.SourceDocument) *domain.FiscalSummaryRecord {
	for _, row := range table.Rows {
		if len(row) != len(table.Headers) {
			continue
		}
		revenue := parseKES(cellAt(row, cols["revenue"]))
		expense := parseKES(cellAt(row, cols["expenditure"]))
		if revenue == 0 && expense == 0 {
			continue
		}
		return &domain.FiscalSummaryRecord{
			FiscalYear:      doc.FiscalYear,
			TotalRevenueKES: revenue,
			TotalExpenseKES: expense,
			DeficitKES:      expense - revenue,
			SourceDocID:     doc.ID,
		}
	}
	return nil
}

func parseRevenueRows(table ExtractedTable, cols map[string]int, doc domain.SourceDocument) []domain.RevenueBySourceRecord {
	var records []domain.RevenueBySourceRecord
	for _, row := range table.Rows {
		if len(row) != len(table.Headers) {
			continue
		}
		source := cellAt(row, cols["source"])
		amount := parseKES(cellAt(row, cols["amount"]))
		if source == "" || amount == 0 {
			continue
		}
		records = append(records, domain.RevenueBySourceRecord{
			FiscalYear:  doc.FiscalYear,
			Source:      strings.ToLower(source),
			AmountKES:   amount,
			SourceDocID: doc.ID,
		})
	}
	return records
}

func parsePercent(s string) float64 {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func parseYear(s string) int {
	s = strings.TrimSpace(s)
	y, err := strconv.Atoi(s)
	if err != nil || y < 1900 || y > 2200 {
		return 0
	}
	return y
}

func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", "02/01/2006", "Jan 2006", "January 2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

