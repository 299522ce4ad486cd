package ingest

import (
	"strings"

	"github.com/kefis/kefis/internal/domain"
)

// ParseBudget delegates row normalization to NormalizeTableRow /
// NormalizeEntityName / NormalizeAmount / NormalizeFiscalPeriod
// (the Go analogue of normalize_extracted_data) and emits
// BudgetLineRecord values, matching spec.md §4.6's "Budget/tabular
// parser" description.
func ParseBudget(extraction ExtractionResult, doc domain.SourceDocument) []domain.BudgetLineRecord {
	var records []domain.BudgetLineRecord

	for _, table := range extraction.Tables {
		mapping := IdentifyColumns(table.Headers)
		if mapping["entity"] < 0 {
			continue
		}

		for _, row := range table.Rows {
			if len(row) != len(table.Headers) {
				continue // malformed row, skip
			}

			normalized := NormalizeTableRow(row, mapping)
			entity := NormalizeEntityName(normalized.Entity)
			approved := NormalizeAmount(normalized.Amount, "")
			actual := NormalizeAmount(normalized.Actual, "")

			if entity == nil && approved == nil && actual == nil {
				continue
			}

			record := domain.BudgetLineRecord{
				Category:    strings.TrimSpace(normalized.Category),
				Subcategory: strings.TrimSpace(normalized.Subcategory),
				Currency:    "KES",
				SourceDocID: doc.ID,
			}
			if entity != nil {
				record.EntityKey = entity.CanonicalName
			} else {
				record.EntityKey = strings.TrimSpace(normalized.Entity)
			}
			if approved != nil {
				record.ApprovedAmount = approved.Amount
				record.ApprovedAmountKES = approved.BaseAmountKES
				record.Currency = approved.Currency
			}
			if actual != nil {
				record.ActualSpend = actual.Amount
				record.ActualSpendKES = actual.BaseAmountKES
				record.Currency = actual.Currency
			}
			if period := NormalizeFiscalPeriod(normalized.Period); period != nil {
				record.FiscalYear = period.StartYear
			} else if doc.FiscalYear > 0 {
				record.FiscalYear = doc.FiscalYear
			}

			// Only keep lines with at least an entity and some amount,
			// mirroring _normalize_row's "entity and amount" requirement.
			if record.EntityKey == "" || (record.ApprovedAmount == 0 && record.ActualSpend == 0) {
				continue
			}
			records = append(records, record)
		}
	}

	return records
}
