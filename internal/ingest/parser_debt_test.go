package ingest

import (
	"testing"

	"github.com/kefis/kefis/internal/domain"
)

func TestParseDebt_LoanRegisterTable(t *testing.T) {
	extraction := ExtractionResult{Tables: []ExtractedTable{{
		Headers: []string{"Lender", "Loan Type", "Principal", "Outstanding", "Interest Rate", "Maturity"},
		Rows: [][]string{
			{"World Bank", "multilateral", "KES 500,000,000", "KES 300,000,000", "2.5%", "2035"},
			{"", "", "", "", "", ""}, // blank lender, must be skipped
		},
	}}}
	doc := domain.SourceDocument{FiscalYear: 2024}

	bundle := ParseDebt(extraction, doc)
	if len(bundle.Loans) != 1 {
		t.Fatalf("expected 1 loan record, got %d", len(bundle.Loans))
	}
	loan := bundle.Loans[0]
	if loan.Lender != "World Bank" {
		t.Fatalf("unexpected lender: %s", loan.Lender)
	}
	if loan.OutstandingKES != 300_000_000 {
		t.Fatalf("unexpected outstanding amount: %v", loan.OutstandingKES)
	}
	if loan.Currency != "KES" {
		t.Fatalf("unexpected currency: %s", loan.Currency)
	}
	if loan.LoanType != domain.LoanExternalMultilateral {
		t.Fatalf("unexpected loan type: %s", loan.LoanType)
	}
	if loan.MaturityYear != 2035 {
		t.Fatalf("unexpected maturity year: %d", loan.MaturityYear)
	}
}

func TestParseDebt_DebtTimelineTable(t *testing.T) {
	extraction := ExtractionResult{Tables: []ExtractedTable{{
		Headers: []string{"Date", "Total Public Debt", "Domestic Debt", "External Debt"},
		Rows: [][]string{
			{"2024-06-30", "KES 10,000,000,000", "KES 6,000,000,000", "KES 4,000,000,000"},
		},
	}}}
	doc := domain.SourceDocument{}

	bundle := ParseDebt(extraction, doc)
	if len(bundle.DebtTimeline) != 1 {
		t.Fatalf("expected 1 debt timeline record, got %d", len(bundle.DebtTimeline))
	}
	if bundle.DebtTimeline[0].TotalDebtKES != 10_000_000_000 {
		t.Fatalf("unexpected total debt: %v", bundle.DebtTimeline[0].TotalDebtKES)
	}
}

func TestParseDebt_FiscalSummaryTable(t *testing.T) {
	extraction := ExtractionResult{Tables: []ExtractedTable{{
		Headers: []string{"Revenue", "Expenditure"},
		Rows: [][]string{
			{"KES 2,000,000,000", "KES 2,500,000,000"},
		},
	}}}
	doc := domain.SourceDocument{FiscalYear: 2023}

	bundle := ParseDebt(extraction, doc)
	if len(bundle.FiscalSummaries) != 1 {
		t.Fatalf("expected 1 fiscal summary, got %d", len(bundle.FiscalSummaries))
	}
	fs := bundle.FiscalSummaries[0]
	if fs.DeficitKES != 500_000_000 {
		t.Fatalf("unexpected deficit: %v", fs.DeficitKES)
	}
}

func TestParseDebt_RevenueBySourceTable(t *testing.T) {
	extraction := ExtractionResult{Tables: []ExtractedTable{{
		Headers: []string{"Revenue Source", "Amount"},
		Rows: [][]string{
			{"Income Tax", "KES 800,000,000"},
			{"VAT", "KES 400,000,000"},
		},
	}}}
	doc := domain.SourceDocument{FiscalYear: 2023}

	bundle := ParseDebt(extraction, doc)
	if len(bundle.RevenueLines) != 2 {
		t.Fatalf("expected 2 revenue lines, got %d", len(bundle.RevenueLines))
	}
	if bundle.RevenueLines[0].Source != "income tax" {
		t.Fatalf("unexpected source: %s", bundle.RevenueLines[0].Source)
	}
}

func TestParseDebt_UnmatchedTableYieldsNothing(t *testing.T) {
	extraction := ExtractionResult{Tables: []ExtractedTable{{
		Headers: []string{"Notes"},
		Rows:    [][]string{{"no structured financial columns here"}},
	}}}
	bundle := ParseDebt(extraction, domain.SourceDocument{})
	if len(bundle.Loans)+len(bundle.DebtTimeline)+len(bundle.FiscalSummaries)+len(bundle.RevenueLines) != 0 {
		t.Fatalf("expected an empty bundle for an unmatched table, got %+v", bundle)
	}
}
