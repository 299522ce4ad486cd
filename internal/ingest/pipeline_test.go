package ingest

import (
	"testing"

	"github.com/kefis/kefis/internal/domain"
)

func TestGuessExtension_PrefersContentTypeOverURL(t *testing.T) {
	if ext := guessExtension("application/pdf; charset=binary", "https://example.com/report.html"); ext != ".pdf" {
		t.Fatalf("expected .pdf from content type, got %s", ext)
	}
	if ext := guessExtension("text/html; charset=utf-8", "https://example.com/page"); ext != ".html" {
		t.Fatalf("expected .html from content type, got %s", ext)
	}
	if ext := guessExtension("", "https://example.com/data.csv"); ext != ".csv" {
		t.Fatalf("expected .csv fallback from URL, got %s", ext)
	}
	if ext := guessExtension("", "https://example.com/unknown"); ext != ".bin" {
		t.Fatalf("expected .bin default, got %s", ext)
	}
}

func TestCanonicalize_StripsQueryAndFragment(t *testing.T) {
	got := canonicalize("https://treasury.go.ke/reports/budget.pdf?utm_source=x#page=3")
	want := "https://treasury.go.ke/reports/budget.pdf"
	if got != want {
		t.Fatalf("canonicalize() = %s, want %s", got, want)
	}
}

func TestCanonicalize_InvalidURLReturnedUnchanged(t *testing.T) {
	raw := "://not-a-url"
	if got := canonicalize(raw); got != raw {
		t.Fatalf("canonicalize(%s) = %s, want unchanged", raw, got)
	}
}

func TestPipelineParse_DispatchesByDocType(t *testing.T) {
	p := &Pipeline{}
	fiscalCfg := SourceConfig{ParserFamily: ParserFamilyFiscal}

	budgetDoc := domain.SourceDocument{DocType: domain.DocTypeBudget}
	extraction := ExtractionResult{
		Tables: []ExtractedTable{{
			Headers: []string{"County", "Approved Budget", "Actual Expenditure"},
			Rows:    [][]string{{"Nairobi City", "1,000,000", "800,000"}},
		}},
	}
	records := p.parse(fiscalCfg, budgetDoc, extraction)
	if len(records) == 0 {
		t.Fatalf("expected at least one budget record from a well-formed table")
	}
	if _, ok := records[0].(domain.BudgetLineRecord); !ok {
		t.Fatalf("expected a BudgetLineRecord, got %T", records[0])
	}

	otherDoc := domain.SourceDocument{DocType: domain.DocTypeOther}
	noTables := ExtractionResult{}
	if got := p.parse(fiscalCfg, otherDoc, noTables); got != nil {
		t.Fatalf("expected nil records when no table matches any parser, got %v", got)
	}
}
