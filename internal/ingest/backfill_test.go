package ingest

import "testing"

func TestYearFromTitle_PrefersRangeStart(t *testing.T) {
	if y := yearFromTitle("FY 2019/2020 Budget Statement"); y != 2019 {
		t.Fatalf("yearFromTitle() = %d, want 2019", y)
	}
}

func TestYearFromTitle_SingleYear(t *testing.T) {
	if y := yearFromTitle("Auditor General Report 2022"); y != 2022 {
		t.Fatalf("yearFromTitle() = %d, want 2022", y)
	}
}

func TestYearFromTitle_UnknownReturnsZero(t *testing.T) {
	if y := yearFromTitle("Revenue Allocation Formula"); y != 0 {
		t.Fatalf("yearFromTitle() = %d, want 0 for no year present", y)
	}
}

func TestFilterByYear_KeepsUnknownYearDocs(t *testing.T) {
	docs := []DiscoveredDocument{
		{URL: "https://a/no-year"},
		{URL: "https://a/2010", FiscalYear: 2010},
		{URL: "https://a/2020", FiscalYear: 2020},
	}
	got := filterByYear(docs, 2015, 2025)
	if len(got) != 2 {
		t.Fatalf("expected 2 docs kept (unknown-year + 2020), got %d", len(got))
	}
}

func TestFilterByYear_NoWindowReturnsAllUnchanged(t *testing.T) {
	docs := []DiscoveredDocument{{URL: "https://a/1"}, {URL: "https://a/2", FiscalYear: 1999}}
	got := filterByYear(docs, 0, 0)
	if len(got) != len(docs) {
		t.Fatalf("expected all docs kept with no year window, got %d of %d", len(got), len(docs))
	}
}

func TestDedupeByURL_PreservesFirstSeenOrder(t *testing.T) {
	docs := []DiscoveredDocument{
		{URL: "https://a/1"},
		{URL: "https://a/2"},
		{URL: "https://a/1"},
		{URL: ""},
	}
	got := dedupeByURL(docs)
	if len(got) != 2 {
		t.Fatalf("expected 2 unique non-empty URLs, got %d", len(got))
	}
	if got[0].URL != "https://a/1" || got[1].URL != "https://a/2" {
		t.Fatalf("unexpected dedup order: %+v", got)
	}
}
