package ingest

import "testing"

func TestSanitizeHTML_StripsTags(t *testing.T) {
	in := `<script>alert(1)</script>Ministry of <b>Finance</b>`
	got := sanitizeHTML(in)
	if got != "Ministry of Finance" {
		t.Fatalf("unexpected sanitized text: %q", got)
	}
}

func TestExtractDocument_HTMLTable(t *testing.T) {
	html := []byte(`<html><body><table>
		<thead><tr><th>Entity</th><th>Amount</th></tr></thead>
		<tbody><tr><td>National Treasury</td><td>KES 1,000,000</td></tr></tbody>
	</table></body></html>`)

	result, err := ExtractDocument("text/html; charset=utf-8", html)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Tables) != 1 {
		t.Fatalf("expected 1 table, got %d", len(result.Tables))
	}
	if result.Tables[0].Headers[0] != "Entity" {
		t.Fatalf("unexpected header: %v", result.Tables[0].Headers)
	}
	if result.Strategy != "html_table" {
		t.Fatalf("unexpected strategy: %s", result.Strategy)
	}
}

func TestExtractDocument_HTMLNoTableFallsBackToTabularGuess(t *testing.T) {
	html := []byte(`<html><body><p>No tables here, just prose.</p></body></html>`)

	result, err := ExtractDocument("text/html", html)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Strategy != "tabular_guess" {
		t.Fatalf("expected tabular_guess fallback, got %s", result.Strategy)
	}
	if len(result.Tables) != 0 {
		t.Fatalf("expected no tables, got %d", len(result.Tables))
	}
}
