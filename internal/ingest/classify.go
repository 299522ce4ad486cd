package ingest

import (
	"strings"

	"github.com/kefis/kefis/internal/domain"
)

// ClassifyDocType maps a document title to domain.DocType by ordered
// substring match, per spec.md's fixed mapping: the source repository's
// own title-based classifiers diverge from this table in a few spots,
// which the spec treats as a bug in the source, not as intent. Every
// discovered document is classified this way regardless of source,
// unlike the old per-source fixed hint.
func ClassifyDocType(title string) domain.DocType {
	lower := strings.ToLower(title)
	switch {
	case containsAny(lower, "budget", "allocation", "appropriation", "estimates"):
		return domain.DocTypeBudget
	case containsAny(lower, "audit", "auditor"):
		return domain.DocTypeAudit
	case containsAny(lower, "debt", "loan", "borrowing"):
		return domain.DocTypeLoan
	case containsAny(lower, "implementation", "review", "expenditure"):
		return domain.DocTypeReport
	default:
		return domain.DocTypeOther
	}
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
