package db

import (
	"strings"
	"testing"
)

func TestBuildSeverityConstraint_UsesGivenArgIndex(t *testing.T) {
	clause := buildSeverityConstraint(3)

	if !strings.Contains(clause, "a.severity = $3") {
		t.Fatalf("severity clause missing positional arg: %s", clause)
	}
}

func TestClampLimit_DefaultsAndCeiling(t *testing.T) {
	cases := []struct {
		in, want int
	}{
		{0, 50},
		{-5, 50},
		{20, 20},
		{10000, 500},
	}

	for _, c := range cases {
		if got := clampLimit(c.in); got != c.want {
			t.Fatalf("clampLimit(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}
