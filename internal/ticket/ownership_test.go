package ticket

import "testing"

func TestParseAreaPathsMultiplePatterns(t *testing.T) {
	body := "# Billing\n\n**Paths:** internal/billing/, cmd/billing/\n"
	got := ParseAreaPaths(body)
	want := []string{"internal/billing/", "cmd/billing/"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestParseAreaPathsAbsentReturnsNil(t *testing.T) {
	if got := ParseAreaPaths("# Billing\n\nno ownership declared\n"); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestFilesOutsideOwnershipNoPatternsAlwaysInScope(t *testing.T) {
	if got := FilesOutsideOwnership(nil, []string{"anything.go"}); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestFilesOutsideOwnershipFiltersMatches(t *testing.T) {
	patterns := []string{"internal/billing/"}
	changed := []string{"internal/billing/invoice.go", "internal/auth/login.go"}
	got := FilesOutsideOwnership(patterns, changed)
	if len(got) != 1 || got[0] != "internal/auth/login.go" {
		t.Fatalf("got %v", got)
	}
}
