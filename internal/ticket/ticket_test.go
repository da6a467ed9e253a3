package ticket

import "testing"

func TestNormalizeSlug(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "lowercases", in: "Foo Bar", want: "foo-bar"},
		{name: "collapses separators", in: "foo__bar--baz", want: "foo-bar-baz"},
		{name: "trims edges", in: "-foo-", want: "foo"},
		{name: "strips punctuation", in: "foo!!bar??", want: "foo-bar"},
		{name: "all punctuation is invalid", in: "!!!", wantErr: true},
		{name: "empty is invalid", in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeSlug(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("NormalizeSlug(%q) = %q, want error", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeSlug(%q) unexpected error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("NormalizeSlug(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeSlugIdempotent(t *testing.T) {
	inputs := []string{"Foo Bar", "foo", "a--b__c  d"}
	for _, in := range inputs {
		once, err := NormalizeSlug(in)
		if err != nil {
			t.Fatalf("NormalizeSlug(%q): %v", in, err)
		}
		twice, err := NormalizeSlug(once)
		if err != nil {
			t.Fatalf("NormalizeSlug(%q): %v", once, err)
		}
		if once != twice {
			t.Errorf("NormalizeSlug not idempotent: %q -> %q -> %q", in, once, twice)
		}
	}
}

func TestNormalizeAreaPath(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "valid relative md", in: "areas/auth.md", want: "areas/auth.md"},
		{name: "rejects absolute", in: "/areas/auth.md", wantErr: true},
		{name: "rejects traversal", in: "../areas/auth.md", wantErr: true},
		{name: "rejects non-md", in: "areas/auth.txt", wantErr: true},
		{name: "case-insensitive extension", in: "areas/AUTH.MD", want: "areas/AUTH.MD"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeAreaPath(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("NormalizeAreaPath(%q) = %q, want error", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeAreaPath(%q) unexpected error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("NormalizeAreaPath(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseAreaID(t *testing.T) {
	body := "# Ticket\n\nSome description.\n\n**Area:** auth\n"
	if got := ParseAreaID(body); got != "auth" {
		t.Errorf("ParseAreaID = %q, want auth", got)
	}
	if got := ParseAreaID("no area line here"); got != "" {
		t.Errorf("ParseAreaID with no line = %q, want empty", got)
	}
}

func TestCollectActiveAreasAndAreasNeedingTickets(t *testing.T) {
	open := []File{{Path: "tickets/open/0001-a.md", Body: "**Area:** auth\n"}}
	inProgress := []File{{Path: "tickets/in-progress/0002-b.md", Body: "**Area:** billing\n**Worktree:** /tmp/x\n"}}

	active := CollectActiveAreas(open, inProgress)
	if !active["auth"] || !active["billing"] {
		t.Fatalf("active = %v, want auth and billing set", active)
	}

	areas := []string{"areas/auth.md", "areas/billing.md", "areas/search.md"}
	need := AreasNeedingTickets(areas, active)
	if len(need) != 1 || need[0] != "areas/search.md" {
		t.Errorf("AreasNeedingTickets = %v, want [areas/search.md]", need)
	}
}

func TestNextTicketID(t *testing.T) {
	tests := []struct {
		name  string
		files []string
		want  int
	}{
		{name: "empty", files: nil, want: 1},
		{name: "single", files: []string{"0001-foo.md"}, want: 2},
		{name: "across states", files: []string{"0001-foo.md", "0003-bar.md", "0002-baz.md"}, want: 4},
		{name: "ignores non-numeric", files: []string{"foo.md", "0005-bar.md"}, want: 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NextTicketID(tt.files); got != tt.want {
				t.Errorf("NextTicketID(%v) = %d, want %d", tt.files, got, tt.want)
			}
		})
	}
}

func TestParsePendingQueueEntryName(t *testing.T) {
	first, second, ok := ParsePendingQueueEntryName("0007-0007.md")
	if !ok || first != 7 || second != 7 {
		t.Errorf("ParsePendingQueueEntryName(0007-0007.md) = (%d, %d, %v), want (7, 7, true)", first, second, ok)
	}
	if _, _, ok := ParsePendingQueueEntryName("bogus.md"); ok {
		t.Error("ParsePendingQueueEntryName(bogus.md) = ok, want not ok")
	}
}

func TestTicketBodyRoundTrip(t *testing.T) {
	b := Body{
		Title:       "Add login form",
		Description: "Build the login form per the design doc.",
		Area:        "auth",
		Worktree:    "/repo/.scriptorium/worktrees/0007",
	}
	rendered := RenderTicketBody(b)
	parsed := ParseTicketBody(rendered)
	if parsed.Area != b.Area {
		t.Errorf("round-trip Area = %q, want %q", parsed.Area, b.Area)
	}
	if parsed.Worktree != b.Worktree {
		t.Errorf("round-trip Worktree = %q, want %q", parsed.Worktree, b.Worktree)
	}
}

func TestTicketBodyFailureRoundTrip(t *testing.T) {
	body := RenderTicketBody(Body{Area: "auth"})
	withFailure := AppendFailure(body, "merge me", FailureConflict, "CONFLICT in foo.go")
	failure := ParseMergeQueueFailure(withFailure)
	if failure == nil {
		t.Fatal("ParseMergeQueueFailure returned nil")
	}
	if failure.Summary != "merge me" {
		t.Errorf("Summary = %q, want %q", failure.Summary, "merge me")
	}
	if failure.Kind != FailureConflict {
		t.Errorf("Kind = %q, want %q", failure.Kind, FailureConflict)
	}
}

func TestStripAndSetWorktree(t *testing.T) {
	body := RenderTicketBody(Body{Area: "auth", Worktree: "/tmp/x"})
	stripped := StripWorktree(body)
	if ParseWorktree(stripped) != "" {
		t.Errorf("StripWorktree left a worktree line: %q", stripped)
	}
	restored := SetWorktree(stripped, "/tmp/y")
	if ParseWorktree(restored) != "/tmp/y" {
		t.Errorf("SetWorktree = %q, want /tmp/y line", ParseWorktree(restored))
	}
}
