// Vandalwatch - MediaWiki Vandalism Level Monitor
// Copyright 2026 Vandalwatch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vandalwatch/vandalwatch

package classifier

import "testing"

func TestNormalizeSummary(t *testing.T) {
	tests := []struct {
		name    string
		summary string
		want    string
	}{
		{
			name:    "plain summary lowercased",
			summary: "Reverted edits by Example",
			want:    "reverted edits by example",
		},
		{
			name:    "section marker stripped",
			summary: "/* History */ fixed a date",
			want:    " fixed a date",
		},
		{
			name:    "marker mid-summary stripped",
			summary: "rv /* good faith */ vandalism",
			want:    "rv  vandalism",
		},
		{
			name:    "multiple markers stripped non-overlapping",
			summary: "/* a */ one /* b */ two",
			want:    " one  two",
		},
		{
			name:    "minimal match keeps text between markers",
			summary: "/* a */ keep this /* b */",
			want:    " keep this ",
		},
		{
			name:    "no marker is a no-op",
			summary: "just a summary",
			want:    "just a summary",
		},
		{
			name:    "unterminated marker is untouched",
			summary: "/* dangling section",
			want:    "/* dangling section",
		},
		{
			name:    "ascii folding only",
			summary: "UNDID Édits",
			want:    "undid Édits",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeSummary(tt.summary); got != tt.want {
				t.Errorf("NormalizeSummary(%q) = %q, want %q", tt.summary, got, tt.want)
			}
		})
	}
}

func TestIsRevertOfVandalism(t *testing.T) {
	tests := []struct {
		name    string
		summary string
		want    bool
	}{
		{"revert keyword", "Reverted edits by X (LTA)", true},
		{"rv shorthand with target", "rv vandal edits", true},
		{"rvv shorthand with target", "rvv spam", true},
		{"undid keyword", "Undid revision 123 by Example", true},
		{"long-term abuse hyphenated", "blocking long-term abuse", true},
		{"long term abuse spaced", "long term abuse account", true},
		{"plain abuse", "removing abuse", true},

		// Counter-indications win over any vandalism keyword.
		{"good faith overrides rv", "RV vandalism, good faith edit", false},
		{"agf overrides revert", "reverted per AGF", false},
		{"self revert", "self-revert, my mistake", false},
		{"rv tag", "rv tag spam", false},
		{"typo fix", "reverted typo", false},
		{"format fix", "undid formatting change", false},
		{"unsourced removal", "revert unsourced addition", false},
		{"unreferenced removal", "rv unreferenced claim", false},
		{"speculation removal", "reverting speculative content", false},
		{"original research", "undid original research", false},
		{"incorrect info", "revert incorrect date", false},
		{"uaa report", "revert, reported to UAA", false},

		// Neither set.
		{"unrelated summary", "added references", false},
		{"empty summary", "", false},

		// Trailing-space literals: "rv" with no trailing content does not match.
		{"bare rv no trailing space", "rv", false},
		{"bare rvv no trailing space", "rvv", false},

		// Section markers are stripped before matching, so keywords inside
		// them neither trigger nor suppress classification.
		{"not-keyword inside marker does not suppress", "rv /* good faith */ vandalism", true},
		{"keyword only inside marker does not trigger", "/* revert wars */ copyedit", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRevertOfVandalism(tt.summary); got != tt.want {
				t.Errorf("IsRevertOfVandalism(%q) = %v, want %v", tt.summary, got, tt.want)
			}
		})
	}
}
