// Vandalwatch - MediaWiki Vandalism Level Monitor
// Copyright 2026 Vandalwatch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vandalwatch/vandalwatch

// Package classifier decides whether a MediaWiki edit summary describes a
// revert of vandalism.
//
// The classification is a keyword heuristic, not a learned model. Two fixed
// keyword sets are matched against the normalized summary: a set of
// counter-indications (good-faith reverts, formatting fixes, self-reverts)
// that always wins, and a set of vandalism-revert indications. Summaries
// matching neither set are not reverts of vandalism.
//
// Summaries are normalized before matching: MediaWiki section markers
// ("/* Section title */") are stripped so that keywords inside section names
// never influence the result, and the remainder is ASCII-lowercased.
package classifier

import (
	"regexp"
	"strings"
)

// vandalismKeywords mark a summary as a revert of vandalism when present.
// The trailing spaces in "rv " and "rvv " are deliberate: they match the
// conventional shorthand followed by a target ("rv vandal edits") without
// also matching arbitrary words that merely start with rv.
var vandalismKeywords = []string{
	"revert",
	"rv ",
	"long-term abuse",
	"long term abuse",
	"lta",
	"abuse",
	"rvv ",
	"undid",
}

// notVandalismKeywords override vandalismKeywords unconditionally. A summary
// like "rv good faith edit" is a revert, but not one of vandalism.
var notVandalismKeywords = []string{
	"uaa",
	"good faith",
	"agf",
	"unsourced",
	"unreferenced",
	"self",
	"speculat",
	"original research",
	"rv tag",
	"typo",
	"incorrect",
	"format",
}

// sectionMarkerRe matches MediaWiki section markers embedded in edit
// summaries. Minimal (non-greedy) matching keeps each match to a single
// marker pair; matches are removed leftmost first, non-overlapping.
var sectionMarkerRe = regexp.MustCompile(`/\*[\s\S]+?\*/`)

// NormalizeSummary strips section markers from a raw edit summary and
// ASCII-lowercases the remainder. Pure function; a summary without markers
// passes through unchanged apart from case.
func NormalizeSummary(summary string) string {
	return asciiLower(sectionMarkerRe.ReplaceAllString(summary, ""))
}

// asciiLower lowercases ASCII letters only. Edit summary keywords are all
// ASCII; locale-aware folding could introduce spurious matches from
// non-ASCII characters that fold to ASCII letters.
func asciiLower(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, s)
}

// IsRevertOfVandalism reports whether an edit summary heuristically describes
// undoing a vandalizing edit.
//
// Evaluation order is significant: the counter-indication set is checked
// first and short-circuits to false, regardless of any vandalism keywords
// also present in the summary.
func IsRevertOfVandalism(summary string) bool {
	normalized := NormalizeSummary(summary)

	for _, kwd := range notVandalismKeywords {
		if strings.Contains(normalized, kwd) {
			return false
		}
	}

	for _, kwd := range vandalismKeywords {
		if strings.Contains(normalized, kwd) {
			return true
		}
	}

	return false
}
