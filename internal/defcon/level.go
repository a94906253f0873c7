// Vandalwatch - MediaWiki Vandalism Level Monitor
// Copyright 2026 Vandalwatch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vandalwatch/vandalwatch

// Package defcon implements the vandalism-level estimation and
// reconciliation logic: rate estimation over the recent-changes feed,
// the rate-to-level mapping and the conditional status page update.
package defcon

import "fmt"

// Level is a discrete alert level. 1 is the most severe, 5 the calmest.
// LevelUnknown (0) is only observed when the published status page carries
// no parseable level; it never equals a computed level, which guarantees a
// first run against a fresh page always writes.
type Level uint8

// LevelUnknown means no previously published level could be parsed.
const LevelUnknown Level = 0

// String renders the level for logs and the status endpoint.
func (l Level) String() string {
	if l == LevelUnknown {
		return "unknown"
	}
	return fmt.Sprintf("DEFCON %d", uint8(l))
}

// LevelForRate maps a reverts-per-minute rate to an alert level using fixed
// breakpoints, each an inclusive upper bound, evaluated in ascending order.
// Total over all float values; any rate above 8.0 is level 1.
func LevelForRate(rpm float64) Level {
	switch {
	case rpm <= 2.0:
		return 5
	case rpm <= 4.0:
		return 4
	case rpm <= 6.0:
		return 3
	case rpm <= 8.0:
		return 2
	default:
		return 1
	}
}
