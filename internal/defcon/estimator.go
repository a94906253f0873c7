// Vandalwatch - MediaWiki Vandalism Level Monitor
// Copyright 2026 Vandalwatch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vandalwatch/vandalwatch

package defcon

import (
	"context"
	"fmt"
	"time"

	"github.com/vandalwatch/vandalwatch/internal/classifier"
	"github.com/vandalwatch/vandalwatch/internal/logging"
	"github.com/vandalwatch/vandalwatch/internal/metrics"
)

// ChangeSource supplies recent edit summaries one continuation page at a
// time. Implemented by the mediawiki client; mocked in tests.
//
// A call with an empty cont requests the first page; a non-empty returned
// next token means more pages remain. Listing runs from the newer bound
// `from` back to the older bound `to`.
type ChangeSource interface {
	RecentEditComments(ctx context.Context, from, to time.Time, cont string) (comments []string, next string, err error)
}

// RateEstimator computes the reverts-per-minute figure over a trailing
// window of recent changes.
type RateEstimator struct {
	source ChangeSource
	window time.Duration
	now    func() time.Time // injectable clock for tests
}

// NewRateEstimator creates an estimator over the given source and trailing
// window length.
func NewRateEstimator(source ChangeSource, window time.Duration) *RateEstimator {
	return &RateEstimator{
		source: source,
		window: window,
		now:    time.Now,
	}
}

// RevertsPerMinute estimates the current vandalism revert rate.
//
// The window bounds are computed exactly once per call, so a slow paginated
// fetch cannot drift the window. Every continuation page is consumed before
// dividing; a partial count would silently understate the rate and corrupt
// the published level, so any page error aborts the estimate instead.
func (e *RateEstimator) RevertsPerMinute(ctx context.Context) (float64, error) {
	from := e.now()
	to := from.Add(-e.window)

	count := 0
	pages := 0
	cont := ""
	for {
		comments, next, err := e.source.RecentEditComments(ctx, from, to, cont)
		if err != nil {
			return 0, fmt.Errorf("fetch recent changes page %d: %w", pages+1, err)
		}
		pages++
		metrics.RecentChangesPages.Inc()

		for _, comment := range comments {
			if classifier.IsRevertOfVandalism(comment) {
				count++
			}
		}

		if next == "" {
			break
		}
		cont = next
	}

	rpm := float64(count) / e.window.Minutes()
	logging.Debug().
		Int("reverts", count).
		Int("pages", pages).
		Float64("rpm", rpm).
		Msg("estimated revert rate")
	return rpm, nil
}
