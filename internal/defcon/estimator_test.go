// Vandalwatch - MediaWiki Vandalism Level Monitor
// Copyright 2026 Vandalwatch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vandalwatch/vandalwatch

package defcon

import (
	"context"
	"errors"
	"testing"
	"time"
)

// mockChangeSource serves a fixed sequence of comment pages and records
// the window bounds it was called with.
type mockChangeSource struct {
	pages    [][]string
	err      error
	errAt    int // page index at which to fail (when err is set)
	calls    int
	windows  [][2]time.Time
	lastCont []string
}

func (m *mockChangeSource) RecentEditComments(ctx context.Context, from, to time.Time, cont string) ([]string, string, error) {
	idx := m.calls
	m.calls++
	m.windows = append(m.windows, [2]time.Time{from, to})
	m.lastCont = append(m.lastCont, cont)

	if m.err != nil && idx == m.errAt {
		return nil, "", m.err
	}

	page := m.pages[idx]
	next := ""
	if idx < len(m.pages)-1 {
		next = "cont-" + string(rune('a'+idx))
	}
	return page, next, nil
}

func TestRevertsPerMinuteSumsAllPages(t *testing.T) {
	source := &mockChangeSource{
		pages: [][]string{
			{"rv vandal edits", "added references", "Undid revision 1 by X"},
			{"Reverted edits by Y (LTA)", "fixed typo"},
			{"rvv spam", "copyedit"},
		},
	}
	est := NewRateEstimator(source, time.Hour)

	rpm, err := est.RevertsPerMinute(context.Background())
	if err != nil {
		t.Fatalf("RevertsPerMinute failed: %v", err)
	}

	// 4 classified reverts across 3 pages over 60 minutes.
	want := 4.0 / 60.0
	if rpm != want {
		t.Errorf("rpm = %v, want %v", rpm, want)
	}
	if source.calls != 3 {
		t.Errorf("pages consumed = %d, want 3", source.calls)
	}
}

func TestRevertsPerMinuteLinearInCount(t *testing.T) {
	single := &mockChangeSource{pages: [][]string{{"rv vandal one"}}}
	double := &mockChangeSource{pages: [][]string{{"rv vandal one", "rv vandal two"}}}

	rpm1, err := NewRateEstimator(single, time.Hour).RevertsPerMinute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	rpm2, err := NewRateEstimator(double, time.Hour).RevertsPerMinute(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if rpm2 != 2*rpm1 {
		t.Errorf("doubling classified count: rpm %v -> %v, want exact doubling", rpm1, rpm2)
	}
}

func TestRevertsPerMinuteWindowComputedOnce(t *testing.T) {
	source := &mockChangeSource{
		pages: [][]string{{"rv a"}, {"rv b"}, {"rv c"}},
	}
	est := NewRateEstimator(source, time.Hour)

	// A ticking clock would drift the window between pages if the bounds
	// were recomputed per page.
	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	tick := 0
	est.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	if _, err := est.RevertsPerMinute(context.Background()); err != nil {
		t.Fatal(err)
	}

	first := source.windows[0]
	for i, w := range source.windows {
		if !w[0].Equal(first[0]) || !w[1].Equal(first[1]) {
			t.Errorf("page %d saw window %v..%v, want the bounds of page 0 (%v..%v)",
				i, w[0], w[1], first[0], first[1])
		}
	}
	if got := first[0].Sub(first[1]); got != time.Hour {
		t.Errorf("window span = %v, want 1h", got)
	}
}

func TestRevertsPerMinutePropagatesContinuation(t *testing.T) {
	source := &mockChangeSource{pages: [][]string{{}, {}, {}}}
	est := NewRateEstimator(source, time.Hour)

	if _, err := est.RevertsPerMinute(context.Background()); err != nil {
		t.Fatal(err)
	}

	want := []string{"", "cont-a", "cont-b"}
	for i, cont := range source.lastCont {
		if cont != want[i] {
			t.Errorf("page %d requested with cont %q, want %q", i, cont, want[i])
		}
	}
}

func TestRevertsPerMinuteSurfacesFetchError(t *testing.T) {
	fetchErr := errors.New("replication lag")
	source := &mockChangeSource{
		pages: [][]string{{"rv a"}, nil},
		err:   fetchErr,
		errAt: 1,
	}
	est := NewRateEstimator(source, time.Hour)

	_, err := est.RevertsPerMinute(context.Background())
	if !errors.Is(err, fetchErr) {
		t.Errorf("expected wrapped fetch error, got %v", err)
	}
}

func TestRevertsPerMinuteHonorsWindowLength(t *testing.T) {
	source := &mockChangeSource{pages: [][]string{{"rv a", "rv b", "rv c"}}}
	est := NewRateEstimator(source, 30*time.Minute)

	rpm, err := est.RevertsPerMinute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if want := 3.0 / 30.0; rpm != want {
		t.Errorf("rpm = %v, want %v", rpm, want)
	}
}
