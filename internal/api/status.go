// Vandalwatch - MediaWiki Vandalism Level Monitor
// Copyright 2026 Vandalwatch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vandalwatch/vandalwatch

// Package api exposes the daemon-mode HTTP surface: health, Prometheus
// metrics and the latest monitoring run snapshot.
package api

import (
	"sync"

	"github.com/vandalwatch/vandalwatch/internal/defcon"
)

// StatusStore holds the most recent run result for the status endpoint.
// Safe for concurrent use; the monitor loop writes, HTTP handlers read.
type StatusStore struct {
	mu     sync.RWMutex
	latest *defcon.RunResult
}

// NewStatusStore creates an empty store. Latest returns nil until the
// first Set.
func NewStatusStore() *StatusStore {
	return &StatusStore{}
}

// Set records the result of a completed run.
func (s *StatusStore) Set(result *defcon.RunResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = result
}

// Latest returns the most recent run result, or nil if no run has
// completed yet.
func (s *StatusStore) Latest() *defcon.RunResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}
