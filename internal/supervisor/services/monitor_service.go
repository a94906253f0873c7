// Vandalwatch - MediaWiki Vandalism Level Monitor
// Copyright 2026 Vandalwatch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vandalwatch/vandalwatch

package services

import (
	"context"
	"time"

	"github.com/vandalwatch/vandalwatch/internal/defcon"
	"github.com/vandalwatch/vandalwatch/internal/logging"
)

// Runner executes one reconciliation pass.
type Runner interface {
	Run(ctx context.Context) (*defcon.RunResult, error)
}

// ResultSink receives the result of each successful run. Satisfied by
// api.StatusStore.
type ResultSink interface {
	Set(result *defcon.RunResult)
}

// MonitorService drives the reconciler on a fixed interval. The first
// run happens immediately on startup, not after the first tick.
//
// A failed run is logged and the loop keeps going: MediaWiki API
// hiccups are routine and the circuit breaker below already handles
// sustained outages.
type MonitorService struct {
	runner   Runner
	sink     ResultSink
	interval time.Duration
}

// NewMonitorService creates the polling loop. sink may be nil when no
// HTTP status surface is enabled.
func NewMonitorService(runner Runner, sink ResultSink, interval time.Duration) *MonitorService {
	return &MonitorService{runner: runner, sink: sink, interval: interval}
}

// Serve implements suture.Service.
func (m *MonitorService) Serve(ctx context.Context) error {
	m.runOnce(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.runOnce(ctx)
		}
	}
}

func (m *MonitorService) runOnce(ctx context.Context) {
	result, err := m.runner.Run(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		logging.Error().Err(err).Msg("Monitoring run failed")
		return
	}
	if m.sink != nil {
		m.sink.Set(result)
	}
}

// String implements fmt.Stringer for supervisor log messages.
func (m *MonitorService) String() string {
	return "vandalism-monitor"
}
