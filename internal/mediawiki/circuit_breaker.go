// Vandalwatch - MediaWiki Vandalism Level Monitor
// Copyright 2026 Vandalwatch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vandalwatch/vandalwatch

package mediawiki

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/vandalwatch/vandalwatch/internal/config"
	"github.com/vandalwatch/vandalwatch/internal/logging"
	"github.com/vandalwatch/vandalwatch/internal/metrics"
)

// CircuitBreakerClient wraps Client with the circuit breaker pattern.
// In daemon mode the monitor keeps reconciling on a schedule; the breaker
// stops it from hammering a wiki API that is down or overloaded.
//
// DETERMINISM NOTE: the breaker uses real time (via sony/gobreaker) for its
// interval and timeout calculations. Tests should mock the wrapped client
// or test it directly rather than waiting out breaker state transitions.
type CircuitBreakerClient struct {
	client *Client
	cb     *gobreaker.CircuitBreaker[interface{}]
	name   string
}

// NewCircuitBreakerClient creates a MediaWiki client with circuit breaker.
// Configuration:
//   - max 2 concurrent requests in half-open state
//   - 1 minute measurement window
//   - 2 minute timeout before attempting recovery
//   - opens after 60% failure rate with minimum 5 requests
func NewCircuitBreakerClient(cfg *config.WikiConfig) *CircuitBreakerClient {
	client := NewClient(cfg)
	cbName := "mediawiki-api"

	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		// A reconciliation run issues few requests, so the minimum request
		// count is lower than a typical service breaker.
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6
			if shouldTrip {
				logging.Warn().
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("[circuit breaker] opening circuit")
			}
			return shouldTrip
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)
			logging.Info().Str("from", fromStr).Str("to", toStr).Msg("[circuit breaker] state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})

	return &CircuitBreakerClient{
		client: client,
		cb:     cb,
		name:   cbName,
	}
}

// execute wraps one API call with circuit breaker protection.
func (cbc *CircuitBreakerClient) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := cbc.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "rejected").Inc()
			logging.Warn().Err(err).Msg("[circuit breaker] request rejected")
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "failure").Inc()
		}
		return nil, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "success").Inc()
	return result, nil
}

// castResult safely type-casts the circuit breaker result.
func castResult[T any](result interface{}, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	typed, ok := result.(*T)
	if !ok {
		return nil, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// recentCommentsPage pairs a comment page with its continuation token so
// both fit through the breaker's single result value.
type recentCommentsPage struct {
	comments []string
	next     string
}

// RecentEditComments fetches a recent-changes page with breaker protection.
func (cbc *CircuitBreakerClient) RecentEditComments(ctx context.Context, from, to time.Time, cont string) ([]string, string, error) {
	page, err := castResult[recentCommentsPage](cbc.execute(func() (interface{}, error) {
		comments, next, err := cbc.client.RecentEditComments(ctx, from, to, cont)
		if err != nil {
			return nil, err
		}
		return &recentCommentsPage{comments: comments, next: next}, nil
	}))
	if err != nil {
		return nil, "", err
	}
	return page.comments, page.next, nil
}

// PageRevision fetches a page revision with breaker protection.
func (cbc *CircuitBreakerClient) PageRevision(ctx context.Context, title string) (*PageRevision, error) {
	return castResult[PageRevision](cbc.execute(func() (interface{}, error) {
		return cbc.client.PageRevision(ctx, title)
	}))
}

// CSRFToken fetches an edit token with breaker protection.
func (cbc *CircuitBreakerClient) CSRFToken(ctx context.Context) (string, error) {
	result, err := cbc.execute(func() (interface{}, error) {
		return cbc.client.CSRFToken(ctx)
	})
	if err != nil {
		return "", err
	}
	token, ok := result.(string)
	if !ok {
		return "", fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return token, nil
}

// SubmitEdit submits an edit with breaker protection.
func (cbc *CircuitBreakerClient) SubmitEdit(ctx context.Context, edit EditRequest) error {
	_, err := cbc.execute(func() (interface{}, error) {
		return nil, cbc.client.SubmitEdit(ctx, edit)
	})
	return err
}
