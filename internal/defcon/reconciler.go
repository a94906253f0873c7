// Vandalwatch - MediaWiki Vandalism Level Monitor
// Copyright 2026 Vandalwatch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vandalwatch/vandalwatch

package defcon

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vandalwatch/vandalwatch/internal/logging"
	"github.com/vandalwatch/vandalwatch/internal/mediawiki"
	"github.com/vandalwatch/vandalwatch/internal/metrics"
)

// levelRe extracts the published alert level from the status page content.
var levelRe = regexp.MustCompile(`level\s*=\s*(\d+)`)

// StatusPage is the narrow slice of the wiki client the reconciler needs.
// Implemented by mediawiki.Client and mediawiki.CircuitBreakerClient;
// mocked in tests.
type StatusPage interface {
	PageRevision(ctx context.Context, title string) (*mediawiki.PageRevision, error)
	CSRFToken(ctx context.Context) (string, error)
	SubmitEdit(ctx context.Context, edit mediawiki.EditRequest) error
}

// RateSource produces the current reverts-per-minute estimate.
// Implemented by RateEstimator.
type RateSource interface {
	RevertsPerMinute(ctx context.Context) (float64, error)
}

// Options configures a Reconciler.
type Options struct {
	// ReportPage is the title of the on-wiki status page.
	ReportPage string

	// BotUser is the bot's account name, rendered into the info line.
	BotUser string

	// SummaryPrefix leads the edit summary, typically a wikilink to the
	// bot's approval page.
	SummaryPrefix string

	// DryRun computes and logs but never submits.
	DryRun bool
}

// RunResult is the outcome of one reconciliation run.
type RunResult struct {
	RunID          string    `json:"run_id"`
	Rate           float64   `json:"reverts_per_minute"`
	PublishedLevel Level     `json:"published_level"`
	ComputedLevel  Level     `json:"computed_level"`
	Changed        bool      `json:"changed"`
	DryRun         bool      `json:"dry_run,omitempty"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
}

// Reconciler performs one read-compute-conditionally-write cycle against
// the status page. It holds no cross-run state; the published page is the
// only persistence in the whole system.
type Reconciler struct {
	page  StatusPage
	rates RateSource
	opts  Options
}

// NewReconciler creates a reconciler over the given status page client and
// rate source.
func NewReconciler(page StatusPage, rates RateSource, opts Options) *Reconciler {
	return &Reconciler{
		page:  page,
		rates: rates,
		opts:  opts,
	}
}

// Run executes one reconciliation:
//
//  1. fetch the status page's latest revision (content + revision id)
//  2. parse the published level ("level = N"), absent -> LevelUnknown
//  3. estimate the fresh rate and map it to a level
//  4. equal levels -> no write
//  5. otherwise submit the replacement content, guarded by the revision id
//     read in step 1 so a concurrent page edit surfaces as a conflict
//
// Every error aborts the run; nothing is retried here. The write is the
// final step, so a failed run never leaves partial page state behind.
func (r *Reconciler) Run(ctx context.Context) (*RunResult, error) {
	started := time.Now()
	runID := uuid.NewString()
	log := logging.With().Str("run_id", runID).Logger()

	result, err := r.run(ctx, runID, log, started)
	if err != nil {
		metrics.RecordRun("error", time.Since(started))
		return nil, err
	}

	outcome := "unchanged"
	if result.Changed {
		outcome = "changed"
	}
	metrics.RecordRun(outcome, time.Since(started))
	metrics.RevertsPerMinute.Set(result.Rate)
	metrics.AlertLevel.Set(float64(result.ComputedLevel))
	return result, nil
}

//nolint:gocritic // zerolog.Logger is designed to be passed by value
func (r *Reconciler) run(ctx context.Context, runID string, log zerolog.Logger, started time.Time) (*RunResult, error) {
	rev, err := r.page.PageRevision(ctx, r.opts.ReportPage)
	if err != nil {
		return nil, fmt.Errorf("fetch status page %q: %w", r.opts.ReportPage, err)
	}

	published := parsePublishedLevel(rev.Content)

	rate, err := r.rates.RevertsPerMinute(ctx)
	if err != nil {
		return nil, fmt.Errorf("estimate revert rate: %w", err)
	}
	computed := LevelForRate(rate)

	result := &RunResult{
		RunID:          runID,
		Rate:           rate,
		PublishedLevel: published,
		ComputedLevel:  computed,
		DryRun:         r.opts.DryRun,
		StartedAt:      started,
	}

	if computed == published {
		log.Info().
			Stringer("level", computed).
			Float64("rpm", rate).
			Msg("published level is current, no edit necessary")
		result.FinishedAt = time.Now()
		return result, nil
	}

	text := r.renderStatusPage(computed, rate)
	summary := r.renderSummary(computed, rate)

	if r.opts.DryRun {
		log.Info().
			Stringer("published", published).
			Stringer("computed", computed).
			Float64("rpm", rate).
			Str("summary", summary).
			Msg("dry run: would update status page")
		result.Changed = true
		result.FinishedAt = time.Now()
		return result, nil
	}

	token, err := r.page.CSRFToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch edit token: %w", err)
	}

	err = r.page.SubmitEdit(ctx, mediawiki.EditRequest{
		Title:          r.opts.ReportPage,
		Summary:        summary,
		Text:           text,
		BaseRevisionID: rev.RevisionID,
		Token:          token,
	})
	if err != nil {
		return nil, fmt.Errorf("submit status page edit: %w", err)
	}

	metrics.EditsSubmitted.Inc()
	log.Info().
		Stringer("published", published).
		Stringer("computed", computed).
		Float64("rpm", rate).
		Int64("base_revision", rev.RevisionID).
		Msg("updated status page")

	result.Changed = true
	result.FinishedAt = time.Now()
	return result, nil
}

// parsePublishedLevel extracts the published level from the page content.
// A page without a "level = N" marker, or with digits that do not fit a
// level value, parses as LevelUnknown so the next run always writes.
func parsePublishedLevel(content string) Level {
	m := levelRe.FindStringSubmatch(content)
	if m == nil {
		return LevelUnknown
	}
	v, err := strconv.Atoi(m[1])
	if err != nil || v < 0 || v > 255 {
		return LevelUnknown
	}
	return Level(v)
}

// renderStatusPage builds the replacement page content: a template switch
// exposing the level, a signature placeholder expanded by the wiki on
// save, and the rate annotation rounded to two decimals.
func (r *Reconciler) renderStatusPage(level Level, rate float64) string {
	return fmt.Sprintf(
		"{{#switch: {{{1}}}\n"+
			"  | level = %d\n"+
			"  | sign = ~~~~~\n"+
			"  | info = %.2f RPM according to [[User:%s|%s]]\n"+
			"}}",
		level, rate, r.opts.BotUser, r.opts.BotUser)
}

// renderSummary builds the human-readable edit summary.
func (r *Reconciler) renderSummary(level Level, rate float64) string {
	return fmt.Sprintf("%s updating vandalism level to level %d (%.2f RPM) #DEFCON%d",
		r.opts.SummaryPrefix, level, rate, level)
}
