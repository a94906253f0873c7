// Vandalwatch - MediaWiki Vandalism Level Monitor
// Copyright 2026 Vandalwatch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vandalwatch/vandalwatch

/*
client.go - MediaWiki Action API Client

This file provides the core Client struct and HTTP communication layer for
the MediaWiki Action API (api.php).

Client Features:
  - OAuth 2.0 bearer token authentication
  - Custom User-Agent per the Wikimedia User-Agent policy
  - Client-side request pacing (golang.org/x/time rate limiter)
  - Automatic HTTP 429 handling with exponential backoff and Retry-After
  - JSON response parsing (formatversion=2) with API-level error surfacing
  - Context support for cancellation and timeouts

The four operations the monitor needs:
  - RecentEditComments: one page of recent edit summaries plus a continuation token
  - PageRevision: latest revision id and content of the status page
  - CSRFToken: edit token for submission
  - SubmitEdit: conditional edit guarded by a base revision id
*/

//nolint:staticcheck // File documentation, not package doc
package mediawiki

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/vandalwatch/vandalwatch/internal/config"
	"github.com/vandalwatch/vandalwatch/internal/metrics"
)

// maxErrorBodySize limits how much of a response body is read for error
// reporting, preventing unbounded allocation on large error pages.
const maxErrorBodySize = 64 * 1024 // 64KB

// maxLagSeconds is sent as the maxlag parameter on every request. It asks
// the wiki to reject the request when replication lag is high, the polite
// behavior for bots per the MediaWiki API etiquette guidelines.
const maxLagSeconds = 5

// readBodyForError reads up to maxErrorBodySize of a response body for
// error diagnostics, indicating truncation when the limit is hit.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}

// Client handles communication with a MediaWiki Action API endpoint.
//
// Thread Safety: safe for concurrent use; each request creates its own
// HTTP request and the rate limiter serializes pacing internally.
type Client struct {
	apiURL         string
	oauthToken     string
	userAgent      string
	client         *http.Client
	limiter        *rate.Limiter
	maxRetries     int           // maximum retries for HTTP 429
	retryBaseDelay time.Duration // base delay for exponential backoff
}

// NewClient creates a MediaWiki API client from the wiki configuration.
//
// The client is configured with a 30-second HTTP timeout, up to 5 retries
// on HTTP 429 with exponential backoff (1s, 2s, 4s, 8s, 16s), and a
// client-side pace of at most 5 requests per second.
func NewClient(cfg *config.WikiConfig) *Client {
	return &Client{
		apiURL:     cfg.APIURL,
		oauthToken: cfg.OAuthToken,
		userAgent:  cfg.UserAgent,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter:        rate.NewLimiter(rate.Every(200*time.Millisecond), 1),
		maxRetries:     5,
		retryBaseDelay: 1 * time.Second,
	}
}

// doRequestWithRateLimit executes one paced HTTP request with automatic
// HTTP 429 handling. Backoff waits honor the Retry-After header and are
// cancellable through the context.
func (c *Client) doRequestWithRateLimit(ctx context.Context, build func() (*http.Request, error)) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := build()
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.oauthToken)
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("HTTP request failed: %w", err)
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		// Rate limited - close body and retry with backoff
		_ = resp.Body.Close()

		if attempt == c.maxRetries {
			lastErr = fmt.Errorf("rate limit exceeded after %d retries (HTTP 429)", c.maxRetries)
			break
		}

		delay := c.retryBaseDelay * time.Duration(1<<uint(attempt))
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := time.ParseDuration(retryAfter + "s"); err == nil {
				delay = seconds
			}
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, lastErr
}

// get performs an action=query style GET and decodes the response.
// Common parameters (format, formatversion, maxlag) are added here.
func (c *Client) get(ctx context.Context, action string, params url.Values, result errorCarrier) error {
	params.Set("action", action)
	c.setCommonParams(params)
	reqURL := fmt.Sprintf("%s?%s", c.apiURL, params.Encode())

	start := time.Now()
	resp, err := c.doRequestWithRateLimit(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	})
	if err != nil {
		metrics.ObserveAPIRequest(action, "transport_error", time.Since(start))
		return fmt.Errorf("%s request failed: %w", action, err)
	}
	defer resp.Body.Close()

	return c.decodeResponse(action, resp, start, result)
}

// postForm performs a form-encoded POST (action=edit) and decodes the
// response. The body is rebuilt on every retry attempt.
func (c *Client) postForm(ctx context.Context, action string, form url.Values, result errorCarrier) error {
	form.Set("action", action)
	c.setCommonParams(form)
	encoded := form.Encode()

	start := time.Now()
	resp, err := c.doRequestWithRateLimit(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, strings.NewReader(encoded))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	})
	if err != nil {
		metrics.ObserveAPIRequest(action, "transport_error", time.Since(start))
		return fmt.Errorf("%s request failed: %w", action, err)
	}
	defer resp.Body.Close()

	return c.decodeResponse(action, resp, start, result)
}

// decodeResponse checks HTTP status, decodes the JSON body and surfaces
// API-level errors from the response wrapper.
func (c *Client) decodeResponse(action string, resp *http.Response, start time.Time, result errorCarrier) error {
	if resp.StatusCode != http.StatusOK {
		metrics.ObserveAPIRequest(action, strconv.Itoa(resp.StatusCode), time.Since(start))
		body := readBodyForError(resp.Body)
		return fmt.Errorf("%s request failed with status %d: %s", action, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		metrics.ObserveAPIRequest(action, "decode_error", time.Since(start))
		return fmt.Errorf("failed to decode %s response: %w", action, err)
	}

	if apiErr := result.apiError(); apiErr != nil {
		metrics.ObserveAPIRequest(action, "api_error", time.Since(start))
		if apiErr.Code == "editconflict" {
			return fmt.Errorf("%w: %s", ErrEditConflict, apiErr.Info)
		}
		return apiErr
	}

	metrics.ObserveAPIRequest(action, "ok", time.Since(start))
	return nil
}

// setCommonParams adds the parameters shared by every API request.
func (c *Client) setCommonParams(params url.Values) {
	params.Set("format", "json")
	params.Set("formatversion", "2")
	params.Set("maxlag", strconv.Itoa(maxLagSeconds))
}

// RecentEditComments fetches one page of edit summaries from the
// recent-changes feed, listing from the newer bound `from` back to the
// older bound `to`. The returned continuation token is non-empty while
// more pages remain; pass it back to fetch the next page. An empty cont
// requests the first page.
func (c *Client) RecentEditComments(ctx context.Context, from, to time.Time, cont string) (comments []string, next string, err error) {
	params := url.Values{}
	params.Set("list", "recentchanges")
	params.Set("rctype", "edit")
	params.Set("rcprop", "comment")
	params.Set("rclimit", "max")
	params.Set("rcstart", from.UTC().Format(time.RFC3339))
	params.Set("rcend", to.UTC().Format(time.RFC3339))
	if cont != "" {
		params.Set("rccontinue", cont)
	}

	var res recentChangesResponse
	if err := c.get(ctx, "query", params, &res); err != nil {
		return nil, "", err
	}

	comments = make([]string, 0, len(res.Query.RecentChanges))
	for _, rc := range res.Query.RecentChanges {
		comments = append(comments, rc.Comment)
	}
	return comments, res.Continue.RCContinue, nil
}

// PageRevision fetches the latest revision id and main slot content of the
// named page. A missing page returns ErrMissingPage; a response without
// revisions or content returns ErrMissingField.
func (c *Client) PageRevision(ctx context.Context, title string) (*PageRevision, error) {
	params := url.Values{}
	params.Set("prop", "revisions")
	params.Set("titles", title)
	params.Set("rvprop", "ids|content")
	params.Set("rvslots", "main")
	params.Set("rvlimit", "1")

	var res revisionsResponse
	if err := c.get(ctx, "query", params, &res); err != nil {
		return nil, err
	}

	if len(res.Query.Pages) == 0 {
		return nil, fmt.Errorf("%w: no pages for title %q", ErrMissingField, title)
	}
	page := res.Query.Pages[0]
	if page.Missing {
		return nil, fmt.Errorf("%w: %q", ErrMissingPage, title)
	}
	if len(page.Revisions) == 0 {
		return nil, fmt.Errorf("%w: no revisions for %q", ErrMissingField, title)
	}
	rev := page.Revisions[0]
	// An empty page is valid (it simply parses to no level); only a
	// response without the content field at all is malformed.
	if rev.Slots.Main.Content == nil {
		return nil, fmt.Errorf("%w: no main slot content for %q", ErrMissingField, title)
	}

	return &PageRevision{
		RevisionID: rev.RevID,
		Content:    *rev.Slots.Main.Content,
	}, nil
}

// CSRFToken fetches an edit token for the authenticated account.
func (c *Client) CSRFToken(ctx context.Context) (string, error) {
	params := url.Values{}
	params.Set("meta", "tokens")
	params.Set("type", "csrf")

	var res tokensResponse
	if err := c.get(ctx, "query", params, &res); err != nil {
		return "", err
	}
	if res.Query.Tokens.CSRFToken == "" {
		return "", fmt.Errorf("%w: no csrf token in response", ErrMissingField)
	}
	return res.Query.Tokens.CSRFToken, nil
}

// SubmitEdit submits a conditional page edit. The base revision id makes
// the API reject the edit (ErrEditConflict) if the page changed since it
// was read, rather than silently overwriting the concurrent change.
func (c *Client) SubmitEdit(ctx context.Context, edit EditRequest) error {
	form := url.Values{}
	form.Set("title", edit.Title)
	form.Set("summary", edit.Summary)
	form.Set("text", edit.Text)
	form.Set("baserevid", strconv.FormatInt(edit.BaseRevisionID, 10))
	form.Set("bot", "1")
	form.Set("token", edit.Token)

	var res editResponse
	if err := c.postForm(ctx, "edit", form, &res); err != nil {
		return err
	}
	if res.Edit.Result != "Success" {
		return fmt.Errorf("mediawiki: edit result %q", res.Edit.Result)
	}
	return nil
}
