// Vandalwatch - MediaWiki Vandalism Level Monitor
// Copyright 2026 Vandalwatch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vandalwatch/vandalwatch

package mediawiki

import (
	"errors"
	"fmt"
)

// Sentinel errors for conditions the reconciler distinguishes.
var (
	// ErrMissingPage is returned when the requested page does not exist.
	ErrMissingPage = errors.New("mediawiki: page does not exist")

	// ErrMissingField is returned when a successful API response lacks an
	// expected field (no revisions, no main slot content, no token).
	ErrMissingField = errors.New("mediawiki: expected field missing from response")

	// ErrEditConflict is returned when an edit is rejected because the page
	// changed since the base revision was read.
	ErrEditConflict = errors.New("mediawiki: edit conflict")
)

// APIError is a MediaWiki API-level error (the top-level "error" object
// returned with HTTP 200).
type APIError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mediawiki: API error %s: %s", e.Code, e.Info)
}

// baseResponse is embedded in every API response type. MediaWiki reports
// request-level failures through the "error" object rather than HTTP status.
type baseResponse struct {
	Error *APIError `json:"error"`
}

func (r *baseResponse) apiError() *APIError {
	return r.Error
}

// errorCarrier lets the request helper surface API-level errors uniformly.
type errorCarrier interface {
	apiError() *APIError
}

// recentChangesResponse models action=query&list=recentchanges
// (formatversion=2).
type recentChangesResponse struct {
	baseResponse
	Continue struct {
		RCContinue string `json:"rccontinue"`
	} `json:"continue"`
	Query struct {
		RecentChanges []struct {
			Comment string `json:"comment"`
		} `json:"recentchanges"`
	} `json:"query"`
}

// revisionsResponse models action=query&prop=revisions with rvslots=main
// (formatversion=2).
type revisionsResponse struct {
	baseResponse
	Query struct {
		Pages []struct {
			Title     string `json:"title"`
			Missing   bool   `json:"missing"`
			Revisions []struct {
				RevID int64 `json:"revid"`
				Slots struct {
					Main struct {
						// Pointer so an absent slot (nil) is told apart
						// from a legitimately blank page ("").
						Content *string `json:"content"`
					} `json:"main"`
				} `json:"slots"`
			} `json:"revisions"`
		} `json:"pages"`
	} `json:"query"`
}

// tokensResponse models action=query&meta=tokens&type=csrf.
type tokensResponse struct {
	baseResponse
	Query struct {
		Tokens struct {
			CSRFToken string `json:"csrftoken"`
		} `json:"tokens"`
	} `json:"query"`
}

// editResponse models action=edit.
type editResponse struct {
	baseResponse
	Edit struct {
		Result string `json:"result"`
	} `json:"edit"`
}

// PageRevision is the latest revision of a page: its id (used as the base
// revision guard on a subsequent edit) and its main slot content.
type PageRevision struct {
	RevisionID int64
	Content    string
}

// EditRequest describes a conditional page edit. BaseRevisionID is the
// revision the new text was derived from; the API rejects the edit with an
// edit conflict if the page has moved past it.
type EditRequest struct {
	Title          string
	Summary        string
	Text           string
	BaseRevisionID int64
	Token          string
}
