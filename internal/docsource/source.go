// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package docsource provides navigable document sources: a session that opens
// pages, queries them by CSS selector, exposes cookies and redirects
// downloads. Two drivers exist, a headless browser (go-rod) for portals that
// render with JavaScript and a plain HTTP client for static pages.
//
// Both drivers hand out Elements taken from a goquery snapshot of the current
// DOM. Snapshots never go stale, so callers only ever see navigation timeouts
// or missing elements, never a detached node.
package docsource

import (
	"context"
	"time"
)

// Source is one navigation session. It carries mutable state (current page,
// cookies, download target) and must not be shared between goroutines.
type Source interface {
	// Open navigates to rawURL and waits for the document to load.
	Open(ctx context.Context, rawURL string) error

	// CurrentURL returns the URL of the open document after redirects.
	CurrentURL() string

	// Query returns every element matching selector in the current document.
	Query(ctx context.Context, selector string) ([]Element, error)

	// QueryOne returns the first match, or an error wrapping
	// types.ErrElementNotFound.
	QueryOne(ctx context.Context, selector string) (Element, error)

	// WaitUntil waits up to timeout for selector to match at least one
	// element and returns all matches. On expiry it returns an error
	// wrapping types.ErrNavigationTimeout.
	WaitUntil(ctx context.Context, selector string, timeout time.Duration) ([]Element, error)

	// Cookies returns the session cookies for the current document.
	Cookies(ctx context.Context) (map[string]string, error)

	// SetDownloadTarget redirects native downloads into dir. An empty dir
	// restores the default behaviour.
	SetDownloadTarget(ctx context.Context, dir string) error

	// Close releases the session. It is safe to call more than once.
	Close() error
}

// Interactor is implemented by sources that can drive forms, which only a
// real browser can. Login flows type-assert for it and degrade without it.
type Interactor interface {
	Click(ctx context.Context, selector string) error
	// ClickAll clicks every current match and returns how many were clicked.
	ClickAll(ctx context.Context, selector string) (int, error)
	ClickText(ctx context.Context, selector, text string) error
	Type(ctx context.Context, selector, text string, submit bool) error
}
