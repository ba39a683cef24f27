// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "errors"

// Error kinds shared by every stage. Callers wrap them with fmt.Errorf("%w")
// and test with errors.Is.
var (
	// ErrNavigationTimeout: a page or element did not appear in time.
	ErrNavigationTimeout = errors.New("navigation timeout")

	// ErrElementNotFound: a required element is absent from the page.
	ErrElementNotFound = errors.New("element not found")

	// ErrTransport: non-2xx response or network failure.
	ErrTransport = errors.New("transport error")

	// ErrAuthenticationFailed: the session could not be established.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrMalformedResponse: the keyword service returned something unparsable.
	ErrMalformedResponse = errors.New("malformed external response")

	// ErrFilesystem: an output directory or file could not be written.
	ErrFilesystem = errors.New("filesystem error")
)
