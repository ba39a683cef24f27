// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"net/url"
	"path"
	"strings"
)

// LocatorKind says how a paper's file can be reached.
type LocatorKind int

const (
	// LocatorDirect is a URL that serves the PDF bytes to a plain HTTP client.
	LocatorDirect LocatorKind = iota
	// LocatorBrowser is a URL whose PDF is only delivered through browser
	// navigation (scripts, redirects, download triggers).
	LocatorBrowser
	// LocatorDetail is a secondary page that must be resolved into one of
	// the other kinds before acquisition.
	LocatorDetail
)

func (k LocatorKind) String() string {
	switch k {
	case LocatorDirect:
		return "direct"
	case LocatorBrowser:
		return "browser"
	case LocatorDetail:
		return "detail"
	default:
		return "unknown"
	}
}

// Locator points at a paper's file, or at the page that leads to it.
type Locator struct {
	URL  string
	Kind LocatorKind
}

// FileLocator classifies a resolved file URL: URLs whose path ends in .pdf
// are streamed directly, anything else goes through the browser.
func FileLocator(rawURL string) Locator {
	kind := LocatorBrowser
	if u, err := url.Parse(rawURL); err == nil {
		if strings.EqualFold(path.Ext(u.Path), ".pdf") {
			kind = LocatorDirect
		}
	}
	return Locator{URL: rawURL, Kind: kind}
}

// DetailLocator wraps a URL that needs one more navigation hop.
func DetailLocator(rawURL string) Locator {
	return Locator{URL: rawURL, Kind: LocatorDetail}
}

// PaperCandidate is a discovered paper not yet admitted or acquired.
// Title is kept as scraped, unsanitized; the artifact store sanitizes it.
type PaperCandidate struct {
	Title   string
	Locator Locator
	Year    int
}

// NeedsDetail reports whether the candidate must be resolved through a detail
// page before it can be acquired.
func (c PaperCandidate) NeedsDetail() bool {
	return c.Locator.Kind == LocatorDetail
}
