// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package adapter

import (
	"context"
	"net/url"
	"path"
	"strings"

	"github.com/pdiddy/proceedings-harvester/internal/docsource"
	"github.com/pdiddy/proceedings-harvester/pkg/types"
)

// ACL Anthology venue and event pages.
const (
	aclEvents = "a[href*='events/']"
	aclPDF    = "a[href*='.pdf'][data-original-title='Open PDF'], a[href*='.pdf'][title='Open PDF']"

	// The Anthology rate-limits hard; retry less.
	aclAttempts = 3
)

type acl struct{ cfg Config }

func (a *acl) Name() string { return string(types.VariantACL) }

func (a *acl) Budgets() (listing, paper int) { return aclAttempts, aclAttempts }

func (a *acl) ResolveYearIndex(ctx context.Context, src docsource.Source, root string) (types.YearIndex, error) {
	links, err := openAndWait(ctx, src, root, aclEvents, a.cfg.Wait)
	if err != nil {
		return nil, err
	}
	return indexLinks(links, fourDigitWord), nil
}

// ResolvePapers pairs each "Open PDF" link with the paper page link whose
// path is the PDF name without its extension: 2023.acl-long.1.pdf is titled
// by the link to /2023.acl-long.1/.
func (a *acl) ResolvePapers(ctx context.Context, src docsource.Source, listingURL string, year int) ([]types.PaperCandidate, error) {
	pdfs, err := openAndWait(ctx, src, listingURL, aclPDF, a.cfg.Wait)
	if err != nil {
		return nil, err
	}
	anchors, err := src.Query(ctx, "a[href]")
	if err != nil {
		return nil, err
	}
	titles := make(map[string]string)
	for _, anchor := range anchors {
		href, _ := anchor.Attr("href")
		id := pageID(href)
		if id == "" {
			continue
		}
		if t := text(anchor); t != "" {
			if _, seen := titles[id]; !seen {
				titles[id] = t
			}
		}
	}

	var out []types.PaperCandidate
	for _, p := range pdfs {
		href, _ := p.Attr("href")
		id := strings.TrimSuffix(path.Base(href), ".pdf")
		title := titles[id]
		if title == "" {
			a.cfg.Logger.Debug("pdf without title link", "url", href)
			continue
		}
		out = append(out, types.PaperCandidate{Title: title, Locator: types.FileLocator(href), Year: year})
	}
	return out, nil
}

// pageID returns the last segment of a directory-style URL path
// ("/2023.acl-long.1/" gives "2023.acl-long.1"), or "".
func pageID(href string) string {
	u, err := url.Parse(href)
	if err != nil || !strings.HasSuffix(u.Path, "/") {
		return ""
	}
	trimmed := strings.TrimSuffix(u.Path, "/")
	if trimmed == "" {
		return ""
	}
	return path.Base(trimmed)
}
