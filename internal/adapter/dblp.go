// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package adapter

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/proceedings-harvester/internal/docsource"
	"github.com/pdiddy/proceedings-harvester/internal/retry"
	"github.com/pdiddy/proceedings-harvester/pkg/types"
)

// dblp conference indexes. dblp only links to papers, so most entries need a
// hop to the publisher's page to find the PDF.
const (
	dblpTOC   = "a.toc-link[href*='dblp.org']"
	dblpEntry = "li.entry"
	dblpHead  = "div.head > a"
	dblpTitle = "span.title"
)

// host is one kind of link a dblp entry can lead to.
type host struct {
	name  string
	match func(href string) bool
	// direct hosts link straight to the file; the rest are detail pages.
	direct bool
	// frontMatter hosts carry the proceedings volume itself as the first
	// entry of a year.
	frontMatter bool
}

func hasPrefix(href string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(href, p) {
			return true
		}
	}
	return false
}

var (
	hostOpenReview = host{name: "openreview", match: func(h string) bool {
		return strings.Contains(h, "openreview.net/forum")
	}}
	hostArxiv = host{name: "arxiv", match: func(h string) bool {
		return strings.Contains(h, "arxiv.org/abs")
	}}
	hostMLR = host{name: "mlr", match: func(h string) bool {
		return hasPrefix(h, "http://proceedings.mlr.press/", "https://proceedings.mlr.press/") && strings.Contains(h, ".html")
	}}
	hostCEUR = host{name: "ceur", direct: true, frontMatter: true, match: func(h string) bool {
		return strings.HasPrefix(h, "https://ceur-ws.org/")
	}}
	hostDOI = host{name: "doi", frontMatter: true, match: func(h string) bool {
		return strings.HasPrefix(h, "https://doi.org/")
	}}
	hostAAAI = host{name: "aaai", match: func(h string) bool {
		return hasPrefix(h, "http://www.aaai.org/", "https://www.aaai.org/")
	}}
	hostICML = host{name: "icml", direct: true, match: func(h string) bool {
		return hasPrefix(h, "http://icml.cc/", "https://icml.cc/") && strings.Contains(h, ".pdf")
	}}

	icmlHosts = []host{hostOpenReview, hostMLR, hostCEUR, hostDOI, hostAAAI, hostICML}
	iclrHosts = []host{hostOpenReview, hostArxiv}
)

func classifyHead(href string, hosts []host) (host, bool) {
	if strings.Contains(href, "twitter.com") {
		return host{}, false
	}
	for _, h := range hosts {
		if h.match(href) {
			return h, true
		}
	}
	return host{}, false
}

// dblp serves venues indexed by dblp whose papers live on many hosts (ICML).
type dblp struct {
	cfg   Config
	hosts []host
	// lastEmptyYear is the last year whose entries carry no files at all.
	lastEmptyYear int
	name          types.Variant
}

func newDBLP(cfg Config) *dblp {
	return &dblp{cfg: cfg, hosts: icmlHosts, lastEmptyYear: 2002, name: types.VariantDBLP}
}

// newOpenReview serves ICLR: dblp index, OpenReview forums and arXiv
// abstracts.
func newOpenReview(cfg Config) *dblp {
	return &dblp{cfg: cfg, hosts: iclrHosts, name: types.VariantOpenReview}
}

func (a *dblp) Name() string { return string(a.name) }

func (a *dblp) ResolveYearIndex(ctx context.Context, src docsource.Source, root string) (types.YearIndex, error) {
	links, err := openAndWait(ctx, src, root, dblpTOC, a.cfg.Wait)
	if err != nil {
		return nil, err
	}
	return indexLinks(links, fourDigit), nil
}

// ResolvePapers takes, per entry, the first head link on a known host and
// the entry's title. When the year's first such link is a DOI or CEUR link
// it is the proceedings volume and is skipped.
func (a *dblp) ResolvePapers(ctx context.Context, src docsource.Source, listingURL string, year int) ([]types.PaperCandidate, error) {
	if year <= a.lastEmptyYear {
		a.cfg.Logger.Info("year has no files", "year", year)
		return nil, nil
	}
	if _, err := openAndWait(ctx, src, listingURL, dblpHead, a.cfg.Wait); err != nil {
		return nil, err
	}
	entries, err := src.Query(ctx, dblpEntry)
	if err != nil {
		return nil, err
	}

	var out []types.PaperCandidate
	first := true
	for _, e := range entries {
		var (
			href string
			h    host
			ok   bool
		)
		for _, head := range e.Find(dblpHead) {
			href, _ = head.Attr("href")
			if h, ok = classifyHead(href, a.hosts); ok {
				break
			}
		}
		if !ok {
			continue
		}
		if first {
			first = false
			if h.frontMatter {
				continue
			}
		}

		var title string
		if t, found := e.FindOne(dblpTitle); found {
			title = strings.TrimSuffix(text(t), ".")
		}
		c := types.PaperCandidate{Title: title, Year: year}
		if h.direct {
			if title == "" {
				continue
			}
			c.Locator = types.FileLocator(href)
		} else {
			c.Locator = types.DetailLocator(href)
		}
		out = append(out, c)
	}
	return out, nil
}

// ResolveDetail opens the publisher page and reads its PDF link and title.
// The page's title wins over dblp's when both exist.
func (a *dblp) ResolveDetail(ctx context.Context, src docsource.Source, c types.PaperCandidate) (types.PaperCandidate, error) {
	h, ok := classifyHead(c.Locator.URL, a.hosts)
	if !ok {
		return c, fmt.Errorf("%w: unrecognised link %s", ErrNoFile, c.Locator.URL)
	}
	return retry.Call(ctx, a.cfg.DetailRetry, func(ctx context.Context) (types.PaperCandidate, error) {
		var (
			title, file string
			err         error
		)
		switch h.name {
		case hostOpenReview.name:
			title, file, err = a.page(ctx, src, c.Locator.URL,
				"h2.note_content_title > span, h2.citation_title", "a.note_content_pdf, a.citation_pdf_url")
		case hostArxiv.name:
			title, file, err = a.page(ctx, src, c.Locator.URL, "h1.title.mathjax", "a.abs-button.download-pdf")
			title = strings.TrimSpace(strings.TrimPrefix(title, "Title:"))
		case hostDOI.name:
			title, file, err = a.doi(ctx, src, c.Locator.URL)
		default:
			title, file, err = a.page(ctx, src, c.Locator.URL, "h1", "a[href*='.pdf']")
		}
		if err != nil {
			return c, err
		}
		if title != "" {
			c.Title = title
		}
		c.Locator = types.FileLocator(file)
		return c, nil
	})
}

// page waits for titleSel, then reads the title and the first fileSel link.
func (a *dblp) page(ctx context.Context, src docsource.Source, pageURL, titleSel, fileSel string) (title, file string, err error) {
	found, err := openAndWait(ctx, src, pageURL, titleSel, a.cfg.Wait)
	if err != nil {
		return "", "", err
	}
	link, err := src.QueryOne(ctx, fileSel)
	if err != nil {
		return "", "", err
	}
	file, _ = link.Attr("href")
	return text(found[0]), file, nil
}

// doi follows a DOI to its publisher. Book landing pages and pages that
// demand an institutional login offer nothing to download.
func (a *dblp) doi(ctx context.Context, src docsource.Source, pageURL string) (title, file string, err error) {
	if err := src.Open(ctx, pageURL); err != nil {
		return "", "", err
	}
	if strings.Contains(src.CurrentURL(), "book") {
		return "", "", retry.Permanent(fmt.Errorf("%w: %s is a book page", ErrNoFile, src.CurrentURL()))
	}
	if body, err := src.QueryOne(ctx, "body"); err == nil && strings.Contains(body.Text(), "Log in via an institution") {
		return "", "", retry.Permanent(fmt.Errorf("%w: %s needs an institutional login", ErrNoFile, src.CurrentURL()))
	}
	links, err := src.WaitUntil(ctx, "a[href*='/doi/pdf/'], a[href*='.pdf']", a.cfg.Wait)
	if err != nil {
		return "", "", err
	}
	file, _ = links[0].Attr("href")
	heading, err := src.QueryOne(ctx, "h1[property='name'], h1.c-article-title[data-test='chapter-title']")
	if err != nil {
		return "", "", err
	}
	return text(heading), file, nil
}
