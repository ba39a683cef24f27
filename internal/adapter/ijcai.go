// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package adapter

import (
	"context"
	"strings"

	"github.com/pdiddy/proceedings-harvester/internal/docsource"
	"github.com/pdiddy/proceedings-harvester/pkg/types"
)

// IJCAI changed its proceedings markup twice.
const (
	ijcaiYears   = "a[href*='/proceedings']"
	ijcaiWrapper = ".paper_wrapper"
	ijcaiTitle   = ".title"
	ijcaiPDF     = "a[href*='.pdf']"
)

type ijcai struct{ cfg Config }

func (a *ijcai) Name() string { return string(types.VariantIJCAI) }

func (a *ijcai) ResolveYearIndex(ctx context.Context, src docsource.Source, root string) (types.YearIndex, error) {
	links, err := openAndWait(ctx, src, root, ijcaiYears, a.cfg.Wait)
	if err != nil {
		return nil, err
	}
	return indexLinks(links, fourDigitWord), nil
}

// ResolvePapers handles three layouts: paper wrappers from 2017, "PDF"
// paragraphs titled up to the first slash in 2015-2016, and bare PDF links
// before that.
func (a *ijcai) ResolvePapers(ctx context.Context, src docsource.Source, listingURL string, year int) ([]types.PaperCandidate, error) {
	switch {
	case year >= 2017:
		return a.wrapped(ctx, src, listingURL, year)
	case year >= 2015:
		return a.paragraphs(ctx, src, listingURL, year)
	default:
		return a.bare(ctx, src, listingURL, year)
	}
}

func (a *ijcai) wrapped(ctx context.Context, src docsource.Source, listingURL string, year int) ([]types.PaperCandidate, error) {
	sections, err := openAndWait(ctx, src, listingURL, ijcaiWrapper, a.cfg.Wait)
	if err != nil {
		return nil, err
	}
	var out []types.PaperCandidate
	for _, s := range sections {
		t, ok := s.FindOne(ijcaiTitle)
		if !ok {
			continue
		}
		link, ok := s.FindOne(ijcaiPDF)
		if !ok {
			continue
		}
		href, _ := link.Attr("href")
		out = append(out, types.PaperCandidate{Title: text(t), Locator: types.FileLocator(href), Year: year})
	}
	return out, nil
}

func (a *ijcai) paragraphs(ctx context.Context, src docsource.Source, listingURL string, year int) ([]types.PaperCandidate, error) {
	if _, err := openAndWait(ctx, src, listingURL, "p "+ijcaiPDF, a.cfg.Wait); err != nil {
		return nil, err
	}
	paras, err := src.Query(ctx, "p")
	if err != nil {
		return nil, err
	}
	var out []types.PaperCandidate
	for _, p := range paras {
		body := p.Text()
		if !strings.Contains(body, "PDF") {
			continue
		}
		link, ok := p.FindOne(ijcaiPDF)
		if !ok {
			continue
		}
		href, _ := link.Attr("href")
		title, _, _ := strings.Cut(body, "/")
		out = append(out, types.PaperCandidate{Title: strings.TrimSpace(title), Locator: types.FileLocator(href), Year: year})
	}
	return out, nil
}

func (a *ijcai) bare(ctx context.Context, src docsource.Source, listingURL string, year int) ([]types.PaperCandidate, error) {
	links, err := openAndWait(ctx, src, listingURL, ijcaiPDF, a.cfg.Wait)
	if err != nil {
		return nil, err
	}
	var out []types.PaperCandidate
	for _, l := range links {
		href, _ := l.Attr("href")
		out = append(out, types.PaperCandidate{Title: text(l), Locator: types.FileLocator(href), Year: year})
	}
	return out, nil
}
