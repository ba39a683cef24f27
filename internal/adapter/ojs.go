// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package adapter

import (
	"context"
	"regexp"

	"github.com/pdiddy/proceedings-harvester/internal/docsource"
	"github.com/pdiddy/proceedings-harvester/pkg/types"
)

// Open Journal Systems archive, as used by AAAI.
const (
	ojsNext   = "a.next"
	ojsIssue  = "h2 > a.title[href*='/view/']"
	ojsSeries = "div.series"
	ojsGalley = "a.obj_galley_link.pdf"
)

var (
	aaaiTag    = regexp.MustCompile(`AAAI-(\d{2})`)
	seriesYear = regexp.MustCompile(`\((\d{4})\)`)
)

type ojs struct{ cfg Config }

func (a *ojs) Name() string { return string(types.VariantOJS) }

// ResolveYearIndex reads the archive and at most one following page. An
// issue's year comes from an "AAAI-NN" tag in its title, or else from the
// "(YYYY)" in its series line.
func (a *ojs) ResolveYearIndex(ctx context.Context, src docsource.Source, root string) (types.YearIndex, error) {
	issues, err := openAndWait(ctx, src, root, ojsIssue, a.cfg.Wait)
	if err != nil {
		return nil, err
	}
	idx := make(types.YearIndex)
	a.indexIssues(issues, idx)

	next, err := src.Query(ctx, ojsNext)
	if err != nil || len(next) == 0 {
		return idx, nil
	}
	nextURL, ok := next[0].Attr("href")
	if !ok {
		return idx, nil
	}
	more, err := openAndWait(ctx, src, nextURL, ojsIssue, a.cfg.Wait)
	if err != nil {
		a.cfg.Logger.Warn("archive page unreadable", "url", nextURL, "error", err)
		return idx, nil
	}
	a.indexIssues(more, idx)
	return idx, nil
}

func (a *ojs) indexIssues(issues []docsource.Element, idx types.YearIndex) {
	for _, issue := range issues {
		href, ok := issue.Attr("href")
		if !ok {
			continue
		}
		if y, ok := yearFrom(aaaiTag, issue.Text()); ok {
			idx[href] = expandYear(y)
			continue
		}
		h2, ok := issue.Parent()
		if !ok {
			continue
		}
		series, ok := h2.FindOne(ojsSeries)
		if !ok {
			continue
		}
		if y, ok := yearFrom(seriesYear, series.Text()); ok {
			idx[href] = y
		}
	}
}

// ResolvePapers pairs every PDF galley with the article title it is
// labelled by.
func (a *ojs) ResolvePapers(ctx context.Context, src docsource.Source, listingURL string, year int) ([]types.PaperCandidate, error) {
	galleys, err := openAndWait(ctx, src, listingURL, ojsGalley, a.cfg.Wait)
	if err != nil {
		return nil, err
	}
	labelled, err := src.Query(ctx, "[id]")
	if err != nil {
		return nil, err
	}
	titles := make(map[string]string, len(labelled))
	for _, e := range labelled {
		id, _ := e.Attr("id")
		if _, seen := titles[id]; !seen {
			titles[id] = text(e)
		}
	}

	var out []types.PaperCandidate
	for _, g := range galleys {
		href, ok := g.Attr("href")
		if !ok {
			continue
		}
		label, _ := g.Attr("aria-labelledby")
		title := titles[label]
		if title == "" {
			a.cfg.Logger.Debug("galley without title", "url", href)
			continue
		}
		out = append(out, types.PaperCandidate{Title: title, Locator: types.FileLocator(href), Year: year})
	}
	return out, nil
}
