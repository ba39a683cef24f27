// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package adapter

import (
	"context"
	"regexp"

	"github.com/pdiddy/proceedings-harvester/internal/docsource"
	"github.com/pdiddy/proceedings-harvester/internal/retry"
	"github.com/pdiddy/proceedings-harvester/pkg/types"
)

const (
	neuripsYears    = "a[href*='/paper_files/paper/']"
	neuripsAbstract = "a[href*='/paper_files/paper/'][href$='-Abstract-Conference.html'], " +
		"a[href*='/paper_files/paper/'][href$='-Abstract.html']"
	neuripsPDF = "a.btn-spacer[href$='-Paper-Conference.pdf'], a.btn-spacer[href$='-Paper.pdf']"
)

var neuripsYear = regexp.MustCompile(`/paper/(\d{4})`)

type neurips struct{ cfg Config }

func (a *neurips) Name() string { return string(types.VariantNeurIPS) }

func (a *neurips) ResolveYearIndex(ctx context.Context, src docsource.Source, root string) (types.YearIndex, error) {
	links, err := openAndWait(ctx, src, root, neuripsYears, a.cfg.Wait)
	if err != nil {
		return nil, err
	}
	return indexLinks(links, neuripsYear), nil
}

// ResolvePapers lists abstract pages; the PDF link lives on each of them.
func (a *neurips) ResolvePapers(ctx context.Context, src docsource.Source, listingURL string, year int) ([]types.PaperCandidate, error) {
	links, err := openAndWait(ctx, src, listingURL, neuripsAbstract, a.cfg.Wait)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(links))
	var out []types.PaperCandidate
	for _, l := range links {
		href, _ := l.Attr("href")
		if seen[href] {
			continue
		}
		seen[href] = true
		out = append(out, types.PaperCandidate{Title: text(l), Locator: types.DetailLocator(href), Year: year})
	}
	return out, nil
}

func (a *neurips) ResolveDetail(ctx context.Context, src docsource.Source, c types.PaperCandidate) (types.PaperCandidate, error) {
	return retry.Call(ctx, a.cfg.DetailRetry, func(ctx context.Context) (types.PaperCandidate, error) {
		found, err := openAndWait(ctx, src, c.Locator.URL, neuripsPDF, a.cfg.Wait)
		if err != nil {
			return c, err
		}
		href, _ := found[0].Attr("href")
		c.Locator = types.FileLocator(href)
		return c, nil
	})
}
