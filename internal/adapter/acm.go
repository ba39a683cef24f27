// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package adapter

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"

	"github.com/pdiddy/proceedings-harvester/internal/docsource"
	"github.com/pdiddy/proceedings-harvester/pkg/types"
)

// ACM Digital Library.
const (
	acmViewAll     = "span.btn"
	acmViewAllText = "View All Proceedings"
	acmProceedings = "a[href*='/doi/proceedings/']"
	acmAccordion   = ".accordion-tabbed__control:not([aria-expanded='true'])"
	acmPDF         = "a[href*='/doi/pdf/']"
	acmTitleLink   = "a[href*='/doi/10.']"

	acmInstitutionTab    = "a[data-simple-tab-id='institutional-login']"
	acmInstitutionArrow  = "i.icon-arrow_d_n"
	acmInstitutionSearch = "input[placeholder='Search Institution name']"
	acmInstitutionOption = "span"
	acmUsername          = "#username"
	acmPassword          = "#password"
	acmSignedIn          = ".institution__name"

	// minInstitutionSimilarity is the percentage similarity between the
	// configured institution and the one the portal reports after login.
	minInstitutionSimilarity = 70
)

var (
	// acmLoginURL is a var so tests can point it at a fixture server.
	acmLoginURL = "https://dl.acm.org/action/showLogin"

	acmShortYear = regexp.MustCompile(`'(\d{2})`)

	// acmVenues are the acronyms a proceedings link must mention; the
	// conference pages also link sister venues and workshops.
	acmVenues = []string{"WSDM", "WWW", "UMAP", "SIGIR", "CIKM", "KDD", "RecSys"}
)

type acm struct{ cfg Config }

func (a *acm) Name() string { return string(types.VariantACM) }

// Authenticate performs an institutional login. It needs a browser session;
// success is confirmed by the institution name the portal displays.
func (a *acm) Authenticate(ctx context.Context, src docsource.Source, root string, creds *types.Credentials) error {
	if !creds.Usable() {
		return fmt.Errorf("%w: no credentials configured", types.ErrAuthenticationFailed)
	}
	ui, ok := src.(docsource.Interactor)
	if !ok {
		return fmt.Errorf("%w: institutional login needs a browser", types.ErrAuthenticationFailed)
	}

	if err := src.Open(ctx, acmLoginURL); err != nil {
		return err
	}
	steps := []func() error{
		func() error { return ui.Click(ctx, acmInstitutionTab) },
		func() error { return ui.Click(ctx, acmInstitutionArrow) },
		func() error { return ui.Type(ctx, acmInstitutionSearch, creds.Institution, false) },
		func() error { return ui.ClickText(ctx, acmInstitutionOption, creds.Institution) },
		func() error { return ui.Type(ctx, acmUsername, creds.Username, false) },
		func() error { return ui.Type(ctx, acmPassword, creds.Password, true) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}

	shown, err := src.WaitUntil(ctx, acmSignedIn, 15*time.Second)
	if err != nil {
		return err
	}
	name := text(shown[0])
	if sim := similarity(creds.Institution, name); sim < minInstitutionSimilarity {
		return fmt.Errorf("%w: signed in as %q, expected %q (similarity %d%%)",
			types.ErrAuthenticationFailed, name, creds.Institution, sim)
	}
	a.cfg.Logger.Info("signed in", "institution", name)
	return nil
}

// similarity is a case-insensitive edit-distance ratio in percent.
func similarity(a, b string) int {
	a, b = strings.ToLower(a), strings.ToLower(b)
	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 100
	}
	d := levenshtein.ComputeDistance(a, b)
	return 100 * (longest - d) / longest
}

// ResolveYearIndex opens the conference page, expands the full proceedings
// list when it can, and reads "'NN" years from the proceedings link texts.
func (a *acm) ResolveYearIndex(ctx context.Context, src docsource.Source, root string) (types.YearIndex, error) {
	if err := src.Open(ctx, root); err != nil {
		return nil, err
	}
	if ui, ok := src.(docsource.Interactor); ok {
		if err := ui.ClickText(ctx, acmViewAll, acmViewAllText); err != nil {
			a.cfg.Logger.Debug("proceedings list not expandable", "error", err)
		}
	}
	links, err := src.WaitUntil(ctx, acmProceedings, a.cfg.Wait)
	if err != nil {
		return nil, err
	}

	idx := make(types.YearIndex)
	for _, l := range links {
		if _, coded := l.Attr("data-code"); coded {
			continue
		}
		if class, ok := l.Attr("class"); ok && class != "" {
			continue
		}
		label := l.Text()
		if !mentionsVenue(label) {
			continue
		}
		href, _ := l.Attr("href")
		if y, ok := yearFrom(acmShortYear, label); ok {
			idx[href] = expandYear(y)
		}
	}
	return idx, nil
}

func mentionsVenue(label string) bool {
	for _, v := range acmVenues {
		if strings.Contains(label, v) {
			return true
		}
	}
	return false
}

// ResolvePapers expands every collapsed session so all PDF links are in the
// DOM, then titles each PDF by the link to its DOI page.
func (a *acm) ResolvePapers(ctx context.Context, src docsource.Source, listingURL string, year int) ([]types.PaperCandidate, error) {
	if err := src.Open(ctx, listingURL); err != nil {
		return nil, err
	}
	if ui, ok := src.(docsource.Interactor); ok {
		n, err := ui.ClickAll(ctx, acmAccordion)
		if err != nil {
			a.cfg.Logger.Debug("sessions not expanded", "error", err)
		}
		a.cfg.Logger.Debug("expanded sessions", "count", n)
	}
	pdfs, err := src.WaitUntil(ctx, acmPDF, a.cfg.Wait)
	if err != nil {
		return nil, err
	}
	anchors, err := src.Query(ctx, acmTitleLink)
	if err != nil {
		return nil, err
	}
	titles := make(map[string]string, len(anchors))
	for _, anchor := range anchors {
		href, _ := anchor.Attr("href")
		u, err := url.Parse(href)
		if err != nil {
			continue
		}
		if t := text(anchor); t != "" {
			if _, seen := titles[u.Path]; !seen {
				titles[u.Path] = t
			}
		}
	}

	seen := make(map[string]bool, len(pdfs))
	var out []types.PaperCandidate
	for _, p := range pdfs {
		href, _ := p.Attr("href")
		if seen[href] {
			continue
		}
		seen[href] = true
		title := titles[doiPath(href)]
		if title == "" {
			a.cfg.Logger.Debug("pdf without title link", "url", href)
			continue
		}
		out = append(out, types.PaperCandidate{Title: title, Locator: types.FileLocator(href), Year: year})
	}
	return out, nil
}

// doiPath maps a PDF link to the path of its DOI page:
// /doi/pdf/10.1145/123 becomes /doi/10.1145/123.
func doiPath(pdfHref string) string {
	u, err := url.Parse(pdfHref)
	if err != nil {
		return ""
	}
	return strings.Replace(u.Path, "/doi/pdf/", "/doi/", 1)
}
