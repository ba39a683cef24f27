// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package adapter knows how each family of publication portal lays out its
// proceedings. An adapter turns a portal root into a year index and a year's
// listing into paper candidates; it never downloads or filters anything.
//
// Adapters do not hold per-run state, so one value can serve many sessions.
// Every page they read comes from the docsource.Source they are handed.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/proceedings-harvester/internal/docsource"
	"github.com/pdiddy/proceedings-harvester/internal/retry"
	"github.com/pdiddy/proceedings-harvester/pkg/types"
)

// ErrUnknownVariant is returned by New for an unregistered variant tag.
var ErrUnknownVariant = errors.New("unknown source variant")

// ErrNoFile means a detail page exists but offers no file this session can
// fetch: a book landing page, a paywall, or front matter.
var ErrNoFile = errors.New("no downloadable file")

// Adapter resolves a portal's structure.
type Adapter interface {
	// Name returns the variant tag.
	Name() string

	// ResolveYearIndex reads the portal root and maps each year listing
	// URL to its year. Entries without a recognisable year are dropped.
	ResolveYearIndex(ctx context.Context, src docsource.Source, root string) (types.YearIndex, error)

	// ResolvePapers reads one year listing and returns its candidates. All
	// candidates are collected before any navigation away from the listing.
	ResolvePapers(ctx context.Context, src docsource.Source, listingURL string, year int) ([]types.PaperCandidate, error)
}

// DetailResolver is implemented by adapters whose listings point at detail
// pages. ResolveDetail follows the extra hop under its own retry budget and
// returns a candidate with a file locator and the page's title.
type DetailResolver interface {
	ResolveDetail(ctx context.Context, src docsource.Source, c types.PaperCandidate) (types.PaperCandidate, error)
}

// Authenticator is implemented by adapters for portals with a login.
type Authenticator interface {
	Authenticate(ctx context.Context, src docsource.Source, root string, creds *types.Credentials) error
}

// Budgeted is implemented by adapters that want smaller retry budgets than
// the configured defaults.
type Budgeted interface {
	Budgets() (listing, paper int)
}

// Config tunes every adapter.
type Config struct {
	// DetailRetry bounds the detail hop of a single candidate.
	DetailRetry retry.Policy
	// Wait bounds each wait for a selector to appear.
	Wait   time.Duration
	Logger *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.Wait <= 0 {
		c.Wait = 20 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// New returns the adapter for variant.
func New(variant types.Variant, cfg Config) (Adapter, error) {
	cfg = cfg.withDefaults()
	switch variant {
	case types.VariantOJS:
		return &ojs{cfg: cfg}, nil
	case types.VariantIJCAI:
		return &ijcai{cfg: cfg}, nil
	case types.VariantNeurIPS:
		return &neurips{cfg: cfg}, nil
	case types.VariantACL:
		return &acl{cfg: cfg}, nil
	case types.VariantACM:
		return &acm{cfg: cfg}, nil
	case types.VariantDBLP:
		return newDBLP(cfg), nil
	case types.VariantOpenReview:
		return newOpenReview(cfg), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, variant)
	}
}

// Variants lists every registered variant tag.
func Variants() []types.Variant {
	return []types.Variant{
		types.VariantOJS, types.VariantIJCAI, types.VariantNeurIPS,
		types.VariantACL, types.VariantACM, types.VariantDBLP, types.VariantOpenReview,
	}
}

var (
	fourDigitWord = regexp.MustCompile(`\b(\d{4})\b`)
	fourDigit     = regexp.MustCompile(`(\d{4})`)
)

// expandYear maps a two-digit year onto a four-digit one: below 50 is this
// century, the rest the last.
func expandYear(yy int) int {
	if yy < 50 {
		return 2000 + yy
	}
	return 1900 + yy
}

// yearFrom returns the first capture group of re in s as an int.
func yearFrom(re *regexp.Regexp, s string) (int, bool) {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return 0, false
	}
	y, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return y, true
}

// indexLinks builds a year index from links, reading each year from the
// path and query of the link's href with re. The host is ignored so a port
// number is never taken for a year.
func indexLinks(links []docsource.Element, re *regexp.Regexp) types.YearIndex {
	idx := make(types.YearIndex)
	for _, l := range links {
		href, ok := l.Attr("href")
		if !ok {
			continue
		}
		u, err := url.Parse(href)
		if err != nil {
			continue
		}
		if y, ok := yearFrom(re, u.RequestURI()); ok {
			idx[href] = y
		}
	}
	return idx
}

// openAndWait opens pageURL and waits for selector, returning its matches.
func openAndWait(ctx context.Context, src docsource.Source, pageURL, selector string, wait time.Duration) ([]docsource.Element, error) {
	if err := src.Open(ctx, pageURL); err != nil {
		return nil, err
	}
	return src.WaitUntil(ctx, selector, wait)
}

func text(e docsource.Element) string {
	return strings.TrimSpace(e.Text())
}
