// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package docsource

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/proceedings-harvester/pkg/types"
)

// urlAttrs are resolved against the document URL, the way a browser reports
// the href property rather than the raw attribute.
var urlAttrs = map[string]bool{"href": true, "src": true, "action": true}

// Element is a node of a document snapshot.
type Element struct {
	sel  *goquery.Selection
	base *url.URL
}

// Attr returns the named attribute. href, src and action are returned as
// absolute URLs.
func (e Element) Attr(name string) (string, bool) {
	if e.sel == nil {
		return "", false
	}
	v, ok := e.sel.Attr(name)
	if !ok {
		return "", false
	}
	if urlAttrs[name] && e.base != nil {
		if ref, err := url.Parse(strings.TrimSpace(v)); err == nil {
			return e.base.ResolveReference(ref).String(), true
		}
	}
	return v, true
}

// Text returns the element's text content as found in the page, untrimmed.
func (e Element) Text() string {
	if e.sel == nil {
		return ""
	}
	return e.sel.Text()
}

// Find returns descendants matching selector.
func (e Element) Find(selector string) []Element {
	if e.sel == nil {
		return nil
	}
	return wrap(e.sel.Find(selector), e.base)
}

// FindOne returns the first descendant matching selector.
func (e Element) FindOne(selector string) (Element, bool) {
	found := e.Find(selector)
	if len(found) == 0 {
		return Element{}, false
	}
	return found[0], true
}

// Parent returns the element's parent, if any.
func (e Element) Parent() (Element, bool) {
	if e.sel == nil {
		return Element{}, false
	}
	p := e.sel.Parent()
	if p.Length() == 0 {
		return Element{}, false
	}
	return Element{sel: p, base: e.base}, true
}

// Is reports whether the element matches selector.
func (e Element) Is(selector string) bool {
	return e.sel != nil && e.sel.Is(selector)
}

func wrap(s *goquery.Selection, base *url.URL) []Element {
	out := make([]Element, 0, s.Length())
	s.Each(func(_ int, n *goquery.Selection) {
		out = append(out, Element{sel: n, base: base})
	})
	return out
}

// snapshot is a parsed copy of a document at one point in time.
type snapshot struct {
	doc  *goquery.Document
	base *url.URL
}

func parseSnapshot(r io.Reader, pageURL string) (*snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parsing page URL %q: %w", pageURL, err)
	}
	return &snapshot{doc: doc, base: base}, nil
}

func (s *snapshot) query(selector string) []Element {
	if s == nil {
		return nil
	}
	return wrap(s.doc.Find(selector), s.base)
}

func (s *snapshot) queryOne(selector string) (Element, error) {
	found := s.query(selector)
	if len(found) == 0 {
		return Element{}, fmt.Errorf("%w: %s", types.ErrElementNotFound, selector)
	}
	return found[0], nil
}
