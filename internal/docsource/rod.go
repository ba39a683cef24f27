// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package docsource

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/pdiddy/proceedings-harvester/pkg/types"
)

// RodOptions configures a browser session.
type RodOptions struct {
	Headless bool
	Bin      string // Chrome binary; empty lets the launcher find or fetch one

	// ControlURL attaches to an already running browser's DevTools endpoint.
	ControlURL string
	// ManagedURL attaches to a rod launcher manager, such as the one in the
	// ghcr.io/go-rod/rod container image.
	ManagedURL string

	UserAgent   string
	PageTimeout time.Duration
}

// RodSource is a Source driven by a real Chrome through go-rod, with the
// stealth patches applied so portals that fingerprint automation still serve
// their pages.
type RodSource struct {
	browser     *rod.Browser
	page        *rod.Page
	launcher    *launcher.Launcher
	pageTimeout time.Duration
	downloadDir string

	closeOnce sync.Once
	closeErr  error
}

var _ Interactor = (*RodSource)(nil)

// NewRodSource starts or attaches to a browser and opens one stealth page.
func NewRodSource(ctx context.Context, opts RodOptions) (*RodSource, error) {
	s := &RodSource{pageTimeout: opts.PageTimeout}
	if s.pageTimeout <= 0 {
		s.pageTimeout = 60 * time.Second
	}

	browser := rod.New().Context(ctx)
	switch {
	case opts.ManagedURL != "":
		l, err := launcher.NewManaged(opts.ManagedURL)
		if err != nil {
			return nil, fmt.Errorf("%w: contacting launcher manager: %v", types.ErrTransport, err)
		}
		l = l.Headless(opts.Headless)
		client, err := l.Client()
		if err != nil {
			return nil, fmt.Errorf("%w: starting managed browser: %v", types.ErrTransport, err)
		}
		browser = browser.Client(client)
	case opts.ControlURL != "":
		u, err := launcher.ResolveURL(opts.ControlURL)
		if err != nil {
			return nil, fmt.Errorf("%w: resolving control URL: %v", types.ErrTransport, err)
		}
		browser = browser.ControlURL(u)
	default:
		l := launcher.New().Headless(opts.Headless)
		if opts.Bin != "" {
			l = l.Bin(opts.Bin)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("%w: launching browser: %v", types.ErrTransport, err)
		}
		s.launcher = l
		browser = browser.ControlURL(u)
	}

	if err := browser.Connect(); err != nil {
		s.killLauncher()
		return nil, fmt.Errorf("%w: connecting to browser: %v", types.ErrTransport, err)
	}
	s.browser = browser

	page, err := stealth.Page(browser)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("%w: opening page: %v", types.ErrTransport, err)
	}
	if opts.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: opts.UserAgent}); err != nil {
			s.Close()
			return nil, fmt.Errorf("%w: setting user agent: %v", types.ErrTransport, err)
		}
	}
	s.page = page
	return s, nil
}

// Open navigates and waits for the load event. When a download target is
// set, Chrome aborts navigations that turn into downloads; that is success.
func (s *RodSource) Open(ctx context.Context, rawURL string) error {
	p, cancel := s.bounded(ctx, s.pageTimeout)
	defer cancel()

	if err := p.Navigate(rawURL); err != nil {
		if s.downloadDir != "" && strings.Contains(err.Error(), "net::ERR_ABORTED") {
			return nil
		}
		return classify(fmt.Sprintf("opening %s", rawURL), err)
	}
	if err := p.WaitLoad(); err != nil {
		return classify(fmt.Sprintf("loading %s", rawURL), err)
	}
	return nil
}

// CurrentURL returns the page URL as the browser reports it.
func (s *RodSource) CurrentURL() string {
	info, err := s.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

// Query snapshots the live DOM and returns every match.
func (s *RodSource) Query(ctx context.Context, selector string) ([]Element, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.query(selector), nil
}

// QueryOne snapshots the live DOM and returns the first match.
func (s *RodSource) QueryOne(ctx context.Context, selector string) (Element, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return Element{}, err
	}
	return snap.queryOne(selector)
}

// WaitUntil polls the live page for selector, then snapshots.
func (s *RodSource) WaitUntil(ctx context.Context, selector string, timeout time.Duration) ([]Element, error) {
	p, cancel := s.bounded(ctx, timeout)
	defer cancel()

	if _, err := p.Element(selector); err != nil {
		return nil, classify(fmt.Sprintf("waiting for %s", selector), err)
	}
	return s.Query(ctx, selector)
}

// Cookies returns the cookies visible to the current page.
func (s *RodSource) Cookies(ctx context.Context) (map[string]string, error) {
	cookies, err := s.page.Context(ctx).Cookies(nil)
	if err != nil {
		return nil, classify("reading cookies", err)
	}
	out := make(map[string]string, len(cookies))
	for _, c := range cookies {
		out[c.Name] = c.Value
	}
	return out, nil
}

// SetDownloadTarget points Chrome's download manager at dir.
func (s *RodSource) SetDownloadTarget(ctx context.Context, dir string) error {
	req := proto.BrowserSetDownloadBehavior{
		Behavior:      proto.BrowserSetDownloadBehaviorBehaviorDefault,
		EventsEnabled: true,
	}
	if dir != "" {
		req.Behavior = proto.BrowserSetDownloadBehaviorBehaviorAllow
		req.DownloadPath = dir
	}
	if err := req.Call(s.browser.Context(ctx)); err != nil {
		return classify("setting download behaviour", err)
	}
	s.downloadDir = dir
	return nil
}

// Click clicks the first element matching selector.
func (s *RodSource) Click(ctx context.Context, selector string) error {
	p, cancel := s.bounded(ctx, s.pageTimeout)
	defer cancel()

	el, err := p.Element(selector)
	if err != nil {
		return classify(fmt.Sprintf("finding %s", selector), err)
	}
	// A script click works on elements hidden behind overlays and banners.
	if _, err := el.Eval(`() => this.click()`); err != nil {
		return classify(fmt.Sprintf("clicking %s", selector), err)
	}
	return nil
}

// ClickAll clicks every element currently matching selector.
func (s *RodSource) ClickAll(ctx context.Context, selector string) (int, error) {
	p, cancel := s.bounded(ctx, s.pageTimeout)
	defer cancel()

	els, err := p.Elements(selector)
	if err != nil {
		return 0, classify(fmt.Sprintf("finding %s", selector), err)
	}
	clicked := 0
	for _, el := range els {
		if _, err := el.Eval(`() => this.click()`); err != nil {
			return clicked, classify(fmt.Sprintf("clicking %s", selector), err)
		}
		clicked++
	}
	return clicked, nil
}

// ClickText clicks the first element matching selector whose text contains
// text.
func (s *RodSource) ClickText(ctx context.Context, selector, text string) error {
	p, cancel := s.bounded(ctx, s.pageTimeout)
	defer cancel()

	el, err := p.ElementR(selector, regexp.QuoteMeta(text))
	if err != nil {
		return classify(fmt.Sprintf("finding %s with text %q", selector, text), err)
	}
	if _, err := el.Eval(`() => this.click()`); err != nil {
		return classify(fmt.Sprintf("clicking %s", selector), err)
	}
	return nil
}

// Type replaces the value of the matched input with text and optionally
// presses Enter.
func (s *RodSource) Type(ctx context.Context, selector, text string, submit bool) error {
	p, cancel := s.bounded(ctx, s.pageTimeout)
	defer cancel()

	el, err := p.Element(selector)
	if err != nil {
		return classify(fmt.Sprintf("finding %s", selector), err)
	}
	if err := el.SelectAllText(); err != nil {
		return classify(fmt.Sprintf("selecting %s", selector), err)
	}
	if err := el.Input(text); err != nil {
		return classify(fmt.Sprintf("typing into %s", selector), err)
	}
	if submit {
		if err := el.Type(input.Enter); err != nil {
			return classify(fmt.Sprintf("submitting %s", selector), err)
		}
	}
	return nil
}

// Close closes the browser and any process this session launched.
func (s *RodSource) Close() error {
	s.closeOnce.Do(func() {
		if s.browser != nil {
			s.closeErr = s.browser.Close()
		}
		s.killLauncher()
	})
	return s.closeErr
}

func (s *RodSource) killLauncher() {
	if s.launcher != nil {
		s.launcher.Kill()
		s.launcher.Cleanup()
	}
}

func (s *RodSource) bounded(ctx context.Context, timeout time.Duration) (*rod.Page, func()) {
	p := s.page.Context(ctx)
	if timeout > 0 {
		p = p.Timeout(timeout)
		return p, func() { p.CancelTimeout() }
	}
	return p, func() {}
}

func (s *RodSource) snapshot(ctx context.Context) (*snapshot, error) {
	p := s.page.Context(ctx)
	html, err := p.HTML()
	if err != nil {
		return nil, classify("reading DOM", err)
	}
	info, err := p.Info()
	if err != nil {
		return nil, classify("reading page info", err)
	}
	return parseSnapshot(strings.NewReader(html), info.URL)
}

// classify maps rod failures onto the harvest error kinds.
func classify(op string, err error) error {
	var notFound *rod.ElementNotFoundError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %s: %v", types.ErrNavigationTimeout, op, err)
	case errors.As(err, &notFound):
		return fmt.Errorf("%w: %s", types.ErrElementNotFound, op)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return fmt.Errorf("%w: %s: %v", types.ErrTransport, op, err)
	}
}
