// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package docsource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdiddy/proceedings-harvester/pkg/types"
)

// HTTPSource is a Source backed by a plain HTTP client with a cookie jar. It
// cannot run scripts, so WaitUntil succeeds only if the selector already
// matches the served HTML. Responses that carry a PDF are written to the
// download target, mirroring what a browser does with an attachment.
type HTTPSource struct {
	client    *http.Client
	userAgent string

	page        *snapshot
	currentURL  string
	downloadDir string
	closed      bool
}

// NewHTTPSource creates a session. A nil client gets a fresh one with the
// given timeout; the client's Jar is replaced when it has none.
func NewHTTPSource(client *http.Client, cfg types.HTTPConfig) *HTTPSource {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if client.Jar == nil {
		jar, _ := cookiejar.New(nil)
		client.Jar = jar
	}
	return &HTTPSource{client: client, userAgent: cfg.UserAgent}
}

// Open fetches rawURL and parses the response as the current document.
func (s *HTTPSource) Open(ctx context.Context, rawURL string) error {
	if s.closed {
		return errors.New("document source is closed")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return fmt.Errorf("%w: opening %s: %v", types.ErrNavigationTimeout, rawURL, err)
		}
		return fmt.Errorf("%w: opening %s: %v", types.ErrTransport, rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: HTTP %d from %s", types.ErrTransport, resp.StatusCode, rawURL)
	}

	finalURL := resp.Request.URL.String()
	if isPDF(resp) {
		s.currentURL = finalURL
		s.page = nil
		if s.downloadDir == "" {
			io.Copy(io.Discard, resp.Body)
			return nil
		}
		return s.saveDownload(resp)
	}

	page, err := parseSnapshot(resp.Body, finalURL)
	if err != nil {
		return err
	}
	s.page = page
	s.currentURL = finalURL
	return nil
}

// CurrentURL returns the final URL of the last opened document.
func (s *HTTPSource) CurrentURL() string { return s.currentURL }

// Query returns every match in the current document.
func (s *HTTPSource) Query(_ context.Context, selector string) ([]Element, error) {
	if s.page == nil {
		return nil, fmt.Errorf("%w: no document open", types.ErrElementNotFound)
	}
	return s.page.query(selector), nil
}

// QueryOne returns the first match in the current document.
func (s *HTTPSource) QueryOne(_ context.Context, selector string) (Element, error) {
	if s.page == nil {
		return Element{}, fmt.Errorf("%w: no document open", types.ErrElementNotFound)
	}
	return s.page.queryOne(selector)
}

// WaitUntil checks the served document once; static pages never change.
func (s *HTTPSource) WaitUntil(ctx context.Context, selector string, _ time.Duration) ([]Element, error) {
	found, err := s.Query(ctx, selector)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("%w: waiting for %s on %s", types.ErrNavigationTimeout, selector, s.currentURL)
	}
	return found, nil
}

// Cookies returns the jar's cookies for the current URL.
func (s *HTTPSource) Cookies(_ context.Context) (map[string]string, error) {
	out := make(map[string]string)
	if s.currentURL == "" {
		return out, nil
	}
	u, err := url.Parse(s.currentURL)
	if err != nil {
		return out, nil
	}
	for _, c := range s.client.Jar.Cookies(u) {
		out[c.Name] = c.Value
	}
	return out, nil
}

// SetDownloadTarget sets where PDF responses are written.
func (s *HTTPSource) SetDownloadTarget(_ context.Context, dir string) error {
	s.downloadDir = dir
	return nil
}

// Close drops idle connections. The session cannot be used afterwards.
func (s *HTTPSource) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.client.CloseIdleConnections()
	return nil
}

func (s *HTTPSource) saveDownload(resp *http.Response) error {
	name := downloadName(resp)
	f, err := os.Create(filepath.Join(s.downloadDir, name))
	if err != nil {
		return fmt.Errorf("%w: creating download: %v", types.ErrFilesystem, err)
	}
	_, copyErr := io.Copy(f, resp.Body)
	closeErr := f.Close()
	if copyErr != nil {
		return fmt.Errorf("%w: writing download: %v", types.ErrTransport, copyErr)
	}
	if closeErr != nil {
		return fmt.Errorf("%w: closing download: %v", types.ErrFilesystem, closeErr)
	}
	return nil
}

func isPDF(resp *http.Response) bool {
	ct := resp.Header.Get("Content-Type")
	if mt, _, err := mime.ParseMediaType(ct); err == nil && mt == "application/pdf" {
		return true
	}
	if cd := resp.Header.Get("Content-Disposition"); strings.Contains(strings.ToLower(cd), ".pdf") {
		return true
	}
	return false
}

// downloadName picks the file name a browser would: Content-Disposition
// first, then the last path segment. Like a browser it adds the extension
// the PDF media type implies when the name has none.
func downloadName(resp *http.Response) string {
	name := ""
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		if fn := filepath.Base(params["filename"]); fn != "." && fn != "/" {
			name = fn
		}
	}
	if name == "" {
		name = path.Base(resp.Request.URL.Path)
	}
	if name == "." || name == "/" || name == "" {
		name = "download"
	}
	if !strings.HasSuffix(strings.ToLower(name), ".pdf") {
		name += ".pdf"
	}
	return name
}

type timeoutError interface{ Timeout() bool }

func isTimeout(err error) bool {
	var te timeoutError
	return errors.As(err, &te) && te.Timeout()
}
