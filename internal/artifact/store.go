// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package artifact writes harvested PDFs into a year-partitioned tree,
// <root>/<year>/<sanitized title>.pdf. The presence of that file is the only
// record that a paper was harvested, so a rerun skips it without touching
// the network.
package artifact

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pdiddy/proceedings-harvester/internal/docsource"
	"github.com/pdiddy/proceedings-harvester/internal/gate"
	"github.com/pdiddy/proceedings-harvester/pkg/types"
)

// maxStemBytes keeps file names under common filesystem limits.
const maxStemBytes = 200

// hashLen is the number of hex digits that tag a truncated stem.
const hashLen = 8

var (
	unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_.,]`)
	spaces      = regexp.MustCompile(`\s+`)

	// pollInterval is how often the scratch directory is checked while a
	// browser download settles.
	pollInterval = 500 * time.Millisecond
)

// CleanTitle drops characters outside letters, digits, whitespace, '-',
// '_', '.' and ',' and collapses whitespace runs to one space.
func CleanTitle(title string) string {
	s := unsafeChars.ReplaceAllString(title, "")
	return strings.TrimSpace(spaces.ReplaceAllString(s, " "))
}

// Sanitize turns a raw title into a file stem. A cleaned title longer than
// maxStemBytes is cut and tagged with a hash of the whole cleaned title, so
// titles sharing a long prefix keep distinct stems.
func Sanitize(title string) string {
	s := CleanTitle(title)
	if len(s) <= maxStemBytes {
		return s
	}
	sum := sha256.Sum256([]byte(s))
	tag := hex.EncodeToString(sum[:])[:hashLen]
	cut := strings.TrimSpace(s[:maxStemBytes-hashLen-1])
	return cut + " " + tag
}

// Store acquires artifacts. It is safe for concurrent use by several
// sources; placing files into one year directory is serialized.
type Store struct {
	root      string
	client    *http.Client
	userAgent string
	settle    time.Duration
	minGroups int
	logger    *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore creates a store rooted at cfg.OutputDir. A nil client gets one
// with cfg.Timeout; a nil logger uses slog.Default().
func NewStore(cfg types.HarvestConfig, client *http.Client, logger *slog.Logger) *Store {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		root:      cfg.OutputDir,
		client:    client,
		userAgent: cfg.UserAgent,
		settle:    cfg.SettleDelay,
		minGroups: cfg.MinGroups,
		logger:    logger,
		locks:     make(map[string]*sync.Mutex),
	}
}

// Root returns the output root.
func (s *Store) Root() string { return s.root }

// YearDir returns the directory holding a year's artifacts.
func (s *Store) YearDir(year int) string {
	return filepath.Join(s.root, strconv.Itoa(year))
}

// Path returns where the artifact for title would live.
func (s *Store) Path(year int, title string) string {
	return filepath.Join(s.YearDir(year), Sanitize(title)+".pdf")
}

// Acquire stores one paper. The keyword check and the existence check both
// happen before any network access. A non-nil set filters by title.
//
// The transfer runs outside the year lock into a temporary file or scratch
// directory; only the final existence check and rename are serialized, so
// sources sharing a year download in parallel.
func (s *Store) Acquire(ctx context.Context, src docsource.Source, loc types.Locator, title string, year int, set types.KeywordSet) types.AcquisitionResult {
	stem := Sanitize(title)
	if strings.Trim(stem, ". ") == "" {
		return types.FailedResult(title, fmt.Errorf("title %q has no usable characters", title))
	}
	if set != nil && !gate.Admit(CleanTitle(title), set, s.minGroups) {
		return types.AcquisitionResult{Outcome: types.SkippedKeywordMismatch, Title: stem}
	}

	yearDir := s.YearDir(year)
	dest := filepath.Join(yearDir, stem+".pdf")
	duplicate := types.AcquisitionResult{Outcome: types.SkippedDuplicate, Title: stem, Path: dest}

	if _, err := os.Stat(dest); err == nil {
		s.logger.Debug("already harvested", "path", dest)
		return duplicate
	}
	if err := os.MkdirAll(yearDir, 0o755); err != nil {
		return types.FailedResult(stem, fmt.Errorf("%w: creating %s: %v", types.ErrFilesystem, yearDir, err))
	}

	var (
		placed bool
		err    error
	)
	switch loc.Kind {
	case types.LocatorDirect:
		placed, err = s.stream(ctx, src, loc.URL, dest)
	case types.LocatorBrowser:
		placed, err = s.browserDownload(ctx, src, loc.URL, dest)
	default:
		err = fmt.Errorf("locator %s for %q was not resolved to a file", loc.Kind, title)
	}
	if err != nil {
		return types.FailedResult(stem, err)
	}
	if !placed {
		s.logger.Debug("saved by another source meanwhile", "path", dest)
		return duplicate
	}

	s.logger.Debug("saved", "path", dest, "url", loc.URL)
	return types.AcquisitionResult{Outcome: types.Saved, Title: stem, Path: dest}
}

// install moves a finished download to dest under the year lock. It reports
// false, leaving tmp in place, when dest appeared during the transfer.
func (s *Store) install(tmp, dest string) (bool, error) {
	lock := s.lockFor(filepath.Dir(dest))
	lock.Lock()
	defer lock.Unlock()

	if _, err := os.Stat(dest); err == nil {
		return false, nil
	}
	if err := os.Rename(tmp, dest); err != nil {
		return false, fmt.Errorf("%w: moving download into place: %v", types.ErrFilesystem, err)
	}
	return true, nil
}

func (s *Store) lockFor(dir string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[dir]
	if !ok {
		l = &sync.Mutex{}
		s.locks[dir] = l
	}
	return l
}

// stream downloads url to dest through a temporary file, carrying the
// session's cookies so authenticated portals serve the file.
func (s *Store) stream(ctx context.Context, src docsource.Source, url, dest string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("creating request: %w", err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	req.Header.Set("Accept", "application/pdf")
	if src != nil {
		cookies, err := src.Cookies(ctx)
		if err != nil {
			return false, err
		}
		if h := cookieHeader(cookies); h != "" {
			req.Header.Set("Cookie", h)
		}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return false, err
		}
		return false, fmt.Errorf("%w: HTTP request: %v", types.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, fmt.Errorf("%w: HTTP %d from %s", types.ErrTransport, resp.StatusCode, url)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(dest), ".acquire-*.tmp")
	if err != nil {
		return false, fmt.Errorf("%w: creating temp file: %v", types.ErrFilesystem, err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	_, copyErr := io.Copy(tmpFile, resp.Body)
	closeErr := tmpFile.Close()
	if copyErr != nil {
		return false, fmt.Errorf("%w: writing download: %v", types.ErrTransport, copyErr)
	}
	if closeErr != nil {
		return false, fmt.Errorf("%w: closing temp file: %v", types.ErrFilesystem, closeErr)
	}
	return s.install(tmpPath, dest)
}

// browserDownload lets the source fetch url natively into a scratch
// directory, waits for the file to settle and moves it into place.
func (s *Store) browserDownload(ctx context.Context, src docsource.Source, url, dest string) (bool, error) {
	if src == nil {
		return false, errors.New("browser locator needs a document source")
	}
	scratch, err := os.MkdirTemp(filepath.Dir(dest), ".download-*")
	if err != nil {
		return false, fmt.Errorf("%w: creating scratch dir: %v", types.ErrFilesystem, err)
	}
	defer os.RemoveAll(scratch)

	if err := src.SetDownloadTarget(ctx, scratch); err != nil {
		return false, err
	}
	defer src.SetDownloadTarget(context.WithoutCancel(ctx), "")

	if err := src.Open(ctx, url); err != nil {
		return false, err
	}

	found, err := s.awaitPDF(ctx, scratch)
	if err != nil {
		return false, err
	}
	return s.install(found, dest)
}

// awaitPDF polls dir until a finished .pdf shows up or the settle interval
// ends.
func (s *Store) awaitPDF(ctx context.Context, dir string) (string, error) {
	deadline := time.NewTimer(s.settle)
	defer deadline.Stop()
	tick := time.NewTicker(pollInterval)
	defer tick.Stop()

	for {
		if p := firstPDF(dir); p != "" {
			return p, nil
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-deadline.C:
			if p := firstPDF(dir); p != "" {
				return p, nil
			}
			return "", fmt.Errorf("%w: no PDF arrived within %s", types.ErrNavigationTimeout, s.settle)
		case <-tick.C:
		}
	}
}

func firstPDF(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			return filepath.Join(dir, e.Name())
		}
	}
	return ""
}

func cookieHeader(cookies map[string]string) string {
	names := make([]string, 0, len(cookies))
	for name := range cookies {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+"="+cookies[name])
	}
	return strings.Join(parts, "; ")
}
