// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package artifact

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/proceedings-harvester/internal/docsource"
	"github.com/pdiddy/proceedings-harvester/pkg/types"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Re:Thinking Attention!! (2021)", "ReThinking Attention 2021"},
		{"  Graph\tNeural\n Networks  ", "Graph Neural Networks"},
		{"BERT: Pre-training, v2.0_final", "BERT Pre-training, v2.0_final"},
		{"???", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}

func TestSanitizeLongTitlesStayDistinct(t *testing.T) {
	prefix := strings.Repeat("Attention ", 20)
	a := Sanitize(prefix + "for Retrieval")
	b := Sanitize(prefix + "for Ranking")

	assert.NotEqual(t, a, b)
	assert.LessOrEqual(t, len(a), maxStemBytes)
	assert.LessOrEqual(t, len(b), maxStemBytes)
	assert.True(t, strings.HasPrefix(a, "Attention Attention"))
	assert.Equal(t, a, Sanitize(prefix+"for Retrieval"), "stems must be stable across runs")

	short := "Dense Retrieval with LLM Rerankers"
	assert.Equal(t, short, Sanitize(short))
}

func newTestStore(t *testing.T, client *http.Client) *Store {
	t.Helper()
	cfg := types.DefaultHarvestConfig()
	cfg.OutputDir = t.TempDir()
	cfg.SettleDelay = 2 * time.Second
	return NewStore(cfg, client, nil)
}

func pdfServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		switch r.URL.Path {
		case "/paper.pdf":
			if c, err := r.Cookie("session"); err != nil || c.Value != "abc" {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			w.Header().Set("Content-Type", "application/pdf")
			w.Write([]byte("%PDF-1.4 direct"))
		case "/galley/7":
			w.Header().Set("Content-Type", "application/pdf")
			w.Header().Set("Content-Disposition", `attachment; filename="7.pdf"`)
			w.Write([]byte("%PDF-1.4 browser"))
		case "/galley/25071":
			w.Header().Set("Content-Type", "application/pdf")
			w.Header().Set("Content-Disposition", `attachment; filename="25071"`)
			w.Write([]byte("%PDF-1.4 bare"))
		case "/login":
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
			w.Write([]byte("<html><body>ok</body></html>"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAcquireDirectUsesSessionCookies(t *testing.T) {
	var hits int32
	srv := pdfServer(t, &hits)
	store := newTestStore(t, srv.Client())
	src := docsource.NewHTTPSource(srv.Client(), types.HTTPConfig{})
	ctx := context.Background()
	require.NoError(t, src.Open(ctx, srv.URL+"/login"))

	res := store.Acquire(ctx, src, types.FileLocator(srv.URL+"/paper.pdf"), "Dense Retrieval: A Study", 2023, nil)
	require.Equal(t, types.Saved, res.Outcome, res.Reason())
	assert.Equal(t, filepath.Join(store.Root(), "2023", "Dense Retrieval A Study.pdf"), res.Path)

	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 direct", string(data))
}

func TestAcquireIsIdempotent(t *testing.T) {
	var hits int32
	srv := pdfServer(t, &hits)
	store := newTestStore(t, srv.Client())
	src := docsource.NewHTTPSource(srv.Client(), types.HTTPConfig{})
	ctx := context.Background()
	require.NoError(t, src.Open(ctx, srv.URL+"/login"))

	loc := types.FileLocator(srv.URL + "/paper.pdf")
	first := store.Acquire(ctx, src, loc, "A Paper", 2022, nil)
	require.Equal(t, types.Saved, first.Outcome, first.Reason())
	before := atomic.LoadInt32(&hits)

	second := store.Acquire(ctx, src, loc, "A Paper", 2022, nil)
	assert.Equal(t, types.SkippedDuplicate, second.Outcome)
	assert.Equal(t, first.Path, second.Path)
	assert.Equal(t, before, atomic.LoadInt32(&hits), "a duplicate must not touch the network")
}

func TestAcquireKeywordMismatchDoesNoIO(t *testing.T) {
	var hits int32
	srv := pdfServer(t, &hits)
	store := newTestStore(t, srv.Client())
	set := types.KeywordSet{{"LLM"}, {"Retrieval"}}

	res := store.Acquire(context.Background(), nil, types.FileLocator(srv.URL+"/paper.pdf"), "Graph Coloring Revisited", 2021, set)
	assert.Equal(t, types.SkippedKeywordMismatch, res.Outcome)
	assert.Zero(t, atomic.LoadInt32(&hits))
	_, err := os.Stat(store.YearDir(2021))
	assert.True(t, os.IsNotExist(err))
}

func TestAcquireBrowserDownload(t *testing.T) {
	var hits int32
	srv := pdfServer(t, &hits)
	store := newTestStore(t, srv.Client())
	src := docsource.NewHTTPSource(srv.Client(), types.HTTPConfig{})

	res := store.Acquire(context.Background(), src, types.FileLocator(srv.URL+"/galley/7"), "Browser Delivered", 2020, nil)
	require.Equal(t, types.Saved, res.Outcome, res.Reason())

	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 browser", string(data))

	entries, err := os.ReadDir(store.YearDir(2020))
	require.NoError(t, err)
	require.Len(t, entries, 1, "scratch directory must be removed")
	assert.Equal(t, "Browser Delivered.pdf", entries[0].Name())
}

func TestAcquireBrowserDownloadNothingArrives(t *testing.T) {
	var hits int32
	srv := pdfServer(t, &hits)
	store := newTestStore(t, srv.Client())
	store.settle = 50 * time.Millisecond
	src := docsource.NewHTTPSource(srv.Client(), types.HTTPConfig{})

	res := store.Acquire(context.Background(), src, types.FileLocator(srv.URL+"/login"), "Never Arrives", 2020, nil)
	assert.Equal(t, types.Failed, res.Outcome)
	assert.ErrorIs(t, res.Err, types.ErrNavigationTimeout)

	entries, err := os.ReadDir(store.YearDir(2020))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAcquireHTTPErrorFails(t *testing.T) {
	var hits int32
	srv := pdfServer(t, &hits)
	store := newTestStore(t, srv.Client())

	res := store.Acquire(context.Background(), nil, types.FileLocator(srv.URL+"/missing.pdf"), "Missing", 2019, nil)
	assert.Equal(t, types.Failed, res.Outcome)
	assert.ErrorIs(t, res.Err, types.ErrTransport)
	_, err := os.Stat(store.Path(2019, "Missing"))
	assert.True(t, os.IsNotExist(err))
}

func TestAcquireRejectsEmptyStem(t *testing.T) {
	store := newTestStore(t, nil)
	res := store.Acquire(context.Background(), nil, types.FileLocator("http://127.0.0.1/x.pdf"), "?!?", 2019, nil)
	assert.Equal(t, types.Failed, res.Outcome)
}

func TestAcquireUnresolvedDetailFails(t *testing.T) {
	store := newTestStore(t, nil)
	res := store.Acquire(context.Background(), nil, types.DetailLocator("http://127.0.0.1/abs"), "Detail Only", 2019, nil)
	assert.Equal(t, types.Failed, res.Outcome)
}

func TestAcquireBrowserDownloadWithoutExtension(t *testing.T) {
	var hits int32
	srv := pdfServer(t, &hits)
	store := newTestStore(t, srv.Client())
	src := docsource.NewHTTPSource(srv.Client(), types.HTTPConfig{})

	res := store.Acquire(context.Background(), src, types.FileLocator(srv.URL+"/galley/25071"), "Bare Galley", 2021, nil)
	require.Equal(t, types.Saved, res.Outcome, res.Reason())

	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 bare", string(data))
}

func TestAcquireLongTitleGatesOnWholeTitle(t *testing.T) {
	var hits int32
	srv := pdfServer(t, &hits)
	store := newTestStore(t, srv.Client())
	src := docsource.NewHTTPSource(srv.Client(), types.HTTPConfig{})
	ctx := context.Background()
	require.NoError(t, src.Open(ctx, srv.URL+"/login"))

	title := "LLM " + strings.Repeat("Attention ", 25) + "for Retrieval"
	set := types.KeywordSet{{"LLM"}, {"Retrieval"}}
	res := store.Acquire(ctx, src, types.FileLocator(srv.URL+"/paper.pdf"), title, 2024, set)
	require.Equal(t, types.Saved, res.Outcome, res.Reason())
	assert.Equal(t, store.Path(2024, title), res.Path)
}

// blockingServer serves /slow.pdf only after release is closed and
// /fast.pdf at once.
func blockingServer(t *testing.T, started chan<- struct{}, release <-chan struct{}) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		if r.URL.Path == "/slow.pdf" {
			started <- struct{}{}
			<-release
			w.Write([]byte("%PDF-1.4 slow"))
			return
		}
		w.Write([]byte("%PDF-1.4 fast"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAcquireTransfersRunOutsideYearLock(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	srv := blockingServer(t, started, release)
	store := newTestStore(t, srv.Client())
	ctx := context.Background()

	slow := make(chan types.AcquisitionResult, 1)
	go func() {
		slow <- store.Acquire(ctx, nil, types.FileLocator(srv.URL+"/slow.pdf"), "Shared Title", 2023, nil)
	}()
	<-started

	// Same year, same stem, while the first transfer is still in flight.
	done := make(chan types.AcquisitionResult, 1)
	go func() {
		done <- store.Acquire(ctx, nil, types.FileLocator(srv.URL+"/fast.pdf"), "Shared Title", 2023, nil)
	}()
	var fast types.AcquisitionResult
	select {
	case fast = <-done:
	case <-time.After(5 * time.Second):
		close(release)
		t.Fatal("second acquisition waited for the first transfer")
	}
	require.Equal(t, types.Saved, fast.Outcome, fast.Reason())

	close(release)
	late := <-slow
	assert.Equal(t, types.SkippedDuplicate, late.Outcome)
	assert.Equal(t, fast.Path, late.Path)

	data, err := os.ReadFile(fast.Path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 fast", string(data))

	entries, err := os.ReadDir(store.YearDir(2023))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files must be removed")
}
