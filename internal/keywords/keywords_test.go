// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package keywords

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/proceedings-harvester/pkg/types"
)

// claudeServer answers every request with reply as the single text block and
// records the last request body.
func claudeServer(t *testing.T, reply string) (*Claude, *claudeRequest) {
	t.Helper()
	var got claudeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(claudeResponse{Content: []claudeContent{{Type: "text", Text: reply}}})
	}))
	t.Cleanup(srv.Close)

	orig := claudeAPIURL
	claudeAPIURL = srv.URL
	t.Cleanup(func() { claudeAPIURL = orig })

	return &Claude{APIKey: "test-key", Model: "test-model", Client: srv.Client()}, &got
}

func TestExpand(t *testing.T) {
	reply := "```json\n[[\"LLM\", \"LLMs\", \"Large Language Model\"], [\"Recommender\", \"Recommenders\", \" \"]]\n```"
	c, req := claudeServer(t, reply)

	got, err := c.Expand(context.Background(), types.KeywordSet{{"LLM"}, {"Recommender"}})
	require.NoError(t, err)
	assert.Equal(t, types.KeywordSet{
		{"LLM", "LLMs", "Large Language Model"},
		{"Recommender", "Recommenders"},
	}, got)

	assert.Equal(t, "test-model", req.Model)
	assert.Equal(t, 4096, req.MaxTokens)
	require.Len(t, req.Messages, 1)
	assert.Contains(t, req.Messages[0].Content, `[["LLM"],["Recommender"]]`)
	assert.Contains(t, req.Messages[0].Content, "singular and plural")
}

func TestExpandMalformed(t *testing.T) {
	for _, reply := range []string{`{"groups": []}`, `not json`, `[]`} {
		c, _ := claudeServer(t, reply)
		_, err := c.Expand(context.Background(), types.KeywordSet{{"LLM"}})
		assert.True(t, errors.Is(err, types.ErrMalformedResponse), "reply %q: %v", reply, err)
	}
}

func TestExtract(t *testing.T) {
	c, req := claudeServer(t, `["LLM", "Information Retrieval"]`)

	got, err := c.Extract(context.Background(), "papers about LLM and IR")
	require.NoError(t, err)
	assert.Equal(t, types.KeywordSet{{"LLM"}, {"Information Retrieval"}}, got)
	assert.Contains(t, req.Messages[0].Content, `"papers about LLM and IR"`)
}

func TestClaudeAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	orig := claudeAPIURL
	claudeAPIURL = srv.URL
	defer func() { claudeAPIURL = orig }()

	c := &Claude{APIKey: "k", Model: "m", Client: srv.Client()}
	_, err := c.Extract(context.Background(), "anything")
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrTransport))
	assert.Contains(t, err.Error(), "503")
}

func TestStripFences(t *testing.T) {
	tests := []struct{ in, want string }{
		{`["a"]`, `["a"]`},
		{"```json\n[\"a\"]\n```", `["a"]`},
		{"```\n[\"a\"]```", `["a"]`},
		{"  [\"a\"]  \n", `["a"]`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stripFences(tt.in))
	}
}

func TestFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keywords.yaml")
	set := types.KeywordSet{{"LLM", "LLMs"}, {"Retrieval"}}

	require.NoError(t, Write(path, File{Keywords: set, Intent: "llm retrieval", Expanded: true}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "intent: llm retrieval")
	assert.Contains(t, string(data), "expanded: true")

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, set, got)
}

func TestLoadBareList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keywords.yaml")
	body := strings.Join([]string{
		"- [LLM, Large Language Model]",
		"- [Recommender System]",
		"- []",
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, types.KeywordSet{{"LLM", "Large Language Model"}, {"Recommender System"}}, got)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("[]\n"), 0o644))
	_, err = Load(empty)
	assert.Error(t, err)
}
