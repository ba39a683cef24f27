// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package keywords builds the keyword set that gates downloads: it loads and
// saves keyword files and asks a language model to expand groups with
// synonyms or to extract topics from a sentence of intent.
package keywords

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"text/template"

	"github.com/pdiddy/proceedings-harvester/pkg/types"
)

// Expander is the keyword service.
type Expander interface {
	// Expand returns set with each group grown by related terms. Group
	// order is kept.
	Expand(ctx context.Context, set types.KeywordSet) (types.KeywordSet, error)
	// Extract turns a free-text intent into single-term groups.
	Extract(ctx context.Context, intent string) (types.KeywordSet, error)
}

var expandPromptTmpl = template.Must(template.New("expand").Parse(`Expand the following keyword groups by adding closely related terms while maintaining precision.
For each keyword, include:
- synonyms and variations
- acronyms, kept separate from full names (["Natural Language Processing", "NLP"], never ["Natural Language Processing (NLP)"])
- technical jargon frequently associated with the topic
- popular methods, frameworks, models and algorithms strongly tied to the topic
- words derived from the same root (recommender: recommend, recommendation, recommendations)

Rules:
- include both singular and plural forms of every keyword and expansion
- avoid generic or ambiguous terms that could lead to irrelevant matches
- do not add unrelated subfields
- keep one output group per input group, in the same order, each starting with the original terms

Initial keyword groups:
{{.Groups}}

Respond with a JSON array of arrays of strings and nothing else.
`))

var extractPromptTmpl = template.Must(template.New("extract").Parse(`Identify the main research topics in the following sentence.
Return only the topics as a JSON array of strings.

Example:
Input: "I want to scrape papers about LLM and IR."
Output: ["LLM", "IR"]

Input: "I am interested in AI, deep learning, and robotics."
Output: ["AI", "Deep Learning", "Robotics"]

Input: {{printf "%q" .Intent}}
Output:
`))

// claudeAPIURL is the Claude API endpoint. Package-level var for test substitution.
var claudeAPIURL = "https://api.anthropic.com/v1/messages"

// Claude is an Expander backed by the Claude Messages API.
type Claude struct {
	APIKey    string
	Model     string
	MaxTokens int
	Client    *http.Client
}

// NewClaude builds a client from the AI settings.
func NewClaude(cfg types.AIConfig, client *http.Client) *Claude {
	return &Claude{APIKey: cfg.APIKey, Model: cfg.Model, MaxTokens: cfg.MaxTokens, Client: client}
}

type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	System    string          `json:"system,omitempty"`
	Messages  []claudeMessage `json:"messages"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeResponse struct {
	Content []claudeContent `json:"content"`
}

type claudeContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Expand asks the model for related terms per group. The reply must be a
// list of lists of strings; anything else is types.ErrMalformedResponse.
func (c *Claude) Expand(ctx context.Context, set types.KeywordSet) (types.KeywordSet, error) {
	groups, err := json.Marshal(set)
	if err != nil {
		return nil, fmt.Errorf("marshaling keyword groups: %w", err)
	}
	prompt, err := render(expandPromptTmpl, struct{ Groups string }{string(groups)})
	if err != nil {
		return nil, err
	}
	text, err := c.complete(ctx, "You are a helpful assistant that expands keyword groups.", prompt)
	if err != nil {
		return nil, err
	}
	var out [][]string
	if err := json.Unmarshal([]byte(stripFences(text)), &out); err != nil {
		return nil, fmt.Errorf("%w: expected a list of keyword lists: %v", types.ErrMalformedResponse, err)
	}
	expanded := make(types.KeywordSet, 0, len(out))
	for _, g := range out {
		expanded = append(expanded, types.KeywordGroup(g))
	}
	expanded = expanded.Clean()
	if len(expanded) == 0 {
		return nil, fmt.Errorf("%w: no keyword groups in reply", types.ErrMalformedResponse)
	}
	return expanded, nil
}

// Extract asks the model for the topics named in intent; each topic becomes
// a group of one.
func (c *Claude) Extract(ctx context.Context, intent string) (types.KeywordSet, error) {
	prompt, err := render(extractPromptTmpl, struct{ Intent string }{intent})
	if err != nil {
		return nil, err
	}
	text, err := c.complete(ctx, "You are an expert in extracting research topics from text.", prompt)
	if err != nil {
		return nil, err
	}
	var topics []string
	if err := json.Unmarshal([]byte(stripFences(text)), &topics); err != nil {
		return nil, fmt.Errorf("%w: expected a list of topics: %v", types.ErrMalformedResponse, err)
	}
	set := make(types.KeywordSet, 0, len(topics))
	for _, t := range topics {
		set = append(set, types.KeywordGroup{t})
	}
	return set.Clean(), nil
}

// complete sends one user turn and returns the first text block.
func (c *Claude) complete(ctx context.Context, system, prompt string) (string, error) {
	maxTokens := c.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	bodyBytes, err := json.Marshal(claudeRequest{
		Model:     c.Model,
		MaxTokens: maxTokens,
		System:    system,
		Messages:  []claudeMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, claudeAPIURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: calling Claude API: %v", types.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: Claude API returned %d: %s", types.ErrTransport, resp.StatusCode, string(body))
	}

	var cResp claudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&cResp); err != nil {
		return "", fmt.Errorf("%w: decoding Claude response: %v", types.ErrMalformedResponse, err)
	}
	for _, block := range cResp.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("%w: no text content in Claude API response", types.ErrMalformedResponse)
}

var fence = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")

// stripFences removes a Markdown code fence around a reply.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if m := fence.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}
	return buf.String(), nil
}
