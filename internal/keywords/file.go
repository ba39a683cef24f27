// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package keywords

import (
	"errors"
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/proceedings-harvester/pkg/types"
)

// DefaultSet is the keyword set used when nothing else is configured.
var DefaultSet = types.KeywordSet{
	{"LLM", "Large Language Model", "Language Model"},
	{"Recommender System", "Recommend"},
	{"Information Retrieval"},
}

// File is a saved keyword set.
type File struct {
	Keywords types.KeywordSet `yaml:"keywords"`
	// Intent is the sentence the groups were extracted from, if any.
	Intent   string    `yaml:"intent,omitempty"`
	Expanded bool      `yaml:"expanded"`
	Saved    time.Time `yaml:"saved,omitempty"`
}

// Load reads a keyword file. Both the File layout and a bare list of lists
// are accepted.
func Load(path string) (types.KeywordSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading keyword file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err == nil && len(f.Keywords) > 0 {
		return f.Keywords.Clean(), nil
	}
	var bare types.KeywordSet
	if err := yaml.Unmarshal(data, &bare); err != nil {
		return nil, fmt.Errorf("parsing keyword file %s: %w", path, err)
	}
	set := bare.Clean()
	if len(set) == 0 {
		return nil, errors.New("keyword file has no groups")
	}
	return set, nil
}

// Write saves f to path.
func Write(path string, f File) error {
	if f.Saved.IsZero() {
		f.Saved = time.Now()
	}
	data, err := yaml.Marshal(&f)
	if err != nil {
		return fmt.Errorf("marshaling keyword file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
