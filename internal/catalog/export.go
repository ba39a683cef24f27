// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

const exportLimit = 1000000

// ExportYAML writes the catalog to <root>/.catalog/export.yaml and returns
// the path. A zero year exports every year.
func (s *Store) ExportYAML(ctx context.Context, year int) (string, error) {
	entries, err := s.query(ctx, QueryOptions{Year: year, MaxResults: exportLimit})
	if err != nil {
		return "", fmt.Errorf("querying for export: %w", err)
	}
	data, err := yaml.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("marshaling YAML: %w", err)
	}
	path := filepath.Join(s.root, Dir, "export.yaml")
	return path, os.WriteFile(path, data, 0o644)
}

// ExportJSON writes the catalog to <root>/.catalog/export.json and returns
// the path.
func (s *Store) ExportJSON(ctx context.Context, year int) (string, error) {
	entries, err := s.query(ctx, QueryOptions{Year: year, MaxResults: exportLimit})
	if err != nil {
		return "", fmt.Errorf("querying for export: %w", err)
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling JSON: %w", err)
	}
	path := filepath.Join(s.root, Dir, "export.json")
	return path, os.WriteFile(path, data, 0o644)
}
