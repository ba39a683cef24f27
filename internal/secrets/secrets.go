// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads portal credentials and API keys from a directory of
// plain-text files. Each file is one secret: the filename is the key and the
// trimmed contents are the value.
package secrets

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/proceedings-harvester/pkg/types"
)

// Key files the harvester reads.
const (
	KeyACMUsername  = "acm-username"
	KeyACMPassword  = "acm-password"
	KeyInstitution  = "institution"
	KeyAnthropicAPI = "anthropic-api-key"
)

// Secrets maps key names to values.
type Secrets map[string]string

// Load reads all files in dir. A missing directory or missing files are not
// errors; Load returns an empty set. Unreadable files are logged and
// skipped.
func Load(dir string, logger *slog.Logger) (Secrets, error) {
	if logger == nil {
		logger = slog.Default()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Secrets{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(Secrets)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logger.Warn("could not read secret", "name", name, "error", err)
			continue
		}

		if value := strings.TrimSpace(string(data)); value != "" {
			secrets[name] = value
		}
	}
	return secrets, nil
}

// Credentials returns the ACM login, or nil when username or password is
// missing.
func (s Secrets) Credentials() *types.Credentials {
	c := &types.Credentials{
		Username:    s[KeyACMUsername],
		Password:    s[KeyACMPassword],
		Institution: s[KeyInstitution],
	}
	if !c.Usable() {
		return nil
	}
	return c
}

// APIKey returns the keyword service key, preferring the secret file over
// the ANTHROPIC_API_KEY environment variable.
func (s Secrets) APIKey() string {
	if k := s[KeyAnthropicAPI]; k != "" {
		return k
	}
	return os.Getenv("ANTHROPIC_API_KEY")
}
