// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/proceedings-harvester/internal/adapter"
	"github.com/pdiddy/proceedings-harvester/pkg/types"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the venues that can be harvested",
	Long: `Sources prints the venue registry: the built-in list, or the sources
configured under "sources:" in the config file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		sources, err := configuredSources(cfg)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "%-8s  %-10s  %-50s  %s\n", "Acronym", "Variant", "Title", "URL")
		fmt.Fprintln(os.Stdout, strings.Repeat("-", 120))
		for _, s := range sources {
			title := s.Title
			if len(title) > 50 {
				title = title[:47] + "..."
			}
			fmt.Fprintf(os.Stdout, "%-8s  %-10s  %-50s  %s\n", s.Acronym, s.Variant, title, s.URL)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

// configuredSources returns the configured venues, or the built-in registry.
func configuredSources(cfg types.HarvestConfig) ([]types.ProceedingsSource, error) {
	sources := cfg.Sources
	if len(sources) == 0 {
		sources = adapter.Registry()
	}
	if err := adapter.Validate(sources); err != nil {
		return nil, err
	}
	return sources, nil
}
