// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/proceedings-harvester/internal/keywords"
	"github.com/pdiddy/proceedings-harvester/pkg/types"
)

// harvestFlags returns a command carrying the harvest flags parsed from args.
func harvestFlags(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "harvest"}
	addHarvestFlags(cmd.Flags())
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestYearsFromFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    types.YearSet
		wantErr bool
	}{
		{name: "list", args: []string{"--years", "2023,2024"}, want: types.NewYearSet(2023, 2024)},
		{name: "range", args: []string{"--from", "2021", "--to", "2023"}, want: types.NewYearSet(2021, 2022, 2023)},
		{name: "open range ends now", args: []string{"--from", "2025"}, want: types.NewYearSet(2025, 2026)},
		{name: "all years", args: []string{"--all-years"}, want: types.YearRange(firstYear, 2026)},
		{name: "nothing selected", wantErr: true},
		{name: "two modes", args: []string{"--years", "2024", "--all-years"}, wantErr: true},
		{name: "to without from", args: []string{"--to", "2024"}, wantErr: true},
		{name: "two-digit year", args: []string{"--years", "24"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := yearsFromFlags(harvestFlags(t, tt.args...), 2026)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKeywordSetSources(t *testing.T) {
	ctx := context.Background()
	cfg := types.DefaultHarvestConfig()

	set, err := keywordSet(ctx, harvestFlags(t, "--no-keywords"), cfg)
	require.NoError(t, err)
	assert.Nil(t, set, "unfiltered mode")

	set, err = keywordSet(ctx, harvestFlags(t), cfg)
	require.NoError(t, err)
	assert.Equal(t, keywords.DefaultSet, set)

	cfg.Keywords = types.KeywordSet{{"Graph", " "}, {}}
	set, err = keywordSet(ctx, harvestFlags(t), cfg)
	require.NoError(t, err)
	assert.Equal(t, types.KeywordSet{{"Graph"}}, set)

	path := filepath.Join(t.TempDir(), "kw.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- [LLM]\n- [Retrieval, IR]\n"), 0o644))
	set, err = keywordSet(ctx, harvestFlags(t, "--keywords", path), cfg)
	require.NoError(t, err)
	assert.Equal(t, types.KeywordSet{{"LLM"}, {"Retrieval", "IR"}}, set)
}

func TestKeywordSetRejectsConflicts(t *testing.T) {
	ctx := context.Background()
	cfg := types.DefaultHarvestConfig()

	_, err := keywordSet(ctx, harvestFlags(t, "--no-keywords", "--expand"), cfg)
	assert.Error(t, err)

	_, err = keywordSet(ctx, harvestFlags(t, "--keywords", "a.yaml", "--intent", "llm"), cfg)
	assert.Error(t, err)

	cfg.AI.APIKey = ""
	_, err = keywordSet(ctx, harvestFlags(t, "--intent", "llm papers"), cfg)
	assert.ErrorContains(t, err, "API key")
}
