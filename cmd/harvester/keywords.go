// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/proceedings-harvester/internal/keywords"
	"github.com/pdiddy/proceedings-harvester/pkg/types"
)

var keywordsCmd = &cobra.Command{
	Use:   "keywords",
	Short: "Build keyword files with the keyword service",
	Long: `Keywords prepares the keyword groups that gate downloads. extract turns a
sentence into topics; expand grows each group with synonyms, acronyms and
singular/plural forms. Both print YAML, or write it with --output.`,
}

var keywordsExpandCmd = &cobra.Command{
	Use:   "expand FILE",
	Short: "Expand the groups of a keyword file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		set, err := keywords.Load(args[0])
		if err != nil {
			return err
		}
		c, err := claudeFromConfig()
		if err != nil {
			return err
		}
		expanded, err := c.Expand(context.Background(), set)
		if err != nil {
			return err
		}
		return writeKeywords(cmd, keywords.File{Keywords: expanded, Expanded: true})
	},
}

var keywordsExtractCmd = &cobra.Command{
	Use:   "extract TEXT",
	Short: "Turn a sentence of intent into keyword groups",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		intent := strings.Join(args, " ")
		c, err := claudeFromConfig()
		if err != nil {
			return err
		}
		ctx := context.Background()
		set, err := c.Extract(ctx, intent)
		if err != nil {
			return err
		}
		f := keywords.File{Keywords: set, Intent: intent}
		if expand, _ := cmd.Flags().GetBool("expand"); expand {
			expanded, err := c.Expand(ctx, set)
			if err != nil {
				return err
			}
			f.Keywords, f.Expanded = expanded, true
		}
		return writeKeywords(cmd, f)
	},
}

func init() {
	for _, c := range []*cobra.Command{keywordsExpandCmd, keywordsExtractCmd} {
		c.Flags().StringP("output", "o", "", "write the keyword file here instead of stdout")
		keywordsCmd.AddCommand(c)
	}
	keywordsExtractCmd.Flags().Bool("expand", false, "also expand the extracted topics")
	rootCmd.AddCommand(keywordsCmd)
}

func claudeFromConfig() (*keywords.Claude, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.AI.APIKey == "" {
		return nil, errors.New("the keyword service needs an API key: set ai.api_key or .secrets/anthropic-api-key")
	}
	return keywords.NewClaude(cfg.AI, &http.Client{Timeout: cfg.Timeout}), nil
}

func writeKeywords(cmd *cobra.Command, f keywords.File) error {
	out, _ := cmd.Flags().GetString("output")
	if out != "" {
		if err := keywords.Write(out, f); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Wrote %d groups (%d terms) to %s\n", len(f.Keywords), f.Keywords.Terms(), out)
		return nil
	}
	printGroups(f.Keywords)
	return nil
}

func printGroups(set types.KeywordSet) {
	for _, g := range set {
		fmt.Fprintf(os.Stdout, "- [%s]\n", strings.Join(g, ", "))
	}
}
