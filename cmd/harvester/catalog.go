// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/proceedings-harvester/internal/catalog"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Index and search the harvested papers",
	Long: `Catalog keeps a SQLite index of the artifact tree for full-text search
over titles. The tree is the source of truth; index rebuilds the catalog
from it incrementally.`,
}

var catalogIndexCmd = &cobra.Command{
	Use:   "index",
	Short: "Bring the catalog in line with the artifact tree",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openCatalog(cmd)
		if err != nil {
			return err
		}
		defer store.Close()
		_, err = store.Index(context.Background(), os.Stdout)
		return err
	},
}

var catalogSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search catalogued titles",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openCatalog(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		year, _ := cmd.Flags().GetInt("year")
		results, err := store.Search(context.Background(), catalog.QueryOptions{
			Query: strings.Join(args, " "),
			Year:  year,
		})
		if errors.Is(err, catalog.ErrEmptyQuery) {
			return fmt.Errorf("query or filter required: provide search text or --year")
		}
		if err != nil {
			return err
		}

		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		}
		if len(results) == 0 {
			fmt.Println("No results found.")
			return nil
		}
		fmt.Fprintf(os.Stdout, "%-4s  %-4s  %-70s  %s\n", "Rank", "Year", "Title", "Size")
		fmt.Fprintln(os.Stdout, strings.Repeat("-", 95))
		for i, r := range results {
			title := r.Title
			if len(title) > 70 {
				title = title[:67] + "..."
			}
			fmt.Fprintf(os.Stdout, "%-4d  %-4d  %-70s  %d KB\n", i+1, r.Year, title, r.Size/1024)
		}
		fmt.Fprintf(os.Stdout, "\n%d results\n", len(results))
		return nil
	},
}

var catalogExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the catalog to YAML or JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openCatalog(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		format, _ := cmd.Flags().GetString("format")
		year, _ := cmd.Flags().GetInt("year")
		var path string
		switch format {
		case "yaml", "":
			path, err = store.ExportYAML(context.Background(), year)
		case "json":
			path, err = store.ExportJSON(context.Background(), year)
		default:
			return fmt.Errorf("unsupported format %q: use yaml or json", format)
		}
		if err != nil {
			return err
		}
		fmt.Println("Exported to", path)
		return nil
	},
}

func init() {
	catalogCmd.PersistentFlags().String("output-dir", "", "artifact root (default from config, else output)")
	catalogCmd.PersistentFlags().Int("max-results", 0, "maximum results (default 20)")
	catalogSearchCmd.Flags().Int("year", 0, "only this year")
	catalogSearchCmd.Flags().Bool("json", false, "print results as JSON")
	catalogExportCmd.Flags().Int("year", 0, "only this year")
	catalogExportCmd.Flags().String("format", "yaml", "yaml or json")

	catalogCmd.AddCommand(catalogIndexCmd, catalogSearchCmd, catalogExportCmd)
	rootCmd.AddCommand(catalogCmd)
}

func openCatalog(cmd *cobra.Command) (*catalog.Store, error) {
	root, _ := cmd.Flags().GetString("output-dir")
	if root == "" {
		cfg, err := loadConfig()
		if err != nil {
			return nil, err
		}
		root = cfg.OutputDir
	}
	maxResults, _ := cmd.Flags().GetInt("max-results")
	return catalog.Open(root, maxResults)
}
