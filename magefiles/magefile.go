//go:build mage

// Package main contains Mage build targets for harvester developer tooling.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binDir    = "bin"
	binName   = "harvester"
	cmdPkg    = "./cmd/harvester"
	outputDir = "output"
	// fts5 enables the full-text index the catalog is built on.
	buildTags = "sqlite_fts5"
)

// projectDirs lists the working directories a harvest expects.
var projectDirs = []string{
	outputDir,
	".secrets",
}

// Init creates the working directories and an empty keyword file.
func Init() error {
	for _, dir := range projectDirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
		fmt.Println("  ", dir)
	}
	if _, err := os.Stat("keywords.yaml"); os.IsNotExist(err) {
		sample := "keywords:\n  - [LLM, Large Language Model, Language Model]\n  - [Recommender System, Recommend]\n"
		if err := os.WriteFile("keywords.yaml", []byte(sample), 0o644); err != nil {
			return fmt.Errorf("writing keywords.yaml: %w", err)
		}
		fmt.Println("   keywords.yaml")
	}
	fmt.Println("Project directories initialized.")
	return nil
}

// Build compiles the CLI binary into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	out := filepath.Join(binDir, binName)
	version, _ := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if version == "" {
		version = "dev"
	}
	if err := sh.RunV("go", "build", "-tags", buildTags,
		"-ldflags", "-X main.version="+version, "-o", out, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s\n", out)
	return nil
}

// Test runs the unit tests.
func Test() error {
	return sh.RunV("go", "test", "-tags", buildTags, "./...")
}

// Vet runs go vet.
func Vet() error {
	return sh.RunV("go", "vet", "-tags", buildTags, "./...")
}

// Harvest builds the CLI and harvests years (e.g. "2023,2024") from every
// venue with the keyword file created by Init.
func Harvest(years string) error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binDir, binName), "harvest",
		"--years", years, "--keywords", "keywords.yaml", "--report", filepath.Join(outputDir, "report.yaml"))
}

// Stats prints how many papers the output tree holds per year.
func Stats() error {
	counts, sizes, err := countArtifacts(outputDir)
	if err != nil {
		return err
	}
	if len(counts) == 0 {
		fmt.Println("No papers harvested yet.")
		return nil
	}
	years := make([]int, 0, len(counts))
	for y := range counts {
		years = append(years, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))

	var total int
	var bytes int64
	for _, y := range years {
		fmt.Printf("%d  %5d papers  %8.1f MB\n", y, counts[y], float64(sizes[y])/(1<<20))
		total += counts[y]
		bytes += sizes[y]
	}
	fmt.Printf("\nTotal: %d papers, %.1f MB\n", total, float64(bytes)/(1<<20))
	return nil
}

// countArtifacts walks root/<year>/*.pdf.
func countArtifacts(root string) (map[int]int, map[int]int64, error) {
	counts := map[int]int{}
	sizes := map[int]int64{}
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return counts, sizes, nil
		}
		return nil, nil, fmt.Errorf("reading %s: %w", root, err)
	}
	for _, e := range entries {
		year, err := strconv.Atoi(e.Name())
		if !e.IsDir() || err != nil {
			continue
		}
		files, err := os.ReadDir(filepath.Join(root, e.Name()))
		if err != nil {
			return nil, nil, fmt.Errorf("reading %s: %w", e.Name(), err)
		}
		for _, f := range files {
			if f.IsDir() || strings.HasPrefix(f.Name(), ".") || !strings.EqualFold(filepath.Ext(f.Name()), ".pdf") {
				continue
			}
			info, err := f.Info()
			if err != nil {
				continue
			}
			counts[year]++
			sizes[year] += info.Size()
		}
	}
	return counts, sizes, nil
}
