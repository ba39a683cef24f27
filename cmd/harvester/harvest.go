// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pdiddy/proceedings-harvester/internal/adapter"
	"github.com/pdiddy/proceedings-harvester/internal/artifact"
	"github.com/pdiddy/proceedings-harvester/internal/harvest"
	"github.com/pdiddy/proceedings-harvester/internal/keywords"
	"github.com/pdiddy/proceedings-harvester/pkg/types"
)

// firstYear is the earliest year --all-years asks for.
const firstYear = 1950

var harvestCmd = &cobra.Command{
	Use:   "harvest [ACRONYM...]",
	Short: "Download relevant papers from the selected venues",
	Long: `Harvest resolves each venue's year index, walks the listings of the
selected years and downloads every paper whose title matches at least
min_groups of the keyword groups. With no acronyms every venue is harvested.

Keywords come from --keywords FILE, from --intent TEXT (topics extracted by
the keyword service), from the config file, or from the built-in set.
--expand grows the groups with synonyms before harvesting; --no-keywords
downloads everything.`,
	Example: `  harvester harvest ACL EMNLP --years 2023,2024 --keywords keywords.yaml
  harvester harvest --from 2020 --to 2024 --intent "papers about LLM and IR" --expand
  harvester harvest ICML --all-years --no-keywords --browser http`,
	RunE: runHarvest,
}

func init() {
	f := harvestCmd.Flags()
	addHarvestFlags(f)
	for key, flag := range map[string]string{
		"min_groups":     "min-groups",
		"output_dir":     "output-dir",
		"concurrency":    "concurrency",
		"run_timeout":    "timeout",
		"browser.driver": "browser",
	} {
		_ = viper.BindPFlag(key, f.Lookup(flag))
	}

	rootCmd.AddCommand(harvestCmd)
}

// addHarvestFlags defines the harvest flags. Defaults mirror
// types.DefaultHarvestConfig so an unset flag never masks the config file.
func addHarvestFlags(f *pflag.FlagSet) {
	d := types.DefaultHarvestConfig()
	f.IntSlice("years", nil, "years to harvest (e.g. 2023,2024)")
	f.Int("from", 0, "first year of a range")
	f.Int("to", 0, "last year of a range (default: current year)")
	f.Bool("all-years", false, fmt.Sprintf("harvest every year from %d to now", firstYear))
	f.String("keywords", "", "keyword file (YAML list of groups)")
	f.Bool("no-keywords", false, "download every paper, no keyword filtering")
	f.String("intent", "", "describe what you are looking for; topics become keyword groups")
	f.Bool("expand", false, "expand keyword groups with related terms before harvesting")
	f.Int("min-groups", d.MinGroups, "keyword groups a title must match")
	f.String("output-dir", d.OutputDir, "artifact root")
	f.Int("concurrency", d.Concurrency, "venues harvested at once")
	f.Duration("timeout", d.RunTimeout, "cancel the run after this long (0 means never)")
	f.String("browser", d.Browser.Driver, "document source: rod or http")
	f.String("report", "", "write the run report as YAML to this file")
	f.String("schedule", "", "re-run on this cron expression until interrupted")
}

func runHarvest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sources, err := configuredSources(cfg)
	if err != nil {
		return err
	}
	sources, err = adapter.Select(sources, args)
	if err != nil {
		return err
	}
	years, err := yearsFromFlags(cmd, time.Now().Year())
	if err != nil {
		return err
	}
	schedule, _ := cmd.Flags().GetString("schedule")
	if schedule != "" {
		if err := harvest.ValidateSchedule(schedule); err != nil {
			return err
		}
	}
	reportPath, _ := cmd.Flags().GetString("report")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	set, err := keywordSet(ctx, cmd, cfg)
	if err != nil {
		return err
	}

	sessions, shutdown, err := harvest.Sessions(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Warn("stopping browser", "error", err)
		}
	}()

	store := artifact.NewStore(cfg, &http.Client{Timeout: cfg.Timeout}, logger)
	orch := harvest.New(cfg, sessions, store, logger, harvest.WithOutput(os.Stdout))
	plan := harvest.Plan{Years: years, Keywords: set, Credentials: loadedSecrets.Credentials()}

	run := func(ctx context.Context) *harvest.Report {
		if cfg.RunTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cfg.RunTimeout)
			defer cancel()
		}
		rep := orch.Run(ctx, sources, plan)
		if reportPath != "" {
			if err := rep.WriteYAML(reportPath); err != nil {
				logger.Error("writing report", "error", err)
			}
		}
		return rep
	}

	if schedule != "" {
		return harvest.Schedule(ctx, schedule, logger, func(ctx context.Context) { run(ctx) })
	}
	if rep := run(ctx); rep.AllFailed() {
		return fmt.Errorf("every selected source failed")
	}
	return nil
}

// yearsFromFlags builds the year selection. Exactly one of --years,
// --from/--to and --all-years must be given.
func yearsFromFlags(cmd *cobra.Command, now int) (types.YearSet, error) {
	list, _ := cmd.Flags().GetIntSlice("years")
	from, _ := cmd.Flags().GetInt("from")
	to, _ := cmd.Flags().GetInt("to")
	all, _ := cmd.Flags().GetBool("all-years")

	modes := 0
	if len(list) > 0 {
		modes++
	}
	if from != 0 || to != 0 {
		modes++
	}
	if all {
		modes++
	}
	switch {
	case modes == 0:
		return nil, errors.New("select years with --years, --from/--to or --all-years")
	case modes > 1:
		return nil, errors.New("--years, --from/--to and --all-years are mutually exclusive")
	}

	switch {
	case all:
		return types.YearRange(firstYear, now), nil
	case len(list) > 0:
		for _, y := range list {
			if y < 1000 || y > 9999 {
				return nil, fmt.Errorf("year %d is not a four-digit year", y)
			}
		}
		return types.NewYearSet(list...), nil
	default:
		if from == 0 {
			return nil, errors.New("--to needs --from")
		}
		if to == 0 {
			to = now
		}
		return types.YearRange(from, to), nil
	}
}

// keywordSet resolves the gate's keyword set. A keyword service failure
// falls back to the unexpanded set.
func keywordSet(ctx context.Context, cmd *cobra.Command, cfg types.HarvestConfig) (types.KeywordSet, error) {
	none, _ := cmd.Flags().GetBool("no-keywords")
	file, _ := cmd.Flags().GetString("keywords")
	intent, _ := cmd.Flags().GetString("intent")
	expand, _ := cmd.Flags().GetBool("expand")

	if none {
		if file != "" || intent != "" || expand {
			return nil, errors.New("--no-keywords cannot be combined with --keywords, --intent or --expand")
		}
		logger.Info("keyword filtering disabled")
		return nil, nil
	}
	if file != "" && intent != "" {
		return nil, errors.New("--keywords and --intent are mutually exclusive")
	}

	var expander keywords.Expander
	if intent != "" || expand {
		if cfg.AI.APIKey == "" {
			return nil, errors.New("the keyword service needs an API key: set ai.api_key or .secrets/anthropic-api-key")
		}
		expander = keywords.NewClaude(cfg.AI, &http.Client{Timeout: cfg.Timeout})
	}

	var set types.KeywordSet
	switch {
	case file != "":
		s, err := keywords.Load(file)
		if err != nil {
			return nil, err
		}
		set = s
	case intent != "":
		s, err := expander.Extract(ctx, intent)
		if err != nil {
			return nil, fmt.Errorf("extracting topics: %w", err)
		}
		if len(s) == 0 {
			return nil, fmt.Errorf("no topics found in %q", intent)
		}
		logger.Info("topics extracted", "groups", len(s))
		set = s
	case len(cfg.Keywords) > 0:
		set = cfg.Keywords.Clean()
	default:
		set = keywords.DefaultSet
	}

	if expand {
		expanded, err := expander.Expand(ctx, set)
		if err != nil {
			logger.Warn("keyword expansion failed, using the initial groups", "error", err)
		} else {
			logger.Info("keywords expanded", "terms_before", set.Terms(), "terms_after", expanded.Terms())
			set = expanded
		}
	}
	for i, g := range set {
		logger.Debug("keyword group", "index", i, "terms", []string(g))
	}
	return set, nil
}
