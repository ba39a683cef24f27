// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the harvester CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/proceedings-harvester/internal/secrets"
	"github.com/pdiddy/proceedings-harvester/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials and API keys loaded from .secrets/ at startup.
var loadedSecrets secrets.Secrets

// logger is configured by the root command before any subcommand runs.
var logger = slog.Default()

// rootCmd is the base command for the harvester CLI.
var rootCmd = &cobra.Command{
	Use:   "harvester",
	Short: "Harvest research-paper PDFs from conference proceedings",
	Long: `harvester walks the proceedings of academic venues year by year, keeps the
papers whose titles match your keyword groups and stores them as
<output>/<year>/<title>.pdf. Files already on disk are never fetched again,
so an interrupted harvest resumes where it stopped.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)

		dir, _ := cmd.Flags().GetString("secrets-dir")
		s, err := secrets.Load(dir, logger)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logger.Debug("loaded secrets", "keys", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./harvester.yaml or ~/.config/harvester/config.yaml)")
	rootCmd.PersistentFlags().String("secrets-dir", ".secrets/", "directory of credential and API key files")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log debug detail")
}

func initConfig() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("harvester")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "harvester"))
		}
	}

	viper.SetEnvPrefix("HARVESTER")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig overlays the config file, environment and bound flags on the
// defaults.
func loadConfig() (types.HarvestConfig, error) {
	cfg := types.DefaultHarvestConfig()
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("reading configuration: %w", err)
	}
	if cfg.AI.APIKey == "" {
		cfg.AI.APIKey = loadedSecrets.APIKey()
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
