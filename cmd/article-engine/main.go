// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the article-engine CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/article-engine/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets secrets.Set

// rootCmd is the base command for the article-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "article-engine",
	Short: "Unattended generation of long-form technical articles",
	Long: `article-engine runs batches of article generation against a chat-completion
backend. Each run proposes topics that avoid titles already in the posts
directory, authors one article per topic, and writes each article as a
Markdown file with a metadata block.

A failing article never stops the batch; the run fails only when no
article was written.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(secrets.DefaultDir, os.Stderr)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if keys := s.Keys(); len(keys) > 0 {
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./article-engine.yaml or ~/.config/article-engine/config.yaml)")
	rootCmd.PersistentFlags().String("posts-dir", "source/_posts", "directory of persisted articles")
}

func initConfig() {
	// Variables already in the environment win over .env entries.
	_ = godotenv.Load()

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("article-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "article-engine"))
		}
	}

	viper.SetEnvPrefix("ARTICLE_ENGINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	_ = viper.BindEnv("count", "ARTICLE_ENGINE_COUNT", "ARTICLE_COUNT")
	_ = viper.BindEnv(secrets.DeepSeekKey, "ARTICLE_ENGINE_DEEPSEEK_API_KEY", "DEEPSEEK_API_KEY")
	_ = viper.BindEnv(secrets.GeminiKey, "ARTICLE_ENGINE_GEMINI_API_KEY", "GEMINI_API_KEY")

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
