// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/article-engine/internal/corpus"
	"github.com/pdiddy/article-engine/internal/ideas"
	"github.com/pdiddy/article-engine/internal/pipeline"
	"github.com/pdiddy/article-engine/pkg/types"
)

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "Show the fallback topics the next run would use",
	Long: `Topics draws from the catalogue's static pool exactly as a run does when
topic sourcing fails: the pool is shuffled, entries close to an existing
title are skipped, and an exhausted pool is reused with an edition suffix.
No credential is needed and nothing is written.`,
	PreRunE: bindFlags,
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, err := ideas.LoadCatalog(viper.GetString("catalog"))
		if err != nil {
			return err
		}
		existing, err := corpus.ListTitles(viper.GetString("posts-dir"))
		if err != nil {
			return err
		}

		seed := viper.GetInt64("seed")
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		count := viper.GetInt("count")
		if count <= 0 {
			count = pipeline.DefaultCount
		}
		picks := ideas.Fallback(catalog.Pool, count, existing, seed, time.Now().Year())
		printTopics(os.Stdout, picks, string(types.SourceFallback))
		return nil
	},
}

// printTopics writes one line per topic.
func printTopics(w io.Writer, topics []types.TopicDescriptor, source string) {
	fmt.Fprintf(w, "%d topics (%s)\n", len(topics), source)
	for i, t := range topics {
		fmt.Fprintf(w, "%2d. %s [%s, %s]\n", i+1, t.Title, t.Category, t.ContentType)
	}
}

func init() {
	topicsCmd.Flags().Int("count", pipeline.DefaultCount, "number of topics to draw")
	topicsCmd.Flags().String("catalog", "", "topic catalogue YAML (default: embedded catalogue)")
	topicsCmd.Flags().Int64("seed", 0, "shuffle seed (0: time-based)")
	rootCmd.AddCommand(topicsCmd)
}
