// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/article-engine/internal/artifact"
	"github.com/pdiddy/article-engine/internal/author"
	"github.com/pdiddy/article-engine/internal/ledger"
	"github.com/pdiddy/article-engine/internal/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate a batch of articles",
	Long: `Run proposes topics, authors one article per topic, and writes each
article that passes the length check into the posts directory.

Topics come from the model, steered away from existing titles. If topic
sourcing fails, topics are drawn from the catalogue's static pool instead.
Each article is authored, checked, and written before the next begins; a
failed or too-short article is reported and the batch continues.

The command exits non-zero when no article was written.`,
	PreRunE: bindFlags,
	RunE:    runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadGenerationConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	rng := newRand(cfg.Seed)
	count := resolveCount(cfg, rng)

	runner, led, err := newRunner(ctx, cfg, rng)
	if err != nil {
		return err
	}
	if led != nil {
		defer led.Close()
	}
	runner.Out = os.Stdout

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	if dryRun {
		topics, source, err := runner.Plan(ctx, count)
		if err != nil {
			return err
		}
		printTopics(os.Stdout, topics, string(source))
		return nil
	}

	fmt.Fprintf(os.Stdout, "generating %d articles into %s\n", count, cfg.PostsDir)
	_, err = runner.Run(ctx, count)
	if errors.Is(err, pipeline.ErrNoArticles) {
		fmt.Fprintln(os.Stderr, "no articles were written")
	}
	return err
}

func init() {
	addGenerationFlags(runCmd)
	f := runCmd.Flags()
	f.Int("min-length", artifact.DefaultMinLength, "minimum article length in characters")
	f.Duration("delay", pipeline.DefaultDelay, "pause between successfully written articles")
	f.Duration("article-timeout", author.DefaultTimeout, "timeout for each authoring call")
	f.Int("max-retries", author.DefaultMaxRetries, "authoring retries on transient failures (0 disables)")
	f.String("ledger", ledger.DefaultPath, "SQLite run ledger (empty disables)")
	f.Bool("dry-run", false, "print the topics that would be written and exit")

	rootCmd.AddCommand(runCmd)
}
