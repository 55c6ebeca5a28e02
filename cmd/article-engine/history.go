// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/article-engine/internal/ledger"
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show recent runs from the run ledger",
	Long: `History lists recent runs recorded in the SQLite run ledger, newest
first. Given a run id, it lists that run's items and their outcomes.`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: bindFlags,
	RunE:    runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	store, err := ledger.Open(viper.GetString("ledger"))
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	format, _ := cmd.Flags().GetString("format")

	if len(args) == 1 {
		items, err := store.Items(ctx, args[0])
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return fmt.Errorf("no items recorded for run %s", args[0])
		}
		if format == "yaml" {
			return yaml.NewEncoder(os.Stdout).Encode(items)
		}
		for _, it := range items {
			line := fmt.Sprintf("%-9s %s", it.Status, it.Title)
			if it.FileID != "" {
				line += " -> " + it.FileID
			}
			if it.Error != "" {
				line += ": " + it.Error
			}
			fmt.Println(line)
		}
		return nil
	}

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.Recent(ctx, limit)
	if err != nil {
		return err
	}
	switch format {
	case "yaml":
		return yaml.NewEncoder(os.Stdout).Encode(runs)
	case "text", "":
		printRuns(os.Stdout, runs)
		return nil
	default:
		return fmt.Errorf("unsupported format %q: use text or yaml", format)
	}
}

func printRuns(w io.Writer, runs []ledger.RunRecord) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "no runs recorded")
		return
	}
	for _, r := range runs {
		fmt.Fprintf(w, "%s  %s  %-8s attempted %d, persisted %d, skipped %d, failed %d, %d chars",
			r.StartedAt.Local().Format("2006-01-02 15:04"), r.ID, r.TopicSource,
			r.Attempted, r.Succeeded, r.Skipped, r.Failed, r.TotalLength)
		if len(r.Categories) > 0 {
			fmt.Fprintf(w, "  [%s]", formatCategories(r.Categories))
		}
		fmt.Fprintln(w)
	}
}

func formatCategories(counts map[string]int) string {
	names := make([]string, 0, len(counts))
	for c := range counts {
		names = append(names, c)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, c := range names {
		parts[i] = fmt.Sprintf("%s=%d", c, counts[c])
	}
	return strings.Join(parts, " ")
}

func init() {
	historyCmd.Flags().String("ledger", ledger.DefaultPath, "SQLite run ledger")
	historyCmd.Flags().Int("limit", 10, "number of runs to show")
	historyCmd.Flags().String("format", "text", "output format: text or yaml")
	rootCmd.AddCommand(historyCmd)
}
