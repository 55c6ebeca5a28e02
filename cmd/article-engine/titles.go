// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/article-engine/internal/corpus"
)

var titlesCmd = &cobra.Command{
	Use:   "titles",
	Short: "List the titles already in the posts directory",
	Long: `Titles reads the metadata block of every Markdown file in the posts
directory and prints its title. These are the titles new topics are checked
against. Files without a readable title are skipped.`,
	PreRunE: bindFlags,
	RunE: func(cmd *cobra.Command, args []string) error {
		titles, err := corpus.ListTitles(viper.GetString("posts-dir"))
		if err != nil {
			return err
		}
		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(titles)
		}
		for _, t := range titles {
			fmt.Println(t)
		}
		fmt.Fprintf(os.Stderr, "%d titles\n", len(titles))
		return nil
	},
}

// openCorpus opens the posts directory, creating it if needed.
func openCorpus(dir string) (*corpus.Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("posts directory is not set")
	}
	return corpus.NewStore(dir)
}

func init() {
	titlesCmd.Flags().Bool("json", false, "output as a JSON array")
	rootCmd.AddCommand(titlesCmd)
}
