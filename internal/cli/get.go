package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/raphi011/episearch/internal/models"
)

var getJSON bool

var getCmd = &cobra.Command{
	Use:   "get <season> <episode>",
	Short: "Show a single episode",
	Long: `Show one episode by season and episode number.

The episode number is two-digit zero-padded, matching the stored keys.

Examples:
  episearch get 3 07
  episearch get 1 01 --json`,
	Args: cobra.ExactArgs(2),
	RunE: runGet,
}

func init() {
	getCmd.Flags().BoolVar(&getJSON, "json", false, "print the raw JSON record")
}

func runGet(cmd *cobra.Command, args []string) error {
	season, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid season %q", args[0])
	}
	episode := args[1]
	if len(episode) == 1 {
		episode = "0" + episode
	}

	ctx := context.Background()
	var doc *models.EpisodeDocument
	if serverMode() {
		doc, err = apiClient().GetEpisode(ctx, season, episode)
	} else {
		localStore, _, serr := getStore()
		if serr != nil {
			return serr
		}
		doc, err = localStore.GetEpisode(season, episode)
	}
	if err != nil {
		return fmt.Errorf("get episode: %w", err)
	}

	if getJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	}

	printEpisode(doc)
	return nil
}

func printEpisode(doc *models.EpisodeDocument) {
	fmt.Printf("%s (s%02de%s)\n", doc.Title, doc.SeasonNumber, doc.EpisodeNumber)
	fmt.Printf("Aired: %s\n", doc.Airdate)
	if doc.Director != nil {
		fmt.Printf("Director: %s\n", *doc.Director)
	}
	if doc.Writer != nil {
		fmt.Printf("Writer: %s\n", *doc.Writer)
	}
	if len(doc.MainCast) > 0 {
		fmt.Printf("Cast: %s\n", strings.Join(doc.MainCast, ", "))
	}

	fmt.Println("\nSummary:")
	for _, p := range doc.Summary {
		fmt.Printf("  %s\n", p)
	}

	if verbose {
		if len(doc.Quotes) > 0 {
			fmt.Println("\nQuotes:")
			for _, q := range doc.Quotes {
				fmt.Printf("  %s\n", q)
			}
		}
		if len(doc.Trivia) > 0 {
			fmt.Println("\nTrivia:")
			for _, tr := range doc.Trivia {
				fmt.Printf("  - %s\n", tr)
			}
		}
	}
}
