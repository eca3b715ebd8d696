package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/raphi011/episearch/internal/models"
	"github.com/raphi011/episearch/internal/service"
)

var (
	searchK    int
	searchJSON bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find episodes semantically similar to a query",
	Long: `Search episodes by meaning rather than keywords.

The query is embedded and compared against every episode's summary embedding
by cosine similarity; the top results are returned with their scores.

Examples:
  episearch search "the one where the town loses its voice"
  episearch search "prophecy about the chosen one" -k 5
  episearch search "musical episode" --server`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchK, "limit", "k", 0, "max results (default from config)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "print raw JSON results")
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]
	ctx := context.Background()

	var (
		results []models.SearchResult
		err     error
	)
	if serverMode() {
		results, err = apiClient().Search(ctx, query, searchK)
	} else {
		results, err = localSearch(ctx, query, searchK)
	}
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	if searchJSON {
		return json.NewEncoder(os.Stdout).Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Printf("Found %d results:\n\n", len(results))
	for i, r := range results {
		fmt.Printf("%d. s%02de%s  %s  (score %.4f)\n",
			i+1, r.SeasonNumber, r.EpisodeNumber, r.Episode.Title, r.Score)
		fmt.Printf("   Aired %s\n", r.Episode.Airdate)
		if len(r.Episode.Summary) > 0 {
			fmt.Printf("   %s\n", firstLine(r.Episode.Summary[0], 100))
		}
		if verbose && len(r.Episode.MainCast) > 0 {
			fmt.Printf("   Cast: %s\n", strings.Join(r.Episode.MainCast, ", "))
		}
		fmt.Println()
	}
	return nil
}

func localSearch(ctx context.Context, query string, k int) ([]models.SearchResult, error) {
	st, ref, err := getStore()
	if err != nil {
		return nil, err
	}
	emb, err := getEmbedder(ctx)
	if err != nil {
		return nil, err
	}
	svc := service.NewSearchService(st, emb, ref, collector, cfg.DefaultK, logger)
	return svc.Search(ctx, query, k)
}

// firstLine truncates s to max characters for one-line display.
func firstLine(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
