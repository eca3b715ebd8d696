package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/raphi011/episearch/internal/models"
)

var seasonJSON bool

var seasonCmd = &cobra.Command{
	Use:   "season [number]",
	Short: "List seasons or the episodes of one season",
	Long: `Without arguments, list the seasons present in the corpus.
With a season number, list that season's episodes (content only).

Examples:
  episearch season
  episearch season 2
  episearch season 2 --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSeason,
}

func init() {
	seasonCmd.Flags().BoolVar(&seasonJSON, "json", false, "print raw JSON")
}

func runSeason(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if len(args) == 0 {
		return listSeasons(ctx)
	}

	season, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid season %q", args[0])
	}
	return showSeason(ctx, season)
}

func listSeasons(ctx context.Context) error {
	var (
		seasons []int
		err     error
	)
	if serverMode() {
		seasons, err = apiClient().ListSeasons(ctx)
	} else {
		localStore, _, serr := getStore()
		if serr != nil {
			return serr
		}
		seasons, err = localStore.Seasons()
	}
	if err != nil {
		return fmt.Errorf("list seasons: %w", err)
	}

	if len(seasons) == 0 {
		fmt.Println("No seasons found. Run 'episearch ingest' first.")
		return nil
	}
	for _, s := range seasons {
		fmt.Printf("season %d\n", s)
	}
	return nil
}

func showSeason(ctx context.Context, season int) error {
	var (
		episodes map[string]models.EpisodeDocument
		err      error
	)
	if serverMode() {
		episodes, err = apiClient().GetSeason(ctx, season)
	} else {
		localStore, _, serr := getStore()
		if serr != nil {
			return serr
		}
		episodes, err = localStore.GetSeason(season)
	}
	if err != nil {
		return fmt.Errorf("get season: %w", err)
	}

	if seasonJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(episodes)
	}

	numbers := make([]string, 0, len(episodes))
	for n := range episodes {
		numbers = append(numbers, n)
	}
	sort.Strings(numbers)

	fmt.Printf("Season %d (%d episodes):\n\n", season, len(episodes))
	for _, n := range numbers {
		ep := episodes[n]
		fmt.Printf("  e%s  %-40s %s\n", n, ep.Title, ep.Airdate)
	}
	return nil
}
