package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raphi011/episearch/internal/service"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show corpus, index, and embedder health",
	Long: `Check the embedding backend with a probe request and compare the stored
document count against the index.

Examples:
  episearch status
  episearch status --server`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	var status *service.Status
	if serverMode() {
		var err error
		status, err = apiClient().Status(ctx)
		if err != nil {
			return fmt.Errorf("get status: %w", err)
		}
	} else {
		localStore, ref, err := getStore()
		if err != nil {
			return err
		}
		emb, err := getEmbedder(ctx)
		if err != nil {
			return err
		}
		s := service.NewStatusService(localStore, emb, ref, logger).Check(ctx)
		status = &s
	}

	if status.EmbedderOK {
		fmt.Printf("Embedder:  ok (%s, dimension %d)\n", status.EmbedderModel, status.Dimension)
	} else {
		fmt.Printf("Embedder:  UNAVAILABLE (%s): %s\n", status.EmbedderModel, status.EmbedderError)
	}
	fmt.Printf("Seasons:   %d\n", status.Seasons)
	fmt.Printf("Documents: %d\n", status.Documents)
	fmt.Printf("Indexed:   %d\n", status.Indexed)
	if status.InSync {
		fmt.Println("Index:     in sync")
	} else {
		fmt.Println("Index:     OUT OF SYNC (re-run ingest or restart the server)")
	}
	return nil
}
