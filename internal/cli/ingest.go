package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/raphi011/episearch/internal/service"
)

var ingestNoProgress bool

var ingestCmd = &cobra.Command{
	Use:   "ingest <corpus.json>",
	Short: "Bulk-load a raw episode corpus",
	Long: `Ingest a raw corpus JSON file: validate every episode, compute missing
embeddings, replace the stored corpus (backing up existing data first), and
rebuild the similarity index.

The corpus maps "season_N" keys to episode-number keys to raw episode
records. Episodes failing validation are rejected individually; a gap in the
surviving numbering rejects the whole corpus with nothing written.

Examples:
  episearch ingest episodes.json
  episearch ingest episodes.json --server
  episearch ingest episodes.json --no-progress`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestNoProgress, "no-progress", false, "print the report instead of the progress UI")
}

func runIngest(cmd *cobra.Command, args []string) error {
	path := args[0]
	ctx := context.Background()

	if serverMode() {
		return serverIngest(ctx, path)
	}
	return localIngest(ctx, path)
}

func serverIngest(ctx context.Context, path string) error {
	c := apiClient()
	job, err := c.IngestFile(ctx, path)
	if err != nil {
		return fmt.Errorf("submit ingestion: %w", err)
	}
	fmt.Printf("Ingestion started (job %s)\n", job.ID)

	if ingestNoProgress {
		return waitForJob(ctx, c, job.ID)
	}
	return RunJobProgress(c, job)
}

func localIngest(ctx context.Context, path string) error {
	localStore, ref, err := getStore()
	if err != nil {
		return err
	}
	emb, err := getEmbedder(ctx)
	if err != nil {
		return err
	}

	ingestSvc := service.NewIngestService(localStore, emb, ref, collector, logger)
	jobs := service.NewJobManager(logger)
	job, err := jobs.CreateIngestJob()
	if err != nil {
		return err
	}

	go func() {
		report, err := ingestSvc.IngestFile(ctx, path, job)
		if err != nil {
			job.Fail(err)
			return
		}
		job.Complete(report)
	}()

	if ingestNoProgress {
		return waitForJob(ctx, localJobSource{jobs}, job.ID)
	}
	view := job.View()
	return RunJobProgress(localJobSource{jobs}, &view)
}

// localJobSource adapts the in-process job registry to the JobSource
// interface used by the progress UI.
type localJobSource struct {
	jobs *service.JobManager
}

func (l localJobSource) GetJob(_ context.Context, id string) (*service.JobView, error) {
	job := l.jobs.GetJob(id)
	if job == nil {
		return nil, fmt.Errorf("job not found: %s", id)
	}
	view := job.View()
	return &view, nil
}

// waitForJob polls until the job reaches a terminal state, then prints the
// report as JSON.
func waitForJob(ctx context.Context, source JobSource, id string) error {
	for {
		job, err := source.GetJob(ctx, id)
		if err != nil {
			return err
		}
		switch job.Status {
		case service.JobStatusCompleted:
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(job.Result)
		case service.JobStatusFailed:
			return fmt.Errorf("ingestion failed: %s", job.Error)
		}
		time.Sleep(pollInterval)
	}
}
