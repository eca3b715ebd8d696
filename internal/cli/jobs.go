package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/raphi011/episearch/internal/service"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs [job-id]",
	Short: "List or inspect server-side ingestion jobs",
	Long: `List all background jobs on the server or inspect a specific job by ID.

Jobs live in the server process; this command always talks to a server
(--server or EPISEARCH_SERVER_URL, defaulting to localhost).

Examples:
  episearch jobs           # List all jobs
  episearch jobs abc123    # Show details for job abc123`,
	Args: cobra.MaximumNArgs(1),
	RunE: runJobs,
}

func runJobs(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if len(args) == 1 {
		return showJob(ctx, args[0])
	}
	return listJobs(ctx)
}

func listJobs(ctx context.Context) error {
	jobs, err := apiClient().ListJobs(ctx)
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}

	if len(jobs) == 0 {
		fmt.Println("No jobs found")
		return nil
	}

	fmt.Printf("%-10s %-10s %-12s %-10s %s\n", "ID", "TYPE", "STATUS", "PROGRESS", "STARTED")
	fmt.Println("------------------------------------------------------------------------")

	for _, job := range jobs {
		progress := ""
		if job.Total > 0 {
			progress = fmt.Sprintf("%d/%d", job.Progress, job.Total)
		}
		started := job.StartedAt.Format("15:04:05")
		fmt.Printf("%-10s %-10s %-12s %-10s %s\n", job.ID, job.Type, job.Status, progress, started)
	}

	return nil
}

func showJob(ctx context.Context, id string) error {
	job, err := apiClient().GetJob(ctx, id)
	if err != nil {
		return fmt.Errorf("get job: %w", err)
	}

	fmt.Printf("Job: %s\n", job.ID)
	fmt.Printf("  Type: %s\n", job.Type)
	fmt.Printf("  Status: %s\n", job.Status)
	if job.Total > 0 {
		fmt.Printf("  Progress: %d/%d\n", job.Progress, job.Total)
	}
	fmt.Printf("  Started: %s\n", job.StartedAt.Format(time.RFC3339))
	if job.CompletedAt != nil {
		fmt.Printf("  Completed: %s\n", job.CompletedAt.Format(time.RFC3339))
		duration := job.CompletedAt.Sub(job.StartedAt)
		fmt.Printf("  Duration: %s\n", duration.Round(time.Second))
	}

	if job.Error != "" {
		fmt.Printf("  Error: %s\n", job.Error)
	}

	if job.Result != nil {
		printReport(job.Result)
	}

	return nil
}

func printReport(r *service.IngestReport) {
	fmt.Println("\nResult:")
	fmt.Printf("  Episodes written: %d\n", r.DocumentsWritten)
	if r.DocumentsRejected > 0 {
		fmt.Printf("  Episodes rejected: %d\n", r.DocumentsRejected)
	}
	fmt.Printf("  Duration: %s\n", r.Duration.Round(time.Millisecond))
	if len(r.Errors) > 0 {
		fmt.Printf("\n  Errors (%d):\n", len(r.Errors))
		for _, e := range r.Errors {
			fmt.Printf("    - %s\n", e)
		}
	}
}
