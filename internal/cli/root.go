// Package cli provides the command-line interface for episearch.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/raphi011/episearch/internal/client"
	"github.com/raphi011/episearch/internal/config"
	"github.com/raphi011/episearch/internal/index"
	"github.com/raphi011/episearch/internal/llm"
	"github.com/raphi011/episearch/internal/metrics"
	"github.com/raphi011/episearch/internal/service"
	"github.com/raphi011/episearch/internal/store"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose    bool
	configFile string
	serverURL  string

	// Global config and logger, set in PersistentPreRunE.
	cfg        config.Config
	logger     *slog.Logger
	logCleanup func() error

	// Lazy-initialized local stack
	st        *store.Store
	idxRef    *index.Ref
	embedder  llm.Embedder
	collector = metrics.NewCollector()
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "episearch",
	Short: "Semantic search over episode metadata",
	Long: `Episearch is a semantic search engine over TV episode metadata.

Episodes are stored as JSON season partitions with per-field embeddings and
ranked by cosine similarity against an embedded query. Commands run against
the local data directory by default, or against a running episearch server
with --server.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip setup for version and help commands
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		var err error
		if configFile != "" {
			cfg, err = config.LoadFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if verbose {
			cfg.LogLevel = slog.LevelDebug
		}

		logger, logCleanup = config.SetupLogger(cfg.LogFile, cfg.LogLevel)
		slog.SetDefault(logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCleanup != nil {
			if err := logCleanup(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
			}
		}
	},
}

// serverMode reports whether commands should talk to a running server.
func serverMode() bool {
	return serverURL != "" || os.Getenv("EPISEARCH_SERVER_URL") != ""
}

// apiClient creates the server client for --server mode.
func apiClient() *client.Client {
	return client.New(serverURL)
}

// getStore lazily opens the local document store and builds the index over it.
func getStore() (*store.Store, *index.Ref, error) {
	if st != nil {
		return st, idxRef, nil
	}

	var err error
	st, err = store.New(cfg.DataDir, cfg.EmbedDimension, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	idxRef = &index.Ref{}
	ingestSvc := service.NewIngestService(st, nil, idxRef, collector, logger)
	if err := ingestSvc.RebuildIndex(); err != nil {
		return nil, nil, fmt.Errorf("build index: %w", err)
	}
	return st, idxRef, nil
}

// getEmbedder lazily initializes the embedding backend. Commands that never
// embed (get, season, backup) skip the provider connection entirely.
func getEmbedder(ctx context.Context) (llm.Embedder, error) {
	if embedder != nil {
		return embedder, nil
	}
	var err error
	embedder, err = llm.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init embedder: %w", err)
	}
	return embedder, nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default episearch.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "run against a server instead of the local data directory")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(seasonCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(jobsCmd)
}
