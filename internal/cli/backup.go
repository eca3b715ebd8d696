package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var backupList bool

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Snapshot the local data directory",
	Long: `Copy all content and embedding partitions into a timestamped backup
directory under the data directory. Ingestion does this automatically before
replacing existing data; this command takes a snapshot on demand.

Backups are local; the command does not support --server.

Examples:
  episearch backup
  episearch backup --list`,
	Args: cobra.NoArgs,
	RunE: runBackup,
}

func init() {
	backupCmd.Flags().BoolVar(&backupList, "list", false, "list existing backups instead of creating one")
}

func runBackup(cmd *cobra.Command, args []string) error {
	if serverMode() {
		return fmt.Errorf("backup operates on the local data directory; drop --server")
	}

	localStore, _, err := getStore()
	if err != nil {
		return err
	}

	if backupList {
		backups, err := localStore.Backups()
		if err != nil {
			return fmt.Errorf("list backups: %w", err)
		}
		if len(backups) == 0 {
			fmt.Println("No backups found.")
			return nil
		}
		for _, b := range backups {
			fmt.Println(b)
		}
		return nil
	}

	dir, err := localStore.Backup()
	if err != nil {
		return fmt.Errorf("create backup: %w", err)
	}
	fmt.Printf("Backup created: %s\n", dir)
	return nil
}
