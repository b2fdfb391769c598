package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gatherline/fulfil/internal/adapter/outbound/sqlite"
	"github.com/gatherline/fulfil/internal/config"
)

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove expired sessions from a sqlite store",
	Long: `Remove expired session rows from the sqlite store.

Expired sessions are already invisible to the API; this reclaims the
disk space they occupy. Intended for cron or manual maintenance while
the server is stopped or running (the store uses WAL mode).

Only meaningful for the sqlite backend. Memory sessions vanish with the
process and Redis keys expire on their own.`,
	RunE: runPurge,
}

func init() {
	rootCmd.AddCommand(purgeCmd)
}

func runPurge(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.Storage.Backend != "sqlite" {
		return fmt.Errorf("purge requires the sqlite backend, configured backend is %q", cfg.Storage.Backend)
	}

	store, err := sqlite.Open(cfg.Storage.SQLitePath)
	if err != nil {
		return fmt.Errorf("failed to open sqlite store: %w", err)
	}
	defer store.Close()

	purged, err := store.PurgeExpired(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to purge expired sessions: %w", err)
	}

	fmt.Printf("purged %d expired session(s) from %s\n", purged, cfg.Storage.SQLitePath)
	return nil
}
