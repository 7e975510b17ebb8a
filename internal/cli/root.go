// Package cli implements the membuddy command-line interface.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"membuddy/internal/config"
	"membuddy/internal/recordstore"
)

// RootCommand builds the membuddy command tree.
func RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "membuddy",
		Short: "Conversational front-end for membership records",
		Long: `Membuddy turns free-form member messages into validated actions:
membership renewals, profile updates and feedback capture.

Environment Variables:
  MEMBUDDY_STORE_TYPE            'memory' (default) or 'postgres'
  MEMBUDDY_SEED_PATH             JSON seed file for the memory store
  DB_CONN_STRING                 PostgreSQL connection string
  MEMBUDDY_LEXICON_PATH          Optional YAML lexicon overlay
  MEMBUDDY_CACHE_TTL_SECONDS     Snapshot cache TTL (default 300)
  MEMBUDDY_CONFIRM_PATIENCE      Unclear turns before a proposal is dropped (default 2)
  MEMBUDDY_SESSION_MAX_AGE_SECONDS  Idle session expiry (default 1800)`,
		SilenceUsage: true,
	}

	root.AddCommand(ChatCommand())
	root.AddCommand(InitDBCommand())
	root.AddCommand(SeedCommand())
	return root
}

// openStore creates the configured record store.
func openStore() (recordstore.Store, recordstore.Config, error) {
	cfg := config.GetStoreConfig()
	store, err := recordstore.New(cfg)
	if err != nil {
		return nil, cfg, fmt.Errorf("initializing record store: %w", err)
	}
	return store, cfg, nil
}
