package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"membuddy/internal/recordstore"
)

// InitDBCommand creates the one-time schema initialization command.
func InitDBCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init-db",
		Short: "Initialize the PostgreSQL schema and tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			pg, ok := store.(*recordstore.Postgres)
			if !ok {
				return fmt.Errorf("init-db requires MEMBUDDY_STORE_TYPE=postgres")
			}
			if err := pg.InitSchema(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("Database initialized successfully.")
			return nil
		},
	}
}

// SeedCommand creates the demo-data seeding command.
func SeedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the demo member dataset into the configured store",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			return seedDemo(cmd.Context(), store)
		},
	}
}

func seedDemo(ctx context.Context, store recordstore.Store) error {
	switch s := store.(type) {
	case *recordstore.Memory:
		s.SeedDemo()
		fmt.Println("Seeded in-memory store (note: memory stores do not outlive the process).")
	case *recordstore.Postgres:
		for _, rec := range recordstore.DemoMembers() {
			if err := s.UpsertMember(ctx, rec); err != nil {
				return err
			}
		}
		for _, pm := range recordstore.DemoPaymentMethods() {
			if err := s.AddPaymentMethod(ctx, pm.MemberID, pm.Description); err != nil {
				return err
			}
		}
		fmt.Println("Seeded demo members successfully.")
	default:
		return fmt.Errorf("unsupported store type %T", store)
	}
	return nil
}
