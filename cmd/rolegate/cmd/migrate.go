package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rolegate/rolegate/internal/infrastructure/db/mongo"
	"github.com/rolegate/rolegate/internal/infrastructure/db/postgres"
	"github.com/rolegate/rolegate/internal/pkg/config"
)

func init() {
	rootCmd.AddCommand(migrateCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate [up|down]",
	Short: "Apply or roll back the database schema",
	Long: `Apply (up, the default) or roll back (down) the schema of the configured store.

For postgres this runs the embedded SQL migrations. For mongo it creates the
collection indexes; "down" is not supported there. The memory store has no schema.`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"up", "down"},
	RunE: func(cmd *cobra.Command, args []string) error {
		direction := "up"
		if len(args) == 1 {
			direction = args[0]
		}
		if direction != "up" && direction != "down" {
			return fmt.Errorf("unknown direction %q, expected up or down", direction)
		}

		switch cfg.StoreDriver {
		case config.DriverPostgres:
			if cfg.Postgres.URL == "" {
				return errors.New("DATABASE_URL is required")
			}
			if err := postgres.Migrate(cfg.Postgres.URL, direction); err != nil {
				return err
			}

		case config.DriverMongo:
			if direction == "down" {
				return errors.New("mongo indexes cannot be rolled back")
			}
			store, err := mongo.Open(cmd.Context(), mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
			if err != nil {
				return err
			}
			defer func() { _ = store.Close(cmd.Context()) }()
			if err := store.EnsureIndexes(cmd.Context()); err != nil {
				return err
			}

		default:
			log.Info().Str("driver", cfg.StoreDriver).Msg("nothing to migrate")
			return nil
		}

		log.Info().Str("driver", cfg.StoreDriver).Str("direction", direction).Msg("migration complete")
		return nil
	},
}
