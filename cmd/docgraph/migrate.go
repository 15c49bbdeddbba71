package main

import (
	"errors"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/OFFIS-RIT/docgraph/internal/util"
	"github.com/OFFIS-RIT/docgraph/pkg/logger"
	pgxstore "github.com/OFFIS-RIT/docgraph/pkg/store/pgx"
)

func newMigrateCmd() *cobra.Command {
	var databaseURL string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the graph schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if databaseURL == "" {
				return errors.New("--database-url (or DATABASE_URL) is required")
			}
			if err := pgxstore.Migrate(databaseURL); err != nil {
				return err
			}
			logger.Info("[Migrate] Schema is up to date")
			return nil
		},
	}
	cmd.Flags().StringVar(&databaseURL, "database-url", util.GetEnv("DATABASE_URL"), "PostgreSQL connection string")
	return cmd
}
