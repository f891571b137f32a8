// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/gatehouse/gatehouse/internal/config"
	"github.com/gatehouse/gatehouse/internal/store"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	var down bool
	var steps int

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database schema migrations",
		Long: `Apply pending schema migrations against the PostgreSQL database.
Use --down to roll everything back, or --steps to apply a fixed number.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(resolveConfigFile(), cmd.Flags())
			if err != nil {
				return err
			}
			if cfg.Database.URL == "" {
				return oops.Code("CONFIG_INVALID").Errorf("database.url (or DATABASE_URL) is required")
			}

			migrator, err := store.NewMigrator(cfg.Database.URL)
			if err != nil {
				return err
			}
			defer func() {
				_ = migrator.Close() //nolint:errcheck // best effort on exit
			}()

			switch {
			case down:
				cmd.Println("Rolling back all migrations...")
				if err := migrator.Down(); err != nil {
					return err
				}
			case steps != 0:
				cmd.Printf("Applying %d migration step(s)...\n", steps)
				if err := migrator.Steps(steps); err != nil {
					return err
				}
			default:
				cmd.Println("Applying pending migrations...")
				if err := migrator.Up(); err != nil {
					return err
				}
			}

			version, dirty, err := migrator.Version()
			if err != nil {
				return err
			}
			cmd.Printf("Schema at version %d (dirty: %v)\n", version, dirty)
			return nil
		},
	}

	cmd.Flags().String("database.url", "", "PostgreSQL connection URL (default: $DATABASE_URL)")
	cmd.Flags().BoolVar(&down, "down", false, "roll back all migrations (destructive)")
	cmd.Flags().IntVar(&steps, "steps", 0, "apply n migrations (negative rolls back)")

	return cmd
}
