package main

import (
	"fmt"
	"strings"

	"github.com/shishobooks/cyprus/pkg/config"
	"github.com/shishobooks/cyprus/pkg/migrations"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v2"
)

func migrateCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "migrate database",
		Action: func(c *cli.Context) error {
			return withDB(cfg, func(db *bun.DB) error {
				group, err := migrations.BringUpToDate(c.Context, db)
				if err != nil {
					return err
				}

				if group.ID == 0 {
					fmt.Printf("There are no new migrations to run\n")
					return nil
				}

				fmt.Printf("Migrated to %s\n", group)
				return nil
			})
		},
	}
}

func rollbackCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "rollback",
		Usage: "rollback the last migration group",
		Action: func(c *cli.Context) error {
			return withDB(cfg, func(db *bun.DB) error {
				migrator := migrate.NewMigrator(db, migrations.Migrations)

				group, err := migrator.Rollback(c.Context)
				if err != nil {
					return err
				}

				if group.ID == 0 {
					fmt.Printf("There are no groups to roll back\n")
					return nil
				}

				fmt.Printf("Rolled back %s\n", group)
				return nil
			})
		},
	}
}

func statusCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "print migrations status",
		Action: func(c *cli.Context) error {
			return withDB(cfg, func(db *bun.DB) error {
				migrator := migrate.NewMigrator(db, migrations.Migrations)
				if err := migrator.Init(c.Context); err != nil {
					return err
				}

				ms, err := migrator.MigrationsWithStatus(c.Context)
				if err != nil {
					return err
				}
				fmt.Printf("Migrations: %s\n", ms)
				fmt.Printf("Unapplied migrations: %s\n", ms.Unapplied())
				fmt.Printf("Last migration group: %s\n", ms.LastGroup())

				return nil
			})
		},
	}
}

func createMigrationCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "create-migration",
		Usage:     "create Go migration",
		ArgsUsage: "<name>",
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return cli.Exit("create-migration needs a name", 1)
			}
			return withDB(cfg, func(db *bun.DB) error {
				migrator := migrate.NewMigrator(db, migrations.Migrations)

				name := strings.Join(c.Args().Slice(), "_")
				mf, err := migrator.CreateGoMigration(
					c.Context,
					name,
					migrate.WithGoTemplate(migrationTemplate),
				)
				if err != nil {
					return err
				}
				fmt.Printf("Created migration %s (%s)\n", mf.Name, mf.Path)

				return nil
			})
		},
	}
}

const migrationTemplate = `package %s

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec("")
		return errors.WithStack(err)
	}

	down := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec("")
		return errors.WithStack(err)
	}

	Migrations.MustRegister(up, down)
}
`
