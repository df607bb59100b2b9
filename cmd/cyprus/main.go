package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/robinjoseph08/golib/signals"
	"github.com/segmentio/encoding/json"
	"github.com/shishobooks/cyprus/pkg/audiobook"
	"github.com/shishobooks/cyprus/pkg/catalog"
	"github.com/shishobooks/cyprus/pkg/config"
	"github.com/shishobooks/cyprus/pkg/database"
	"github.com/shishobooks/cyprus/pkg/ingest"
	"github.com/shishobooks/cyprus/pkg/mediafile"
	"github.com/shishobooks/cyprus/pkg/migrations"
	"github.com/shishobooks/cyprus/pkg/version"
	"github.com/uptrace/bun"
	"github.com/urfave/cli/v2"
)

func main() {
	log := logger.New()

	cfg, err := config.New()
	if err != nil {
		log.Err(err).Fatal("config error")
	}
	log = logger.NewWithLevel(cfg.LogLevel)

	app := &cli.App{
		Name:    "cyprus",
		Usage:   "build and catalog audiobooks",
		Version: version.Version,
		Commands: []*cli.Command{
			{
				Name:      "parse",
				Usage:     "print the book built from a file or folder",
				ArgsUsage: "<path>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return cli.Exit("parse takes exactly one path", 1)
					}
					book, err := buildBook(c.Context, cfg, c.Args().First())
					if err != nil {
						return err
					}
					return printJSON(book)
				},
			},
			{
				Name:      "ingest",
				Usage:     "build and store every given file or folder",
				ArgsUsage: "<path>...",
				Action: func(c *cli.Context) error {
					if c.NArg() == 0 {
						return cli.Exit("ingest takes at least one path", 1)
					}
					return runIngest(c.Context, log, cfg, c.Args().Slice())
				},
			},
			{
				Name:  "list",
				Usage: "print stored books",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Usage: "maximum number of books to print"},
					&cli.IntFlag{Name: "offset", Usage: "number of books to skip"},
				},
				Action: func(c *cli.Context) error {
					return withDB(cfg, func(db *bun.DB) error {
						opts := catalog.ListBooksOptions{}
						if c.IsSet("limit") {
							limit := c.Int("limit")
							opts.Limit = &limit
						}
						if c.IsSet("offset") {
							offset := c.Int("offset")
							opts.Offset = &offset
						}
						books, total, err := catalog.NewService(db).ListBooksWithTotal(c.Context, opts)
						if err != nil {
							return err
						}
						return printJSON(map[string]interface{}{"books": books, "total": total})
					})
				},
			},
			migrateCommand(cfg),
			rollbackCommand(cfg),
			statusCommand(cfg),
			createMigrationCommand(cfg),
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Err(err).Fatal("app run error")
	}
}

func buildBook(ctx context.Context, cfg *config.Config, path string) (*audiobook.Book, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	builder := mediafile.NewBuilder(cfg)
	if info.IsDir() {
		return builder.FromFolder(ctx, path)
	}
	return builder.FromFile(ctx, path)
}

func runIngest(ctx context.Context, log logger.Logger, cfg *config.Config, paths []string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	graceful := signals.Setup()
	go func() {
		select {
		case <-graceful:
			log.Info("stopping ingest")
			cancel()
		case <-ctx.Done():
		}
	}()

	return withDB(cfg, func(db *bun.DB) error {
		group, err := migrations.BringUpToDate(ctx, db)
		if err != nil {
			return err
		}
		if group.ID != 0 {
			log.Info("migrated to new group", logger.Data{"group_id": group.ID, "migration_names": group.Migrations.String()})
		}

		w := ingest.New(cfg, mediafile.NewBuilder(cfg), catalog.NewService(db))
		results := w.Run(ctx, paths)

		failed := 0
		for _, result := range results {
			if result.Err != nil {
				failed++
				fmt.Printf("FAIL %s: %s\n", result.Path, result.Err)
				continue
			}
			fmt.Printf("OK   %s: %s (%d chapters)\n", result.Path, result.Book.Name, result.Book.ChapterCount())
		}
		log.Info("ingest finished", logger.Data{"paths": len(paths), "failed": failed})

		if failed > 0 {
			return cli.Exit(fmt.Sprintf("%d of %d paths failed", failed, len(paths)), 1)
		}
		return nil
	})
}

func withDB(cfg *config.Config, fn func(db *bun.DB) error) error {
	db, err := database.New(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db)
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.WithStack(err)
	}
	fmt.Println(string(out))
	return nil
}
