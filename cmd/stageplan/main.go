package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/andys/stageload/config"
	"github.com/andys/stageload/db"
	"github.com/andys/stageload/logging"
	"github.com/andys/stageload/pipeline"
	"github.com/andys/stageload/worker"
)

func main() {
	var cfg config.Config

	app := &cli.App{
		Name:  "stageplan",
		Usage: "Show what stageload would copy for each configured table, without writing",
		Flags: config.Flags(&cfg),
		Action: func(c *cli.Context) error {
			if err := config.Prepare(&cfg); err != nil {
				return err
			}

			logger, flush, err := logging.New(cfg.Debug, cfg.Verbose)
			if err != nil {
				return err
			}
			defer flush()

			sourceDB, err := db.Connect(c.Context, cfg.SourceURL, db.Source, &cfg, cfg.WorkerCount)
			if err != nil {
				return fmt.Errorf("failed to connect to source database: %w", err)
			}
			defer sourceDB.Close()
			sourceDB.SetLogger(logger)

			destDB, err := db.Connect(c.Context, cfg.DestinationURL, db.Destination, &cfg, cfg.WorkerCount)
			if err != nil {
				return fmt.Errorf("failed to connect to destination database: %w", err)
			}
			defer destDB.Close()
			destDB.SetLogger(logger)

			fmt.Printf("Connected to source (%s) and destination (%s) databases\n\n", sourceDB.Type, destDB.Type)

			entries := worker.NewPlanner(sourceDB, destDB, &cfg, logger).Plan(c.Context, pipeline.DescriptorsFromConfig(&cfg))

			var pending int64
			failed := 0
			for _, entry := range entries {
				if entry.Err != nil {
					failed++
					fmt.Printf("%-30s error: %v\n", entry.Table, entry.Err)
					continue
				}
				pending += entry.Pending
				fmt.Printf("%-30s key=%s watermark=%d pending=%d\n", entry.Table, entry.KeyColumn, entry.Watermark, entry.Pending)
				fmt.Printf("%-30s columns: %s\n", "", strings.Join(entry.Columns, ", "))
			}
			fmt.Printf("\n%d tables, %d rows pending\n", len(entries), pending)

			if failed > 0 {
				return cli.Exit(fmt.Sprintf("%d of %d tables cannot be planned", failed, len(entries)), 1)
			}
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
