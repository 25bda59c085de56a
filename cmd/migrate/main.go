// Command migrate runs schema operations for the routing database.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"

	"docroute/internal/config"
	"docroute/internal/database"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() error {
	return fmt.Errorf("usage: migrate <up|down|version|status|auto> [steps]")
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()
	switch strings.ToLower(strings.TrimSpace(flag.Arg(0))) {
	case "up":
		mg, err := database.NewMigrator(cfg.MigrateURL())
		if err != nil {
			return err
		}
		defer mg.Close()
		if err := mg.Up(); err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
		log.Println("sql migrations applied")
	case "down":
		steps := 1
		if flag.NArg() > 1 {
			steps, err = strconv.Atoi(flag.Arg(1))
			if err != nil {
				return fmt.Errorf("invalid steps %q: %w", flag.Arg(1), err)
			}
		}
		mg, err := database.NewMigrator(cfg.MigrateURL())
		if err != nil {
			return err
		}
		defer mg.Close()
		if err := mg.Down(steps); err != nil {
			return err
		}
		log.Printf("rolled back %d migration(s)", steps)
	case "version":
		mg, err := database.NewMigrator(cfg.MigrateURL())
		if err != nil {
			return err
		}
		defer mg.Close()
		version, dirty, err := mg.Version()
		if err != nil {
			return err
		}
		log.Printf("version=%d dirty=%t", version, dirty)
	case "status":
		status, err := database.GetSchemaStatus(cfg)
		if err != nil {
			return fmt.Errorf("schema status failed: %w", err)
		}
		log.Printf("mode=%s env=%s driver=%s run_sql=%t run_auto=%t version=%d dirty=%t",
			status.Mode, status.Environment, status.Driver, status.WillRunSQL, status.WillRunAutoMigrate,
			status.Version, status.Dirty)
		files, err := database.MigrationFiles()
		if err != nil {
			return err
		}
		for _, f := range files {
			log.Printf("migration: %s", f)
		}
	case "auto":
		db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: false})
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		cfg.DBSchemaMode = database.SchemaModeAuto
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			return fmt.Errorf("auto schema apply failed: %w", err)
		}
		log.Println("automigrations applied")
	default:
		return usage()
	}
	return nil
}
