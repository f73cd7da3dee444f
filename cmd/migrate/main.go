// Command migrate runs schema operations for Warbler.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"warbler/internal/config"
	"warbler/internal/database"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() error {
	return fmt.Errorf("usage: go run ./cmd/migrate <up|ping>")
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

	dialector, err := database.Dialector(cfg)
	if err != nil {
		return err
	}
	db, err := database.Open(dialector)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(flag.Arg(0))) {
	case "up":
		if err := database.Migrate(db); err != nil {
			return err
		}
		log.Println("automigrations applied")
	case "ping":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := database.Ping(ctx, db); err != nil {
			return fmt.Errorf("database unreachable: %w", err)
		}
		log.Printf("database reachable (%s)", db.Dialector.Name())
	default:
		return usage()
	}
	return nil
}
