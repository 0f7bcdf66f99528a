// Package main loads a JSON catalog fixture into a SQLite or PostgreSQL store.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/onnwee/forkful/internal/db"
	"github.com/onnwee/forkful/internal/food"
	"github.com/onnwee/forkful/internal/middleware"
)

func main() {
	driver := flag.String("driver", db.DriverSQLite, "catalog database driver (sqlite or postgres)")
	dsn := flag.String("dsn", "", "database connection string or SQLite file path")
	fixturePath := flag.String("file", "", "path to the JSON fixture")
	help := flag.Bool("help", false, "display help message")
	flag.Parse()

	if *help {
		fmt.Println("Forkful Catalog Seeder")
		fmt.Println()
		fmt.Println("Usage: seed -driver sqlite -dsn catalog.db -file fixture.json")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	logger := middleware.NewLogger(os.Getenv("ENV"))
	slog.SetDefault(logger)

	if *dsn == "" || *fixturePath == "" {
		logger.Error("both -dsn and -file are required")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	fixture, err := food.LoadFixture(*fixturePath)
	if err != nil {
		logger.Error("failed to load fixture", "error", err)
		os.Exit(1)
	}
	assigned := assignIDs(fixture)

	if err := seed(ctx, *driver, *dsn, fixture); err != nil {
		logger.Error("seed failed", "error", err)
		os.Exit(1)
	}

	logger.Info("catalog seeded",
		"driver", *driver,
		"restaurants", len(fixture.Restaurants),
		"items", len(fixture.Items),
		"reviews", len(fixture.Reviews),
		"generated_ids", assigned,
	)
}

// assignIDs gives every item without an id a random UUID and returns how
// many were assigned. Reviews cannot reference such items.
func assignIDs(fixture *food.Fixture) int {
	n := 0
	for _, item := range fixture.Items {
		if item.ID == "" {
			item.ID = uuid.NewString()
			n++
		}
	}
	return n
}

// seed opens the database and inserts the fixture. The SQLite schema is
// created if needed; PostgreSQL must already be migrated.
func seed(ctx context.Context, driver, dsn string, fixture *food.Fixture) error {
	var seeder food.Seeder
	switch driver {
	case db.DriverSQLite:
		store, err := food.OpenSQLiteStore(ctx, dsn)
		if err != nil {
			return err
		}
		defer store.DB().Close()
		seeder = store
	default:
		conn, err := db.Open(ctx, driver, dsn, db.DefaultPoolConfig())
		if err != nil {
			return err
		}
		defer conn.Close()
		seeder = food.NewPostgresStore(conn)
	}

	return seeder.Seed(ctx, fixture)
}
