// Command migrate applies the content_items schema migrations.
//
// Usage:
//
//	go run ./db -direction=up
//	go run ./db -direction=down -steps=1
//	go run ./db -force=1          # clear dirty state at a known version
//	go run ./db -force-dirty      # re-stamp the current version if dirty
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

const migrationsSource = "file://db/migrations"

func main() {
	msg, err := run(os.Args[1:], liveDeps())
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(msg)
}

// toolDeps lets tests stand in for env loading and the database connection.
type toolDeps struct {
	loadEnv func(...string) error
	getenv  func(string) string
	openDB  func(driverName, dsn string) (*sql.DB, error)
	apply   func(db *sql.DB, direction string, steps int) error
}

func liveDeps() toolDeps {
	return toolDeps{
		loadEnv: godotenv.Load,
		getenv:  os.Getenv,
		openDB:  sql.Open,
		apply:   runMigrations,
	}
}

type cliOptions struct {
	direction  string
	steps      int
	force      int
	forceDirty bool
}

func parseArgs(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	var o cliOptions
	fs.StringVar(&o.direction, "direction", "up", "Migration direction: up or down")
	fs.IntVar(&o.steps, "steps", 0, "Number of migration steps (0 = all)")
	fs.IntVar(&o.force, "force", -1, "Force set migration version (clears dirty state). Example: -force=1")
	fs.BoolVar(&o.forceDirty, "force-dirty", false, "If the database is dirty, re-stamp the current version and exit")
	if err := fs.Parse(args); err != nil {
		return cliOptions{}, err
	}
	if o.direction != "up" && o.direction != "down" {
		return cliOptions{}, fmt.Errorf("invalid direction %q (must be 'up' or 'down')", o.direction)
	}
	return o, nil
}

type migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Force(version int) error
	Version() (version uint, dirty bool, err error)
}

// Factory vars are swapped out in tests so no real Postgres is needed.
var newPGDriver = func(db *sql.DB) (migratedb.Driver, error) {
	return postgres.WithInstance(db, &postgres.Config{})
}

var newMigrateInstance = func(sourceURL, databaseName string, driver migratedb.Driver) (migrator, error) {
	return migrate.NewWithDatabaseInstance(sourceURL, databaseName, driver)
}

func newMigrator(db *sql.DB) (migrator, error) {
	driver, err := newPGDriver(db)
	if err != nil {
		return nil, fmt.Errorf("create migration driver: %w", err)
	}
	m, err := newMigrateInstance(migrationsSource, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("create migrate instance: %w", err)
	}
	return m, nil
}

func run(args []string, d toolDeps) (string, error) {
	o, err := parseArgs(args)
	if err != nil {
		return "", err
	}

	if d.loadEnv != nil {
		_ = d.loadEnv()
	}

	databaseURL := ""
	if d.getenv != nil {
		databaseURL = d.getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		return "", fmt.Errorf("DATABASE_URL environment variable is required")
	}

	if d.openDB == nil {
		return "", fmt.Errorf("openDB dependency is required")
	}
	db, err := d.openDB("postgres", databaseURL)
	if err != nil {
		return "", fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	if o.force >= 0 || o.forceDirty {
		return forceVersion(db, o)
	}

	if d.apply == nil {
		return "", fmt.Errorf("apply dependency is required")
	}
	err = d.apply(db, o.direction, o.steps)
	if err == migrate.ErrNoChange {
		return "No migrations to apply", nil
	}
	if err != nil {
		return "", fmt.Errorf("migration failed: %w", err)
	}
	return fmt.Sprintf("Migration %s completed successfully", o.direction), nil
}

// forceVersion stamps the schema version without running migrations, for
// recovering from a dirty state after a failed migration.
func forceVersion(db *sql.DB, o cliOptions) (string, error) {
	m, err := newMigrator(db)
	if err != nil {
		return "", err
	}
	if o.forceDirty {
		v, dirty, verr := m.Version()
		if verr != nil {
			return "", fmt.Errorf("read migration version: %w", verr)
		}
		if !dirty {
			return "Database is not dirty (no force needed)", nil
		}
		if err := m.Force(int(v)); err != nil {
			return "", fmt.Errorf("force dirty version %d: %w", v, err)
		}
		return fmt.Sprintf("Forced dirty database to version %d", v), nil
	}
	if err := m.Force(o.force); err != nil {
		return "", fmt.Errorf("force version %d: %w", o.force, err)
	}
	return fmt.Sprintf("Forced database to version %d", o.force), nil
}

func runMigrations(db *sql.DB, direction string, steps int) error {
	m, err := newMigrator(db)
	if err != nil {
		return err
	}
	return applyDirection(m, direction, steps)
}

func applyDirection(m migrator, direction string, steps int) error {
	switch direction {
	case "up":
		if steps > 0 {
			return m.Steps(steps)
		}
		return m.Up()
	case "down":
		if steps > 0 {
			return m.Steps(-steps)
		}
		return m.Down()
	default:
		return fmt.Errorf("invalid direction %q", direction)
	}
}
