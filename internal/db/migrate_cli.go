package db

import (
	"fmt"
	"log"
	"os"
)

// RunMigrateCommand handles the 'migrate' subcommand dispatching
func RunMigrateCommand(args []string, dbPath string) {
	if len(args) < 1 {
		PrintMigrateHelp()
		os.Exit(1)
	}

	action := args[0]

	// Open database connection without running schema initialization
	// (migrations will manage the schema)
	database, err := OpenDB(dbPath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	switch action {
	case "up":
		handleMigrateUp(database)

	case "down":
		handleMigrateDown(database)

	case "status":
		handleMigrateStatus(database)

	case "force":
		if len(args) < 2 {
			log.Fatal("Usage: laplens migrate force <version_number>")
		}
		handleMigrateForce(database, args[1])

	case "help":
		PrintMigrateHelp()

	default:
		fmt.Printf("Unknown migrate action: %s\n\n", action)
		PrintMigrateHelp()
		os.Exit(1)
	}
}

// handleMigrateUp applies all pending migrations
func handleMigrateUp(database *DB) {
	log.Printf("Running migrations...")
	if err := database.MigrateUp(); err != nil {
		log.Fatalf("Migration up failed: %v", err)
	}
	log.Println("✓ All migrations applied successfully")

	// Show current version
	version, dirty, _ := database.MigrateVersion()
	log.Printf("Current version: %d (dirty: %v)", version, dirty)
}

// handleMigrateDown rolls back one migration
func handleMigrateDown(database *DB) {
	log.Printf("Rolling back one migration...")
	if err := database.MigrateDown(); err != nil {
		log.Fatalf("Migration down failed: %v", err)
	}
	log.Println("✓ Migration rolled back successfully")

	version, dirty, _ := database.MigrateVersion()
	log.Printf("Current version: %d (dirty: %v)", version, dirty)
}

// handleMigrateStatus displays the current migration status
func handleMigrateStatus(database *DB) {
	version, dirty, err := database.MigrateVersion()
	if err != nil {
		log.Fatalf("Failed to get migration status: %v", err)
	}

	fmt.Println("=== Migration Status ===")
	fmt.Printf("Current version: %d\n", version)
	fmt.Printf("Dirty: %v\n", dirty)

	if dirty {
		fmt.Println("\n⚠️  WARNING: Database is in a dirty state!")
		fmt.Println("A migration failed mid-execution. You may need to:")
		fmt.Println("  1. Inspect the database manually")
		fmt.Println("  2. Fix any issues")
		fmt.Println("  3. Run: laplens migrate force <version>")
	}
}

// handleMigrateForce forces the migration version (recovery only)
func handleMigrateForce(database *DB, versionStr string) {
	var forceVersion int
	if _, err := fmt.Sscanf(versionStr, "%d", &forceVersion); err != nil {
		log.Fatalf("Invalid version number: %s", versionStr)
	}

	fmt.Printf("⚠️  WARNING: Forcing migration version to %d\n", forceVersion)
	fmt.Println("This should only be used to recover from a dirty migration state.")
	fmt.Print("Continue? [y/N]: ")

	var response string
	fmt.Scanln(&response)
	if response != "y" && response != "Y" {
		log.Println("Aborted")
		os.Exit(0)
	}

	if err := database.MigrateForce(forceVersion); err != nil {
		log.Fatalf("Force migration failed: %v", err)
	}
	log.Printf("✓ Migration version forced to %d", forceVersion)
}

// PrintMigrateHelp displays the help message for the migrate command
func PrintMigrateHelp() {
	fmt.Println("Database Migration Commands")
	fmt.Println()
	fmt.Println("Usage: laplens migrate <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  up              Apply all pending migrations")
	fmt.Println("  down            Rollback one migration")
	fmt.Println("  status          Show current migration status and version")
	fmt.Println("  force <N>       Force migration version to N (recovery only)")
	fmt.Println("  help            Show this help message")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  laplens migrate up")
	fmt.Println("  laplens migrate down")
	fmt.Println("  laplens migrate status")
	fmt.Println("  laplens migrate force 1")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -db <path>    Path to database file (default: laplens.db)")
}
