package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/laplens-data/laplens/internal/api"
	"github.com/laplens-data/laplens/internal/config"
	"github.com/laplens-data/laplens/internal/db"
	"github.com/laplens-data/laplens/internal/loader"
	"github.com/laplens-data/laplens/internal/version"
)

var (
	listen      = flag.String("listen", ":8080", "HTTP listen address")
	datasetsDir = flag.String("datasets", "datasets", "Directory containing telemetry dataset files")
	dbFile      = flag.String("db", "laplens.db", "Path to the SQLite database file")
	speedUnits  = flag.String("units", "", "Default speed units (kmh or mph); overrides the config file")
	configFile  = flag.String("config", "", "Path to an analysis config JSON file")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("laplens %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	// Subcommand dispatch: "laplens migrate up" etc. manage the schema
	// directly and exit.
	if args := flag.Args(); len(args) > 0 && args[0] == "migrate" {
		db.RunMigrateCommand(args[1:], *dbFile)
		return
	}

	if *listen == "" {
		log.Fatal("Listen address is required")
	}
	if *datasetsDir == "" {
		log.Fatal("Datasets directory is required")
	}

	analysisCfg := &config.AnalysisConfig{}
	if *configFile != "" {
		loaded, err := config.LoadAnalysisConfig(*configFile)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		analysisCfg = loaded
	}
	units := analysisCfg.GetUnits()
	if *speedUnits != "" {
		units = *speedUnits
	}

	database, err := db.NewDB(*dbFile)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	telemetryLoader := loader.New(*datasetsDir)

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Background ingest: scan the datasets directory on an interval and
	// summarize anything new.
	worker := db.NewIngestWorker(database, telemetryLoader)
	worker.Interval = analysisCfg.GetIngestInterval()
	worker.LapLength = analysisCfg.GetLapLengthMeters()
	worker.SectorCount = analysisCfg.GetSectorCount()
	worker.ConsistencyPct = analysisCfg.GetConsistencyPct()
	if n, err := worker.RunOnce(ctx); err != nil {
		log.Printf("initial ingest failed: %v", err)
	} else {
		log.Printf("initial ingest complete: %d dataset(s)", n)
	}
	worker.Start()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := api.NewServer(database, telemetryLoader, units).ServeMux()
		database.AttachAdminRoutes(mux)

		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		// Start server in a goroutine so it doesn't block
		go func() {
			log.Printf("laplens %s listening on %s", version.Version, *listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		// Wait for context cancellation to shut down server
		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			if err := server.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}

		log.Printf("HTTP server routine stopped")
	}()

	<-ctx.Done()
	worker.Stop()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
	os.Exit(0)
}
