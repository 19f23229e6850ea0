package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dhvani-data/annotation.report/internal/api"
	"github.com/dhvani-data/annotation.report/internal/db"
)

func runServe() {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	dbFile := fs.String("db", "annotations.db", "Path to the SQLite database file")
	configPath := fs.String("config", "", "Path to an engine config JSON file")
	listen := fs.String("listen", ":8080", "HTTP listen address")
	workerInterval := fs.Duration("worker-interval", 0, "Aggregation worker interval (default: configured value)")
	fs.Parse(os.Args[1:])

	if *listen == "" {
		log.Fatal("HTTP listen address is required")
	}

	cfg := loadConfig(*configPath)

	// The server refuses to start on a stale schema rather than
	// migrating it silently.
	database, err := db.NewDBWithMigrationCheck(*dbFile, true)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	interval := *workerInterval
	if interval <= 0 {
		interval = cfg.GetWorkerInterval()
	}

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Periodic aggregation keeps consensus labels fresh as imports land.
	worker := db.NewAggregationWorker(database, aggregateConfig(cfg))
	worker.Interval = interval
	worker.Start()
	defer worker.Stop()
	log.Printf("Aggregation worker running every %s", interval)

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := api.NewServer(database, cfg).ServeMux()

		// mount the admin debugging routes
		database.AttachAdminRoutes(mux)

		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		// Start server in a goroutine so it doesn't block
		go func() {
			log.Printf("Starting HTTP server on %s", *listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		// Wait for context cancellation to shut down server
		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		// Create a shutdown context with a shorter timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			// Force close the server if graceful shutdown fails
			if err := server.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}

		log.Printf("HTTP server routine stopped")
	}()

	// Wait for all goroutines to finish
	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
