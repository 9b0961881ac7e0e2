/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the commission engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Initialize SQLite store (seed a default rule set if empty)
  3. Create API handler with dependencies
  4. Configure HTTP router
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port       HTTP server port (default: 8080)
  -db         SQLite database path (default: commissions.db)
              Use ":memory:" for an in-memory database
  -scheduler  Enable the periodic generation trigger (default: off)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler, if running
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/commissions.db"

  # Run with in-memory database and the monthly trigger
  ./server -db=":memory:" -scheduler

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/commission-engine/api"
	"github.com/warp/commission-engine/factory"
	"github.com/warp/commission-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "commissions.db", "SQLite database path")
	schedulerOn := flag.Bool("scheduler", false, "Enable the periodic generation trigger")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Seed a default rule set when none is configured yet.
	ctx := context.Background()
	rules, err := store.ListTierRules(ctx)
	if err != nil {
		log.Fatalf("Failed to load tier rules: %v", err)
	}
	if len(rules) == 0 {
		seeded, err := factory.ParseRuleSet(factory.DefaultRuleSetJSON())
		if err != nil {
			log.Fatalf("Default rule set is invalid: %v", err)
		}
		if err := store.ReplaceTierRules(ctx, seeded); err != nil {
			log.Fatalf("Failed to seed tier rules: %v", err)
		}
		log.Printf("Seeded default tier rule set (%d tiers)", len(seeded))
	}

	// Initialize handler and router
	handler := api.NewHandler(store)
	router := api.NewRouter(handler)

	// Optional external trigger for monthly generation
	scheduler := api.NewGenerationScheduler(handler.Generator)
	scheduler.Enabled = *schedulerOn
	scheduler.Start()
	defer scheduler.Stop()

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://localhost:%d", *port)
		log.Printf("API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
