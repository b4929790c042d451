package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/rs/cors"

	"github.com/pulsedash/backend/internal/accounts"
	"github.com/pulsedash/backend/internal/auth"
	"github.com/pulsedash/backend/internal/dispatch"
	"github.com/pulsedash/backend/internal/handlers"
	"github.com/pulsedash/backend/internal/insights"
	"github.com/pulsedash/backend/internal/pkce"
	"github.com/pulsedash/backend/internal/platforms"
	"github.com/pulsedash/backend/internal/prefs"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Root context for background workers and graceful shutdown
	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	// Run migrations on startup
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		log.Fatalf("Failed to init migration driver: %v", err)
	}
	migrator, err := migrate.NewWithDatabaseInstance("file://db/migrations", "postgres", driver)
	if err != nil {
		log.Fatalf("Failed to create migrator: %v", err)
	}
	if err := migrator.Up(); err != nil && err != migrate.ErrNoChange {
		log.Fatalf("Database migration failed: %v", err)
	}
	log.Println("Database is up-to-date")

	logger := log.Default()

	verifiers := pkce.NewStore(pkce.DefaultTTL)
	adapters := platforms.NewRegistry(
		platforms.NewFacebook(platforms.ConfigFromEnv(platforms.Facebook), nil),
		platforms.NewInstagram(platforms.ConfigFromEnv(platforms.Instagram), nil),
		platforms.NewLinkedIn(platforms.ConfigFromEnv(platforms.LinkedIn), nil),
		platforms.NewSnapchat(platforms.ConfigFromEnv(platforms.Snapchat), verifiers, nil),
		platforms.NewTikTok(platforms.ConfigFromEnv(platforms.TikTok), verifiers, nil),
		platforms.NewTwitter(platforms.ConfigFromEnv(platforms.Twitter), verifiers, nil),
		platforms.NewYouTube(platforms.ConfigFromEnv(platforms.YouTube), nil),
	)

	registry := accounts.New(db)
	dispatcher := dispatch.New(registry, adapters, logger)

	h := handlers.New(handlers.Config{
		Accounts:   registry,
		Adapters:   adapters,
		Dispatcher: dispatcher,
		Verifiers:  verifiers,
		Cache:      insights.NewCache(insights.DefaultTTL),
		Generator:  insights.NewGenerator(logger),
		Prefs:      prefs.NewService(db),
		Tokens:     auth.NewHMACValidator(os.Getenv("AUTH_TOKEN_SECRET")),
		Logger:     logger,
	})

	r := mux.NewRouter()
	handlers.RegisterRoutes(h, r)

	// CORS middleware
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "18911"
	}

	srv := &http.Server{
		Handler:      c.Handler(r),
		Addr:         ":" + port,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	// Handle graceful shutdown on SIGINT/SIGTERM
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// Background: periodic metrics sync across all connected accounts
	{
		enabled := os.Getenv("METRICS_SYNC_ENABLED")
		if enabled == "" || enabled == "true" {
			interval := 15 * time.Minute
			if v := os.Getenv("METRICS_SYNC_INTERVAL_SECONDS"); v != "" {
				var secs int
				if _, err := fmt.Sscanf(v, "%d", &secs); err == nil && secs > 0 {
					interval = time.Duration(secs) * time.Second
				}
			}
			go dispatcher.RunWorker(rootCtx, interval)
		} else {
			log.Printf("[SyncWorker] disabled via METRICS_SYNC_ENABLED=%q", enabled)
		}
	}

	go func() {
		<-stop
		log.Println("Shutting down server...")
		cancel()
		ctx, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	log.Printf("Server starting on port %s", port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
	log.Println("Server stopped")
}
