// api/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"quizpulse/api/analytics"
	"quizpulse/api/config"
	"quizpulse/api/database"
	"quizpulse/api/handlers"
	"quizpulse/api/ingest"
	"quizpulse/api/middleware"
	"quizpulse/api/store"
)

func main() {
	// Load .env file at the very start
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading .env: %v", err)
	}

	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// --- Initialize the configured storage backend ---
	// The backend is an explicit choice; if it cannot be reached we exit
	// rather than fall back to a different store.
	analyticsStore, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to open %s storage backend: %v", cfg.Storage.Backend, err)
	}
	defer analyticsStore.Close()
	log.Printf("Using %s storage backend", cfg.Storage.Backend)

	// --- Initialize core services ---
	recorder := ingest.NewRecorder(analyticsStore, cfg.Funnel.TerminalStepName, cfg.Funnel.TerminalStepNumber)
	statsService := analytics.NewService(analyticsStore)

	// --- Initialize handlers ---
	trackHandlers := handlers.NewTrackHandlers(recorder)
	statsHandlers := handlers.NewStatsHandlers(statsService, cfg.Dashboard.DefaultDays)
	exportHandlers := handlers.NewExportHandlers(analyticsStore)
	adminHandlers := handlers.NewAdminHandlers(analyticsStore)
	authHandlers := handlers.NewAuthHandlers(cfg.Dashboard.PasswordHash, cfg.Dashboard.JWTSecret)

	r := gin.Default()

	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigin))

	api := r.Group("/api")
	{
		// Dashboard authentication
		api.POST("/auth/login", authHandlers.Login)
		api.POST("/auth/logout", authHandlers.Logout)

		analyticsGroup := api.Group("/analytics")
		{
			// Tracking is open: the quiz frontend fires these anonymously.
			analyticsGroup.POST("/track", trackHandlers.TrackEvent)

			// Dashboard surfaces require a valid operator token.
			protected := analyticsGroup.Group("/")
			protected.Use(middleware.AuthRequired([]byte(cfg.Dashboard.JWTSecret), cfg.Dashboard.APIKey))
			{
				protected.GET("/stats", statsHandlers.GetStats)
				protected.GET("/export", exportHandlers.Export)
				protected.POST("/clear", adminHandlers.ClearData)
			}
		}
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Printf("Quiz analytics API starting on http://localhost:%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("API server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting.")
}

// openStore constructs the storage adapter named by the configuration and
// initializes its schema. On an init failure the connection is closed before
// the error is returned, so the caller can exit without leaking it.
func openStore(cfg *config.Config) (store.AnalyticsStore, error) {
	var analyticsStore store.AnalyticsStore

	switch cfg.Storage.Backend {
	case config.BackendDuckDB:
		client, err := database.NewDuckDB(cfg.Storage.DuckDBPath)
		if err != nil {
			return nil, err
		}
		analyticsStore = store.NewDuckDBStore(client.DB)

	case config.BackendPostgres:
		client, err := database.NewPostgresDB(cfg.Storage.DatabaseURL)
		if err != nil {
			return nil, err
		}
		analyticsStore = store.NewPostgresStore(client.DB)

	case config.BackendClickHouse:
		ch := cfg.Storage.ClickHouse
		client, err := database.NewClickHouseDB(database.ClickHouseOptions{
			Host:     ch.Host,
			Port:     ch.Port,
			Database: ch.Database,
			Username: ch.Username,
			Password: ch.Password,
		})
		if err != nil {
			return nil, err
		}
		analyticsStore = store.NewClickHouseStore(client)

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	initCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := analyticsStore.Init(initCtx); err != nil {
		analyticsStore.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return analyticsStore, nil
}
