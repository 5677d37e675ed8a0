/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the Jaldhara water billing server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (file, environment, flags)
  2. Build the zap logger
  3. Initialize SQLite store
  4. Create API handler and billing scheduler
  5. Start server with graceful shutdown

CONFIGURATION:
  Settings resolve in order: flags > environment > config file > defaults.
  The config file is optional; by default "jaldhara.yaml" is looked up in
  the working directory. Environment variables use the JALDHARA_ prefix
  (JALDHARA_PORT, JALDHARA_DB, ...).

  port               HTTP server port (default: 8080)
  db                 SQLite database path (default: jaldhara.db)
                     Use ":memory:" for an in-memory database
  log_level          zap level: debug, info, warn, error (default: info)
  scheduler.enabled  Automatic monthly billing runs (default: true)
  scheduler.interval Check interval (default: 1h)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the billing scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/jaldhara.db"

  # Run with in-memory database
  ./server -db=":memory:"

  # Run on different port
  ./server -port=3000

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jaldhara/billing-engine/api"
	"github.com/jaldhara/billing-engine/store/sqlite"
)

func main() {
	cfg := loadConfig()

	logger, err := buildLogger(cfg.GetString("log_level"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Initialize store
	store, err := sqlite.New(cfg.GetString("db"))
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer store.Close()

	// Initialize handler and scheduler
	handler := api.NewHandler(store, logger)

	scheduler := api.NewBillingScheduler(store, handler, logger)
	scheduler.Enabled = cfg.GetBool("scheduler.enabled")
	scheduler.CheckInterval = cfg.GetDuration("scheduler.interval")
	scheduler.Start()
	defer scheduler.Stop()

	// Create router
	router := api.NewRouter(handler)

	port := cfg.GetInt("port")
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server starting",
			zap.String("addr", fmt.Sprintf("http://localhost:%d", port)),
			zap.String("db", cfg.GetString("db")),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

// loadConfig resolves settings from flags, environment and an optional
// config file, in that order of precedence.
func loadConfig() *viper.Viper {
	port := flag.Int("port", 0, "HTTP server port")
	dbPath := flag.String("db", "", "SQLite database path")
	configFile := flag.String("config", "", "config file path")
	flag.Parse()

	v := viper.New()
	v.SetDefault("port", 8080)
	v.SetDefault("db", "jaldhara.db")
	v.SetDefault("log_level", "info")
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.interval", time.Hour)

	v.SetEnvPrefix("JALDHARA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if *configFile != "" {
		v.SetConfigFile(*configFile)
		if err := v.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to read config %s: %v\n", *configFile, err)
			os.Exit(1)
		}
	} else {
		v.SetConfigName("jaldhara")
		v.AddConfigPath(".")
		// Missing default config is fine; defaults and env apply.
		_ = v.ReadInConfig()
	}

	if *port != 0 {
		v.Set("port", *port)
	}
	if *dbPath != "" {
		v.Set("db", *dbPath)
	}
	return v
}

func buildLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}
