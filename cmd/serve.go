package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mira-backend/config"
	"mira-backend/database"
	"mira-backend/firebase"
	"mira-backend/logger"
	"mira-backend/routes"
	"mira-backend/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var servePort string

// mira serve
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the storefront API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.ValidateEnv(); err != nil {
			return err
		}
		cfg := config.Load()
		if servePort != "" {
			cfg.Port = servePort
		}
		return runServer(cmd.Context(), cfg)
	},
}

// mira migrate [--seed]
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and the default admin",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		db, err := database.Connect(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		if err := database.Migrate(db); err != nil {
			return err
		}
		if err := database.CreateDefaultAdmin(db, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			return err
		}
		fmt.Fprintln(out(cmd), "Migrations applied.")

		if seed, _ := cmd.Flags().GetBool("seed"); seed {
			n, err := database.SeedDemoCatalog(db)
			if err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "Seeded %d demo products.\n", n)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "", "listen port (overrides PORT)")
	migrateCmd.Flags().Bool("seed", false, "insert demo products into an empty catalog")
}

// cartLocker returns a Redis lock when REDIS_ADDR is reachable, otherwise
// nil so the cart service falls back to in-process locks.
func cartLocker(ctx context.Context, cfg config.Config) (services.Locker, func()) {
	if cfg.RedisAddr == "" {
		return nil, func() {}
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable, cart locks are local to this process", "addr", cfg.RedisAddr, "error", err)
		rdb.Close()
		return nil, func() {}
	}
	logger.Info("cart locks backed by redis", "addr", cfg.RedisAddr)
	return services.NewRedisLocker(rdb), func() { rdb.Close() }
}

func imageStorage(ctx context.Context, cfg config.Config) firebase.StorageClient {
	if cfg.FirebaseBucket == "" {
		return nil
	}
	app, err := firebase.Init(ctx)
	if err != nil {
		logger.Warn("firebase unavailable, image uploads disabled", "error", err)
		return nil
	}
	return firebase.NewStorageClient(app, cfg.FirebaseBucket)
}

func runServer(ctx context.Context, cfg config.Config) error {
	log := logger.Setup(cfg.AppEnv, os.Stdout)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}
	if err := database.CreateDefaultAdmin(db, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Warn("could not create default admin", "error", err)
	}

	locker, closeLocker := cartLocker(ctx, cfg)
	defer closeLocker()

	r := gin.New()
	// Limit multipart form memory to 10MB
	r.MaxMultipartMemory = 10 << 20
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID", "Retry-After"},
		AllowCredentials: true,
	}))

	limiter := routes.SetupRoutes(r, routes.Deps{
		DB:                 db,
		Cart:               services.NewCartService(db, locker),
		Storage:            imageStorage(ctx, cfg),
		TokenTTL:           cfg.TokenTTL,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		SyncConcurrency:    cfg.SyncConcurrency,
	})
	defer limiter.Stop()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-sigCtx.Done():
	}
	log.Info("shutting down server")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Warn("error closing database connection", "error", err)
		}
	}
	log.Info("server exited gracefully")
	return nil
}
