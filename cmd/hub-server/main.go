package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/edhub/edhub/internal/config"
	"github.com/edhub/edhub/internal/domain/bed"
	"github.com/edhub/edhub/internal/domain/notification"
	"github.com/edhub/edhub/internal/domain/patient"
	"github.com/edhub/edhub/internal/domain/staff"
	"github.com/edhub/edhub/internal/domain/task"
	"github.com/edhub/edhub/internal/hub"
	"github.com/edhub/edhub/internal/platform/auth"
	"github.com/edhub/edhub/internal/platform/db"
	"github.com/edhub/edhub/internal/platform/locking"
	"github.com/edhub/edhub/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hub-server",
		Short: "Emergency department coordination hub",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the coordination hub server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Database
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Token verification
	var verifier auth.Verifier
	if cfg.JWTSecret != "" {
		verifier = auth.NewJWTVerifier(auth.JWTConfig{
			Secret:   []byte(cfg.JWTSecret),
			Issuer:   cfg.AuthIssuer,
			Audience: cfg.AuthAudience,
		})
	} else {
		// Development only; Validate rejects a missing secret elsewhere.
		logger.Warn().Msg("JWT_SECRET unset, using static dev tokens")
		static := auth.NewStaticVerifier()
		verifier = static
	}

	// Domain services
	locks := locking.NewKeyMutex()
	bedRepo := bed.NewRepoPG(pool)
	patientRepo := patient.NewRepoPG(pool)
	staffRepo := staff.NewRepoPG(pool)
	taskRepo := task.NewRepoPG(pool)
	notifRepo := notification.NewRepoPG(pool)

	bedSvc := bed.NewService(bedRepo, patientRepo, locks)
	patientSvc := patient.NewService(patientRepo, bedRepo, locks)
	taskSvc := task.NewService(taskRepo, locks)

	// Hub
	registry := hub.NewRegistry()
	router := hub.NewRouter(registry, logger)
	notifier := notification.NewDispatcher(notifRepo, staffRepo, router, logger, cfg.NotifRetention)
	dispatcher := hub.NewDispatcher(router, registry, patientSvc, bedSvc, taskSvc, notifier, logger, cfg.CommandTimeout)
	wsHandler := hub.NewHandler(registry, router, dispatcher, verifier, logger, cfg.AuthGracePeriod, cfg.SendBuffer)

	go notifier.RunJanitor(ctx, cfg.NotifSweep)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Socket endpoint; authentication happens inside the session handshake.
	wsHandler.RegisterRoutes(e)

	// REST surface
	api := e.Group("/api", auth.Middleware(verifier))
	patient.NewHandler(patientSvc).RegisterRoutes(api)
	notification.NewHandler(notifier).RegisterRoutes(api)

	e.GET("/healthz", db.HealthHandler(pool, registry))

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
