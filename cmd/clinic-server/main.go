package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mediconsult/mediconsult/internal/config"
	"github.com/mediconsult/mediconsult/internal/domain/identity"
	"github.com/mediconsult/mediconsult/internal/domain/patient"
	"github.com/mediconsult/mediconsult/internal/domain/scheduling"
	"github.com/mediconsult/mediconsult/internal/platform/auth"
	"github.com/mediconsult/mediconsult/internal/platform/backup"
	"github.com/mediconsult/mediconsult/internal/platform/db"
	"github.com/mediconsult/mediconsult/internal/platform/middleware"
	"github.com/mediconsult/mediconsult/internal/platform/reporting"
)

// Bootstrap admin credentials, created by `seed-admin` on first run.
const (
	seedAdminNationalID = "12345678"
	seedAdminPassword   = "admin123"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "clinic-server",
		Short: "University medical clinic API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedAdminCmd())
	rootCmd.AddCommand(backupCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the clinic API server",
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

			ctx := context.Background()
			pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, dir).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s).\n", count)
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

			ctx := context.Background()
			pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, dir).Status(ctx)
			if err != nil {
				return fmt.Errorf("migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
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

func seedAdminCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the bootstrap administrator account if it does not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := identity.NewService(identity.NewUserRepoPG(pool), zerolog.Nop())
			admin, created, err := svc.EnsureAdmin(ctx, seedAdminNationalID, seedAdminPassword)
			if err != nil {
				return err
			}
			if created {
				fmt.Printf("Administrator %s created (national ID %s).\n", admin.Name, seedAdminNationalID)
				fmt.Println("Change the default password after first login.")
			} else {
				fmt.Println("Administrator already exists, nothing to do.")
			}
			return nil
		},
	}
}

func backupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Export or import the user directory as CSV",
	}

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write all users to a CSV file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("file")

			ctx := context.Background()
			cfg, pool, err := connectWithConfig(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()
			if path == "" {
				path = cfg.BackupCSVPath
			}

			f, err := os.Create(path)
			if err != nil {
				return err
			}
			defer f.Close()

			svc := backup.NewService(identity.NewUserRepoPG(pool), zerolog.Nop())
			n, err := svc.Export(ctx, f)
			if err != nil {
				return err
			}
			fmt.Printf("Exported %d user(s) to %s.\n", n, path)
			return nil
		},
	}
	exportCmd.Flags().String("file", "", "Output path (defaults to BACKUP_CSV_PATH)")
	cmd.AddCommand(exportCmd)

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Load users from a CSV file, skipping existing identifiers",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("file")

			ctx := context.Background()
			cfg, pool, err := connectWithConfig(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()
			if path == "" {
				path = cfg.BackupCSVPath
			}

			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			svc := backup.NewService(identity.NewUserRepoPG(pool), zerolog.Nop())
			res, err := svc.Import(ctx, f)
			if err != nil {
				return err
			}
			fmt.Printf("Loaded %d, skipped %d, errors %d.\n", res.Loaded, res.Skipped, res.Errors)
			return nil
		},
	}
	importCmd.Flags().String("file", "", "Input path (defaults to BACKUP_CSV_PATH)")
	cmd.AddCommand(importCmd)

	return cmd
}

func connect(ctx context.Context) (*pgxpool.Pool, error) {
	_, pool, err := connectWithConfig(ctx)
	return pool, err
}

func connectWithConfig(ctx context.Context) (*config.Config, *pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, nil, err
	}
	return cfg, pool, nil
}

func runServer() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("refusing to start")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Repositories and services
	userRepo := identity.NewUserRepoPG(pool)
	identitySvc := identity.NewService(userRepo, logger)

	profileRepo := patient.NewRepoPG(pool)
	patientSvc := patient.NewService(profileRepo, userRepo, logger)

	apptRepo := scheduling.NewAppointmentRepoPG(pool)
	consultRepo := scheduling.NewConsultationRepoPG(pool)
	schedulingSvc := scheduling.NewService(apptRepo, consultRepo, userRepo,
		scheduling.PoolTxRunner(pool), logger)

	reportingSvc := reporting.NewService(reporting.NewRepoPG(pool))
	backupSvc := backup.NewService(userRepo, logger)

	issuer := auth.NewTokenIssuer(cfg.SessionSecret,
		time.Duration(cfg.SessionTTL)*time.Minute)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.BodyLimit("1M"))
	e.Use(middleware.RequestTimeout(30 * time.Second))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Unauthenticated routes get the tighter login limit.
	public := e.Group("/api/v1", middleware.RateLimit(middleware.LoginRateLimitConfig()))

	api := e.Group("/api/v1")
	api.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
	api.Use(auth.Middleware(issuer, identitySvc))

	identity.NewHandler(identitySvc, issuer).RegisterRoutes(public, api)
	patient.NewHandler(patientSvc).RegisterRoutes(api)
	scheduling.NewHandler(schedulingSvc).RegisterRoutes(api)
	reporting.NewHandler(reportingSvc).RegisterRoutes(api)
	backup.NewHandler(backupSvc).RegisterRoutes(api)

	e.GET("/health", db.HealthHandler(pool))

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
