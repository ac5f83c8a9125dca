package main

import (
	"context"
	"errors"
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
	"golang.org/x/crypto/bcrypt"

	"github.com/sirana/sirana/internal/config"
	"github.com/sirana/sirana/internal/domain/assessment"
	"github.com/sirana/sirana/internal/domain/audit"
	"github.com/sirana/sirana/internal/domain/dashboard"
	"github.com/sirana/sirana/internal/domain/disaster"
	"github.com/sirana/sirana/internal/domain/environment"
	"github.com/sirana/sirana/internal/domain/export"
	"github.com/sirana/sirana/internal/domain/needs"
	"github.com/sirana/sirana/internal/domain/patient"
	"github.com/sirana/sirana/internal/domain/user"
	"github.com/sirana/sirana/internal/platform/auth"
	"github.com/sirana/sirana/internal/platform/db"
	"github.com/sirana/sirana/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "sirana-server",
		Short: "SIRANA disaster health surveillance API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
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
			if dir == "" {
				dir = cfg.MigrationsDir
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
	upCmd.Flags().String("dir", "", "Path to migrations directory (defaults to MIGRATIONS_DIR)")
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
			if dir == "" {
				dir = cfg.MigrationsDir
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
	statusCmd.Flags().String("dir", "", "Path to migrations directory (defaults to MIGRATIONS_DIR)")
	cmd.AddCommand(statusCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Rollback last migration (not supported)",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("WARNING: migrate down is destructive and not supported by the built-in runner.")
			fmt.Println("Restore the database from a backup instead.")
			return nil
		},
	})

	return cmd
}

// seedAccounts are the bootstrap logins. Passwords here are development
// defaults and must be rotated before the server faces a real deployment.
var seedAccounts = []struct {
	Email      string
	Password   string
	Name       string
	EmployeeID string
	Role       string
	JobTitle   string
	WorkUnit   string
	Phone      string
}{
	{
		Email:      "admin@sirana.go.id",
		Password:   "admin123",
		Name:       "Super Administrator",
		EmployeeID: "199001012020011001",
		Role:       auth.RoleAdmin,
		JobTitle:   "Administrator Sistem",
		WorkUnit:   "Dinas Kesehatan Pusat",
		Phone:      "081234567890",
	},
	{
		Email:      "petugas@sirana.go.id",
		Password:   "petugas123",
		Name:       "Dr. Ahmad Hidayat",
		EmployeeID: "199205152022011002",
		Role:       auth.RoleFieldOfficer,
		JobTitle:   "Dokter Umum",
		WorkUnit:   "Puskesmas Kota",
		Phone:      "081298765432",
	},
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert bootstrap accounts and a sample disaster event",
		RunE: func(cmd *cobra.Command, args []string) error {
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

			userRepo := user.NewRepoPG(pool)
			for _, acc := range seedAccounts {
				existing, err := userRepo.GetByEmail(ctx, acc.Email)
				if err != nil && !errors.Is(err, user.ErrNotFound) {
					return fmt.Errorf("look up account %s: %w", acc.Email, err)
				}
				if existing != nil {
					fmt.Printf("Account %s already exists, skipping.\n", acc.Email)
					continue
				}

				hash, err := bcrypt.GenerateFromPassword([]byte(acc.Password), 12)
				if err != nil {
					return fmt.Errorf("hash password for %s: %w", acc.Email, err)
				}
				employeeID := acc.EmployeeID
				phone := acc.Phone
				u := &user.User{
					Email:        acc.Email,
					PasswordHash: string(hash),
					Name:         acc.Name,
					EmployeeID:   &employeeID,
					Role:         acc.Role,
					JobTitle:     acc.JobTitle,
					WorkUnit:     acc.WorkUnit,
					Phone:        &phone,
					IsActive:     true,
				}
				if err := userRepo.Create(ctx, u); err != nil {
					return fmt.Errorf("create account %s: %w", acc.Email, err)
				}
				fmt.Printf("Created %s account: %s\n", acc.Role, acc.Email)
			}

			subdistrict := "Cugenang"
			description := "Gempa bumi dengan magnitudo 5.6 SR"
			event := &disaster.Event{
				Name:        "Gempa Bumi Cianjur",
				Type:        disaster.TypeEarthquake,
				OccurredAt:  time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
				Location:    "Cianjur, Jawa Barat",
				Province:    "Jawa Barat",
				Regency:     "Cianjur",
				Subdistrict: &subdistrict,
				Description: &description,
				Status:      disaster.StatusActive,
			}
			disasterRepo := disaster.NewRepoPG(pool)
			if err := disasterRepo.Create(ctx, event); err != nil {
				return fmt.Errorf("create sample disaster event: %w", err)
			}
			fmt.Printf("Created sample disaster event: %s\n", event.Name)

			return nil
		},
	}
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
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.ErrorHandler(logger)

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL())

	// API groups. Login is the only application route outside the token
	// check; everything else on /api/v1 requires an authenticated actor.
	rateLimit := middleware.RateLimit(middleware.DefaultRateLimitConfig())
	public := e.Group("/api/v1", rateLimit)
	api := e.Group("/api/v1", rateLimit, auth.Middleware(tokens))

	// Shared infrastructure
	txRunner := db.NewTxRunner(pool)
	auditRepo := audit.NewRepoPG(pool)
	auditSvc := audit.NewService(auditRepo)

	// Accounts and sessions
	userRepo := user.NewRepoPG(pool)
	userSvc := user.NewService(userRepo, auditSvc, txRunner, tokens)
	userHandler := user.NewHandler(userSvc)
	userHandler.RegisterAuthRoutes(public, api)
	userHandler.RegisterRoutes(api)

	// Patient registry
	patientRepo := patient.NewRepoPG(pool)
	patientSvc := patient.NewService(patientRepo, auditSvc, txRunner)
	patient.NewHandler(patientSvc).RegisterRoutes(api)

	// Medical assessments
	assessmentRepo := assessment.NewRepoPG(pool)
	assessmentSvc := assessment.NewService(assessmentRepo, assessmentRepo, auditSvc, txRunner)
	assessment.NewHandler(assessmentSvc).RegisterRoutes(api)

	// Environment assessments
	environmentRepo := environment.NewRepoPG(pool)
	environmentSvc := environment.NewService(environmentRepo, environmentRepo, auditSvc, txRunner)
	environment.NewHandler(environmentSvc).RegisterRoutes(api)

	// Needs identification
	needsRepo := needs.NewRepoPG(pool)
	needsSvc := needs.NewService(needsRepo, needsRepo, auditSvc, txRunner)
	needs.NewHandler(needsSvc).RegisterRoutes(api)

	// Disaster events
	disasterRepo := disaster.NewRepoPG(pool)
	disasterSvc := disaster.NewService(disasterRepo, auditSvc, txRunner)
	disaster.NewHandler(disasterSvc).RegisterRoutes(api)

	// Dashboard aggregates
	dashboardSvc := dashboard.NewService(dashboard.NewRepoPG(pool))
	dashboard.NewHandler(dashboardSvc).RegisterRoutes(api)

	// Workbook exports
	exportSvc := export.NewService(patientRepo, assessmentRepo, environmentRepo, needsRepo)
	export.NewHandler(exportSvc).RegisterRoutes(api)

	// Audit log
	audit.NewHandler(auditSvc).RegisterRoutes(api)

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

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
