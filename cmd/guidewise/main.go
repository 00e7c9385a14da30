package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/guidewisey/guidewise/internal/ai"
	"github.com/guidewisey/guidewise/internal/config"
	"github.com/guidewisey/guidewise/internal/db"
	"github.com/guidewisey/guidewise/internal/extract"
	"github.com/guidewisey/guidewise/internal/filestore"
	"github.com/guidewisey/guidewise/internal/handler"
	"github.com/guidewisey/guidewise/internal/job"
	"github.com/guidewisey/guidewise/internal/middleware"
	"github.com/guidewisey/guidewise/internal/repo"
	"github.com/guidewisey/guidewise/internal/schedule"
	"github.com/guidewisey/guidewise/internal/service"
	"github.com/guidewisey/guidewise/internal/session"
)

const tempSweepCron = "*/30 * * * *"

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "guidewise",
		Short: "guidewise document explainer backend",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (.json or .toml)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the api server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, conn, err := bootstrap(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			defer conn.Close()
			return runServer(cfg, conn)
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, conn, err := bootstrap(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			defer conn.Close()
			logutil.GetLogger(cmd.Context()).Info("migrations applied")
			return nil
		},
	}

	var adminUser, adminEmail, adminPassword string
	createAdminCmd := &cobra.Command{
		Use:   "create-admin",
		Short: "create a staff user if it does not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, conn, err := bootstrap(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			defer conn.Close()
			auth := service.NewAuthService(repo.NewUserRepo(conn), []byte(cfg.JWTSecret), time.Duration(cfg.JWTTTLHours)*time.Hour)
			user, created, err := auth.EnsureAdmin(cmd.Context(), adminUser, adminEmail, adminPassword)
			if err != nil {
				return fmt.Errorf("create admin: %w", err)
			}
			if !created {
				fmt.Fprintf(cmd.OutOrStdout(), "Admin already exists (id=%d)\n", user.ID)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Admin created (id=%d)\n", user.ID)
			return nil
		},
	}
	createAdminCmd.Flags().StringVar(&adminUser, "username", "admin", "admin username")
	createAdminCmd.Flags().StringVar(&adminEmail, "email", "admin@example.com", "admin email")
	createAdminCmd.Flags().StringVar(&adminPassword, "password", "admin123", "admin password")

	rootCmd.AddCommand(runCmd, migrateCmd, createAdminCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

// bootstrap loads config, initializes logging and returns a migrated database.
func bootstrap(ctx context.Context, configPath string) (*config.Config, *sql.DB, error) {
	if configPath == "" {
		return nil, nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		cfg.LogConfig.FileCount,
		cfg.LogConfig.FileSize,
		cfg.LogConfig.KeepDays,
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(ctx).Info("config loaded", zap.String("config", configPath))

	conn, err := db.Open(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.ApplyMigrations(ctx, conn, cfg.Database.Driver); err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}
	return cfg, conn, nil
}

func buildChatter(cfg config.AIConfig) (ai.IChatter, error) {
	entries := make([]ai.ChatterEntry, 0, len(cfg.Providers))
	for _, p := range cfg.Providers {
		provider, err := ai.NewProvider(p.Provider, p.Data)
		if err != nil {
			return nil, fmt.Errorf("init ai provider %s: %w", p.Name, err)
		}
		entries = append(entries, ai.ChatterEntry{Name: p.Name, Chatter: ai.NewChatter(provider, p.Model)})
	}
	if len(entries) == 0 {
		logutil.GetLogger(context.Background()).Warn("no ai provider configured, explanations will fail")
	}
	return ai.NewGroupChatter(entries), nil
}

func runServer(cfg *config.Config, conn *sql.DB) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logutil.GetLogger(ctx).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("file_store", cfg.FileStore.Type),
		zap.String("session_store", cfg.Session.Store),
	)

	store, err := filestore.New(cfg.FileStore)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}
	sessionStore, err := session.New(ctx, cfg.Session, conn)
	if err != nil {
		return fmt.Errorf("init session store: %w", err)
	}
	chatter, err := buildChatter(cfg.AI)
	if err != nil {
		return err
	}
	manager := ai.NewManager(chatter, ai.ManagerConfig{
		Timeout:            cfg.AI.Timeout,
		Temperature:        cfg.AI.Temperature,
		MaxHistoryMessages: cfg.AI.MaxHistoryMessages,
	})
	extractor := extract.New(extract.Config{
		TesseractPath: cfg.Extract.TesseractPath,
		OCRLanguage:   cfg.Extract.OCRLanguage,
	})

	sessions := service.NewSessionService(sessionStore, time.Duration(cfg.Session.TTLHours)*time.Hour)
	authService := service.NewAuthService(repo.NewUserRepo(conn), []byte(cfg.JWTSecret), time.Duration(cfg.JWTTTLHours)*time.Hour)
	ingestService := service.NewIngestService(conn, store, extractor, manager, service.IngestConfig{
		TempDir:          cfg.Extract.TempDir,
		SummaryCacheSize: cfg.AI.SummaryCacheSize,
		SummaryCacheTTL:  time.Duration(cfg.AI.SummaryCacheTTL) * time.Second,
	})
	qaService := service.NewQAService(conn, manager, service.QAConfig{MaxQuestions: cfg.Quota.MaxQuestions})

	cookies := handler.CookieConfig{
		SessionName: cfg.Session.CookieName,
		CSRFName:    cfg.Session.CSRFCookie,
		Domain:      cfg.Session.Domain,
		Secure:      cfg.Session.Secure,
		SameSite:    cfg.Session.SameSite,
	}
	deps := handler.RouterDeps{
		Auth:         handler.NewAuthHandler(authService, sessions, cookies),
		Documents:    handler.NewDocumentHandler(ingestService, service.NewDocumentService(conn)),
		QA:           handler.NewQAHandler(qaService),
		Files:        handler.NewFileHandler(store, cfg.UploadMaxBytes),
		Health:       handler.NewHealthHandler(conn),
		Sessions:     sessions,
		Tokens:       authService,
		SessionGate:  service.NewGate(conn, service.GateConfig{MaxQuestions: cfg.Quota.MaxQuestions, UseSession: true}),
		DocumentGate: service.NewGate(conn, service.GateConfig{MaxQuestions: cfg.Quota.MaxQuestions}),
		Cookies:      cookies,
		CSRFHeader:   cfg.Session.CSRFHeader,
		RateLimit:    middleware.RateLimit(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst),
	}

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	engine, err := webapi.NewEngine(
		"/api/v1",
		addr,
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORS.AllowedOrigins, cfg.Session.CSRFHeader),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	scheduler := schedule.New()
	if err := scheduler.Add(job.NewSessionCleanupJob(sessions), cfg.Session.CleanupCron); err != nil {
		return err
	}
	if err := scheduler.Add(job.NewTempSweepJob(cfg.Extract.TempDir, "ingest-", time.Hour), tempSweepCron); err != nil {
		return err
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	logutil.GetLogger(ctx).Info("http server listening", zap.String("addr", addr))
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
