package entrypoint

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/locallibrary/internal/audit"
	"github.com/mrlokans/locallibrary/internal/auth"
	"github.com/mrlokans/locallibrary/internal/catalog"
	"github.com/mrlokans/locallibrary/internal/circulation"
	"github.com/mrlokans/locallibrary/internal/config"
	"github.com/mrlokans/locallibrary/internal/database"
	auditrepo "github.com/mrlokans/locallibrary/internal/database/audit"
	catalogrepo "github.com/mrlokans/locallibrary/internal/database/catalog"
	"github.com/mrlokans/locallibrary/internal/database/loans"
	"github.com/mrlokans/locallibrary/internal/database/users"
	http_controllers "github.com/mrlokans/locallibrary/internal/http"
	"github.com/mrlokans/locallibrary/internal/scheduler"
	"github.com/mrlokans/locallibrary/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// Serve runs router until SIGINT or SIGTERM, then shuts down within the
// configured timeout.
func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Starting server at %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Background work stops before the server so nothing new is enqueued
	// while requests drain.
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

// CSRFSecret derives the CSRF key from AUTH_SESSION_SECRET. Hex values are
// decoded, anything else is used as is. With no secret configured a random
// one is generated, which invalidates tokens on every restart.
func CSRFSecret(cfg config.Auth) ([]byte, error) {
	if cfg.SessionSecret != "" {
		if secret, err := hex.DecodeString(cfg.SessionSecret); err == nil {
			return secret, nil
		}
		return []byte(cfg.SessionSecret), nil
	}

	generated, err := auth.GenerateSessionSecret()
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSRF secret: %w", err)
	}
	log.Printf("Generated session secret (set AUTH_SESSION_SECRET to persist)")
	return hex.DecodeString(generated)
}

// Run wires the catalog service together and serves it.
func Run(cfg *config.Config, version string) {
	log.Printf("Starting Local Library v%s", version)

	db, err := database.NewDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	loc := cfg.Global.Location()
	auditService := audit.NewService(auditrepo.NewRepository(db.DB))
	catalogRepo := catalogrepo.NewRepository(db.DB)
	loansRepo := loans.NewRepository(db.DB)

	lifecycle, err := catalog.NewService(catalogRepo, cfg.Catalog.DefaultDateOfDeath)
	if err != nil {
		log.Fatalf("Invalid catalog configuration: %v", err)
	}
	renewals := circulation.NewService(loansRepo, nil, loc)

	var taskClient *tasks.Client
	var sweep *scheduler.OverdueSweepScheduler
	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	if cfg.Tasks.Enabled {
		taskClient, err = tasks.NewClient(cfg.Database.Path, tasks.NewConfig(cfg.Tasks))
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		taskClient.Register(
			tasks.NewOverdueSweepQueue(loansRepo, auditService, renewals.Today),
			tasks.NewCleanupAuditEventsQueue(auditService),
		)
		taskClient.Start(bgCtx)

		if cfg.OverdueSweep.Enabled {
			sweep = scheduler.NewOverdueSweepScheduler(taskClient, cfg.OverdueSweep.Schedule, cfg.Audit.RetentionDays, loc)
			if err := sweep.Start(bgCtx); err != nil {
				log.Fatalf("Failed to start overdue sweep scheduler: %v", err)
			}
		}
	} else if cfg.OverdueSweep.Enabled {
		log.Printf("WARNING: overdue sweep needs the task queue; set TASKS_ENABLED=true to run it")
	}

	authService := auth.NewService(users.NewRepository(db.DB), cfg.Auth)
	sessionManager, err := auth.NewSessionManager(db.DB, db.Driver, cfg.Auth)
	if err != nil {
		log.Fatalf("Failed to initialize session manager: %v", err)
	}
	authController := auth.NewAuthController(authService, sessionManager, cfg.Auth, auditService)

	var csrfSecret []byte
	if cfg.Auth.CSRFEnabled {
		csrfSecret, err = CSRFSecret(cfg.Auth)
		if err != nil {
			log.Fatalf("%v", err)
		}
	}

	if hasUsers, _ := authService.HasUsers(); !hasUsers {
		log.Printf("No users found. Create one with: locallibrary create-user -username <name> -email <email> -role librarian")
	}

	routerCfg := http_controllers.RouterConfig{
		Database:       db,
		Catalog:        catalogRepo,
		Loans:          loansRepo,
		Auditor:        auditService,
		AuditLog:       auditService,
		Lifecycle:      lifecycle,
		Renewals:       renewals,
		AuthService:    authService,
		AuthMiddleware: auth.NewMiddleware(authService, sessionManager),
		AuthController: authController,
		AuthEvents:     auditService,
		SessionManager: sessionManager,
		AuthConfig:     cfg.Auth,
		CSRFSecret:     csrfSecret,
		Pagination:     cfg.Catalog,
		Version:        version,
	}
	// Assigned only when set so the interfaces never hold a typed nil.
	if taskClient != nil {
		routerCfg.Tasks = taskClient
	}
	if sweep != nil {
		routerCfg.Sweep = sweep
	}
	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		if sweep != nil {
			sweep.Stop()
		}
		if taskClient != nil {
			taskClient.Stop(ctx)
		}
		bgCancel()
		authController.Stop()
		auditService.Wait()
	}

	Serve(router, cfg, onShutdown)
}
