// Package main is the entrypoint of the back-office API server.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"

	"github.com/yourusername/klimaatdesk/internal/auth"
	"github.com/yourusername/klimaatdesk/internal/boekhoud"
	"github.com/yourusername/klimaatdesk/internal/config"
	"github.com/yourusername/klimaatdesk/internal/contact"
	"github.com/yourusername/klimaatdesk/internal/database"
	"github.com/yourusername/klimaatdesk/internal/installations"
	"github.com/yourusername/klimaatdesk/internal/jobs"
	"github.com/yourusername/klimaatdesk/internal/logging"
	"github.com/yourusername/klimaatdesk/internal/notify"
	"github.com/yourusername/klimaatdesk/internal/pdfgen"
	"github.com/yourusername/klimaatdesk/internal/quotes"
	"github.com/yourusername/klimaatdesk/internal/reviews"
	"github.com/yourusername/klimaatdesk/internal/storage"
	"github.com/yourusername/klimaatdesk/internal/wasco"
)

const jobRecordTTL = 24 * time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Init(logging.Config{Level: "info", Format: "console"})
		logging.Error().Err(err).Msg("failed to load config")
		return
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := buildApp(ctx, cfg)
	if err != nil {
		logging.Error().Err(err).Msg("startup failed")
		return
	}
	defer app.close()

	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(requestIDMiddleware(), requestLogger(), gin.CustomRecovery(recoveryHandler))
	router.Use(cors.New(corsConfig(cfg)))

	setupRoutes(router, cfg, app)

	app.jobManager.StartWorkers()

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}
	go func() {
		logging.Info().Str("addr", srv.Addr).Str("mode", cfg.GinMode).Msg("starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error().Err(err).Msg("server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	logging.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Warn().Err(err).Msg("server shutdown failed")
	}
	if err := app.jobManager.Shutdown(shutdownCtx); err != nil {
		logging.Warn().Err(err).Msg("job manager shutdown failed")
	}
}

// app bundles the wired services handed to the routing layer.
type app struct {
	db  *sql.DB
	rdb *redis.Client

	authManager  *auth.Manager
	csrf         *auth.CSRFGuard
	uploadStore  *storage.Local
	reviewStore  reviews.Store
	contactStore contact.Store
	quoteStore   quotes.Store
	installStore installations.Store
	wascoClient  *wasco.Client
	jobManager   *jobs.Manager
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.rdb != nil {
		a.rdb.Close()
	}
}

func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	db, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	redisOpt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		db.Close()
		return nil, err
	}
	rdb := redis.NewClient(redisOpt)

	uploadStore, err := storage.NewLocal(cfg.UploadDir)
	if err != nil {
		db.Close()
		return nil, err
	}
	pdfService, err := pdfgen.NewService(
		filepath.Join(cfg.PDFWorkDir, "work"),
		filepath.Join(cfg.PDFWorkDir, "out"),
	)
	if err != nil {
		db.Close()
		return nil, err
	}

	codec, err := auth.NewCodec(cfg.JWTSecret, cfg.TokenMinVersion)
	if err != nil {
		db.Close()
		return nil, err
	}
	credStore := auth.NewStore(db)
	authManager, err := auth.NewManager(cfg, credStore, codec)
	if err != nil {
		db.Close()
		return nil, err
	}

	quoteStore := quotes.NewSQLStore(db)
	installStore := installations.NewSQLStore(db)

	var books *boekhoud.Client
	if cfg.BoekhoudUsername != "" {
		books, err = boekhoud.NewClient(cfg.BoekhoudURL, cfg.BoekhoudUsername, cfg.BoekhoudCode1, cfg.BoekhoudCode2)
		if err != nil {
			db.Close()
			return nil, err
		}
	} else {
		logging.Info().Msg("bookkeeping API not configured; invoice sync disabled")
	}

	var wascoClient *wasco.Client
	if cfg.WascoUsername != "" {
		wascoClient, err = wasco.NewClient(cfg.WascoBaseURL, cfg.WascoUsername, cfg.WascoPassword)
		if err != nil {
			db.Close()
			return nil, err
		}
	} else {
		logging.Info().Msg("supplier portal not configured; price lookups disabled")
	}

	jobStore := jobs.NewStore(rdb, jobRecordTTL)
	jobManager, err := jobs.NewManager(cfg.RedisURL, jobStore, jobs.Deps{
		Quotes:        quoteStore,
		Installations: installStore,
		PDF:           pdfService,
		Mailer:        notify.LogMailer{},
		Books:         books,
		OfficeEmail:   cfg.OfficeEmail,
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &app{
		db:           db,
		rdb:          rdb,
		authManager:  authManager,
		csrf:         auth.NewCSRFGuard(cfg.CookieSecure()),
		uploadStore:  uploadStore,
		reviewStore:  reviews.NewSQLStore(db),
		contactStore: contact.NewSQLStore(db),
		quoteStore:   quoteStore,
		installStore: installStore,
		wascoClient:  wascoClient,
		jobManager:   jobManager,
	}, nil
}

func corsConfig(cfg *config.Config) cors.Config {
	corsCfg := cors.DefaultConfig()
	corsCfg.AllowOrigins = []string{cfg.FrontendOrigin}
	corsCfg.AllowCredentials = true
	corsCfg.AllowHeaders = []string{
		"Origin",
		"Content-Type",
		"Accept",
		"Authorization",
		"X-CSRF-Token",
	}
	corsCfg.ExposeHeaders = []string{"X-CSRF-Token", "X-Request-Id"}
	return corsCfg
}
