package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/fieldtrace/fieldtrace/internal/api"
	"github.com/fieldtrace/fieldtrace/internal/auth"
	"github.com/fieldtrace/fieldtrace/internal/config"
	"github.com/fieldtrace/fieldtrace/internal/database"
	"github.com/fieldtrace/fieldtrace/internal/preview"
	"github.com/fieldtrace/fieldtrace/internal/realtime"
	redisclient "github.com/fieldtrace/fieldtrace/internal/redis"
	"github.com/fieldtrace/fieldtrace/internal/service"
	"github.com/fieldtrace/fieldtrace/internal/storage"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))

	// --- Infrastructure ---

	pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	rdb, err := redisclient.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	store, err := storage.NewMinIOClient(cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey,
		cfg.LegacyBucket, cfg.AttachmentBucket)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	tokenSvc := auth.NewTokenService(cfg.JWTSecret)

	// --- Repositories & services ---

	messages := database.NewMessageRepository(pool)
	resolver := service.NewAttachmentResolver(store, store.Endpoint(), cfg.LegacyBucket, cfg.AttachmentBucket)
	uploader := service.NewAttachmentUploader(store, cfg.AttachmentBucket)

	var remote *preview.RemoteClient
	if cfg.PreviewEndpoint != "" {
		remote = preview.NewRemoteClient(cfg.PreviewEndpoint, cfg.PreviewToken)
	}
	previews := preview.NewService(preview.NewLocalBuilder(), remote)

	// --- Realtime (optional; the API works without live updates) ---

	var alerts *service.AlertWatcher
	if cfg.RealtimeURL != "" {
		feed, err := realtime.Dial(cfg.RealtimeURL)
		if err != nil {
			log.Fatalf("realtime: %v", err)
		}
		defer feed.Close()

		alerts = service.NewAlertWatcher(feed, rdb, func(a service.Alert) {
			slog.Info("high-priority submission", "alertID", a.ID, "teamID", a.TeamID)
		})
		defer alerts.Close()
	}

	// --- Handlers ---

	deps := &api.Dependencies{
		Messages:     api.NewMessageHandler(messages, resolver, rdb),
		Attachments:  api.NewAttachmentHandler(uploader, resolver),
		Previews:     api.NewPreviewHandler(previews),
		TokenService: tokenSvc,
	}

	// --- Echo ---

	e := echo.New()
	e.HidePort = true
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	api.SetupRouter(e, deps)

	// --- Start ---

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("fieldtraced starting on %s", cfg.ServerAddr)
		if err := e.Start(cfg.ServerAddr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-sigCtx.Done()
	log.Println("shutting down...")
	if err := e.Shutdown(context.Background()); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}
