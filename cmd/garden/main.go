package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"garden-board/internal/board/imaging"
	"garden-board/internal/common/config"
	"garden-board/internal/common/logging"
	"garden-board/internal/common/middleware"
	"garden-board/internal/garden/handlers"
	"garden-board/internal/garden/metrics"
	"garden-board/internal/garden/realtime"
	"garden-board/internal/garden/repository"
	"garden-board/internal/garden/service"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
)

// ============================================================
// Garden Service
// ============================================================

func main() {
	cfg := config.Load()
	logger := logging.Init("garden", cfg.LogLevel)

	db, err := repository.OpenSQLite(cfg.DBPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db")
	}
	defer db.Close()

	repo := repository.New(db, logging.Component(logger, "repository"))
	if err := repo.Init(context.Background(), cfg.MigrationsPath, cfg.AdminLogin, cfg.AdminPassword); err != nil {
		logger.Fatal().Err(err).Msg("init db")
	}

	metrics.Register()

	hub := realtime.NewHub(cfg.SubscriberBuffer, logging.Component(logger, "realtime"))
	sessions := service.NewSessionManager()
	items := service.NewItemService(repo, hub, logging.Component(logger, "items"))

	app := fiber.New(fiber.Config{
		ReadTimeout: time.Duration(cfg.ReadTimeout) * time.Second,
		// WriteTimeout не задаётся: SSE соединения живут долго
		AppName: "Garden Service",
	})

	// ============================================================
	// Global Middleware
	// ============================================================

	app.Use(recover.New())
	app.Use(middleware.Logger())
	app.Use(middleware.CORS())

	// ============================================================
	// Routes
	// ============================================================

	handlers.Mount(app, handlers.Deps{
		Items:    handlers.NewItemsHandler(items, logging.Component(logger, "handlers")),
		Auth:     handlers.NewAuthHandler(repo, sessions, logging.Component(logger, "auth")),
		Stream:   handlers.NewStreamHandler(hub, cfg.SSEKeepAlive, logging.Component(logger, "stream")),
		Render:   handlers.NewRenderHandler(items, imaging.NewPreprocessor(imaging.NewLocalLoader(cfg.AssetsDir)), logging.Component(logger, "render")),
		Assets:   handlers.NewAssetsHandler(cfg.AssetsDir, logging.Component(logger, "assets")),
		Sessions: sessions,
		DB:       repo,
	})

	// ============================================================
	// Server Start
	// ============================================================

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info().Msg("shutting down")
		hub.Close()
		if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
			logger.Error().Err(err).Msg("shutdown")
		}
	}()

	addr := fmt.Sprintf(":%s", cfg.Port)
	logger.Info().Str("addr", addr).Str("env", cfg.Environment).Msg("starting garden service")

	if err := app.Listen(addr); err != nil {
		logger.Fatal().Err(err).Msg("failed to start server")
	}
}
