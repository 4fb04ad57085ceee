package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"garden-board/internal/board/canvas"
	"garden-board/internal/board/imaging"
	"garden-board/internal/board/palette"
	"garden-board/internal/board/reconcile"
	"garden-board/internal/board/remote"
	"garden-board/internal/board/store"
	"garden-board/internal/board/tui"
	"garden-board/internal/common/config"
	"garden-board/internal/common/logging"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"
)

// ============================================================
// Garden Board
// ============================================================

func main() {
	local := flag.Bool("local", false, "run against an in-memory store instead of the garden service")
	name := flag.String("name", "Guest", "planter name written on placed plants")
	palettePath := flag.String("palette", "", "TOML palette file (default: built-in plants)")
	admin := flag.Bool("admin", false, "log in with GARDEN_ADMIN_LOGIN/GARDEN_ADMIN_PASSWORD to enable clearing the garden")
	assets := flag.String("assets", ".", "directory for relative image paths")
	logPath := flag.String("log", "board.log", "log file")
	flag.Parse()

	if err := run(*local, *admin, *name, *palettePath, *assets, *logPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(local, admin bool, name, palettePath, assets, logPath string) error {
	cfg := config.Load()

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer logFile.Close()
	logger := logging.InitWriter(logFile, "board", cfg.LogLevel)

	plants, err := palette.Load(palettePath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		backend store.Backend
		client  *remote.Client
		baseURL string
	)
	if local {
		mem := store.NewMemory(logging.Component(logger, "store"))
		defer mem.Close()
		backend = mem
		admin = true
	} else {
		client = remote.New(cfg.GardenURL, logging.Component(logger, "remote"))
		if admin {
			if err := client.Login(ctx, cfg.AdminLogin, cfg.AdminPassword); err != nil {
				return fmt.Errorf("admin login: %w", err)
			}
		}
		backend = client
		baseURL = cfg.GardenURL
	}

	scene := canvas.NewScene(640, tui.BoardHeight)
	defer scene.Dispose()
	updates := tui.NewUpdates(logger)
	scene.OnRender(updates.Render)

	images := imaging.NewPreprocessor(imaging.NewLoader(baseURL, assets))
	ctrl := reconcile.New(backend, scene, images, updates.Hooks(), reconcile.DefaultOptions(), logger)

	g, gctx := errgroup.WithContext(ctx)
	if client != nil {
		// события за время обрыва потеряны: догоняем полной перезагрузкой
		client.OnReconnect = func() {
			if gctx.Err() != nil {
				return
			}
			g.Go(func() error {
				if err := ctrl.Load(gctx); err != nil {
					logger.Warn().Err(err).Msg("reload after reconnect")
				}
				return nil
			})
		}
	}
	g.Go(func() error {
		return ctrl.Run(gctx)
	})
	g.Go(func() error {
		if err := ctrl.Load(gctx); err != nil {
			logger.Warn().Err(err).Msg("initial load")
		}
		return nil
	})

	model := tui.New(ctrl, scene, updates, tui.Options{
		Planter: name,
		Admin:   admin,
		Palette: plants,
	})
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(gctx))
	logger.Info().Bool("local", local).Str("planter", name).Msg("board started")

	_, runErr := program.Run()
	stop()
	if err := g.Wait(); err != nil {
		return err
	}
	if runErr != nil && gctx.Err() == nil {
		return runErr
	}
	return nil
}
