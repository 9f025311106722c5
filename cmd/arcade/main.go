package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"

	"arcade/internal/config"
	"arcade/internal/game"
	"arcade/internal/game/tetris"
	"arcade/internal/game/tictactoe"
	"arcade/internal/leaderboard"
	"arcade/internal/storage"
	"arcade/internal/tui"
)

func main() {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		fmt.Fprintln(os.Stderr, "arcade needs an interactive terminal")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	var out io.Writer = io.Discard
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			logrus.Fatalf("open log file: %v", err)
		}
		defer f.Close()
		out = f
	}
	log := cfg.Logger(out)

	store, err := storage.New(cfg.DBPath)
	if err != nil {
		logrus.Fatalf("open database: %v", err)
	}
	defer store.Close()

	registry := game.NewRegistry()
	registry.Register(tetris.Tetris{})
	registry.Register(tictactoe.TicTacToe{})
	keeper := leaderboard.New(store, registry, log)

	screen, err := tcell.NewScreen()
	if err != nil {
		logrus.Fatalf("create screen: %v", err)
	}
	if err := screen.Init(); err != nil {
		logrus.Fatalf("init screen: %v", err)
	}

	app, err := tui.New(screen, registry,
		tui.WithLeaderboard(keeper),
		tui.WithLogger(log),
	)
	if err != nil {
		screen.Fini()
		logrus.Fatalf("arcade: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err = app.Run(ctx)
	screen.Fini()
	if err != nil && ctx.Err() == nil {
		log.WithError(err).Error("arcade stopped")
	}
}
