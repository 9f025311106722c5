package main

import (
	"errors"
	"io/fs"
	"net/http"
	"os"

	"github.com/sirupsen/logrus"

	"arcade"
	"arcade/internal/config"
	"arcade/internal/game"
	"arcade/internal/game/tetris"
	"arcade/internal/game/tictactoe"
	"arcade/internal/leaderboard"
	"arcade/internal/server"
	"arcade/internal/session"
	"arcade/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	log := cfg.Logger(os.Stderr)

	store, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer store.Close()

	registry := game.NewRegistry()
	registry.Register(tictactoe.TicTacToe{})
	registry.Register(tetris.Tetris{})

	keeper := leaderboard.New(store, registry, log)
	mgr := session.NewManager(registry, store,
		session.WithLeaderboard(keeper),
		session.WithLogger(log),
	)
	defer mgr.Close()

	webFS, err := fs.Sub(arcade.WebFS, "web")
	if err != nil {
		log.Fatalf("web assets: %v", err)
	}
	srv := server.New(registry, mgr, webFS,
		server.WithLeaderboard(keeper),
		server.WithLogger(log),
	)

	if err := mgr.Restore(); err != nil {
		log.WithError(err).Warn("restore sessions")
	}
	go mgr.CleanupLoop(cfg.CleanupInterval, cfg.SessionMaxAge)

	addr := ":" + cfg.Port
	log.WithField("addr", addr).Info("listening")
	if err := http.ListenAndServe(addr, srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server: %v", err)
	}
}
