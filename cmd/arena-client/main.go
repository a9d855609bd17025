package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/robot-arena/arena-client/internal/client"
	"github.com/robot-arena/arena-client/internal/config"
	"github.com/robot-arena/arena-client/internal/storage"
	"github.com/robot-arena/arena-client/internal/ui"
)

func main() {
	name := flag.String("name", "", "display name to join with")
	flag.Parse()

	cfg := config.Load()

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	creds, err := storage.OpenFile(cfg.SessionPath())
	if err != nil {
		logger.Fatal("open session store", zap.Error(err))
	}

	playerName := *name
	if playerName == "" {
		playerName, _ = creds.Get(storage.KeyPlayerName)
	}
	if playerName == "" {
		fmt.Fprintln(os.Stderr, "usage: arena-client -name <display name>")
		os.Exit(2)
	}

	// The terminal is both the renderer and the notification collaborator.
	term := ui.NewTerminal(playerName)
	cl, err := client.New(client.Options{
		ServerOrigin: cfg.ServerOrigin,
		Creds:        creds,
		Renderer:     term,
		Notifier:     term,
		Logger:       logger,
	})
	if err != nil {
		logger.Fatal("init client", zap.Error(err))
	}
	term.Bind(cl)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return cl.Run(ctx) })
	g.Go(func() error {
		defer cancel() // quitting the UI shuts the client down
		return term.Run(ctx)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("client exited", zap.Error(err))
	}
}

// newLogger writes to a file in the data dir: termbox owns the terminal, so
// stderr output would corrupt the screen.
func newLogger(cfg config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, err
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.OutputPaths = []string{filepath.Join(cfg.DataDir, "client.log")}
	zcfg.ErrorOutputPaths = zcfg.OutputPaths
	return zcfg.Build()
}
