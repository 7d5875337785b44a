package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"heartrisk/config"
	qhttp "heartrisk/http"
	"heartrisk/logging"
	"heartrisk/ml"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "heartrisk: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Look for config in root even if run from cmd/
	configPath := config.DefaultPath
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if _, err := os.Stat(filepath.Join("..", configPath)); err == nil {
			configPath = filepath.Join("..", configPath)
		}
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	store, err := ml.NewModelStore(cfg.Http.ModelCacheSize, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	// Fail fast: the server never answers without a usable artifact.
	if _, err := store.Get(cfg.Training.ModelPath); err != nil {
		return fmt.Errorf("%w (run cmd/train_model first)", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := qhttp.NewServer(qhttp.ServerConfigFrom(cfg.Http, cfg.Training.ModelPath), store, logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		store.Run(ctx)
		return nil
	})
	g.Go(server.Start)
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Stop(shutdownCtx); err != nil {
			logger.Warn("server forced to shutdown", zap.Error(err))
		}
		return nil
	})

	err = g.Wait()
	logger.Info("exiting")
	return err
}
