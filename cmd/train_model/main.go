package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"heartrisk/config"
	"heartrisk/logging"
	"heartrisk/pipeline"
)

func main() {
	cfg, err := config.Load(config.DefaultPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	report, err := pipeline.NewTrainingPipeline(cfg.Training, logger, os.Stdout).Run(ctx)
	stop()
	if err != nil {
		logger.Error("training failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}

	logger.Info("training finished",
		zap.String("model", report.ModelPath),
		zap.Float64("accuracy", report.Evaluation.Accuracy),
		zap.Duration("duration", report.Duration))
	logger.Sync()
}
