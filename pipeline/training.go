// Package pipeline runs the offline training job: load, split, fit, evaluate
// and persist.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"heartrisk/config"
	"heartrisk/db"
	"heartrisk/ml"
)

// Report summarises one training run.
type Report struct {
	Rows       int           `json:"rows"`
	TrainRows  int           `json:"train_rows"`
	TestRows   int           `json:"test_rows"`
	Evaluation ml.Evaluation `json:"evaluation"`
	ModelPath  string        `json:"model_path"`
	Duration   time.Duration `json:"duration"`
}

// TrainingPipeline trains one model per Run. Human-readable output (the table
// head and the accuracy line) goes to out; progress goes to the logger.
type TrainingPipeline struct {
	cfg    config.Training
	logger *zap.Logger
	out    io.Writer
}

func NewTrainingPipeline(cfg config.Training, logger *zap.Logger, out io.Writer) *TrainingPipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if out == nil {
		out = io.Discard
	}
	return &TrainingPipeline{cfg: cfg, logger: logger, out: out}
}

// Run executes the pipeline. The artifact is only written after every
// previous stage succeeded.
func (p *TrainingPipeline) Run(ctx context.Context) (*Report, error) {
	start := time.Now()

	ds, err := p.load()
	if err != nil {
		return nil, err
	}
	p.logger.Info("dataset loaded",
		zap.Int("rows", ds.Len()),
		zap.Strings("features", ds.FeatureNames),
		zap.String("target", ds.Target))
	if p.cfg.HeadRows > 0 {
		if err := ds.WriteHead(p.out, p.cfg.HeadRows); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	split, err := ml.SplitDataset(ds, p.cfg.TestFraction, p.cfg.SplitSeed)
	if err != nil {
		return nil, fmt.Errorf("split dataset: %w", err)
	}
	p.logger.Info("dataset split",
		zap.Int("train", split.Train.Len()),
		zap.Int("test", split.Test.Len()),
		zap.Int64("seed", p.cfg.SplitSeed))
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fitStart := time.Now()
	model, err := ml.Train(split.Train, p.cfg.ModelType, p.cfg.Forest)
	if err != nil {
		return nil, fmt.Errorf("train model: %w", err)
	}
	p.logger.Info("model trained",
		zap.String("type", model.Type),
		zap.Int("trees", model.TreeCount()),
		zap.Int("max_depth", model.Depth()),
		zap.Duration("elapsed", time.Since(fitStart)))
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	eval, err := ml.Evaluate(model, split.Test)
	if err != nil {
		return nil, err
	}
	fmt.Fprintln(p.out, eval.String())
	p.logger.Info("model evaluated",
		zap.Int("correct", eval.Correct),
		zap.Int("total", eval.Total),
		zap.Float64("accuracy", eval.Accuracy))

	if err := ml.SaveModel(p.cfg.ModelPath, model); err != nil {
		return nil, err
	}
	p.logger.Info("model saved", zap.String("path", p.cfg.ModelPath))

	return &Report{
		Rows:       ds.Len(),
		TrainRows:  split.Train.Len(),
		TestRows:   split.Test.Len(),
		Evaluation: eval,
		ModelPath:  p.cfg.ModelPath,
		Duration:   time.Since(start),
	}, nil
}

func (p *TrainingPipeline) load() (*ml.Dataset, error) {
	switch p.cfg.Source {
	case "sqlite":
		store, err := db.Open(p.cfg.SQLitePath)
		if err != nil {
			return nil, &ml.DataLoadError{Path: p.cfg.SQLitePath, Err: err}
		}
		defer store.Close()
		return store.LoadDataset(p.cfg.Table, p.cfg.Target)
	default:
		return ml.LoadCSV(p.cfg.DataPath, p.cfg.Target, ml.WithEncoding(p.cfg.Encoding))
	}
}
