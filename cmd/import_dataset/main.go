package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"heartrisk/config"
	"heartrisk/db"
	"heartrisk/logging"
	"heartrisk/ml"
)

func main() {
	defaults := config.Default().Training
	csvPath := flag.String("csv", defaults.DataPath, "CSV dataset to import")
	dbPath := flag.String("db", "datasets.db", "SQLite database file")
	table := flag.String("table", "heart", "destination table")
	target := flag.String("target", defaults.Target, "label column that must be present")
	encoding := flag.String("encoding", "", "CSV character encoding (default UTF-8)")
	flag.Parse()

	logger, err := logging.New(config.Default().Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ds, err := ml.LoadCSV(*csvPath, *target, ml.WithEncoding(*encoding))
	if err != nil {
		logger.Fatal("load dataset", zap.Error(err))
	}

	store, err := db.Open(*dbPath)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	defer store.Close()

	if err := store.SaveTable(*table, ds.Table); err != nil {
		logger.Fatal("save table", zap.Error(err))
	}
	logger.Info("dataset imported",
		zap.String("csv", *csvPath),
		zap.String("db", *dbPath),
		zap.String("table", *table),
		zap.Int("rows", ds.Len()),
		zap.Int("columns", len(ds.Table.Columns)))
}
