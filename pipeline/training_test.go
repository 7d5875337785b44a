package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"
	"testing"

	"heartrisk/config"
	"heartrisk/db"
	"heartrisk/ml"
)

// heartRows returns n rows over the dataset columns where output is 1 exactly
// when age > 60.
func heartRows(n int) *ml.Table {
	table := &ml.Table{Columns: append(ml.FeatureNames(), "output")}
	for i := 0; i < n; i++ {
		label := i % 2
		age := 35 + float64(i%10)
		if label == 1 {
			age = 65 + float64(i%10)
		}
		table.Rows = append(table.Rows, []float64{
			age, float64(i % 2), float64(i % 4), 130, 240, 0, float64(i % 3), 150, 0, 1.2, 1, 0, 2, float64(label),
		})
	}
	return table
}

func writeHeartCSV(t *testing.T, dir string, table *ml.Table) string {
	t.Helper()
	var b strings.Builder
	b.WriteString(strings.Join(table.Columns, ",") + "\n")
	for _, row := range table.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = fmt.Sprint(v)
		}
		b.WriteString(strings.Join(cells, ",") + "\n")
	}
	path := filepath.Join(dir, "heart.csv")
	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func testConfig(dir string) config.Training {
	cfg := config.Default().Training
	cfg.DataPath = filepath.Join(dir, "heart.csv")
	cfg.ModelPath = filepath.Join(dir, "model.json")
	cfg.Forest.TreeCount = 20
	return cfg
}

var accuracyLine = regexp.MustCompile(`(?m)^Model Accuracy: \d{1,3}\.\d{2}%$`)

func TestTrainingPipelineRun(t *testing.T) {
	dir := t.TempDir()
	writeHeartCSV(t, dir, heartRows(60))

	var out bytes.Buffer
	report, err := NewTrainingPipeline(testConfig(dir), nil, &out).Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.Rows != 60 || report.TrainRows != 48 || report.TestRows != 12 {
		t.Errorf("unexpected split: %+v", report)
	}
	if pct := report.Evaluation.Percent(); pct < 90 || pct > 100 {
		t.Errorf("accuracy out of range: %v", pct)
	}

	printed := out.String()
	if !accuracyLine.MatchString(printed) {
		t.Errorf("accuracy line missing from %q", printed)
	}
	if !strings.Contains(printed, "thalachh") || !strings.Contains(printed, report.Evaluation.String()) {
		t.Errorf("unexpected output %q", printed)
	}

	model, err := ml.LoadModel(report.ModelPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(model.Features, ml.FeatureNames()) {
		t.Errorf("unexpected features %v", model.Features)
	}

	p, err := model.PredictRow(ml.DefaultFeatureRow())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Label != 0 && p.Label != 1 {
		t.Errorf("unexpected label %d", p.Label)
	}
}

func TestTrainingPipelineReproducible(t *testing.T) {
	dir := t.TempDir()
	writeHeartCSV(t, dir, heartRows(40))
	cfg := testConfig(dir)

	run := func() (*Report, string) {
		report, err := NewTrainingPipeline(cfg, nil, nil).Run(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		data, err := os.ReadFile(cfg.ModelPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return report, string(data)
	}
	first, a := run()
	second, b := run()

	if first.Evaluation != second.Evaluation {
		t.Errorf("evaluations differ: %+v vs %+v", first.Evaluation, second.Evaluation)
	}
	// Only created_at may differ between the two artifacts.
	stamp := regexp.MustCompile(`"created_at":"[^"]*"`)
	if stamp.ReplaceAllString(a, "") != stamp.ReplaceAllString(b, "") {
		t.Error("artifacts differ between runs")
	}
}

func TestTrainingPipelineMissingTarget(t *testing.T) {
	dir := t.TempDir()
	table := heartRows(20)
	table.Columns[len(table.Columns)-1] = "target"
	writeHeartCSV(t, dir, table)
	cfg := testConfig(dir)

	_, err := NewTrainingPipeline(cfg, nil, nil).Run(context.Background())
	var loadErr *ml.DataLoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("expected DataLoadError, got %v", err)
	}
	if !errors.Is(err, ml.ErrTargetMissing) {
		t.Fatalf("expected ErrTargetMissing, got %v", err)
	}

	if _, err := os.Stat(cfg.ModelPath); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("no artifact may be written on failure: %v", err)
	}
}

func TestTrainingPipelineMissingFile(t *testing.T) {
	cfg := testConfig(t.TempDir())
	_, err := NewTrainingPipeline(cfg, nil, nil).Run(context.Background())
	var loadErr *ml.DataLoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("expected DataLoadError, got %v", err)
	}
}

func TestTrainingPipelineSQLiteSource(t *testing.T) {
	dir := t.TempDir()
	store, err := db.Open(filepath.Join(dir, "datasets.db"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.SaveTable("heart", heartRows(30)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg := testConfig(dir)
	cfg.Source = "sqlite"
	cfg.SQLitePath = filepath.Join(dir, "datasets.db")
	cfg.Table = "heart"

	report, err := NewTrainingPipeline(cfg, nil, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Rows != 30 {
		t.Errorf("expected 30 rows, got %d", report.Rows)
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		t.Errorf("artifact missing: %v", err)
	}
}

func TestTrainingPipelineCancelled(t *testing.T) {
	dir := t.TempDir()
	writeHeartCSV(t, dir, heartRows(20))
	cfg := testConfig(dir)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewTrainingPipeline(cfg, nil, nil).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, err := os.Stat(cfg.ModelPath); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("no artifact may be written on cancel: %v", err)
	}
}
