package ml

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/text/encoding/charmap"
)

func TestLoadCSV(t *testing.T) {
	path := writeCSV(t, separableTable(20))

	ds, err := LoadCSV(path, "output")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ds.Len() != 20 {
		t.Fatalf("expected 20 rows, got %d", ds.Len())
	}
	if len(ds.FeatureNames) != 13 {
		t.Fatalf("expected 13 feature columns, got %d", len(ds.FeatureNames))
	}
	for i, name := range FeatureNames() {
		if ds.FeatureNames[i] != name {
			t.Fatalf("column %d: expected %s, got %s", i, name, ds.FeatureNames[i])
		}
	}
	if len(ds.Table.Columns) != 14 {
		t.Fatalf("expected full table to keep the target column")
	}
	if ds.Labels[1] != 1 || ds.Features[1][0] != 62 {
		t.Fatalf("unexpected row: %v -> %d", ds.Features[1], ds.Labels[1])
	}
}

func TestLoadCSVTargetInMiddle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	content := "a,output,b\n1,0,2\n3,1,4\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	ds, err := LoadCSV(path, "output")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ds.FeatureNames[0] != "a" || ds.FeatureNames[1] != "b" {
		t.Fatalf("unexpected feature names: %v", ds.FeatureNames)
	}
	if ds.Features[1][0] != 3 || ds.Features[1][1] != 4 || ds.Labels[1] != 1 {
		t.Fatalf("unexpected row: %v %d", ds.Features[1], ds.Labels[1])
	}
}

func TestLoadCSVErrors(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
		return p
	}

	tests := []struct {
		name    string
		path    string
		target  string
		wantErr error
	}{
		{name: "missing file", path: filepath.Join(dir, "nope.csv"), target: "output", wantErr: os.ErrNotExist},
		{name: "missing target", path: write("no_target.csv", "age,sex\n63,1\n"), target: "output", wantErr: ErrTargetMissing},
		{name: "empty", path: write("empty.csv", ""), target: "output", wantErr: ErrEmptyDataset},
		{name: "header only", path: write("header.csv", "age,output\n"), target: "output", wantErr: ErrEmptyDataset},
		{name: "non numeric", path: write("text.csv", "age,output\nold,1\n"), target: "output"},
		{name: "ragged", path: write("ragged.csv", "age,output\n1,0\n2\n"), target: "output"},
		{name: "nan cell", path: write("nan.csv", "age,output\n63,1\nNaN,0\n"), target: "output"},
		{name: "infinite cell", path: write("inf.csv", "age,output\n63,1\n-Inf,0\n"), target: "output"},
		{name: "fractional label", path: write("label.csv", "age,output\n1,0.5\n"), target: "output"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadCSV(tt.path, tt.target)
			var loadErr *DataLoadError
			if !errors.As(err, &loadErr) {
				t.Fatalf("expected DataLoadError, got %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadCSVEncoding(t *testing.T) {
	encoded, err := charmap.Windows1252.NewEncoder().String("âge,output\n63,1\n41,0\n")
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "latin.csv")
	if err := os.WriteFile(path, []byte(encoded), 0o600); err != nil {
		t.Fatal(err)
	}

	ds, err := LoadCSV(path, "output", WithEncoding("windows-1252"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ds.FeatureNames[0] != "âge" {
		t.Fatalf("expected decoded header, got %q", ds.FeatureNames[0])
	}

	if _, err := LoadCSV(path, "output", WithEncoding("klingon")); err == nil {
		t.Fatal("expected error for unknown encoding")
	}
}

func TestLoadCSVStripsBOMAndSemicolons(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bom.csv")
	if err := os.WriteFile(path, []byte("\xef\xbb\xbfage;output\n63;1\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	ds, err := LoadCSV(path, "output", WithComma(';'))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ds.FeatureNames[0] != "age" {
		t.Fatalf("expected BOM to be stripped, got %q", ds.FeatureNames[0])
	}
}

func TestWriteHead(t *testing.T) {
	ds := separableDataset(t, 20)
	var buf bytes.Buffer
	if err := ds.WriteHead(&buf, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 6 {
		t.Fatalf("expected header plus 5 rows, got %d lines:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "thalachh") || !strings.Contains(lines[0], "output") {
		t.Fatalf("header missing columns: %q", lines[0])
	}
	if !strings.HasPrefix(strings.TrimSpace(lines[5]), "4") {
		t.Fatalf("expected last line to be row 4: %q", lines[5])
	}
}
