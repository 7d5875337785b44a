// Package db stores training datasets in SQLite tables.
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"heartrisk/ml"

	_ "github.com/mattn/go-sqlite3"
)

// rowIDColumn preserves the insertion order of dataset rows.
const rowIDColumn = "_row"

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Store is a SQLite database holding one table per dataset.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the SQLite database at path in WAL mode.
func Open(path string) (*Store, error) {
	dsn := "file:" + path + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	database, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	database.SetMaxOpenConns(1)
	if err := database.Ping(); err != nil {
		database.Close()
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	return &Store{db: database, path: path}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveTable replaces table name with the contents of t.
func (s *Store) SaveTable(name string, t *ml.Table) error {
	if err := checkTableName(name); err != nil {
		return err
	}
	if t == nil || len(t.Columns) == 0 {
		return errors.New("table has no columns")
	}

	cols := make([]string, len(t.Columns))
	placeholders := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		if c == rowIDColumn {
			return fmt.Errorf("column name %q is reserved", c)
		}
		cols[i] = quoteIdent(c)
		placeholders[i] = "?"
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}

	if _, err := tx.Exec(`DROP TABLE IF EXISTS ` + quoteIdent(name)); err != nil {
		tx.Rollback()
		return err
	}
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = c + " REAL NOT NULL"
	}
	create := fmt.Sprintf(`CREATE TABLE %s (%s INTEGER PRIMARY KEY, %s)`,
		quoteIdent(name), quoteIdent(rowIDColumn), strings.Join(defs, ", "))
	if _, err := tx.Exec(create); err != nil {
		tx.Rollback()
		return err
	}

	stmt, err := tx.Prepare(fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
		quoteIdent(name), strings.Join(cols, ", "), strings.Join(placeholders, ", ")))
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	args := make([]any, len(cols))
	for i, row := range t.Rows {
		if len(row) != len(cols) {
			tx.Rollback()
			return fmt.Errorf("row %d: expected %d values, got %d", i+1, len(cols), len(row))
		}
		for j, v := range row {
			args[j] = v
		}
		if _, err := stmt.Exec(args...); err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// LoadTable reads table name in insertion order.
func (s *Store) LoadTable(name string) (*ml.Table, error) {
	if err := checkTableName(name); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(fmt.Sprintf(`SELECT * FROM %s ORDER BY %s`, quoteIdent(name), quoteIdent(rowIDColumn)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	rowIdx := -1
	names := make([]string, 0, len(columns))
	for i, c := range columns {
		if c == rowIDColumn {
			rowIdx = i
			continue
		}
		names = append(names, c)
	}

	table := &ml.Table{Columns: names}
	values := make([]sql.NullFloat64, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}
	for line := 1; rows.Next(); line++ {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		row := make([]float64, 0, len(names))
		for i, v := range values {
			if i == rowIdx {
				continue
			}
			if !v.Valid {
				return nil, fmt.Errorf("row %d column %s: NULL value", line, columns[i])
			}
			if math.IsNaN(v.Float64) || math.IsInf(v.Float64, 0) {
				return nil, fmt.Errorf("row %d column %s: not a finite number", line, columns[i])
			}
			row = append(row, v.Float64)
		}
		table.Rows = append(table.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return table, nil
}

// LoadDataset reads table name and separates the target column, reporting
// every failure as an *ml.DataLoadError.
func (s *Store) LoadDataset(name, target string) (*ml.Dataset, error) {
	source := s.path + "#" + name
	table, err := s.LoadTable(name)
	if err != nil {
		return nil, &ml.DataLoadError{Path: source, Err: err}
	}
	ds, err := ml.NewDataset(table, target)
	if err != nil {
		return nil, &ml.DataLoadError{Path: source, Err: err}
	}
	return ds, nil
}

func checkTableName(name string) error {
	if !tableNamePattern.MatchString(name) {
		return fmt.Errorf("invalid table name %q", name)
	}
	return nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
