// Package store persists simulation results in a SQLite database.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

const (
	tableResult = "result"
)

// Result is a measured value of a run.
type Result struct {
	// Run names the run, usually after its configuration.
	Run string
	// Kind is the kind of simulation, such as "sweep" or "quench".
	Kind string
	// MaxDim is the maximum bond dimension, or 0 for no limit.
	MaxDim int
	// Step is the time step or circuit layer at which Value is measured.
	Step int
	// Key names the measured quantity, such as "fidelity" or "Z[3]".
	Key   string
	Value float64
}

// DB is a results database.
type DB struct {
	Path string

	db *sql.DB
}

// Open opens the results database at path, creating it if it does not exist.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", path))
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	if err := prepareDB(db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, fmt.Sprintf("db %s", path))
	}
	return &DB{Path: path, db: db}, nil
}

// Close closes the database.
func (s *DB) Close() error {
	if err := s.db.Close(); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

// Put stores results, replacing previous values with the same run, kind, maxDim, step and key.
func (s *DB) Put(results ...Result) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "")
	}
	defer tx.Rollback()

	sqlStr := fmt.Sprintf(`INSERT OR REPLACE INTO %s (run, kind, maxdim, step, key, value) VALUES (?, ?, ?, ?, ?, ?)`, tableResult)
	stmt, err := tx.PrepareContext(ctx, sqlStr)
	if err != nil {
		return errors.Wrap(err, "")
	}
	defer stmt.Close()
	for _, r := range results {
		args := []any{r.Run, r.Kind, r.MaxDim, r.Step, r.Key, r.Value}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return errors.Wrap(err, fmt.Sprintf("%s %#v", sqlStr, args))
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

// List returns the results of a run, ordered by kind, maxDim, step and key.
func (s *DB) List(run string) ([]Result, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlStr := fmt.Sprintf(`SELECT kind, maxdim, step, key, value FROM %s WHERE run=? ORDER BY kind, maxdim, step, key`, tableResult)
	rows, err := s.db.QueryContext(ctx, sqlStr, run)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	defer rows.Close()

	results := make([]Result, 0)
	for rows.Next() {
		r := Result{Run: run}
		if err := rows.Scan(&r.Kind, &r.MaxDim, &r.Step, &r.Key, &r.Value); err != nil {
			return nil, errors.Wrap(err, "")
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "")
	}
	return results, nil
}

// Runs returns the names of all stored runs.
func (s *DB) Runs() ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	sqlStr := fmt.Sprintf(`SELECT DISTINCT run FROM %s ORDER BY run`, tableResult)
	rows, err := s.db.QueryContext(ctx, sqlStr)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	defer rows.Close()

	runs := make([]string, 0)
	for rows.Next() {
		var run string
		if err := rows.Scan(&run); err != nil {
			return nil, errors.Wrap(err, "")
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "")
	}
	return runs, nil
}

func prepareDB(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	sqlStr := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (run TEXT, kind TEXT, maxdim INTEGER, step INTEGER, key TEXT, value REAL, PRIMARY KEY (run, kind, maxdim, step, key)) STRICT`, tableResult)
	if _, err := db.ExecContext(ctx, sqlStr); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}
