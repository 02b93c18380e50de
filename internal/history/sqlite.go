package history

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vk/pipegrid/internal/run"
)

// SQLiteStore implements Store on a single SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the history database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Migrate implements Store.
func (s *SQLiteStore) Migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		pipeline TEXT NOT NULL,
		event TEXT NOT NULL,
		branch TEXT NOT NULL,
		overall TEXT NOT NULL,
		started DATETIME NOT NULL,
		finished DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS cells (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		job TEXT NOT NULL,
		cell TEXT NOT NULL,
		outcome TEXT NOT NULL,
		error TEXT DEFAULT '',
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_pipeline ON runs(pipeline);
	CREATE INDEX IF NOT EXISTS idx_cells_run_id ON cells(run_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRun implements Store. The run and its cells land in one transaction.
func (s *SQLiteStore) SaveRun(r *run.PipelineRun) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin history transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs (id, pipeline, event, branch, overall, started, finished)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.Pipeline, string(r.Event), r.Branch, r.Overall().String(), r.Started, r.Finished)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, job := range r.Jobs {
		if len(job.Cells) == 0 {
			// Skipped and canceled-before-expansion jobs still get a row so
			// the history table is as complete as the report.
			if _, err := tx.Exec(`
				INSERT INTO cells (run_id, job, cell, outcome, error)
				VALUES (?, ?, ?, ?, '')
			`, r.ID, job.Job, job.Job, job.Outcome.String()); err != nil {
				return fmt.Errorf("insert job row: %w", err)
			}
			continue
		}
		for _, cell := range job.Cells {
			if _, err := tx.Exec(`
				INSERT INTO cells (run_id, job, cell, outcome, error)
				VALUES (?, ?, ?, ?, ?)
			`, r.ID, job.Job, cell.Cell.Name, cell.Outcome.String(), cell.Err); err != nil {
				return fmt.Errorf("insert cell row: %w", err)
			}
		}
	}
	return tx.Commit()
}

// ListRuns implements Store.
func (s *SQLiteStore) ListRuns(limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, pipeline, event, branch, overall, started, finished
		FROM runs ORDER BY started DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Pipeline, &rec.Event, &rec.Branch, &rec.Overall, &rec.Started, &rec.Finished); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ListCells implements Store.
func (s *SQLiteStore) ListCells(runID string) ([]CellRecord, error) {
	rows, err := s.db.Query(`
		SELECT run_id, job, cell, outcome, error
		FROM cells WHERE run_id = ? ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query cells: %w", err)
	}
	defer rows.Close()

	var records []CellRecord
	for rows.Next() {
		var rec CellRecord
		if err := rows.Scan(&rec.RunID, &rec.Job, &rec.Cell, &rec.Outcome, &rec.Err); err != nil {
			return nil, fmt.Errorf("scan cell row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
