package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"lvc-go/internal/database/migrations"
	"lvc-go/internal/lvc"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteJournal implements lvc.Journal using SQLite.
type SQLiteJournal struct {
	db     *sql.DB
	path   string
	schema *migrations.Result
}

// NewSQLiteJournal opens the journal at path and brings its schema up to date.
// path can be a file path or ":memory:" for an in-memory journal.
func NewSQLiteJournal(path string) (*SQLiteJournal, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	res, err := migrations.Ensure(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("opening journal %s: %w", path, err)
	}
	return &SQLiteJournal{db: db, path: path, schema: res}, nil
}

// NewSQLiteJournalFromDB wraps an existing database connection.
// The caller is responsible for ensuring the schema is in place.
func NewSQLiteJournalFromDB(db *sql.DB) *SQLiteJournal {
	return &SQLiteJournal{db: db}
}

// OpenConnection opens and configures a SQLite connection with appropriate PRAGMAs.
// path can be a file path or ":memory:" for an in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	// Foreign keys and the busy timeout go in the DSN so that every pooled
	// connection gets them, not just the first.
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Each pooled connection to :memory: would see its own empty database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// Operation tracking

func (j *SQLiteJournal) CreateOperation(operation, parameters string, startedAt time.Time) (*lvc.OperationRecord, error) {
	res, err := j.db.ExecContext(context.Background(),
		`INSERT INTO operations (operation, parameters, started_at, status) VALUES (?, ?, ?, 'running')`,
		operation, parameters, startedAt.UTC())
	if err != nil {
		return nil, fmt.Errorf("creating operation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading operation id: %w", err)
	}
	return &lvc.OperationRecord{
		ID:         id,
		Operation:  operation,
		Parameters: parameters,
		StartedAt:  startedAt.UTC(),
		Status:     "running",
	}, nil
}

func (j *SQLiteJournal) FinishOperation(id int64, status string, finishedAt time.Time) error {
	res, err := j.db.ExecContext(context.Background(),
		`UPDATE operations SET finished_at = ?, status = ? WHERE id = ?`,
		finishedAt.UTC(), status, id)
	if err != nil {
		return fmt.Errorf("finishing operation: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finishing operation: no operation with id %d", id)
	}
	return nil
}

func (j *SQLiteJournal) ListOperations(limit int) ([]*lvc.OperationRecord, error) {
	rows, err := j.db.QueryContext(context.Background(),
		`SELECT id, operation, parameters, started_at, finished_at, status
		 FROM operations ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	defer rows.Close()

	var ops []*lvc.OperationRecord
	for rows.Next() {
		var op lvc.OperationRecord
		var finished sql.NullTime
		if err := rows.Scan(&op.ID, &op.Operation, &op.Parameters, &op.StartedAt, &finished, &op.Status); err != nil {
			return nil, fmt.Errorf("scanning operation: %w", err)
		}
		op.StartedAt = op.StartedAt.UTC()
		if finished.Valid {
			t := finished.Time.UTC()
			op.FinishedAt = &t
		}
		ops = append(ops, &op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	return ops, nil
}

// MaxOperationID returns the highest operation id, or 0 for an empty journal.
func (j *SQLiteJournal) MaxOperationID() (int64, error) {
	var id int64
	err := j.db.QueryRowContext(context.Background(), `SELECT COALESCE(MAX(id), 0) FROM operations`).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("getting max operation ID: %w", err)
	}
	return id, nil
}

// GC runs

func (j *SQLiteJournal) RecordGC(operationID int64, report *lvc.GCReport, aggressive bool, at time.Time) error {
	_, err := j.db.ExecContext(context.Background(),
		`INSERT INTO gc_runs (operation_id, ran_at, dry_run, aggressive, removed_objects, freed_bytes, pruned_snapshots)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		operationID, at.UTC(), report.DryRun, aggressive, report.RemovedObjects, report.FreedBytes, len(report.PrunedSnapshots))
	if err != nil {
		return fmt.Errorf("recording gc run: %w", err)
	}
	return nil
}

func (j *SQLiteJournal) ListGCRuns(limit int) ([]*lvc.GCRunRecord, error) {
	rows, err := j.db.QueryContext(context.Background(),
		`SELECT id, operation_id, ran_at, dry_run, aggressive, removed_objects, freed_bytes, pruned_snapshots
		 FROM gc_runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing gc runs: %w", err)
	}
	defer rows.Close()

	var runs []*lvc.GCRunRecord
	for rows.Next() {
		var r lvc.GCRunRecord
		if err := rows.Scan(&r.ID, &r.OperationID, &r.RanAt, &r.DryRun, &r.Aggressive,
			&r.RemovedObjects, &r.FreedBytes, &r.PrunedSnapshots); err != nil {
			return nil, fmt.Errorf("scanning gc run: %w", err)
		}
		r.RanAt = r.RanAt.UTC()
		runs = append(runs, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing gc runs: %w", err)
	}
	return runs, nil
}

// Path returns the database file path (or ":memory:" for in-memory journals).
func (j *SQLiteJournal) Path() string {
	return j.path
}

// Schema reports the schema versions seen when the journal was opened,
// or nil for a journal wrapped with NewSQLiteJournalFromDB.
func (j *SQLiteJournal) Schema() *migrations.Result {
	return j.schema
}

// BackupTo creates a complete copy of the journal at destPath using VACUUM INTO.
func (j *SQLiteJournal) BackupTo(destPath string) error {
	if _, err := j.db.Exec("VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("backing up journal: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (j *SQLiteJournal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

var _ lvc.Journal = (*SQLiteJournal)(nil)
