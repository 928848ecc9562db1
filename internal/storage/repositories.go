package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// timeFormat is fixed width so stored timestamps sort lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Run kinds
const (
	RunKindCompile = "compile"
	RunKindFixup   = "fixup"
)

// Run statuses. A run that fails is discarded, never stored.
const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
)

// Run is one compile or fixup invocation.
type Run struct {
	RunID      string     `json:"runId"`
	Kind       string     `json:"kind"`
	Status     string     `json:"status"`
	Src        string     `json:"src,omitempty"`
	Dst        string     `json:"dst"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

// ModuleRecord is a module emitted by a compile run.
type ModuleRecord struct {
	RunID      string `json:"runId"`
	Name       string `json:"name"`
	GUID       string `json:"guid"`
	BinaryPath string `json:"binaryPath"`
	FileCount  int    `json:"fileCount"`
}

// FileMapping records where one original identity went.
type FileMapping struct {
	RunID         string `json:"runId"`
	OriginalGUID  string `json:"originalGuid"`
	ModuleName    string `json:"moduleName"`
	ModuleGUID    string `json:"moduleGuid"`
	Path          string `json:"path"`
	ClassFullName string `json:"classFullName"`
	FileID        int32  `json:"fileID"`
}

// RewriteRecord is a document patched by a fixup run.
type RewriteRecord struct {
	RunID         string `json:"runId"`
	Path          string `json:"path"`
	Substitutions int    `json:"substitutions"`
}

// RunRepository provides operations on the runs table
type RunRepository struct {
	db *DB
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a new run
func (r *RunRepository) Create(run *Run) error {
	_, err := r.db.Exec(`
		INSERT INTO runs (run_id, kind, status, src, dst, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		run.RunID,
		run.Kind,
		run.Status,
		run.Src,
		run.Dst,
		run.StartedAt.UTC().Format(timeFormat),
		formatTimePtr(run.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// Complete marks a running run as succeeded.
func (r *RunRepository) Complete(runID string) error {
	result, err := r.db.Exec(`
		UPDATE runs SET status = ?, finished_at = ?
		WHERE run_id = ? AND status = ?
	`, RunStatusSucceeded, time.Now().UTC().Format(timeFormat), runID, RunStatusRunning)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("run not found or not running: %s", runID)
	}
	return nil
}

// Discard deletes a run and everything recorded for it.
func (r *RunRepository) Discard(runID string) error {
	if _, err := r.db.Exec("DELETE FROM runs WHERE run_id = ?", runID); err != nil {
		return fmt.Errorf("failed to discard run: %w", err)
	}
	return nil
}

// Get retrieves a run by ID. A missing run returns nil, nil.
func (r *RunRepository) Get(runID string) (*Run, error) {
	rows, err := r.db.Query(`
		SELECT run_id, kind, status, src, dst, started_at, finished_at
		FROM runs WHERE run_id = ?
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	defer rows.Close()

	runs, err := scanRuns(rows)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return runs[0], nil
}

// List returns the most recent runs first. limit <= 0 returns all.
func (r *RunRepository) List(limit int) ([]*Run, error) {
	query := `
		SELECT run_id, kind, status, src, dst, started_at, finished_at
		FROM runs ORDER BY started_at DESC`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	return scanRuns(rows)
}

func scanRuns(rows *sql.Rows) ([]*Run, error) {
	var runs []*Run

	for rows.Next() {
		var run Run
		var startedAt string
		var finishedAt sql.NullString

		if err := rows.Scan(
			&run.RunID,
			&run.Kind,
			&run.Status,
			&run.Src,
			&run.Dst,
			&startedAt,
			&finishedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		t, err := time.Parse(timeFormat, startedAt)
		if err != nil {
			return nil, fmt.Errorf("invalid started_at format: %w", err)
		}
		run.StartedAt = t

		if finishedAt.Valid {
			t, err := time.Parse(timeFormat, finishedAt.String)
			if err != nil {
				return nil, fmt.Errorf("invalid finished_at format: %w", err)
			}
			run.FinishedAt = &t
		}

		runs = append(runs, &run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return runs, nil
}

// MappingRepository provides operations on the modules and file_mappings
// tables
type MappingRepository struct {
	db *DB
}

// NewMappingRepository creates a new mapping repository
func NewMappingRepository(db *DB) *MappingRepository {
	return &MappingRepository{db: db}
}

// Record stores the modules and file mappings of a run in one transaction.
func (r *MappingRepository) Record(modules []ModuleRecord, mappings []FileMapping) error {
	return r.db.WithTx(func(tx *sql.Tx) error {
		moduleStmt, err := tx.Prepare(`
			INSERT INTO modules (run_id, name, guid, binary_path, file_count)
			VALUES (?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare module insert: %w", err)
		}
		defer moduleStmt.Close()

		for _, m := range modules {
			if _, err := moduleStmt.Exec(m.RunID, m.Name, m.GUID, m.BinaryPath, m.FileCount); err != nil {
				return fmt.Errorf("failed to record module %s: %w", m.Name, err)
			}
		}

		mappingStmt, err := tx.Prepare(`
			INSERT INTO file_mappings (
				run_id, original_guid, module_name, module_guid, path, class_full_name, file_id
			) VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare mapping insert: %w", err)
		}
		defer mappingStmt.Close()

		for _, fm := range mappings {
			if _, err := mappingStmt.Exec(
				fm.RunID, fm.OriginalGUID, fm.ModuleName, fm.ModuleGUID, fm.Path, fm.ClassFullName, fm.FileID,
			); err != nil {
				return fmt.Errorf("failed to record mapping %s: %w", fm.OriginalGUID, err)
			}
		}
		return nil
	})
}

// LatestByOriginal returns the mapping of an original identity from the
// most recent successful run. A missing mapping returns nil, nil.
func (r *MappingRepository) LatestByOriginal(originalGUID string) (*FileMapping, error) {
	var fm FileMapping
	err := r.db.QueryRow(`
		SELECT f.run_id, f.original_guid, f.module_name, f.module_guid, f.path, f.class_full_name, f.file_id
		FROM file_mappings f
		JOIN runs r ON r.run_id = f.run_id
		WHERE f.original_guid = ? AND r.status = ?
		ORDER BY r.started_at DESC
		LIMIT 1
	`, originalGUID, RunStatusSucceeded).Scan(
		&fm.RunID,
		&fm.OriginalGUID,
		&fm.ModuleName,
		&fm.ModuleGUID,
		&fm.Path,
		&fm.ClassFullName,
		&fm.FileID,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up mapping: %w", err)
	}
	return &fm, nil
}

// ModulesByRun lists the modules recorded for a run, by name.
func (r *MappingRepository) ModulesByRun(runID string) ([]*ModuleRecord, error) {
	rows, err := r.db.Query(`
		SELECT run_id, name, guid, binary_path, file_count
		FROM modules WHERE run_id = ? ORDER BY name
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list modules: %w", err)
	}
	defer rows.Close()

	var out []*ModuleRecord
	for rows.Next() {
		var m ModuleRecord
		if err := rows.Scan(&m.RunID, &m.Name, &m.GUID, &m.BinaryPath, &m.FileCount); err != nil {
			return nil, fmt.Errorf("failed to scan module: %w", err)
		}
		out = append(out, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}

// RewriteRepository provides operations on the rewrites table
type RewriteRepository struct {
	db *DB
}

// NewRewriteRepository creates a new rewrite repository
func NewRewriteRepository(db *DB) *RewriteRepository {
	return &RewriteRepository{db: db}
}

// Record stores the patched documents of a run in one transaction.
func (r *RewriteRepository) Record(records []RewriteRecord) error {
	return r.db.WithTx(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare("INSERT INTO rewrites (run_id, path, substitutions) VALUES (?, ?, ?)")
		if err != nil {
			return fmt.Errorf("failed to prepare rewrite insert: %w", err)
		}
		defer stmt.Close()

		for _, rec := range records {
			if _, err := stmt.Exec(rec.RunID, rec.Path, rec.Substitutions); err != nil {
				return fmt.Errorf("failed to record rewrite %s: %w", rec.Path, err)
			}
		}
		return nil
	})
}

// ListByRun lists the documents a run patched, by path.
func (r *RewriteRepository) ListByRun(runID string) ([]*RewriteRecord, error) {
	rows, err := r.db.Query(`
		SELECT run_id, path, substitutions FROM rewrites
		WHERE run_id = ? ORDER BY path
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rewrites: %w", err)
	}
	defer rows.Close()

	var out []*RewriteRecord
	for rows.Next() {
		var rec RewriteRecord
		if err := rows.Scan(&rec.RunID, &rec.Path, &rec.Substitutions); err != nil {
			return nil, fmt.Errorf("failed to scan rewrite: %w", err)
		}
		out = append(out, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}

// formatTimePtr formats a time pointer for SQL storage
func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(timeFormat)
}
