package manifest

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RunCounts is the outcome of one tree conversion.
type RunCounts struct {
	Converted int
	Skipped   int
	Failed    int
}

// Run is a row of the runs table.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt *time.Time
	RunCounts
}

// BeginRun inserts a new run and returns its id.
func (db *DB) BeginRun() (string, error) {
	id := uuid.NewString()
	if _, err := db.conn.Exec(`INSERT INTO runs (id, started_at) VALUES (?, ?)`, id, time.Now().UTC()); err != nil {
		return "", fmt.Errorf("manifest: begin run: %w", err)
	}
	return id, nil
}

// FinishRun stamps the run as finished with its counts.
func (db *DB) FinishRun(id string, counts RunCounts) error {
	res, err := db.conn.Exec(`
		UPDATE runs SET finished_at = ?, converted = ?, skipped = ?, failed = ?
		WHERE id = ?
	`, time.Now().UTC(), counts.Converted, counts.Skipped, counts.Failed, id)
	if err != nil {
		return fmt.Errorf("manifest: finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("manifest: finish run: unknown run %s", id)
	}
	return nil
}

// LastRun returns the most recently started run, or nil when none exist.
func (db *DB) LastRun() (*Run, error) {
	rows, err := db.conn.Query(`
		SELECT id, started_at, finished_at, converted, skipped, failed
		FROM runs ORDER BY started_at DESC LIMIT 1
	`)
	if err != nil {
		return nil, fmt.Errorf("manifest: last run: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}
	var r Run
	if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Converted, &r.Skipped, &r.Failed); err != nil {
		return nil, err
	}
	return &r, nil
}
