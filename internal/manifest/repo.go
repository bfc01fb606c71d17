package manifest

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/vimwiki2neorg/internal/apperr"
	"github.com/starford/vimwiki2neorg/internal/models"
	"github.com/starford/vimwiki2neorg/internal/rewrite"
)

// RecordConversion upserts a conversion and replaces its links within a
// transaction.
func (db *DB) RecordConversion(c models.Conversion, links []rewrite.LinkRef) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("manifest: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	_, err = tx.Exec(`
		INSERT INTO conversions (source, dest, checksum, run_id, converted_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(source) DO UPDATE SET
			dest         = excluded.dest,
			checksum     = excluded.checksum,
			run_id       = excluded.run_id,
			converted_at = excluded.converted_at
	`, c.Source, c.Dest, c.Checksum, c.RunID, c.ConvertedAt.UTC())
	if err != nil {
		return fmt.Errorf("manifest: upsert conversion: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM links WHERE source = ?`, c.Source); err != nil {
		return fmt.Errorf("manifest: clear links: %w", err)
	}
	if len(links) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO links (source, raw, target, file) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("manifest: prepare link insert: %w", err)
		}
		defer stmt.Close()
		for _, l := range links {
			if _, err := stmt.Exec(c.Source, l.Raw, l.Target, l.File); err != nil {
				return fmt.Errorf("manifest: insert link: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteConversion removes a conversion and its outgoing links.
func (db *DB) DeleteConversion(source string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("manifest: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`DELETE FROM links WHERE source = ?`, source); err != nil {
		return fmt.Errorf("manifest: delete links: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM conversions WHERE source = ?`, source); err != nil {
		return fmt.Errorf("manifest: delete conversion: %w", err)
	}
	return tx.Commit()
}

// GetConversion returns the recorded conversion for source, or
// apperr.ErrNotFound.
func (db *DB) GetConversion(source string) (*models.Conversion, error) {
	var c models.Conversion
	err := db.conn.QueryRow(`
		SELECT source, dest, checksum, run_id, converted_at
		FROM conversions WHERE source = ?
	`, source).Scan(&c.Source, &c.Dest, &c.Checksum, &c.RunID, &c.ConvertedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("manifest: get conversion: %w", err)
	}
	return &c, nil
}

// AllChecksums returns source path -> recorded source checksum.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT source, checksum FROM conversions`)
	if err != nil {
		return nil, fmt.Errorf("manifest: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// ListConversions returns every recorded conversion ordered by source path.
func (db *DB) ListConversions() ([]models.Conversion, error) {
	rows, err := db.conn.Query(`
		SELECT source, dest, checksum, run_id, converted_at
		FROM conversions ORDER BY source
	`)
	if err != nil {
		return nil, fmt.Errorf("manifest: list conversions: %w", err)
	}
	defer rows.Close()

	var out []models.Conversion
	for rows.Next() {
		var c models.Conversion
		if err := rows.Scan(&c.Source, &c.Dest, &c.Checksum, &c.RunID, &c.ConvertedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Backlinks returns the source paths whose wikilinks point at target. A link
// matches on its raw text, on the part before the pipe, or on the normalized
// file name, so "My Page", "My Page|label" and "My_Page.norg" all resolve.
func (db *DB) Backlinks(target string) ([]string, error) {
	rows, err := db.conn.Query(`
		SELECT DISTINCT source FROM links
		WHERE raw = ? OR target = ? OR file = ? OR file = ?
		ORDER BY source
	`, target, target, target, rewrite.Normalize(target))
	if err != nil {
		return nil, fmt.Errorf("manifest: backlinks: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
