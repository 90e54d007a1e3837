package index

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/cardbind/internal/apperr"
	"github.com/starford/cardbind/internal/models"
)

// UpsertBundle inserts or replaces a bundle row.
func (db *DB) UpsertBundle(b models.Bundle) error {
	_, err := db.conn.Exec(`
		INSERT INTO bundles (name, card_file, checksum, file_count, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			card_file  = excluded.card_file,
			checksum   = excluded.checksum,
			file_count = excluded.file_count,
			updated_at = excluded.updated_at
	`, b.Name, b.CardFile, b.Checksum, b.FileCount, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert bundle: %w", err)
	}
	return nil
}

// DeleteBundle removes a bundle row. Sessions rendering it are kept until
// they are closed.
func (db *DB) DeleteBundle(name string) error {
	if _, err := db.conn.Exec(`DELETE FROM bundles WHERE name = ?`, name); err != nil {
		return fmt.Errorf("index: delete bundle: %w", err)
	}
	return nil
}

// GetBundle returns one bundle, or apperr.ErrNotFound.
func (db *DB) GetBundle(name string) (*models.Bundle, error) {
	var b models.Bundle
	err := db.conn.QueryRow(`
		SELECT name, card_file, checksum, file_count, updated_at
		FROM bundles WHERE name = ?`, name).
		Scan(&b.Name, &b.CardFile, &b.Checksum, &b.FileCount, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: bundle %s: %w", name, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: get bundle: %w", err)
	}
	return &b, nil
}

// ListBundles returns every bundle ordered by name.
func (db *DB) ListBundles() ([]models.Bundle, error) {
	rows, err := db.conn.Query(`
		SELECT name, card_file, checksum, file_count, updated_at
		FROM bundles ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("index: list bundles: %w", err)
	}
	defer rows.Close()

	out := []models.Bundle{}
	for rows.Next() {
		var b models.Bundle
		if err := rows.Scan(&b.Name, &b.CardFile, &b.Checksum, &b.FileCount, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// AllChecksums returns bundle name to checksum for every indexed bundle.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT name, checksum FROM bundles`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var name, cs string
		if err := rows.Scan(&name, &cs); err != nil {
			return nil, err
		}
		out[name] = cs
	}
	return out, rows.Err()
}

// SaveSession inserts or updates a session row. created_at is kept from the
// first insert.
func (db *DB) SaveSession(s models.Session) error {
	_, err := db.conn.Exec(`
		INSERT INTO sessions (id, bundle, locale, color_mode, width, height, node_count, updates, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			locale     = excluded.locale,
			color_mode = excluded.color_mode,
			width      = excluded.width,
			height     = excluded.height,
			node_count = excluded.node_count,
			updates    = excluded.updates,
			updated_at = excluded.updated_at
	`, s.ID, s.Bundle, s.Locale, s.ColorMode, s.Width, s.Height, s.NodeCount, s.Updates, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: save session: %w", err)
	}
	return nil
}

// DeleteSession removes a session row.
func (db *DB) DeleteSession(id string) error {
	if _, err := db.conn.Exec(`DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("index: delete session: %w", err)
	}
	return nil
}

const sessionColumns = `id, bundle, locale, color_mode, width, height, node_count, updates, created_at, updated_at`

func scanSession(row interface{ Scan(...any) error }) (models.Session, error) {
	var s models.Session
	err := row.Scan(&s.ID, &s.Bundle, &s.Locale, &s.ColorMode, &s.Width, &s.Height,
		&s.NodeCount, &s.Updates, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

// GetSession returns one session row, or apperr.ErrNotFound.
func (db *DB) GetSession(id string) (*models.Session, error) {
	s, err := scanSession(db.conn.QueryRow(`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: session %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: get session: %w", err)
	}
	return &s, nil
}

// ListSessions returns sessions ordered by creation, optionally filtered by
// bundle.
func (db *DB) ListSessions(bundle string) ([]models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions`
	var args []any
	if bundle != "" {
		query += ` WHERE bundle = ?`
		args = append(args, bundle)
	}
	query += ` ORDER BY created_at, id`

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("index: list sessions: %w", err)
	}
	defer rows.Close()

	out := []models.Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
