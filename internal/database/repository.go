package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"vidrelay/models"
)

// ErrEntryNotFound is returned when a library id has no row.
var ErrEntryNotFound = errors.New("library entry not found")

// LibraryRepository persists the mapping of local library entries to
// upstream file ids.
type LibraryRepository struct {
	db *sql.DB
}

// NewLibraryRepository creates a repository over the given connection.
func NewLibraryRepository(db *sql.DB) *LibraryRepository {
	return &LibraryRepository{db: db}
}

// Create registers a new entry and returns it with a generated id.
func (r *LibraryRepository) Create(ctx context.Context, upstreamID, name, mimeHint string) (models.LibraryEntry, error) {
	entry := models.LibraryEntry{
		ID:         uuid.NewString(),
		UpstreamID: upstreamID,
		Name:       name,
		MimeHint:   mimeHint,
		CreatedAt:  time.Now().UTC(),
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO media_library (id, upstream_id, name, mime_hint, created_at) VALUES (?, ?, ?, ?, ?)`,
		entry.ID, entry.UpstreamID, entry.Name, entry.MimeHint, entry.CreatedAt,
	)
	if err != nil {
		return models.LibraryEntry{}, fmt.Errorf("insert library entry: %w", err)
	}
	return entry, nil
}

// Get returns the entry with the given library id.
func (r *LibraryRepository) Get(ctx context.Context, id string) (models.LibraryEntry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, upstream_id, name, mime_hint, created_at FROM media_library WHERE id = ?`, id)

	var entry models.LibraryEntry
	err := row.Scan(&entry.ID, &entry.UpstreamID, &entry.Name, &entry.MimeHint, &entry.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.LibraryEntry{}, ErrEntryNotFound
	}
	if err != nil {
		return models.LibraryEntry{}, fmt.Errorf("select library entry: %w", err)
	}
	return entry, nil
}

// List returns all entries, newest first.
func (r *LibraryRepository) List(ctx context.Context) ([]models.LibraryEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, upstream_id, name, mime_hint, created_at FROM media_library ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list library entries: %w", err)
	}
	defer rows.Close()

	var entries []models.LibraryEntry
	for rows.Next() {
		var entry models.LibraryEntry
		if err := rows.Scan(&entry.ID, &entry.UpstreamID, &entry.Name, &entry.MimeHint, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan library entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Delete removes the entry and reports the upstream id it pointed at so the
// caller can invalidate cached metadata.
func (r *LibraryRepository) Delete(ctx context.Context, id string) (string, error) {
	entry, err := r.Get(ctx, id)
	if err != nil {
		return "", err
	}

	if _, err := r.db.ExecContext(ctx, `DELETE FROM media_library WHERE id = ?`, id); err != nil {
		return "", fmt.Errorf("delete library entry: %w", err)
	}
	return entry.UpstreamID, nil
}
