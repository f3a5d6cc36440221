package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/parchment-labs/extractd/internal/core/domain"
	"github.com/parchment-labs/extractd/internal/core/ports/driven"
)

// fileStore implements driven.FileStore.
type fileStore struct {
	store *Store
}

var _ driven.FileStore = (*fileStore)(nil)

// Save registers a file or updates its registration.
func (s *fileStore) Save(ctx context.Context, file *domain.File) error {
	if file == nil {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO files (id, name, mime_type, path, size, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			mime_type = excluded.mime_type,
			path = excluded.path,
			size = excluded.size
	`, file.ID, file.Name, file.MIMEType, file.Path, file.Size,
		formatTime(file.CreatedAt))

	if err != nil {
		return fmt.Errorf("saving file: %w", err)
	}
	return nil
}

// Get retrieves a file by ID.
func (s *fileStore) Get(ctx context.Context, id string) (*domain.File, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, name, mime_type, path, size, created_at FROM files WHERE id = ?
	`, id)
	return scanFile(row)
}

// GetByPath retrieves a file by its stored path.
func (s *fileStore) GetByPath(ctx context.Context, path string) (*domain.File, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, name, mime_type, path, size, created_at FROM files WHERE path = ?
	`, path)

	file, err := scanFile(row)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return file, err
}

// List returns all registered files, oldest first.
func (s *fileStore) List(ctx context.Context) ([]domain.File, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, name, mime_type, path, size, created_at FROM files ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying files: %w", err)
	}
	defer rows.Close()

	var files []domain.File //nolint:prealloc // size unknown from query
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, *file)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating files: %w", err)
	}
	return files, nil
}

// Delete removes a file registration. Tasks and content cascade.
func (s *fileStore) Delete(ctx context.Context, id string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM files WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}
	return nil
}

// scanFile scans one file row.
func scanFile(row rowScanner) (*domain.File, error) {
	var file domain.File
	var createdAt sql.NullString

	err := row.Scan(&file.ID, &file.Name, &file.MIMEType, &file.Path, &file.Size, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning file: %w", err)
	}

	file.CreatedAt = parseNullableTime(createdAt)
	return &file, nil
}
