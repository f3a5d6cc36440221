package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/parchment-labs/extractd/internal/core/domain"
	"github.com/parchment-labs/extractd/internal/core/ports/driven"
)

// contentStore implements driven.ContentStore.
type contentStore struct {
	store *Store
}

var _ driven.ContentStore = (*contentStore)(nil)

// Save stores or replaces the content record for its file.
func (s *contentStore) Save(ctx context.Context, content *domain.ExtractedContent) error {
	if content == nil {
		return domain.ErrInvalidInput
	}

	var metadataJSON any
	if content.Metadata != nil {
		data, err := json.Marshal(content.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling metadata: %w", err)
		}
		metadataJSON = string(data)
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO extracted_content (file_id, content, metadata, status, error_message, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(file_id) DO UPDATE SET
			content = excluded.content,
			metadata = excluded.metadata,
			status = excluded.status,
			error_message = excluded.error_message,
			updated_at = excluded.updated_at
	`, content.FileID, nullStringPtr(content.Content), metadataJSON,
		string(content.Status), nullStringPtr(content.ErrorMessage),
		formatTime(content.CreatedAt),
		formatTime(content.UpdatedAt))

	if err != nil {
		return fmt.Errorf("saving content: %w", err)
	}
	return nil
}

// Get retrieves the content record for a file.
func (s *contentStore) Get(ctx context.Context, fileID string) (*domain.ExtractedContent, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT file_id, content, metadata, status, error_message, created_at, updated_at
		FROM extracted_content WHERE file_id = ?
	`, fileID)
	return scanContent(row)
}

// Delete removes the content record for a file.
func (s *contentStore) Delete(ctx context.Context, fileID string) error {
	_, err := s.store.db.ExecContext(ctx,
		"DELETE FROM extracted_content WHERE file_id = ?", fileID)
	if err != nil {
		return fmt.Errorf("deleting content: %w", err)
	}
	return nil
}

// List returns all content records.
func (s *contentStore) List(ctx context.Context) ([]domain.ExtractedContent, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT file_id, content, metadata, status, error_message, created_at, updated_at
		FROM extracted_content
	`)
	if err != nil {
		return nil, fmt.Errorf("querying content: %w", err)
	}
	defer rows.Close()

	var contents []domain.ExtractedContent //nolint:prealloc // size unknown from query
	for rows.Next() {
		content, err := scanContent(rows)
		if err != nil {
			return nil, err
		}
		contents = append(contents, *content)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating content: %w", err)
	}
	return contents, nil
}

// CountByStatus returns the number of records per status.
func (s *contentStore) CountByStatus(ctx context.Context) (map[domain.ExtractionStatus]int, error) {
	rows, err := s.store.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM extracted_content GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("counting content: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.ExtractionStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scanning content count: %w", err)
		}
		counts[domain.ExtractionStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating content counts: %w", err)
	}
	return counts, nil
}

// scanContent scans one content row.
func scanContent(row rowScanner) (*domain.ExtractedContent, error) {
	var content domain.ExtractedContent
	var status string
	var text, metadataJSON, errMsg, createdAt, updatedAt sql.NullString

	err := row.Scan(&content.FileID, &text, &metadataJSON, &status, &errMsg, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning content: %w", err)
	}

	content.Status = domain.ExtractionStatus(status)
	content.Content = stringPtr(text)
	content.ErrorMessage = stringPtr(errMsg)
	content.CreatedAt = parseNullableTime(createdAt)
	content.UpdatedAt = parseNullableTime(updatedAt)

	if metadataJSON.Valid && metadataJSON.String != "" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &content.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling metadata: %w", err)
		}
	}
	return &content, nil
}
