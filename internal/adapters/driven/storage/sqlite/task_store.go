package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/parchment-labs/extractd/internal/core/domain"
	"github.com/parchment-labs/extractd/internal/core/ports/driven"
)

// taskStore implements driven.TaskStore.
type taskStore struct {
	store *Store
}

var _ driven.TaskStore = (*taskStore)(nil)

const taskColumns = `id, file_id, status, retry_count, max_retries, error_message,
	not_before, superseded, started_at, completed_at, created_at`

// Create persists a new task.
func (s *taskStore) Create(ctx context.Context, task *domain.ExtractionTask) error {
	if task == nil {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO extraction_tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, task.ID, task.FileID, string(task.Status), task.RetryCount, task.MaxRetries,
		nullStringPtr(task.ErrorMessage), formatNullableTime(task.NotBefore),
		boolToInt(task.Superseded), formatTimePtr(task.StartedAt),
		formatTimePtr(task.CompletedAt), formatTime(task.CreatedAt))

	if err != nil {
		return fmt.Errorf("creating task: %w", err)
	}
	return nil
}

// Get retrieves a task by ID.
func (s *taskStore) Get(ctx context.Context, taskID string) (*domain.ExtractionTask, error) {
	row := s.store.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM extraction_tasks WHERE id = ?`, taskID)
	return scanTask(row)
}

// GetActive returns the pending or processing task for a file.
func (s *taskStore) GetActive(ctx context.Context, fileID string) (*domain.ExtractionTask, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT `+taskColumns+` FROM extraction_tasks
		WHERE file_id = ? AND status IN ('pending', 'processing')
		ORDER BY created_at DESC LIMIT 1
	`, fileID)

	task, err := scanTask(row)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return task, err
}

// ClaimNext atomically claims the oldest eligible pending task.
// The UPDATE re-checks status inside the transaction, so a raced claim
// affects zero rows and is reported as no eligible task; no two
// workers can mark the same row.
func (s *taskStore) ClaimNext(ctx context.Context, now time.Time) (*domain.ExtractionTask, error) {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning claim transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	nowStr := formatTime(now)
	row := tx.QueryRowContext(ctx, `
		SELECT `+taskColumns+` FROM extraction_tasks
		WHERE status = 'pending' AND (not_before IS NULL OR not_before <= ?)
		ORDER BY created_at ASC LIMIT 1
	`, nowStr)

	task, err := scanTask(row)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE extraction_tasks SET status = 'processing', started_at = ?
		WHERE id = ? AND status = 'pending'
	`, nowStr, task.ID)
	if err != nil {
		return nil, fmt.Errorf("claiming task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("claiming task: %w", err)
	}
	if affected != 1 {
		// Raced with another claimer; treat as no eligible task.
		return nil, nil
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing claim: %w", err)
	}

	started := now
	task.Status = domain.StatusProcessing
	task.StartedAt = &started
	return task, nil
}

// Update persists task mutations.
func (s *taskStore) Update(ctx context.Context, task *domain.ExtractionTask) error {
	if task == nil {
		return domain.ErrInvalidInput
	}

	res, err := s.store.db.ExecContext(ctx, `
		UPDATE extraction_tasks SET
			status = ?, retry_count = ?, max_retries = ?, error_message = ?,
			not_before = ?, superseded = ?, started_at = ?, completed_at = ?
		WHERE id = ?
	`, string(task.Status), task.RetryCount, task.MaxRetries,
		nullStringPtr(task.ErrorMessage), formatNullableTime(task.NotBefore),
		boolToInt(task.Superseded), formatTimePtr(task.StartedAt),
		formatTimePtr(task.CompletedAt), task.ID)

	if err != nil {
		return fmt.Errorf("updating task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating task: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List returns tasks matching the filter, newest first.
func (s *taskStore) List(ctx context.Context, filter driven.TaskFilter) ([]domain.ExtractionTask, error) {
	var conds []string
	var args []any
	if filter.FileID != "" {
		conds = append(conds, "file_id = ?")
		args = append(args, filter.FileID)
	}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(filter.Status))
	}

	query := `SELECT ` + taskColumns + ` FROM extraction_tasks`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer rows.Close()

	var tasks []domain.ExtractionTask //nolint:prealloc // size unknown from query
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tasks: %w", err)
	}
	return tasks, nil
}

// CountByStatus returns the number of tasks per status.
func (s *taskStore) CountByStatus(ctx context.Context) (map[domain.ExtractionStatus]int, error) {
	rows, err := s.store.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM extraction_tasks GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("counting tasks: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.ExtractionStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scanning task count: %w", err)
		}
		counts[domain.ExtractionStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating task counts: %w", err)
	}
	return counts, nil
}

// rowScanner abstracts sql.Row and sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanTask scans one task row.
func scanTask(row rowScanner) (*domain.ExtractionTask, error) {
	var task domain.ExtractionTask
	var status string
	var errMsg, notBefore, startedAt, completedAt, createdAt sql.NullString
	var superseded int

	err := row.Scan(&task.ID, &task.FileID, &status, &task.RetryCount, &task.MaxRetries,
		&errMsg, &notBefore, &superseded, &startedAt, &completedAt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning task: %w", err)
	}

	task.Status = domain.ExtractionStatus(status)
	task.ErrorMessage = stringPtr(errMsg)
	task.NotBefore = parseNullableTime(notBefore)
	task.Superseded = superseded != 0
	task.StartedAt = parseTimePtr(startedAt)
	task.CompletedAt = parseTimePtr(completedAt)
	task.CreatedAt = parseNullableTime(createdAt)
	return &task, nil
}
