package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/lunavision/facesink/internal/core/domain"
	"github.com/lunavision/facesink/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.SchedulerStore = (*SchedulerStore)(nil)

// SchedulerStore keeps recurring schedules (the incoming-folder sweep)
// in the scheduled_tasks table. Intervals are stored as nanoseconds so
// the domain duration round-trips exactly.
type SchedulerStore struct {
	db *DB
}

// NewSchedulerStore wraps the shared pool.
func NewSchedulerStore(db *DB) *SchedulerStore {
	return &SchedulerStore{db: db}
}

const scheduleColumns = `id, name, type, interval_ns, enabled, next_run, last_run, last_error`

// GetScheduledTask loads one schedule by ID.
func (s *SchedulerStore) GetScheduledTask(ctx context.Context, id string) (*domain.ScheduledTask, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+scheduleColumns+`
		FROM scheduled_tasks
		WHERE id = $1`, id)

	task, err := scanScheduledTask(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return task, nil
}

// ListScheduledTasks returns every schedule, soonest first.
func (s *SchedulerStore) ListScheduledTasks(ctx context.Context) ([]*domain.ScheduledTask, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+scheduleColumns+`
		FROM scheduled_tasks
		ORDER BY next_run ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectScheduledTasks(rows)
}

// SaveScheduledTask upserts a schedule by ID.
func (s *SchedulerStore) SaveScheduledTask(ctx context.Context, task *domain.ScheduledTask) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scheduled_tasks (id, name, type, interval_ns, enabled, next_run, last_run, last_error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			type = EXCLUDED.type,
			interval_ns = EXCLUDED.interval_ns,
			enabled = EXCLUDED.enabled,
			next_run = EXCLUDED.next_run,
			last_run = EXCLUDED.last_run,
			last_error = EXCLUDED.last_error`,
		task.ID,
		task.Name,
		string(task.Type),
		int64(task.Interval),
		task.Enabled,
		task.NextRun,
		NullTime(task.LastRun),
		task.LastError,
	)
	return err
}

// DeleteScheduledTask removes a schedule, failing when it is unknown.
func (s *SchedulerStore) DeleteScheduledTask(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM scheduled_tasks WHERE id = $1`, id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetDueScheduledTasks returns enabled schedules whose next run has
// passed.
func (s *SchedulerStore) GetDueScheduledTasks(ctx context.Context) ([]*domain.ScheduledTask, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+scheduleColumns+`
		FROM scheduled_tasks
		WHERE enabled = TRUE AND next_run <= now()
		ORDER BY next_run ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectScheduledTasks(rows)
}

// UpdateLastRun records a trigger and advances next_run by the stored
// interval, keeping the advance server-side so clock skew between
// instances cannot shrink the gap.
func (s *SchedulerStore) UpdateLastRun(ctx context.Context, id string, lastError string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE scheduled_tasks
		SET last_run = now(),
		    next_run = now() + (interval_ns / 1000.0) * INTERVAL '1 microsecond',
		    last_error = $2
		WHERE id = $1`, id, lastError)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanScheduledTask(row rowScanner) (*domain.ScheduledTask, error) {
	var task domain.ScheduledTask
	var lastRun sql.NullTime
	var intervalNs int64

	err := row.Scan(
		&task.ID,
		&task.Name,
		&task.Type,
		&intervalNs,
		&task.Enabled,
		&task.NextRun,
		&lastRun,
		&task.LastError,
	)
	if err != nil {
		return nil, err
	}

	task.Interval = time.Duration(intervalNs)
	task.LastRun = TimePtr(lastRun)
	return &task, nil
}

func collectScheduledTasks(rows *sql.Rows) ([]*domain.ScheduledTask, error) {
	var tasks []*domain.ScheduledTask
	for rows.Next() {
		task, err := scanScheduledTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}
