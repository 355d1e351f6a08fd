package repository

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mtlprog/kindroute/internal/domain"
)

// taskColumns is the shared list of columns for task queries.
var taskColumns = []string{
	"id", "kind", "requester_id", "category", "description", "priority",
	"status", "candidate_ids", "created_at", "updated_at",
}

// TaskRepository handles database operations for tasks and their assignments.
type TaskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(pool *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{pool: pool}
}

// scanTask scans a single row into a Task struct.
func scanTask(row pgx.Row) (*domain.Task, error) {
	var task domain.Task
	err := row.Scan(
		&task.ID,
		&task.Kind,
		&task.RequesterID,
		&task.Category,
		&task.Description,
		&task.Priority,
		&task.Status,
		&task.CandidateIDs,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, fmt.Errorf("scan task: %w", err)
	}
	return &task, nil
}

// GetTask retrieves a task by ID.
func (r *TaskRepository) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	query, args, err := psql.
		Select(taskColumns...).
		From("tasks").
		Where(sq.Eq{"id": taskID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build GetTask query: %w", err)
	}

	return scanTask(r.pool.QueryRow(ctx, query, args...))
}

// getTaskForUpdate retrieves a task with a FOR UPDATE lock. Every group
// mutation takes this lock first, so mutations of one task run one at a time.
func (r *TaskRepository) getTaskForUpdate(ctx context.Context, tx pgx.Tx, taskID string) (*domain.Task, error) {
	query, args, err := psql.
		Select(taskColumns...).
		From("tasks").
		Where(sq.Eq{"id": taskID}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build getTaskForUpdate query for task %s: %w", taskID, err)
	}

	return scanTask(tx.QueryRow(ctx, query, args...))
}

// updateTaskStatus sets the informational task status.
func (r *TaskRepository) updateTaskStatus(ctx context.Context, tx pgx.Tx, task *domain.Task, status domain.TaskStatus) error {
	query, args, err := psql.
		Update("tasks").
		Set("status", status).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": task.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build updateTaskStatus query for task %s: %w", task.ID, err)
	}

	if err := tx.QueryRow(ctx, query, args...).Scan(&task.UpdatedAt); err != nil {
		return fmt.Errorf("update task status: %w", err)
	}
	task.Status = status
	return nil
}

// CreateTask inserts the task, its assignments and their notifications in a
// single transaction.
func (r *TaskRepository) CreateTask(
	ctx context.Context,
	task *domain.Task,
	assignments []*domain.Assignment,
	notifications []*domain.Notification,
) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer rollback(ctx, tx)

	query, args, err := psql.
		Insert("tasks").
		Columns(taskColumns...).
		Values(
			task.ID,
			task.Kind,
			task.RequesterID,
			task.Category,
			task.Description,
			task.Priority,
			task.Status,
			task.CandidateIDs,
			task.CreatedAt,
			task.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build CreateTask query: %w", err)
	}

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("create task: %w", err)
	}

	if err := insertAssignments(ctx, tx, assignments); err != nil {
		return err
	}

	if err := insertNotifications(ctx, tx, notifications); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
