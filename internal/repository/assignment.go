package repository

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/mtlprog/kindroute/internal/domain"
)

// assignmentColumns is the shared list of columns for assignment queries.
var assignmentColumns = []string{
	"id", "task_id", "task_kind", "requester_id", "candidate_id", "status",
	"schedule_volunteer_name", "schedule_volunteer_contact", "schedule_date",
	"schedule_time", "schedule_notes",
	"feedback_given", "feedback_rating", "feedback_comments", "feedback_given_at",
	"receipt_confirmed", "receipt_confirmed_at", "assigned_at", "updated_at",
}

// scanAssignment scans a single row into an Assignment struct.
func scanAssignment(row pgx.Row) (*domain.Assignment, error) {
	var (
		a                                 domain.Assignment
		name, contact, date, clock, notes *string
		rating                            *int16
	)
	err := row.Scan(
		&a.ID,
		&a.TaskID,
		&a.TaskKind,
		&a.RequesterID,
		&a.CandidateID,
		&a.Status,
		&name,
		&contact,
		&date,
		&clock,
		&notes,
		&a.Feedback.Given,
		&rating,
		&a.Feedback.Comments,
		&a.Feedback.GivenAt,
		&a.ReceiptConfirmed,
		&a.ReceiptConfirmedAt,
		&a.AssignedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("scan assignment: %w", err)
	}

	if name != nil {
		a.Schedule = &domain.ScheduleDetails{
			VolunteerName:    *name,
			VolunteerContact: deref(contact),
			Date:             deref(date),
			Time:             deref(clock),
			Notes:            deref(notes),
		}
	}
	if rating != nil {
		a.Feedback.Rating = int(*rating)
	}
	return &a, nil
}

// scanAssignments scans multiple rows into a slice of Assignment structs.
func scanAssignments(rows pgx.Rows) ([]*domain.Assignment, error) {
	defer rows.Close()

	var assignments []*domain.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return assignments, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// mutableAssignmentColumns returns the columns a transition may change.
func mutableAssignmentColumns(a *domain.Assignment) map[string]interface{} {
	var name, contact, date, clock, notes *string
	if s := a.Schedule; s != nil {
		name, contact, date, clock, notes = &s.VolunteerName, &s.VolunteerContact, &s.Date, &s.Time, &s.Notes
	}
	var rating *int16
	if a.Feedback.Given {
		r := int16(a.Feedback.Rating)
		rating = &r
	}
	return map[string]interface{}{
		"status":                     a.Status,
		"schedule_volunteer_name":    name,
		"schedule_volunteer_contact": contact,
		"schedule_date":              date,
		"schedule_time":              clock,
		"schedule_notes":             notes,
		"feedback_given":             a.Feedback.Given,
		"feedback_rating":            rating,
		"feedback_comments":          a.Feedback.Comments,
		"feedback_given_at":          a.Feedback.GivenAt,
		"receipt_confirmed":          a.ReceiptConfirmed,
		"receipt_confirmed_at":       a.ReceiptConfirmedAt,
		"updated_at":                 a.UpdatedAt,
	}
}

// insertAssignments inserts freshly created assignments within a transaction.
func insertAssignments(ctx context.Context, tx pgx.Tx, assignments []*domain.Assignment) error {
	if len(assignments) == 0 {
		return nil
	}

	qb := psql.Insert("assignments").Columns(
		"id", "task_id", "task_kind", "requester_id", "candidate_id", "status",
		"assigned_at", "updated_at",
	)
	for _, a := range assignments {
		qb = qb.Values(a.ID, a.TaskID, a.TaskKind, a.RequesterID, a.CandidateID, a.Status, a.AssignedAt, a.UpdatedAt)
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return fmt.Errorf("build insertAssignments query: %w", err)
	}

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: candidate assigned twice", domain.ErrDuplicateCandidate)
		}
		return fmt.Errorf("create assignments: %w", err)
	}
	return nil
}

// GetAssignment retrieves an assignment by ID.
func (r *TaskRepository) GetAssignment(ctx context.Context, assignmentID string) (*domain.Assignment, error) {
	query, args, err := psql.
		Select(assignmentColumns...).
		From("assignments").
		Where(sq.Eq{"id": assignmentID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build GetAssignment query: %w", err)
	}

	return scanAssignment(r.pool.QueryRow(ctx, query, args...))
}

// ListAssignments retrieves assignments matching the filter, oldest first.
func (r *TaskRepository) ListAssignments(ctx context.Context, filter domain.AssignmentFilter) ([]*domain.Assignment, error) {
	qb := psql.Select(assignmentColumns...).From("assignments")

	if filter.TaskID != "" {
		qb = qb.Where(sq.Eq{"task_id": filter.TaskID})
	}
	if filter.RequesterID != "" {
		qb = qb.Where(sq.Eq{"requester_id": filter.RequesterID})
	}
	if filter.CandidateID != "" {
		qb = qb.Where(sq.Eq{"candidate_id": filter.CandidateID})
	}
	if len(filter.Statuses) > 0 {
		qb = qb.Where(sq.Eq{"status": filter.Statuses})
	}

	query, args, err := qb.OrderBy("assigned_at ASC", "candidate_id ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build ListAssignments query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query assignments: %w", err)
	}

	return scanAssignments(rows)
}

// listByTaskForUpdate locks and returns every assignment of a task.
func (r *TaskRepository) listByTaskForUpdate(ctx context.Context, tx pgx.Tx, taskID string) ([]*domain.Assignment, error) {
	query, args, err := psql.
		Select(assignmentColumns...).
		From("assignments").
		Where(sq.Eq{"task_id": taskID}).
		OrderBy("assigned_at ASC", "candidate_id ASC").
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build listByTaskForUpdate query for task %s: %w", taskID, err)
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query task assignments: %w", err)
	}

	return scanAssignments(rows)
}

// updateAssignment writes an assignment with optimistic locking.
// Returns ErrConcurrentUpdate if the stored status no longer matches oldStatus.
func (r *TaskRepository) updateAssignment(
	ctx context.Context,
	tx pgx.Tx,
	a *domain.Assignment,
	oldStatus domain.AssignmentStatus,
) error {
	query, args, err := psql.
		Update("assignments").
		SetMap(mutableAssignmentColumns(a)).
		Where(sq.Eq{
			"id":     a.ID,
			"status": oldStatus,
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build updateAssignment query for assignment %s: %w", a.ID, err)
	}

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: task %s", domain.ErrScheduleConflict, a.TaskID)
		}
		return fmt.Errorf("update assignment: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: assignment %s", domain.ErrConcurrentUpdate, a.ID)
	}

	return nil
}

// MutateGroup locks a task and all of its assignments, lets fn decide the
// change and writes it, together with its notifications and pending awards,
// in one transaction.
func (r *TaskRepository) MutateGroup(ctx context.Context, taskID string, fn domain.GroupMutation) (*domain.TaskGroup, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer rollback(ctx, tx)

	task, err := r.getTaskForUpdate(ctx, tx, taskID)
	if err != nil {
		return nil, err
	}

	assignments, err := r.listByTaskForUpdate(ctx, tx, taskID)
	if err != nil {
		return nil, err
	}

	previous := make(map[string]domain.AssignmentStatus, len(assignments))
	for _, a := range assignments {
		previous[a.ID] = a.Status
	}

	group := &domain.TaskGroup{Task: task, Assignments: assignments}
	change, err := fn(group)
	if err != nil {
		return nil, err
	}

	for _, a := range change.Assignments {
		oldStatus, ok := previous[a.ID]
		if !ok {
			return nil, fmt.Errorf("%w: %s is not part of task %s", domain.ErrAssignmentNotFound, a.ID, taskID)
		}
		if err := r.updateAssignment(ctx, tx, a, oldStatus); err != nil {
			return nil, err
		}
	}

	if change.TaskStatus != "" && change.TaskStatus != task.Status {
		if err := r.updateTaskStatus(ctx, tx, task, change.TaskStatus); err != nil {
			return nil, err
		}
	}

	if err := insertNotifications(ctx, tx, change.Notifications); err != nil {
		return nil, err
	}

	if err := insertPendingAwards(ctx, tx, change.Awards); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return group, nil
}
