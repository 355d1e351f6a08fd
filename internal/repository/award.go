package repository

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/mtlprog/kindroute/internal/domain"
)

var pendingAwardColumns = []string{
	"id", "entity_id", "entity_kind", "activity", "points", "reference_id", "created_at",
}

// insertPendingAwards records awards within the caller's transaction.
func insertPendingAwards(ctx context.Context, tx pgx.Tx, awards []*domain.PendingAward) error {
	if len(awards) == 0 {
		return nil
	}

	qb := psql.Insert("pending_awards").Columns(pendingAwardColumns...)
	for _, a := range awards {
		qb = qb.Values(a.ID, a.Entity.ID, a.Entity.Kind, a.Activity, a.Points, a.ReferenceID, a.CreatedAt)
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return fmt.Errorf("build insertPendingAwards query: %w", err)
	}

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("record pending awards: %w", err)
	}
	return nil
}

// SettleAward deletes the pending award and applies fn to its entity's ledger
// in one transaction. An award that is already gone yields
// domain.ErrAwardSettled and fn is not called.
func (r *LedgerRepository) SettleAward(ctx context.Context, award *domain.PendingAward, fn domain.LedgerMutation) (*domain.Ledger, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer rollback(ctx, tx)

	query, args, err := psql.
		Delete("pending_awards").
		Where(sq.Eq{"id": award.ID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build deletePendingAward query: %w", err)
	}

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("delete pending award: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrAwardSettled
	}

	ledger, err := mutateLedger(ctx, tx, award.Entity, fn)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return ledger, nil
}

// ListPendingAwards returns up to limit awards recorded before the cutoff,
// oldest first.
func (r *LedgerRepository) ListPendingAwards(ctx context.Context, before time.Time, limit int) ([]*domain.PendingAward, error) {
	query, args, err := psql.
		Select(pendingAwardColumns...).
		From("pending_awards").
		Where(sq.Lt{"created_at": before}).
		OrderBy("created_at ASC", "id ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build ListPendingAwards query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query pending awards: %w", err)
	}
	defer rows.Close()

	var awards []*domain.PendingAward
	for rows.Next() {
		var a domain.PendingAward
		if err := rows.Scan(&a.ID, &a.Entity.ID, &a.Entity.Kind, &a.Activity, &a.Points, &a.ReferenceID, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending award: %w", err)
		}
		awards = append(awards, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending award rows: %w", err)
	}

	return awards, nil
}
