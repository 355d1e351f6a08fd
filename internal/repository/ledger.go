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

// ledgerColumns is the shared list of columns for ledger queries.
var ledgerColumns = []string{
	"entity_id", "entity_kind", "total_points", "badges", "created_at", "updated_at",
}

// LedgerRepository handles database operations for point ledgers.
type LedgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

func scanLedger(row pgx.Row) (*domain.Ledger, error) {
	var l domain.Ledger
	err := row.Scan(
		&l.Entity.ID,
		&l.Entity.Kind,
		&l.TotalPoints,
		&l.Badges,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLedgerNotFound
		}
		return nil, fmt.Errorf("scan ledger: %w", err)
	}
	return &l, nil
}

func entityEq(ref domain.EntityRef) sq.Eq {
	return sq.Eq{"entity_id": ref.ID, "entity_kind": ref.Kind}
}

// MutateLedger serializes a read-modify-write of one entity's ledger. The row
// is created on first use and held under FOR UPDATE until commit, so
// concurrent awards for the same entity observe each other's totals and badges.
// The ledger passed to fn carries no history; entries fn appends are inserted.
func (r *LedgerRepository) MutateLedger(ctx context.Context, ref domain.EntityRef, fn domain.LedgerMutation) (*domain.Ledger, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer rollback(ctx, tx)

	ledger, err := mutateLedger(ctx, tx, ref, fn)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return ledger, nil
}

func mutateLedger(ctx context.Context, tx pgx.Tx, ref domain.EntityRef, fn domain.LedgerMutation) (*domain.Ledger, error) {
	query, args, err := psql.
		Insert("ledgers").
		Columns("entity_id", "entity_kind").
		Values(ref.ID, ref.Kind).
		Suffix("ON CONFLICT (entity_id, entity_kind) DO NOTHING").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build ensureLedger query: %w", err)
	}
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("ensure ledger: %w", err)
	}

	query, args, err = psql.
		Select(ledgerColumns...).
		From("ledgers").
		Where(entityEq(ref)).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build lockLedger query: %w", err)
	}

	ledger, err := scanLedger(tx.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, err
	}

	notifications, err := fn(ledger)
	if err != nil {
		return nil, err
	}

	query, args, err = psql.
		Update("ledgers").
		Set("total_points", ledger.TotalPoints).
		Set("badges", ledger.Badges).
		Set("updated_at", sq.Expr("NOW()")).
		Where(entityEq(ref)).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build updateLedger query: %w", err)
	}
	if err := tx.QueryRow(ctx, query, args...).Scan(&ledger.UpdatedAt); err != nil {
		return nil, fmt.Errorf("update ledger: %w", err)
	}

	if len(ledger.History) > 0 {
		qb := psql.Insert("ledger_activities").Columns(
			"entity_id", "entity_kind", "label", "points", "reference_id", "created_at",
		)
		for _, a := range ledger.History {
			qb = qb.Values(ref.ID, ref.Kind, a.Label, a.Points, a.ReferenceID, a.CreatedAt)
		}
		query, args, err = qb.ToSql()
		if err != nil {
			return nil, fmt.Errorf("build insertActivities query: %w", err)
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return nil, fmt.Errorf("insert activities: %w", err)
		}
	}

	if err := insertNotifications(ctx, tx, notifications); err != nil {
		return nil, err
	}

	return ledger, nil
}

// GetLedger retrieves a ledger with its full activity history.
func (r *LedgerRepository) GetLedger(ctx context.Context, ref domain.EntityRef) (*domain.Ledger, error) {
	query, args, err := psql.
		Select(ledgerColumns...).
		From("ledgers").
		Where(entityEq(ref)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build GetLedger query: %w", err)
	}

	ledger, err := scanLedger(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, err
	}

	query, args, err = psql.
		Select("label", "points", "reference_id", "created_at").
		From("ledger_activities").
		Where(entityEq(ref)).
		OrderBy("created_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build history query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a domain.Activity
		if err := rows.Scan(&a.Label, &a.Points, &a.ReferenceID, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		ledger.History = append(ledger.History, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}

	return ledger, nil
}
