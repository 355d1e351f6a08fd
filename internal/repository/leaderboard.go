package repository

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/mtlprog/kindroute/internal/domain"
)

// scoreSelect yields (entity_kind, entity_id, score) for every ledger in scope.
// All-time scores read the stored total; bounded periods sum activities since
// q.Since, counting ledgers without recent activity as zero.
func scoreSelect(q domain.ScoreQuery) sq.SelectBuilder {
	if q.Since == nil {
		qb := psql.
			Select("entity_kind", "entity_id", "total_points AS score").
			From("ledgers")
		if q.Kind != nil {
			qb = qb.Where(sq.Eq{"entity_kind": *q.Kind})
		}
		return qb
	}

	qb := psql.
		Select("l.entity_kind", "l.entity_id", "COALESCE(SUM(a.points), 0)::BIGINT AS score").
		From("ledgers l").
		LeftJoin(
			"ledger_activities a ON a.entity_id = l.entity_id AND a.entity_kind = l.entity_kind AND a.created_at >= ?",
			*q.Since,
		).
		GroupBy("l.entity_kind", "l.entity_id")
	if q.Kind != nil {
		qb = qb.Where(sq.Eq{"l.entity_kind": *q.Kind})
	}
	return qb
}

// Score returns an entity's score for the query period.
func (r *LedgerRepository) Score(ctx context.Context, ref domain.EntityRef, q domain.ScoreQuery) (int64, error) {
	query, args, err := psql.
		Select("s.score").
		FromSelect(scoreSelect(q), "s").
		Where(sq.Eq{"s.entity_id": ref.ID, "s.entity_kind": ref.Kind}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build Score query: %w", err)
	}

	var score int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&score); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrLedgerNotFound
		}
		return 0, fmt.Errorf("query score: %w", err)
	}
	return score, nil
}

// CountAbove counts entities in scope, other than exclude, whose score is
// strictly greater than score.
func (r *LedgerRepository) CountAbove(ctx context.Context, q domain.ScoreQuery, score int64, exclude domain.EntityRef) (int, error) {
	query, args, err := psql.
		Select("COUNT(*)").
		FromSelect(scoreSelect(q), "s").
		Where(sq.Gt{"s.score": score}).
		Where(sq.Or{
			sq.NotEq{"s.entity_id": exclude.ID},
			sq.NotEq{"s.entity_kind": exclude.Kind},
		}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build CountAbove query: %w", err)
	}

	var count int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count higher scores: %w", err)
	}
	return count, nil
}

// TopScores returns the best limit entities, score descending with entity id
// and kind as tie breakers.
func (r *LedgerRepository) TopScores(ctx context.Context, q domain.ScoreQuery, limit int) ([]domain.LeaderboardEntry, error) {
	query, args, err := psql.
		Select("s.entity_kind", "s.entity_id", "s.score").
		FromSelect(scoreSelect(q), "s").
		OrderBy("s.score DESC", "s.entity_id ASC", "s.entity_kind ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build TopScores query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []domain.LeaderboardEntry
	for rows.Next() {
		var e domain.LeaderboardEntry
		if err := rows.Scan(&e.Entity.Kind, &e.Entity.ID, &e.Score); err != nil {
			return nil, fmt.Errorf("scan leaderboard entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leaderboard rows: %w", err)
	}

	return entries, nil
}
