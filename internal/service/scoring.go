package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mtlprog/kindroute/internal/config"
	"github.com/mtlprog/kindroute/internal/domain"
	"github.com/mtlprog/kindroute/internal/metrics"
)

// AwardResult is the ledger after an award and the badges it unlocked.
type AwardResult struct {
	Ledger   *domain.Ledger
	Unlocked []string
}

// Standing is an entity's score and rank for a period.
type Standing struct {
	Entity domain.EntityRef
	Period domain.Period
	Score  int64
	Rank   int
}

// ScoringService maintains point ledgers and badge grants.
type ScoringService struct {
	store      LedgerStore
	thresholds []domain.BadgeThreshold
	now        func() time.Time
	metrics    metrics.Collector
}

// NewScoringService creates a new ScoringService. thresholds must be ascending.
func NewScoringService(store LedgerStore, thresholds []domain.BadgeThreshold, opts ...Option) *ScoringService {
	o := applyOptions(opts)
	return &ScoringService{
		store:      store,
		thresholds: thresholds,
		now:        o.now,
		metrics:    o.metrics,
	}
}

// Award adds points (possibly negative) to ref's ledger, records the
// activity and grants every reached badge not yet held, in ascending order.
// The whole read-modify-write runs under the store's per-entity lock, so
// concurrent awards never grant the same badge twice.
func (s *ScoringService) Award(
	ctx context.Context,
	ref domain.EntityRef,
	activity string,
	points int64,
	referenceID string,
) (*AwardResult, error) {
	if err := validateAward(ref, activity); err != nil {
		return nil, err
	}

	var unlocked []string
	ledger, err := s.store.MutateLedger(ctx, ref, s.awardMutation(ref, activity, points, referenceID, &unlocked))
	if err != nil {
		return nil, fmt.Errorf("award %s to %s: %w", activity, ref, err)
	}

	s.recordAward(ref, activity, points, ledger, unlocked)
	return &AwardResult{Ledger: ledger, Unlocked: unlocked}, nil
}

// Settle applies a pending award recorded by a transition. The award is
// consumed in the same store operation that updates the ledger, so it is
// applied at most once; settling it again returns domain.ErrAwardSettled.
func (s *ScoringService) Settle(ctx context.Context, award *domain.PendingAward) (*AwardResult, error) {
	if err := validateAward(award.Entity, award.Activity); err != nil {
		return nil, err
	}

	var unlocked []string
	mutation := s.awardMutation(award.Entity, award.Activity, award.Points, award.ReferenceID, &unlocked)
	ledger, err := s.store.SettleAward(ctx, award, mutation)
	if err != nil {
		return nil, fmt.Errorf("settle award %s for %s: %w", award.ID, award.Entity, err)
	}

	s.recordAward(award.Entity, award.Activity, award.Points, ledger, unlocked)
	return &AwardResult{Ledger: ledger, Unlocked: unlocked}, nil
}

// SettlePending applies up to limit awards that have been pending for longer
// than olderThan and returns how many it applied. Awards settled concurrently
// are skipped; other failures are logged and leave the award pending.
func (s *ScoringService) SettlePending(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	awards, err := s.store.ListPendingAwards(ctx, s.now().Add(-olderThan), limit)
	if err != nil {
		return 0, fmt.Errorf("list pending awards: %w", err)
	}

	settled := 0
	for _, a := range awards {
		if ctx.Err() != nil {
			break
		}
		if _, err := s.Settle(ctx, a); err != nil {
			if !errors.Is(err, domain.ErrAwardSettled) {
				slog.Error("failed to settle award",
					"award_id", a.ID,
					"entity", a.Entity.String(),
					"activity", a.Activity,
					"error", err,
				)
			}
			continue
		}
		settled++
	}

	if settled > 0 {
		slog.Info("pending awards settled", "count", settled)
	}
	return settled, nil
}

// RunSettlement retries pending awards every interval until ctx is cancelled.
// Only awards older than grace are picked up, which leaves fresh ones to the
// transition that recorded them.
func (s *ScoringService) RunSettlement(ctx context.Context, interval, grace time.Duration) {
	slog.Info("award settlement started", "interval", interval, "grace", grace)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("award settlement stopped")
			return
		case <-ticker.C:
			if _, err := s.SettlePending(ctx, grace, config.DefaultAwardSettleBatch); err != nil {
				slog.Error("failed to settle pending awards", "error", err)
			}
		}
	}
}

func validateAward(ref domain.EntityRef, activity string) error {
	if !ref.Kind.IsValid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidEntityKind, ref.Kind)
	}
	if strings.TrimSpace(ref.ID) == "" {
		return fmt.Errorf("%w: entity id", domain.ErrMissingField)
	}
	if strings.TrimSpace(activity) == "" {
		return domain.ErrInvalidActivity
	}
	return nil
}

// awardMutation adds points to the ledger and grants the badges reached.
// unlocked is reset on every call so a retried mutation reports only its own
// grants.
func (s *ScoringService) awardMutation(
	ref domain.EntityRef,
	activity string,
	points int64,
	referenceID string,
	unlocked *[]string,
) domain.LedgerMutation {
	return func(l *domain.Ledger) ([]*domain.Notification, error) {
		*unlocked = nil
		now := s.now()

		l.TotalPoints += points
		l.History = append(l.History, domain.Activity{
			Label:       activity,
			Points:      points,
			ReferenceID: referenceID,
			CreatedAt:   now,
		})

		var notes []*domain.Notification
		for _, t := range s.thresholds {
			if l.TotalPoints >= t.MinPoints && !l.HasBadge(t.Name) {
				l.Badges = append(l.Badges, t.Name)
				*unlocked = append(*unlocked, t.Name)
				notes = append(notes, badgeNotifications(ref, t.Name, referenceID, now)...)
			}
		}
		return notes, nil
	}
}

func (s *ScoringService) recordAward(ref domain.EntityRef, activity string, points int64, ledger *domain.Ledger, unlocked []string) {
	s.metrics.RecordAward(string(ref.Kind), points)
	for _, b := range unlocked {
		s.metrics.RecordBadge(b)
		slog.Info("badge unlocked", "entity", ref.String(), "badge", b, "total_points", ledger.TotalPoints)
	}

	slog.Debug("points awarded",
		"entity", ref.String(),
		"activity", activity,
		"points", points,
		"total_points", ledger.TotalPoints,
	)
}

// Ledger returns an entity's points, badges and full history.
func (s *ScoringService) Ledger(ctx context.Context, ref domain.EntityRef) (*domain.Ledger, error) {
	if !ref.Kind.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidEntityKind, ref.Kind)
	}
	return s.store.GetLedger(ctx, ref)
}

// Rank returns 1 + the number of other entities whose score for period is
// strictly greater than ref's. A non-nil kind restricts the comparison to
// entities of that kind, as on the leaderboard; it must match ref's kind.
func (s *ScoringService) Rank(
	ctx context.Context,
	ref domain.EntityRef,
	period domain.Period,
	kind *domain.EntityKind,
) (*Standing, error) {
	if !ref.Kind.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidEntityKind, ref.Kind)
	}
	if kind != nil && *kind != ref.Kind {
		return nil, fmt.Errorf("%w: %s is not ranked among %q", domain.ErrInvalidEntityKind, ref, *kind)
	}

	q, err := scoreQuery(period, kind, s.now())
	if err != nil {
		return nil, err
	}

	score, err := s.store.Score(ctx, ref, q)
	if err != nil {
		return nil, err
	}

	above, err := s.store.CountAbove(ctx, q, score, ref)
	if err != nil {
		return nil, fmt.Errorf("rank %s: %w", ref, err)
	}

	return &Standing{Entity: ref, Period: period, Score: score, Rank: above + 1}, nil
}

// Leaderboard returns the top limit entities for period, optionally
// restricted to one kind. A non-positive limit selects the default; larger
// limits are capped.
func (s *ScoringService) Leaderboard(
	ctx context.Context,
	period domain.Period,
	limit int,
	kind *domain.EntityKind,
) ([]domain.LeaderboardEntry, error) {
	if kind != nil && !kind.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidEntityKind, *kind)
	}

	q, err := scoreQuery(period, kind, s.now())
	if err != nil {
		return nil, err
	}

	switch {
	case limit <= 0:
		limit = config.DefaultLeaderboardLimit
	case limit > config.MaxLeaderboardLimit:
		limit = config.MaxLeaderboardLimit
	}

	entries, err := s.store.TopScores(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}

	for i := range entries {
		entries[i].Position = i + 1
	}
	if entries == nil {
		entries = []domain.LeaderboardEntry{}
	}
	return entries, nil
}
