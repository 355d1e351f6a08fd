package service

import (
	"fmt"
	"time"

	"github.com/mtlprog/kindroute/internal/domain"
)

// MonthStart returns the first instant of t's month in UTC.
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// scoreQuery builds the store query for a period evaluated at now.
func scoreQuery(period domain.Period, kind *domain.EntityKind, now time.Time) (domain.ScoreQuery, error) {
	q := domain.ScoreQuery{Kind: kind}
	switch period {
	case domain.PeriodAllTime:
	case domain.PeriodThisMonth:
		since := MonthStart(now)
		q.Since = &since
	default:
		return q, fmt.Errorf("%w: %q", domain.ErrInvalidPeriod, period)
	}
	return q, nil
}
