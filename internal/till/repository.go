package till

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"resto-be/internal/apperr"
	"resto-be/internal/db"
	"resto-be/internal/logger"

	"go.uber.org/zap"
)

type Repository interface {
	// GetOpenPeriodForToday returns nil, nil when no period is open today.
	GetOpenPeriodForToday(ctx context.Context) (*Period, error)
}

type repository struct {
	db  *sql.DB
	loc *time.Location
	now func() time.Time
}

func NewRepository(db *sql.DB, loc *time.Location) Repository {
	if loc == nil {
		loc = time.Local
	}
	return &repository{db: db, loc: loc, now: time.Now}
}

// BusinessDate is the calendar date of t in loc, as stored in till_periods.business_date.
func BusinessDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}

func (r *repository) GetOpenPeriodForToday(ctx context.Context) (*Period, error) {
	today := BusinessDate(r.now(), r.loc)

	var p Period
	err := db.Conn(ctx, r.db).QueryRowContext(ctx, `
		SELECT id, business_date, opened_at, closed_at
		FROM till_periods
		WHERE business_date = $1 AND closed_at IS NULL
		ORDER BY opened_at DESC
		LIMIT 1
	`, today).Scan(&p.ID, &p.BusinessDate, &p.OpenedAt, &p.ClosedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		logger.FromCtx(ctx).Error("failed to load open till period",
			zap.String("layer", "repository"),
			zap.String("method", "GetOpenPeriodForToday"),
			zap.String("business_date", today),
			zap.Error(err),
		)
		return nil, apperr.Internal("till.GetOpenPeriodForToday", err)
	}

	return &p, nil
}
