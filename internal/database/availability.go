package database

import (
	"context"
	"fmt"
	"time"

	"servicehub/internal/domain"
	"servicehub/internal/models"
)

// ReplaceAvailability swaps the provider's weekly windows atomically.
func (db *DB) ReplaceAvailability(ctx context.Context, providerID string, windows []models.AvailabilityWindow) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return gatewayErr("begin availability tx", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM availability_windows WHERE provider_id = ?`, providerID); err != nil {
		return gatewayErr("clear availability", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO availability_windows (provider_id, day_of_week, start_time, end_time) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return gatewayErr("prepare availability insert", err)
	}
	defer stmt.Close()

	for _, w := range windows {
		if _, err := stmt.ExecContext(ctx, providerID, int(w.DayOfWeek), w.Start, w.End); err != nil {
			if isUniqueViolation(err) {
				return domain.Invalid(fmt.Sprintf("duplicate window %s %s", w.DayOfWeek, w.Start))
			}
			return gatewayErr("insert availability", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return gatewayErr("commit availability", err)
	}
	return nil
}

func (db *DB) ListAvailability(ctx context.Context, providerID string) ([]models.AvailabilityWindow, error) {
	rows, err := db.QueryContext(ctx, `SELECT provider_id, day_of_week, start_time, end_time
                                        FROM availability_windows WHERE provider_id = ?
                                        ORDER BY day_of_week, start_time`, providerID)
	if err != nil {
		return nil, gatewayErr("list availability", err)
	}
	defer rows.Close()

	var windows []models.AvailabilityWindow
	for rows.Next() {
		var (
			w   models.AvailabilityWindow
			day int
		)
		if err := rows.Scan(&w.ProviderID, &day, &w.Start, &w.End); err != nil {
			return nil, gatewayErr("scan availability", err)
		}
		w.DayOfWeek = time.Weekday(day)
		windows = append(windows, w)
	}
	if err := rows.Err(); err != nil {
		return nil, gatewayErr("list availability", err)
	}
	return windows, nil
}

// BlockDate marks the date unavailable. Blocking an already blocked date updates its reason.
func (db *DB) BlockDate(ctx context.Context, blocked *models.BlockedDate) error {
	if blocked.CreatedAt.IsZero() {
		blocked.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO blocked_dates (provider_id, date, reason, created_at) VALUES (?, ?, ?, ?)
              ON CONFLICT(provider_id, date) DO UPDATE SET reason = excluded.reason`
	_, err := db.ExecContext(ctx, query,
		blocked.ProviderID,
		blocked.Date.Format(models.DateLayout),
		blocked.Reason,
		blocked.CreatedAt.UTC(),
	)
	if err != nil {
		return gatewayErr("block date", err)
	}
	return nil
}

func (db *DB) UnblockDate(ctx context.Context, providerID string, date time.Time) error {
	res, err := db.ExecContext(ctx, `DELETE FROM blocked_dates WHERE provider_id = ? AND date = ?`,
		providerID, date.Format(models.DateLayout))
	if err != nil {
		return gatewayErr("unblock date", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListBlockedDates returns blocked dates in [from, to]. A zero bound is open.
func (db *DB) ListBlockedDates(ctx context.Context, providerID string, from, to time.Time) ([]*models.BlockedDate, error) {
	query := `SELECT provider_id, date, reason, created_at FROM blocked_dates WHERE provider_id = ?`
	args := []any{providerID}
	if !from.IsZero() {
		query += ` AND date >= ?`
		args = append(args, from.Format(models.DateLayout))
	}
	if !to.IsZero() {
		query += ` AND date <= ?`
		args = append(args, to.Format(models.DateLayout))
	}
	query += ` ORDER BY date`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, gatewayErr("list blocked dates", err)
	}
	defer rows.Close()

	var dates []*models.BlockedDate
	for rows.Next() {
		var (
			b    models.BlockedDate
			date string
		)
		if err := rows.Scan(&b.ProviderID, &date, &b.Reason, &b.CreatedAt); err != nil {
			return nil, gatewayErr("scan blocked date", err)
		}
		if b.Date, err = time.Parse(models.DateLayout, date); err != nil {
			return nil, gatewayErr("parse blocked date", err)
		}
		dates = append(dates, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, gatewayErr("list blocked dates", err)
	}
	return dates, nil
}
