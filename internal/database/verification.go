package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"servicehub/internal/domain"
	"servicehub/internal/events"
	"servicehub/internal/models"
)

func (db *DB) GetVerificationCode(ctx context.Context, bookingID string) (*models.VerificationCode, error) {
	query := `SELECT booking_id, code, customer_id, provider_id, expires_at, verified, verified_at, created_at, updated_at
              FROM verification_codes WHERE booking_id = ?`

	var (
		vc         models.VerificationCode
		verifiedAt sql.NullTime
	)
	err := db.QueryRowContext(ctx, query, bookingID).Scan(
		&vc.BookingID,
		&vc.Code,
		&vc.CustomerID,
		&vc.ProviderID,
		&vc.ExpiresAt,
		&vc.Verified,
		&verifiedAt,
		&vc.CreatedAt,
		&vc.UpdatedAt,
	)
	if err != nil {
		return nil, notFoundOr("get verification code", err)
	}
	if verifiedAt.Valid {
		t := verifiedAt.Time
		vc.VerifiedAt = &t
	}
	return &vc, nil
}

// UpsertVerificationCode stores a fresh unverified code, replacing the previous one of the booking.
func (db *DB) UpsertVerificationCode(ctx context.Context, code *models.VerificationCode) error {
	now := time.Now().UTC()
	query := `INSERT INTO verification_codes (
				booking_id, code, customer_id, provider_id, expires_at, verified, verified_at, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, 0, NULL, ?, ?)
              ON CONFLICT(booking_id) DO UPDATE SET
                code = excluded.code,
                expires_at = excluded.expires_at,
                verified = 0,
                verified_at = NULL,
                updated_at = excluded.updated_at`
	_, err := db.ExecContext(ctx, query,
		code.BookingID,
		code.Code,
		code.CustomerID,
		code.ProviderID,
		code.ExpiresAt.UTC(),
		now,
		now,
	)
	if err != nil {
		return gatewayErr("upsert verification code", err)
	}

	code.Verified = false
	code.VerifiedAt = nil
	code.UpdatedAt = now
	if code.CreatedAt.IsZero() {
		code.CreatedAt = now
	}

	db.publish(events.CollectionVerificationCodes, events.ChangeUpdate, code.BookingID,
		map[string]string{"booking_id": code.BookingID}, code)
	return nil
}

func (db *DB) CompleteWithCode(ctx context.Context, bookingID, code string, fromVersion int64, at time.Time) (*models.Booking, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, gatewayErr("begin completion tx", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `UPDATE verification_codes SET verified = 1, verified_at = ?, updated_at = ?
                                     WHERE booking_id = ? AND code = ? AND verified = 0`,
		at.UTC(), now, bookingID, code)
	if err != nil {
		return nil, gatewayErr("mark code verified", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, gatewayErr("mark code verified", err)
	} else if n == 0 {
		return nil, unmatchedCode(ctx, tx, bookingID)
	}

	res, err = tx.ExecContext(ctx, `UPDATE bookings SET status = ?, version = version + 1, updated_at = ?
                                    WHERE id = ? AND version = ?`,
		models.StatusCompleted, now, bookingID, fromVersion)
	if err != nil {
		return nil, gatewayErr("complete booking", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, gatewayErr("complete booking", err)
	} else if n == 0 {
		return nil, domain.ErrConcurrentModification
	}

	if err := tx.Commit(); err != nil {
		return nil, gatewayErr("commit completion", err)
	}

	booking, err := db.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	db.publish(events.CollectionVerificationCodes, events.ChangeUpdate, bookingID,
		map[string]string{"booking_id": bookingID}, map[string]any{"booking_id": bookingID, "verified": true})
	db.publish(events.CollectionBookings, events.ChangeUpdate, booking.ID, bookingFields(booking), booking)
	return booking, nil
}

// unmatchedCode explains why no unverified row matched the submitted code.
func unmatchedCode(ctx context.Context, tx *sql.Tx, bookingID string) error {
	var verified bool
	err := tx.QueryRowContext(ctx, `SELECT verified FROM verification_codes WHERE booking_id = ?`, bookingID).Scan(&verified)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return domain.ErrNotFound
	case err != nil:
		return gatewayErr("read verification code", err)
	case verified:
		return domain.ErrAlreadyVerified
	default:
		return domain.ErrMismatch
	}
}
