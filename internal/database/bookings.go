package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"servicehub/internal/domain"
	"servicehub/internal/events"
	"servicehub/internal/models"
)

const bookingSelect = `SELECT id, listing_id, customer_id, provider_id, date, time_slot, total_price, status,
                              customer_location, provider_location, created_at, updated_at, version
                       FROM bookings`

func (db *DB) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	b, err := scanBooking(db.QueryRowContext(ctx, bookingSelect+` WHERE id = ?`, id))
	if err != nil {
		return nil, notFoundOr("get booking", err)
	}
	return b, nil
}

// CreateBooking checks the provider's blocked dates and active slots and inserts the booking
// in one transaction.
func (db *DB) CreateBooking(ctx context.Context, booking *models.Booking) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return gatewayErr("begin booking tx", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	date := booking.Date.Format(models.DateLayout)

	var blocked int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM blocked_dates WHERE provider_id = ? AND date = ?`,
		booking.ProviderID, date).Scan(&blocked)
	if err != nil {
		return gatewayErr("check blocked date", err)
	}
	if blocked > 0 {
		return domain.ErrDateBlocked
	}

	var taken int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings
                                   WHERE provider_id = ? AND date = ? AND time_slot = ? AND status IN (?, ?)`,
		booking.ProviderID, date, booking.TimeSlot, models.StatusPending, models.StatusAccepted).Scan(&taken)
	if err != nil {
		return gatewayErr("check slot", err)
	}
	if taken > 0 {
		return domain.ErrSlotTaken
	}

	customerLoc, err := encodeLocation(booking.CustomerLocation)
	if err != nil {
		return gatewayErr("encode location", err)
	}
	providerLoc, err := encodeLocation(booking.ProviderLocation)
	if err != nil {
		return gatewayErr("encode location", err)
	}

	now := time.Now().UTC()
	query := `INSERT INTO bookings (
				id, listing_id, customer_id, provider_id, date, time_slot, total_price, status,
				customer_location, provider_location, created_at, updated_at, version
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, query,
		booking.ID,
		booking.ListingID,
		booking.CustomerID,
		booking.ProviderID,
		date,
		booking.TimeSlot,
		booking.TotalPrice,
		booking.Status,
		customerLoc,
		providerLoc,
		now,
		now,
		1,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrSlotTaken
		}
		return gatewayErr("insert booking", err)
	}

	if err := tx.Commit(); err != nil {
		return gatewayErr("commit booking", err)
	}

	booking.CreatedAt = now
	booking.UpdatedAt = now
	booking.Version = 1

	db.publish(events.CollectionBookings, events.ChangeInsert, booking.ID, bookingFields(booking), booking)
	return nil
}

// UpdateBookingStatus applies the write only when the stored version still equals fromVersion.
func (db *DB) UpdateBookingStatus(ctx context.Context, id string, fromVersion int64, status models.BookingStatus) (*models.Booking, error) {
	query := `UPDATE bookings SET status = ?, version = version + 1, updated_at = ? WHERE id = ? AND version = ?`
	res, err := db.ExecContext(ctx, query, status, time.Now().UTC(), id, fromVersion)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrSlotTaken
		}
		return nil, gatewayErr("update booking status", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, gatewayErr("update booking status", err)
	}
	if n == 0 {
		if _, err := db.GetBooking(ctx, id); err != nil {
			return nil, err
		}
		return nil, domain.ErrConcurrentModification
	}

	booking, err := db.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	db.publish(events.CollectionBookings, events.ChangeUpdate, booking.ID, bookingFields(booking), booking)
	return booking, nil
}

// UpdateBookingLocation stores the location shared by one party. It does not bump the version.
func (db *DB) UpdateBookingLocation(ctx context.Context, id string, role models.Role, loc models.Location) (*models.Booking, error) {
	var column string
	switch role {
	case models.RoleCustomer:
		column = "customer_location"
	case models.RoleProvider:
		column = "provider_location"
	default:
		return nil, domain.Invalid("unknown role")
	}

	encoded, err := encodeLocation(&loc)
	if err != nil {
		return nil, gatewayErr("encode location", err)
	}

	res, err := db.ExecContext(ctx, `UPDATE bookings SET `+column+` = ?, updated_at = ? WHERE id = ?`,
		encoded, time.Now().UTC(), id)
	if err != nil {
		return nil, gatewayErr("update booking location", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, domain.ErrNotFound
	}

	booking, err := db.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	db.publish(events.CollectionBookings, events.ChangeUpdate, booking.ID, bookingFields(booking), booking)
	return booking, nil
}

func (db *DB) ListBookings(ctx context.Context, q domain.Query) ([]*models.Booking, error) {
	clause, args, err := buildQuery(q, bookingColumns, "created_at")
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, bookingSelect+clause, args...)
	if err != nil {
		return nil, gatewayErr("list bookings", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, gatewayErr("scan booking", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, gatewayErr("list bookings", err)
	}
	return bookings, nil
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var (
		b                        models.Booking
		date                     string
		customerLoc, providerLoc sql.NullString
	)
	err := row.Scan(
		&b.ID,
		&b.ListingID,
		&b.CustomerID,
		&b.ProviderID,
		&date,
		&b.TimeSlot,
		&b.TotalPrice,
		&b.Status,
		&customerLoc,
		&providerLoc,
		&b.CreatedAt,
		&b.UpdatedAt,
		&b.Version,
	)
	if err != nil {
		return nil, err
	}

	if b.Date, err = time.Parse(models.DateLayout, date); err != nil {
		return nil, err
	}
	if b.CustomerLocation, err = decodeLocation(customerLoc); err != nil {
		return nil, err
	}
	if b.ProviderLocation, err = decodeLocation(providerLoc); err != nil {
		return nil, err
	}
	return &b, nil
}

func encodeLocation(loc *models.Location) (any, error) {
	if loc == nil {
		return nil, nil
	}
	data, err := json.Marshal(loc)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func decodeLocation(raw sql.NullString) (*models.Location, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	var loc models.Location
	if err := json.Unmarshal([]byte(raw.String), &loc); err != nil {
		return nil, errors.Join(errors.New("corrupt location"), err)
	}
	return &loc, nil
}

func bookingFields(b *models.Booking) map[string]string {
	return map[string]string{
		"id":          b.ID,
		"customer_id": b.CustomerID,
		"provider_id": b.ProviderID,
		"listing_id":  b.ListingID,
		"status":      string(b.Status),
	}
}
