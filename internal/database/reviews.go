package database

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"servicehub/internal/domain"
	"servicehub/internal/events"
	"servicehub/internal/models"
)

const reviewSelect = `SELECT id, booking_id, listing_id, provider_id, customer_id, rating, comment,
                             provider_response, responded_at, created_at
                      FROM reviews`

func (db *DB) CreateReview(ctx context.Context, review *models.Review) error {
	review.CreatedAt = time.Now().UTC()
	query := `INSERT INTO reviews (id, booking_id, listing_id, provider_id, customer_id, rating, comment, created_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, query,
		review.ID,
		review.BookingID,
		review.ListingID,
		review.ProviderID,
		review.CustomerID,
		review.Rating,
		review.Comment,
		review.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyReviewed
		}
		return gatewayErr("create review", err)
	}

	db.publish(events.CollectionReviews, events.ChangeInsert, review.ID, reviewFields(review), review)
	return nil
}

func (db *DB) GetReview(ctx context.Context, id string) (*models.Review, error) {
	r, err := scanReview(db.QueryRowContext(ctx, reviewSelect+` WHERE id = ?`, id))
	if err != nil {
		return nil, notFoundOr("get review", err)
	}
	return r, nil
}

func (db *DB) UpdateReviewResponse(ctx context.Context, id, response string, at time.Time) (*models.Review, error) {
	res, err := db.ExecContext(ctx, `UPDATE reviews SET provider_response = ?, responded_at = ? WHERE id = ?`,
		response, at.UTC(), id)
	if err != nil {
		return nil, gatewayErr("update review response", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, domain.ErrNotFound
	}

	review, err := db.GetReview(ctx, id)
	if err != nil {
		return nil, err
	}
	db.publish(events.CollectionReviews, events.ChangeUpdate, review.ID, reviewFields(review), review)
	return review, nil
}

func (db *DB) ListReviews(ctx context.Context, q domain.Query) ([]*models.Review, error) {
	clause, args, err := buildQuery(q, reviewColumns, "created_at")
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, reviewSelect+clause, args...)
	if err != nil {
		return nil, gatewayErr("list reviews", err)
	}
	defer rows.Close()

	var reviews []*models.Review
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, gatewayErr("scan review", err)
		}
		reviews = append(reviews, r)
	}
	if err := rows.Err(); err != nil {
		return nil, gatewayErr("list reviews", err)
	}
	return reviews, nil
}

// RatingSummaries returns average and count per listing. Listings without reviews are absent.
func (db *DB) RatingSummaries(ctx context.Context, listingIDs []string) (map[string]models.RatingSummary, error) {
	out := make(map[string]models.RatingSummary, len(listingIDs))
	if len(listingIDs) == 0 {
		return out, nil
	}

	args := make([]any, len(listingIDs))
	for i, id := range listingIDs {
		args[i] = id
	}
	query := `SELECT listing_id, AVG(rating), COUNT(*) FROM reviews
              WHERE listing_id IN (` + strings.TrimSuffix(strings.Repeat("?, ", len(args)), ", ") + `)
              GROUP BY listing_id`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, gatewayErr("rating summaries", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id      string
			summary models.RatingSummary
		)
		if err := rows.Scan(&id, &summary.Average, &summary.Count); err != nil {
			return nil, gatewayErr("scan rating summary", err)
		}
		out[id] = summary
	}
	if err := rows.Err(); err != nil {
		return nil, gatewayErr("rating summaries", err)
	}
	return out, nil
}

func scanReview(row rowScanner) (*models.Review, error) {
	var (
		r           models.Review
		respondedAt sql.NullTime
	)
	err := row.Scan(
		&r.ID,
		&r.BookingID,
		&r.ListingID,
		&r.ProviderID,
		&r.CustomerID,
		&r.Rating,
		&r.Comment,
		&r.ProviderResponse,
		&respondedAt,
		&r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if respondedAt.Valid {
		t := respondedAt.Time
		r.RespondedAt = &t
	}
	return &r, nil
}

func reviewFields(r *models.Review) map[string]string {
	return map[string]string{
		"id":          r.ID,
		"booking_id":  r.BookingID,
		"listing_id":  r.ListingID,
		"provider_id": r.ProviderID,
	}
}
