package database

import (
	"context"
	"database/sql"
	"time"

	"servicehub/internal/domain"
	"servicehub/internal/events"
	"servicehub/internal/models"
)

const listingSelect = `SELECT id, provider_id, title, category, description, price, price_type,
                              image_url, latitude, longitude, archived, created_at, updated_at
                       FROM services`

func (db *DB) GetListing(ctx context.Context, id string) (*models.Listing, error) {
	l, err := scanListing(db.QueryRowContext(ctx, listingSelect+` WHERE id = ?`, id))
	if err != nil {
		return nil, notFoundOr("get listing", err)
	}
	return l, nil
}

func (db *DB) CreateListing(ctx context.Context, listing *models.Listing) error {
	now := time.Now().UTC()
	listing.CreatedAt = now
	listing.UpdatedAt = now
	lat, lon := locationArgs(listing.Location)

	query := `INSERT INTO services (
				id, provider_id, title, category, description, price, price_type,
				image_url, latitude, longitude, archived, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, query,
		listing.ID,
		listing.ProviderID,
		listing.Title,
		listing.Category,
		listing.Description,
		listing.Price,
		listing.PriceType,
		listing.ImageURL,
		lat,
		lon,
		listing.Archived,
		now,
		now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Invalid("listing already exists")
		}
		return gatewayErr("create listing", err)
	}

	db.publish(events.CollectionListings, events.ChangeInsert, listing.ID, listingFields(listing), listing)
	return nil
}

func (db *DB) UpdateListing(ctx context.Context, listing *models.Listing) error {
	listing.UpdatedAt = time.Now().UTC()
	lat, lon := locationArgs(listing.Location)

	query := `UPDATE services SET title = ?, category = ?, description = ?, price = ?, price_type = ?,
                     image_url = ?, latitude = ?, longitude = ?, archived = ?, updated_at = ?
              WHERE id = ?`
	res, err := db.ExecContext(ctx, query,
		listing.Title,
		listing.Category,
		listing.Description,
		listing.Price,
		listing.PriceType,
		listing.ImageURL,
		lat,
		lon,
		listing.Archived,
		listing.UpdatedAt,
		listing.ID,
	)
	if err != nil {
		return gatewayErr("update listing", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}

	db.publish(events.CollectionListings, events.ChangeUpdate, listing.ID, listingFields(listing), listing)
	return nil
}

func (db *DB) ListListings(ctx context.Context, q domain.Query) ([]*models.Listing, error) {
	clause, args, err := buildQuery(q, listingColumns, "created_at")
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, listingSelect+clause, args...)
	if err != nil {
		return nil, gatewayErr("list listings", err)
	}
	defer rows.Close()

	var listings []*models.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, gatewayErr("scan listing", err)
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, gatewayErr("list listings", err)
	}
	return listings, nil
}

func scanListing(row rowScanner) (*models.Listing, error) {
	var (
		l        models.Listing
		lat, lon sql.NullFloat64
	)
	err := row.Scan(
		&l.ID,
		&l.ProviderID,
		&l.Title,
		&l.Category,
		&l.Description,
		&l.Price,
		&l.PriceType,
		&l.ImageURL,
		&lat,
		&lon,
		&l.Archived,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lat.Valid && lon.Valid {
		l.Location = &models.Location{Latitude: lat.Float64, Longitude: lon.Float64}
	}
	return &l, nil
}

func locationArgs(loc *models.Location) (lat, lon any) {
	if loc == nil {
		return nil, nil
	}
	return loc.Latitude, loc.Longitude
}

func listingFields(l *models.Listing) map[string]string {
	return map[string]string{
		"id":          l.ID,
		"provider_id": l.ProviderID,
		"category":    l.Category,
	}
}
