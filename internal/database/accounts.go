package database

import (
	"context"
	"time"

	"servicehub/internal/events"
	"servicehub/internal/models"
)

const accountSelect = `SELECT id, role, email, full_name, phone, city, bio, created_at, updated_at FROM accounts`

func (db *DB) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	acc, err := scanAccount(db.QueryRowContext(ctx, accountSelect+` WHERE id = ?`, id))
	if err != nil {
		return nil, notFoundOr("get account", err)
	}
	return acc, nil
}

// UpsertAccount inserts the account or updates its profile fields. CreatedAt is kept on update.
func (db *DB) UpsertAccount(ctx context.Context, account *models.Account) error {
	now := time.Now().UTC()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now

	query := `INSERT INTO accounts (id, role, email, full_name, phone, city, bio, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
              ON CONFLICT(id) DO UPDATE SET
                role = excluded.role,
                email = excluded.email,
                full_name = excluded.full_name,
                phone = excluded.phone,
                city = excluded.city,
                bio = excluded.bio,
                updated_at = excluded.updated_at`
	_, err := db.ExecContext(ctx, query,
		account.ID,
		account.Role,
		account.Email,
		account.FullName,
		account.Phone,
		account.City,
		account.Bio,
		account.CreatedAt.UTC(),
		account.UpdatedAt,
	)
	if err != nil {
		return gatewayErr("upsert account", err)
	}

	stored, err := db.GetAccount(ctx, account.ID)
	if err != nil {
		return err
	}
	*account = *stored

	typ := events.ChangeUpdate
	if stored.CreatedAt.Equal(stored.UpdatedAt) {
		typ = events.ChangeInsert
	}
	db.publish(events.CollectionAccounts, typ, account.ID, map[string]string{"id": account.ID}, account)
	return nil
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var acc models.Account
	err := row.Scan(
		&acc.ID,
		&acc.Role,
		&acc.Email,
		&acc.FullName,
		&acc.Phone,
		&acc.City,
		&acc.Bio,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &acc, nil
}
