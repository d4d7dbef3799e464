package repository

import (
	"context"
	"database/sql"
	"fmt"

	d "github.com/fjod/cookcart/internal/domain"
	"github.com/google/uuid"
)

const addressColumns = `id, type, address_line1, address_line2, landmark, city, state, pincode, lat, lng, is_default`

func (r *Repository) GetAddresses(ctx context.Context, userID string) ([]d.Address, error) {
	query := `SELECT ` + addressColumns + ` FROM addresses WHERE user_id = $1 ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query addresses: %w", err)
	}
	defer rows.Close()

	addresses := []d.Address{}
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, err
		}
		addresses = append(addresses, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate addresses: %w", err)
	}
	return addresses, nil
}

// SaveAddress inserts a new address. The user's first address is always the
// default, and saving a new default clears the previous one.
func (r *Repository) SaveAddress(ctx context.Context, userID string, input d.AddressInput) (*d.Address, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// serialise saves per user so the count below stays accurate
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, userID); err != nil {
		return nil, fmt.Errorf("lock user addresses: %w", err)
	}

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM addresses WHERE user_id = $1`, userID).Scan(&count); err != nil {
		return nil, fmt.Errorf("count addresses: %w", err)
	}

	isDefault := input.IsDefault || count == 0
	if isDefault && count > 0 {
		if _, err := tx.ExecContext(ctx, `UPDATE addresses SET is_default = FALSE WHERE user_id = $1 AND is_default`, userID); err != nil {
			return nil, fmt.Errorf("clear default address: %w", err)
		}
	}

	addressType := input.Type
	if addressType == "" {
		addressType = d.AddressTypeHome
	}
	var lat, lng sql.NullFloat64
	if input.Coordinates != nil {
		lat = sql.NullFloat64{Float64: input.Coordinates.Lat, Valid: true}
		lng = sql.NullFloat64{Float64: input.Coordinates.Lng, Valid: true}
	}

	id := uuid.New()
	query := `INSERT INTO addresses (id, user_id, type, address_line1, address_line2, landmark, city, state, pincode, lat, lng, is_default)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	if _, err := tx.ExecContext(ctx, query,
		id,
		userID,
		addressType,
		input.AddressLine1,
		input.AddressLine2,
		input.Landmark,
		input.City,
		input.State,
		input.Pincode,
		lat,
		lng,
		isDefault); err != nil {
		return nil, fmt.Errorf("insert address: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit address: %w", err)
	}

	input.Type = addressType
	input.IsDefault = isDefault
	saved := input.WithID(id.String())
	return &saved, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAddress(row rowScanner) (d.Address, error) {
	var a d.Address
	var lat, lng sql.NullFloat64
	if err := row.Scan(
		&a.ID,
		&a.Type,
		&a.AddressLine1,
		&a.AddressLine2,
		&a.Landmark,
		&a.City,
		&a.State,
		&a.Pincode,
		&lat,
		&lng,
		&a.IsDefault,
	); err != nil {
		return d.Address{}, fmt.Errorf("scan address: %w", err)
	}
	if lat.Valid && lng.Valid {
		a.Coordinates = &d.Coordinates{Lat: lat.Float64, Lng: lng.Float64}
	}
	return a, nil
}
