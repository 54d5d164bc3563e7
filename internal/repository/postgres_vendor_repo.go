package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/yatai/internal/model"
)

// PostgresVendorRepo はPostgreSQLを使用した屋台ディレクトリリポジトリ。
type PostgresVendorRepo struct {
	db *sql.DB
}

// NewPostgresVendorRepo はPostgresVendorRepoを生成する。
func NewPostgresVendorRepo(db *sql.DB) *PostgresVendorRepo {
	return &PostgresVendorRepo{db: db}
}

// List は屋台ディレクトリ全件を名前の昇順で返す。
func (r *PostgresVendorRepo) List(ctx context.Context) ([]*model.Vendor, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, cuisine, area, rating, is_open, price_range, description, photo_url
		 FROM vendors
		 ORDER BY name ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list vendors: %w", err)
	}
	defer rows.Close()

	vendors := []*model.Vendor{}
	for rows.Next() {
		vendor := &model.Vendor{}
		var description, photoURL sql.NullString
		if err := rows.Scan(&vendor.ID, &vendor.Name, &vendor.Cuisine, &vendor.Area,
			&vendor.Rating, &vendor.IsOpen, &vendor.PriceRange, &description, &photoURL); err != nil {
			return nil, fmt.Errorf("failed to scan vendor: %w", err)
		}
		vendor.Description = description.String
		vendor.PhotoURL = photoURL.String
		vendors = append(vendors, vendor)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate vendors: %w", err)
	}
	return vendors, nil
}

// compile-time interface check
var _ VendorRepository = (*PostgresVendorRepo)(nil)
