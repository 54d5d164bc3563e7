package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/yatai/internal/model"
)

// PostgresBusinessRepo はPostgreSQLを使用したビジネスリポジトリ。
type PostgresBusinessRepo struct {
	db *sql.DB
}

// NewPostgresBusinessRepo はPostgresBusinessRepoを生成する。
func NewPostgresBusinessRepo(db *sql.DB) *PostgresBusinessRepo {
	return &PostgresBusinessRepo{db: db}
}

// Create はビジネスを作成する。
func (r *PostgresBusinessRepo) Create(ctx context.Context, business *model.Business) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO business (id, user_id, name, description, image, longitude, latitude, created_at, updated_at)
		 VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8, $9)`,
		business.ID, business.UserID, business.Name, business.Description, business.Image,
		business.Longitude, business.Latitude, business.CreatedAt, business.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert business: %w", err)
	}
	return nil
}

// FindByIDAndOwner はidと所有者idの両方で絞り込んでビジネスを取得する。
// 行が存在しても所有者が異なる場合はnilを返す。
func (r *PostgresBusinessRepo) FindByIDAndOwner(ctx context.Context, id, userID string) (*model.Business, error) {
	business := &model.Business{}
	var description, image sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, description, image, longitude, latitude, created_at, updated_at
		 FROM business
		 WHERE id = $1 AND user_id = $2`,
		id, userID,
	).Scan(&business.ID, &business.UserID, &business.Name, &description, &image,
		&business.Longitude, &business.Latitude, &business.CreatedAt, &business.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find business: %w", err)
	}

	business.Description = description.String
	business.Image = image.String
	return business, nil
}

// ListByOwner は所有者のビジネス一覧を作成時刻の降順で返す。
func (r *PostgresBusinessRepo) ListByOwner(ctx context.Context, userID string) ([]*model.Business, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, description, image, longitude, latitude, created_at, updated_at
		 FROM business
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list businesses: %w", err)
	}
	defer rows.Close()

	businesses := []*model.Business{}
	for rows.Next() {
		business := &model.Business{}
		var description, image sql.NullString
		if err := rows.Scan(&business.ID, &business.UserID, &business.Name, &description, &image,
			&business.Longitude, &business.Latitude, &business.CreatedAt, &business.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan business: %w", err)
		}
		business.Description = description.String
		business.Image = image.String
		businesses = append(businesses, business)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate businesses: %w", err)
	}
	return businesses, nil
}

// Update は所有者スコープでビジネスを更新する。
func (r *PostgresBusinessRepo) Update(ctx context.Context, business *model.Business) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE business
		 SET name = $3, description = NULLIF($4, ''), image = NULLIF($5, ''),
		     longitude = $6, latitude = $7, updated_at = $8
		 WHERE id = $1 AND user_id = $2`,
		business.ID, business.UserID, business.Name, business.Description, business.Image,
		business.Longitude, business.Latitude, business.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update business: %w", err)
	}
	return nil
}

// Delete は所有者スコープでビジネスを削除する。削除された場合にtrueを返す。
func (r *PostgresBusinessRepo) Delete(ctx context.Context, id, userID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM business WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete business: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

// compile-time interface check
var _ BusinessRepository = (*PostgresBusinessRepo)(nil)
