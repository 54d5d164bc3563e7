package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/yatai/internal/model"
)

// PostgresMenuRepo はPostgreSQLを使用したメニューリポジトリ。
// images列はTEXT[]であり、pq.Arrayで読み書きする。
type PostgresMenuRepo struct {
	db *sql.DB
}

// NewPostgresMenuRepo はPostgresMenuRepoを生成する。
func NewPostgresMenuRepo(db *sql.DB) *PostgresMenuRepo {
	return &PostgresMenuRepo{db: db}
}

// Create はメニューを作成する。
func (r *PostgresMenuRepo) Create(ctx context.Context, menu *model.Menu) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO menu (id, business_id, menu, images, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		menu.ID, menu.BusinessID, menu.Menu, pq.Array(menu.Images),
		menu.CreatedAt, menu.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert menu: %w", err)
	}
	return nil
}

// FindByIDAndBusiness はidとbusiness_idの両方で絞り込んでメニューを取得する。
// 見つからない場合はnilを返す。
func (r *PostgresMenuRepo) FindByIDAndBusiness(ctx context.Context, id, businessID string) (*model.Menu, error) {
	menu := &model.Menu{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, business_id, menu, images, created_at, updated_at
		 FROM menu
		 WHERE id = $1 AND business_id = $2`,
		id, businessID,
	).Scan(&menu.ID, &menu.BusinessID, &menu.Menu, pq.Array(&menu.Images),
		&menu.CreatedAt, &menu.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find menu: %w", err)
	}
	return menu, nil
}

// ListByBusiness はビジネスのメニュー一覧を作成時刻の降順で返す。
func (r *PostgresMenuRepo) ListByBusiness(ctx context.Context, businessID string) ([]*model.Menu, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, business_id, menu, images, created_at, updated_at
		 FROM menu
		 WHERE business_id = $1
		 ORDER BY created_at DESC`,
		businessID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list menus: %w", err)
	}
	defer rows.Close()

	menus := []*model.Menu{}
	for rows.Next() {
		menu := &model.Menu{}
		if err := rows.Scan(&menu.ID, &menu.BusinessID, &menu.Menu, pq.Array(&menu.Images),
			&menu.CreatedAt, &menu.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan menu: %w", err)
		}
		menus = append(menus, menu)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate menus: %w", err)
	}
	return menus, nil
}

// Update はビジネススコープでメニューを更新する。
func (r *PostgresMenuRepo) Update(ctx context.Context, menu *model.Menu) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE menu
		 SET menu = $3, images = $4, updated_at = $5
		 WHERE id = $1 AND business_id = $2`,
		menu.ID, menu.BusinessID, menu.Menu, pq.Array(menu.Images), menu.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update menu: %w", err)
	}
	return nil
}

// Delete はビジネススコープでメニューを削除する。削除された場合にtrueを返す。
func (r *PostgresMenuRepo) Delete(ctx context.Context, id, businessID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM menu WHERE id = $1 AND business_id = $2`, id, businessID)
	if err != nil {
		return false, fmt.Errorf("failed to delete menu: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

// ListImagesByUserID はユーザーが所有する全ビジネスの全メニュー画像URLを返す。
func (r *PostgresMenuRepo) ListImagesByUserID(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT m.images
		 FROM menu m
		 JOIN business b ON m.business_id = b.id
		 WHERE b.user_id = $1`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list menu images: %w", err)
	}
	defer rows.Close()

	urls := []string{}
	for rows.Next() {
		var images []string
		if err := rows.Scan(pq.Array(&images)); err != nil {
			return nil, fmt.Errorf("failed to scan menu images: %w", err)
		}
		urls = append(urls, images...)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate menu images: %w", err)
	}
	return urls, nil
}

// compile-time interface check
var _ MenuRepository = (*PostgresMenuRepo)(nil)
