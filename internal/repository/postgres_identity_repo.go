package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/yatai/internal/model"
)

// PostgresIdentityRepo はPostgreSQLを使用したidentityリポジトリ。
type PostgresIdentityRepo struct {
	db *sql.DB
}

// NewPostgresIdentityRepo はPostgresIdentityRepoを生成する。
func NewPostgresIdentityRepo(db *sql.DB) *PostgresIdentityRepo {
	return &PostgresIdentityRepo{db: db}
}

// Create はidentityを作成する。
// (provider, provider_user_id) が重複する場合、一意制約違反が
// そのまま返る（IsUniqueViolationで判定できる）。
func (r *PostgresIdentityRepo) Create(ctx context.Context, identity *model.Identity) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_identities (id, user_id, provider, provider_user_id, provider_email, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7)`,
		identity.ID, identity.UserID, identity.Provider, identity.ProviderUserID,
		identity.ProviderEmail, identity.CreatedAt, identity.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("failed to insert identity: %w", err)
	}
	return nil
}

// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
// 見つからない場合はnilを返す。
func (r *PostgresIdentityRepo) FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error) {
	identity := &model.Identity{}
	var email sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, provider, provider_user_id, provider_email, created_at, updated_at
		 FROM user_identities
		 WHERE provider = $1 AND provider_user_id = $2`,
		provider, providerUserID,
	).Scan(&identity.ID, &identity.UserID, &identity.Provider, &identity.ProviderUserID,
		&email, &identity.CreatedAt, &identity.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find identity: %w", err)
	}

	identity.ProviderEmail = email.String
	return identity, nil
}

// Delete は指定IDのidentityを削除する。削除された場合にtrueを返す。
func (r *PostgresIdentityRepo) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM user_identities WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete identity: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

// compile-time interface check
var _ IdentityRepository = (*PostgresIdentityRepo)(nil)
