// Package identity は外部IdP連携のドメインロジックを提供する。
package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/yatai/internal/auth"
	"github.com/hitoshi/yatai/internal/model"
	"github.com/hitoshi/yatai/internal/repository"
)

// Service はidentity連携のサービス層。
// ユーザーへの追加IdP紐付けと紐付け解除を提供する。
type Service struct {
	identityRepo     repository.IdentityRepository
	userRepo         repository.UserRepository
	firebaseVerifier auth.FirebaseVerifier
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	identityRepo repository.IdentityRepository,
	userRepo repository.UserRepository,
	firebaseVerifier auth.FirebaseVerifier,
) *Service {
	return &Service{
		identityRepo:     identityRepo,
		userRepo:         userRepo,
		firebaseVerifier: firebaseVerifier,
	}
}

// CreateIdentityInput はidentity作成の入力。
type CreateIdentityInput struct {
	UserID         string
	Provider       string
	ProviderUserID string
	ProviderEmail  string
	// IDToken はprovider発行のIDトークン。firebaseの場合、
	// provider_user_idの所有確認に使用する。
	IDToken string
}

// CreateIdentity はユーザーに新しいIdP紐付けを追加する。
// 対象ユーザーが存在しない場合はNOT_FOUND、
// (provider, provider_user_id) が既に使われている場合はCONFLICTを返す。
// providerがfirebaseの場合、IDトークンを検証しUIDの一致を確認する。
func (s *Service) CreateIdentity(ctx context.Context, input CreateIdentityInput) (*model.Identity, error) {
	u, err := s.userRepo.FindByID(ctx, input.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if u == nil {
		return nil, model.NewNotFoundError("user not found")
	}

	if input.Provider == "firebase" {
		uid, err := s.firebaseVerifier.VerifyIDToken(ctx, input.IDToken)
		if err != nil {
			return nil, err
		}
		if uid != input.ProviderUserID {
			return nil, model.NewUnauthorizedError("token does not belong to the claimed provider user")
		}
	}

	now := time.Now()
	identity := &model.Identity{
		ID:             uuid.New().String(),
		UserID:         input.UserID,
		Provider:       input.Provider,
		ProviderUserID: input.ProviderUserID,
		ProviderEmail:  input.ProviderEmail,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.identityRepo.Create(ctx, identity); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, model.NewConflictError("identity already exists for this provider user")
		}
		return nil, fmt.Errorf("failed to create identity: %w", err)
	}

	return identity, nil
}

// DeleteIdentity は指定IDのidentityを削除する。
func (s *Service) DeleteIdentity(ctx context.Context, id string) error {
	deleted, err := s.identityRepo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete identity: %w", err)
	}
	if !deleted {
		return model.NewNotFoundError("identity not found")
	}
	return nil
}
