// Package user はユーザープロフィールとソーシャルログインのドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/yatai/internal/model"
	"github.com/hitoshi/yatai/internal/repository"
	"github.com/hitoshi/yatai/internal/security"
	"github.com/hitoshi/yatai/internal/storage"
)

// Service はユーザー管理のサービス層。
// ソーシャルログインの冪等な作成、プロフィールの取得・更新・削除を提供する。
type Service struct {
	userRepo     repository.UserRepository
	identityRepo repository.IdentityRepository
	menuRepo     repository.MenuRepository
	storage      storage.ObjectStorage
	sanitizer    security.TextSanitizerService
	logger       *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	userRepo repository.UserRepository,
	identityRepo repository.IdentityRepository,
	menuRepo repository.MenuRepository,
	objectStorage storage.ObjectStorage,
	sanitizer security.TextSanitizerService,
	logger *slog.Logger,
) *Service {
	return &Service{
		userRepo:     userRepo,
		identityRepo: identityRepo,
		menuRepo:     menuRepo,
		storage:      objectStorage,
		sanitizer:    sanitizer,
		logger:       logger,
	}
}

// FacebookLoginInput はソーシャルログインの入力。
type FacebookLoginInput struct {
	Name           string
	Provider       string
	ProviderUserID string
	ProviderEmail  string
}

// FacebookLogin はソーシャルログインを処理する。
// (provider, provider_user_id) で既存のidentityを検索し、
// 存在すれば紐付くユーザーを返す（冪等）。存在しなければユーザーと
// identityを新規作成する。identityの作成に失敗した場合、作成済みの
// ユーザー行を補償削除したうえで元のエラーを返す。
func (s *Service) FacebookLogin(ctx context.Context, input FacebookLoginInput) (*model.FacebookLoginResult, error) {
	existing, err := s.identityRepo.FindByProviderAndProviderUserID(ctx, input.Provider, input.ProviderUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up identity: %w", err)
	}

	if existing != nil {
		u, err := s.userRepo.FindByID(ctx, existing.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to find user for identity: %w", err)
		}
		if u == nil {
			return nil, model.NewInternalError("identity references missing user")
		}
		return &model.FacebookLoginResult{User: u, Identity: existing, IsNewUser: false}, nil
	}

	now := time.Now()
	u := &model.User{
		ID:        uuid.New().String(),
		Name:      s.sanitizer.Sanitize(input.Name),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.userRepo.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	identity := &model.Identity{
		ID:             uuid.New().String(),
		UserID:         u.ID,
		Provider:       input.Provider,
		ProviderUserID: input.ProviderUserID,
		ProviderEmail:  input.ProviderEmail,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.identityRepo.Create(ctx, identity); err != nil {
		// 作成済みのユーザー行を補償削除する。削除自体の失敗は
		// ログに残すのみとし、元のエラーを返す。
		if _, delErr := s.userRepo.Delete(ctx, u.ID); delErr != nil {
			s.logger.Error("failed to roll back user after identity create failure",
				"user_id", u.ID, "error", delErr)
		}
		if repository.IsUniqueViolation(err) {
			return nil, model.NewConflictError("identity already exists for this provider user")
		}
		return nil, fmt.Errorf("failed to create identity: %w", err)
	}

	return &model.FacebookLoginResult{User: u, Identity: identity, IsNewUser: true}, nil
}

// EnsureProfile は指定IDのプロフィール行が存在することを保証する。
// 認証済みリクエストの最初の到達時にプロフィールを遅延作成する。
// 並行リクエストによる一意制約違反は既存行があるということなので握り潰す。
func (s *Service) EnsureProfile(ctx context.Context, userID, name string) error {
	u, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to look up profile: %w", err)
	}
	if u != nil {
		return nil
	}

	now := time.Now()
	newUser := &model.User{
		ID:        userID,
		Name:      s.sanitizer.Sanitize(name),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.userRepo.Create(ctx, newUser); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil
		}
		return fmt.Errorf("failed to provision profile: %w", err)
	}
	return nil
}

// GetUser は指定IDのユーザーを取得する。
func (s *Service) GetUser(ctx context.Context, id string) (*model.User, error) {
	u, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if u == nil {
		return nil, model.NewNotFoundError("user not found")
	}
	return u, nil
}

// ListUsers はユーザー一覧と全件数を返す。
func (s *Service) ListUsers(ctx context.Context, limit, offset int) ([]*model.User, int, error) {
	users, total, err := s.userRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

// UpdateUser は指定IDのユーザー名を更新する。
func (s *Service) UpdateUser(ctx context.Context, id, name string) (*model.User, error) {
	u, err := s.userRepo.UpdateName(ctx, id, s.sanitizer.Sanitize(name))
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	if u == nil {
		return nil, model.NewNotFoundError("user not found")
	}
	return u, nil
}

// DeleteUser は指定IDのユーザーを削除する。
// 関連行はDBの外部キーでCASCADE削除されるが、オブジェクトストレージ上の
// メニュー画像は行削除前に手動で削除する。画像削除はベストエフォートで、
// 失敗してもユーザー削除を中断しない。
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	imageURLs, err := s.menuRepo.ListImagesByUserID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to collect menu images: %w", err)
	}
	for _, url := range imageURLs {
		if err := s.storage.Delete(ctx, url); err != nil {
			s.logger.Warn("failed to delete menu image during user deletion",
				"user_id", id, "url", url, "error", err)
		}
	}

	deleted, err := s.userRepo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if !deleted {
		return model.NewNotFoundError("user not found")
	}
	return nil
}
