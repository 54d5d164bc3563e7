// Package business は屋台・ビジネス管理のドメインロジックを提供する。
package business

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/yatai/internal/model"
	"github.com/hitoshi/yatai/internal/repository"
	"github.com/hitoshi/yatai/internal/security"
)

// Service はビジネス管理のサービス層。
// 全ての読み書きは所有者スコープで行われ、他ユーザーのビジネスは
// 存在しないものとして扱われる（NOT_FOUND）。
type Service struct {
	businessRepo repository.BusinessRepository
	sanitizer    security.TextSanitizerService
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(businessRepo repository.BusinessRepository, sanitizer security.TextSanitizerService) *Service {
	return &Service{
		businessRepo: businessRepo,
		sanitizer:    sanitizer,
	}
}

// CreateBusinessInput はビジネス作成の入力。
type CreateBusinessInput struct {
	Name        string
	Description string
	Image       string
	Longitude   float64
	Latitude    float64
}

// UpdateBusinessInput はビジネス更新の入力。
// nilのフィールドは変更しない。
type UpdateBusinessInput struct {
	Name        *string
	Description *string
	Image       *string
	Longitude   *float64
	Latitude    *float64
}

// CreateBusiness は所有者のビジネスを作成する。
func (s *Service) CreateBusiness(ctx context.Context, userID string, input CreateBusinessInput) (*model.Business, error) {
	now := time.Now()
	business := &model.Business{
		ID:          uuid.New().String(),
		UserID:      userID,
		Name:        s.sanitizer.Sanitize(input.Name),
		Description: s.sanitizer.Sanitize(input.Description),
		Image:       input.Image,
		Longitude:   input.Longitude,
		Latitude:    input.Latitude,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.businessRepo.Create(ctx, business); err != nil {
		return nil, fmt.Errorf("failed to create business: %w", err)
	}
	return business, nil
}

// GetBusiness は所有者スコープでビジネスを取得する。
func (s *Service) GetBusiness(ctx context.Context, id, userID string) (*model.Business, error) {
	business, err := s.businessRepo.FindByIDAndOwner(ctx, id, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find business: %w", err)
	}
	if business == nil {
		return nil, model.NewNotFoundError("business not found")
	}
	return business, nil
}

// ListBusinesses は所有者のビジネス一覧を返す。
func (s *Service) ListBusinesses(ctx context.Context, userID string) ([]*model.Business, error) {
	businesses, err := s.businessRepo.ListByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list businesses: %w", err)
	}
	return businesses, nil
}

// UpdateBusiness は所有者スコープでビジネスを部分更新する。
// 所有していないビジネスはNOT_FOUNDになる。
func (s *Service) UpdateBusiness(ctx context.Context, id, userID string, input UpdateBusinessInput) (*model.Business, error) {
	business, err := s.businessRepo.FindByIDAndOwner(ctx, id, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find business: %w", err)
	}
	if business == nil {
		return nil, model.NewNotFoundError("business not found")
	}

	if input.Name != nil {
		business.Name = s.sanitizer.Sanitize(*input.Name)
	}
	if input.Description != nil {
		business.Description = s.sanitizer.Sanitize(*input.Description)
	}
	if input.Image != nil {
		business.Image = *input.Image
	}
	if input.Longitude != nil {
		business.Longitude = *input.Longitude
	}
	if input.Latitude != nil {
		business.Latitude = *input.Latitude
	}
	business.UpdatedAt = time.Now()

	if err := s.businessRepo.Update(ctx, business); err != nil {
		return nil, fmt.Errorf("failed to update business: %w", err)
	}
	return business, nil
}

// DeleteBusiness は所有者スコープでビジネスを削除する。
func (s *Service) DeleteBusiness(ctx context.Context, id, userID string) error {
	deleted, err := s.businessRepo.Delete(ctx, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete business: %w", err)
	}
	if !deleted {
		return model.NewNotFoundError("business not found")
	}
	return nil
}
