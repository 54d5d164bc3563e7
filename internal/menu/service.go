// Package menu はメニュー管理と画像アップロードの編成ロジックを提供する。
package menu

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/yatai/internal/metrics"
	"github.com/hitoshi/yatai/internal/model"
	"github.com/hitoshi/yatai/internal/repository"
	"github.com/hitoshi/yatai/internal/security"
	"github.com/hitoshi/yatai/internal/storage"
)

// imageFolder はメニュー画像のオブジェクトキーの接頭フォルダ。
const imageFolder = "menu-images"

// UploadFile はHTTP層から渡されるアップロード対象ファイル。
type UploadFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Service はメニュー管理のサービス層。
// ビジネスの所有確認を経由してメニューを操作し、画像のアップロードと
// 後始末を編成する。
type Service struct {
	menuRepo     repository.MenuRepository
	businessRepo repository.BusinessRepository
	storage      storage.ObjectStorage
	sanitizer    security.TextSanitizerService
	collector    metrics.MetricsCollector
	logger       *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	menuRepo repository.MenuRepository,
	businessRepo repository.BusinessRepository,
	objectStorage storage.ObjectStorage,
	sanitizer security.TextSanitizerService,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
) *Service {
	return &Service{
		menuRepo:     menuRepo,
		businessRepo: businessRepo,
		storage:      objectStorage,
		sanitizer:    sanitizer,
		collector:    collector,
		logger:       logger,
	}
}

// verifyOwnership はビジネスが指定ユーザーに所有されていることを確認する。
// 所有していない場合はNOT_FOUND（FORBIDDENは返さない）。
func (s *Service) verifyOwnership(ctx context.Context, businessID, userID string) error {
	business, err := s.businessRepo.FindByIDAndOwner(ctx, businessID, userID)
	if err != nil {
		return fmt.Errorf("failed to find business: %w", err)
	}
	if business == nil {
		return model.NewNotFoundError("business not found")
	}
	return nil
}

// validateFiles はアップロード前にファイル数とcontent-typeを検査する。
func validateFiles(files []UploadFile, existingCount int) error {
	if existingCount+len(files) > model.MaxMenuImages {
		return model.NewBadRequestError(
			fmt.Sprintf("a menu can have at most %d images", model.MaxMenuImages))
	}
	for _, f := range files {
		if !strings.HasPrefix(f.ContentType, "image/") {
			return model.NewBadRequestError(
				fmt.Sprintf("unsupported content type %q for file %q", f.ContentType, f.Filename))
		}
	}
	return nil
}

// uploadAll はファイルを順番にアップロードし、公開URLの一覧を返す。
// 途中で失敗した場合、アップロード済みのオブジェクトを削除してから
// 元のエラーを返す。
func (s *Service) uploadAll(ctx context.Context, files []UploadFile) ([]string, error) {
	uploaded := []string{}
	for _, f := range files {
		url, err := s.storage.Upload(ctx, imageFolder, f.Filename, f.ContentType, f.Data)
		if err != nil {
			s.collector.RecordUploadFailure("storage_error")
			s.cleanupImages(ctx, uploaded)
			return nil, fmt.Errorf("failed to upload image %q: %w", f.Filename, err)
		}
		s.collector.RecordUploadSuccess()
		uploaded = append(uploaded, url)
	}
	return uploaded, nil
}

// cleanupImages はアップロード済み画像をベストエフォートで削除する。
// 失敗はログに残すのみで呼び出し側へは伝播しない。
func (s *Service) cleanupImages(ctx context.Context, urls []string) {
	deleted := 0
	for _, url := range urls {
		if err := s.storage.Delete(ctx, url); err != nil {
			s.logger.Warn("failed to delete image", "url", url, "error", err)
			continue
		}
		deleted++
	}
	if deleted > 0 {
		s.collector.RecordImagesDeleted(deleted)
	}
}

// CreateMenu はメニューを作成する。
// 画像はアップロード前に件数とcontent-typeを検査し、順番にアップロードする。
// 行の挿入に失敗した場合、アップロード済みの画像を削除してから
// 元のエラーを返す。
func (s *Service) CreateMenu(ctx context.Context, userID, businessID, text string, files []UploadFile) (*model.Menu, error) {
	if err := s.verifyOwnership(ctx, businessID, userID); err != nil {
		return nil, err
	}
	if err := validateFiles(files, 0); err != nil {
		return nil, err
	}

	urls, err := s.uploadAll(ctx, files)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	menu := &model.Menu{
		ID:         uuid.New().String(),
		BusinessID: businessID,
		Menu:       s.sanitizer.Sanitize(text),
		Images:     urls,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.menuRepo.Create(ctx, menu); err != nil {
		s.cleanupImages(ctx, urls)
		return nil, fmt.Errorf("failed to create menu: %w", err)
	}

	return menu, nil
}

// GetMenu はビジネススコープでメニューを取得する。
func (s *Service) GetMenu(ctx context.Context, userID, businessID, menuID string) (*model.Menu, error) {
	if err := s.verifyOwnership(ctx, businessID, userID); err != nil {
		return nil, err
	}

	menu, err := s.menuRepo.FindByIDAndBusiness(ctx, menuID, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to find menu: %w", err)
	}
	if menu == nil {
		return nil, model.NewNotFoundError("menu not found")
	}
	return menu, nil
}

// ListMenus はビジネスのメニュー一覧を返す。
func (s *Service) ListMenus(ctx context.Context, userID, businessID string) ([]*model.Menu, error) {
	if err := s.verifyOwnership(ctx, businessID, userID); err != nil {
		return nil, err
	}

	menus, err := s.menuRepo.ListByBusiness(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to list menus: %w", err)
	}
	return menus, nil
}

// UpdateMenuInput はメニュー更新の入力。
type UpdateMenuInput struct {
	// Text がnilでない場合、メニューテキストを更新する。
	Text *string
	// Files は新しくアップロードする画像。
	Files []UploadFile
	// ReplaceImages がtrueの場合、新しい画像が既存画像を置き換え、
	// 古い画像はストレージから削除される。falseの場合は追加となる。
	ReplaceImages bool
}

// UpdateMenu はビジネススコープでメニューを更新する。
// テキストのみの変更ではストレージに触れない。画像を置き換える場合、
// 古い画像は行の更新が成功した後に削除される。
func (s *Service) UpdateMenu(ctx context.Context, userID, businessID, menuID string, input UpdateMenuInput) (*model.Menu, error) {
	if err := s.verifyOwnership(ctx, businessID, userID); err != nil {
		return nil, err
	}

	menu, err := s.menuRepo.FindByIDAndBusiness(ctx, menuID, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to find menu: %w", err)
	}
	if menu == nil {
		return nil, model.NewNotFoundError("menu not found")
	}

	var oldImages []string
	var uploaded []string
	if len(input.Files) > 0 {
		existingCount := len(menu.Images)
		if input.ReplaceImages {
			existingCount = 0
		}
		if err := validateFiles(input.Files, existingCount); err != nil {
			return nil, err
		}

		uploaded, err = s.uploadAll(ctx, input.Files)
		if err != nil {
			return nil, err
		}

		if input.ReplaceImages {
			oldImages = menu.Images
			menu.Images = uploaded
		} else {
			menu.Images = append(menu.Images, uploaded...)
		}
	}

	if input.Text != nil {
		menu.Menu = s.sanitizer.Sanitize(*input.Text)
	}
	menu.UpdatedAt = time.Now()

	if err := s.menuRepo.Update(ctx, menu); err != nil {
		s.cleanupImages(ctx, uploaded)
		return nil, fmt.Errorf("failed to update menu: %w", err)
	}

	// 置き換え指定時のみ古い画像を後始末する
	s.cleanupImages(ctx, oldImages)

	return menu, nil
}

// DeleteMenu はビジネススコープでメニューを削除する。
// 参照されている画像をストレージから削除したうえで行を削除する。
func (s *Service) DeleteMenu(ctx context.Context, userID, businessID, menuID string) error {
	if err := s.verifyOwnership(ctx, businessID, userID); err != nil {
		return err
	}

	menu, err := s.menuRepo.FindByIDAndBusiness(ctx, menuID, businessID)
	if err != nil {
		return fmt.Errorf("failed to find menu: %w", err)
	}
	if menu == nil {
		return model.NewNotFoundError("menu not found")
	}

	s.cleanupImages(ctx, menu.Images)

	deleted, err := s.menuRepo.Delete(ctx, menuID, businessID)
	if err != nil {
		return fmt.Errorf("failed to delete menu: %w", err)
	}
	if !deleted {
		return model.NewNotFoundError("menu not found")
	}
	return nil
}
