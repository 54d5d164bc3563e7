package user

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/lib/pq"

	"github.com/hitoshi/yatai/internal/model"
	"github.com/hitoshi/yatai/internal/security"
)

// --- モック ---

type mockUserRepo struct {
	createFn     func(ctx context.Context, user *model.User) error
	findByIDFn   func(ctx context.Context, id string) (*model.User, error)
	listFn       func(ctx context.Context, limit, offset int) ([]*model.User, int, error)
	updateNameFn func(ctx context.Context, id, name string) (*model.User, error)
	deleteFn     func(ctx context.Context, id string) (bool, error)
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}
func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockUserRepo) List(ctx context.Context, limit, offset int) ([]*model.User, int, error) {
	return m.listFn(ctx, limit, offset)
}
func (m *mockUserRepo) UpdateName(ctx context.Context, id, name string) (*model.User, error) {
	return m.updateNameFn(ctx, id, name)
}
func (m *mockUserRepo) Delete(ctx context.Context, id string) (bool, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return true, nil
}

type mockIdentityRepo struct {
	createFn func(ctx context.Context, identity *model.Identity) error
	findFn   func(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
	deleteFn func(ctx context.Context, id string) (bool, error)
}

func (m *mockIdentityRepo) Create(ctx context.Context, identity *model.Identity) error {
	if m.createFn != nil {
		return m.createFn(ctx, identity)
	}
	return nil
}
func (m *mockIdentityRepo) FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error) {
	if m.findFn != nil {
		return m.findFn(ctx, provider, providerUserID)
	}
	return nil, nil
}
func (m *mockIdentityRepo) Delete(ctx context.Context, id string) (bool, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return true, nil
}

type mockMenuRepo struct {
	listImagesByUserIDFn func(ctx context.Context, userID string) ([]string, error)
}

func (m *mockMenuRepo) Create(ctx context.Context, menu *model.Menu) error { return nil }
func (m *mockMenuRepo) FindByIDAndBusiness(ctx context.Context, id, businessID string) (*model.Menu, error) {
	return nil, nil
}
func (m *mockMenuRepo) ListByBusiness(ctx context.Context, businessID string) ([]*model.Menu, error) {
	return nil, nil
}
func (m *mockMenuRepo) Update(ctx context.Context, menu *model.Menu) error { return nil }
func (m *mockMenuRepo) Delete(ctx context.Context, id, businessID string) (bool, error) {
	return true, nil
}
func (m *mockMenuRepo) ListImagesByUserID(ctx context.Context, userID string) ([]string, error) {
	if m.listImagesByUserIDFn != nil {
		return m.listImagesByUserIDFn(ctx, userID)
	}
	return nil, nil
}

type mockStorage struct {
	uploadFn func(ctx context.Context, folder, filename, contentType string, data []byte) (string, error)
	deleteFn func(ctx context.Context, publicURL string) error
}

func (m *mockStorage) Upload(ctx context.Context, folder, filename, contentType string, data []byte) (string, error) {
	if m.uploadFn != nil {
		return m.uploadFn(ctx, folder, filename, contentType, data)
	}
	return "https://storage.example.com/images/" + filename, nil
}
func (m *mockStorage) Delete(ctx context.Context, publicURL string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, publicURL)
	}
	return nil
}

func newTestService(userRepo *mockUserRepo, identityRepo *mockIdentityRepo, menuRepo *mockMenuRepo, st *mockStorage) *Service {
	if userRepo == nil {
		userRepo = &mockUserRepo{}
	}
	if identityRepo == nil {
		identityRepo = &mockIdentityRepo{}
	}
	if menuRepo == nil {
		menuRepo = &mockMenuRepo{}
	}
	if st == nil {
		st = &mockStorage{}
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(userRepo, identityRepo, menuRepo, st, security.NewTextSanitizer(), logger)
}

// --- テスト ---

// 既存identityがある場合にユーザー新規作成なしで返ることを検証（冪等性）
func TestService_FacebookLogin_ExistingIdentity(t *testing.T) {
	created := false
	userRepo := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			created = true
			return nil
		},
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Name: "Taro"}, nil
		},
	}
	identityRepo := &mockIdentityRepo{
		findFn: func(ctx context.Context, provider, providerUserID string) (*model.Identity, error) {
			return &model.Identity{ID: "identity-1", UserID: "user-1", Provider: provider, ProviderUserID: providerUserID}, nil
		},
	}
	svc := newTestService(userRepo, identityRepo, nil, nil)

	result, err := svc.FacebookLogin(context.Background(), FacebookLoginInput{
		Name: "Taro", Provider: "facebook", ProviderUserID: "fb-123",
	})
	if err != nil {
		t.Fatalf("FacebookLogin() error = %v", err)
	}
	if result.IsNewUser {
		t.Error("IsNewUser = true, want false")
	}
	if result.User.ID != "user-1" {
		t.Errorf("User.ID = %q, want %q", result.User.ID, "user-1")
	}
	if created {
		t.Error("user should not be created when identity exists")
	}
}

// identityが無い場合にユーザーとidentityが作成されることを検証
func TestService_FacebookLogin_NewUser(t *testing.T) {
	var createdUser *model.User
	var createdIdentity *model.Identity
	userRepo := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			createdUser = user
			return nil
		},
	}
	identityRepo := &mockIdentityRepo{
		createFn: func(ctx context.Context, identity *model.Identity) error {
			createdIdentity = identity
			return nil
		},
	}
	svc := newTestService(userRepo, identityRepo, nil, nil)

	result, err := svc.FacebookLogin(context.Background(), FacebookLoginInput{
		Name: "Taro", Provider: "facebook", ProviderUserID: "fb-123", ProviderEmail: "taro@example.com",
	})
	if err != nil {
		t.Fatalf("FacebookLogin() error = %v", err)
	}
	if !result.IsNewUser {
		t.Error("IsNewUser = false, want true")
	}
	if createdUser == nil || createdIdentity == nil {
		t.Fatal("expected user and identity to be created")
	}
	if createdIdentity.UserID != createdUser.ID {
		t.Errorf("identity.UserID = %q, want %q", createdIdentity.UserID, createdUser.ID)
	}
	if createdIdentity.ProviderUserID != "fb-123" {
		t.Errorf("identity.ProviderUserID = %q, want %q", createdIdentity.ProviderUserID, "fb-123")
	}
	if createdUser.ID == "" || createdUser.CreatedAt.IsZero() {
		t.Error("expected user ID and timestamps to be set")
	}
}

// identity作成失敗時に作成済みユーザーが補償削除されることを検証
func TestService_FacebookLogin_CompensatingDelete(t *testing.T) {
	var createdUserID, deletedUserID string
	userRepo := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			createdUserID = user.ID
			return nil
		},
		deleteFn: func(ctx context.Context, id string) (bool, error) {
			deletedUserID = id
			return true, nil
		},
	}
	insertErr := errors.New("insert failed")
	identityRepo := &mockIdentityRepo{
		createFn: func(ctx context.Context, identity *model.Identity) error {
			return insertErr
		},
	}
	svc := newTestService(userRepo, identityRepo, nil, nil)

	_, err := svc.FacebookLogin(context.Background(), FacebookLoginInput{
		Name: "Taro", Provider: "facebook", ProviderUserID: "fb-123",
	})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !errors.Is(err, insertErr) {
		t.Errorf("expected original error to be surfaced, got %v", err)
	}
	if deletedUserID != createdUserID || deletedUserID == "" {
		t.Errorf("deleted user = %q, want %q", deletedUserID, createdUserID)
	}
}

// identity作成の一意制約違反がCONFLICTになることを検証
func TestService_FacebookLogin_UniqueViolation(t *testing.T) {
	identityRepo := &mockIdentityRepo{
		createFn: func(ctx context.Context, identity *model.Identity) error {
			return &pq.Error{Code: "23505"}
		},
	}
	svc := newTestService(nil, identityRepo, nil, nil)

	_, err := svc.FacebookLogin(context.Background(), FacebookLoginInput{
		Name: "Taro", Provider: "facebook", ProviderUserID: "fb-123",
	})
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeConflict {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeConflict)
	}
}

// ログイン時に名前がサニタイズされることを検証
func TestService_FacebookLogin_SanitizesName(t *testing.T) {
	var createdUser *model.User
	userRepo := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			createdUser = user
			return nil
		},
	}
	svc := newTestService(userRepo, nil, nil, nil)

	_, err := svc.FacebookLogin(context.Background(), FacebookLoginInput{
		Name: `Taro<script>alert(1)</script>`, Provider: "facebook", ProviderUserID: "fb-123",
	})
	if err != nil {
		t.Fatalf("FacebookLogin() error = %v", err)
	}
	if createdUser.Name != "Taro" {
		t.Errorf("Name = %q, want %q", createdUser.Name, "Taro")
	}
}

// EnsureProfileが既存プロフィールに対して何もしないことを検証
func TestService_EnsureProfile_AlreadyExists(t *testing.T) {
	created := false
	svc := newTestService(&mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id}, nil
		},
		createFn: func(ctx context.Context, user *model.User) error {
			created = true
			return nil
		},
	}, nil, nil, nil)

	if err := svc.EnsureProfile(context.Background(), "user-1", "Taro"); err != nil {
		t.Fatalf("EnsureProfile() error = %v", err)
	}
	if created {
		t.Error("profile should not be created when it already exists")
	}
}

// EnsureProfileがプロフィールを遅延作成することを検証
func TestService_EnsureProfile_Creates(t *testing.T) {
	var createdUser *model.User
	svc := newTestService(&mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			createdUser = user
			return nil
		},
	}, nil, nil, nil)

	if err := svc.EnsureProfile(context.Background(), "user-1", "Taro"); err != nil {
		t.Fatalf("EnsureProfile() error = %v", err)
	}
	if createdUser == nil || createdUser.ID != "user-1" {
		t.Fatalf("expected profile created with ID user-1, got %+v", createdUser)
	}
}

// EnsureProfileが並行作成による一意制約違反を握り潰すことを検証
func TestService_EnsureProfile_SwallowsUniqueViolation(t *testing.T) {
	svc := newTestService(&mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			return &pq.Error{Code: "23505"}
		},
	}, nil, nil, nil)

	if err := svc.EnsureProfile(context.Background(), "user-1", "Taro"); err != nil {
		t.Errorf("EnsureProfile() error = %v, want nil", err)
	}
}

// 存在しないユーザーの取得がNOT_FOUNDになることを検証
func TestService_GetUser_NotFound(t *testing.T) {
	svc := newTestService(&mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return nil, nil
		},
	}, nil, nil, nil)

	_, err := svc.GetUser(context.Background(), "missing")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeNotFound {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeNotFound)
	}
}

// ユーザー一覧が件数付きで返ることを検証
func TestService_ListUsers(t *testing.T) {
	svc := newTestService(&mockUserRepo{
		listFn: func(ctx context.Context, limit, offset int) ([]*model.User, int, error) {
			if limit != 10 || offset != 20 {
				t.Errorf("limit/offset = %d/%d, want 10/20", limit, offset)
			}
			return []*model.User{{ID: "u1"}, {ID: "u2"}}, 42, nil
		},
	}, nil, nil, nil)

	users, total, err := svc.ListUsers(context.Background(), 10, 20)
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if len(users) != 2 || total != 42 {
		t.Errorf("got %d users, total %d, want 2 users, total 42", len(users), total)
	}
}

// ユーザー削除時にメニュー画像がストレージから削除されることを検証
func TestService_DeleteUser_CleansUpImages(t *testing.T) {
	deleted := []string{}
	menuRepo := &mockMenuRepo{
		listImagesByUserIDFn: func(ctx context.Context, userID string) ([]string, error) {
			return []string{"https://s/images/a.jpg", "https://s/images/b.jpg"}, nil
		},
	}
	st := &mockStorage{
		deleteFn: func(ctx context.Context, publicURL string) error {
			deleted = append(deleted, publicURL)
			return nil
		},
	}
	svc := newTestService(nil, nil, menuRepo, st)

	if err := svc.DeleteUser(context.Background(), "user-1"); err != nil {
		t.Fatalf("DeleteUser() error = %v", err)
	}
	if len(deleted) != 2 {
		t.Errorf("deleted %d images, want 2", len(deleted))
	}
}

// 画像削除の失敗がユーザー削除を妨げないことを検証
func TestService_DeleteUser_ImageDeleteFailureIgnored(t *testing.T) {
	menuRepo := &mockMenuRepo{
		listImagesByUserIDFn: func(ctx context.Context, userID string) ([]string, error) {
			return []string{"https://s/images/a.jpg"}, nil
		},
	}
	st := &mockStorage{
		deleteFn: func(ctx context.Context, publicURL string) error {
			return errors.New("storage unavailable")
		},
	}
	svc := newTestService(nil, nil, menuRepo, st)

	if err := svc.DeleteUser(context.Background(), "user-1"); err != nil {
		t.Fatalf("DeleteUser() error = %v", err)
	}
}

// 存在しないユーザーの削除がNOT_FOUNDになることを検証
func TestService_DeleteUser_NotFound(t *testing.T) {
	svc := newTestService(&mockUserRepo{
		deleteFn: func(ctx context.Context, id string) (bool, error) {
			return false, nil
		},
	}, nil, nil, nil)

	err := svc.DeleteUser(context.Background(), "missing")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeNotFound {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeNotFound)
	}
}
