package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/yatai/internal/auth"
	"github.com/hitoshi/yatai/internal/model"
)

// --- モック ---

type mockVerifier struct {
	verifyFn func(tokenString string) (*auth.TokenClaims, error)
}

func (m *mockVerifier) Verify(tokenString string) (*auth.TokenClaims, error) {
	return m.verifyFn(tokenString)
}

type mockEnsurer struct {
	ensureFn func(ctx context.Context, userID, name string) error
	calls    int
}

func (m *mockEnsurer) EnsureProfile(ctx context.Context, userID, name string) error {
	m.calls++
	if m.ensureFn != nil {
		return m.ensureFn(ctx, userID, name)
	}
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- テスト ---

// 有効なトークンでユーザーIDがコンテキストに注入されることを検証
func TestAuthMiddleware_ValidToken(t *testing.T) {
	verifier := &mockVerifier{
		verifyFn: func(tokenString string) (*auth.TokenClaims, error) {
			if tokenString != "valid-token" {
				t.Errorf("token = %q, want %q", tokenString, "valid-token")
			}
			return &auth.TokenClaims{UserID: "user-1", Name: "Taro"}, nil
		},
	}
	ensurer := &mockEnsurer{}
	mw := NewAuthMiddleware(verifier, ensurer, discardLogger())

	var gotUserID string
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID, _ = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotUserID != "user-1" {
		t.Errorf("userID = %q, want %q", gotUserID, "user-1")
	}
	if ensurer.calls != 1 {
		t.Errorf("EnsureProfile calls = %d, want 1", ensurer.calls)
	}
}

// Authorizationヘッダーなしで401が返ることを検証
func TestAuthMiddleware_MissingHeader(t *testing.T) {
	mw := NewAuthMiddleware(&mockVerifier{}, &mockEnsurer{}, discardLogger())
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}

	var body map[string]map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse error body: %v", err)
	}
	if body["error"]["code"] != model.ErrCodeUnauthorized {
		t.Errorf("error code = %q, want %q", body["error"]["code"], model.ErrCodeUnauthorized)
	}
}

// Bearer以外のスキームで401が返ることを検証
func TestAuthMiddleware_NonBearerScheme(t *testing.T) {
	mw := NewAuthMiddleware(&mockVerifier{}, &mockEnsurer{}, discardLogger())
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

// トークン検証失敗で401が返ることを検証
func TestAuthMiddleware_InvalidToken(t *testing.T) {
	verifier := &mockVerifier{
		verifyFn: func(tokenString string) (*auth.TokenClaims, error) {
			return nil, model.NewUnauthorizedError("invalid token")
		},
	}
	mw := NewAuthMiddleware(verifier, &mockEnsurer{}, discardLogger())
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
	req.Header.Set("Authorization", "Bearer bad-token")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

// プロフィール作成失敗で500が返ることを検証
func TestAuthMiddleware_EnsureProfileFailure(t *testing.T) {
	verifier := &mockVerifier{
		verifyFn: func(tokenString string) (*auth.TokenClaims, error) {
			return &auth.TokenClaims{UserID: "user-1"}, nil
		},
	}
	ensurer := &mockEnsurer{
		ensureFn: func(ctx context.Context, userID, name string) error {
			return errors.New("db down")
		},
	}
	mw := NewAuthMiddleware(verifier, ensurer, discardLogger())
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

// UserIDFromContextが未認証コンテキストでエラーを返すことを検証
func TestUserIDFromContext_Missing(t *testing.T) {
	if _, err := UserIDFromContext(context.Background()); err == nil {
		t.Error("expected error for missing user ID")
	}
}

// ContextWithUserIDで注入した値が取得できることを検証
func TestContextWithUserID_RoundTrip(t *testing.T) {
	ctx := ContextWithUserID(context.Background(), "user-9")
	userID, err := UserIDFromContext(ctx)
	if err != nil {
		t.Fatalf("UserIDFromContext() error = %v", err)
	}
	if userID != "user-9" {
		t.Errorf("userID = %q, want %q", userID, "user-9")
	}
}
