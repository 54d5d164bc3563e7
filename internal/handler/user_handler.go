package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/yatai/internal/model"
	"github.com/hitoshi/yatai/internal/user"
	"github.com/hitoshi/yatai/internal/validation"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	FacebookLogin(ctx context.Context, input user.FacebookLoginInput) (*model.FacebookLoginResult, error)
	GetUser(ctx context.Context, id string) (*model.User, error)
	ListUsers(ctx context.Context, limit, offset int) ([]*model.User, int, error)
	UpdateUser(ctx context.Context, id, name string) (*model.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// userResponse はユーザーのAPI表現。
type userResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Name:      u.Name,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// identityResponse はidentityのAPI表現。
type identityResponse struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Provider       string    `json:"provider"`
	ProviderUserID string    `json:"provider_user_id"`
	ProviderEmail  string    `json:"provider_email,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toIdentityResponse(identity *model.Identity) identityResponse {
	return identityResponse{
		ID:             identity.ID,
		UserID:         identity.UserID,
		Provider:       identity.Provider,
		ProviderUserID: identity.ProviderUserID,
		ProviderEmail:  identity.ProviderEmail,
		CreatedAt:      identity.CreatedAt,
		UpdatedAt:      identity.UpdatedAt,
	}
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
	errs    *ErrorWriter
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface, errs *ErrorWriter) *UserHandler {
	return &UserHandler{service: service, errs: errs}
}

// decodeJSONBody はリクエストボディをmapとして読み取る。
// 不正なJSONはBAD_REQUESTになる。
func decodeJSONBody(r *http.Request) (map[string]any, *model.APIError) {
	var bag map[string]any
	if err := json.NewDecoder(r.Body).Decode(&bag); err != nil {
		return nil, model.NewBadRequestError("request body must be valid JSON")
	}
	return bag, nil
}

// FacebookLogin はソーシャルログインを処理する。
// POST /api/v1/users/facebook
// 新規ユーザー作成時は201、既存ユーザーへのログイン時は200を返す。
func (h *UserHandler) FacebookLogin(w http.ResponseWriter, r *http.Request) {
	bag, apiErr := decodeJSONBody(r)
	if apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}

	values, apiErr := validation.FacebookLoginBody().Validate(bag)
	if apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}

	input := user.FacebookLoginInput{
		Name:           values["name"].(string),
		Provider:       values["provider"].(string),
		ProviderUserID: values["provider_user_id"].(string),
	}
	if email, ok := values["provider_email"].(string); ok {
		input.ProviderEmail = email
	}

	result, err := h.service.FacebookLogin(r.Context(), input)
	if err != nil {
		h.errs.HandleServiceError(w, err)
		return
	}

	statusCode := http.StatusOK
	if result.IsNewUser {
		statusCode = http.StatusCreated
	}
	writeData(w, statusCode, map[string]any{
		"user":        toUserResponse(result.User),
		"identity":    toIdentityResponse(result.Identity),
		"is_new_user": result.IsNewUser,
	})
}

// ListUsers はユーザー一覧をページネーション付きで返す。
// GET /api/v1/users
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	bag := map[string]any{}
	if v := r.URL.Query().Get("limit"); v != "" {
		bag["limit"] = v
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		bag["offset"] = v
	}

	values, apiErr := validation.PaginationQuery().Validate(bag)
	if apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}
	limit := values["limit"].(int)
	offset := values["offset"].(int)

	users, total, err := h.service.ListUsers(r.Context(), limit, offset)
	if err != nil {
		h.errs.HandleServiceError(w, err)
		return
	}

	items := make([]userResponse, len(users))
	for i, u := range users {
		items[i] = toUserResponse(u)
	}
	writePaginatedData(w, http.StatusOK, items, limit, offset, total)
}

// GetUser は指定IDのユーザーを返す。
// GET /api/v1/users/{id}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	values, apiErr := validation.UUIDParam("id").Validate(map[string]any{
		"id": chi.URLParam(r, "id"),
	})
	if apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}

	u, err := h.service.GetUser(r.Context(), values["id"].(string))
	if err != nil {
		h.errs.HandleServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, toUserResponse(u))
}

// UpdateUser は指定IDのユーザー名を更新する。
// POST /api/v1/users/{id}
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	params, apiErr := validation.UUIDParam("id").Validate(map[string]any{
		"id": chi.URLParam(r, "id"),
	})
	if apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}

	bag, apiErr := decodeJSONBody(r)
	if apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}
	values, apiErr := validation.UpdateUserBody().Validate(bag)
	if apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}

	u, err := h.service.UpdateUser(r.Context(), params["id"].(string), values["name"].(string))
	if err != nil {
		h.errs.HandleServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, toUserResponse(u))
}

// DeleteUser は指定IDのユーザーを削除する。
// DELETE /api/v1/users/{id}
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	values, apiErr := validation.UUIDParam("id").Validate(map[string]any{
		"id": chi.URLParam(r, "id"),
	})
	if apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}

	if err := h.service.DeleteUser(r.Context(), values["id"].(string)); err != nil {
		h.errs.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
