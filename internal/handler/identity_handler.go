package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/yatai/internal/identity"
	"github.com/hitoshi/yatai/internal/model"
	"github.com/hitoshi/yatai/internal/validation"
)

// IdentityServiceInterface はidentityハンドラーが必要とするサービスインターフェース。
type IdentityServiceInterface interface {
	CreateIdentity(ctx context.Context, input identity.CreateIdentityInput) (*model.Identity, error)
	DeleteIdentity(ctx context.Context, id string) error
}

// IdentityHandler はidentity連携のHTTPハンドラー。
type IdentityHandler struct {
	service IdentityServiceInterface
	errs    *ErrorWriter
}

// NewIdentityHandler はIdentityHandlerを生成する。
func NewIdentityHandler(service IdentityServiceInterface, errs *ErrorWriter) *IdentityHandler {
	return &IdentityHandler{service: service, errs: errs}
}

// CreateIdentity はユーザーに新しいIdP紐付けを追加する。
// POST /api/v1/user-identities
func (h *IdentityHandler) CreateIdentity(w http.ResponseWriter, r *http.Request) {
	bag, apiErr := decodeJSONBody(r)
	if apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}

	values, apiErr := validation.CreateIdentityBody().Validate(bag)
	if apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}

	input := identity.CreateIdentityInput{
		UserID:         values["user_id"].(string),
		Provider:       values["provider"].(string),
		ProviderUserID: values["provider_user_id"].(string),
	}
	if email, ok := values["provider_email"].(string); ok {
		input.ProviderEmail = email
	}
	if token, ok := values["id_token"].(string); ok {
		input.IDToken = token
	}

	created, err := h.service.CreateIdentity(r.Context(), input)
	if err != nil {
		h.errs.HandleServiceError(w, err)
		return
	}
	writeData(w, http.StatusCreated, toIdentityResponse(created))
}

// DeleteIdentity は指定IDのidentityを削除する。
// DELETE /api/v1/user-identities/{id}
func (h *IdentityHandler) DeleteIdentity(w http.ResponseWriter, r *http.Request) {
	values, apiErr := validation.UUIDParam("id").Validate(map[string]any{
		"id": chi.URLParam(r, "id"),
	})
	if apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}

	if err := h.service.DeleteIdentity(r.Context(), values["id"].(string)); err != nil {
		h.errs.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
