package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/yatai/internal/business"
	"github.com/hitoshi/yatai/internal/middleware"
	"github.com/hitoshi/yatai/internal/model"
	"github.com/hitoshi/yatai/internal/validation"
)

// BusinessServiceInterface はビジネスハンドラーが必要とするサービスインターフェース。
type BusinessServiceInterface interface {
	CreateBusiness(ctx context.Context, userID string, input business.CreateBusinessInput) (*model.Business, error)
	GetBusiness(ctx context.Context, id, userID string) (*model.Business, error)
	ListBusinesses(ctx context.Context, userID string) ([]*model.Business, error)
	UpdateBusiness(ctx context.Context, id, userID string, input business.UpdateBusinessInput) (*model.Business, error)
	DeleteBusiness(ctx context.Context, id, userID string) error
}

// businessResponse はビジネスのAPI表現。
type businessResponse struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Image       string    `json:"image,omitempty"`
	Longitude   float64   `json:"longitude"`
	Latitude    float64   `json:"latitude"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toBusinessResponse(b *model.Business) businessResponse {
	return businessResponse{
		ID:          b.ID,
		UserID:      b.UserID,
		Name:        b.Name,
		Description: b.Description,
		Image:       b.Image,
		Longitude:   b.Longitude,
		Latitude:    b.Latitude,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

// BusinessHandler はビジネス管理のHTTPハンドラー。
// 全エンドポイントが認証必須で、操作は認証済みユーザーの所有リソースに限られる。
type BusinessHandler struct {
	service BusinessServiceInterface
	errs    *ErrorWriter
}

// NewBusinessHandler はBusinessHandlerを生成する。
func NewBusinessHandler(service BusinessServiceInterface, errs *ErrorWriter) *BusinessHandler {
	return &BusinessHandler{service: service, errs: errs}
}

// authenticatedUserID はコンテキストから認証済みユーザーIDを取り出す。
func authenticatedUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIError(w, model.NewUnauthorizedError("authentication required"))
		return "", false
	}
	return userID, true
}

// CreateBusiness はビジネスを作成する。
// POST /api/v1/business
func (h *BusinessHandler) CreateBusiness(w http.ResponseWriter, r *http.Request) {
	userID, ok := authenticatedUserID(w, r)
	if !ok {
		return
	}

	bag, apiErr := decodeJSONBody(r)
	if apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}
	values, apiErr := validation.CreateBusinessBody().Validate(bag)
	if apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}

	input := business.CreateBusinessInput{
		Name:      values["name"].(string),
		Longitude: values["longitude"].(float64),
		Latitude:  values["latitude"].(float64),
	}
	if description, ok := values["description"].(string); ok {
		input.Description = description
	}
	if image, ok := values["image"].(string); ok {
		input.Image = image
	}

	created, err := h.service.CreateBusiness(r.Context(), userID, input)
	if err != nil {
		h.errs.HandleServiceError(w, err)
		return
	}
	writeData(w, http.StatusCreated, toBusinessResponse(created))
}

// ListBusinesses は認証済みユーザーのビジネス一覧を返す。
// GET /api/v1/business
func (h *BusinessHandler) ListBusinesses(w http.ResponseWriter, r *http.Request) {
	userID, ok := authenticatedUserID(w, r)
	if !ok {
		return
	}

	businesses, err := h.service.ListBusinesses(r.Context(), userID)
	if err != nil {
		h.errs.HandleServiceError(w, err)
		return
	}

	items := make([]businessResponse, len(businesses))
	for i, b := range businesses {
		items[i] = toBusinessResponse(b)
	}
	writeData(w, http.StatusOK, items)
}

// GetBusiness は所有するビジネスを取得する。
// GET /api/v1/business/{businessId}
func (h *BusinessHandler) GetBusiness(w http.ResponseWriter, r *http.Request) {
	userID, ok := authenticatedUserID(w, r)
	if !ok {
		return
	}

	businessID, apiErr := businessIDParam(r)
	if apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}

	b, err := h.service.GetBusiness(r.Context(), businessID, userID)
	if err != nil {
		h.errs.HandleServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, toBusinessResponse(b))
}

// UpdateBusiness は所有するビジネスを部分更新する。
// PUT /api/v1/business/{businessId}
func (h *BusinessHandler) UpdateBusiness(w http.ResponseWriter, r *http.Request) {
	userID, ok := authenticatedUserID(w, r)
	if !ok {
		return
	}

	businessID, apiErr := businessIDParam(r)
	if apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}

	bag, apiErr := decodeJSONBody(r)
	if apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}
	values, apiErr := validation.UpdateBusinessBody().Validate(bag)
	if apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}

	input := business.UpdateBusinessInput{}
	if v, ok := values["name"].(string); ok {
		input.Name = &v
	}
	if v, ok := values["description"].(string); ok {
		input.Description = &v
	}
	if v, ok := values["image"].(string); ok {
		input.Image = &v
	}
	if v, ok := values["longitude"].(float64); ok {
		input.Longitude = &v
	}
	if v, ok := values["latitude"].(float64); ok {
		input.Latitude = &v
	}

	updated, err := h.service.UpdateBusiness(r.Context(), businessID, userID, input)
	if err != nil {
		h.errs.HandleServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, toBusinessResponse(updated))
}

// DeleteBusiness は所有するビジネスを削除する。
// DELETE /api/v1/business/{businessId}
func (h *BusinessHandler) DeleteBusiness(w http.ResponseWriter, r *http.Request) {
	userID, ok := authenticatedUserID(w, r)
	if !ok {
		return
	}

	businessID, apiErr := businessIDParam(r)
	if apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}

	if err := h.service.DeleteBusiness(r.Context(), businessID, userID); err != nil {
		h.errs.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
