package handler

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/yatai/internal/menu"
	"github.com/hitoshi/yatai/internal/model"
	"github.com/hitoshi/yatai/internal/validation"
)

// MenuServiceInterface はメニューハンドラーが必要とするサービスインターフェース。
type MenuServiceInterface interface {
	CreateMenu(ctx context.Context, userID, businessID, text string, files []menu.UploadFile) (*model.Menu, error)
	GetMenu(ctx context.Context, userID, businessID, menuID string) (*model.Menu, error)
	ListMenus(ctx context.Context, userID, businessID string) ([]*model.Menu, error)
	UpdateMenu(ctx context.Context, userID, businessID, menuID string, input menu.UpdateMenuInput) (*model.Menu, error)
	DeleteMenu(ctx context.Context, userID, businessID, menuID string) error
}

// menuResponse はメニューのAPI表現。
type menuResponse struct {
	ID         string    `json:"id"`
	BusinessID string    `json:"business_id"`
	Menu       string    `json:"menu"`
	Images     []string  `json:"images"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func toMenuResponse(m *model.Menu) menuResponse {
	images := m.Images
	if images == nil {
		images = []string{}
	}
	return menuResponse{
		ID:         m.ID,
		BusinessID: m.BusinessID,
		Menu:       m.Menu,
		Images:     images,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

// MenuHandler はメニュー管理のHTTPハンドラー。
// 書き込み系はmultipart/form-dataを受け付け、画像は "images" フィールドで
// 最大3ファイル・各5MiBまで。
type MenuHandler struct {
	service     MenuServiceInterface
	errs        *ErrorWriter
	maxFileSize int64
}

// NewMenuHandler はMenuHandlerを生成する。
func NewMenuHandler(service MenuServiceInterface, errs *ErrorWriter, maxFileSize int64) *MenuHandler {
	return &MenuHandler{service: service, errs: errs, maxFileSize: maxFileSize}
}

// parseUploadFiles はmultipartフォームの "images" からアップロードファイルを読み取る。
// ファイルサイズの上限はHTTP層のここで検査する。
func (h *MenuHandler) parseUploadFiles(r *http.Request) ([]menu.UploadFile, *model.APIError) {
	// ボディ全体の上限: 画像3枚 + フォームテキスト分の余裕
	maxBody := h.maxFileSize*int64(model.MaxMenuImages) + 1<<20
	r.Body = http.MaxBytesReader(nil, r.Body, maxBody)

	if err := r.ParseMultipartForm(maxBody); err != nil {
		return nil, model.NewBadRequestError("request body must be valid multipart/form-data")
	}

	if r.MultipartForm == nil {
		return nil, nil
	}

	headers := r.MultipartForm.File["images"]
	files := make([]menu.UploadFile, 0, len(headers))
	for _, header := range headers {
		if header.Size > h.maxFileSize {
			return nil, model.NewBadRequestError(
				fmt.Sprintf("file %q exceeds the maximum size of %d bytes", header.Filename, h.maxFileSize))
		}
		data, apiErr := readMultipartFile(header)
		if apiErr != nil {
			return nil, apiErr
		}
		files = append(files, menu.UploadFile{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return files, nil
}

func readMultipartFile(header *multipart.FileHeader) ([]byte, *model.APIError) {
	f, err := header.Open()
	if err != nil {
		return nil, model.NewBadRequestError(fmt.Sprintf("failed to read file %q", header.Filename))
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, model.NewBadRequestError(fmt.Sprintf("failed to read file %q", header.Filename))
	}
	return data, nil
}

// businessIDParam はbusinessIdパスパラメータを検証して返す。
func businessIDParam(r *http.Request) (string, *model.APIError) {
	values, apiErr := validation.UUIDParam("businessId").Validate(map[string]any{
		"businessId": chi.URLParam(r, "businessId"),
	})
	if apiErr != nil {
		return "", apiErr
	}
	return values["businessId"].(string), nil
}

// menuParams はbusinessIdとmenuIdのパスパラメータを検証して返す。
func menuParams(r *http.Request) (businessID, menuID string, apiErr *model.APIError) {
	values, apiErr := validation.BusinessMenuParams().Validate(map[string]any{
		"businessId": chi.URLParam(r, "businessId"),
		"menuId":     chi.URLParam(r, "menuId"),
	})
	if apiErr != nil {
		return "", "", apiErr
	}
	return values["businessId"].(string), values["menuId"].(string), nil
}

// CreateMenu はメニューを画像付きで作成する。
// POST /api/v1/business/{businessId}/menu
func (h *MenuHandler) CreateMenu(w http.ResponseWriter, r *http.Request) {
	userID, ok := authenticatedUserID(w, r)
	if !ok {
		return
	}

	businessID, apiErr := businessIDParam(r)
	if apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}

	files, apiErr := h.parseUploadFiles(r)
	if apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}

	text := r.FormValue("menu")
	if text == "" {
		writeAPIError(w, model.NewValidationError([]model.FieldError{
			{Path: "body.menu", Message: "is required"},
		}))
		return
	}

	created, err := h.service.CreateMenu(r.Context(), userID, businessID, text, files)
	if err != nil {
		h.errs.HandleServiceError(w, err)
		return
	}
	writeData(w, http.StatusCreated, toMenuResponse(created))
}

// ListMenus はビジネスのメニュー一覧を返す。
// GET /api/v1/business/{businessId}/menu
func (h *MenuHandler) ListMenus(w http.ResponseWriter, r *http.Request) {
	userID, ok := authenticatedUserID(w, r)
	if !ok {
		return
	}

	businessID, apiErr := businessIDParam(r)
	if apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}

	menus, err := h.service.ListMenus(r.Context(), userID, businessID)
	if err != nil {
		h.errs.HandleServiceError(w, err)
		return
	}

	items := make([]menuResponse, len(menus))
	for i, m := range menus {
		items[i] = toMenuResponse(m)
	}
	writeData(w, http.StatusOK, items)
}

// GetMenu は指定メニューを返す。
// GET /api/v1/business/{businessId}/menu/{menuId}
func (h *MenuHandler) GetMenu(w http.ResponseWriter, r *http.Request) {
	userID, ok := authenticatedUserID(w, r)
	if !ok {
		return
	}

	businessID, menuID, apiErr := menuParams(r)
	if apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}

	m, err := h.service.GetMenu(r.Context(), userID, businessID, menuID)
	if err != nil {
		h.errs.HandleServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, toMenuResponse(m))
}

// UpdateMenu はメニューを更新する。
// POST /api/v1/business/{businessId}/menu/{menuId}
// replaceImages=true の場合、新しい画像が既存画像を置き換える。
func (h *MenuHandler) UpdateMenu(w http.ResponseWriter, r *http.Request) {
	userID, ok := authenticatedUserID(w, r)
	if !ok {
		return
	}

	businessID, menuID, apiErr := menuParams(r)
	if apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}

	files, apiErr := h.parseUploadFiles(r)
	if apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}

	input := menu.UpdateMenuInput{
		Files:         files,
		ReplaceImages: r.FormValue("replaceImages") == "true",
	}
	if text := r.FormValue("menu"); text != "" {
		input.Text = &text
	}

	updated, err := h.service.UpdateMenu(r.Context(), userID, businessID, menuID, input)
	if err != nil {
		h.errs.HandleServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, toMenuResponse(updated))
}

// DeleteMenu は指定メニューを削除する。
// DELETE /api/v1/business/{businessId}/menu/{menuId}
func (h *MenuHandler) DeleteMenu(w http.ResponseWriter, r *http.Request) {
	userID, ok := authenticatedUserID(w, r)
	if !ok {
		return
	}

	businessID, menuID, apiErr := menuParams(r)
	if apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}

	if err := h.service.DeleteMenu(r.Context(), userID, businessID, menuID); err != nil {
		h.errs.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
