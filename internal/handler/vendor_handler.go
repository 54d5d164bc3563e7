package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/yatai/internal/model"
	"github.com/hitoshi/yatai/internal/repository"
)

// vendorResponse は屋台ディレクトリエントリのAPI表現。
type vendorResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Cuisine     string  `json:"cuisine"`
	Area        string  `json:"area"`
	Rating      float64 `json:"rating"`
	IsOpen      bool    `json:"is_open"`
	PriceRange  string  `json:"price_range"`
	Description string  `json:"description,omitempty"`
	PhotoURL    string  `json:"photo_url,omitempty"`
}

func toVendorResponse(v *model.Vendor) vendorResponse {
	return vendorResponse{
		ID:          v.ID,
		Name:        v.Name,
		Cuisine:     v.Cuisine,
		Area:        v.Area,
		Rating:      v.Rating,
		IsOpen:      v.IsOpen,
		PriceRange:  v.PriceRange,
		Description: v.Description,
		PhotoURL:    v.PhotoURL,
	}
}

// VendorHandler は屋台ディレクトリの読み取りハンドラー。
// キュレーションデータの一覧のみでCRUDは持たない。
type VendorHandler struct {
	repo repository.VendorRepository
	errs *ErrorWriter
}

// NewVendorHandler はVendorHandlerを生成する。
func NewVendorHandler(repo repository.VendorRepository, errs *ErrorWriter) *VendorHandler {
	return &VendorHandler{repo: repo, errs: errs}
}

// ListVendors は屋台ディレクトリの全件を返す。
// GET /api/v1/vendors
func (h *VendorHandler) ListVendors(w http.ResponseWriter, r *http.Request) {
	vendors, err := h.repo.List(r.Context())
	if err != nil {
		h.errs.HandleServiceError(w, err)
		return
	}

	items := make([]vendorResponse, len(vendors))
	for i, v := range vendors {
		items[i] = toVendorResponse(v)
	}
	writeData(w, http.StatusOK, items)
}

// healthResponse はヘルスチェックのレスポンス。
type healthResponse struct {
	OK          bool      `json:"ok"`
	Service     string    `json:"service"`
	Timestamp   time.Time `json:"timestamp"`
	Environment string    `json:"environment"`
}

// HealthHandler はヘルスチェックエンドポイントのハンドラー。
type HealthHandler struct {
	serviceName string
	environment string
	pinger      func(ctx context.Context) error
}

// NewHealthHandler はHealthHandlerを生成する。
// pingerはデータベース等の依存先の疎通確認関数。nilの場合は常に健全とみなす。
func NewHealthHandler(serviceName, environment string, pinger func(ctx context.Context) error) *HealthHandler {
	return &HealthHandler{serviceName: serviceName, environment: environment, pinger: pinger}
}

// Health はサービスの稼働状態を返す。
// GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		OK:          true,
		Service:     h.serviceName,
		Timestamp:   time.Now().UTC(),
		Environment: h.environment,
	}
	status := http.StatusOK
	if h.pinger != nil {
		if err := h.pinger(r.Context()); err != nil {
			resp.OK = false
			status = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, status, resp)
}
