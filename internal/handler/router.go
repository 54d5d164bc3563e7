package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/yatai/internal/auth"
	"github.com/hitoshi/yatai/internal/metrics"
	"github.com/hitoshi/yatai/internal/middleware"
	"github.com/hitoshi/yatai/internal/repository"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	TokenVerifier     auth.TokenVerifier
	ProfileEnsurer    middleware.ProfileEnsurer
	RateLimiter       *middleware.RateLimiter
	CORSAllowedOrigin string

	// サービス
	UserService     UserServiceInterface
	IdentityService IdentityServiceInterface
	BusinessService BusinessServiceInterface
	MenuService     MenuServiceInterface
	VendorRepo      repository.VendorRepository

	// 運用
	Errs          *ErrorWriter
	Logger        *slog.Logger
	Collector     metrics.MetricsCollector
	Gatherer      prometheus.Gatherer
	HealthHandler *HealthHandler

	// Upload
	MaxUploadSize int64
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging
//
// ビジネス・メニュー系のルートのみ認証（Bearer）とレート制限の対象。
// ユーザー・連携ID・屋台検索・ヘルスチェックは公開ルート。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware(deps.Logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.Collector))

	userHandler := NewUserHandler(deps.UserService, deps.Errs)
	identityHandler := NewIdentityHandler(deps.IdentityService, deps.Errs)
	businessHandler := NewBusinessHandler(deps.BusinessService, deps.Errs)
	menuHandler := NewMenuHandler(deps.MenuService, deps.Errs, deps.MaxUploadSize)
	vendorHandler := NewVendorHandler(deps.VendorRepo, deps.Errs)

	// --- 公開ルート ---

	r.Get("/health", deps.HealthHandler.Health)
	r.Handle("/metrics", metrics.Handler(deps.Gatherer))

	r.Route("/api/v1", func(r chi.Router) {
		// ユーザー管理
		r.Route("/users", func(r chi.Router) {
			r.Post("/facebook", userHandler.FacebookLogin)
			r.Get("/", userHandler.ListUsers)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", userHandler.GetUser)
				r.Post("/", userHandler.UpdateUser)
				r.Delete("/", userHandler.DeleteUser)
			})
		})

		// 認証連携ID管理
		r.Route("/user-identities", func(r chi.Router) {
			r.Post("/", identityHandler.CreateIdentity)
			r.Delete("/{id}", identityHandler.DeleteIdentity)
		})

		// 屋台ディレクトリ（読み取り専用）
		r.Get("/vendors", vendorHandler.ListVendors)

		// --- 認証が必要なルート ---
		// ミドルウェアスタック: Auth(Bearer) → RateLimit(General)
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewAuthMiddleware(deps.TokenVerifier, deps.ProfileEnsurer, deps.Logger))
			r.Use(deps.RateLimiter.GeneralMiddleware())

			// ビジネス管理
			r.Route("/business", func(r chi.Router) {
				r.Post("/", businessHandler.CreateBusiness)
				r.Get("/", businessHandler.ListBusinesses)

				r.Route("/{businessId}", func(r chi.Router) {
					r.Get("/", businessHandler.GetBusiness)
					r.Put("/", businessHandler.UpdateBusiness)
					r.Delete("/", businessHandler.DeleteBusiness)

					// メニュー管理（画像アップロードを伴うPOSTはアップロード専用レート制限を追加）
					r.Route("/menu", func(r chi.Router) {
						r.With(deps.RateLimiter.UploadMiddleware()).Post("/", menuHandler.CreateMenu)
						r.Get("/", menuHandler.ListMenus)

						r.Route("/{menuId}", func(r chi.Router) {
							r.With(deps.RateLimiter.UploadMiddleware()).Post("/", menuHandler.UpdateMenu)
							r.Get("/", menuHandler.GetMenu)
							r.Delete("/", menuHandler.DeleteMenu)
						})
					})
				})
			})
		})
	})

	return r
}
