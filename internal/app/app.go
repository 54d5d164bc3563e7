// Package app はアプリケーションの初期化と起動モードの制御を提供する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/yatai/internal/auth"
	"github.com/hitoshi/yatai/internal/business"
	"github.com/hitoshi/yatai/internal/config"
	"github.com/hitoshi/yatai/internal/database"
	"github.com/hitoshi/yatai/internal/handler"
	"github.com/hitoshi/yatai/internal/identity"
	"github.com/hitoshi/yatai/internal/logger"
	"github.com/hitoshi/yatai/internal/menu"
	"github.com/hitoshi/yatai/internal/metrics"
	"github.com/hitoshi/yatai/internal/middleware"
	"github.com/hitoshi/yatai/internal/repository"
	"github.com/hitoshi/yatai/internal/security"
	"github.com/hitoshi/yatai/internal/storage"
	"github.com/hitoshi/yatai/internal/user"
)

// serviceName はログとヘルスチェックに使用するサービス識別子。
const serviceName = "yatai-api"

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 設定読み込み前にログを使えるようにする
	logger.SetupDefault(w, false)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 開発環境ではDebugレベルまで出力する
	if cfg.IsDevelopment() {
		logger.SetupDefault(w, true)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "4000"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("service", serviceName),
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("env", cfg.AppEnv),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続とオブジェクトストレージクライアントを初期化し、全依存関係を
// ワイヤリングしてHTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. オブジェクトストレージクライアント
	store, err := storage.NewS3Storage(context.Background(), storage.Config{
		Endpoint:      cfg.StorageEndpoint,
		Region:        cfg.StorageRegion,
		Bucket:        cfg.StorageBucket,
		AccessKey:     cfg.StorageAccessKey,
		SecretKey:     cfg.StorageSecretKey,
		PublicBaseURL: cfg.StoragePublicBaseURL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize object storage: %w", err)
	}

	// 3. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	identityRepo := repository.NewPostgresIdentityRepo(db)
	businessRepo := repository.NewPostgresBusinessRepo(db)
	menuRepo := repository.NewPostgresMenuRepo(db)
	vendorRepo := repository.NewPostgresVendorRepo(db)

	// 4. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 5. セキュリティ・認証サービスの初期化
	sanitizer := security.NewTextSanitizer()
	tokenVerifier := auth.NewJWTVerifier([]byte(cfg.AuthJWTSecret), cfg.AuthIssuer)
	firebaseVerifier := auth.NewFirebaseVerifier(cfg.FirebaseProjectID, nil)

	// 6. ドメインサービスの初期化
	userService := user.NewService(userRepo, identityRepo, menuRepo, store, sanitizer, slog.Default())
	identityService := identity.NewService(identityRepo, userRepo, firebaseVerifier)
	businessService := business.NewService(businessRepo, sanitizer)
	menuService := menu.NewService(menuRepo, businessRepo, store, sanitizer, collector, slog.Default())

	// 7. レート制限の初期化
	// configのRateLimitGeneralはreq/min単位なのでreq/secに変換する
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	if cfg.RateLimitGeneral > 0 {
		rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
		rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	}
	limiter := middleware.NewRateLimiter(rateLimiterCfg, slog.Default())
	defer limiter.Stop()

	// 8. ルーターの構築
	router := handler.NewRouter(&handler.RouterDeps{
		TokenVerifier:     tokenVerifier,
		ProfileEnsurer:    userService,
		RateLimiter:       limiter,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,

		UserService:     userService,
		IdentityService: identityService,
		BusinessService: businessService,
		MenuService:     menuService,
		VendorRepo:      vendorRepo,

		Errs:          handler.NewErrorWriter(slog.Default(), cfg.IsDevelopment()),
		Logger:        slog.Default(),
		Collector:     collector,
		Gatherer:      registry,
		HealthHandler: handler.NewHealthHandler(serviceName, cfg.AppEnv, db.PingContext),

		MaxUploadSize: cfg.MaxUploadSize,
	})

	// 9. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
