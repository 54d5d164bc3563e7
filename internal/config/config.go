// Package config は環境変数ベースの設定読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Auth
	AuthJWTSecret string // マネージド認証サービスのJWT署名シークレット
	AuthIssuer    string

	// Firebase（未設定の場合、IDトークン検証はNotImplementedになる）
	FirebaseProjectID string

	// Storage（S3互換オブジェクトストレージ）
	StorageEndpoint      string
	StorageRegion        string
	StorageBucket        string
	StorageAccessKey     string
	StorageSecretKey     string
	StoragePublicBaseURL string // 公開URLのベース。未設定時はエンドポイントとバケットから導出する

	// Upload
	MaxUploadSize int64 // 画像1ファイルあたりの上限バイト数

	// Rate Limit
	RateLimitGeneral int // 認証済みAPI全般のレート（req/min/user）

	// Server
	ServerPort string
	AppEnv     string

	// CORS
	CORSAllowedOrigin string
}

// IsDevelopment は開発環境向け設定かどうかを返す。
// 開発環境では内部エラーの詳細がレスポンスに含まれる。
func (c *Config) IsDevelopment() bool {
	return c.AppEnv != "production"
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返し、プロセスは起動に失敗する。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.AuthJWTSecret = os.Getenv("AUTH_JWT_SECRET")
	if cfg.AuthJWTSecret == "" {
		missing = append(missing, "AUTH_JWT_SECRET")
	}

	cfg.StorageEndpoint = os.Getenv("STORAGE_ENDPOINT")
	if cfg.StorageEndpoint == "" {
		missing = append(missing, "STORAGE_ENDPOINT")
	}

	cfg.StorageBucket = os.Getenv("STORAGE_BUCKET")
	if cfg.StorageBucket == "" {
		missing = append(missing, "STORAGE_BUCKET")
	}

	cfg.StorageAccessKey = os.Getenv("STORAGE_ACCESS_KEY")
	if cfg.StorageAccessKey == "" {
		missing = append(missing, "STORAGE_ACCESS_KEY")
	}

	cfg.StorageSecretKey = os.Getenv("STORAGE_SECRET_KEY")
	if cfg.StorageSecretKey == "" {
		missing = append(missing, "STORAGE_SECRET_KEY")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.AuthIssuer = getEnvString("AUTH_ISSUER", "")
	cfg.FirebaseProjectID = getEnvString("FIREBASE_PROJECT_ID", "")
	cfg.StorageRegion = getEnvString("STORAGE_REGION", "us-east-1")
	cfg.StoragePublicBaseURL = getEnvString("STORAGE_PUBLIC_BASE_URL",
		strings.TrimRight(cfg.StorageEndpoint, "/")+"/"+cfg.StorageBucket)
	cfg.MaxUploadSize = getEnvInt64("MAX_UPLOAD_SIZE", 5*1024*1024)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.ServerPort = getEnvString("SERVER_PORT", "4000")
	cfg.AppEnv = getEnvString("APP_ENV", "development")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "*")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}
