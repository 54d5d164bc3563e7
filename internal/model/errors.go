package model

import (
	"fmt"
	"net/http"
)

// APIError は統一エラーフォーマットを表す。
// HTTP境界を越えるすべての失敗は、レスポンス層に到達する前に
// いずれかのエラー種別へ正確に1回分類される。
type APIError struct {
	StatusCode int    // HTTPステータスコード
	Code       string // 機械可読なエラーコード
	Message    string // 人間可読なメッセージ
	Details    any    // 構造化された追加情報（バリデーション違反一覧等）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeConflict           = "CONFLICT"
	ErrCodeInternal           = "INTERNAL_ERROR"
	ErrCodeNotImplemented     = "NOT_IMPLEMENTED"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// FieldError はバリデーション違反1件を表す。
// Pathはドット連結のフィールドパス（例: "body.longitude"）。
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// NewBadRequestError は400 Bad Requestエラーを生成する。
func NewBadRequestError(message string) *APIError {
	return &APIError{
		StatusCode: http.StatusBadRequest,
		Code:       ErrCodeBadRequest,
		Message:    message,
	}
}

// NewValidationError はバリデーション失敗エラーを生成する。
// detailsには違反フィールドごとのFieldErrorを順序付きで渡す。
func NewValidationError(details []FieldError) *APIError {
	return &APIError{
		StatusCode: http.StatusBadRequest,
		Code:       ErrCodeValidation,
		Message:    "Validation failed",
		Details:    details,
	}
}

// NewUnauthorizedError は401 Unauthorizedエラーを生成する。
func NewUnauthorizedError(message string) *APIError {
	return &APIError{
		StatusCode: http.StatusUnauthorized,
		Code:       ErrCodeUnauthorized,
		Message:    message,
	}
}

// NewForbiddenError は403 Forbiddenエラーを生成する。
func NewForbiddenError(message string) *APIError {
	return &APIError{
		StatusCode: http.StatusForbidden,
		Code:       ErrCodeForbidden,
		Message:    message,
	}
}

// NewNotFoundError は404 Not Foundエラーを生成する。
// 所有者スコープのクエリでは、行が存在しないのか他人の行なのかを
// 区別せずこのエラーを返す（存在情報の漏洩防止）。
func NewNotFoundError(message string) *APIError {
	return &APIError{
		StatusCode: http.StatusNotFound,
		Code:       ErrCodeNotFound,
		Message:    message,
	}
}

// NewConflictError は409 Conflictエラーを生成する。
// ストアの一意制約違反がここに分類される。
func NewConflictError(message string) *APIError {
	return &APIError{
		StatusCode: http.StatusConflict,
		Code:       ErrCodeConflict,
		Message:    message,
	}
}

// NewInternalError は500 Internal Server Errorエラーを生成する。
// 分類されなかった失敗はすべてこのエラーになる。
func NewInternalError(message string) *APIError {
	return &APIError{
		StatusCode: http.StatusInternalServerError,
		Code:       ErrCodeInternal,
		Message:    message,
	}
}

// NewNotImplementedError は501 Not Implementedエラーを生成する。
func NewNotImplementedError(message string) *APIError {
	return &APIError{
		StatusCode: http.StatusNotImplemented,
		Code:       ErrCodeNotImplemented,
		Message:    message,
	}
}

// NewServiceUnavailableError は503 Service Unavailableエラーを生成する。
func NewServiceUnavailableError(message string) *APIError {
	return &APIError{
		StatusCode: http.StatusServiceUnavailable,
		Code:       ErrCodeServiceUnavailable,
		Message:    message,
	}
}
