// Package handler はHTTPハンドラーとルーティングを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/yatai/internal/model"
)

// paginationMeta はページネーション情報。
type paginationMeta struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total"`
}

// responseMeta はレスポンスのメタ情報。
type responseMeta struct {
	Pagination *paginationMeta `json:"pagination,omitempty"`
}

// dataEnvelope は成功レスポンスのエンベロープ。
type dataEnvelope struct {
	Data any           `json:"data"`
	Meta *responseMeta `json:"meta,omitempty"`
}

// errorBody はエラーレスポンスの本体。
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// errorEnvelope はエラーレスポンスのエンベロープ。
type errorEnvelope struct {
	Error errorBody `json:"error"`
}

// writeJSON は任意のペイロードをエンベロープなしで書き込む。
// ヘルスチェック等、エンベロープ形式を取らないエンドポイント用。
func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

// writeData は成功レスポンスをエンベロープ形式で書き込む。
func writeData(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(dataEnvelope{Data: data})
}

// writePaginatedData はページネーション付きの成功レスポンスを書き込む。
func writePaginatedData(w http.ResponseWriter, statusCode int, data any, limit, offset, total int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(dataEnvelope{
		Data: data,
		Meta: &responseMeta{
			Pagination: &paginationMeta{Limit: limit, Offset: offset, Total: total},
		},
	})
}

// writeAPIError はAPIErrorをエンベロープ形式で書き込む。
func writeAPIError(w http.ResponseWriter, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.StatusCode)
	json.NewEncoder(w).Encode(errorEnvelope{
		Error: errorBody{
			Code:    apiErr.Code,
			Message: apiErr.Message,
			Details: apiErr.Details,
		},
	})
}

// ErrorWriter はサービス層のエラーをHTTPレスポンスに変換する。
// development時は未分類エラーの内容を露出し、productionでは汎用メッセージに置換する。
type ErrorWriter struct {
	logger      *slog.Logger
	development bool
}

// NewErrorWriter はErrorWriterを生成する。
func NewErrorWriter(logger *slog.Logger, development bool) *ErrorWriter {
	return &ErrorWriter{logger: logger, development: development}
}

// HandleServiceError はサービス層から返されたエラーを適切なHTTPレスポンスに変換する。
// *model.APIErrorはそのままエンベロープに落とし、それ以外は500として扱う。
func (ew *ErrorWriter) HandleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIError(w, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	ew.logger.Error("internal server error", slog.String("error", err.Error()))

	message := "an unexpected error occurred"
	if ew.development {
		message = err.Error()
	}
	writeAPIError(w, model.NewInternalError(message))
}
