package http

import (
	"encoding/json"
	"net/http"

	apperrors "hotelbook/pkg/errors"
	"hotelbook/pkg/query"
)

type ItemResponse struct {
	Data    any    `json:"data"`
	Message string `json:"message"`
}

type ListResponse struct {
	Data       any              `json:"data"`
	Count      int              `json:"count"`
	Total      int64            `json:"total"`
	Pagination query.Pagination `json:"pagination"`
	Message    string           `json:"message"`
}

// StatusFor maps an error code to its HTTP status.
func StatusFor(code string) int {
	switch code {
	case apperrors.CodeInvalidInput:
		return http.StatusBadRequest
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	case apperrors.CodeUnauthorized:
		return http.StatusForbidden
	case apperrors.CodeUnauthenticated:
		return http.StatusUnauthorized
	case apperrors.CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// WriteJSON returns the encode error so the caller can log it; nothing can
// be recovered once the header is written.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteError renders err as {code, message, details?}. Internal causes are
// never exposed.
func WriteError(w http.ResponseWriter, err error) error {
	appErr := apperrors.AsAppError(err)
	return WriteJSON(w, StatusFor(appErr.Code), appErr.Response())
}

func WriteItem(w http.ResponseWriter, statusCode int, data any, message string) error {
	return WriteJSON(w, statusCode, ItemResponse{Data: data, Message: message})
}

func WriteList[T any](w http.ResponseWriter, res *query.Result[T], message string) error {
	items := res.Items
	if items == nil {
		items = []T{}
	}
	return WriteJSON(w, http.StatusOK, ListResponse{
		Data:       items,
		Count:      len(items),
		Total:      res.Total,
		Pagination: res.Pagination,
		Message:    message,
	})
}

func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
