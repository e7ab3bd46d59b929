package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "hotelbook/pkg/errors"
	"hotelbook/pkg/query"
)

func TestStatusFor(t *testing.T) {
	tests := map[string]int{
		apperrors.CodeInvalidInput:     http.StatusBadRequest,
		apperrors.CodeNotFound:         http.StatusNotFound,
		apperrors.CodeUnauthorized:     http.StatusForbidden,
		apperrors.CodeUnauthenticated:  http.StatusUnauthorized,
		apperrors.CodeConflict:         http.StatusConflict,
		apperrors.CodeIntegrityFailure: http.StatusInternalServerError,
		apperrors.CodeInternal:         http.StatusInternalServerError,
		"SOMETHING_ELSE":               http.StatusInternalServerError,
	}
	for code, want := range tests {
		assert.Equal(t, want, StatusFor(code), code)
	}
}

func TestWriteError_HidesCause(t *testing.T) {
	rec := httptest.NewRecorder()
	err := fmt.Errorf("svc: %w", apperrors.IntegrityFailure("could not attach booking", fmt.Errorf("mongo: secret detail")))

	require.NoError(t, WriteError(rec, err))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, apperrors.CodeIntegrityFailure, body.Code)
	assert.NotContains(t, rec.Body.String(), "secret detail")
}

func TestWriteList_Envelope(t *testing.T) {
	rec := httptest.NewRecorder()
	page := query.NewPage(2, 1)
	res := &query.Result[string]{Items: []string{"b2"}, Total: 3, Pagination: page.Navigate(3)}

	require.NoError(t, WriteList(rec, res, "Bookings retrieved"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(1), body["count"])
	assert.Equal(t, float64(3), body["total"])
	assert.Equal(t, "Bookings retrieved", body["message"])
	pagination := body["pagination"].(map[string]any)
	assert.Contains(t, pagination, "next")
	assert.Contains(t, pagination, "prev")
}

func TestWriteList_EmptyIsArray(t *testing.T) {
	rec := httptest.NewRecorder()

	require.NoError(t, WriteList(rec, &query.Result[string]{Pagination: query.NewPage(1, 25).Navigate(0)}, ""))

	assert.Contains(t, rec.Body.String(), `"data":[]`)
	assert.NotContains(t, rec.Body.String(), "next")
}

func TestDecodeJSON(t *testing.T) {
	type body struct {
		Hotel string `json:"hotel"`
	}

	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{"valid", `{"hotel":"h1"}`, false},
		{"unknown field", `{"hotel":"h1","user":"u2"}`, true},
		{"empty", ``, true},
		{"trailing object", `{"hotel":"h1"}{"hotel":"h2"}`, true},
		{"malformed", `{"hotel":`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.payload))
			var b body
			err := DecodeJSON(r, &b)
			if tt.wantErr {
				assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "h1", b.Hotel)
		})
	}
}
