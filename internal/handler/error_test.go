package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/promoforge/promoforge/internal/domain"
)

func TestErrorCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{domain.EINVALID, http.StatusBadRequest},
		{domain.EUNAUTHORIZED, http.StatusUnauthorized},
		{domain.EQUOTA, http.StatusPaymentRequired},
		{domain.EPAYMENT, http.StatusPaymentRequired},
		{domain.EFORBIDDEN, http.StatusForbidden},
		{domain.ENOTFOUND, http.StatusNotFound},
		{domain.ECONFLICT, http.StatusConflict},
		{domain.ERATELIMIT, http.StatusTooManyRequests},
		{domain.EUNAVAILABLE, http.StatusServiceUnavailable},
		{domain.EINTERNAL, http.StatusInternalServerError},
		{"bogus", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorCodeToHTTPStatus(tt.code))
		})
	}
}

func TestErrorResponseQuotaExhausted(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/generate/copy", nil)

	err := domain.QuotaExhausted("generation.copy", domain.CategoryCopies, 15, 15)
	ErrorResponse(rec, req, testLogger(), err)

	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), domain.EQUOTA)
	assert.Contains(t, rec.Body.String(), "15 of 15")
}

func TestErrorResponseHidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/usage", nil)

	err := domain.Internal(assert.AnError, "quota.usage", "Failed to load usage record")
	ErrorResponse(rec, req, testLogger(), err)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Failed to load usage record")
	assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
}
