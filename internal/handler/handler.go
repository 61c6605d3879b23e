// Package handler contains the HTTP handlers for the PromoForge API.
//
// Every handler speaks JSON. Handlers decode and validate the request,
// call a service, and render the result; business rules live in the
// service layer.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/promoforge/promoforge/internal/domain"
)

// maxRequestBody caps JSON request bodies. Image refinement payloads
// carry base64 image data, so the cap is generous.
const maxRequestBody = 15 << 20

// respondJSON writes a JSON response with the given status.
func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// decodeJSON decodes the request body into dst, rejecting unknown
// fields and oversized bodies.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) || errors.Is(err, io.ErrUnexpectedEOF) {
			return domain.Invalid("", "Request body is too large or truncated")
		}
		return domain.Invalid("", "Request body must be valid JSON")
	}
	return nil
}
