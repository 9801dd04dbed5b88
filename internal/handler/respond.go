package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/content"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/session"
	"github.com/xenking/storefront/internal/validation"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Code: status, Message: message})
}

// decode reads a JSON body into v, rejecting unknown fields and trailing
// data.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		writeMessage(w, http.StatusBadRequest, "invalid request body: trailing data")
		return false
	}
	return true
}

// writeError maps domain errors to statuses. Anything unrecognized is
// logged and reported as a 500 without details.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr      *validation.Error
		stockErr  *cart.InsufficientStockError
		missing   *order.ProductNotFoundError
		loadErr   *session.LoadError
		status    int
		fieldName string
	)
	switch {
	case errors.As(err, &verr):
		status, fieldName = http.StatusUnprocessableEntity, verr.Field
	case errors.As(err, &stockErr):
		status = http.StatusConflict
	case errors.As(err, &missing):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, order.ErrEmptyCart),
		errors.Is(err, order.ErrInvalidStatus),
		errors.Is(err, content.ErrDuplicateSlide):
		status = http.StatusBadRequest
	case errors.Is(err, product.ErrNotFound),
		errors.Is(err, content.ErrSlideNotFound):
		status = http.StatusNotFound
	case errors.Is(err, content.ErrSettingsNotLoaded),
		errors.As(err, &loadErr):
		status = http.StatusServiceUnavailable
	case errors.Is(err, auth.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, auth.ErrUnauthorized):
		status = http.StatusUnauthorized
	default:
		zctx.From(r.Context()).Error("Request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeMessage(w, http.StatusInternalServerError, "internal server error")
		return
	}

	msg := err.Error()
	switch {
	case stockErr != nil:
		msg = stockErr.Error()
	case missing != nil:
		msg = missing.Error()
	case status == http.StatusUnauthorized:
		msg = auth.ErrUnauthorized.Error()
	case loadErr != nil:
		msg = "session storage unavailable"
	}
	writeJSON(w, status, errorResponse{Code: status, Message: msg, Field: fieldName})
}
