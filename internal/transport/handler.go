// Package transport exposes the storefront and back-office use cases over
// HTTP. Mutating endpoints answer with a {type, message} action result;
// reads answer with the resource or a structured error.
package transport

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/khanofemperia/gethsemane-sub001/internal/domain"
	"github.com/khanofemperia/gethsemane-sub001/internal/middleware"
	"github.com/khanofemperia/gethsemane-sub001/internal/ordering"
	"github.com/khanofemperia/gethsemane-sub001/internal/payment"
	"github.com/khanofemperia/gethsemane-sub001/internal/repository"
	"github.com/khanofemperia/gethsemane-sub001/internal/service"
)

const msgReload = "Please reload the page and try again"

// CookieConfig describes the cookies the API issues
type CookieConfig struct {
	CartName      string
	CartMaxAge    time.Duration
	SessionName   string
	SessionMaxAge time.Duration
	// Secure is false only in development, where the API is served over plain http
	Secure bool
}

// userError is an error the caller can act on, with the status and message
// it is reported with
type userError struct {
	err     error
	status  int
	message string
}

var userErrors = []userError{
	{domain.ErrDuplicateItem, http.StatusConflict, "Item already in cart"},
	{domain.ErrCartNotFound, http.StatusNotFound, "Cart not found"},
	{domain.ErrInvalidItem, http.StatusBadRequest, "Invalid cart item"},
	{domain.ErrInvalidOption, http.StatusBadRequest, "Selected option is not available"},
	{domain.ErrDuplicateProduct, http.StatusConflict, "Product already added"},
	{domain.ErrInvalidVisibility, http.StatusBadRequest, "Invalid visibility"},
	{domain.ErrInvalidCollectionType, http.StatusBadRequest, "Invalid collection type"},
	{domain.ErrInvalidOrderStatus, http.StatusBadRequest, "Invalid order status"},
	{ordering.ErrInvalidIndex, http.StatusBadRequest, "Index is out of range"},
	{ordering.ErrNoSwapTarget, http.StatusConflict, "No item holds the requested index"},
	{ordering.ErrNotFound, http.StatusNotFound, "Item not found"},
	{repository.ErrProductNotFound, http.StatusNotFound, "Product not found"},
	{repository.ErrUpsellNotFound, http.StatusNotFound, "Upsell not found"},
	{repository.ErrCollectionNotFound, http.StatusNotFound, "Collection not found"},
	{repository.ErrCategoryNotFound, http.StatusNotFound, "Category not found"},
	{repository.ErrOrderNotFound, http.StatusNotFound, "Order not found"},
	{service.ErrEmptyCart, http.StatusBadRequest, "Your cart is empty"},
	{service.ErrInvalidInput, http.StatusBadRequest, "Invalid input"},
	{service.ErrPaymentNotCompleted, http.StatusPaymentRequired, "Payment was not completed"},
	{payment.ErrUnavailable, http.StatusServiceUnavailable, "Payments are unavailable right now, try again shortly"},
}

// classify maps err to a user-facing status and message. ok is false for
// store and provider failures, which must be logged and hidden.
func classify(err error) (status int, message string, ok bool) {
	for _, ue := range userErrors {
		if errors.Is(err, ue.err) {
			return ue.status, ue.message, true
		}
	}
	return http.StatusInternalServerError, "", false
}

// decodeAction decodes and validates the request body, answering with an
// ERROR action when it is unusable
func decodeAction(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := middleware.DecodeAndValidate(r, v); err != nil {
		middleware.RespondWithAction(w, http.StatusBadRequest, middleware.ActionError, middleware.ValidationMessage(err), nil)
		return false
	}
	return true
}

// decodeRequest is decodeAction for endpoints answering with structured errors
func decodeRequest(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := middleware.DecodeAndValidate(r, v); err != nil {
		if errs := middleware.FormatValidationErrors(err); len(errs) > 0 {
			middleware.RespondWithValidationErrors(w, errs)
			return false
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func actionOK(w http.ResponseWriter, message string, data interface{}) {
	middleware.RespondWithAction(w, http.StatusOK, middleware.ActionSuccess, message, data)
}

// actionFailed answers err as an ERROR action. Unexpected errors are logged
// and replaced by fallback.
func actionFailed(w http.ResponseWriter, logger *zap.Logger, err error, fallback string) {
	status, message, ok := classify(err)
	if !ok {
		logger.Error(fallback, zap.Error(err))
		message = fallback
	}
	middleware.RespondWithAction(w, status, middleware.ActionError, message, nil)
}

// readFailed answers err with a structured error body
func readFailed(w http.ResponseWriter, logger *zap.Logger, err error, what string) {
	status, message, ok := classify(err)
	if !ok {
		logger.Error("Failed to load "+what, zap.Error(err))
		message = "failed to load " + what
	}
	middleware.RespondWithError(w, status, message)
}
