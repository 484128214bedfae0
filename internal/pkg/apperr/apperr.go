// Package apperr maps domain errors to HTTP statuses and stable kind strings.
package apperr

import (
	"context"
	"errors"
	"net/http"

	"github.com/your-org/fitfood-checkout/internal/domain/catalog"
	"github.com/your-org/fitfood-checkout/internal/domain/checkout"
	"github.com/your-org/fitfood-checkout/internal/domain/customer"
	"github.com/your-org/fitfood-checkout/internal/domain/order"
	"github.com/your-org/fitfood-checkout/internal/domain/payment"
)

type Kind string

const (
	KindValidation        Kind = "validation"
	KindNotFound          Kind = "not_found"
	KindConflict          Kind = "conflict"
	KindBusy              Kind = "busy"
	KindInvalidTransition Kind = "invalid_transition"
	KindPaymentDeclined   Kind = "payment_declined"
	KindProvider          Kind = "provider_unavailable"
	KindExpired           Kind = "expired"
	KindForbidden         Kind = "forbidden"
	KindTimeout           Kind = "timeout"
	KindInternal          Kind = "internal"
)

var statusByKind = map[Kind]int{
	KindValidation:        http.StatusUnprocessableEntity,
	KindNotFound:          http.StatusNotFound,
	KindConflict:          http.StatusConflict,
	KindBusy:              http.StatusConflict,
	KindInvalidTransition: http.StatusConflict,
	KindPaymentDeclined:   http.StatusPaymentRequired,
	KindProvider:          http.StatusBadGateway,
	KindExpired:           http.StatusGone,
	KindForbidden:         http.StatusForbidden,
	KindTimeout:           http.StatusGatewayTimeout,
	KindInternal:          http.StatusInternalServerError,
}

// KindOf classifies err
func KindOf(err error) Kind {
	if _, ok := customer.AsValidationError(err); ok {
		return KindValidation
	}
	if perr, ok := payment.AsProviderError(err); ok {
		if perr.Declined {
			return KindPaymentDeclined
		}
		return KindProvider
	}

	switch {
	case errors.Is(err, checkout.ErrBusy):
		return KindBusy
	case errors.Is(err, checkout.ErrInvalidTransition),
		errors.Is(err, checkout.ErrSessionClosed),
		errors.Is(err, payment.ErrNoActiveCharge),
		errors.Is(err, payment.ErrChargeActive),
		errors.Is(err, payment.ErrAttemptSuperseded):
		return KindInvalidTransition
	case errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrCartLocked):
		return KindConflict
	case errors.Is(err, checkout.ErrMethodDisabled),
		errors.Is(err, payment.ErrManualConfirmationDisabled):
		return KindForbidden
	case errors.Is(err, payment.ErrCardNotReady),
		errors.Is(err, payment.ErrInvalidInstallments),
		errors.Is(err, payment.ErrInvalidAmount):
		return KindValidation
	case errors.Is(err, payment.ErrChargeExpired):
		return KindExpired
	case errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, checkout.ErrStateNotFound):
		return KindNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	}
	return KindInternal
}

// HTTPStatus returns the response status for err
func HTTPStatus(err error) int {
	return statusByKind[KindOf(err)]
}

// Message returns a user-facing message. Internal errors never leak their text.
func Message(err error) string {
	switch kind := KindOf(err); kind {
	case KindPaymentDeclined, KindProvider:
		return payment.UserMessage(err)
	case KindInternal:
		return "Algo deu errado. Tente novamente."
	case KindTimeout:
		return "A operação demorou demais. Tente novamente."
	default:
		return err.Error()
	}
}
