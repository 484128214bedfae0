// internal/domain/payment/errors.go
package payment

import (
	"errors"
	"fmt"
)

var (
	ErrCardNotReady               = errors.New("card form is not ready")
	ErrInvalidInstallments        = errors.New("invalid number of installments")
	ErrInvalidAmount              = errors.New("amount must be greater than zero")
	ErrNoActiveCharge             = errors.New("no active PIX charge")
	ErrChargeExpired              = errors.New("PIX charge expired")
	ErrChargeActive               = errors.New("PIX charge is still active")
	ErrAttemptSuperseded          = errors.New("payment attempt was superseded")
	ErrManualConfirmationDisabled = errors.New("manual PIX confirmation is disabled")
)

// ProviderError describes a failed call to an external payment provider.
// Declined is set when the provider answered but refused the payment.
type ProviderError struct {
	Provider string
	Op       string
	Message  string
	Declined bool
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %s: %v", e.Provider, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s %s: %s", e.Provider, e.Op, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// AsProviderError unwraps a *ProviderError from err
func AsProviderError(err error) (*ProviderError, bool) {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr, true
	}
	return nil, false
}

// UserMessage returns the text shown to the shopper for a failed payment step
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCardNotReady):
		return "O formulário do cartão ainda não está pronto. Tente novamente."
	case errors.Is(err, ErrInvalidInstallments):
		return "Número de parcelas inválido."
	case errors.Is(err, ErrChargeExpired):
		return "O código PIX expirou. Gere um novo código."
	}

	if perr, ok := AsProviderError(err); ok {
		if perr.Declined && perr.Message != "" {
			return perr.Message
		}
		return "Não foi possível falar com o provedor de pagamento. Tente novamente."
	}

	return "Não foi possível concluir o pagamento. Tente novamente."
}
