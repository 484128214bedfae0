// internal/domain/checkout/errors.go
package checkout

import (
	"errors"
	"fmt"
)

var (
	ErrBusy              = errors.New("a payment step is still in progress")
	ErrInvalidTransition = errors.New("invalid checkout transition")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrCartLocked        = errors.New("cart cannot change during payment")
	ErrMethodDisabled    = errors.New("payment method is not available")
	ErrSessionClosed     = errors.New("checkout session is closed")
	ErrStateNotFound     = errors.New("checkout state not found")
)

func invalidTransition(action string, from View) error {
	return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, action, from)
}
