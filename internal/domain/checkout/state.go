// internal/domain/checkout/state.go
package checkout

import (
	"time"

	"github.com/your-org/fitfood-checkout/internal/domain/cart"
	"github.com/your-org/fitfood-checkout/internal/domain/customer"
	"github.com/your-org/fitfood-checkout/internal/domain/payment"
)

// View is the checkout surface currently shown to the shopper
type View string

const (
	ViewClosed              View = "closed"
	ViewCartOpen            View = "cart_open"
	ViewAddressForm         View = "address_form"
	ViewPaymentMethodPicker View = "payment_method_picker"
	ViewCardForm            View = "card_form"
	ViewPixPanel            View = "pix_panel"
)

// IsPayment reports whether a payment attempt is on screen
func (v View) IsPayment() bool {
	return v == ViewCardForm || v == ViewPixPanel
}

func (v View) String() string {
	return string(v)
}

type PaymentMethod string

const (
	PaymentMethodNone PaymentMethod = "none"
	PaymentMethodCard PaymentMethod = "card"
	PaymentMethodPix  PaymentMethod = "pix"
)

// ParsePaymentMethod accepts "card" or "pix"
func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	switch PaymentMethod(s) {
	case PaymentMethodCard:
		return PaymentMethodCard, true
	case PaymentMethodPix:
		return PaymentMethodPix, true
	}
	return PaymentMethodNone, false
}

// viewFor is the payment view that belongs to a method
func viewFor(m PaymentMethod) View {
	if m == PaymentMethodPix {
		return ViewPixPanel
	}
	return ViewCardForm
}

// Receipt describes a placed order to the shopper
type Receipt struct {
	OrderNumber      string                   `json:"order_number"`
	Method           payment.Method           `json:"method"`
	ConfirmationKind payment.ConfirmationKind `json:"confirmation_kind"`
	PaymentID        string                   `json:"payment_id"`
	Amount           int64                    `json:"amount"`
	Summary          string                   `json:"summary"`
	DeepLink         string                   `json:"deep_link"`
	PlacedAt         time.Time                `json:"placed_at"`
}

// State is the persistable part of a session
type State struct {
	View          View            `json:"view"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Customer      customer.Info   `json:"customer"`
	Items         []cart.CartItem `json:"items"`
	LastOrder     *Receipt        `json:"last_order,omitempty"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// restorable drops payment attempts that cannot outlive the process
func (s State) restorable() State {
	if s.View == "" {
		s.View = ViewClosed
	}
	if s.View.IsPayment() {
		s.View = ViewCartOpen
	}
	s.PaymentMethod = PaymentMethodNone
	return s
}

type CartView struct {
	Items  []cart.CartItem `json:"items"`
	Totals cart.CartTotals `json:"totals"`
}

// Snapshot is the full session state returned to the client
type Snapshot struct {
	SessionID     string                      `json:"session_id"`
	View          View                        `json:"view"`
	PaymentMethod PaymentMethod               `json:"payment_method"`
	Busy          bool                        `json:"busy"`
	Cart          CartView                    `json:"cart"`
	Customer      customer.Info               `json:"customer"`
	AddressForm   customer.Info               `json:"address_form"`
	FieldErrors   customer.FieldErrors        `json:"field_errors,omitempty"`
	Error         string                      `json:"error,omitempty"`
	Methods       []PaymentMethod             `json:"payment_methods"`
	Installments  []payment.InstallmentOption `json:"installments,omitempty"`
	Pix           *payment.PixView            `json:"pix,omitempty"`
	LastOrder     *Receipt                    `json:"last_order,omitempty"`
}
