// internal/domain/checkout/options.go
package checkout

import "errors"

type PaymentMethods struct {
	Card bool `json:"card"`
	Pix  bool `json:"pix"`
}

// Options selects the storefront checkout variant
type Options struct {
	PaymentMethods  PaymentMethods
	AddressRequired bool
	ShippingFee     int64
}

// DefaultOptions is the card+PIX variant with address collection
func DefaultOptions() Options {
	return Options{
		PaymentMethods:  PaymentMethods{Card: true, Pix: true},
		AddressRequired: true,
		ShippingFee:     700,
	}
}

func (o Options) Validate() error {
	if !o.PaymentMethods.Card && !o.PaymentMethods.Pix {
		return errors.New("at least one payment method must be enabled")
	}
	if o.ShippingFee < 0 {
		return errors.New("shipping fee cannot be negative")
	}
	return nil
}

// Enabled lists the enabled methods in display order
func (o Options) Enabled() []PaymentMethod {
	methods := make([]PaymentMethod, 0, 2)
	if o.PaymentMethods.Card {
		methods = append(methods, PaymentMethodCard)
	}
	if o.PaymentMethods.Pix {
		methods = append(methods, PaymentMethodPix)
	}
	return methods
}

func (o Options) Allows(m PaymentMethod) bool {
	switch m {
	case PaymentMethodCard:
		return o.PaymentMethods.Card
	case PaymentMethodPix:
		return o.PaymentMethods.Pix
	}
	return false
}

// singleMethod returns the only enabled method, when there is exactly one
func (o Options) singleMethod() (PaymentMethod, bool) {
	methods := o.Enabled()
	if len(methods) == 1 {
		return methods[0], true
	}
	return PaymentMethodNone, false
}
