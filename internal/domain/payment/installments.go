// internal/domain/payment/installments.go
package payment

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/your-org/fitfood-checkout/internal/pkg/money"
)

// InstallmentOption is one selectable way of splitting a card payment
type InstallmentOption struct {
	Installments     int     `json:"installments"`
	InstallmentValue int64   `json:"installment_value"`
	TotalValue       int64   `json:"total_value"`
	HasInterest      bool    `json:"has_interest"`
	InterestRate     float64 `json:"interest_rate"`
}

// InstallmentPricing holds the store's installment policy. Plans with at
// least Threshold installments are charged compound interest at Rate per
// installment.
type InstallmentPricing struct {
	Max       int
	Threshold int
	Rate      decimal.Decimal
}

// DefaultInstallmentPricing returns the storefront defaults
func DefaultInstallmentPricing() InstallmentPricing {
	return InstallmentPricing{
		Max:       5,
		Threshold: 3,
		Rate:      decimal.RequireFromString("0.0199"),
	}
}

// Options lists the plans for 1..Max installments, in ascending order.
func (p InstallmentPricing) Options(total int64) []InstallmentOption {
	options := make([]InstallmentOption, 0, p.Max)
	for i := 1; i <= p.Max; i++ {
		options = append(options, p.option(total, i))
	}
	return options
}

// Option returns the plan for n installments
func (p InstallmentPricing) Option(total int64, n int) (InstallmentOption, error) {
	if n < 1 || n > p.Max {
		return InstallmentOption{}, fmt.Errorf("%w: %d (allowed 1..%d)", ErrInvalidInstallments, n, p.Max)
	}
	return p.option(total, n), nil
}

func (p InstallmentPricing) option(total int64, n int) InstallmentOption {
	base := money.FromCents(total)
	count := decimal.NewFromInt(int64(n))

	if n < p.Threshold {
		return InstallmentOption{
			Installments:     n,
			InstallmentValue: money.ToCents(base.Div(count)),
			TotalValue:       total,
		}
	}

	factor := decimal.NewFromInt(1).Add(p.Rate).Pow(count)
	withInterest := base.Mul(factor)

	return InstallmentOption{
		Installments:     n,
		InstallmentValue: money.ToCents(withInterest.Div(count)),
		TotalValue:       money.ToCents(withInterest),
		HasInterest:      true,
		InterestRate:     p.Rate.InexactFloat64(),
	}
}
