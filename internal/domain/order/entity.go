// internal/domain/order/entity.go
package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/your-org/fitfood-checkout/internal/domain/cart"
	"github.com/your-org/fitfood-checkout/internal/domain/customer"
	"github.com/your-org/fitfood-checkout/internal/domain/payment"
)

// Placed is an order whose payment has been confirmed, as handed from the
// checkout to the notification and recording steps.
type Placed struct {
	Number   string
	Customer customer.Info
	Items    []cart.CartItem
	Totals   cart.CartTotals
	Payment  payment.Confirmation
	PlacedAt time.Time
}

// Order represents a recorded order
type Order struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	OrderNumber string `gorm:"uniqueIndex;not null;size:50" json:"order_number"`

	// Customer
	CustomerName    string `gorm:"not null;size:255" json:"customer_name"`
	CustomerAddress string `gorm:"not null;type:text" json:"customer_address"`
	CustomerPhone   string `gorm:"not null;size:30" json:"customer_phone"`
	CustomerEmail   string `gorm:"size:255" json:"customer_email"`

	// Financial Information
	SubtotalAmount int64  `gorm:"not null" json:"subtotal_amount"` // In centavos
	ShippingAmount int64  `gorm:"default:0" json:"shipping_amount"`
	TotalAmount    int64  `gorm:"not null" json:"total_amount"`
	ChargedAmount  int64  `gorm:"not null" json:"charged_amount"` // Includes installment interest
	Currency       string `gorm:"size:3;default:'BRL'" json:"currency"`

	// Payment
	PaymentMethod     payment.Method           `gorm:"not null;size:20" json:"payment_method"`
	PaymentProviderID string                   `gorm:"size:255" json:"payment_provider_id"`
	ConfirmationKind  payment.ConfirmationKind `gorm:"not null;size:20" json:"confirmation_kind"`
	Installments      int                      `gorm:"default:1" json:"installments"`
	InstallmentValue  int64                    `gorm:"default:0" json:"installment_value"`

	PlacedAt  time.Time `json:"placed_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
}

// OrderItem represents items in an order
type OrderItem struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	OrderID    uint      `gorm:"not null;index" json:"order_id"`
	ProductID  string    `gorm:"not null;size:100;index" json:"product_id"`
	Name       string    `gorm:"not null;size:255" json:"name"`
	Quantity   int       `gorm:"not null" json:"quantity"`
	Price      int64     `gorm:"not null" json:"price"`       // Price per unit in centavos
	TotalPrice int64     `gorm:"not null" json:"total_price"` // Quantity * Price
	CreatedAt  time.Time `json:"created_at"`
}

// TableName overrides
func (Order) TableName() string     { return "orders" }
func (OrderItem) TableName() string { return "order_items" }

// NewOrderNumber generates a unique order number
func NewOrderNumber(now time.Time) string {
	// Format: FF-YYYYMMDD-XXXXXXXX
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("FF-%s-%s", now.Format("20060102"), suffix)
}

// FromPlaced builds the record for a placed order
func FromPlaced(p Placed, currency string) *Order {
	o := &Order{
		OrderNumber:       p.Number,
		CustomerName:      p.Customer.Name,
		CustomerAddress:   p.Customer.Address,
		CustomerPhone:     p.Customer.Phone,
		CustomerEmail:     p.Customer.Email,
		SubtotalAmount:    p.Totals.SubTotal,
		ShippingAmount:    p.Totals.ShippingCost,
		TotalAmount:       p.Totals.TotalAmount,
		ChargedAmount:     p.Payment.Amount,
		Currency:          strings.ToUpper(currency),
		PaymentMethod:     p.Payment.Method,
		PaymentProviderID: p.Payment.PaymentID,
		ConfirmationKind:  p.Payment.Kind,
		Installments:      1,
		PlacedAt:          p.PlacedAt,
	}

	if o.ChargedAmount == 0 {
		o.ChargedAmount = o.TotalAmount
	}
	if inst := p.Payment.Installments; inst != nil {
		o.Installments = inst.Installments
		o.InstallmentValue = inst.InstallmentValue
	}

	for _, item := range p.Items {
		o.Items = append(o.Items, OrderItem{
			ProductID:  item.ID,
			Name:       item.Name,
			Quantity:   item.Quantity,
			Price:      item.UnitPrice,
			TotalPrice: item.Subtotal(),
		})
	}

	return o
}

// IsVerified reports whether the provider confirmed the payment
func (o *Order) IsVerified() bool {
	return o.ConfirmationKind == payment.ConfirmationVerified
}

// PaymentLabel returns a human readable payment description
func (o *Order) PaymentLabel() string {
	switch o.PaymentMethod {
	case payment.MethodCard:
		if o.Installments > 1 {
			return fmt.Sprintf("Cartão de crédito (%dx)", o.Installments)
		}
		return "Cartão de crédito"
	case payment.MethodPix:
		if !o.IsVerified() {
			return "PIX (confirmação manual)"
		}
		return "PIX"
	}
	return string(o.PaymentMethod)
}
