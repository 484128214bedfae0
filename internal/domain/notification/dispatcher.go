// internal/domain/notification/dispatcher.go
package notification

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/fitfood-checkout/internal/domain/order"
	"github.com/your-org/fitfood-checkout/internal/domain/payment"
	"github.com/your-org/fitfood-checkout/internal/pkg/money"
)

const EventOrderPlaced = "order.placed"

// OrderPlacedEvent is published for every confirmed order
type OrderPlacedEvent struct {
	OrderNumber      string                   `json:"order_number"`
	CustomerName     string                   `json:"customer_name"`
	CustomerPhone    string                   `json:"customer_phone"`
	CustomerEmail    string                   `json:"customer_email,omitempty"`
	Items            []EventItem              `json:"items"`
	Subtotal         int64                    `json:"subtotal"`
	Shipping         int64                    `json:"shipping"`
	Total            int64                    `json:"total"`
	ChargedAmount    int64                    `json:"charged_amount"`
	PaymentMethod    payment.Method           `json:"payment_method"`
	PaymentID        string                   `json:"payment_id"`
	ConfirmationKind payment.ConfirmationKind `json:"confirmation_kind"`
	Installments     int                      `json:"installments"`
	PlacedAt         time.Time                `json:"placed_at"`
}

type EventItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

// EventPublisher delivers order events to a message broker
type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, event OrderPlacedEvent) error
}

type Config struct {
	DeepLinkBase   string
	RecipientParam string
	Recipient      string
	StoreName      string
	PublishTimeout time.Duration
}

// Notification is what the client needs to hand the order to the store
type Notification struct {
	Summary  string `json:"summary"`
	DeepLink string `json:"deep_link"`
}

type Dispatcher struct {
	config    Config
	publisher EventPublisher
	logger    *logrus.Logger
	wg        sync.WaitGroup
}

// NewDispatcher creates a dispatcher. publisher may be nil.
func NewDispatcher(cfg Config, publisher EventPublisher, logger *logrus.Logger) *Dispatcher {
	if cfg.DeepLinkBase == "" {
		cfg.DeepLinkBase = "https://api.whatsapp.com/send"
	}
	if cfg.RecipientParam == "" {
		cfg.RecipientParam = "phone"
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 10 * time.Second
	}
	return &Dispatcher{
		config:    cfg,
		publisher: publisher,
		logger:    logger,
	}
}

// Dispatch composes the order summary and its deep link, and publishes the
// order event in the background. It never fails.
func (d *Dispatcher) Dispatch(placed order.Placed) Notification {
	summary := Compose(d.config.StoreName, placed)
	n := Notification{
		Summary:  summary,
		DeepLink: DeepLink(d.config.DeepLinkBase, d.config.RecipientParam, d.config.Recipient, summary),
	}

	if d.publisher != nil {
		event := NewOrderPlacedEvent(placed)
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), d.config.PublishTimeout)
			defer cancel()

			if err := d.publisher.PublishOrderPlaced(ctx, event); err != nil {
				d.logger.WithError(err).WithField("order_number", event.OrderNumber).Warn("Failed to publish order event")
			}
		}()
	}

	d.logger.WithField("order_number", placed.Number).Info("Order notification dispatched")
	return n
}

// Wait blocks until background publishes have finished
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// DeepLink builds the messaging URI carrying the summary text
func DeepLink(base, recipientParam, recipient, text string) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + recipientParam + "=" + escape(recipient) + "&text=" + escape(text)
}

// escape percent-encodes like a URI component, with spaces as %20
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// Compose renders the human readable order summary
func Compose(storeName string, placed order.Placed) string {
	var b strings.Builder

	if storeName != "" {
		fmt.Fprintf(&b, "*Novo pedido - %s*\n", storeName)
	} else {
		b.WriteString("*Novo pedido*\n")
	}
	if placed.Number != "" {
		fmt.Fprintf(&b, "Pedido: %s\n", placed.Number)
	}

	c := placed.Customer
	b.WriteString("\n")
	fmt.Fprintf(&b, "*Cliente:* %s\n", c.Name)
	fmt.Fprintf(&b, "*Endereço:* %s\n", c.Address)
	fmt.Fprintf(&b, "*Telefone:* %s\n", c.Phone)
	if c.Email != "" {
		fmt.Fprintf(&b, "*E-mail:* %s\n", c.Email)
	}

	b.WriteString("\n*Itens:*\n")
	for _, item := range placed.Items {
		fmt.Fprintf(&b, "- %dx %s: %s\n", item.Quantity, item.Name, money.FormatBRL(item.Subtotal()))
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "*Subtotal:* %s\n", money.FormatBRL(placed.Totals.SubTotal))
	fmt.Fprintf(&b, "*Frete:* %s\n", money.FormatBRL(placed.Totals.ShippingCost))
	fmt.Fprintf(&b, "*Total:* %s\n", money.FormatBRL(placed.Totals.TotalAmount))
	fmt.Fprintf(&b, "*Pagamento:* %s", PaymentLabel(placed.Payment))

	return b.String()
}

// PaymentLabel describes the settled payment method
func PaymentLabel(c payment.Confirmation) string {
	switch c.Method {
	case payment.MethodCard:
		inst := c.Installments
		if inst == nil || inst.Installments <= 1 {
			return "Cartão de crédito (à vista)"
		}
		label := fmt.Sprintf("Cartão de crédito em %dx de %s", inst.Installments, money.FormatBRL(inst.InstallmentValue))
		if inst.HasInterest {
			label += fmt.Sprintf(" (com juros, total %s)", money.FormatBRL(inst.TotalValue))
		}
		return label
	case payment.MethodPix:
		if c.Kind == payment.ConfirmationAsserted {
			return "PIX (confirmação manual, aguardando verificação)"
		}
		return "PIX (pagamento confirmado)"
	}
	return string(c.Method)
}

func NewOrderPlacedEvent(placed order.Placed) OrderPlacedEvent {
	event := OrderPlacedEvent{
		OrderNumber:      placed.Number,
		CustomerName:     placed.Customer.Name,
		CustomerPhone:    placed.Customer.Phone,
		CustomerEmail:    placed.Customer.Email,
		Subtotal:         placed.Totals.SubTotal,
		Shipping:         placed.Totals.ShippingCost,
		Total:            placed.Totals.TotalAmount,
		ChargedAmount:    placed.Payment.Amount,
		PaymentMethod:    placed.Payment.Method,
		PaymentID:        placed.Payment.PaymentID,
		ConfirmationKind: placed.Payment.Kind,
		Installments:     1,
		PlacedAt:         placed.PlacedAt,
	}
	if placed.Payment.Installments != nil {
		event.Installments = placed.Payment.Installments.Installments
	}
	for _, item := range placed.Items {
		event.Items = append(event.Items, EventItem{
			ProductID: item.ID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return event
}
