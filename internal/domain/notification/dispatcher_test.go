package notification_test

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/fitfood-checkout/internal/domain/cart"
	"github.com/your-org/fitfood-checkout/internal/domain/customer"
	"github.com/your-org/fitfood-checkout/internal/domain/notification"
	"github.com/your-org/fitfood-checkout/internal/domain/order"
	"github.com/your-org/fitfood-checkout/internal/domain/payment"
	"github.com/your-org/fitfood-checkout/internal/pkg/logger"
)

type fakePublisher struct {
	mu     sync.Mutex
	events []notification.OrderPlacedEvent
	err    error
}

func (f *fakePublisher) PublishOrderPlaced(_ context.Context, event notification.OrderPlacedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return f.err
}

func placed(conf payment.Confirmation) order.Placed {
	return order.Placed{
		Number: "FF-20260110-ABCDEF12",
		Customer: customer.Info{
			Name:    "Ana",
			Address: "Rua X, 10",
			Phone:   "11999990000",
			Email:   "ana@example.com",
		},
		Items: []cart.CartItem{
			{ID: "p1", Name: "Marmita Frango", UnitPrice: 2990, Quantity: 1},
			{ID: "p2", Name: "Suco Verde", UnitPrice: 1200, Quantity: 2},
		},
		Totals:   cart.CartTotals{ItemCount: 2, TotalQuantity: 3, SubTotal: 5390, ShippingCost: 700, TotalAmount: 6090},
		Payment:  conf,
		PlacedAt: time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestCompose(t *testing.T) {
	summary := notification.Compose("FitFood", placed(payment.Confirmation{
		Method: payment.MethodCard,
		Kind:   payment.ConfirmationVerified,
		Installments: &payment.InstallmentOption{
			Installments: 3, InstallmentValue: 2070, TotalValue: 6209, HasInterest: true,
		},
	}))

	for _, want := range []string{
		"*Novo pedido - FitFood*",
		"*Cliente:* Ana",
		"*Endereço:* Rua X, 10",
		"*Telefone:* 11999990000",
		"*E-mail:* ana@example.com",
		"- 1x Marmita Frango: R$ 29,90",
		"- 2x Suco Verde: R$ 24,00",
		"*Frete:* R$ 7,00",
		"*Total:* R$ 60,90",
		"Cartão de crédito em 3x de R$ 20,70 (com juros, total R$ 62,09)",
	} {
		assert.Contains(t, summary, want)
	}
}

func TestCompose_OmitsEmptyEmail(t *testing.T) {
	p := placed(payment.Confirmation{Method: payment.MethodPix, Kind: payment.ConfirmationVerified})
	p.Customer.Email = ""

	summary := notification.Compose("", p)
	assert.NotContains(t, summary, "E-mail")
	assert.Contains(t, summary, "PIX (pagamento confirmado)")
}

func TestPaymentLabel(t *testing.T) {
	assert.Equal(t, "Cartão de crédito (à vista)", notification.PaymentLabel(payment.Confirmation{Method: payment.MethodCard}))
	assert.Equal(t, "Cartão de crédito em 2x de R$ 18,45", notification.PaymentLabel(payment.Confirmation{
		Method:       payment.MethodCard,
		Installments: &payment.InstallmentOption{Installments: 2, InstallmentValue: 1845, TotalValue: 3690},
	}))
	assert.Contains(t, notification.PaymentLabel(payment.Confirmation{Method: payment.MethodPix, Kind: payment.ConfirmationAsserted}), "confirmação manual")
}

func TestDeepLink(t *testing.T) {
	link := notification.DeepLink("https://api.whatsapp.com/send", "phone", "5511999990000", "Olá & bem-vindo\n*Total:* R$ 36,90")

	assert.True(t, strings.HasPrefix(link, "https://api.whatsapp.com/send?phone=5511999990000&text="))
	assert.NotContains(t, link, "+")
	assert.Contains(t, link, "%20")

	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "Olá & bem-vindo\n*Total:* R$ 36,90", u.Query().Get("text"))
	assert.Equal(t, "5511999990000", u.Query().Get("phone"))
}

func TestDeepLink_BaseWithQuery(t *testing.T) {
	link := notification.DeepLink("whatsapp://send?app=1", "recipient", "123", "oi")
	assert.Equal(t, "whatsapp://send?app=1&recipient=123&text=oi", link)
}

func TestDispatcher_Dispatch(t *testing.T) {
	publisher := &fakePublisher{}
	d := notification.NewDispatcher(notification.Config{Recipient: "5511999990000", StoreName: "FitFood"}, publisher, logger.Discard())

	n := d.Dispatch(placed(payment.Confirmation{Method: payment.MethodPix, Kind: payment.ConfirmationAsserted, PaymentID: "tx-1", Amount: 6090}))
	d.Wait()

	assert.Contains(t, n.Summary, "FitFood")
	assert.True(t, strings.HasPrefix(n.DeepLink, "https://api.whatsapp.com/send?phone=5511999990000&text="))

	require.Len(t, publisher.events, 1)
	event := publisher.events[0]
	assert.Equal(t, "FF-20260110-ABCDEF12", event.OrderNumber)
	assert.Equal(t, payment.ConfirmationAsserted, event.ConfirmationKind)
	assert.Equal(t, int64(6090), event.Total)
	assert.Len(t, event.Items, 2)
	assert.Equal(t, 1, event.Installments)
}

func TestDispatcher_PublishFailureIsIgnored(t *testing.T) {
	publisher := &fakePublisher{err: errors.New("broker down")}
	d := notification.NewDispatcher(notification.Config{Recipient: "1"}, publisher, logger.Discard())

	n := d.Dispatch(placed(payment.Confirmation{Method: payment.MethodPix, Kind: payment.ConfirmationVerified}))
	d.Wait()

	assert.NotEmpty(t, n.DeepLink)
	assert.Len(t, publisher.events, 1)
}

func TestDispatcher_WithoutPublisher(t *testing.T) {
	d := notification.NewDispatcher(notification.Config{Recipient: "1"}, nil, logger.Discard())

	n := d.Dispatch(placed(payment.Confirmation{Method: payment.MethodCard}))
	d.Wait()
	assert.NotEmpty(t, n.Summary)
}
