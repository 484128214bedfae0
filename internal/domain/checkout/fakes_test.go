package checkout_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/your-org/fitfood-checkout/internal/domain/cart"
	"github.com/your-org/fitfood-checkout/internal/domain/checkout"
	"github.com/your-org/fitfood-checkout/internal/domain/customer"
	"github.com/your-org/fitfood-checkout/internal/domain/notification"
	"github.com/your-org/fitfood-checkout/internal/domain/order"
	"github.com/your-org/fitfood-checkout/internal/domain/payment"
	"github.com/your-org/fitfood-checkout/internal/pkg/logger"
)

type fakeCardProvider struct {
	mu      sync.Mutex
	calls   int
	amounts []int64
	keys    []string
	err     error
	entered chan struct{}
	release chan struct{}
}

func (f *fakeCardProvider) CreatePaymentIntent(_ context.Context, amount int64, _, _, key string) (*payment.PaymentIntent, error) {
	f.mu.Lock()
	f.calls++
	f.amounts = append(f.amounts, amount)
	f.keys = append(f.keys, key)
	err := f.err
	entered, release := f.entered, f.release
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
		<-release
	}
	if err != nil {
		return nil, err
	}
	return &payment.PaymentIntent{ID: "pi_1", ClientSecret: "secret"}, nil
}

func (f *fakeCardProvider) ConfirmPayment(_ context.Context, intentID, _, _ string) (*payment.IntentStatus, error) {
	return &payment.IntentStatus{ID: intentID, Status: payment.IntentStatusSucceeded}, nil
}

func (f *fakeCardProvider) VerifyPayment(context.Context, string) error {
	return nil
}

func (f *fakeCardProvider) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeCardProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeCardProvider) createKeys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.keys...)
}

func (f *fakeCardProvider) lastAmount() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.amounts) == 0 {
		return 0
	}
	return f.amounts[len(f.amounts)-1]
}

type fakePixProvider struct {
	mu      sync.Mutex
	seq     int
	err     error
	ttl     time.Duration
	entered chan struct{}
	release chan struct{}
	status  atomic.Value
}

func newFakePixProvider() *fakePixProvider {
	p := &fakePixProvider{ttl: time.Hour}
	p.status.Store(payment.PixStatusActive)
	return p
}

func (p *fakePixProvider) CreateCharge(_ context.Context, amount int64, _ string) (*payment.PixCharge, error) {
	p.mu.Lock()
	p.seq++
	n := p.seq
	err := p.err
	entered, release := p.entered, p.release
	p.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
		<-release
	}
	if err != nil {
		return nil, err
	}
	return &payment.PixCharge{
		TransactionID: fmt.Sprintf("tx-%d", n),
		QRImage:       "data:image/png;base64,AAAA",
		CopyPasteCode: "00020126",
		Amount:        amount,
		ExpiresAt:     time.Now().Add(p.ttl),
	}, nil
}

func (p *fakePixProvider) CheckStatus(context.Context, string) (payment.PixStatus, error) {
	return p.status.Load().(payment.PixStatus), nil
}

func (p *fakePixProvider) setErr(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

func (p *fakePixProvider) block() {
	p.mu.Lock()
	p.entered = make(chan struct{}, 1)
	p.release = make(chan struct{})
	p.mu.Unlock()
}

type fakeNotifier struct {
	mu     sync.Mutex
	placed []order.Placed
}

func (f *fakeNotifier) Dispatch(p order.Placed) notification.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.placed = append(f.placed, p)
	return notification.Notification{Summary: "resumo " + p.Number, DeepLink: "https://api.whatsapp.com/send?phone=1&text=" + p.Number}
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.placed)
}

func (f *fakeNotifier) last() order.Placed {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.placed[len(f.placed)-1]
}

type fakeRecorder struct {
	mu     sync.Mutex
	orders []order.Placed
	err    error
}

func (f *fakeRecorder) Record(_ context.Context, p order.Placed) (*order.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = append(f.orders, p)
	if f.err != nil {
		return nil, f.err
	}
	return order.FromPlaced(p, "brl"), nil
}

func (f *fakeRecorder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.orders)
}

type harness struct {
	card     *fakeCardProvider
	pix      *fakePixProvider
	notifier *fakeNotifier
	recorder *fakeRecorder
	deps     checkout.Dependencies
}

func newHarness(pollInterval time.Duration) *harness {
	h := &harness{
		card:     &fakeCardProvider{},
		pix:      newFakePixProvider(),
		notifier: &fakeNotifier{},
		recorder: &fakeRecorder{},
	}
	log := logger.Discard()
	h.deps = checkout.Dependencies{
		Card:        payment.NewCardAdapter(h.card, payment.DefaultInstallmentPricing(), "brl", log),
		PixProvider: h.pix,
		Pix:         payment.PixFlowConfig{PollInterval: pollInterval, AllowManualConfirmation: true},
		Notifier:    h.notifier,
		Orders:      h.recorder,
		Description: "Pedido FitFood",
		Logger:      log,
	}
	return h
}

func (h *harness) session(t *testing.T, opts checkout.Options) *checkout.Session {
	t.Helper()
	s := checkout.NewSession("s1", opts, h.deps)
	t.Cleanup(s.Close)
	return s
}

var ana = customer.Info{Name: "Ana", Address: "Rua X, 10", Phone: "11999990000"}

func marmita() cart.CartItem {
	return cart.CartItem{ID: "p1", Name: "Marmita Frango", UnitPrice: 2990}
}
