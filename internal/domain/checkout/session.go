// internal/domain/checkout/session.go
package checkout

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/your-org/fitfood-checkout/internal/domain/cart"
	"github.com/your-org/fitfood-checkout/internal/domain/customer"
	"github.com/your-org/fitfood-checkout/internal/domain/notification"
	"github.com/your-org/fitfood-checkout/internal/domain/order"
	"github.com/your-org/fitfood-checkout/internal/domain/payment"
)

// CardPayments prices and authorizes card payments
type CardPayments interface {
	Options(total int64) []payment.InstallmentOption
	Submit(ctx context.Context, req payment.CardRequest) (*payment.Confirmation, error)
}

// Notifier hands a placed order to the store
type Notifier interface {
	Dispatch(placed order.Placed) notification.Notification
}

// OrderRecorder keeps a log of placed orders
type OrderRecorder interface {
	Record(ctx context.Context, placed order.Placed) (*order.Order, error)
}

// Dependencies are the collaborators shared by all sessions
type Dependencies struct {
	Card          CardPayments
	PixProvider   payment.PixProvider
	Pix           payment.PixFlowConfig
	Notifier      Notifier
	Orders        OrderRecorder
	Description   string
	RecordTimeout time.Duration
	Logger        *logrus.Logger
	Now           func() time.Time
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Logger == nil {
		d.Logger = logrus.StandardLogger()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.RecordTimeout <= 0 {
		d.RecordTimeout = 10 * time.Second
	}
	if d.Description == "" {
		d.Description = "Pedido"
	}
	return d
}

// CardSubmission is the shopper's card form
type CardSubmission struct {
	Installments    int    `json:"installments"`
	PaymentMethodID string `json:"payment_method_id"`
}

// Session is one shopper's checkout: cart, customer details, and the
// state machine moving them from cart to confirmed payment. All methods
// are safe for concurrent use; transitions are applied one at a time.
type Session struct {
	id   string
	opts Options
	deps Dependencies
	cart *cart.Cart
	pix  *payment.PixFlow
	log  *logrus.Entry

	mu           sync.Mutex
	view         View
	method       PaymentMethod
	customer     customer.Info
	draft        customer.Info
	fieldErrors  customer.FieldErrors
	lastError    string
	busy         uint64
	busySeq      uint64
	installments []payment.InstallmentOption
	lastOrder    *Receipt
	closed       bool
	lastActive   time.Time
	touched      bool

	// attemptKey identifies card submissions for the current cart contents.
	// Cart observers reset it.
	attemptMu  sync.Mutex
	attemptKey string

	persistMu sync.Mutex
	onChange  func(State)
}

// NewSession creates an empty session. Methods without a configured
// provider are disabled.
func NewSession(id string, opts Options, deps Dependencies) *Session {
	deps = deps.withDefaults()

	s := &Session{
		id:         id,
		opts:       opts,
		deps:       deps,
		cart:       cart.NewCart(opts.ShippingFee),
		log:        deps.Logger.WithField("session_id", id),
		view:       ViewClosed,
		method:     PaymentMethodNone,
		lastActive: deps.Now(),
	}

	if deps.Card == nil {
		s.opts.PaymentMethods.Card = false
	}
	if deps.PixProvider == nil {
		s.opts.PaymentMethods.Pix = false
	} else {
		s.pix = payment.NewPixFlow(deps.PixProvider, deps.Pix, deps.Logger)
		s.pix.OnSettle(s.onPixSettled)
	}
	s.cart.Subscribe(s.onCartChanged)

	return s
}

// RestoreSession rebuilds a session from persisted state. Payment views are
// not resumed; the shopper lands back on the cart.
func RestoreSession(id string, opts Options, deps Dependencies, state State) *Session {
	s := NewSession(id, opts, deps)
	state = state.restorable()

	s.view = state.View
	s.method = state.PaymentMethod
	s.customer = state.Customer
	s.draft = state.Customer
	s.lastOrder = state.LastOrder
	s.cart.Restore(state.Items)
	s.touched = true

	return s
}

func (s *Session) ID() string {
	return s.id
}

// Cart exposes the session cart for reads
func (s *Session) Cart() *cart.Cart {
	return s.cart
}

// OnChange registers a hook receiving the state after every change
func (s *Session) OnChange(fn func(State)) {
	s.persistMu.Lock()
	s.onChange = fn
	s.persistMu.Unlock()
}

// UpdateCart applies a cart mutation. The cart is frozen while a payment
// view is open.
func (s *Session) UpdateCart(fn func(c *cart.Cart)) error {
	return s.apply(func() error {
		if s.view.IsPayment() {
			return ErrCartLocked
		}
		fn(s.cart)
		return nil
	})
}

// OpenCart shows the cart from any view, abandoning a payment attempt.
func (s *Session) OpenCart() error {
	return s.apply(func() error {
		s.leavePaymentLocked()
		s.view = ViewCartOpen
		s.fieldErrors = nil
		return nil
	})
}

func (s *Session) CloseCart() error {
	return s.apply(func() error {
		if s.view != ViewCartOpen {
			return invalidTransition("close_cart", s.view)
		}
		s.view = ViewClosed
		return nil
	})
}

// BeginCheckout leaves the cart. Known customers skip the address form.
func (s *Session) BeginCheckout(ctx context.Context) error {
	var token uint64
	err := s.apply(func() error {
		if s.view != ViewCartOpen {
			return invalidTransition("begin_checkout", s.view)
		}
		if s.cart.IsEmpty() {
			return ErrEmptyCart
		}
		if s.opts.AddressRequired && !s.customer.IsComplete() {
			s.view = ViewAddressForm
			s.draft = s.customer
			s.fieldErrors = nil
			return nil
		}

		var err error
		token, err = s.advanceLocked()
		return err
	})
	if err != nil || token == 0 {
		return err
	}
	return s.requestPix(ctx, token)
}

// SubmitAddress validates and stores the customer details. On validation
// failure the form stays open with field errors and nothing saved is lost.
func (s *Session) SubmitAddress(ctx context.Context, info customer.Info) error {
	var token uint64
	err := s.apply(func() error {
		if s.view != ViewAddressForm {
			return invalidTransition("submit_address", s.view)
		}

		if err := info.Validate(); err != nil {
			s.draft = info
			if verr, ok := customer.AsValidationError(err); ok {
				s.fieldErrors = verr.Fields
			}
			return err
		}

		s.customer = info.Normalize()
		s.draft = s.customer
		s.fieldErrors = nil

		var err error
		token, err = s.advanceLocked()
		return err
	})
	if err != nil || token == 0 {
		return err
	}
	return s.requestPix(ctx, token)
}

// BackToCart returns from the address form or the method picker.
func (s *Session) BackToCart() error {
	return s.apply(func() error {
		if s.view != ViewAddressForm && s.view != ViewPaymentMethodPicker {
			return invalidTransition("back_to_cart", s.view)
		}
		s.view = ViewCartOpen
		s.fieldErrors = nil
		return nil
	})
}

// EditAddress reopens the address form pre-filled with the saved details.
func (s *Session) EditAddress() error {
	return s.apply(func() error {
		if s.view != ViewPaymentMethodPicker {
			return invalidTransition("edit_address", s.view)
		}
		s.view = ViewAddressForm
		s.draft = s.customer
		s.fieldErrors = nil
		return nil
	})
}

// ChoosePaymentMethod opens the card form or the PIX panel. Opening the PIX
// panel requests a charge.
func (s *Session) ChoosePaymentMethod(ctx context.Context, method PaymentMethod) error {
	var token uint64
	err := s.apply(func() error {
		if s.view != ViewPaymentMethodPicker {
			return invalidTransition("choose_payment_method", s.view)
		}
		if !s.opts.Allows(method) {
			return ErrMethodDisabled
		}

		var err error
		token, err = s.enterMethodLocked(method)
		return err
	})
	if err != nil || token == 0 {
		return err
	}
	return s.requestPix(ctx, token)
}

// SubmitCard authorizes the card payment. While the call is outstanding
// every other transition is rejected with ErrBusy.
func (s *Session) SubmitCard(ctx context.Context, sub CardSubmission) (*Receipt, error) {
	var (
		token uint64
		req   payment.CardRequest
	)
	err := s.apply(func() error {
		if s.view != ViewCardForm {
			return invalidTransition("submit_card", s.view)
		}
		req = payment.CardRequest{
			Key:             s.id,
			AttemptKey:      s.cardAttemptKey(),
			Total:           s.cart.Totals().TotalAmount,
			Installments:    sub.Installments,
			PaymentMethodID: sub.PaymentMethodID,
			Description:     s.deps.Description,
		}
		token = s.acquireBusyLocked()
		s.lastError = ""
		return nil
	})
	if err != nil {
		return nil, err
	}

	conf, err := s.deps.Card.Submit(ctx, req)

	s.mu.Lock()
	s.releaseBusyLocked(token)
	if err != nil {
		s.lastError = payment.UserMessage(err)
		s.mu.Unlock()
		s.log.WithError(err).Warn("Card payment failed")
		s.changed()
		return nil, err
	}

	placed, receipt := s.confirmLocked(*conf)
	s.mu.Unlock()

	s.finish(ctx, placed)
	return receipt, nil
}

// RequestPixCharge asks for a new charge, replacing a failed or expired one.
// A charge that can still be paid is kept and payment.ErrChargeActive is
// returned.
func (s *Session) RequestPixCharge(ctx context.Context) error {
	var token uint64
	err := s.apply(func() error {
		if s.view != ViewPixPanel {
			return invalidTransition("request_pix_charge", s.view)
		}
		if s.cart.IsEmpty() {
			return ErrEmptyCart
		}
		if !s.pix.Replaceable() {
			return payment.ErrChargeActive
		}
		token = s.acquireBusyLocked()
		return nil
	})
	if err != nil {
		return err
	}
	return s.requestPix(ctx, token)
}

// ConfirmPixManually places the order on the shopper's word that the PIX
// charge was paid. The order is marked as asserted, not verified.
func (s *Session) ConfirmPixManually(ctx context.Context) (*Receipt, error) {
	s.mu.Lock()
	if err := s.guardLocked(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if s.view != ViewPixPanel {
		err := invalidTransition("confirm_pix", s.view)
		s.mu.Unlock()
		return nil, err
	}

	conf, err := s.pix.ConfirmManually()
	if err != nil {
		if errors.Is(err, payment.ErrChargeExpired) {
			s.lastError = payment.UserMessage(err)
		}
		s.mu.Unlock()
		return nil, err
	}

	placed, receipt := s.confirmLocked(*conf)
	s.mu.Unlock()

	s.log.WithField("txid", conf.PaymentID).Warn("Order placed on unverified PIX confirmation")
	s.finish(ctx, placed)
	return receipt, nil
}

// PaymentConfirmed completes the checkout: the cart is cleared, the order
// is dispatched once and recorded, and the session returns to Closed.
func (s *Session) PaymentConfirmed(ctx context.Context, conf payment.Confirmation) (*Receipt, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	if !s.view.IsPayment() {
		err := invalidTransition("payment_confirmed", s.view)
		s.mu.Unlock()
		return nil, err
	}

	placed, receipt := s.confirmLocked(conf)
	s.mu.Unlock()

	s.finish(ctx, placed)
	return receipt, nil
}

// PaymentFailed surfaces a retryable error in the current payment view.
func (s *Session) PaymentFailed(reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	if !s.view.IsPayment() {
		return invalidTransition("payment_failed", s.view)
	}
	s.lastError = reason
	return nil
}

// Cancel leaves the payment view for the cart without touching its
// contents. An outstanding PIX charge request is abandoned; an outstanding
// card authorization cannot be.
func (s *Session) Cancel() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if !s.view.IsPayment() {
		err := invalidTransition("cancel", s.view)
		s.mu.Unlock()
		return err
	}
	if s.busy != 0 && s.view == ViewCardForm {
		s.mu.Unlock()
		return ErrBusy
	}

	s.busy = 0
	s.leavePaymentLocked()
	s.view = ViewCartOpen
	s.lastActive = s.deps.Now()
	s.mu.Unlock()

	s.changed()
	return nil
}

// Close tears the session down and stops its timers.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	if s.pix != nil {
		s.pix.Stop()
	}
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		SessionID:     s.id,
		View:          s.view,
		PaymentMethod: s.method,
		Busy:          s.busy != 0,
		Cart: CartView{
			Items:  s.cart.Items(),
			Totals: s.cart.Totals(),
		},
		Customer:    s.customer,
		AddressForm: s.draft,
		Error:       s.lastError,
		Methods:     s.opts.Enabled(),
		LastOrder:   s.lastOrder,
	}

	if snap.AddressForm.IsZero() {
		snap.AddressForm = s.customer
	}
	if len(s.fieldErrors) > 0 {
		snap.FieldErrors = customer.FieldErrors{}
		for k, v := range s.fieldErrors {
			snap.FieldErrors[k] = v
		}
	}
	if s.view == ViewCardForm {
		snap.Installments = append([]payment.InstallmentOption(nil), s.installments...)
	}
	if s.view == ViewPixPanel && s.pix != nil {
		pv := s.pix.View()
		snap.Pix = &pv
	}

	return snap
}

// State returns the persistable part of the session
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	return State{
		View:          s.view,
		PaymentMethod: s.method,
		Customer:      s.customer,
		Items:         s.cart.Snapshot(),
		LastOrder:     s.lastOrder,
		UpdatedAt:     s.deps.Now(),
	}
}

// idle reports whether the session has been unused since before cutoff,
// or since before freshCutoff when it was never changed.
func (s *Session) idle(cutoff, freshCutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.touched {
		cutoff = freshCutoff
	}
	return s.busy == 0 && s.lastActive.Before(cutoff)
}

// apply runs a user-driven transition under the session lock and persists
// the result when it succeeds.
func (s *Session) apply(fn func() error) error {
	s.mu.Lock()
	if err := s.guardLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	err := fn()
	s.mu.Unlock()

	if err == nil {
		s.changed()
	}
	return err
}

func (s *Session) guardLocked() error {
	if s.closed {
		return ErrSessionClosed
	}
	if s.busy != 0 {
		return ErrBusy
	}
	s.lastActive = s.deps.Now()
	return nil
}

func (s *Session) acquireBusyLocked() uint64 {
	s.busySeq++
	s.busy = s.busySeq
	return s.busy
}

func (s *Session) releaseBusyLocked(token uint64) {
	if s.busy == token {
		s.busy = 0
	}
}

// advanceLocked moves past the address step: to the picker, or straight to
// the only enabled method. A non-zero token means a PIX charge must be
// requested.
func (s *Session) advanceLocked() (uint64, error) {
	if s.cart.IsEmpty() {
		return 0, ErrEmptyCart
	}
	if method, ok := s.opts.singleMethod(); ok {
		return s.enterMethodLocked(method)
	}
	s.view = ViewPaymentMethodPicker
	s.method = PaymentMethodNone
	return 0, nil
}

func (s *Session) enterMethodLocked(method PaymentMethod) (uint64, error) {
	if s.cart.IsEmpty() {
		return 0, ErrEmptyCart
	}

	s.method = method
	s.view = viewFor(method)
	s.lastError = ""

	if method == PaymentMethodCard {
		s.installments = s.deps.Card.Options(s.cart.Totals().TotalAmount)
		return 0, nil
	}
	return s.acquireBusyLocked(), nil
}

func (s *Session) leavePaymentLocked() {
	if s.view == ViewPixPanel && s.pix != nil {
		s.pix.Stop()
	}
	s.method = PaymentMethodNone
	s.installments = nil
	s.lastError = ""
}

// requestPix runs the charge request started by a transition holding token.
// A result for an attempt that was cancelled meanwhile is dropped.
func (s *Session) requestPix(ctx context.Context, token uint64) error {
	total := s.cart.Totals().TotalAmount
	_, _, err := s.pix.Request(ctx, total, s.deps.Description)

	s.mu.Lock()
	s.releaseBusyLocked(token)
	if payment.IsSuperseded(err) || s.view != ViewPixPanel {
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		s.lastError = payment.UserMessage(err)
		s.mu.Unlock()
		s.log.WithError(err).Warn("PIX charge request failed")
		s.changed()
		return err
	}
	s.lastError = ""
	s.mu.Unlock()

	s.changed()
	return nil
}

// cardAttemptKey returns the key shared by every card submission made for
// the current cart contents.
func (s *Session) cardAttemptKey() string {
	s.attemptMu.Lock()
	defer s.attemptMu.Unlock()
	if s.attemptKey == "" {
		s.attemptKey = s.id + "-" + uuid.NewString()
	}
	return s.attemptKey
}

func (s *Session) onCartChanged(cart.CartTotals) {
	s.attemptMu.Lock()
	s.attemptKey = ""
	s.attemptMu.Unlock()
}

func (s *Session) onPixSettled(gen uint64, conf payment.Confirmation) {
	s.mu.Lock()
	if s.closed || s.view != ViewPixPanel || gen != s.pix.Generation() {
		s.mu.Unlock()
		s.log.WithField("txid", conf.PaymentID).Warn("PIX settlement for an abandoned attempt")
		return
	}

	placed, _ := s.confirmLocked(conf)
	s.mu.Unlock()

	s.finish(context.Background(), placed)
}

func (s *Session) confirmLocked(conf payment.Confirmation) (order.Placed, *Receipt) {
	now := s.deps.Now()
	if conf.ConfirmedAt.IsZero() {
		conf.ConfirmedAt = now
	}

	placed := order.Placed{
		Number:   order.NewOrderNumber(now),
		Customer: s.customer,
		Items:    s.cart.Items(),
		Totals:   s.cart.Totals(),
		Payment:  conf,
		PlacedAt: now,
	}

	s.cart.Clear()
	n := s.deps.Notifier.Dispatch(placed)

	receipt := &Receipt{
		OrderNumber:      placed.Number,
		Method:           conf.Method,
		ConfirmationKind: conf.Kind,
		PaymentID:        conf.PaymentID,
		Amount:           conf.Amount,
		Summary:          n.Summary,
		DeepLink:         n.DeepLink,
		PlacedAt:         now,
	}

	if s.pix != nil {
		s.pix.Stop()
	}
	s.view = ViewClosed
	s.method = PaymentMethodNone
	s.installments = nil
	s.lastError = ""
	s.fieldErrors = nil
	s.lastOrder = receipt
	s.lastActive = now

	s.log.WithFields(logrus.Fields{
		"order_number":      placed.Number,
		"payment_method":    conf.Method,
		"confirmation_kind": conf.Kind,
		"payment_id":        conf.PaymentID,
	}).Info("Order placed")

	return placed, receipt
}

// finish persists the closed session and records the order. Recording is
// best effort.
func (s *Session) finish(ctx context.Context, placed order.Placed) {
	s.changed()

	if s.deps.Orders == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.deps.RecordTimeout)
	defer cancel()

	if _, err := s.deps.Orders.Record(ctx, placed); err != nil {
		s.log.WithError(err).WithField("order_number", placed.Number).Error("Failed to record order")
	}
}

// changed hands the current state to the registered hook
func (s *Session) changed() {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	s.touched = true
	s.mu.Unlock()

	if s.onChange == nil {
		return
	}

	s.mu.Lock()
	closed := s.closed
	state := s.stateLocked()
	s.mu.Unlock()

	if !closed {
		s.onChange(state)
	}
}
