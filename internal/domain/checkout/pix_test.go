package checkout_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/fitfood-checkout/internal/domain/cart"
	"github.com/your-org/fitfood-checkout/internal/domain/checkout"
	"github.com/your-org/fitfood-checkout/internal/domain/payment"
)

func TestSession_PixSettlement(t *testing.T) {
	ctx := context.Background()
	h := newHarness(10 * time.Millisecond)
	s := h.session(t, checkout.DefaultOptions())

	toPicker(t, s)
	require.NoError(t, s.ChoosePaymentMethod(ctx, checkout.PaymentMethodPix))

	snap := s.Snapshot()
	assert.Equal(t, checkout.ViewPixPanel, snap.View)
	assert.Equal(t, checkout.PaymentMethodPix, snap.PaymentMethod)
	require.NotNil(t, snap.Pix)
	assert.Equal(t, payment.PixActive, snap.Pix.State)
	require.NotNil(t, snap.Pix.Charge)
	assert.Equal(t, "tx-1", snap.Pix.Charge.TransactionID)
	assert.Equal(t, int64(3690), snap.Pix.Charge.Amount)
	assert.Greater(t, snap.Pix.RemainingSeconds, 0)

	h.pix.status.Store(payment.PixStatusCompleted)

	require.Eventually(t, func() bool {
		return s.Snapshot().View == checkout.ViewClosed
	}, time.Second, 5*time.Millisecond)

	snap = s.Snapshot()
	assert.True(t, snap.Cart.Totals.IsEmpty())
	require.NotNil(t, snap.LastOrder)
	assert.Equal(t, payment.MethodPix, snap.LastOrder.Method)
	assert.Equal(t, payment.ConfirmationVerified, snap.LastOrder.ConfirmationKind)
	assert.Equal(t, "tx-1", snap.LastOrder.PaymentID)

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, 1, h.notifier.count())
	assert.Equal(t, 1, h.recorder.count())
}

func TestSession_PixManualConfirmation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(0)
	s := h.session(t, checkout.DefaultOptions())

	toPicker(t, s)
	require.NoError(t, s.ChoosePaymentMethod(ctx, checkout.PaymentMethodPix))
	assert.True(t, s.Snapshot().Pix.ManualConfirmationAllowed)

	receipt, err := s.ConfirmPixManually(ctx)
	require.NoError(t, err)

	assert.Equal(t, payment.ConfirmationAsserted, receipt.ConfirmationKind)
	assert.Equal(t, payment.ConfirmationAsserted, h.notifier.last().Payment.Kind)
	assert.Equal(t, checkout.ViewClosed, s.Snapshot().View)
	assert.True(t, s.Snapshot().Cart.Totals.IsEmpty())
}

func TestSession_PixChargeFailureIsRetryable(t *testing.T) {
	ctx := context.Background()
	h := newHarness(0)
	s := h.session(t, checkout.DefaultOptions())

	toPicker(t, s)
	h.pix.setErr(&payment.ProviderError{Provider: "pix", Op: "create_charge", Message: "request failed"})

	err := s.ChoosePaymentMethod(ctx, checkout.PaymentMethodPix)
	require.Error(t, err)

	snap := s.Snapshot()
	assert.Equal(t, checkout.ViewPixPanel, snap.View)
	assert.NotEmpty(t, snap.Error)
	assert.Equal(t, payment.PixFailed, snap.Pix.State)
	assert.False(t, snap.Busy)
	assert.Equal(t, 1, snap.Cart.Totals.TotalQuantity)
	assert.Equal(t, ana, snap.Customer)

	h.pix.setErr(nil)
	require.NoError(t, s.RequestPixCharge(ctx))

	snap = s.Snapshot()
	assert.Empty(t, snap.Error)
	assert.Equal(t, payment.PixActive, snap.Pix.State)
	assert.Equal(t, "tx-2", snap.Pix.Charge.TransactionID)
}

func TestSession_PixExpiry(t *testing.T) {
	ctx := context.Background()
	h := newHarness(10 * time.Millisecond)
	h.pix.ttl = 40 * time.Millisecond
	s := h.session(t, checkout.DefaultOptions())

	toPicker(t, s)
	require.NoError(t, s.ChoosePaymentMethod(ctx, checkout.PaymentMethodPix))

	require.Eventually(t, func() bool {
		return s.Snapshot().Pix.State == payment.PixExpired
	}, time.Second, 5*time.Millisecond)

	h.pix.status.Store(payment.PixStatusCompleted)
	time.Sleep(50 * time.Millisecond)

	snap := s.Snapshot()
	assert.Equal(t, checkout.ViewPixPanel, snap.View)
	assert.Equal(t, 0, snap.Pix.RemainingSeconds)
	assert.Equal(t, 0, h.notifier.count())

	_, err := s.ConfirmPixManually(ctx)
	assert.ErrorIs(t, err, payment.ErrChargeExpired)

	h.pix.ttl = time.Hour
	require.NoError(t, s.RequestPixCharge(ctx))
	assert.Equal(t, payment.PixActive, s.Snapshot().Pix.State)
}

func TestSession_PixCancelStopsPolling(t *testing.T) {
	ctx := context.Background()
	h := newHarness(10 * time.Millisecond)
	s := h.session(t, checkout.DefaultOptions())

	toPicker(t, s)
	require.NoError(t, s.ChoosePaymentMethod(ctx, checkout.PaymentMethodPix))
	require.NoError(t, s.Cancel())

	h.pix.status.Store(payment.PixStatusCompleted)
	time.Sleep(50 * time.Millisecond)

	snap := s.Snapshot()
	assert.Equal(t, checkout.ViewCartOpen, snap.View)
	assert.Equal(t, checkout.PaymentMethodNone, snap.PaymentMethod)
	assert.Nil(t, snap.Pix)
	assert.Equal(t, 1, snap.Cart.Totals.TotalQuantity)
	assert.Equal(t, 0, h.notifier.count())
}

func TestSession_PixCancelDuringChargeRequest(t *testing.T) {
	ctx := context.Background()
	h := newHarness(0)
	s := h.session(t, checkout.DefaultOptions())

	toPicker(t, s)
	h.pix.block()

	done := make(chan error, 1)
	go func() {
		done <- s.ChoosePaymentMethod(ctx, checkout.PaymentMethodPix)
	}()
	<-h.pix.entered

	assert.True(t, s.Snapshot().Busy)
	assert.ErrorIs(t, s.CloseCart(), checkout.ErrBusy)
	require.NoError(t, s.Cancel())

	close(h.pix.release)
	require.NoError(t, <-done)

	snap := s.Snapshot()
	assert.Equal(t, checkout.ViewCartOpen, snap.View)
	assert.False(t, snap.Busy)
	assert.Nil(t, snap.Pix)
	assert.Empty(t, snap.Error)
}

func TestSession_OpenCartAbandonsPix(t *testing.T) {
	ctx := context.Background()
	h := newHarness(10 * time.Millisecond)
	s := h.session(t, checkout.DefaultOptions())

	toPicker(t, s)
	require.NoError(t, s.ChoosePaymentMethod(ctx, checkout.PaymentMethodPix))
	require.NoError(t, s.OpenCart())

	h.pix.status.Store(payment.PixStatusCompleted)
	time.Sleep(40 * time.Millisecond)

	assert.Equal(t, checkout.ViewCartOpen, s.Snapshot().View)
	assert.Equal(t, 0, h.notifier.count())
}

func TestSession_PixOnlyVariant(t *testing.T) {
	ctx := context.Background()
	h := newHarness(0)
	opts := checkout.Options{PaymentMethods: checkout.PaymentMethods{Pix: true}, AddressRequired: true, ShippingFee: 700}
	s := h.session(t, opts)

	require.NoError(t, s.UpdateCart(func(c *cart.Cart) { c.AddItem(marmita()) }))
	require.NoError(t, s.OpenCart())
	require.NoError(t, s.BeginCheckout(ctx))
	require.NoError(t, s.SubmitAddress(ctx, ana))

	snap := s.Snapshot()
	assert.Equal(t, checkout.ViewPixPanel, snap.View)
	assert.Equal(t, checkout.PaymentMethodPix, snap.PaymentMethod)
	require.NotNil(t, snap.Pix.Charge)

	assert.ErrorIs(t, s.ChoosePaymentMethod(ctx, checkout.PaymentMethodCard), checkout.ErrInvalidTransition)
}

func TestSession_PixRequestOutsidePanel(t *testing.T) {
	h := newHarness(0)
	s := h.session(t, checkout.DefaultOptions())

	require.NoError(t, s.OpenCart())
	assert.ErrorIs(t, s.RequestPixCharge(context.Background()), checkout.ErrInvalidTransition)
}

func TestSession_PixRequestKeepsActiveCharge(t *testing.T) {
	ctx := context.Background()
	h := newHarness(10 * time.Millisecond)
	s := h.session(t, checkout.DefaultOptions())

	toPicker(t, s)
	require.NoError(t, s.ChoosePaymentMethod(ctx, checkout.PaymentMethodPix))
	require.Equal(t, payment.PixActive, s.Snapshot().Pix.State)

	err := s.RequestPixCharge(ctx)
	assert.ErrorIs(t, err, payment.ErrChargeActive)

	snap := s.Snapshot()
	assert.Equal(t, "tx-1", snap.Pix.Charge.TransactionID)
	assert.Equal(t, payment.PixActive, snap.Pix.State)
	assert.False(t, snap.Busy)

	h.pix.status.Store(payment.PixStatusCompleted)

	require.Eventually(t, func() bool {
		return s.Snapshot().View == checkout.ViewClosed
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "tx-1", s.Snapshot().LastOrder.PaymentID)
	assert.Equal(t, 1, h.notifier.count())
}
