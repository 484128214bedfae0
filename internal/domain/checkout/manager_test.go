package checkout_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/fitfood-checkout/internal/domain/cart"
	"github.com/your-org/fitfood-checkout/internal/domain/checkout"
)

func TestNewManager_Validation(t *testing.T) {
	h := newHarness(0)

	_, err := checkout.NewManager(checkout.Options{}, h.deps, nil, time.Hour)
	assert.Error(t, err)

	deps := h.deps
	deps.PixProvider = nil
	_, err = checkout.NewManager(checkout.DefaultOptions(), deps, nil, time.Hour)
	assert.Error(t, err)

	deps = h.deps
	deps.Notifier = nil
	_, err = checkout.NewManager(checkout.DefaultOptions(), deps, nil, time.Hour)
	assert.Error(t, err)
}

func TestManager_GetPersistsAndRestores(t *testing.T) {
	ctx := context.Background()
	h := newHarness(0)
	store := checkout.NewMemoryStore()

	m, err := checkout.NewManager(checkout.DefaultOptions(), h.deps, store, time.Hour)
	require.NoError(t, err)
	t.Cleanup(m.Shutdown)

	s, err := m.Get(ctx, "abc")
	require.NoError(t, err)

	again, err := m.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Same(t, s, again)

	toPicker(t, s)
	require.NoError(t, s.ChoosePaymentMethod(ctx, checkout.PaymentMethodCard))

	state, err := store.Load(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, checkout.ViewCardForm, state.View)
	assert.Len(t, state.Items, 1)
	assert.Equal(t, ana, state.Customer)

	// a fresh process restores the cart and details but not the payment view
	m2, err := checkout.NewManager(checkout.DefaultOptions(), h.deps, store, time.Hour)
	require.NoError(t, err)
	t.Cleanup(m2.Shutdown)

	restored, err := m2.Get(ctx, "abc")
	require.NoError(t, err)

	snap := restored.Snapshot()
	assert.Equal(t, checkout.ViewCartOpen, snap.View)
	assert.Equal(t, checkout.PaymentMethodNone, snap.PaymentMethod)
	assert.Equal(t, 1, snap.Cart.Totals.TotalQuantity)
	assert.Equal(t, ana, snap.Customer)

	require.NoError(t, restored.BeginCheckout(ctx))
	assert.Equal(t, checkout.ViewPaymentMethodPicker, restored.Snapshot().View)
}

func TestManager_EvictIdle(t *testing.T) {
	ctx := context.Background()
	h := newHarness(0)
	store := checkout.NewMemoryStore()

	m, err := checkout.NewManager(checkout.DefaultOptions(), h.deps, store, time.Minute)
	require.NoError(t, err)

	s, err := m.Get(ctx, "idle")
	require.NoError(t, err)
	require.NoError(t, s.UpdateCart(func(c *cart.Cart) { c.AddItem(marmita()) }))

	assert.Equal(t, 0, m.EvictIdle(time.Now()))
	assert.Equal(t, 1, m.EvictIdle(time.Now().Add(2*time.Minute)))
	assert.Equal(t, 0, m.Len())
	assert.ErrorIs(t, s.OpenCart(), checkout.ErrSessionClosed)

	// state survives eviction
	s2, err := m.Get(ctx, "idle")
	require.NoError(t, err)
	assert.Equal(t, 1, s2.Snapshot().Cart.Totals.TotalQuantity)
}

func TestManager_EvictsUntouchedSessionsEarly(t *testing.T) {
	ctx := context.Background()
	h := newHarness(0)

	m, err := checkout.NewManager(checkout.DefaultOptions(), h.deps, nil, 24*time.Hour)
	require.NoError(t, err)
	m.SetFreshTTL(5 * time.Minute)

	_, err = m.Get(ctx, "browsing")
	require.NoError(t, err)
	shopper, err := m.Get(ctx, "shopping")
	require.NoError(t, err)
	require.NoError(t, shopper.UpdateCart(func(c *cart.Cart) { c.AddItem(marmita()) }))

	assert.Equal(t, 0, m.EvictIdle(time.Now().Add(time.Minute)))
	assert.Equal(t, 1, m.EvictIdle(time.Now().Add(10*time.Minute)))
	assert.Equal(t, 1, m.Len())

	same, err := m.Get(ctx, "shopping")
	require.NoError(t, err)
	assert.Same(t, shopper, same)

	assert.Equal(t, 1, m.EvictIdle(time.Now().Add(25*time.Hour)))
	assert.Equal(t, 0, m.Len())
}

func TestManager_End(t *testing.T) {
	ctx := context.Background()
	h := newHarness(0)
	store := checkout.NewMemoryStore()

	m, err := checkout.NewManager(checkout.DefaultOptions(), h.deps, store, time.Hour)
	require.NoError(t, err)

	s, err := m.Get(ctx, "gone")
	require.NoError(t, err)
	require.NoError(t, s.UpdateCart(func(c *cart.Cart) { c.AddItem(marmita()) }))

	require.NoError(t, m.End(ctx, "gone"))

	_, err = store.Load(ctx, "gone")
	assert.ErrorIs(t, err, checkout.ErrStateNotFound)

	fresh, err := m.Get(ctx, "gone")
	require.NoError(t, err)
	assert.True(t, fresh.Snapshot().Cart.Totals.IsEmpty())
}

func TestManager_Run(t *testing.T) {
	h := newHarness(0)
	m, err := checkout.NewManager(checkout.DefaultOptions(), h.deps, nil, time.Nanosecond)
	require.NoError(t, err)

	_, err = m.Get(context.Background(), "x")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return m.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := checkout.NewMemoryStore()

	_, err := store.Load(ctx, "missing")
	assert.ErrorIs(t, err, checkout.ErrStateNotFound)

	require.NoError(t, store.Save(ctx, "a", checkout.State{View: checkout.ViewCartOpen}, time.Hour))
	st, err := store.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, checkout.ViewCartOpen, st.View)

	require.NoError(t, store.Save(ctx, "b", checkout.State{}, time.Nanosecond))
	time.Sleep(time.Millisecond)
	_, err = store.Load(ctx, "b")
	assert.ErrorIs(t, err, checkout.ErrStateNotFound)

	require.NoError(t, store.Delete(ctx, "a"))
	_, err = store.Load(ctx, "a")
	assert.ErrorIs(t, err, checkout.ErrStateNotFound)
}
