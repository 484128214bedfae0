package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/fitfood-checkout/internal/pkg/logger"
)

type fakePixProvider struct {
	mu     sync.Mutex
	seq    int
	ttl    time.Duration
	err    error
	block  map[int]chan struct{}
	status atomic.Value
	checks atomic.Int32
	txids  []string
}

func newFakePixProvider(ttl time.Duration) *fakePixProvider {
	p := &fakePixProvider{ttl: ttl, block: map[int]chan struct{}{}}
	p.status.Store(PixStatusActive)
	return p
}

func (p *fakePixProvider) CreateCharge(_ context.Context, amount int64, _ string) (*PixCharge, error) {
	p.mu.Lock()
	p.seq++
	n := p.seq
	gate := p.block[n]
	err := p.err
	p.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}

	txid := fmt.Sprintf("tx-%d", n)
	p.mu.Lock()
	p.txids = append(p.txids, txid)
	p.mu.Unlock()

	return &PixCharge{
		TransactionID: txid,
		CopyPasteCode: "00020126...",
		QRImage:       "data:image/png;base64,AAAA",
		Amount:        amount,
		ExpiresAt:     time.Now().Add(p.ttl),
	}, nil
}

func (p *fakePixProvider) CheckStatus(_ context.Context, _ string) (PixStatus, error) {
	p.checks.Add(1)
	return p.status.Load().(PixStatus), nil
}

func newTestFlow(p PixProvider, poll time.Duration, manual bool) *PixFlow {
	return NewPixFlow(p, PixFlowConfig{PollInterval: poll, AllowManualConfirmation: manual}, logger.Discard())
}

func TestPixFlow_Request(t *testing.T) {
	provider := newFakePixProvider(time.Hour)
	flow := newTestFlow(provider, 0, true)
	defer flow.Stop()

	charge, gen, err := flow.Request(context.Background(), 3690, "Pedido")
	require.NoError(t, err)

	assert.Equal(t, "tx-1", charge.TransactionID)
	assert.Equal(t, uint64(1), gen)
	assert.Equal(t, PixActive, flow.State())
	assert.InDelta(t, 3600, flow.RemainingSeconds(), 2)

	view := flow.View()
	assert.True(t, view.ManualConfirmationAllowed)
	require.NotNil(t, view.Charge)
	assert.Equal(t, int64(3690), view.Charge.Amount)
}

func TestPixFlow_RequestFailureIsRetryable(t *testing.T) {
	provider := newFakePixProvider(time.Hour)
	provider.err = &ProviderError{Provider: "pix", Op: "create_charge", Message: "down"}
	flow := newTestFlow(provider, 0, true)
	defer flow.Stop()

	_, _, err := flow.Request(context.Background(), 3690, "Pedido")
	require.Error(t, err)
	assert.Equal(t, PixFailed, flow.State())
	assert.NotEmpty(t, flow.View().Error)

	provider.mu.Lock()
	provider.err = nil
	provider.mu.Unlock()

	_, _, err = flow.Request(context.Background(), 3690, "Pedido")
	require.NoError(t, err)
	assert.Equal(t, PixActive, flow.State())
	assert.Empty(t, flow.View().Error)
}

func TestPixFlow_RejectsInvalidCharge(t *testing.T) {
	flow := newTestFlow(pixProviderFunc(func() (*PixCharge, error) {
		return &PixCharge{CopyPasteCode: "x", ExpiresAt: time.Now().Add(time.Minute)}, nil
	}), 0, true)

	_, _, err := flow.Request(context.Background(), 100, "Pedido")
	_, ok := AsProviderError(err)
	assert.True(t, ok)
	assert.Equal(t, PixFailed, flow.State())
}

func TestPixFlow_PollingSettles(t *testing.T) {
	provider := newFakePixProvider(time.Hour)
	flow := newTestFlow(provider, 10*time.Millisecond, true)
	defer flow.Stop()

	settled := make(chan Confirmation, 2)
	flow.OnSettle(func(_ uint64, c Confirmation) { settled <- c })

	_, _, err := flow.Request(context.Background(), 3690, "Pedido")
	require.NoError(t, err)

	provider.status.Store(PixStatusCompleted)

	select {
	case c := <-settled:
		assert.Equal(t, ConfirmationVerified, c.Kind)
		assert.Equal(t, MethodPix, c.Method)
		assert.Equal(t, "tx-1", c.PaymentID)
	case <-time.After(time.Second):
		t.Fatal("settlement not observed")
	}

	assert.Equal(t, PixConfirmed, flow.State())

	time.Sleep(50 * time.Millisecond)
	assert.Len(t, settled, 0, "settlement must fire once")
}

func TestPixFlow_ActiveIsNotSettled(t *testing.T) {
	provider := newFakePixProvider(time.Hour)
	flow := newTestFlow(provider, 5*time.Millisecond, true)
	defer flow.Stop()

	var fired atomic.Bool
	flow.OnSettle(func(uint64, Confirmation) { fired.Store(true) })

	_, _, err := flow.Request(context.Background(), 3690, "Pedido")
	require.NoError(t, err)

	time.Sleep(60 * time.Millisecond)
	assert.Greater(t, provider.checks.Load(), int32(1))
	assert.False(t, fired.Load())
	assert.Equal(t, PixActive, flow.State())
}

func TestPixFlow_Expiry(t *testing.T) {
	provider := newFakePixProvider(40 * time.Millisecond)
	flow := newTestFlow(provider, 10*time.Millisecond, true)
	defer flow.Stop()

	var fired atomic.Bool
	flow.OnSettle(func(uint64, Confirmation) { fired.Store(true) })

	_, _, err := flow.Request(context.Background(), 3690, "Pedido")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return flow.State() == PixExpired }, time.Second, 5*time.Millisecond)

	provider.status.Store(PixStatusCompleted)
	time.Sleep(50 * time.Millisecond)

	assert.False(t, fired.Load(), "settlement after expiry must be ignored")
	assert.Equal(t, PixExpired, flow.State())
	assert.Equal(t, 0, flow.RemainingSeconds())

	_, err = flow.ConfirmManually()
	assert.ErrorIs(t, err, ErrChargeExpired)
}

func TestPixFlow_SupersededResponseIsDropped(t *testing.T) {
	provider := newFakePixProvider(time.Hour)
	gate := make(chan struct{})
	provider.block[1] = gate
	flow := newTestFlow(provider, 0, true)
	defer flow.Stop()

	firstErr := make(chan error, 1)
	go func() {
		_, _, err := flow.Request(context.Background(), 3690, "Pedido")
		firstErr <- err
	}()

	require.Eventually(t, func() bool {
		provider.mu.Lock()
		defer provider.mu.Unlock()
		return provider.seq == 1
	}, time.Second, time.Millisecond)

	charge, gen, err := flow.Request(context.Background(), 3690, "Pedido")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), gen)

	close(gate)
	assert.ErrorIs(t, <-firstErr, ErrAttemptSuperseded)

	view := flow.View()
	assert.Equal(t, PixActive, view.State)
	assert.Equal(t, charge.TransactionID, view.Charge.TransactionID)
}

func TestPixFlow_LateSettlementOfOldAttemptIgnored(t *testing.T) {
	provider := newFakePixProvider(time.Hour)
	flow := newTestFlow(provider, 0, true)
	defer flow.Stop()

	var fired atomic.Bool
	flow.OnSettle(func(uint64, Confirmation) { fired.Store(true) })

	_, oldGen, err := flow.Request(context.Background(), 3690, "Pedido")
	require.NoError(t, err)
	_, _, err = flow.Request(context.Background(), 3690, "Pedido")
	require.NoError(t, err)

	flow.settle(oldGen)
	flow.expire(oldGen)

	assert.False(t, fired.Load())
	assert.Equal(t, PixActive, flow.State())
}

func TestPixFlow_ConfirmManually(t *testing.T) {
	t.Run("asserted_confirmation", func(t *testing.T) {
		flow := newTestFlow(newFakePixProvider(time.Hour), 0, true)
		defer flow.Stop()

		_, err := flow.ConfirmManually()
		assert.ErrorIs(t, err, ErrNoActiveCharge)

		_, _, err = flow.Request(context.Background(), 3690, "Pedido")
		require.NoError(t, err)

		conf, err := flow.ConfirmManually()
		require.NoError(t, err)
		assert.Equal(t, ConfirmationAsserted, conf.Kind)
		assert.False(t, conf.IsVerified())
		assert.Equal(t, int64(3690), conf.Amount)
		assert.Equal(t, PixConfirmed, flow.State())
	})

	t.Run("disabled", func(t *testing.T) {
		flow := newTestFlow(newFakePixProvider(time.Hour), 0, false)
		defer flow.Stop()

		_, _, err := flow.Request(context.Background(), 3690, "Pedido")
		require.NoError(t, err)

		_, err = flow.ConfirmManually()
		assert.ErrorIs(t, err, ErrManualConfirmationDisabled)
		assert.False(t, flow.View().ManualConfirmationAllowed)
	})
}

func TestPixFlow_RemovedChargeFails(t *testing.T) {
	provider := newFakePixProvider(time.Hour)
	provider.status.Store(PixStatusRemovedByPSP)
	flow := newTestFlow(provider, 5*time.Millisecond, true)
	defer flow.Stop()

	_, _, err := flow.Request(context.Background(), 3690, "Pedido")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return flow.State() == PixFailed }, time.Second, 5*time.Millisecond)
}

func TestPixFlow_StopHaltsPolling(t *testing.T) {
	provider := newFakePixProvider(time.Hour)
	flow := newTestFlow(provider, 5*time.Millisecond, true)

	_, _, err := flow.Request(context.Background(), 3690, "Pedido")
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)
	flow.Stop()
	time.Sleep(10 * time.Millisecond)
	checks := provider.checks.Load()

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, checks, provider.checks.Load())
	assert.Equal(t, PixIdle, flow.State())
	assert.Nil(t, flow.View().Charge)
}

func TestPixFlow_RemainingSeconds(t *testing.T) {
	base := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	flow := newTestFlow(pixProviderFunc(func() (*PixCharge, error) {
		return &PixCharge{TransactionID: "tx", CopyPasteCode: "x", ExpiresAt: base.Add(90*time.Second + 300*time.Millisecond)}, nil
	}), 0, true)
	defer flow.Stop()
	flow.now = func() time.Time { return base }

	_, _, err := flow.Request(context.Background(), 100, "Pedido")
	require.NoError(t, err)
	assert.Equal(t, 91, flow.RemainingSeconds())
}

func TestPixFlow_InvalidAmount(t *testing.T) {
	flow := newTestFlow(newFakePixProvider(time.Hour), 0, true)
	_, _, err := flow.Request(context.Background(), 0, "Pedido")
	assert.True(t, errors.Is(err, ErrInvalidAmount))
}

type pixProviderFunc func() (*PixCharge, error)

func (f pixProviderFunc) CreateCharge(context.Context, int64, string) (*PixCharge, error) {
	return f()
}

func (f pixProviderFunc) CheckStatus(context.Context, string) (PixStatus, error) {
	return PixStatusActive, nil
}
