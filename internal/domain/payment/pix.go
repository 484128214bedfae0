// internal/domain/payment/pix.go
package payment

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// PixStatus is the raw charge status reported by the PIX gateway
type PixStatus string

const (
	PixStatusActive         PixStatus = "ATIVA"
	PixStatusCompleted      PixStatus = "CONCLUIDA"
	PixStatusRemovedByPayee PixStatus = "REMOVIDA_PELO_USUARIO_RECEBEDOR"
	PixStatusRemovedByPSP   PixStatus = "REMOVIDA_PELO_PSP"
)

// Settled reports whether the funds were received
func (s PixStatus) Settled() bool {
	return s == PixStatusCompleted
}

// Removed reports whether the charge can no longer be paid
func (s PixStatus) Removed() bool {
	return s == PixStatusRemovedByPayee || s == PixStatusRemovedByPSP
}

type PixCharge struct {
	TransactionID string    `json:"transaction_id"`
	QRImage       string    `json:"qr_image"`
	CopyPasteCode string    `json:"copy_paste_code"`
	Amount        int64     `json:"amount"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// PixProvider is the PIX charge gateway
type PixProvider interface {
	CreateCharge(ctx context.Context, amount int64, description string) (*PixCharge, error)
	CheckStatus(ctx context.Context, transactionID string) (PixStatus, error)
}

type PixState string

const (
	PixIdle       PixState = "idle"
	PixRequesting PixState = "requesting"
	PixActive     PixState = "active"
	PixConfirmed  PixState = "confirmed"
	PixExpired    PixState = "expired"
	PixFailed     PixState = "failed"
)

// PixView is a point-in-time view of a PIX flow
type PixView struct {
	State                     PixState   `json:"state"`
	Charge                    *PixCharge `json:"charge,omitempty"`
	RemainingSeconds          int        `json:"remaining_seconds"`
	Error                     string     `json:"error,omitempty"`
	ManualConfirmationAllowed bool       `json:"manual_confirmation_allowed"`
}

// SettleFunc receives a provider-verified settlement. gen identifies the
// attempt that settled.
type SettleFunc func(gen uint64, confirmation Confirmation)

type PixFlowConfig struct {
	PollInterval            time.Duration
	AllowManualConfirmation bool
}

// PixFlow drives one session's PIX charges. Each Request starts a new
// attempt and supersedes the previous one; results belonging to a
// superseded attempt are dropped.
type PixFlow struct {
	provider PixProvider
	config   PixFlowConfig
	logger   *logrus.Logger
	now      func() time.Time

	mu         sync.Mutex
	state      PixState
	charge     *PixCharge
	lastError  string
	generation uint64
	stop       func()
	onSettle   SettleFunc
}

func NewPixFlow(provider PixProvider, config PixFlowConfig, logger *logrus.Logger) *PixFlow {
	return &PixFlow{
		provider: provider,
		config:   config,
		logger:   logger,
		now:      time.Now,
		state:    PixIdle,
	}
}

// OnSettle registers the callback fired when polling observes settlement.
// It is called without any PixFlow lock held.
func (f *PixFlow) OnSettle(fn SettleFunc) {
	f.mu.Lock()
	f.onSettle = fn
	f.mu.Unlock()
}

// Request creates a new charge, superseding any previous attempt. The
// returned generation identifies the attempt. Callers replacing a charge
// check Replaceable first; a superseded charge is no longer polled.
func (f *PixFlow) Request(ctx context.Context, amount int64, description string) (*PixCharge, uint64, error) {
	if amount <= 0 {
		return nil, 0, ErrInvalidAmount
	}

	f.mu.Lock()
	f.stopLocked()
	f.generation++
	gen := f.generation
	f.state = PixRequesting
	f.charge = nil
	f.lastError = ""
	f.mu.Unlock()

	charge, err := f.provider.CreateCharge(ctx, amount, description)

	f.mu.Lock()
	defer f.mu.Unlock()

	if gen != f.generation {
		f.logger.WithField("generation", gen).Info("Discarding PIX charge of superseded attempt")
		return nil, gen, ErrAttemptSuperseded
	}

	if err == nil {
		err = validateCharge(charge)
	}
	if err != nil {
		f.state = PixFailed
		f.lastError = UserMessage(err)
		f.logger.WithError(err).Warn("Failed to create PIX charge")
		return nil, gen, err
	}

	if charge.Amount == 0 {
		charge.Amount = amount
	}
	f.charge = charge

	remaining := charge.ExpiresAt.Sub(f.now())
	if remaining <= 0 {
		f.state = PixExpired
		c := *charge
		return &c, gen, nil
	}

	f.state = PixActive
	f.startLocked(gen, charge.TransactionID, remaining)

	f.logger.WithFields(logrus.Fields{
		"txid":       charge.TransactionID,
		"expires_at": charge.ExpiresAt,
	}).Info("PIX charge created")

	c := *charge
	return &c, gen, nil
}

// ConfirmManually records the shopper's own statement that the charge was
// paid. The confirmation is marked as asserted.
func (f *PixFlow) ConfirmManually() (*Confirmation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.config.AllowManualConfirmation {
		return nil, ErrManualConfirmationDisabled
	}
	switch f.state {
	case PixActive:
	case PixExpired:
		return nil, ErrChargeExpired
	default:
		return nil, ErrNoActiveCharge
	}

	f.stopLocked()
	f.state = PixConfirmed

	f.logger.WithField("txid", f.charge.TransactionID).Info("PIX payment confirmed by shopper")

	return &Confirmation{
		PaymentID:   f.charge.TransactionID,
		Method:      MethodPix,
		Kind:        ConfirmationAsserted,
		Amount:      f.charge.Amount,
		ConfirmedAt: f.now(),
	}, nil
}

// Stop supersedes the current attempt and stops its poller and timer.
func (f *PixFlow) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.stopLocked()
	f.generation++
	f.state = PixIdle
	f.charge = nil
	f.lastError = ""
}

// Generation returns the current attempt number
func (f *PixFlow) Generation() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.generation
}

// Replaceable reports whether a new charge may replace the current one
// without dropping a charge that can still be paid.
func (f *PixFlow) Replaceable() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.state {
	case PixIdle, PixFailed, PixExpired:
		return true
	}
	return false
}

func (f *PixFlow) State() PixState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// RemainingSeconds is the countdown until the active charge expires
func (f *PixFlow) RemainingSeconds() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.remainingLocked()
}

func (f *PixFlow) View() PixView {
	f.mu.Lock()
	defer f.mu.Unlock()

	view := PixView{
		State:                     f.state,
		RemainingSeconds:          f.remainingLocked(),
		Error:                     f.lastError,
		ManualConfirmationAllowed: f.config.AllowManualConfirmation && f.state == PixActive,
	}
	if f.charge != nil {
		c := *f.charge
		view.Charge = &c
	}
	return view
}

func (f *PixFlow) remainingLocked() int {
	if f.charge == nil || f.state != PixActive {
		return 0
	}
	left := f.charge.ExpiresAt.Sub(f.now()).Seconds()
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left))
}

func (f *PixFlow) startLocked(gen uint64, txid string, ttl time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	timer := time.AfterFunc(ttl, func() { f.expire(gen) })

	if f.config.PollInterval > 0 {
		go f.poll(ctx, gen, txid)
	}

	f.stop = func() {
		cancel()
		timer.Stop()
	}
}

func (f *PixFlow) stopLocked() {
	if f.stop != nil {
		f.stop()
		f.stop = nil
	}
}

func (f *PixFlow) poll(ctx context.Context, gen uint64, txid string) {
	ticker := time.NewTicker(f.config.PollInterval)
	defer ticker.Stop()

	log := f.logger.WithField("txid", txid)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		status, err := f.provider.CheckStatus(ctx, txid)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.WithError(err).Debug("PIX status check failed")
			continue
		}

		switch {
		case status.Settled():
			f.settle(gen)
			return
		case status.Removed():
			f.fail(gen, string(status))
			return
		}
	}
}

func (f *PixFlow) settle(gen uint64) {
	f.mu.Lock()
	if gen != f.generation || f.state != PixActive {
		f.mu.Unlock()
		return
	}

	f.stopLocked()
	f.state = PixConfirmed
	confirmation := Confirmation{
		PaymentID:   f.charge.TransactionID,
		Method:      MethodPix,
		Kind:        ConfirmationVerified,
		Amount:      f.charge.Amount,
		ConfirmedAt: f.now(),
	}
	callback := f.onSettle
	f.mu.Unlock()

	f.logger.WithField("txid", confirmation.PaymentID).Info("PIX payment settled")

	if callback != nil {
		callback(gen, confirmation)
	}
}

func (f *PixFlow) fail(gen uint64, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if gen != f.generation || f.state != PixActive {
		return
	}
	f.stopLocked()
	f.state = PixFailed
	f.lastError = "A cobrança PIX foi cancelada. Gere um novo código."
	f.logger.WithField("status", status).Warn("PIX charge removed")
}

func (f *PixFlow) expire(gen uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if gen != f.generation || f.state != PixActive {
		return
	}
	f.stopLocked()
	f.state = PixExpired
	f.logger.WithField("txid", f.charge.TransactionID).Info("PIX charge expired")
}

func validateCharge(charge *PixCharge) error {
	switch {
	case charge == nil:
		return &ProviderError{Provider: "pix", Op: "create_charge", Message: "empty response"}
	case charge.TransactionID == "":
		return &ProviderError{Provider: "pix", Op: "create_charge", Message: "charge without transaction id"}
	case charge.CopyPasteCode == "" && charge.QRImage == "":
		return &ProviderError{Provider: "pix", Op: "create_charge", Message: "charge without payment code"}
	case charge.ExpiresAt.IsZero():
		return &ProviderError{Provider: "pix", Op: "create_charge", Message: "charge without expiration"}
	}
	return nil
}

// IsSuperseded reports whether err came from a dropped attempt
func IsSuperseded(err error) bool {
	return errors.Is(err, ErrAttemptSuperseded)
}
