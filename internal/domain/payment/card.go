// internal/domain/payment/card.go
package payment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// CardProvider is the card payment gateway. A non-empty idempotency key
// makes a repeated call return the result of the first one.
type CardProvider interface {
	CreatePaymentIntent(ctx context.Context, amount int64, currency, description, idempotencyKey string) (*PaymentIntent, error)
	ConfirmPayment(ctx context.Context, intentID, paymentMethodID, idempotencyKey string) (*IntentStatus, error)
	VerifyPayment(ctx context.Context, paymentID string) error
}

// DefaultAuthorizeTimeout bounds one card authorization
const DefaultAuthorizeTimeout = 60 * time.Second

type PaymentIntent struct {
	ID           string
	ClientSecret string
}

type IntentStatus struct {
	ID      string
	Status  string
	Message string
}

const IntentStatusSucceeded = "succeeded"

// CardRequest is a card submission for one checkout session. AttemptKey
// stays the same while the cart is unchanged, so a retried submission
// reuses the provider's payment intent.
type CardRequest struct {
	Key             string
	AttemptKey      string
	Total           int64
	Installments    int
	PaymentMethodID string
	Description     string
}

func (r CardRequest) createKey() string {
	if r.AttemptKey == "" {
		return ""
	}
	return fmt.Sprintf("%s-create-%d", r.AttemptKey, r.Installments)
}

func (r CardRequest) confirmKey() string {
	if r.AttemptKey == "" {
		return ""
	}
	return fmt.Sprintf("%s-confirm-%d-%s", r.AttemptKey, r.Installments, r.PaymentMethodID)
}

type CardAdapter struct {
	provider CardProvider
	pricing  InstallmentPricing
	currency string
	timeout  time.Duration
	logger   *logrus.Logger
	group    singleflight.Group
	now      func() time.Time
}

func NewCardAdapter(provider CardProvider, pricing InstallmentPricing, currency string, logger *logrus.Logger) *CardAdapter {
	return &CardAdapter{
		provider: provider,
		pricing:  pricing,
		currency: currency,
		timeout:  DefaultAuthorizeTimeout,
		logger:   logger,
		now:      time.Now,
	}
}

// WithTimeout sets how long one authorization may take
func (a *CardAdapter) WithTimeout(d time.Duration) *CardAdapter {
	if d > 0 {
		a.timeout = d
	}
	return a
}

// Options returns the installment plans for a cart total
func (a *CardAdapter) Options(total int64) []InstallmentOption {
	return a.pricing.Options(total)
}

// Submit authorizes a card payment for the selected installment plan.
// Concurrent submissions sharing a key result in a single provider call.
// The provider calls outlive ctx: once started, an authorization runs to
// completion or to the adapter timeout.
func (a *CardAdapter) Submit(ctx context.Context, req CardRequest) (*Confirmation, error) {
	if strings.TrimSpace(req.PaymentMethodID) == "" {
		return nil, ErrCardNotReady
	}
	if req.Total <= 0 {
		return nil, ErrInvalidAmount
	}

	option, err := a.pricing.Option(req.Total, req.Installments)
	if err != nil {
		return nil, err
	}

	v, err, shared := a.group.Do(req.Key, func() (interface{}, error) {
		authCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
		defer cancel()
		return a.authorize(authCtx, req, option)
	})
	if shared {
		a.logger.WithField("session_id", req.Key).Debug("Card submission collapsed into in-flight call")
	}
	if err != nil {
		return nil, err
	}

	confirmation := *v.(*Confirmation)
	return &confirmation, nil
}

func (a *CardAdapter) authorize(ctx context.Context, req CardRequest, option InstallmentOption) (*Confirmation, error) {
	log := a.logger.WithFields(logrus.Fields{
		"session_id":   req.Key,
		"amount":       option.TotalValue,
		"installments": option.Installments,
	})

	intent, err := a.provider.CreatePaymentIntent(ctx, option.TotalValue, a.currency, req.Description, req.createKey())
	if err != nil {
		log.WithError(err).Warn("Failed to create payment intent")
		return nil, err
	}
	if intent == nil || intent.ID == "" {
		return nil, &ProviderError{Provider: "card", Op: "create_intent", Message: "payment intent without id"}
	}

	status, err := a.provider.ConfirmPayment(ctx, intent.ID, req.PaymentMethodID, req.confirmKey())
	if err != nil {
		log.WithError(err).Warn("Failed to confirm card payment")
		return nil, err
	}
	if status == nil || status.Status != IntentStatusSucceeded {
		msg := "Pagamento não aprovado."
		if status != nil && status.Message != "" {
			msg = status.Message
		}
		state := ""
		if status != nil {
			state = status.Status
		}
		log.WithField("status", state).Warn("Card payment not succeeded")
		return nil, &ProviderError{Provider: "card", Op: "confirm", Message: msg, Declined: true}
	}

	paymentID := status.ID
	if paymentID == "" {
		paymentID = intent.ID
	}

	if err := a.provider.VerifyPayment(ctx, paymentID); err != nil {
		log.WithError(err).WithField("payment_id", paymentID).Warn("Payment verification failed, continuing")
	}

	log.WithField("payment_id", paymentID).Info("Card payment succeeded")

	opt := option
	return &Confirmation{
		PaymentID:    paymentID,
		Method:       MethodCard,
		Kind:         ConfirmationVerified,
		Amount:       option.TotalValue,
		Installments: &opt,
		ConfirmedAt:  a.now(),
	}, nil
}
