// internal/domain/payment/stripe_provider.go
package payment

import (
	"context"
	"errors"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

type StripeProvider struct {
	client *client.API
}

func NewStripeProvider(secretKey string) *StripeProvider {
	return &StripeProvider{client: client.New(secretKey, nil)}
}

func (p *StripeProvider) CreatePaymentIntent(ctx context.Context, amount int64, currency, description, idempotencyKey string) (*PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(amount),
		Currency:           stripe.String(currency),
		Description:        stripe.String(description),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	params.Context = ctx
	if idempotencyKey != "" {
		params.SetIdempotencyKey(idempotencyKey)
	}

	pi, err := p.client.PaymentIntents.New(params)
	if err != nil {
		return nil, stripeError("create_intent", err)
	}
	if pi.ID == "" {
		return nil, &ProviderError{Provider: "stripe", Op: "create_intent", Message: "response without payment intent id"}
	}

	return &PaymentIntent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

func (p *StripeProvider) ConfirmPayment(ctx context.Context, intentID, paymentMethodID, idempotencyKey string) (*IntentStatus, error) {
	params := &stripe.PaymentIntentConfirmParams{
		PaymentMethod: stripe.String(paymentMethodID),
	}
	params.Context = ctx
	if idempotencyKey != "" {
		params.SetIdempotencyKey(idempotencyKey)
	}

	pi, err := p.client.PaymentIntents.Confirm(intentID, params)
	if err != nil {
		return nil, stripeError("confirm", err)
	}

	status := &IntentStatus{ID: pi.ID, Status: string(pi.Status)}
	if pi.LastPaymentError != nil {
		status.Message = pi.LastPaymentError.Msg
	}
	return status, nil
}

func (p *StripeProvider) VerifyPayment(ctx context.Context, paymentID string) error {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := p.client.PaymentIntents.Get(paymentID, params)
	if err != nil {
		return stripeError("verify", err)
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return &ProviderError{Provider: "stripe", Op: "verify", Message: "payment intent status " + string(pi.Status)}
	}
	return nil
}

func stripeError(op string, err error) error {
	var serr *stripe.Error
	if errors.As(err, &serr) {
		return &ProviderError{
			Provider: "stripe",
			Op:       op,
			Message:  serr.Msg,
			Declined: serr.Type == stripe.ErrorTypeCard,
			Err:      err,
		}
	}
	return &ProviderError{Provider: "stripe", Op: op, Message: "request failed", Err: err}
}
