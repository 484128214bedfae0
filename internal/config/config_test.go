package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, int64(700), cfg.Checkout.ShippingFee)
	assert.Equal(t, 5, cfg.Checkout.MaxInstallments)
	assert.Equal(t, 3, cfg.Checkout.InstallmentThreshold)
	assert.Equal(t, "0.0199", cfg.InstallmentRate().String())
	assert.True(t, cfg.Checkout.CardEnabled)
	assert.True(t, cfg.Checkout.PixEnabled)
	assert.Equal(t, 5*time.Second, cfg.External.Pix.PollInterval)
	assert.True(t, cfg.External.Pix.AllowManualConfirmation)
	assert.Equal(t, "https://api.whatsapp.com/send", cfg.Notification.DeepLinkBase)
	assert.Equal(t, "phone", cfg.Notification.RecipientParam)
	assert.Empty(t, cfg.External.Kafka.Brokers)
	assert.Equal(t, 60*time.Second, cfg.External.Stripe.AuthorizeTimeout)
	assert.Equal(t, 10*time.Minute, cfg.Checkout.FreshSessionTTL)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("CHECKOUT_SHIPPING_FEE", "990")
	t.Setenv("CHECKOUT_CARD_ENABLED", "false")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("PIX_POLL_INTERVAL", "2s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, int64(990), cfg.Checkout.ShippingFee)
	assert.False(t, cfg.Checkout.CardEnabled)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.External.Kafka.Brokers)
	assert.Equal(t, 2*time.Second, cfg.External.Pix.PollInterval)
}

func TestValidate(t *testing.T) {
	cases := map[string]map[string]string{
		"no payment methods": {"CHECKOUT_CARD_ENABLED": "false", "CHECKOUT_PIX_ENABLED": "false"},
		"negative shipping":  {"CHECKOUT_SHIPPING_FEE": "-1"},
		"bad rate":           {"CHECKOUT_INSTALLMENT_RATE": "abc"},
		"negative rate":      {"CHECKOUT_INSTALLMENT_RATE": "-0.01"},
		"threshold too low":  {"CHECKOUT_INSTALLMENT_THRESHOLD": "1"},
		"no polling no manual": {
			"PIX_POLL_INTERVAL":             "0",
			"PIX_ALLOW_MANUAL_CONFIRMATION": "false",
		},
		"production without stripe": {"APP_ENV": "production", "STRIPE_SECRET_KEY": ""},
	}

	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestValidate_ManualOnlyPix(t *testing.T) {
	t.Setenv("PIX_POLL_INTERVAL", "0")
	t.Setenv("PIX_ALLOW_MANUAL_CONFIRMATION", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Zero(t, cfg.External.Pix.PollInterval)
}

func TestGetDatabaseDSN(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{
		Host: "db", Port: "5432", User: "u", Password: "p", Name: "fitfood", SSLMode: "disable",
	}}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=fitfood sslmode=disable", cfg.GetDatabaseDSN())
}
