// internal/domain/payment/pix_gateway.go
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
)

type PixGatewayConfig struct {
	BaseURL            string
	APIToken           string
	RequestTimeout     time.Duration
	BreakerMaxFailures uint32
	BreakerOpenTimeout time.Duration
}

// PixGateway talks to the PIX charge backend over HTTP
type PixGateway struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]byte]
	logger     *logrus.Logger
}

type createPixChargeRequest struct {
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}

type createPixChargeResponse struct {
	Success   bool   `json:"success"`
	TxID      string `json:"txid"`
	QRCode    string `json:"qr_code"`
	CopyPaste string `json:"copy_paste"`
	ExpiresAt string `json:"expires_at"`
	Detail    string `json:"detail"`
}

type pixStatusResponse struct {
	Status string `json:"status"`
}

// errPixRejected marks 4xx answers; they do not count against the breaker.
var errPixRejected = errors.New("pix gateway rejected request")

func NewPixGateway(cfg PixGatewayConfig, logger *logrus.Logger) *PixGateway {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	maxFailures := cfg.BreakerMaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}

	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    "pix-gateway",
		Timeout: cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errPixRejected)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	return &PixGateway{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiToken:   cfg.APIToken,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    breaker,
		logger:     logger,
	}
}

// CreateCharge requests a new PIX charge for amount centavos
func (g *PixGateway) CreateCharge(ctx context.Context, amount int64, description string) (*PixCharge, error) {
	body, err := g.makeAPICall(ctx, http.MethodPost, "/pix/charges", createPixChargeRequest{
		Amount:      amount,
		Description: description,
	})
	if err != nil {
		return nil, g.wrap("create_charge", err)
	}

	var resp createPixChargeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ProviderError{Provider: "pix", Op: "create_charge", Message: "invalid response body", Err: err}
	}

	if !resp.Success {
		msg := resp.Detail
		if msg == "" {
			msg = "charge was not created"
		}
		return nil, &ProviderError{Provider: "pix", Op: "create_charge", Message: msg, Declined: true}
	}

	expiresAt, err := time.Parse(time.RFC3339, resp.ExpiresAt)
	if err != nil {
		return nil, &ProviderError{Provider: "pix", Op: "create_charge", Message: "invalid expires_at", Err: err}
	}

	charge := &PixCharge{
		TransactionID: resp.TxID,
		QRImage:       resp.QRCode,
		CopyPasteCode: resp.CopyPaste,
		Amount:        amount,
		ExpiresAt:     expiresAt,
	}
	if err := validateCharge(charge); err != nil {
		return nil, err
	}

	return charge, nil
}

// CheckStatus returns the charge status reported by the gateway
func (g *PixGateway) CheckStatus(ctx context.Context, transactionID string) (PixStatus, error) {
	if transactionID == "" {
		return "", ErrNoActiveCharge
	}

	body, err := g.makeAPICall(ctx, http.MethodGet, "/pix/charges/"+url.PathEscape(transactionID)+"/status", nil)
	if err != nil {
		return "", g.wrap("check_status", err)
	}

	var resp pixStatusResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &ProviderError{Provider: "pix", Op: "check_status", Message: "invalid response body", Err: err}
	}
	if resp.Status == "" {
		return "", &ProviderError{Provider: "pix", Op: "check_status", Message: "response without status"}
	}

	return PixStatus(resp.Status), nil
}

func (g *PixGateway) wrap(op string, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &ProviderError{Provider: "pix", Op: op, Message: "gateway unavailable", Err: err}
	}
	return &ProviderError{Provider: "pix", Op: op, Message: "request failed", Err: err}
}

// makeAPICall performs one request through the circuit breaker
func (g *PixGateway) makeAPICall(ctx context.Context, method, endpoint string, data interface{}) ([]byte, error) {
	return g.breaker.Execute(func() ([]byte, error) {
		var reqBody []byte
		if data != nil {
			var err error
			reqBody, err = json.Marshal(data)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal request data: %w", err)
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, g.baseURL+endpoint, bytes.NewReader(reqBody))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		if g.apiToken != "" {
			req.Header.Set("Authorization", "Bearer "+g.apiToken)
		}

		resp, err := g.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to make API call: %w", err)
		}
		defer resp.Body.Close()

		var respBody bytes.Buffer
		if _, err := respBody.ReadFrom(resp.Body); err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}

		if resp.StatusCode >= 500 {
			return nil, fmt.Errorf("API call failed with status %d", resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			g.logger.WithFields(logrus.Fields{
				"endpoint": endpoint,
				"status":   resp.StatusCode,
			}).Warn("PIX gateway rejected request")
			return nil, fmt.Errorf("%w: status %d: %s", errPixRejected, resp.StatusCode, respBody.String())
		}

		return respBody.Bytes(), nil
	})
}
