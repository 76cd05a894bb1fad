package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/brtkpo/RestaurantApp/pkg/config"
	"github.com/brtkpo/RestaurantApp/pkg/utils"
)

// PaymentVerifier checks an external checkout session with the payment
// provider. Session creation itself happens on the frontend; the backend only
// ever confirms.
type PaymentVerifier interface {
	VerifySession(ctx context.Context, externalSessionID string) (*PaymentSession, error)
}

type PaymentSession struct {
	ID      string `json:"id"`
	Paid    bool   `json:"paid"`
	OrderID int64  `json:"order_id,string"`
}

type httpPaymentVerifier struct {
	providerURL string
	secretKey   string
	client      *http.Client
	cb          *gobreaker.CircuitBreaker
}

func NewHTTPPaymentVerifier(cfg config.Payment, logger *zap.Logger) PaymentVerifier {
	settings := gobreaker.Settings{
		Name:        "PaymentProvider",
		MaxRequests: 3,
		Interval:    5 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn(
				"Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &httpPaymentVerifier{
		providerURL: cfg.ProviderURL,
		secretKey:   cfg.SecretKey,
		client:      &http.Client{Timeout: cfg.Timeout},
		cb:          gobreaker.NewCircuitBreaker(settings),
	}
}

func (v *httpPaymentVerifier) VerifySession(ctx context.Context, externalSessionID string) (*PaymentSession, error) {
	return utils.ExecuteWithBreaker(v.cb, func() (*PaymentSession, error) {
		endpoint := fmt.Sprintf("%s/v1/checkout/sessions/%s", v.providerURL, url.PathEscape(externalSessionID))

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build provider request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+v.secretKey)

		resp, err := v.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("payment provider request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return nil, ErrPaymentSessionNotFound
		}

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("payment provider returned status %d", resp.StatusCode)
		}

		session := new(PaymentSession)
		if err := json.NewDecoder(resp.Body).Decode(session); err != nil {
			return nil, fmt.Errorf("failed to decode provider response: %w", err)
		}

		return session, nil
	})
}
